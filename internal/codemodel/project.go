package codemodel

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// projectMarker is the file extension that marks a project directory.
const projectMarker = ".csproj"

// projectsOf assigns every file the directory of its nearest enclosing
// project file, relative to root and slash separated. A file with no project
// file above it belongs to its top-level directory, or to "" at the root.
// Same-named types in different projects are distinct types.
func projectsOf(root string, relPaths []string) []string {
	marked := make(map[string]bool)
	hasMarker := func(dir string) bool {
		if known, ok := marked[dir]; ok {
			return known
		}
		found := false
		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), projectMarker) {
					found = true
					break
				}
			}
		}
		marked[dir] = found
		return found
	}

	out := make([]string, len(relPaths))
	for i, rel := range relPaths {
		rel = filepath.ToSlash(rel)
		dir := path.Dir(rel)
		project, ok := "", false
		for {
			if dir == "." {
				dir = ""
			}
			if hasMarker(dir) {
				project, ok = dir, true
				break
			}
			if dir == "" {
				break
			}
			dir = path.Dir(dir)
		}
		if !ok {
			if first, _, nested := strings.Cut(rel, "/"); nested {
				project = first
			}
		}
		out[i] = project
	}
	return out
}

func typeKey(project, fullName string) string {
	return project + "\x00" + fullName
}
