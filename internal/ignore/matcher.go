package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultRules are excluded before user rules are applied; user negations
// can bring paths back.
var DefaultRules = []string{
	".git/",
	".vs/",
	".idea/",
	"bin/",
	"obj/",
	"packages/",
	"node_modules/",
	"TestResults/",
}

// Matcher applies gitignore rules with "last rule wins" behavior.
type Matcher struct {
	gi *gitignore.GitIgnore
	// dirs holds only the rules ending in "/". A wildcard such as "skip/*"
	// describes the directory's children, not the directory, so it must not
	// prune the walk before a later negation can re-include a child.
	dirs *gitignore.GitIgnore
}

// NewMatcher builds a matcher from user-provided .swampignore lines.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	for _, line := range userRules {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		all = append(all, line)
	}

	dirOnly := make([]string, 0, len(all))
	for _, line := range all {
		if strings.HasSuffix(line, "/") {
			dirOnly = append(dirOnly, line)
		}
	}
	return &Matcher{
		gi:   gitignore.CompileIgnoreLines(all...),
		dirs: gitignore.CompileIgnoreLines(dirOnly...),
	}
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	if m.gi.MatchesPath(relPath) {
		return true
	}
	return isDir && m.dirs.MatchesPath(relPath+"/")
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
