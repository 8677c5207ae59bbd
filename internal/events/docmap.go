package events

import (
	"fmt"
	"path/filepath"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/fileutil"
)

const tokenLength = 12

// DocumentIdentity maps absolute file paths to opaque tokens safe for file
// names and URLs. The mapping is injective and fixed once built.
type DocumentIdentity struct {
	tokens map[string]string
	paths  []string
}

// NewDocumentIdentity assigns a token to every distinct non-empty path.
func NewDocumentIdentity(paths []string) *DocumentIdentity {
	unique := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		unique[filepath.Clean(p)] = true
	}
	sorted := fileutil.MapKeysSorted(unique)

	d := &DocumentIdentity{
		tokens: make(map[string]string, len(sorted)),
		paths:  sorted,
	}
	used := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		token := fileutil.HashString(p, tokenLength)
		for n := 1; used[token]; n++ {
			token = fmt.Sprintf("%s-%d", fileutil.HashString(p, tokenLength), n)
		}
		used[token] = true
		d.tokens[p] = token
	}
	return d
}

// DocumentMap builds the identity map over every source file of cb.
func DocumentMap(cb codemodel.Codebase) *DocumentIdentity {
	return NewDocumentIdentity(cb.SourceFiles())
}

// Token returns the token of path, or false when the path has no document.
func (d *DocumentIdentity) Token(path string) (string, bool) {
	if d == nil || path == "" {
		return "", false
	}
	token, ok := d.tokens[filepath.Clean(path)]
	return token, ok
}

// Paths returns the mapped paths in sorted order.
func (d *DocumentIdentity) Paths() []string {
	return d.paths
}

// Len is the number of mapped paths.
func (d *DocumentIdentity) Len() int {
	return len(d.paths)
}
