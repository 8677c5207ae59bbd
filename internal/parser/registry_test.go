package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockParser struct {
	lang string
	exts []string
}

func (m mockParser) Language() string {
	return m.lang
}

func (m mockParser) Extensions() []string {
	return m.exts
}

func (m mockParser) Parse(filename string, content []byte) (*FileModel, error) {
	if string(content) == "broken" {
		return nil, errors.New("syntax error")
	}
	return &FileModel{
		Path:     filename,
		Language: m.lang,
		Usings:   []string{" System ", "Prism.Events", "System"},
		Members: []MemberDecl{
			{Owner: "Demo.Mock", OwnerName: "Mock", Name: "Changed", Kind: MemberEvent, TypeName: "EventHandler", Line: 1},
		},
	}, nil
}

func newMockRegistry() *Registry {
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})
	return r
}

func TestRegistryGetParserForFile(t *testing.T) {
	r := newMockRegistry()

	p, ok := r.GetParserForFile("demo.MOCK")
	require.True(t, ok, "extension lookup is case-insensitive")
	assert.Equal(t, "mock", p.Language())

	_, ok = r.GetParserForFile("demo.txt")
	assert.False(t, ok)
}

func TestParseFileNormalizesUsings(t *testing.T) {
	root := t.TempDir()
	r := newMockRegistry()

	path := filepath.Join(root, "a.mock")
	mustWriteFile(t, path, "ok")

	file, err := r.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prism.Events", "System"}, file.Usings)
	assert.NotEmpty(t, file.Hash)
	assert.EqualValues(t, 2, file.Size)
	assert.True(t, filepath.IsAbs(file.AbsPath), "absolute path, got %s", file.AbsPath)
}

func TestParseDirectoryRespectsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	r := newMockRegistry()

	mustWriteFile(t, filepath.Join(root, "keep.mock"), "ok")
	mustWriteFile(t, filepath.Join(root, "skip", "ignored.mock"), "x")
	mustWriteFile(t, filepath.Join(root, "skip", "include.mock"), "y")
	mustWriteFile(t, filepath.Join(root, "obj", "Debug", "generated.mock"), "z")

	var progress []string
	result, err := r.ParseDirectory(context.Background(), root, []string{
		"skip/*",
		"!skip/include.mock",
	}, func(relPath string, parsed int) {
		progress = append(progress, relPath)
	})
	require.NoError(t, err)

	got := make([]string, 0, len(result.Files))
	for _, file := range result.Files {
		got = append(got, file.Path)
	}
	want := []string{"keep.mock", "skip/include.mock"}
	assert.Equal(t, want, got)
	assert.Len(t, progress, len(want))
}

func TestParseDirectoryReportsBrokenFiles(t *testing.T) {
	root := t.TempDir()
	r := newMockRegistry()

	mustWriteFile(t, filepath.Join(root, "good.mock"), "ok")
	mustWriteFile(t, filepath.Join(root, "bad.mock"), "broken")

	result, err := r.ParseDirectory(context.Background(), root, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "good.mock", result.Files[0].Path)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, "bad.mock", issue.File)
	assert.Equal(t, "warning", issue.Severity)
	assert.Equal(t, "mock", issue.Language)
}

func TestParseDirectoryStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	r := newMockRegistry()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "ok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.ParseDirectory(ctx, root, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestStableMemberIDDistinguishesDeclarations(t *testing.T) {
	a := MemberDecl{Owner: "Demo.Contact", Name: "Changed", Kind: MemberEvent, TypeName: "EventHandler", Line: 4}
	b := a
	b.Line = 9

	assert.NotEqual(t, StableMemberID("Contact.cs", a), StableMemberID("Contact.cs", b))
	assert.Equal(t, StableMemberID("Contact.cs", a), StableMemberID("Contact.cs", a))
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
