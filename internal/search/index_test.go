package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/model"
)

type stubCodebase struct {
	root  string
	decls []codemodel.Declaration
}

func (s stubCodebase) Root() string                        { return s.root }
func (s stubCodebase) Diagnostics() []codemodel.Diagnostic { return nil }
func (s stubCodebase) SourceFiles() []string               { return []string{filepath.Join(s.root, "Contact.cs")} }
func (s stubCodebase) EventLikeDeclarations(context.Context) ([]codemodel.Declaration, error) {
	return s.decls, nil
}
func (s stubCodebase) CallSites(context.Context) ([]codemodel.CallSite, error) { return nil, nil }
func (s stubCodebase) FindReferences(context.Context, model.Symbol) ([]model.Location, error) {
	return nil, nil
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	root := t.TempDir()
	file := filepath.Join(root, "Contact.cs")
	decl := func(id, member string, line int) codemodel.Declaration {
		loc := model.Location{File: file, Span: model.Span{Start: line * 10, End: line*10 + 5}, Line: line}
		return codemodel.Declaration{
			Native: true,
			Symbol: model.Symbol{
				ID:          id,
				Name:        "Contacts.Contact." + member,
				Kind:        model.StructuralEvent,
				Member:      member,
				TypeName:    "EventHandler<string>",
				Declaration: &loc,
			},
		}
	}
	cb := stubCodebase{root: root, decls: []codemodel.Declaration{
		decl("id-1", "NameChanged", 3),
		decl("id-2", "AddressMoved", 4),
	}}

	result, err := events.Analyse(context.Background(), cb, events.NewStructuralStrategy(), events.Options{})
	require.NoError(t, err)
	return Build(result, events.DocumentMap(cb))
}

func TestSearchRanksEventNameMatches(t *testing.T) {
	index := buildTestIndex(t)
	results := Search(index, "name changed", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "id-1", results[0].ID)

	doc, ok := index.Document("id-1")
	require.True(t, ok)
	assert.Equal(t, "Contact.cs", doc.File)
	assert.Equal(t, 3, doc.Line)
	assert.NotEmpty(t, doc.Token)
}

func TestEncodeAndLoadIndex(t *testing.T) {
	index := buildTestIndex(t)
	dir := t.TempDir()
	data, err := Encode(index)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), data, 0644))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.DocumentCount)
	assert.Len(t, loaded.Documents, 2)

	results := Search(loaded, "AddressMoved", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "id-2", results[0].ID)
}

func TestLoadMissingIndex(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestSearchTypoFallback(t *testing.T) {
	index := &Index{
		Version:       Version,
		DocumentCount: 1,
		AvgDocLength:  1,
		DocFreq:       map[string]int{},
		Documents: []Document{
			{ID: "id-1", Name: "Contacts.Contact.NameChanged", Length: 1, Terms: map[string]int{"contactscontactnamechanged": 1}},
		},
	}

	results := Search(index, "Contacts.Contact.NaemChanged", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "id-1", results[0].ID)
}

func TestSearchDeterministicOrdering(t *testing.T) {
	index := &Index{
		Version:       Version,
		DocumentCount: 2,
		AvgDocLength:  1,
		DocFreq:       map[string]int{"alpha": 2},
		Documents: []Document{
			{ID: "b", Length: 1, Terms: map[string]int{"alpha": 1}},
			{ID: "a", Length: 1, Terms: map[string]int{"alpha": 1}},
		},
	}

	results := Search(index, "alpha", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}
