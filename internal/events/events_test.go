package events

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/model"
)

type fakeCodebase struct {
	root  string
	files []string
	decls []codemodel.Declaration
	calls []codemodel.CallSite
	refs  map[string][]model.Location
	errs  map[string]error
	diags []codemodel.Diagnostic

	// block makes FindReferences wait for cancellation after signalling started.
	block       bool
	started     chan struct{}
	startedOnce sync.Once
}

func (f *fakeCodebase) Root() string                          { return f.root }
func (f *fakeCodebase) Diagnostics() []codemodel.Diagnostic   { return f.diags }
func (f *fakeCodebase) SourceFiles() []string                 { return f.files }
func (f *fakeCodebase) EventLikeDeclarations(context.Context) ([]codemodel.Declaration, error) {
	return f.decls, nil
}
func (f *fakeCodebase) CallSites(context.Context) ([]codemodel.CallSite, error) {
	return f.calls, nil
}

func (f *fakeCodebase) FindReferences(ctx context.Context, sym model.Symbol) ([]model.Location, error) {
	if f.block {
		f.startedOnce.Do(func() { close(f.started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[sym.ID]; err != nil {
		return nil, err
	}
	if sym.IsCallPattern() {
		var out []model.Location
		for _, call := range f.calls {
			if call.Method != nil && call.Method.Definition == sym.Definition {
				out = append(out, call.Location)
			}
		}
		return out, nil
	}
	return f.refs[sym.ID], nil
}

func loc(file string, start int) model.Location {
	return model.Location{File: file, Span: model.Span{Start: start, End: start + 5}, Line: start / 10, Column: 1}
}

func eventDecl(id, name, file string, start int, native bool, typeName string) codemodel.Declaration {
	decl := loc(file, start)
	return codemodel.Declaration{
		Symbol: model.Symbol{
			ID:          id,
			Name:        name,
			Kind:        model.StructuralEvent,
			Declaration: &decl,
			TypeName:    typeName,
		},
		Native:   native,
		TypeName: typeName,
	}
}

func call(file string, start int, definition string) codemodel.CallSite {
	site := codemodel.CallSite{Location: loc(file, start)}
	if definition != "" {
		site.Method = &codemodel.Method{Definition: definition}
	}
	return site
}

func structuralFixture(root string) *fakeCodebase {
	x := filepath.Join(root, "X.cs")
	y := filepath.Join(root, "Y.cs")
	d := eventDecl("changed", "Demo.Contact.Changed", x, 10, true, "EventHandler")
	return &fakeCodebase{
		root:  root,
		files: []string{x, y},
		decls: []codemodel.Declaration{d},
		refs: map[string][]model.Location{
			"changed": {*d.Symbol.Declaration, loc(x, 50), loc(y, 20), loc(y, 20)},
		},
	}
}

func TestStructuralClassificationAndLinks(t *testing.T) {
	root := t.TempDir()
	cb := structuralFixture(root)
	x := filepath.Join(root, "X.cs")
	y := filepath.Join(root, "Y.cs")

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{})
	require.NoError(t, err)
	require.Len(t, result.Symbols(), 1)

	edges := result.Edges(result.Symbols()[0])
	require.Len(t, edges, 2)
	assert.Equal(t, x, edges[0].Location.File)
	assert.Equal(t, model.Source, edges[0].Classification)
	assert.Equal(t, y, edges[1].Location.File)
	assert.Equal(t, model.Sink, edges[1].Classification)

	docs := DocumentMap(cb)
	tables := LinkTables(result, docs)
	yToken, ok := docs.Token(y)
	require.True(t, ok)
	xToken, ok := docs.Token(x)
	require.True(t, ok)

	require.Len(t, tables[x].Sources, 1)
	assert.Empty(t, tables[x].Sinks)
	assert.Equal(t, "Demo.Contact.Changed --> Y.cs", tables[x].Sources[0].Label)
	assert.Equal(t, yToken, tables[x].Sources[0].Target)

	require.Len(t, tables[y].Sinks, 1)
	assert.Empty(t, tables[y].Sources)
	assert.Equal(t, "Demo.Contact.Changed --> X.cs", tables[y].Sinks[0].Label)
	assert.Equal(t, xToken, tables[y].Sinks[0].Target)
}

func TestEdgesAreDeduplicated(t *testing.T) {
	root := t.TempDir()
	cb := structuralFixture(root)

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{Concurrency: 1})
	require.NoError(t, err)

	for _, sym := range result.Symbols() {
		seen := map[string]bool{}
		for _, edge := range result.Edges(sym) {
			key := edge.Location.Key()
			assert.False(t, seen[key], "duplicate edge %s", key)
			seen[key] = true
		}
	}
}

func TestStructuralDiscoveryMatchesHandlerTypes(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "Address.cs")
	cb := &fakeCodebase{
		root:  root,
		files: []string{file},
		decls: []codemodel.Declaration{
			eventDecl("native", "Demo.Address.Moved", file, 10, true, "Action"),
			eventDecl("generic", "Demo.Address.Changed", file, 20, false, "System.EventHandler<Address>"),
			eventDecl("plain", "Demo.Address.street", file, 30, false, "string"),
			eventDecl("custom", "Demo.Address.PropertyChanged", file, 40, false, "PropertyChangedEventHandler"),
		},
	}

	symbols, err := NewStructuralStrategy().Discover(context.Background(), cb)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "Demo.Address.Moved", symbols[0].Name)
	assert.Equal(t, "Demo.Address.Changed", symbols[1].Name)

	symbols, err = NewStructuralStrategy("System.ComponentModel.PropertyChangedEventHandler").Discover(context.Background(), cb)
	require.NoError(t, err)
	assert.Len(t, symbols, 3)
}

func TestPubSubAggregatesCallSites(t *testing.T) {
	root := t.TempDir()
	program := filepath.Join(root, "Program.cs")
	module := filepath.Join(root, "ModuleBase.cs")
	cb := &fakeCodebase{
		root:  root,
		files: []string{module, program},
		calls: []codemodel.CallSite{
			call(program, 10, codemodel.PublishDefinition),
			call(program, 40, codemodel.PublishDefinition),
			call(module, 10, codemodel.SubscribeDefinition),
			call(module, 90, codemodel.UnsubscribeDefinition),
			call(module, 120, ""),
			call(program, 70, "Prism.Events.IEventAggregator.GetEvent<TEventType>()"),
		},
	}

	result, err := Analyse(context.Background(), cb, NewPubSubStrategy(), Options{Concurrency: 4})
	require.NoError(t, err)

	index := BuildEventIndex(result, DocumentMap(cb))
	kinds := map[model.SymbolKind]int{}
	for _, entry := range index.Entries {
		kinds[entry.Kind]++
		assert.Equal(t, WellKnownLabel, entry.File)
	}
	assert.Equal(t, 1, kinds[model.PublishSite])
	assert.Equal(t, 1, kinds[model.SubscribeSite])

	for _, sym := range result.Symbols() {
		edges := result.Edges(sym)
		switch sym.Kind {
		case model.PublishSite:
			require.Len(t, edges, 2)
			for _, edge := range edges {
				assert.Equal(t, model.Source, edge.Classification)
			}
		case model.SubscribeSite:
			require.Len(t, edges, 1)
			assert.Equal(t, model.Sink, edges[0].Classification)
		case model.UnsubscribeSite:
			require.Len(t, edges, 1)
			assert.Equal(t, model.Unclassified, edges[0].Classification)
		}
	}

	tables := LinkTables(result, DocumentMap(cb))
	require.Len(t, tables[program].Sources, 1)
	assert.Equal(t, codemodel.PublishDefinition+" --> ModuleBase.cs", tables[program].Sources[0].Label)
	require.Len(t, tables[module].Sinks, 1)
	assert.Equal(t, codemodel.SubscribeDefinition+" --> Program.cs", tables[module].Sinks[0].Label)

	file, ok := index.Lookup(codemodel.PublishDefinition)
	require.True(t, ok)
	assert.Equal(t, WellKnownLabel, file)
}

func TestNoSelfLinks(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "Program.cs")
	cb := &fakeCodebase{
		root:  root,
		files: []string{file},
		calls: []codemodel.CallSite{
			call(file, 10, codemodel.PublishDefinition),
			call(file, 40, codemodel.SubscribeDefinition),
		},
	}

	result, err := Analyse(context.Background(), cb, NewPubSubStrategy(), Options{})
	require.NoError(t, err)

	for path, table := range LinkTables(result, DocumentMap(cb)) {
		for _, link := range append(table.Sources, table.Sinks...) {
			assert.NotEqual(t, path, link.File)
		}
	}
}

func TestSourceOnlyEventIsIndexedWithoutLinks(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "Contact.cs")
	d := eventDecl("raised", "Demo.Contact.Raised", file, 10, true, "EventHandler")
	cb := &fakeCodebase{
		root:  root,
		files: []string{file},
		decls: []codemodel.Declaration{d},
		refs:  map[string][]model.Location{"raised": {loc(file, 40), loc(file, 80)}},
	}

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{})
	require.NoError(t, err)

	docs := DocumentMap(cb)
	index := BuildEventIndex(result, docs)
	require.Len(t, index.Entries, 1)
	assert.Equal(t, file, index.Entries[0].File)
	assert.Equal(t, 2, index.Entries[0].Sources)
	assert.Equal(t, []string{"Demo.Contact.Raised"}, AllEventNames(result))

	tables := LinkTables(result, docs)
	require.Contains(t, tables, file)
	assert.Empty(t, tables[file].Sources)
	assert.Empty(t, tables[file].Sinks)
}

func TestUnknownTargetFileHasEmptyToken(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "Contact.cs")
	d := eventDecl("changed", "Demo.Contact.Changed", file, 10, true, "EventHandler")
	cb := &fakeCodebase{
		root:  root,
		files: []string{file},
		decls: []codemodel.Declaration{d},
		refs:  map[string][]model.Location{"changed": {loc(file, 40), loc("", 7)}},
	}

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{})
	require.NoError(t, err)

	tables := LinkTables(result, DocumentMap(cb))
	require.Len(t, tables[file].Sources, 1)
	assert.Equal(t, "", tables[file].Sources[0].Target)
	assert.Equal(t, "Demo.Contact.Changed --> <unknown>", tables[file].Sources[0].Label)
	assert.NotContains(t, tables, "")
}

func TestZeroReferenceSymbolStaysIndexed(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "Contact.cs")
	cb := &fakeCodebase{
		root:  root,
		files: []string{file},
		decls: []codemodel.Declaration{eventDecl("idle", "Demo.Contact.Idle", file, 10, true, "EventHandler")},
	}

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Edges(result.Symbols()[0]))
	assert.Len(t, BuildEventIndex(result, nil).Entries, 1)
}

func TestQueryFailureIsIsolated(t *testing.T) {
	root := t.TempDir()
	cb := structuralFixture(root)
	file := filepath.Join(root, "Z.cs")
	cb.decls = append(cb.decls, eventDecl("broken", "Demo.Z.Broken", file, 10, true, "EventHandler"))
	cb.errs = map[string]error{"broken": errors.New("boom")}
	cb.diags = []codemodel.Diagnostic{{File: "Legacy.csproj", Severity: "warning", Message: "failed to load"}}

	result, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, result.Symbols(), 2)
	assert.Len(t, result.Edges(result.Symbols()[0]), 2)
	assert.Empty(t, result.Edges(result.Symbols()[1]))

	diags := result.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, "Legacy.csproj", diags[0].File)
	assert.Contains(t, diags[1].Message, "Demo.Z.Broken")
}

func TestResultIndependentOfConcurrency(t *testing.T) {
	root := t.TempDir()
	cb := structuralFixture(root)
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		file := filepath.Join(root, id+".cs")
		d := eventDecl(id, "Demo.E."+id, file, 10, true, "EventHandler")
		cb.decls = append(cb.decls, d)
		cb.refs[id] = []model.Location{loc(file, 30), loc(filepath.Join(root, "Y.cs"), 100+i)}
	}

	serial, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{Concurrency: 1})
	require.NoError(t, err)
	parallel, err := Analyse(context.Background(), cb, NewStructuralStrategy(), Options{Concurrency: 8})
	require.NoError(t, err)

	require.Equal(t, serial.Symbols(), parallel.Symbols())
	for _, sym := range serial.Symbols() {
		assert.Equal(t, serial.Edges(sym), parallel.Edges(sym))
	}
}

func TestCancellationReturnsNoResult(t *testing.T) {
	root := t.TempDir()
	cb := structuralFixture(root)
	cb.block = true
	cb.started = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-cb.started
		cancel()
	}()

	result, err := Analyse(ctx, cb, NewStructuralStrategy(), Options{})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Analyse(ctx, structuralFixture(t.TempDir()), NewPubSubStrategy(), Options{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestDocumentIdentityIsInjective(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 200; i++ {
		paths = append(paths, filepath.Join(root, "src", string(rune('a'+i%26)), string(rune('A'+i/26))+".cs"))
	}
	paths = append(paths, paths[0], "")

	first := NewDocumentIdentity(paths)
	second := NewDocumentIdentity(paths)
	assert.Equal(t, 200, first.Len())
	assert.Equal(t, first.Len(), second.Len())

	for _, d := range []*DocumentIdentity{first, second} {
		tokens := map[string]bool{}
		for _, p := range d.Paths() {
			token, ok := d.Token(p)
			require.True(t, ok)
			assert.False(t, tokens[token], "token collision for %s", p)
			assert.Regexp(t, `^[0-9a-f-]+$`, token)
			tokens[token] = true
		}
	}

	_, ok := first.Token(filepath.Join(root, "missing.cs"))
	assert.False(t, ok)
	_, ok = first.Token("")
	assert.False(t, ok)
}
