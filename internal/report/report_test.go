package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/search"
)

func analyseFixture(t *testing.T, name string, strategy events.Strategy) (codemodel.Codebase, *events.Result) {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "fixtures", "csharp", name))
	require.NoError(t, err)
	ws, err := codemodel.Open(context.Background(), root, codemodel.Options{})
	require.NoError(t, err)
	result, err := events.Analyse(context.Background(), ws, strategy, events.Options{})
	require.NoError(t, err)
	return ws, result
}

func TestWriteStructuralReport(t *testing.T) {
	cb, result := analyseFixture(t, "structural", events.NewStructuralStrategy())
	in := NewInput(cb, result)
	out := t.TempDir()

	summary, err := Write(out, in)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Pages)

	for _, name := range []string{IndexPage, NamesFile, EventsFile, EdgesFile, search.IndexFile, "collapsible.js", "style.css"} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	person := filepath.Join(cb.Root(), "Person.cs")
	token, ok := in.Docs.Token(person)
	require.True(t, ok)
	page, err := os.ReadFile(filepath.Join(out, PageName(token)))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "Person.cs")
	assert.Contains(t, html, "EventHandler&lt;string&gt;")
	assert.Contains(t, html, "Contacts.Person.NameChanged --&gt; Directory.cs")
	assert.Contains(t, html, "collapsible.js")

	directory := filepath.Join(cb.Root(), "Directory.cs")
	dirToken, ok := in.Docs.Token(directory)
	require.True(t, ok)
	assert.Contains(t, html, `href="`+PageName(dirToken)+`"`)

	var names []string
	data, err := os.ReadFile(filepath.Join(out, NamesFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &names))
	assert.Contains(t, names, "Contacts.Address.Changed")
	assert.Contains(t, names, "Contacts.Directory.PersonRemoved")

	index, err := os.ReadFile(filepath.Join(out, IndexPage))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Contacts.Directory.PersonRemoved")
	assert.Contains(t, string(index), "structural analysis")
}

func TestWriteIsIdempotent(t *testing.T) {
	cb, result := analyseFixture(t, "structural", events.NewStructuralStrategy())
	in := NewInput(cb, result)
	out := t.TempDir()

	first, err := Write(out, in)
	require.NoError(t, err)
	assert.NotZero(t, first.FilesWritten)

	second, err := Write(out, in)
	require.NoError(t, err)
	assert.Zero(t, second.FilesWritten)
	assert.Equal(t, first.FilesWritten, second.Unchanged)
}

func TestWritePubSubReportKeepsUnsubscribeInDump(t *testing.T) {
	cb, result := analyseFixture(t, "pubsub", events.NewPubSubStrategy())
	out := t.TempDir()

	_, err := Write(out, NewInput(cb, result))
	require.NoError(t, err)

	var records []events.EventRecord
	data, err := os.ReadFile(filepath.Join(out, EventsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &records))

	names := map[string]int{}
	for _, r := range records {
		names[r.Name] = len(r.Edges)
	}
	assert.Equal(t, 2, names[codemodel.PublishDefinition])
	assert.Equal(t, 1, names[codemodel.SubscribeDefinition])
	assert.Equal(t, 1, names[codemodel.UnsubscribeDefinition])

	edges, err := os.ReadFile(filepath.Join(out, EdgesFile))
	require.NoError(t, err)
	var lines int
	scanner := bufio.NewScanner(bytes.NewReader(edges))
	for scanner.Scan() {
		lines++
		assert.True(t, strings.HasPrefix(scanner.Text(), "{"))
	}
	assert.Equal(t, 4, lines)
	assert.Contains(t, string(edges), `"classification":"unclassified"`)
}

func TestPageForUnreadableFileReportsError(t *testing.T) {
	cb, result := analyseFixture(t, "structural", events.NewStructuralStrategy())
	in := NewInput(cb, result)
	missing := filepath.Join(t.TempDir(), "Gone.cs")
	in.Docs = events.NewDocumentIdentity(append(in.Docs.Paths(), missing))

	data, err := renderPage(in, missing, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "source unavailable")
}
