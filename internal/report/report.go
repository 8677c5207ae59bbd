// Package report renders an analysis as a static HTML site plus the JSON
// datasets used for search and tooling.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/fileutil"
	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/search"
)

const (
	IndexPage     = "index.html"
	NamesFile     = "search.json"
	EventsFile    = "events.json"
	EdgesFile     = "edges.jsonl"
	pageExtension = ".html"
)

//go:embed assets/*
var assets embed.FS

var (
	pageTemplate  = template.Must(template.ParseFS(assets, "assets/page.html.tmpl"))
	indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))
)

var staticAssets = []string{"collapsible.js", "style.css"}

// Input is everything derived from one analysis run.
type Input struct {
	Result *events.Result
	Docs   *events.DocumentIdentity
	Tables map[string]*events.LinkTable
	Index  *events.EventIndex
	Names  []string
}

// NewInput derives the document map, link tables, event index and names of
// result. The document map covers every source file of cb plus any file the
// result touches.
func NewInput(cb codemodel.Codebase, result *events.Result) Input {
	docs := events.NewDocumentIdentity(append(cb.SourceFiles(), result.Files()...))
	return Input{
		Result: result,
		Docs:   docs,
		Tables: events.LinkTables(result, docs),
		Index:  events.BuildEventIndex(result, docs),
		Names:  events.AllEventNames(result),
	}
}

// Summary counts what Write produced.
type Summary struct {
	OutputDir    string `json:"output_dir"`
	Pages        int    `json:"pages"`
	FilesWritten int    `json:"files_written"`
	Unchanged    int    `json:"unchanged"`
}

// PageName is the report file name of a document token.
func PageName(token string) string {
	return token + pageExtension
}

// Write renders the whole report into outDir. Files whose content did not
// change are left untouched.
func Write(outDir string, in Input) (*Summary, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := &Summary{OutputDir: outDir}
	write := func(name string, data []byte) error {
		changed, err := fileutil.WriteIfChangedTracked(filepath.Join(outDir, name), data)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if changed {
			summary.FilesWritten++
		} else {
			summary.Unchanged++
		}
		return nil
	}

	for _, name := range staticAssets {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %s: %w", name, err)
		}
		if err := write(name, data); err != nil {
			return nil, err
		}
	}

	marks := lineMarks(in.Result)
	for _, path := range in.Docs.Paths() {
		token, _ := in.Docs.Token(path)
		data, err := renderPage(in, path, marks[path])
		if err != nil {
			return nil, err
		}
		if err := write(PageName(token), data); err != nil {
			return nil, err
		}
		summary.Pages++
	}

	indexData, err := renderIndex(in)
	if err != nil {
		return nil, err
	}
	if err := write(IndexPage, indexData); err != nil {
		return nil, err
	}

	names, err := json.MarshalIndent(in.Names, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode event names: %w", err)
	}
	if err := write(NamesFile, append(names, '\n')); err != nil {
		return nil, err
	}

	dump, err := json.MarshalIndent(events.Records(in.Result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}
	if err := write(EventsFile, append(dump, '\n')); err != nil {
		return nil, err
	}

	edges, err := fileutil.EncodeJSONL(events.EdgeRecords(in.Result))
	if err != nil {
		return nil, fmt.Errorf("failed to encode edges: %w", err)
	}
	if err := write(EdgesFile, edges); err != nil {
		return nil, err
	}

	searchIndex, err := search.Encode(search.Build(in.Result, in.Docs))
	if err != nil {
		return nil, err
	}
	if err := write(search.IndexFile, searchIndex); err != nil {
		return nil, err
	}

	return summary, nil
}

type linkView struct {
	Label string
	Href  string
}

type lineView struct {
	Number int
	Text   string
	Class  string
}

type pageView struct {
	Title   string
	Error   string
	Sources []linkView
	Sinks   []linkView
	Lines   []lineView
}

func renderPage(in Input, path string, marks map[int]model.Classification) ([]byte, error) {
	view := pageView{
		Title:   events.DisplayPath(in.Result.Root, path),
		Sources: []linkView{},
		Sinks:   []linkView{},
	}
	if table, ok := in.Tables[path]; ok {
		view.Sources = linkViews(table.Sources)
		view.Sinks = linkViews(table.Sinks)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		view.Error = fmt.Sprintf("source unavailable: %v", err)
	}
	for i, line := range splitLines(string(content)) {
		number := i + 1
		view.Lines = append(view.Lines, lineView{
			Number: number,
			Text:   strings.ReplaceAll(line, "\t", "    "),
			Class:  markClass(marks, number),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render page for %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func linkViews(links []events.Link) []linkView {
	out := make([]linkView, 0, len(links))
	for _, link := range links {
		view := linkView{Label: link.Label}
		if link.Target != "" {
			view.Href = PageName(link.Target)
		}
		out = append(out, view)
	}
	return out
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// bothMark flags a line holding a source and a sink.
const bothMark = model.Classification(-1)

// lineMarks maps file to line to the classification of edges on that line.
func lineMarks(result *events.Result) map[string]map[int]model.Classification {
	marks := make(map[string]map[int]model.Classification)
	for _, sym := range result.Symbols() {
		for _, edge := range result.Edges(sym) {
			if edge.Classification == model.Unclassified || edge.Location.File == "" {
				continue
			}
			lines, ok := marks[edge.Location.File]
			if !ok {
				lines = make(map[int]model.Classification)
				marks[edge.Location.File] = lines
			}
			prev, seen := lines[edge.Location.Line]
			if seen && prev != edge.Classification {
				lines[edge.Location.Line] = bothMark
				continue
			}
			lines[edge.Location.Line] = edge.Classification
		}
	}
	return marks
}

func markClass(marks map[int]model.Classification, line int) string {
	c, ok := marks[line]
	if !ok {
		return ""
	}
	switch c {
	case model.Source:
		return "source-site"
	case model.Sink:
		return "sink-site"
	default:
		return "both-site"
	}
}

type eventView struct {
	Name    string
	Kind    string
	File    string
	Href    string
	Sources int
	Sinks   int
}

type fileView struct {
	Path    string
	Href    string
	Sources int
	Sinks   int
}

type indexView struct {
	Title       string
	Strategy    string
	Events      []eventView
	Files       []fileView
	Names       []string
	Diagnostics []codemodel.Diagnostic
}

func renderIndex(in Input) ([]byte, error) {
	view := indexView{
		Title:       filepath.Base(in.Result.Root),
		Strategy:    in.Result.Strategy.Name(),
		Names:       in.Names,
		Diagnostics: in.Result.Diagnostics(),
	}

	for _, entry := range in.Index.Entries {
		ev := eventView{
			Name:    entry.Name,
			Kind:    entry.Kind.String(),
			File:    entry.File,
			Sources: entry.Sources,
			Sinks:   entry.Sinks,
		}
		if entry.File != events.WellKnownLabel {
			ev.File = events.DisplayPath(in.Result.Root, entry.File)
		}
		if entry.Token != "" {
			ev.Href = PageName(entry.Token)
		}
		view.Events = append(view.Events, ev)
	}

	for _, path := range in.Docs.Paths() {
		token, _ := in.Docs.Token(path)
		fv := fileView{Path: events.DisplayPath(in.Result.Root, path), Href: PageName(token)}
		if table, ok := in.Tables[path]; ok {
			fv.Sources = len(table.Sources)
			fv.Sinks = len(table.Sinks)
		}
		view.Files = append(view.Files, fv)
	}
	sort.Slice(view.Files, func(i, j int) bool {
		return view.Files[i].Path < view.Files[j].Path
	})

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render index: %w", err)
	}
	return buf.Bytes(), nil
}
