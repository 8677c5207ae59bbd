package events

import (
	"path/filepath"
	"strings"

	"github.com/morozRed/swampmonster/internal/fileutil"
	"github.com/morozRed/swampmonster/internal/model"
)

// WellKnownLabel stands in for the declaration file of call-pattern events,
// which are library method definitions rather than declarations.
const WellKnownLabel = "<well-known>"

const unknownFile = "<unknown>"

// Link is one row of a link table.
type Link struct {
	Label string `json:"label"`
	// Target is the document token of File; empty when File has no document.
	Target string `json:"target"`
	Event  string `json:"event"`
	File   string `json:"file"`
}

// LinkTable lists the events a file raises towards other files and the
// events it receives from other files.
type LinkTable struct {
	Sources []Link `json:"sources"`
	Sinks   []Link `json:"sinks"`
}

// LinkTables derives the per-file link tables, keyed by absolute path. Every
// file touched by a declaration or an edge gets a table, possibly empty. A
// source in F is paired with each distinct other file holding a sink in the
// same link group, and symmetrically for sinks.
func LinkTables(result *Result, docs *DocumentIdentity) map[string]*LinkTable {
	tables := make(map[string]*LinkTable)
	table := func(file string) *LinkTable {
		t, ok := tables[file]
		if !ok {
			t = &LinkTable{Sources: []Link{}, Sinks: []Link{}}
			tables[file] = t
		}
		return t
	}

	var order []string
	groups := make(map[string]*linkGroup)
	for _, sym := range result.Symbols() {
		if sym.Declaration != nil && sym.Declaration.File != "" {
			table(sym.Declaration.File)
		}

		key := result.Strategy.LinkGroup(sym)
		g, ok := groups[key]
		if !ok {
			g = &linkGroup{}
			groups[key] = g
			order = append(order, key)
		}

		name := result.CanonicalName(sym)
		for _, edge := range result.Edges(sym) {
			file := edge.Location.File
			if file != "" {
				table(file)
			}
			switch edge.Classification {
			case model.Source:
				g.sources = appendEnd(g.sources, linkEnd{file: file, event: name})
			case model.Sink:
				g.sinks = appendEnd(g.sinks, linkEnd{file: file, event: name})
			}
		}
	}

	for _, key := range order {
		g := groups[key]
		for _, from := range g.sources {
			if from.file == "" {
				continue
			}
			t := table(from.file)
			for _, to := range distinctFiles(g.sinks) {
				if to == from.file {
					continue
				}
				t.Sources = append(t.Sources, newLink(result.Root, docs, from.event, to))
			}
		}
		for _, at := range g.sinks {
			if at.file == "" {
				continue
			}
			t := table(at.file)
			for _, from := range distinctFiles(g.sources) {
				if from == at.file {
					continue
				}
				t.Sinks = append(t.Sinks, newLink(result.Root, docs, at.event, from))
			}
		}
	}
	return tables
}

type linkEnd struct {
	file  string
	event string
}

type linkGroup struct {
	sources []linkEnd
	sinks   []linkEnd
}

func newLink(root string, docs *DocumentIdentity, event, file string) Link {
	token, _ := docs.Token(file)
	return Link{
		Label:  event + " --> " + DisplayPath(root, file),
		Target: token,
		Event:  event,
		File:   file,
	}
}

// DisplayPath renders file relative to root with forward slashes. Files
// outside root keep their absolute path; an empty path renders as unknown.
func DisplayPath(root, file string) string {
	if file == "" {
		return unknownFile
	}
	if root != "" {
		if rel, err := filepath.Rel(root, file); err == nil && !isOutside(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(file)
}

func isOutside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func appendEnd(dst []linkEnd, end linkEnd) []linkEnd {
	for _, existing := range dst {
		if existing == end {
			return dst
		}
	}
	return append(dst, end)
}

func distinctFiles(ends []linkEnd) []string {
	var out []string
	seen := make(map[string]bool, len(ends))
	for _, end := range ends {
		if seen[end.file] {
			continue
		}
		seen[end.file] = true
		out = append(out, end.file)
	}
	return out
}

// IndexEntry is one row of the global event index.
type IndexEntry struct {
	Name string           `json:"name"`
	Kind model.SymbolKind `json:"kind"`
	// File is the declaration file, or WellKnownLabel for call-pattern events.
	File string `json:"file"`
	// Token is the document token of File, when it has one.
	Token string `json:"token,omitempty"`
	// Sources and Sinks count the classified edges of the event.
	Sources int `json:"sources"`
	Sinks   int `json:"sinks"`
}

// EventIndex is the global navigation table over every discovered event,
// including events that are never wired.
type EventIndex struct {
	Entries []IndexEntry
	byName  map[string]string
}

// Lookup returns the declaration file or label of an event by name.
func (x *EventIndex) Lookup(name string) (string, bool) {
	file, ok := x.byName[name]
	return file, ok
}

// BuildEventIndex lists every symbol of result in discovery order. docs may
// be nil.
func BuildEventIndex(result *Result, docs *DocumentIdentity) *EventIndex {
	index := &EventIndex{byName: make(map[string]string)}
	for _, sym := range result.Symbols() {
		entry := IndexEntry{
			Name: result.CanonicalName(sym),
			Kind: sym.Kind,
			File: WellKnownLabel,
		}
		if !sym.IsCallPattern() {
			entry.File = ""
			if sym.Declaration != nil {
				entry.File = sym.Declaration.File
				entry.Token, _ = docs.Token(entry.File)
			}
		}
		for _, edge := range result.Edges(sym) {
			switch edge.Classification {
			case model.Source:
				entry.Sources++
			case model.Sink:
				entry.Sinks++
			}
		}
		index.Entries = append(index.Entries, entry)
		if _, exists := index.byName[entry.Name]; !exists {
			index.byName[entry.Name] = entry.File
		}
	}
	return index
}

// AllEventNames returns the distinct canonical event names in discovery
// order, for search and autocomplete.
func AllEventNames(result *Result) []string {
	names := make([]string, 0, len(result.Symbols()))
	for _, sym := range result.Symbols() {
		names = append(names, result.CanonicalName(sym))
	}
	return fileutil.DedupeStrings(names)
}
