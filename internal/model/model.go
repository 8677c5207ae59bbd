// Package model holds the data types shared by the code model provider and
// the event cross-reference engine.
package model

import (
	"fmt"
	"path/filepath"
)

// SymbolKind identifies what an event symbol stands for.
type SymbolKind int

const (
	// StructuralEvent is a declared event member, unique per declaration site.
	StructuralEvent SymbolKind = iota
	// PublishSite is the shared publish method definition of a pub/sub library.
	PublishSite
	// SubscribeSite is the shared subscribe method definition of a pub/sub library.
	SubscribeSite
	// UnsubscribeSite is matched for the raw dump only and never linked.
	UnsubscribeSite
)

func (k SymbolKind) String() string {
	switch k {
	case StructuralEvent:
		return "event"
	case PublishSite:
		return "publish"
	case SubscribeSite:
		return "subscribe"
	case UnsubscribeSite:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// Classification tells whether a reference raises or receives an event.
type Classification int

const (
	Unclassified Classification = iota
	Source
	Sink
)

func (c Classification) String() string {
	switch c {
	case Source:
		return "source"
	case Sink:
		return "sink"
	default:
		return "unclassified"
	}
}

// Span is a half-open byte range inside a file.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Location is a place in the analysed source. File is an absolute path and
// may be empty when the owning file is unknown.
type Location struct {
	File   string `json:"file"`
	Span   Span   `json:"span"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Key identifies the physical location; two locations with the same key are
// the same occurrence.
func (l Location) Key() string {
	return fmt.Sprintf("%s#%d-%d", l.File, l.Span.Start, l.Span.End)
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("<unknown>:%d", l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", filepath.ToSlash(l.File), l.Line, l.Column)
}

// Symbol is the analysis-time identity of an event.
type Symbol struct {
	ID string `json:"id"`
	// Name is the fully-qualified display name.
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
	// Member is the simple member name (structural events only).
	Member string `json:"member,omitempty"`
	// Container is the simple name of the declaring type (structural events only).
	Container string `json:"container,omitempty"`
	// TypeName is the declared type of the member, e.g. EventHandler<string>.
	TypeName string `json:"type,omitempty"`
	// Declaration is nil for the call-pattern kinds.
	Declaration *Location `json:"declaration,omitempty"`
	// Definition is the unbound method definition for the call-pattern kinds.
	Definition string `json:"definition,omitempty"`
}

// IsCallPattern reports whether the symbol denotes a shared method definition.
func (s Symbol) IsCallPattern() bool {
	return s.Kind != StructuralEvent
}

// ReferenceEdge is one occurrence of a symbol.
type ReferenceEdge struct {
	Location       Location       `json:"location"`
	Classification Classification `json:"classification"`
}

// DedupeLocations drops repeated physical locations, keeping first-seen order.
func DedupeLocations(locations []Location) []Location {
	if len(locations) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(locations))
	out := make([]Location, 0, len(locations))
	for _, loc := range locations {
		key := loc.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, loc)
	}
	return out
}

func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (k *SymbolKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "event":
		*k = StructuralEvent
	case "publish":
		*k = PublishSite
	case "subscribe":
		*k = SubscribeSite
	case "unsubscribe":
		*k = UnsubscribeSite
	default:
		return fmt.Errorf("unknown symbol kind %q", text)
	}
	return nil
}

func (c *Classification) UnmarshalText(text []byte) error {
	switch string(text) {
	case "source":
		*c = Source
	case "sink":
		*c = Sink
	case "unclassified":
		*c = Unclassified
	default:
		return fmt.Errorf("unknown classification %q", text)
	}
	return nil
}
