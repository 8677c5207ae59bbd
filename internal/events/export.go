package events

import "github.com/morozRed/swampmonster/internal/model"

// EventRecord is the raw dump of one symbol with every edge, unsubscribe
// sites included.
type EventRecord struct {
	Name   string                `json:"name"`
	Symbol model.Symbol          `json:"symbol"`
	Edges  []model.ReferenceEdge `json:"edges"`
}

// EdgeRecord is one edge flattened for line-oriented exports.
type EdgeRecord struct {
	Event          string               `json:"event"`
	EventID        string               `json:"event_id"`
	Kind           model.SymbolKind     `json:"kind"`
	File           string               `json:"file"`
	Line           int                  `json:"line"`
	Column         int                  `json:"column"`
	Start          int                  `json:"start"`
	End            int                  `json:"end"`
	Classification model.Classification `json:"classification"`
}

// Records dumps result in discovery order.
func Records(result *Result) []EventRecord {
	out := make([]EventRecord, 0, len(result.Symbols()))
	for _, sym := range result.Symbols() {
		edges := result.Edges(sym)
		if edges == nil {
			edges = []model.ReferenceEdge{}
		}
		out = append(out, EventRecord{
			Name:   result.CanonicalName(sym),
			Symbol: sym,
			Edges:  edges,
		})
	}
	return out
}

// EdgeRecords flattens every edge of result, with paths relative to the
// codebase root.
func EdgeRecords(result *Result) []EdgeRecord {
	var out []EdgeRecord
	for _, sym := range result.Symbols() {
		name := result.CanonicalName(sym)
		for _, edge := range result.Edges(sym) {
			out = append(out, EdgeRecord{
				Event:          name,
				EventID:        sym.ID,
				Kind:           sym.Kind,
				File:           DisplayPath(result.Root, edge.Location.File),
				Line:           edge.Location.Line,
				Column:         edge.Location.Column,
				Start:          edge.Location.Span.Start,
				End:            edge.Location.Span.End,
				Classification: edge.Classification,
			})
		}
	}
	return out
}
