// Package events discovers events in a codebase, collects and classifies
// their references, and derives the cross-file link tables of the report.
package events

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/model"
)

// ErrCancelled is returned by Analyse when the run was aborted.
var ErrCancelled = errors.New("analysis cancelled")

// Options tunes Analyse.
type Options struct {
	// Concurrency caps in-flight reference queries. Zero uses GOMAXPROCS.
	Concurrency int
	// OnSymbol is called after the references of one symbol are collected.
	// It may be called from several goroutines.
	OnSymbol func(sym model.Symbol, edges int)
}

// Result is the classified reference graph of one run. It is read-only once
// Analyse returns.
type Result struct {
	Root     string
	Strategy Strategy

	symbols     []model.Symbol
	edges       map[string][]model.ReferenceEdge
	diagnostics []codemodel.Diagnostic
}

// Symbols returns the discovered symbols in discovery order.
func (r *Result) Symbols() []model.Symbol {
	return r.symbols
}

// Edges returns the deduplicated, classified references of sym.
func (r *Result) Edges(sym model.Symbol) []model.ReferenceEdge {
	return r.edges[sym.ID]
}

// Diagnostics returns provider diagnostics followed by per-symbol query
// failures.
func (r *Result) Diagnostics() []codemodel.Diagnostic {
	return r.diagnostics
}

// CanonicalName is the display name of sym under the run's strategy.
func (r *Result) CanonicalName(sym model.Symbol) string {
	return r.Strategy.CanonicalName(sym)
}

// Files returns every file touched by a declaration or a reference, in
// first-seen order.
func (r *Result) Files() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(file string) {
		if file == "" || seen[file] {
			return
		}
		seen[file] = true
		out = append(out, file)
	}
	for _, sym := range r.symbols {
		if sym.Declaration != nil {
			add(sym.Declaration.File)
		}
		for _, edge := range r.edges[sym.ID] {
			add(edge.Location.File)
		}
	}
	return out
}

type collected struct {
	edges []model.ReferenceEdge
	err   error
}

// Analyse runs discovery, reference collection and classification. The
// result does not depend on the order queries complete in. A failing query
// leaves its symbol without edges and is reported as a diagnostic. When ctx
// is cancelled no result is returned.
func Analyse(ctx context.Context, cb codemodel.Codebase, strategy Strategy, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	symbols, err := strategy.Discover(ctx, cb)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, fmt.Errorf("failed to discover events: %w", err)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]collected, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range symbols {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			sym := symbols[i]
			locations, err := cb.FindReferences(gctx, sym)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i] = collected{err: err}
				return nil
			}
			results[i] = collected{edges: classify(strategy, sym, locations)}
			if opts.OnSymbol != nil {
				opts.OnSymbol(sym, len(results[i].edges))
			}
			return nil
		})
	}
	waitErr := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, cancelled(ctxErr)
	}
	if waitErr != nil {
		return nil, cancelled(waitErr)
	}

	result := &Result{
		Root:     cb.Root(),
		Strategy: strategy,
		symbols:  symbols,
		edges:    make(map[string][]model.ReferenceEdge, len(symbols)),
	}
	result.diagnostics = append(result.diagnostics, cb.Diagnostics()...)
	for i, sym := range symbols {
		if results[i].err != nil {
			file := ""
			if sym.Declaration != nil {
				file = sym.Declaration.File
			}
			result.diagnostics = append(result.diagnostics, codemodel.Diagnostic{
				File:     file,
				Severity: "warning",
				Message:  fmt.Sprintf("failed to find references of %s: %v", strategy.CanonicalName(sym), results[i].err),
			})
			continue
		}
		result.edges[sym.ID] = results[i].edges
	}
	return result, nil
}

// classify dedupes locations, drops the declaration site and classifies the
// rest.
func classify(strategy Strategy, sym model.Symbol, locations []model.Location) []model.ReferenceEdge {
	locations = model.DedupeLocations(locations)
	declKey := ""
	if sym.Declaration != nil {
		declKey = sym.Declaration.Key()
	}

	edges := make([]model.ReferenceEdge, 0, len(locations))
	for _, loc := range locations {
		if declKey != "" && loc.Key() == declKey {
			continue
		}
		edges = append(edges, model.ReferenceEdge{
			Location:       loc,
			Classification: strategy.Classify(sym, loc),
		})
	}
	return edges
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
