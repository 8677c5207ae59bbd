package events

import (
	"context"
	"fmt"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/model"
)

// Strategy discovers events in a codebase and classifies their references.
// The pipeline in Analyse is shared; only these steps differ per model.
type Strategy interface {
	// Name identifies the strategy in reports.
	Name() string
	// Discover returns the event symbols of the codebase, in discovery order.
	Discover(ctx context.Context, cb codemodel.Codebase) ([]model.Symbol, error)
	// Classify decides whether loc raises or receives sym.
	Classify(sym model.Symbol, loc model.Location) model.Classification
	// CanonicalName is the display name used in labels and the index.
	CanonicalName(sym model.Symbol) string
	// LinkGroup names the symbols whose sources and sinks pair up in the
	// link tables.
	LinkGroup(sym model.Symbol) string
}

// DefaultHandlerTypes are the delegate type names whose fields count as events.
var DefaultHandlerTypes = []string{"EventHandler"}

// StructuralStrategy treats declared event members as events.
//
// Classification is positional: a reference in the declaring file is a
// source, anywhere else it is a sink. A subscription written in the declaring
// file is therefore reported as a source. This is a known limitation of the
// model; PubSubStrategy classifies by identity instead.
type StructuralStrategy struct {
	// HandlerTypes lists delegate names (generic arguments and namespace
	// ignored) whose fields are treated like native events.
	HandlerTypes []string
}

// NewStructuralStrategy returns a strategy matching DefaultHandlerTypes plus
// any extra handler type names.
func NewStructuralStrategy(extraHandlerTypes ...string) *StructuralStrategy {
	types := append([]string(nil), DefaultHandlerTypes...)
	for _, t := range extraHandlerTypes {
		if t = model.BaseTypeName(t); t != "" {
			types = append(types, t)
		}
	}
	return &StructuralStrategy{HandlerTypes: types}
}

func (s *StructuralStrategy) Name() string {
	return "structural"
}

func (s *StructuralStrategy) Discover(ctx context.Context, cb codemodel.Codebase) ([]model.Symbol, error) {
	decls, err := cb.EventLikeDeclarations(ctx)
	if err != nil {
		return nil, err
	}

	handlers := make(map[string]bool, len(s.HandlerTypes))
	for _, t := range s.HandlerTypes {
		handlers[model.BaseTypeName(t)] = true
	}

	seen := make(map[string]bool, len(decls))
	symbols := make([]model.Symbol, 0, len(decls))
	for _, decl := range decls {
		if !decl.Native && !handlers[model.BaseTypeName(decl.TypeName)] {
			continue
		}
		if seen[decl.Symbol.ID] {
			continue
		}
		seen[decl.Symbol.ID] = true
		symbols = append(symbols, decl.Symbol)
	}
	return symbols, nil
}

func (s *StructuralStrategy) Classify(sym model.Symbol, loc model.Location) model.Classification {
	if sym.Declaration == nil {
		return model.Unclassified
	}
	if loc.File == sym.Declaration.File {
		return model.Source
	}
	return model.Sink
}

func (s *StructuralStrategy) CanonicalName(sym model.Symbol) string {
	return sym.Name
}

// LinkGroup keeps every declared event on its own.
func (s *StructuralStrategy) LinkGroup(sym model.Symbol) string {
	return sym.ID
}

// PubSubDefinitions are the unbound method definitions that mark a call as
// publish, subscribe or unsubscribe. Matching is exact and case-sensitive.
type PubSubDefinitions struct {
	Publish     string
	Subscribe   string
	Unsubscribe string
}

// PrismDefinitions returns the Prism event aggregator definitions.
func PrismDefinitions() PubSubDefinitions {
	return PubSubDefinitions{
		Publish:     codemodel.PublishDefinition,
		Subscribe:   codemodel.SubscribeDefinition,
		Unsubscribe: codemodel.UnsubscribeDefinition,
	}
}

// PubSubStrategy treats calls into a pub/sub aggregator as events. Every
// publish call is an edge of one shared publish symbol, and likewise for
// subscribe and unsubscribe.
type PubSubStrategy struct {
	Definitions PubSubDefinitions
}

// NewPubSubStrategy returns a strategy using the Prism definitions.
func NewPubSubStrategy() *PubSubStrategy {
	return &PubSubStrategy{Definitions: PrismDefinitions()}
}

func (s *PubSubStrategy) Name() string {
	return "pubsub"
}

func (s *PubSubStrategy) Discover(ctx context.Context, cb codemodel.Codebase) ([]model.Symbol, error) {
	calls, err := cb.CallSites(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[model.SymbolKind]bool, 3)
	var symbols []model.Symbol
	for _, call := range calls {
		if call.Method == nil {
			continue
		}
		kind, ok := s.kindOf(call.Method.Definition)
		if !ok || seen[kind] {
			continue
		}
		seen[kind] = true
		symbols = append(symbols, model.Symbol{
			ID:         fmt.Sprintf("%s|%s", kind, call.Method.Definition),
			Name:       call.Method.Definition,
			Kind:       kind,
			Definition: call.Method.Definition,
		})
	}
	return symbols, nil
}

func (s *PubSubStrategy) kindOf(definition string) (model.SymbolKind, bool) {
	switch definition {
	case "":
		return 0, false
	case s.Definitions.Publish:
		return model.PublishSite, true
	case s.Definitions.Subscribe:
		return model.SubscribeSite, true
	case s.Definitions.Unsubscribe:
		return model.UnsubscribeSite, true
	}
	return 0, false
}

func (s *PubSubStrategy) Classify(sym model.Symbol, _ model.Location) model.Classification {
	switch sym.Kind {
	case model.PublishSite:
		return model.Source
	case model.SubscribeSite:
		return model.Sink
	default:
		return model.Unclassified
	}
}

func (s *PubSubStrategy) CanonicalName(sym model.Symbol) string {
	return sym.Definition
}

// LinkGroup pairs the publish symbol with the subscribe symbol: publishing
// and subscribing are separate definitions, so each alone has only sources
// or only sinks.
func (s *PubSubStrategy) LinkGroup(_ model.Symbol) string {
	return s.Name()
}
