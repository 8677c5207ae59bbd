// Package codemodel loads a codebase and answers the symbol queries the event
// engine needs: declared event-like members, resolved call sites, and every
// location referencing a symbol.
package codemodel

import (
	"context"
	"errors"

	"github.com/morozRed/swampmonster/internal/model"
)

// ErrNotFound is returned when the codebase root does not exist.
var ErrNotFound = errors.New("codebase not found")

// Codebase is the capability set consumed by the event engine. Any provider
// able to answer these queries can stand in for the tree-sitter Workspace.
type Codebase interface {
	// Root is the absolute directory the codebase was loaded from.
	Root() string
	// Diagnostics lists non-fatal load problems.
	Diagnostics() []Diagnostic
	// SourceFiles returns the absolute path of every loaded file.
	SourceFiles() []string
	// EventLikeDeclarations returns native events and fields of every
	// declared type, each as a distinct symbol at its declaration site.
	EventLikeDeclarations(ctx context.Context) ([]Declaration, error)
	// CallSites returns every call expression with its resolved target,
	// or a nil Method when the target cannot be resolved.
	CallSites(ctx context.Context) ([]CallSite, error)
	// FindReferences returns every location referencing sym across the
	// codebase, including its declaration site when it has one.
	FindReferences(ctx context.Context, sym model.Symbol) ([]model.Location, error)
}

// Declaration is an event-like member declaration.
type Declaration struct {
	Symbol model.Symbol
	// Native is true for members declared with the event keyword.
	Native bool
	// TypeName is the declared member type as written.
	TypeName string
}

// Method is a resolved call target.
type Method struct {
	Name string
	// Definition is the unbound generic definition, e.g.
	// "Prism.Events.PubSubEvent<TPayload>.Publish(TPayload)".
	Definition string
	// ReturnType is the simple name of the returned type, when known.
	ReturnType string
	// TypeArgument is the first type argument at the call, if any.
	TypeArgument string
}

// CallSite is one call expression.
type CallSite struct {
	Location model.Location
	Raw      string
	// Method is nil when the call target could not be resolved.
	Method *Method
}

// Diagnostic is a non-fatal problem reported while loading.
type Diagnostic struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
