package languages

import "github.com/morozRed/swampmonster/internal/parser"

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewCSharpParser())

	return r
}
