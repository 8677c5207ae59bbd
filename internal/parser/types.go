package parser

import "github.com/morozRed/swampmonster/internal/model"

// MemberKind represents the kind of a type member declaration
type MemberKind int

const (
	MemberEvent MemberKind = iota
	MemberField
	MemberProperty
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberEvent:
		return "event"
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberMethod:
		return "method"
	default:
		return "unknown"
	}
}

// ExprKind classifies the receiver expression of a member access or call.
type ExprKind int

const (
	ExprNone ExprKind = iota
	ExprThis
	ExprBase
	ExprIdentifier
	ExprNew
	ExprCall
	ExprOther
)

// Expr is a shallow description of a receiver expression, enough for the
// code model to guess its type.
type Expr struct {
	Kind ExprKind
	Name string    // identifier name or created type name
	Call *CallSite // set when Kind == ExprCall
}

// TypeDecl is a class, struct, interface or record declaration.
type TypeDecl struct {
	Name      string
	Namespace string
	FullName  string   // Namespace.Outer.Name
	Kind      string   // class | struct | interface | record
	Bases     []string // simple base type names, generic arguments stripped
	RawBases  []string // base types as written
	Line      int
}

// MemberDecl is a member of a declared type.
type MemberDecl struct {
	Owner     string // TypeDecl.FullName
	OwnerName string // TypeDecl.Name
	Name      string
	Kind      MemberKind
	TypeName  string // declared type as written
	Span      model.Span
	Line      int
	Column    int
}

// Binding maps a local, parameter, field or property name to its type.
type Binding struct {
	Name     string
	TypeName string    // declared type as written; empty for var
	Init     *CallSite // initializer call, when the initializer is a call
	Scope    string    // enclosing type FullName
}

// Occurrence is an identifier used in expression position.
type Occurrence struct {
	Name      string
	Span      model.Span
	Line      int
	Column    int
	Enclosing string // enclosing type FullName
	// Member is true when the identifier is the name part of a member access.
	Member   bool
	Receiver Expr
}

// CallSite is an invocation expression.
type CallSite struct {
	Method    string
	TypeArgs  []string
	ArgCount  int
	Receiver  Expr
	Enclosing string
	Span      model.Span
	Line      int
	Column    int
	Raw       string
}

// FileModel holds the syntax facts extracted from a single file
type FileModel struct {
	Path        string // relative to the root
	AbsPath     string
	Language    string
	Namespace   string // file-scoped namespace, if declared
	Usings      []string
	Types       []TypeDecl
	Members     []MemberDecl
	Bindings    []Binding
	Occurrences []Occurrence
	Calls       []CallSite
	Hash        string
	Size        int
}

// ParseIssue captures non-fatal parser warnings/errors encountered while scanning files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// ParseResult holds the complete parse result for a codebase
type ParseResult struct {
	Files    []FileModel
	RootPath string
	Issues   []ParseIssue
}
