package languages

import (
	"context"
	"strings"

	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// CSharpParser implements parsing for C# source files
type CSharpParser struct {
	parser *sitter.Parser
}

// NewCSharpParser creates a new C# parser
func NewCSharpParser() *CSharpParser {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	return &CSharpParser{parser: p}
}

func (c *CSharpParser) Language() string {
	return "csharp"
}

func (c *CSharpParser) Extensions() []string {
	return []string{".cs"}
}

func (c *CSharpParser) Parse(filename string, content []byte) (*parser.FileModel, error) {
	tree, err := c.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileModel{
		Path:     filename,
		Language: "csharp",
	}

	root := tree.RootNode()
	result.Namespace = fileScopedNamespace(root, content)

	w := &csharpWalker{content: content, result: result}
	w.walk(root, scope{namespace: result.Namespace})

	return result, nil
}

type scope struct {
	namespace string
	typeFull  string
	typeName  string
}

func (s scope) qualify(name string) string {
	prefix := s.typeFull
	if prefix == "" {
		prefix = s.namespace
	}
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

type csharpWalker struct {
	content []byte
	result  *parser.FileModel
}

var typeDeclarations = map[string]string{
	"class_declaration":         "class",
	"struct_declaration":        "struct",
	"interface_declaration":     "interface",
	"record_declaration":        "record",
	"record_struct_declaration": "record",
}

func (w *csharpWalker) walk(node *sitter.Node, sc scope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "using_directive":
		w.extractUsing(node)
		return

	case "namespace_declaration":
		name := w.text(node.ChildByFieldName("name"))
		ns := name
		if sc.namespace != "" && name != "" {
			ns = sc.namespace + "." + name
		}
		if body := node.ChildByFieldName("body"); body != nil {
			w.walkChildren(body, scope{namespace: ns})
			return
		}
		w.walkChildren(node, scope{namespace: ns})
		return

	case "class_declaration", "struct_declaration", "interface_declaration", "record_declaration", "record_struct_declaration":
		td, ok := w.extractType(node, sc)
		if !ok {
			break
		}
		w.result.Types = append(w.result.Types, td)
		w.walkChildren(node, scope{namespace: sc.namespace, typeFull: td.FullName, typeName: td.Name})
		return

	case "event_field_declaration":
		w.extractVariableMembers(node, sc, parser.MemberEvent)

	case "field_declaration":
		w.extractVariableMembers(node, sc, parser.MemberField)

	case "event_declaration":
		w.addMember(node.ChildByFieldName("name"), node.ChildByFieldName("type"), sc, parser.MemberEvent)

	case "property_declaration":
		nameNode := node.ChildByFieldName("name")
		typeNode := node.ChildByFieldName("type")
		w.addMember(nameNode, typeNode, sc, parser.MemberProperty)
		w.addBinding(w.text(nameNode), typeText(w.text(typeNode)), nil, sc)

	case "method_declaration":
		w.addMember(node.ChildByFieldName("name"), node.ChildByFieldName("returns"), sc, parser.MemberMethod)

	case "parameter":
		w.addBinding(w.text(node.ChildByFieldName("name")), typeText(w.text(node.ChildByFieldName("type"))), nil, sc)

	case "variable_declaration":
		w.extractBindings(node, sc)

	case "invocation_expression":
		call := w.buildCall(node, sc)
		w.result.Calls = append(w.result.Calls, call)

	case "identifier":
		w.recordOccurrence(node, sc)
		return
	}

	w.walkChildren(node, sc)
}

func (w *csharpWalker) walkChildren(node *sitter.Node, sc scope) {
	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), sc)
	}
}

func (w *csharpWalker) extractUsing(node *sitter.Node) {
	// using Alias = Some.Namespace; records the target, not the alias.
	var name string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "qualified_name", "alias_qualified_name", "generic_name":
			name = w.text(child)
		}
	}
	if name != "" {
		w.result.Usings = append(w.result.Usings, name)
	}
}

func (w *csharpWalker) extractType(node *sitter.Node, sc scope) (parser.TypeDecl, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return parser.TypeDecl{}, false
	}
	name := w.text(nameNode)
	td := parser.TypeDecl{
		Name:      name,
		Namespace: sc.namespace,
		FullName:  sc.qualify(name),
		Kind:      typeDeclarations[node.Type()],
		Line:      int(node.StartPoint().Row) + 1,
	}

	baseList := node.ChildByFieldName("bases")
	if baseList == nil {
		baseList = firstChildOfType(node, "base_list")
	}
	if baseList != nil {
		for i := 0; i < int(baseList.NamedChildCount()); i++ {
			child := baseList.NamedChild(i)
			if child.Type() == "argument_list" {
				continue
			}
			raw := typeText(w.text(child))
			if raw == "" {
				continue
			}
			td.RawBases = append(td.RawBases, raw)
			td.Bases = append(td.Bases, model.BaseTypeName(raw))
		}
	}
	return td, true
}

func (w *csharpWalker) extractVariableMembers(node *sitter.Node, sc scope, kind parser.MemberKind) {
	decl := firstChildOfType(node, "variable_declaration")
	if decl == nil {
		return
	}
	typeNode := decl.ChildByFieldName("type")
	for _, declarator := range childrenOfType(decl, "variable_declarator") {
		w.addMember(declaratorName(declarator), typeNode, sc, kind)
	}
}

func (w *csharpWalker) addMember(nameNode, typeNode *sitter.Node, sc scope, kind parser.MemberKind) {
	if nameNode == nil || sc.typeFull == "" {
		return
	}
	name := w.text(nameNode)
	if name == "" {
		return
	}
	w.result.Members = append(w.result.Members, parser.MemberDecl{
		Owner:     sc.typeFull,
		OwnerName: sc.typeName,
		Name:      name,
		Kind:      kind,
		TypeName:  typeText(w.text(typeNode)),
		Span:      spanOf(nameNode),
		Line:      int(nameNode.StartPoint().Row) + 1,
		Column:    int(nameNode.StartPoint().Column) + 1,
	})
}

func (w *csharpWalker) extractBindings(decl *sitter.Node, sc scope) {
	declaredType := typeText(w.text(decl.ChildByFieldName("type")))
	if declaredType == "var" {
		declaredType = ""
	}
	for _, declarator := range childrenOfType(decl, "variable_declarator") {
		name := w.text(declaratorName(declarator))
		typeName := declaredType
		var init *parser.CallSite

		if value := declaratorValue(declarator); value != nil {
			switch value.Type() {
			case "object_creation_expression":
				if typeName == "" {
					typeName = typeText(w.text(value.ChildByFieldName("type")))
				}
			case "invocation_expression":
				call := w.buildCall(value, sc)
				init = &call
			case "cast_expression":
				if typeName == "" {
					typeName = typeText(w.text(value.ChildByFieldName("type")))
				}
			}
		}
		w.addBinding(name, typeName, init, sc)
	}
}

func (w *csharpWalker) addBinding(name, typeName string, init *parser.CallSite, sc scope) {
	if name == "" || (typeName == "" && init == nil) {
		return
	}
	w.result.Bindings = append(w.result.Bindings, parser.Binding{
		Name:     name,
		TypeName: typeName,
		Init:     init,
		Scope:    sc.typeFull,
	})
}

func (w *csharpWalker) buildCall(node *sitter.Node, sc scope) parser.CallSite {
	call := parser.CallSite{
		Enclosing: sc.typeFull,
		Span:      spanOf(node),
		Line:      int(node.StartPoint().Row) + 1,
		Column:    int(node.StartPoint().Column) + 1,
		Raw:       truncate(strings.Join(strings.Fields(w.text(node)), " "), 160),
	}

	if args := node.ChildByFieldName("arguments"); args != nil {
		call.ArgCount = len(childrenOfType(args, "argument"))
	}

	fn := node.ChildByFieldName("function")
	if fn == nil && node.NamedChildCount() > 0 {
		fn = node.NamedChild(0)
	}
	if fn == nil {
		call.Receiver = parser.Expr{Kind: parser.ExprOther}
		return call
	}

	var nameNode *sitter.Node
	switch fn.Type() {
	case "member_access_expression":
		nameNode = fn.ChildByFieldName("name")
		call.Receiver = w.describe(fn.ChildByFieldName("expression"), sc)
	case "member_binding_expression":
		nameNode = fn.ChildByFieldName("name")
		if nameNode == nil && fn.NamedChildCount() > 0 {
			nameNode = fn.NamedChild(int(fn.NamedChildCount()) - 1)
		}
		call.Receiver = w.describe(conditionalReceiver(fn), sc)
	case "identifier", "generic_name":
		nameNode = fn
	default:
		call.Receiver = parser.Expr{Kind: parser.ExprOther}
		return call
	}
	if nameNode == nil {
		return call
	}

	call.Method, call.TypeArgs = w.simpleName(nameNode)
	call.Span = spanOf(nameNode)
	call.Line = int(nameNode.StartPoint().Row) + 1
	call.Column = int(nameNode.StartPoint().Column) + 1
	return call
}

// simpleName splits Name<A, B> into its identifier and type arguments.
func (w *csharpWalker) simpleName(node *sitter.Node) (string, []string) {
	if node.Type() != "generic_name" {
		return w.text(node), nil
	}
	name := ""
	var typeArgs []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = w.text(child)
			}
		case "type_argument_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				typeArgs = append(typeArgs, typeText(w.text(child.NamedChild(j))))
			}
		}
	}
	return name, typeArgs
}

func (w *csharpWalker) describe(node *sitter.Node, sc scope) parser.Expr {
	if node == nil {
		return parser.Expr{}
	}
	switch node.Type() {
	case "this_expression", "this":
		return parser.Expr{Kind: parser.ExprThis}
	case "base_expression", "base":
		return parser.Expr{Kind: parser.ExprBase}
	case "identifier":
		return parser.Expr{Kind: parser.ExprIdentifier, Name: w.text(node)}
	case "generic_name":
		name, _ := w.simpleName(node)
		return parser.Expr{Kind: parser.ExprIdentifier, Name: name}
	case "object_creation_expression", "cast_expression":
		return parser.Expr{Kind: parser.ExprNew, Name: model.BaseTypeName(typeText(w.text(node.ChildByFieldName("type"))))}
	case "invocation_expression":
		call := w.buildCall(node, sc)
		return parser.Expr{Kind: parser.ExprCall, Call: &call}
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return w.describe(node.NamedChild(0), sc)
		}
	case "member_access_expression":
		// this.field is as good as field
		if inner := node.ChildByFieldName("expression"); inner != nil {
			switch inner.Type() {
			case "this_expression", "this":
				return parser.Expr{Kind: parser.ExprIdentifier, Name: w.text(node.ChildByFieldName("name"))}
			}
		}
	}
	return parser.Expr{Kind: parser.ExprOther, Name: w.text(node)}
}

// skipIdentifierParents are syntax nodes whose direct identifier children
// are names or types, never value usages.
var skipIdentifierParents = map[string]bool{
	"class_declaration":                    true,
	"struct_declaration":                   true,
	"interface_declaration":                true,
	"record_declaration":                   true,
	"record_struct_declaration":            true,
	"enum_declaration":                     true,
	"enum_member_declaration":              true,
	"delegate_declaration":                 true,
	"method_declaration":                   true,
	"constructor_declaration":              true,
	"destructor_declaration":               true,
	"operator_declaration":                 true,
	"property_declaration":                 true,
	"indexer_declaration":                  true,
	"event_declaration":                    true,
	"local_function_statement":             true,
	"parameter":                            true,
	"variable_declarator":                  true,
	"variable_declaration":                 true,
	"namespace_declaration":                true,
	"file_scoped_namespace_declaration":    true,
	"using_directive":                      true,
	"qualified_name":                       true,
	"alias_qualified_name":                 true,
	"generic_name":                         true,
	"type_argument_list":                   true,
	"type_parameter":                       true,
	"type_parameter_list":                  true,
	"type_parameter_constraints_clause":    true,
	"type_constraint":                      true,
	"base_list":                            true,
	"name_equals":                          true,
	"name_colon":                           true,
	"attribute":                            true,
	"nullable_type":                        true,
	"array_type":                           true,
	"pointer_type":                         true,
	"ref_type":                             true,
	"tuple_element":                        true,
	"explicit_interface_specifier":         true,
	"catch_declaration":                    true,
	"labeled_statement":                    true,
	"goto_statement":                       true,
	"object_creation_expression":           true,
	"typeof_expression":                    true,
	"default_expression":                   true,
	"sizeof_expression":                    true,
	"declaration_expression":               true,
	"declaration_pattern":                  true,
	"implicit_parameter":                   true,
	"parameter_list":                       true,
	"extern_alias_directive":               true,
	"primary_constructor_base_type":        true,
	"type_pattern":                         true,
	"recursive_pattern":                    true,
	"conversion_operator_declaration":      true,
	"implicit_object_creation_expression":  true,
}

func (w *csharpWalker) recordOccurrence(node *sitter.Node, sc scope) {
	parent := node.Parent()
	if parent == nil {
		return
	}

	occ := parser.Occurrence{
		Name:      w.text(node),
		Span:      spanOf(node),
		Line:      int(node.StartPoint().Row) + 1,
		Column:    int(node.StartPoint().Column) + 1,
		Enclosing: sc.typeFull,
	}

	switch parent.Type() {
	case "member_access_expression":
		if sameNode(parent.ChildByFieldName("name"), node) {
			occ.Member = true
			occ.Receiver = w.describe(parent.ChildByFieldName("expression"), sc)
		}
	case "member_binding_expression":
		occ.Member = true
		occ.Receiver = w.describe(conditionalReceiver(parent), sc)
	case "cast_expression", "as_expression", "is_expression":
		if sameNode(parent.ChildByFieldName("type"), node) || sameNode(parent.ChildByFieldName("right"), node) {
			return
		}
	case "foreach_statement":
		if !sameNode(parent.ChildByFieldName("right"), node) {
			return
		}
	case "lambda_expression":
		if !sameNode(parent.ChildByFieldName("body"), node) {
			return
		}
	default:
		if skipIdentifierParents[parent.Type()] {
			return
		}
	}

	w.result.Occurrences = append(w.result.Occurrences, occ)
}

func (w *csharpWalker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Content(w.content))
}

func fileScopedNamespace(root *sitter.Node, content []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "file_scoped_namespace_declaration" {
			continue
		}
		if name := child.ChildByFieldName("name"); name != nil {
			return strings.TrimSpace(name.Content(content))
		}
	}
	return ""
}

// conditionalReceiver finds the receiver of a ?. member binding.
func conditionalReceiver(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() != "conditional_access_expression" {
			continue
		}
		if cond := p.ChildByFieldName("condition"); cond != nil {
			return cond
		}
		if p.NamedChildCount() > 0 {
			return p.NamedChild(0)
		}
		return nil
	}
	return nil
}

func declaratorName(declarator *sitter.Node) *sitter.Node {
	if name := declarator.ChildByFieldName("name"); name != nil {
		return name
	}
	return firstChildOfType(declarator, "identifier")
}

func declaratorValue(declarator *sitter.Node) *sitter.Node {
	clause := firstChildOfType(declarator, "equals_value_clause")
	if clause != nil {
		if clause.NamedChildCount() == 0 {
			return nil
		}
		return clause.NamedChild(0)
	}
	// newer grammars inline the initializer after '='
	for i := 0; i < int(declarator.ChildCount()); i++ {
		child := declarator.Child(i)
		if child.Type() == "=" && i+1 < int(declarator.ChildCount()) {
			return declarator.Child(i + 1)
		}
	}
	return nil
}

func firstChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func childrenOfType(node *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nodeType {
			out = append(out, child)
		}
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func spanOf(node *sitter.Node) model.Span {
	return model.Span{Start: int(node.StartByte()), End: int(node.EndByte())}
}

func typeText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
