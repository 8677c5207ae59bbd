package codemodel

import (
	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/parser"
)

// maxResolveDepth bounds receiver chains and base-type walks.
const maxResolveDepth = 16

// resolveOccurrence returns the type declaring the member an occurrence
// refers to. ok is false when the occurrence is unresolved.
func (w *Workspace) resolveOccurrence(file int, occ parser.Occurrence) (*typeInfo, bool) {
	proj := w.fileProject[file]
	if !occ.Member {
		return w.lookupMember(file, occ.Enclosing, occ.Name)
	}

	switch occ.Receiver.Kind {
	case parser.ExprThis:
		return w.lookupMember(file, occ.Enclosing, occ.Name)
	case parser.ExprBase:
		if info := w.enclosingType(file, occ.Enclosing); info != nil {
			for _, base := range info.bases {
				if owner, ok := w.lookupMemberByName(info.project, base, occ.Name, 0); ok {
					return owner, true
				}
			}
		}
		return nil, false
	case parser.ExprIdentifier, parser.ExprNew, parser.ExprCall:
		if typeName := w.typeOf(file, occ.Receiver, occ.Enclosing, 0); typeName != "" {
			if _, known := w.typesByName[typeName]; known {
				return w.lookupMemberByName(proj, typeName, occ.Name, 0)
			}
			// a type declared outside the codebase cannot own our members
			return nil, false
		}
	}

	return w.uniqueCandidate(occ.Name)
}

// uniqueCandidate resolves a member access on an unknown receiver only when
// exactly one declared type carries a member with the name.
func (w *Workspace) uniqueCandidate(name string) (*typeInfo, bool) {
	refs := w.membersByName[name]
	if len(refs) == 0 {
		return nil, false
	}
	owner := refs[0].owner
	for _, ref := range refs[1:] {
		if ref.owner != owner {
			return nil, false
		}
	}
	return owner, true
}

// enclosingType finds the type with the given full name, preferring the one
// declared in the same project as file.
func (w *Workspace) enclosingType(file int, full string) *typeInfo {
	infos := w.typesByFull[full]
	if len(infos) == 0 {
		return nil
	}
	proj := w.fileProject[file]
	for _, info := range infos {
		if info.project == proj {
			return info
		}
	}
	return infos[0]
}

// typesNamed lists the types with a simple name, restricted to proj when
// that project declares any.
func (w *Workspace) typesNamed(proj, name string) []*typeInfo {
	infos := w.typesByName[name]
	var local []*typeInfo
	for _, info := range infos {
		if info.project == proj {
			local = append(local, info)
		}
	}
	if len(local) > 0 {
		return local
	}
	return infos
}

// lookupMember finds name on the enclosing type of file or its bases.
func (w *Workspace) lookupMember(file int, typeFull, name string) (*typeInfo, bool) {
	info := w.enclosingType(file, typeFull)
	if info == nil {
		return nil, false
	}
	return w.lookupMemberIn(info, name, 0)
}

// lookupMemberByName finds name on a type known by its simple name.
func (w *Workspace) lookupMemberByName(proj, typeName, name string, depth int) (*typeInfo, bool) {
	if depth > maxResolveDepth {
		return nil, false
	}
	for _, info := range w.typesNamed(proj, typeName) {
		if owner, ok := w.lookupMemberIn(info, name, depth); ok {
			return owner, true
		}
	}
	return nil, false
}

func (w *Workspace) lookupMemberIn(info *typeInfo, name string, depth int) (*typeInfo, bool) {
	if _, ok := info.members[name]; ok {
		return info, true
	}
	for _, base := range info.bases {
		if owner, ok := w.lookupMemberByName(info.project, base, name, depth+1); ok {
			return owner, true
		}
	}
	return nil, false
}

// memberType returns the declared type of a member of typeName or its bases.
func (w *Workspace) memberType(proj, typeName, name string, depth int) string {
	if depth > maxResolveDepth {
		return ""
	}
	for _, info := range w.typesNamed(proj, typeName) {
		if member, ok := info.members[name]; ok && member.Kind != parser.MemberMethod {
			return model.BaseTypeName(member.TypeName)
		}
		for _, base := range info.bases {
			if t := w.memberType(info.project, base, name, depth+1); t != "" {
				return t
			}
		}
	}
	return ""
}

// typeOf guesses the simple type name of a receiver expression.
func (w *Workspace) typeOf(file int, expr parser.Expr, enclosing string, depth int) string {
	if depth > maxResolveDepth {
		return ""
	}
	switch expr.Kind {
	case parser.ExprThis:
		if info := w.enclosingType(file, enclosing); info != nil {
			return info.decl.Name
		}
	case parser.ExprBase:
		if info := w.enclosingType(file, enclosing); info != nil && len(info.bases) > 0 {
			return info.bases[0]
		}
	case parser.ExprNew:
		return expr.Name
	case parser.ExprCall:
		if expr.Call == nil {
			return ""
		}
		if method, _ := w.resolveCall(file, *expr.Call, depth+1); method != nil {
			return method.ReturnType
		}
	case parser.ExprIdentifier:
		if b, ok := w.binding(file, expr.Name, enclosing); ok {
			return w.bindingType(file, b, depth+1)
		}
		if info := w.enclosingType(file, enclosing); info != nil {
			if t := w.memberType(info.project, info.decl.Name, expr.Name, 0); t != "" {
				return t
			}
		}
		if _, ok := w.typesByName[expr.Name]; ok {
			return expr.Name
		}
	}
	return ""
}

// binding prefers a declaration from the enclosing type over any other in
// the file. Block scoping is not modelled.
func (w *Workspace) binding(file int, name, enclosing string) (parser.Binding, bool) {
	candidates := w.bindings[file][name]
	if len(candidates) == 0 {
		return parser.Binding{}, false
	}
	for _, b := range candidates {
		if b.Scope == enclosing {
			return b, true
		}
	}
	return candidates[0], true
}

func (w *Workspace) bindingType(file int, b parser.Binding, depth int) string {
	if b.TypeName != "" {
		return model.BaseTypeName(b.TypeName)
	}
	if b.Init != nil {
		if method, _ := w.resolveCall(file, *b.Init, depth); method != nil {
			return method.ReturnType
		}
	}
	return ""
}

// derivesFrom reports whether typeName is target or inherits from it
// through base lists declared in the codebase.
func (w *Workspace) derivesFrom(typeName, target string, depth int) bool {
	if typeName == target {
		return true
	}
	if depth > maxResolveDepth {
		return false
	}
	for _, info := range w.typesByName[typeName] {
		for _, base := range info.bases {
			if w.derivesFrom(base, target, depth+1) {
				return true
			}
		}
	}
	return false
}
