package codemodel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/morozRed/swampmonster/internal/languages"
	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/parser"
)

const defaultCacheSize = 4096

// Options configures Open.
type Options struct {
	// IgnoreRules are gitignore-style lines applied on top of the defaults.
	IgnoreRules []string
	// Progress is called after each parsed file.
	Progress parser.ProgressFunc
	// Registry overrides the default language registry.
	Registry *parser.Registry
	// CacheSize bounds the per-name occurrence cache.
	CacheSize int
}

// Workspace is a Codebase backed by tree-sitter syntax facts. Names are
// resolved heuristically from declarations, bindings and base lists found in
// the loaded files.
type Workspace struct {
	root        string
	files       []parser.FileModel
	diagnostics []Diagnostic

	// types are keyed by project and full name; same-named types in
	// different projects stay distinct.
	typesByKey    map[string]*typeInfo
	typesByName   map[string][]*typeInfo
	typesByFull   map[string][]*typeInfo
	membersByName map[string][]memberRef
	fileProject   []string
	declOwners    map[string]*typeInfo
	bindings      []map[string][]parser.Binding
	eventTypes    map[string]bool

	candidates *lru.Cache[string, []candidate]

	callsOnce sync.Once
	calls     []CallSite
}

type typeInfo struct {
	project string
	decl    parser.TypeDecl
	bases   []string
	members map[string]parser.MemberDecl
	file    int
}

type memberRef struct {
	owner  *typeInfo
	member parser.MemberDecl
	file   int
}

type candidate struct {
	file int
	occ  int
}

// Open loads the codebase rooted at path. A file path selects its directory,
// so a solution or project file can be passed directly.
func Open(ctx context.Context, path string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return nil, fmt.Errorf("failed to access path %q: %w", abs, err)
	}
	root := abs
	if !info.IsDir() {
		root = filepath.Dir(abs)
	}

	registry := opts.Registry
	if registry == nil {
		registry = languages.NewDefaultRegistry()
	}

	result, err := registry.ParseDirectory(ctx, root, opts.IgnoreRules, opts.Progress)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to parse source files: %w", err)
	}

	return FromParseResult(result, opts.CacheSize)
}

// FromParseResult builds a workspace from already extracted syntax facts.
func FromParseResult(result *parser.ParseResult, cacheSize int) (*Workspace, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []candidate](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference cache: %w", err)
	}

	w := &Workspace{
		root:          result.RootPath,
		files:         make([]parser.FileModel, len(result.Files)),
		typesByKey:    make(map[string]*typeInfo),
		typesByName:   make(map[string][]*typeInfo),
		typesByFull:   make(map[string][]*typeInfo),
		membersByName: make(map[string][]memberRef),
		declOwners:    make(map[string]*typeInfo),
		bindings:      make([]map[string][]parser.Binding, len(result.Files)),
		eventTypes:    make(map[string]bool),
		candidates:    cache,
	}
	copy(w.files, result.Files)

	for _, issue := range result.Issues {
		w.diagnostics = append(w.diagnostics, Diagnostic(issue))
	}
	if len(w.files) == 0 {
		w.diagnostics = append(w.diagnostics, Diagnostic{
			File:     w.root,
			Severity: "warning",
			Message:  "no source files found",
		})
	}

	w.index()
	return w, nil
}

func (w *Workspace) index() {
	paths := make([]string, len(w.files))
	for i := range w.files {
		paths[i] = w.files[i].Path
	}
	w.fileProject = projectsOf(w.root, paths)

	for i := range w.files {
		file := &w.files[i]
		if file.AbsPath == "" {
			file.AbsPath = filepath.Join(w.root, filepath.FromSlash(file.Path))
		}

		for _, td := range file.Types {
			key := typeKey(w.fileProject[i], td.FullName)
			info, ok := w.typesByKey[key]
			if !ok {
				info = &typeInfo{project: w.fileProject[i], decl: td, members: make(map[string]parser.MemberDecl), file: i}
				w.typesByKey[key] = info
				w.typesByFull[td.FullName] = append(w.typesByFull[td.FullName], info)
				w.typesByName[td.Name] = append(w.typesByName[td.Name], info)
			}
			// partial declarations contribute their base lists
			info.bases = appendUnique(info.bases, td.Bases...)
		}

		w.bindings[i] = make(map[string][]parser.Binding)
		for _, b := range file.Bindings {
			w.bindings[i][b.Name] = append(w.bindings[i][b.Name], b)
		}

		for _, call := range file.Calls {
			if call.Method == "GetEvent" && len(call.TypeArgs) == 1 && call.ArgCount == 0 {
				w.eventTypes[model.BaseTypeName(call.TypeArgs[0])] = true
			}
		}
	}

	for i := range w.files {
		for _, member := range w.files[i].Members {
			owner, ok := w.typesByKey[typeKey(w.fileProject[i], member.Owner)]
			if !ok {
				continue
			}
			w.declOwners[parser.StableMemberID(w.files[i].Path, member)] = owner
			if _, exists := owner.members[member.Name]; !exists {
				owner.members[member.Name] = member
			}
			w.membersByName[member.Name] = append(w.membersByName[member.Name], memberRef{owner: owner, member: member, file: i})
		}
	}
}

// Root implements Codebase.
func (w *Workspace) Root() string {
	return w.root
}

// Diagnostics implements Codebase.
func (w *Workspace) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), w.diagnostics...)
}

// SourceFiles implements Codebase.
func (w *Workspace) SourceFiles() []string {
	out := make([]string, 0, len(w.files))
	for _, file := range w.files {
		out = append(out, file.AbsPath)
	}
	sort.Strings(out)
	return out
}

// Files exposes the parsed syntax facts, ordered by relative path.
func (w *Workspace) Files() []parser.FileModel {
	return w.files
}

// EventLikeDeclarations implements Codebase.
func (w *Workspace) EventLikeDeclarations(ctx context.Context) ([]Declaration, error) {
	var out []Declaration
	for i := range w.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := &w.files[i]
		for _, member := range file.Members {
			if member.Kind != parser.MemberEvent && member.Kind != parser.MemberField {
				continue
			}
			out = append(out, Declaration{
				Symbol:   w.memberSymbol(file, member),
				Native:   member.Kind == parser.MemberEvent,
				TypeName: member.TypeName,
			})
		}
	}
	return out, nil
}

func (w *Workspace) memberSymbol(file *parser.FileModel, member parser.MemberDecl) model.Symbol {
	decl := model.Location{
		File:   file.AbsPath,
		Span:   member.Span,
		Line:   member.Line,
		Column: member.Column,
	}
	return model.Symbol{
		ID:          parser.StableMemberID(file.Path, member),
		Name:        member.Owner + "." + member.Name,
		Kind:        model.StructuralEvent,
		Member:      member.Name,
		Container:   member.OwnerName,
		TypeName:    member.TypeName,
		Declaration: &decl,
	}
}

// CallSites implements Codebase.
func (w *Workspace) CallSites(ctx context.Context) ([]CallSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.callsOnce.Do(w.resolveCalls)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]CallSite(nil), w.calls...), nil
}

func (w *Workspace) resolveCalls() {
	for i := range w.files {
		file := &w.files[i]
		for _, call := range file.Calls {
			site := CallSite{
				Location: model.Location{
					File:   file.AbsPath,
					Span:   call.Span,
					Line:   call.Line,
					Column: call.Column,
				},
				Raw: call.Raw,
			}
			if method, _ := w.resolveCall(i, call, 0); method != nil {
				site.Method = method
			}
			w.calls = append(w.calls, site)
		}
	}
}

// FindReferences implements Codebase.
func (w *Workspace) FindReferences(ctx context.Context, sym model.Symbol) ([]model.Location, error) {
	if sym.IsCallPattern() {
		calls, err := w.CallSites(ctx)
		if err != nil {
			return nil, err
		}
		var out []model.Location
		for _, call := range calls {
			if call.Method != nil && call.Method.Definition == sym.Definition {
				out = append(out, call.Location)
			}
		}
		return out, nil
	}

	var out []model.Location
	if sym.Declaration != nil {
		out = append(out, *sym.Declaration)
	}
	declOwner := w.declOwners[sym.ID]
	for _, c := range w.candidatesFor(sym.Member) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := &w.files[c.file]
		occ := file.Occurrences[c.occ]
		owner, ok := w.resolveOccurrence(c.file, occ)
		if !ok {
			continue
		}
		if declOwner != nil {
			if owner != declOwner {
				continue
			}
		} else if owner.decl.FullName+"."+occ.Name != sym.Name {
			continue
		}
		out = append(out, model.Location{
			File:   file.AbsPath,
			Span:   occ.Span,
			Line:   occ.Line,
			Column: occ.Column,
		})
	}
	return out, nil
}

// candidatesFor lists every occurrence spelled name, across all files.
func (w *Workspace) candidatesFor(name string) []candidate {
	if cached, ok := w.candidates.Get(name); ok {
		return cached
	}
	var out []candidate
	for i := range w.files {
		for j, occ := range w.files[i].Occurrences {
			if occ.Name == name {
				out = append(out, candidate{file: i, occ: j})
			}
		}
	}
	w.candidates.Add(name, out)
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, value := range values {
		found := false
		for _, existing := range dst {
			if existing == value {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, value)
		}
	}
	return dst
}
