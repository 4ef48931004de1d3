package transform

import (
	"fmt"
	"go/ast"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// packagesLoadMode is the minimum x/tools/go/packages data the
// discovery pass needs: parsed syntax plus full type information, so
// interface method sets resolve correctly and embedded @Entity parent
// types can be looked up by name (spec §4.4 step 2, "entity_interfaces(E)
// ... or any superclass").
const packagesLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedDeps

// MethodInfo describes one event method discovered on an entity.
type MethodInfo struct {
	Name        string
	Ordinal     int32
	Blocking    bool
	Params      []string // type descriptors, for ordinal hashing
	VoidReturn  bool
	Decl        *ast.FuncDecl
}

// EntityInfo describes one discovered entity type and its event
// methods, already ordinal-assigned.
type EntityInfo struct {
	Name        string
	Pkg         *packages.Package
	Decl        *ast.TypeSpec
	Transformed bool
	AllMethods  bool
	Interfaces  []string
	Methods     []MethodInfo

	// Parent is the @Entity type this entity embeds anonymously, if
	// any — its superclass in the spec's inheritance model (spec §4.4
	// step 2, §9 "collect interface-derived event methods from the
	// full superclass chain").
	Parent *EntityInfo
}

// allInterfaces returns the union of info's own +primemover:entity
// interface list and every ancestor's, walking Parent links. A subtype
// that doesn't redeclare +primemover:entity:SomeInterface still needs
// SomeInterface's methods classified as events when it overrides them,
// which is why classifyMethod consults this instead of info.Interfaces
// directly.
func allInterfaces(info *EntityInfo) []string {
	seen := make(map[string]bool)
	var out []string
	for e := info; e != nil; e = e.Parent {
		for _, iface := range e.Interfaces {
			if !seen[iface] {
				seen[iface] = true
				out = append(out, iface)
			}
		}
	}
	return out
}

// inheritedOrdinal walks parent's own Methods chain looking for a
// method with the same (name, paramDescriptors) signature, so an
// overriding declaration reuses its superclass's ordinal rather than
// computing a fresh hash (spec §9's "reuse parent ordinals for
// overrides" fix for inheritance: the ordinal identifies the dispatch
// slot, not which declaration happens to implement it).
func inheritedOrdinal(parent *EntityInfo, method string, params []string) (int32, bool) {
	key := signatureKey(method, params)
	for p := parent; p != nil; p = p.Parent {
		for _, pm := range p.Methods {
			if signatureKey(pm.Name, pm.Params) == key {
				return pm.Ordinal, true
			}
		}
	}
	return 0, false
}

// Discover scans dir (and its subpackages) for +primemover:entity types
// and returns one EntityInfo per discovered entity, with ordinals
// already assigned (spec §4.4 discovery pipeline, steps 1-4).
func Discover(dir string) ([]*EntityInfo, error) {
	cfg := &packages.Config{Mode: packagesLoadMode, Dir: dir}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("transform: loading packages under %s: %w", dir, err)
	}

	var entities []*EntityInfo
	byName := make(map[string]*EntityInfo)

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				gen, ok := decl.(*ast.GenDecl)
				if !ok || gen.Tok.String() != "type" {
					continue
				}
				for _, spec := range gen.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					doc := gen.Doc
					if ts.Doc != nil {
						doc = ts.Doc
					}
					markers := parseMarkers(doc)
					if !hasMarker(markers, markerEntity) {
						continue
					}
					info := &EntityInfo{
						Name:        ts.Name.Name,
						Pkg:         pkg,
						Decl:        ts,
						Transformed: hasMarker(markers, markerTransformed),
						AllMethods:  hasMarker(markers, markerAllMethodsMark),
						Interfaces:  entityInterfaces(markers),
					}
					entities = append(entities, info)
					byName[ts.Name.Name] = info
				}
			}
		}
	}

	for _, info := range entities {
		for _, name := range embeddedFieldNames(info.Decl) {
			if parent, ok := byName[name]; ok && parent != info {
				info.Parent = parent
				break // single anonymous-embedding superclass per spec's model
			}
		}
	}

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
					continue
				}
				recvName := receiverTypeName(fn.Recv.List[0].Type)
				info, ok := byName[recvName]
				if !ok || info.Transformed {
					continue
				}
				classifyMethod(pkg, info, fn)
			}
		}
	}

	assigned := make(map[*EntityInfo]bool, len(entities))
	var assign func(info *EntityInfo) error
	assign = func(info *EntityInfo) error {
		if assigned[info] {
			return nil
		}
		if info.Parent != nil {
			if err := assign(info.Parent); err != nil {
				return err
			}
		}
		if err := assignOrdinals(info); err != nil {
			return err
		}
		assigned[info] = true
		return nil
	}
	for _, info := range entities {
		if err := assign(info); err != nil {
			return nil, err
		}
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities, nil
}

// embeddedFieldNames returns the type names of ts's anonymous (embedded)
// struct fields, in declaration order.
func embeddedFieldNames(ts *ast.TypeSpec) []string {
	st, ok := ts.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}
	var names []string
	for _, f := range st.Fields.List {
		if len(f.Names) != 0 {
			continue
		}
		if n := embeddedTypeName(f.Type); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func embeddedTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return embeddedTypeName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	default:
		return ""
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}

func classifyMethod(pkg *packages.Package, info *EntityInfo, fn *ast.FuncDecl) {
	markers := parseMarkers(fn.Doc)
	if hasMarker(markers, markerNonEvent) {
		return
	}

	explicit, hasExplicit := explicitOrdinal(markers)
	isMarkedEvent := hasMarker(markers, markerEvent)
	isInterfaceMethod := implementsEntityInterface(pkg, allInterfaces(info), fn.Name.Name)
	isAllMethodsCandidate := info.AllMethods && fn.Name.IsExported()

	if !isMarkedEvent && !isInterfaceMethod && !isAllMethodsCandidate {
		return
	}

	m := MethodInfo{
		Name:       fn.Name.Name,
		Blocking:   hasMarker(markers, markerBlocking),
		Params:     paramDescriptors(pkg, fn),
		VoidReturn: fn.Type.Results == nil || len(fn.Type.Results.List) == 0,
		Decl:       fn,
	}
	if hasExplicit {
		m.Ordinal = explicit
	}
	if !m.Blocking && !m.VoidReturn {
		// spec §4.4 caller rewriting: a non-blocking event method with a
		// non-void return is "effectively blocking", since the caller
		// needs the value back.
		m.Blocking = true
	}
	info.Methods = append(info.Methods, m)
}

// implementsEntityInterface reports whether method is declared on any
// of interfaces (already resolved across the superclass chain via
// allInterfaces), found in pkg's type-checked scope (including imported
// packages).
func implementsEntityInterface(pkg *packages.Package, interfaces []string, method string) bool {
	if len(interfaces) == 0 {
		return false
	}
	for _, ifaceName := range interfaces {
		obj := lookupType(pkg, ifaceName)
		if obj == nil {
			continue
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			continue
		}
		for i := 0; i < iface.NumMethods(); i++ {
			if iface.Method(i).Name() == method {
				return true
			}
		}
	}
	return false
}

func lookupType(pkg *packages.Package, name string) types.Object {
	if pkg.Types == nil {
		return nil
	}
	if obj := pkg.Types.Scope().Lookup(name); obj != nil {
		return obj
	}
	for _, imp := range pkg.Imports {
		if obj := imp.Types.Scope().Lookup(name); obj != nil {
			return obj
		}
	}
	return nil
}

func paramDescriptors(pkg *packages.Package, fn *ast.FuncDecl) []string {
	var out []string
	if fn.Type.Params == nil {
		return out
	}
	for _, field := range fn.Type.Params.List {
		desc := types.ExprString(field.Type)
		if pkg.TypesInfo != nil {
			if tv, ok := pkg.TypesInfo.Types[field.Type]; ok && tv.Type != nil {
				desc = tv.Type.String()
			}
		}
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, desc)
		}
	}
	return out
}

// assignOrdinals assigns ordinals to info's own declared methods. It
// must run after info.Parent's own assignOrdinals has completed (the
// caller in Discover enforces this via parent-first recursion), since
// an overriding method — one that shadows a same-named, same-signature
// method somewhere up the Parent chain — reuses the ancestor's already-
// assigned ordinal instead of hashing a fresh one.
func assignOrdinals(info *EntityInfo) error {
	assigner := NewOrdinalAssigner()
	// Methods with explicit ordinals claim their slots first so
	// hash-derived ordinals never collide with an author's explicit
	// choice (spec §4.3 rule 1 takes priority over rule 2).
	sort.SliceStable(info.Methods, func(i, j int) bool {
		return info.Methods[i].Ordinal != 0 && info.Methods[j].Ordinal == 0
	})
	for i := range info.Methods {
		m := &info.Methods[i]
		var explicit *int32
		if m.Ordinal != 0 {
			explicit = &m.Ordinal
		} else if ord, ok := inheritedOrdinal(info.Parent, m.Name, m.Params); ok {
			v := ord
			explicit = &v
		}
		ord, err := assigner.Assign(info.Name, m.Name, m.Params, explicit)
		if err != nil {
			return err
		}
		m.Ordinal = ord
	}
	return nil
}
