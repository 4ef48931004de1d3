package transform

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"

	"github.com/hellblazer/primemover/kernel"
	"github.com/sirkon/dst"
	"github.com/sirkon/dst/decorator"
	"github.com/sirkon/dst/dstutil"
)

// ctxParamName is the identifier the rewrite inserts as every rewritten
// method's leading parameter. Go has no implicit per-goroutine call
// stack to recover a DispatchContext from the way a JVM-level transform
// can reach into the current thread's frame, so the idiomatic
// Go rendition threads it explicitly — the same tradeoff
// context.Context makes everywhere else in the ecosystem.
const ctxParamName = "ctx"

// Rewrite applies the C4 body rewrite to a single entity's source file,
// returning the rewritten file's bytes; writing them back is the
// caller's job. It is format-
// preserving: dst's decorated syntax tree keeps comments and spacing
// outside the touched declarations exactly as written (spec §4.4 step
// 5, §8 property 5 idempotence). Step 6, rewriting every other call
// site for the signature change, is RewriteCallers' job, not this
// function's — Rewrite only ever touches one entity's own declarations.
//
// Already-@Transformed entities are skipped: Rewrite returns nil bytes
// and a nil error, and logs the skip via LogTransformSkipped (spec §4.4
// idempotence gate).
func Rewrite(info *EntityInfo) ([]byte, error) {
	if info.Transformed {
		kernel.LogTransformSkipped(info.Name)
		return nil, nil
	}

	filename := info.Pkg.Fset.Position(info.Decl.Pos()).Filename
	fset := token.NewFileSet()
	dec := decorator.NewDecorator(fset)
	file, err := dec.ParseFile(filename, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("transform: reparsing %s: %w", filename, err)
	}

	methodsByName := make(map[string]*MethodInfo, len(info.Methods))
	for i := range info.Methods {
		methodsByName[info.Methods[i].Name] = &info.Methods[i]
	}

	var impls []*dst.FuncDecl
	dstutil.Apply(file, func(c *dstutil.Cursor) bool {
		fn, ok := c.Node().(*dst.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			return true
		}
		if receiverDstTypeName(fn.Recv.List[0].Type) != info.Name {
			return true
		}
		m, ok := methodsByName[fn.Name.Name]
		if !ok {
			return true
		}
		impls = append(impls, rewriteMethod(fn, m))
		return true
	}, nil)

	for _, impl := range impls {
		file.Decls = append(file.Decls, impl)
	}

	stampTransformed(file, info)

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, file); err != nil {
		return nil, fmt.Errorf("transform: printing rewritten %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}

func receiverDstTypeName(expr dst.Expr) string {
	switch t := expr.(type) {
	case *dst.StarExpr:
		return receiverDstTypeName(t.X)
	case *dst.Ident:
		return t.Name
	case *dst.IndexExpr:
		return receiverDstTypeName(t.X)
	default:
		return ""
	}
}

// implName is the unexported name the original method body is moved
// to; the Dispatch switch calls it directly, and the public method
// becomes a thin proxy that posts an event instead.
func implName(method string) string {
	return "dispatch" + method
}

// rewriteMethod moves fn's original body onto a sibling impl method and
// replaces fn's own body with a post through the proxy (spec §4.3
// "Public methods ... no longer execute their original body directly").
// Both the public proxy and the impl method gain the leading ctx
// parameter: the impl is what Dispatch's generated switch actually
// calls, and its moved-over body needs ctx in scope for any further
// blocking or entity call it makes. Caller rewriting (spec §4.4 step 6,
// fixing up every other call site now that the public signature grew a
// leading ctx parameter) is a separate pass — see RewriteCallers.
func rewriteMethod(fn *dst.FuncDecl, m *MethodInfo) *dst.FuncDecl {
	implFn := dst.Clone(fn).(*dst.FuncDecl)
	implFn.Name = dst.NewIdent(implName(fn.Name.Name))
	prependCtxParam(implFn)

	fn.Body = &dst.BlockStmt{
		List: []dst.Stmt{proxyCallStmt(fn, m)},
	}
	prependCtxParam(fn)
	return implFn
}

func prependCtxParam(fn *dst.FuncDecl) {
	ctxField := &dst.Field{
		Names: []*dst.Ident{dst.NewIdent(ctxParamName)},
		Type:  &dst.SelectorExpr{X: dst.NewIdent("kernel"), Sel: dst.NewIdent("DispatchContext")},
	}
	fn.Type.Params.List = append([]*dst.Field{ctxField}, fn.Type.Params.List...)
}

// proxyCallStmt builds the body of the rewritten public method: a post
// or suspend_and_post through the receiver's own Dispatch ordinal,
// rather than a direct call to the now-renamed implementation.
//
// The non-blocking path calls recv.sched.PostFrom, which assumes every
// entity struct carries an unexported *kernel.Scheduler field named
// "sched" — the convention every coordination primitive (Channel,
// Signal, ...) already follows; entity.Base does not provide it.
// Discover's +primemover:entity scan does not enforce this
// structurally: a type missing the field is still rewritten, and the
// generated output then fails to compile rather than being skipped.
func proxyCallStmt(fn *dst.FuncDecl, m *MethodInfo) dst.Stmt {
	recvName := fn.Recv.List[0].Names[0].Name
	argsSlice := argsSliceExpr(fn)

	call := &dst.CallExpr{
		Fun: &dst.SelectorExpr{X: dst.NewIdent("kernel"), Sel: dst.NewIdent("SuspendAndPost")},
		Args: []dst.Expr{
			dst.NewIdent(ctxParamName),
			dst.NewIdent(recvName),
			&dst.BasicLit{Kind: token.INT, Value: fmt.Sprintf("%d", m.Ordinal)},
			argsSlice,
		},
	}
	if m.Blocking {
		if m.VoidReturn {
			return &dst.ExprStmt{X: call}
		}
		return &dst.ReturnStmt{Results: []dst.Expr{call}}
	}
	postCall := &dst.CallExpr{
		Fun: &dst.SelectorExpr{
			X:   &dst.SelectorExpr{X: dst.NewIdent(recvName), Sel: dst.NewIdent("sched")},
			Sel: dst.NewIdent("PostFrom"),
		},
		Args: []dst.Expr{
			dst.NewIdent(ctxParamName),
			dst.NewIdent(recvName),
			&dst.BasicLit{Kind: token.INT, Value: fmt.Sprintf("%d", m.Ordinal)},
			argsSlice,
		},
	}
	return &dst.ExprStmt{X: postCall}
}

func argsSliceExpr(fn *dst.FuncDecl) dst.Expr {
	var elems []dst.Expr
	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			for _, name := range field.Names {
				elems = append(elems, dst.NewIdent(name.Name))
			}
		}
	}
	return &dst.CompositeLit{
		Type: &dst.ArrayType{Elt: dst.NewIdent("any")},
		Elts: elems,
	}
}

// stampTransformed adds the "+primemover:transformed" idempotence
// marker to the entity's doc comment (spec §4.4 step 7).
func stampTransformed(file *dst.File, info *EntityInfo) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*dst.GenDecl)
		if !ok || gen.Tok.String() != "type" {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*dst.TypeSpec)
			if !ok || ts.Name.Name != info.Name {
				continue
			}
			stamp := "// +primemover:transformed"
			gen.Decs.Start.Append(stamp)
		}
	}
}
