package transform

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
)

// dispatchTemplate renders the generated per-entity dispatch class (spec
// §4.4 "Output: transformed classes ... plus a generated per-entity
// dispatch class"). It is emitted to its own file rather than spliced
// into the rewritten source, so Rewrite's format-preserving pass never
// has to reason about a second, template-generated declaration living
// in the same syntax tree.
var dispatchTemplate = template.Must(template.New("dispatch").Parse(`// Code generated by pmtransform. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
)

// Dispatch routes an ordinal to {{.Entity}}'s generated implementation
// method, per the Entity Proxy Contract (spec §4.3 dispatch(ordinal,
// args)).
func (e *{{.Entity}}) Dispatch(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
	switch ordinal {
{{- range .Methods}}
	case {{.Ordinal}}: // {{.Name}}
		return e.{{.ImplName}}({{template "callargs" .}})
{{- end}}
	default:
		return nil, &kernel.InvalidOrdinalError{Entity: e.Name(), Ordinal: ordinal}
	}
}

// SignatureFor returns the human-readable signature for ordinal,
// backing diagnostics and the spec's signature_for(ordinal) contract.
func (e *{{.Entity}}) SignatureFor(ordinal int32) string {
	return {{.Entity}}Signatures.SignatureFor(ordinal)
}

var {{.Entity}}Signatures = entity.SignatureTable{
{{- range .Methods}}
	{{.Ordinal}}: "{{.Signature}}",
{{- end}}
}

{{define "callargs"}}ctx{{range $i, $p := .ArgExprs}}, {{$p}}{{end}}{{end}}
`))

// dispatchMethod is the template view of one MethodInfo.
type dispatchMethod struct {
	Name      string
	Ordinal   int32
	ImplName  string
	Signature string
	ArgExprs  []string
}

type dispatchView struct {
	Package string
	Entity  string
	Methods []dispatchMethod
}

// GenerateDispatch renders the generated dispatch file for one entity.
// It assumes the entity embeds entity.Base (for Name()) and has its own
// sched *kernel.Scheduler field (the convention rewriteMethod's proxy
// calls rely on), as every coordination primitive does.
// GenerateDispatch does not check info.Transformed; pmtransform calls it
// only for entities Rewrite actually rewrote, so an already-@Transformed
// entity's existing dispatch file is left as it is.
func GenerateDispatch(info *EntityInfo, packageName string) ([]byte, error) {
	methods := make([]dispatchMethod, 0, len(info.Methods))
	for _, m := range info.Methods {
		methods = append(methods, dispatchMethod{
			Name:      m.Name,
			Ordinal:   m.Ordinal,
			ImplName:  implName(m.Name),
			Signature: signatureKey(m.Name, m.Params),
			ArgExprs:  argNames(m),
		})
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Ordinal < methods[j].Ordinal })

	view := dispatchView{Package: packageName, Entity: info.Name, Methods: methods}
	var buf bytes.Buffer
	if err := dispatchTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("transform: rendering dispatch class for %s: %w", info.Name, err)
	}
	return buf.Bytes(), nil
}

// argNames synthesizes placeholder argument expressions for the
// template's impl call. Since MethodInfo only retains type descriptors
// (discarded parameter names aren't needed for ordinal hashing), the
// generated call indexes into args by position with a type assertion.
func argNames(m MethodInfo) []string {
	out := make([]string, len(m.Params))
	for i, desc := range m.Params {
		out[i] = fmt.Sprintf("args[%d].(%s)", i, desc)
	}
	return out
}
