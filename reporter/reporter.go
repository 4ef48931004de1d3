// Package reporter defines the thin, read-only snapshot contract
// consumed by the out-of-scope reporting subsystem (spec §6 "Reporter
// adapter"). The reporting subsystem itself is not implemented; this
// package exists so the coordination primitives have something concrete
// to satisfy.
package reporter

// Snapshot is implemented by anything a reporter can query: name, kind,
// and a point-in-time statistics map whose values are restricted to
// int64, float64, string, or nil (spec §6: "Any ∈ {int, float, string,
// null}").
type Snapshot interface {
	Name() string
	Type() string
	Statistics() map[string]any
}
