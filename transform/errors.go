package transform

import "fmt"

// StructuralError reports a missing superclass or interface on the scan
// path (spec §4.4 "Failure model for the transformer").
type StructuralError struct {
	Entity string
	Symbol string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("transform: entity %s references missing symbol %s", e.Entity, e.Symbol)
}

// OrdinalCollisionError reports a probe sequence that exhausted its
// bound without finding a free slot — a hash implementation bug, per
// spec §4.4: "fatal (indicates a hash implementation bug); report the
// offending entity."
type OrdinalCollisionError struct {
	Entity string
	Method string
	Probes int
}

func (e *OrdinalCollisionError) Error() string {
	return fmt.Sprintf("transform: ordinal assignment for %s.%s did not converge after %d probes", e.Entity, e.Method, e.Probes)
}
