// Package transform implements the C4 source transformer (spec §4.4):
// it scans Go source for entity markers, assigns stable ordinals, and
// rewrites entity methods and their call sites into the Entity Proxy
// Contract (spec §4.3). Transformed output is stamped idempotent so a
// later pass over the same input is a no-op.
package transform
