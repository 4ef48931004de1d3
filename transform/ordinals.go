package transform

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hellblazer/primemover/internal/fnv1a"
)

// maxProbes bounds the open-addressing search before an assignment is
// declared unresolvable (spec §4.4 "unresolvable within a bounded
// number of probes → fatal").
const maxProbes = 1 << 16

// ordinalSpace is the per-entity slot count ordinals are probed within,
// large enough that realistic method counts collide rarely while
// keeping probe sequences short.
const ordinalSpace = 1 << 20

// OrdinalAssigner computes stable ordinals for an entity's event
// methods (spec §4.3 "Ordinal assignment rules"). Each method's ordinal
// depends only on its (method, descriptor) key and not on declaration
// order, except where two keys' probe sequences meet at the same free
// slot: the key assigned first keeps it, and the other probes on. The
// same methods in the same order always produce the same assignment —
// stability across recompiles and separate compilation of cooperating
// entities.
type OrdinalAssigner struct {
	used map[int32]string // ordinal -> "method(descriptor)" already claimed
}

// NewOrdinalAssigner creates an empty assigner, one per entity.
func NewOrdinalAssigner() *OrdinalAssigner {
	return &OrdinalAssigner{used: make(map[int32]string)}
}

// Assign returns the ordinal for (method, paramDescriptors), honoring
// an explicit ordinal if non-nil, else computing a deterministic
// double-hash probe over (method_name, parameter_type_descriptors).
func (a *OrdinalAssigner) Assign(entity, method string, paramDescriptors []string, explicit *int32) (int32, error) {
	key := signatureKey(method, paramDescriptors)

	if explicit != nil {
		if existing, ok := a.used[*explicit]; ok && existing != key {
			return 0, &OrdinalCollisionError{Entity: entity, Method: method, Probes: 0}
		}
		a.used[*explicit] = key
		return *explicit, nil
	}

	h1 := xxhash.Sum64String(key) % ordinalSpace
	// h2 is forced odd by construction (2*x+1): since ordinalSpace is a
	// power of two, an odd step is coprime with it, so the probe
	// sequence (h1 + i*h2) mod ordinalSpace visits every slot before
	// repeating instead of cycling short.
	h2 := 2*(fnv1a.Sum64String(key)%(ordinalSpace/2)) + 1

	for i := 0; i < maxProbes; i++ {
		candidate := int32((h1 + uint64(i)*h2) % ordinalSpace)
		if candidate == 0 {
			continue // 0 is reserved (kernel treats it as "no ordinal")
		}
		if existing, ok := a.used[candidate]; !ok {
			a.used[candidate] = key
			return candidate, nil
		} else if existing == key {
			return candidate, nil // re-assigning the same method is idempotent
		}
	}
	return 0, &OrdinalCollisionError{Entity: entity, Method: method, Probes: maxProbes}
}

// signatureKey canonicalizes a method's identity for hashing (spec
// §4.3 rule 2: "hash over (method_name, parameter_type_descriptors)").
func signatureKey(method string, paramDescriptors []string) string {
	var b strings.Builder
	b.WriteString(method)
	for _, d := range paramDescriptors {
		b.WriteByte('|')
		b.WriteString(d)
	}
	return b.String()
}
