// Package entity provides the identity and signature-table plumbing
// every transformed entity embeds (spec §4.3, the Entity Proxy
// Contract).
package entity

import "github.com/google/uuid"

// ID identifies an entity instance for the lifetime of a process. It is
// not persisted across runs (spec §6 "Persistent state: none").
type ID string

// NewID allocates a fresh entity identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Base is embedded by every entity type, providing the ID and Name
// parts of kernel.Entity. Dispatch and SignatureFor remain the
// concrete type's responsibility, since they depend on its ordinal
// table.
type Base struct {
	id   ID
	name string
}

// NewBase allocates a Base with a fresh ID and the given name.
func NewBase(name string) Base {
	return Base{id: NewID(), name: name}
}

// ID returns the entity's process-unique identifier.
func (b Base) ID() ID { return b.id }

// Name identifies the entity for logging and diagnostics.
func (b Base) Name() string { return b.name }

// SignatureTable backs an Entity.SignatureFor implementation: ordinal
// to human-readable method signature (spec §4.3 signature_for).
type SignatureTable map[int32]string

// SignatureFor returns the signature for ordinal, or a placeholder if
// ordinal is not in the table.
func (t SignatureTable) SignatureFor(ordinal int32) string {
	if sig, ok := t[ordinal]; ok {
		return sig
	}
	return "<unknown ordinal>"
}
