package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hellblazer/primemover/entity"
)

func TestNewBaseAssignsDistinctIDs(t *testing.T) {
	a := entity.NewBase("a")
	b := entity.NewBase("b")
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "a", a.Name())
}

func TestSignatureTableFallsBackToPlaceholder(t *testing.T) {
	table := entity.SignatureTable{1: "put(value any) error"}
	assert.Equal(t, "put(value any) error", table.SignatureFor(1))
	assert.Equal(t, "<unknown ordinal>", table.SignatureFor(99))
}
