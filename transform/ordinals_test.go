package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignIsDeterministicAcrossAssignerInstances(t *testing.T) {
	a1 := NewOrdinalAssigner()
	o1, err := a1.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)

	a2 := NewOrdinalAssigner()
	o2, err := a2.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)

	assert.Equal(t, o1, o2)
}

func TestAssignIsOrderIndependent(t *testing.T) {
	a1 := NewOrdinalAssigner()
	first, err := a1.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)
	second, err := a1.Assign("Producer", "take", nil, nil)
	require.NoError(t, err)

	a2 := NewOrdinalAssigner()
	secondAgain, err := a2.Assign("Producer", "take", nil, nil)
	require.NoError(t, err)
	firstAgain, err := a2.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)

	assert.Equal(t, first, firstAgain)
	assert.Equal(t, second, secondAgain)
}

func TestAssignHonorsExplicitOrdinal(t *testing.T) {
	a := NewOrdinalAssigner()
	explicit := int32(42)
	ord, err := a.Assign("Producer", "put", []string{"int64"}, &explicit)
	require.NoError(t, err)
	assert.Equal(t, int32(42), ord)
}

func TestAssignRejectsExplicitOrdinalCollision(t *testing.T) {
	a := NewOrdinalAssigner()
	explicit := int32(42)
	_, err := a.Assign("Producer", "put", []string{"int64"}, &explicit)
	require.NoError(t, err)

	_, err = a.Assign("Producer", "take", nil, &explicit)
	var collision *OrdinalCollisionError
	assert.ErrorAs(t, err, &collision)
}

func TestAssignIsIdempotentForSameMethod(t *testing.T) {
	a := NewOrdinalAssigner()
	first, err := a.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)
	again, err := a.Assign("Producer", "put", []string{"int64"}, nil)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestOrdinalsStableAcrossMethodAddAndRemove(t *testing.T) {
	before := NewOrdinalAssigner()
	oA, err := before.Assign("Entity", "A", nil, nil)
	require.NoError(t, err)
	oB, err := before.Assign("Entity", "B", nil, nil)
	require.NoError(t, err)
	oC, err := before.Assign("Entity", "C", nil, nil)
	require.NoError(t, err)

	// Adding D must not disturb A, B, or C's ordinals.
	withD := NewOrdinalAssigner()
	oA2, err := withD.Assign("Entity", "A", nil, nil)
	require.NoError(t, err)
	oB2, err := withD.Assign("Entity", "B", nil, nil)
	require.NoError(t, err)
	oC2, err := withD.Assign("Entity", "C", nil, nil)
	require.NoError(t, err)
	oD, err := withD.Assign("Entity", "D", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, oA, oA2)
	assert.Equal(t, oB, oB2)
	assert.Equal(t, oC, oC2)
	assert.NotZero(t, oD)

	// Removing B must not disturb A or C's ordinals.
	withoutB := NewOrdinalAssigner()
	oA3, err := withoutB.Assign("Entity", "A", nil, nil)
	require.NoError(t, err)
	oC3, err := withoutB.Assign("Entity", "C", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, oA, oA3)
	assert.Equal(t, oC, oC3)

	// An explicit ordinal on A preempts the hash computation entirely.
	explicit := int32(1000)
	preempted := NewOrdinalAssigner()
	oAExplicit, err := preempted.Assign("Entity", "A", nil, &explicit)
	require.NoError(t, err)
	assert.Equal(t, int32(1000), oAExplicit)
}

func TestAssignNeverReturnsReservedZeroOrdinal(t *testing.T) {
	a := NewOrdinalAssigner()
	for i := 0; i < 64; i++ {
		ord, err := a.Assign("Entity", string(rune('a'+i)), nil, nil)
		require.NoError(t, err)
		assert.NotZero(t, ord)
	}
}
