package transform_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellblazer/primemover/transform"
)

// writeFixture lays out a tiny, self-contained module (no third-party
// imports, so go/packages can load it fully offline) exercising:
//   - a base entity (Parent) whose +primemover:entity marker names the
//     Worker interface, with an event method Put;
//   - a subtype (Child) that embeds Parent anonymously, carries a bare
//     +primemover:entity marker (no interface list of its own), and
//     overrides Put with no marker at all — it must still be classified
//     as an event purely because Parent's interface is inherited, and
//     it must reuse Parent's ordinal for Put rather than hash a fresh
//     one (spec §4.4 step 2 / §9).
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module fixture\n\ngo 1.22\n"), 0o644))

	// One entity per file, matching how pmtransform expects to rewrite a
	// tree in practice: each entity's Rewrite call re-parses and
	// rewrites only its own file.
	parentSrc := `package fixture

// Worker is the event-bearing interface Parent declares and Child
// inherits without redeclaring.
type Worker interface {
	Put(n int)
}

// +primemover:entity:Worker
type Parent struct {
	name string
}

// +primemover:event
func (p *Parent) Put(n int) {
	_ = n
}
`
	childSrc := `package fixture

// +primemover:entity
type Child struct {
	Parent
}

func (c *Child) Put(n int) {
	_ = n
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parent.go"), []byte(parentSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child.go"), []byte(childSrc), 0o644))
	return dir
}

func findEntity(t *testing.T, entities []*transform.EntityInfo, name string) *transform.EntityInfo {
	t.Helper()
	for _, e := range entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %s not discovered", name)
	return nil
}

func findMethod(t *testing.T, info *transform.EntityInfo, name string) transform.MethodInfo {
	t.Helper()
	for _, m := range info.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found on %s", name, info.Name)
	return transform.MethodInfo{}
}

func TestDiscoverResolvesInheritedInterfaceAndReusesParentOrdinal(t *testing.T) {
	dir := writeFixture(t)
	entities, err := transform.Discover(dir)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	parent := findEntity(t, entities, "Parent")
	child := findEntity(t, entities, "Child")

	parentPut := findMethod(t, parent, "Put")
	childPut := findMethod(t, child, "Put")

	assert.NotZero(t, parentPut.Ordinal)
	assert.Equal(t, parentPut.Ordinal, childPut.Ordinal,
		"Child.Put overrides Parent.Put; it must keep Parent's ordinal")
}

func TestRewriteThreadsCtxIntoBothProxyAndImpl(t *testing.T) {
	dir := writeFixture(t)
	entities, err := transform.Discover(dir)
	require.NoError(t, err)
	parent := findEntity(t, entities, "Parent")

	out, err := transform.Rewrite(parent)
	require.NoError(t, err)
	require.NotNil(t, out)

	src := string(out)
	assert.Contains(t, src, "func (p *Parent) Put(ctx kernel.DispatchContext, n int)",
		"public proxy method must keep its own leading ctx param")
	assert.Contains(t, src, "func (p *Parent) dispatchPut(ctx kernel.DispatchContext, n int)",
		"impl method must also receive the leading ctx param gen.go's Dispatch call expects")
	assert.Contains(t, src, "+primemover:transformed")
}

func TestGenerateDispatchRoutesEveryOrdinal(t *testing.T) {
	dir := writeFixture(t)
	entities, err := transform.Discover(dir)
	require.NoError(t, err)
	parent := findEntity(t, entities, "Parent")

	out, err := transform.GenerateDispatch(parent, "fixture")
	require.NoError(t, err)

	putOrdinal := findMethod(t, parent, "Put").Ordinal
	src := string(out)
	assert.Contains(t, src, "e.dispatchPut(ctx, args[0].(int))")
	assert.Contains(t, src, "case "+strconv.FormatInt(int64(putOrdinal), 10)+":")
}

func TestCheckIdempotentOnFreshTree(t *testing.T) {
	dir := writeFixture(t)

	ok, mismatch, err := transform.CheckIdempotent(dir)
	require.NoError(t, err)
	assert.True(t, ok, "mismatch: %s", mismatch)
}
