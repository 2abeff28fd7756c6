package types_test

import (
	"testing"

	"github.com/cottand/rowfx/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	io      = types.NewEffect("IO")
	console = types.NewEffect("Console")
	exc     = types.NewEffect("Exception", "String")
	stateI  = types.NewEffect("State", "Int")
	stateS  = types.NewEffect("State", "String")
)

func TestEffectSetIgnoresOrder(t *testing.T) {
	a := types.NewEffectSet(io, console, io)
	b := types.NewEffectSet(console, io)
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Equal(b))
	assert.Equal(t, "IO, Console", a.String())
	assert.Equal(t, []types.Effect{console, io}, a.Sorted())
}

func TestEffectMatches(t *testing.T) {
	assert.True(t, stateI.Matches(types.NewEffect("State")))
	assert.True(t, stateI.Matches(stateI))
	assert.False(t, stateI.Matches(stateS))
	assert.False(t, io.Matches(console))
}

func TestUnion(t *testing.T) {
	f := types.NewFresher()
	v, w := f.Fresh(), f.Fresh()

	row, residual := types.Union(types.ClosedOf(io), types.ClosedOf(console))
	assert.True(t, types.RowsEqual(types.ClosedOf(io, console), row))
	assert.Empty(t, residual)

	row, residual = types.Union(types.ClosedOf(io), types.OpenOf(v, console))
	assert.True(t, types.RowsEqual(types.OpenOf(v, io, console), row))
	assert.Empty(t, residual)

	row, residual = types.Union(types.OpenOf(v, io), types.OpenOf(w, console))
	assert.True(t, types.RowsEqual(types.OpenOf(v, io, console), row))
	require.Len(t, residual, 1)
	assert.Equal(t, types.Equal, residual[0].Kind)
	assert.Equal(t, "e ~ f", residual[0].String())
}

func TestSubtractKeepsTail(t *testing.T) {
	f := types.NewFresher()
	v := f.Fresh()

	row := types.Subtract(types.OpenOf(v, stateI, io), types.NewEffect("State"))
	assert.True(t, types.RowsEqual(types.OpenOf(v, io), row))

	row = types.Subtract(types.ClosedOf(stateI, stateS), stateS)
	assert.True(t, types.RowsEqual(types.ClosedOf(stateI), row))
}

func TestContains(t *testing.T) {
	f := types.NewFresher()
	v := f.Fresh()

	assert.Equal(t, types.Present, types.Contains(types.ClosedOf(io), io))
	assert.Equal(t, types.Absent, types.Contains(types.ClosedOf(io), console))
	assert.Equal(t, types.Present, types.Contains(types.OpenOf(v, io), io))
	assert.Equal(t, types.Unknown, types.Contains(types.OpenOf(v, io), console))
}

func TestCanonicalIgnoresOrder(t *testing.T) {
	f := types.NewFresher()
	v := f.Fresh()
	assert.Equal(t, types.Canonical(types.OpenOf(v, io, console)), types.Canonical(types.OpenOf(v, console, io)))
	assert.Equal(t, "{Console, IO | e}", types.Canonical(types.OpenOf(v, io, console)))
	assert.Equal(t, "{}", types.Canonical(types.Pure))
	assert.True(t, types.IsPure(types.Pure))
	assert.False(t, types.IsPure(types.Open{Tail: v}))
}
