package types_test

import (
	"testing"

	"github.com/cottand/rowfx/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// applyShape is (Fn() -> Unit !r) -> Unit !r
func applyShape(r types.RowVar) *types.Arrow {
	callback := &types.Arrow{Ret: types.Unit, Row: types.Open{Tail: r}}
	return &types.Arrow{Params: []types.Shape{callback}, Ret: types.Unit, Row: types.Open{Tail: r}}
}

func TestGeneralize(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	r := u.Fresh(1)

	sig := u.Generalize(applyShape(r), types.EmptySubst(), types.TopLevel, nil)
	assert.Equal(t, []types.RowVar{r}, sig.Quantified)
	assert.False(t, sig.Poisoned)
	assert.Equal(t, 1, sig.Arity())
	assert.Equal(t, "forall r. (Fn() -> Unit !r) -> Unit !r", sig.String())
}

func TestGeneralizeSkipsOuterLevels(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	outer := u.Fresh(1)

	sig := u.Generalize(applyShape(outer), types.EmptySubst(), 1, nil)
	assert.Empty(t, sig.Quantified)
}

func TestGeneralizeKeepsBounds(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	r := u.Fresh(1)
	bound := types.NewEffectSet(io, console)

	sig := u.Generalize(applyShape(r), types.EmptySubst(), types.TopLevel, map[types.RowVar]types.EffectSet{r: bound})
	assert.Equal(t, "forall r. (Fn() -> Unit !r) -> Unit !r where r: subset_of({IO, Console})", sig.String())

	fn, bounds := u.Instantiate(sig, 1)
	tail, ok := types.TailOf(fn.Row)
	require.True(t, ok)
	assert.NotEqual(t, r, tail)
	require.Contains(t, bounds, tail)
	assert.True(t, bounds[tail].Equal(bound))
}

func TestInstantiateRenamesConsistently(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	r := u.Fresh(1)
	sig := u.Generalize(applyShape(r), types.EmptySubst(), types.TopLevel, nil)

	first, _ := u.Instantiate(sig, 1)
	second, _ := u.Instantiate(sig, 1)

	firstTail, _ := types.TailOf(first.Row)
	secondTail, _ := types.TailOf(second.Row)
	assert.NotEqual(t, firstTail, secondTail)

	paramTail, _ := types.TailOf(first.Params[0].(*types.Arrow).Row)
	assert.Equal(t, firstTail, paramTail)
	assert.Equal(t, types.Level(1), u.LevelOf(firstTail))
}

func TestCloseDangling(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	slack := u.Fresh(1)
	fn := &types.Arrow{Ret: types.Unit, Row: types.OpenOf(slack, io)}

	s := u.CloseDangling(fn, types.EmptySubst(), types.TopLevel)
	sig := u.Generalize(fn, s, types.TopLevel, nil)
	assert.Empty(t, sig.Quantified)
	assert.Equal(t, "() -> Unit !{IO}", sig.String())

	// reachable from a parameter, so it stays polymorphic
	r := u.Fresh(1)
	s = u.CloseDangling(applyShape(r), types.EmptySubst(), types.TopLevel)
	_, bound := s.Lookup(r)
	assert.False(t, bound)
}

func TestPoisonedSignature(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	fn := &types.Arrow{Ret: types.Unit, Row: types.OpenOf(u.FreshError(), io)}

	sig := u.Generalize(fn, types.EmptySubst(), types.TopLevel, nil)
	assert.True(t, sig.Poisoned)
	assert.Empty(t, sig.Quantified)
	assert.Equal(t, "() -> Unit !{IO | ?err}", sig.String())
}

func TestPoisonKeepsFoundEffects(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	r := u.Fresh(1)
	sig := u.Generalize(&types.Arrow{Ret: types.Unit, Row: types.OpenOf(r, io)}, types.EmptySubst(), types.TopLevel, nil)
	require.Len(t, sig.Quantified, 1)

	poisoned := sig.Poison(u.FreshError())
	assert.True(t, poisoned.Poisoned)
	assert.Empty(t, poisoned.Quantified)
	assert.Equal(t, "() -> Unit !{IO | ?err}", poisoned.String())
	// the original is left alone
	assert.False(t, sig.Poisoned)
	assert.Equal(t, "forall r. () -> Unit !{IO | r}", sig.String())
}

func TestCanonicalIsAlphaEquivalent(t *testing.T) {
	u := types.NewUnifier(types.NewFresher())
	a := u.Generalize(applyShape(u.Fresh(1)), types.EmptySubst(), types.TopLevel, nil)
	b := u.Generalize(applyShape(u.Fresh(1)), types.EmptySubst(), types.TopLevel, nil)
	assert.Equal(t, a.Canonical(), b.Canonical())

	c := u.Generalize(&types.Arrow{Ret: types.Unit, Row: types.ClosedOf(io, console)}, types.EmptySubst(), types.TopLevel, nil)
	d := u.Generalize(&types.Arrow{Ret: types.Unit, Row: types.ClosedOf(console, io)}, types.EmptySubst(), types.TopLevel, nil)
	assert.Equal(t, c.Canonical(), d.Canonical())
	assert.NotEqual(t, a.Canonical(), c.Canonical())
}
