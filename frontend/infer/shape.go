package infer

import (
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// rowVar returns the variable a row variable name stands for in this function,
// introducing a flexible one if the name was never declared
func (c *funcCtx) rowVar(name string) types.RowVar {
	if v, ok := c.rowVars[name]; ok {
		return v
	}
	v := c.u.Fresh(c.level)
	c.rowVars[name] = v
	return v
}

// rowOf converts a written annotation into a Row
func (c *funcCtx) rowOf(ann *ir.RowAnnotation) types.Row {
	if ann == nil {
		return types.Pure
	}
	effects, errs := c.env.resolveEffects(ann.Effects)
	for _, err := range errs {
		c.addError(err)
	}
	ops := types.NewEffectSet(effects...)
	if len(errs) > 0 {
		return c.errorRow(ops)
	}
	if ann.Tail == "" {
		return types.Closed{Ops: ops}
	}
	return types.Open{Ops: ops, Tail: c.rowVar(ann.Tail)}
}

// shapeOf builds the shape of a value of type t. Function types without a
// row annotation get a fresh row variable
func (c *funcCtx) shapeOf(t ir.Type) types.Shape {
	fn, ok := t.(*ir.FnType)
	if !ok {
		return types.Value{Type: ir.TypeString(t)}
	}
	params := make([]types.Shape, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = c.shapeOf(p)
	}
	var row types.Row
	if fn.Effects != nil {
		row = c.rowOf(fn.Effects)
	} else {
		row = c.fresh()
	}
	return &types.Arrow{Params: params, Ret: c.shapeOf(fn.Ret), Row: row}
}

// relate makes a value of shape actual usable where expected is wanted.
// Latent rows are related according to the configured row variance:
// covariantly, a function may be passed where more effects are allowed
func (c *funcCtx) relate(actual, expected types.Shape, at ir.Positioner) {
	a, okA := actual.(*types.Arrow)
	e, okE := expected.(*types.Arrow)
	if !okA || !okE {
		return
	}
	if c.env.Options.RowVariance == types.Invariant {
		c.unify(a.Row, e.Row, at)
	} else {
		s, err := c.u.Subsume(a.Row, e.Row, c.subst)
		if err != nil {
			c.reportUnifyError(err, at)
		} else {
			c.subst = s
		}
	}
	// parameters are contravariant
	for i := 0; i < len(a.Params) && i < len(e.Params); i++ {
		c.relate(e.Params[i], a.Params[i], at)
	}
	c.relate(a.Ret, e.Ret, at)
}

// collectRowVarNames adds the names of the row variables t mentions to into
func collectRowVarNames(t ir.Type, into map[string]bool) {
	fn, ok := t.(*ir.FnType)
	if !ok {
		return
	}
	for _, p := range fn.Params {
		collectRowVarNames(p, into)
	}
	collectRowVarNames(fn.Ret, into)
	if fn.Effects != nil && fn.Effects.Tail != "" {
		into[fn.Effects.Tail] = true
	}
}
