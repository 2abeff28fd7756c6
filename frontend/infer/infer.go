package infer

import (
	"maps"
	"slices"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// FuncResult is the outcome of inferring one function. Its rows are fully solved
type FuncResult struct {
	Decl      *ir.FuncDecl
	Signature types.Signature
	// Rows holds the row performed by evaluating each expression of the body
	Rows map[ir.Expr]types.Row
	// Latent holds the row of the callee at each call
	Latent   map[*ir.Call]types.Row
	Handlers map[*ir.Handle]*HandlerInfo
	Errors   *fxerr.Errors
}

// declared is the signature written on a function, with its row variables
// turned into RowVar: rigid, unless they are constrained by a where bound
type declared struct {
	fn     *types.Arrow
	params []types.Shape
	// row is nil when the function has no declared row
	row types.Row
}

func (c *funcCtx) declare(decl *ir.FuncDecl) declared {
	names := make(map[string]bool)
	for _, p := range decl.Params {
		collectRowVarNames(p.Type, names)
	}
	collectRowVarNames(decl.Ret, names)
	if decl.Effects != nil && decl.Effects.Tail != "" {
		names[decl.Effects.Tail] = true
	}
	bounded := make(map[string]ir.Bound)
	for _, b := range decl.Bounds {
		bounded[b.Var] = b
		names[b.Var] = true
	}
	for _, name := range slices.Sorted(maps.Keys(names)) {
		if _, ok := bounded[name]; ok {
			c.rowVars[name] = c.u.Fresh(c.level)
		} else {
			c.rowVars[name] = c.u.FreshRigid(c.level)
		}
	}
	for _, b := range decl.Bounds {
		effects, errs := c.env.resolveEffects(b.Effects.Effects)
		for _, err := range errs {
			c.addError(err)
		}
		v := c.rowVars[b.Var]
		c.bounds[v] = types.NewEffectSet(effects...)
		c.boundAt[v] = b
	}

	d := declared{params: make([]types.Shape, len(decl.Params))}
	for i, p := range decl.Params {
		d.params[i] = c.shapeOf(p.Type)
	}
	if decl.Effects != nil {
		d.row = c.rowOf(decl.Effects)
	}
	fnRow := d.row
	if fnRow == nil {
		fnRow = types.Pure
	}
	d.fn = &types.Arrow{Params: d.params, Ret: c.shapeOf(decl.Ret), Row: fnRow}
	return d
}

// Function infers the signature of decl. assumed holds the signatures assumed for
// the other members of decl's recursive group, and for decl itself if it is recursive
func Function(env *Env, decl *ir.FuncDecl, fresher *types.Fresher, assumed map[string]types.Signature) *FuncResult {
	c := newFuncCtx(env, decl, fresher, assumed)
	d := c.declare(decl)

	sc := (*scope)(nil)
	for i, p := range decl.Params {
		sc = sc.with(p.Name, binding{shape: d.params[i]})
	}
	var row types.Row = types.Pure
	var ret types.Shape = types.Unit
	if decl.Body != nil {
		row, ret = c.collect(decl.Body, sc)
	}
	if _, isFn := decl.Ret.(*ir.FnType); isFn {
		c.relate(ret, d.fn.Ret, decl)
		ret = d.fn.Ret
	} else if decl.Ret == nil {
		ret = types.Unit
	} else {
		ret = d.fn.Ret
	}

	if d.row != nil {
		if decl.Body != nil {
			c.checkDeclared(decl.Body, row, d.row, decl)
		}
		row = d.row
	}
	if decl.Body != nil {
		c.checkBounds(decl.Body)
	}

	fn := &types.Arrow{Params: d.params, Ret: ret, Row: row}
	c.subst = c.u.CloseDangling(fn, c.subst, types.TopLevel)
	sig := c.u.Generalize(fn, c.subst, types.TopLevel, c.bounds)
	if env.IsEntry(decl.Name) {
		c.checkEntry(row)
	}
	c.logger.Debug("inferred function", "signature", sig)

	result := &FuncResult{
		Decl:      decl,
		Signature: sig,
		Rows:      make(map[ir.Expr]types.Row, len(c.rows)),
		Latent:    make(map[*ir.Call]types.Row, len(c.latent)),
		Handlers:  c.handlers,
		Errors:    c.errors,
	}
	for e, r := range c.rows {
		result.Rows[e] = c.normalize(r)
	}
	for call, r := range c.latent {
		result.Latent[call] = c.normalize(r)
	}
	for _, h := range c.handlers {
		h.Handled = c.normalize(h.Handled)
		h.Result = c.normalize(h.Result)
	}
	return result
}

// Assumed is the signature a function is assumed to have before its recursive group is solved:
// its declared signature if it has one, otherwise the pure function whose
// function-typed parameters each have their own row
func Assumed(env *Env, decl *ir.FuncDecl, fresher *types.Fresher) types.Signature {
	c := newFuncCtx(env, decl, fresher, nil)
	d := c.declare(decl)
	// assumptions are not checked, the inference of decl itself reports what is wrong with them
	c.errors = nil
	var all []types.RowVar
	for _, v := range types.FreeVars(d.fn) {
		if !v.IsError() {
			all = append(all, v)
		}
	}
	sig := types.Signature{Quantified: all, Fn: d.fn}
	for v, bound := range c.bounds {
		if slices.Contains(all, v) {
			if sig.Bounds == nil {
				sig.Bounds = make(map[types.RowVar]types.EffectSet)
			}
			sig.Bounds[v] = bound
		}
	}
	return sig
}
