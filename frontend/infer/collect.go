package infer

import (
	"fmt"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// collect infers the row performed by evaluating e, and the shape of its value.
// Every node gets its row recorded, so that diagnostics can later be located precisely
func (c *funcCtx) collect(e ir.Expr, sc *scope) (types.Row, types.Shape) {
	switch e := e.(type) {
	case *ir.Literal:
		return c.record(e, types.Pure), types.Value{Type: ir.TypeString(e.Type)}

	case *ir.Var:
		return c.record(e, types.Pure), c.collectVar(e, sc)

	case *ir.Perform:
		return c.collectPerform(e, sc)

	case *ir.Call:
		return c.collectCall(e, sc)

	case *ir.Lambda:
		return c.record(e, types.Pure), c.collectLambda(e, sc)

	case *ir.Let:
		var valueRow types.Row
		var b binding
		if lambda, ok := e.Value.(*ir.Lambda); ok {
			valueRow, b = c.collectLetLambda(lambda, sc)
		} else {
			var shape types.Shape
			valueRow, shape = c.collect(e.Value, sc)
			b = binding{shape: shape}
		}
		bodyRow, bodyShape := c.collect(e.Body, sc.with(e.Name, b))
		return c.record(e, c.union(e, valueRow, bodyRow)), bodyShape

	case *ir.Block:
		rows := make([]types.Row, 0, len(e.Exprs))
		var shape = types.Unit
		for _, expr := range e.Exprs {
			var row types.Row
			row, shape = c.collect(expr, sc)
			rows = append(rows, row)
		}
		return c.record(e, c.union(e, rows...)), shape

	case *ir.If:
		condRow, _ := c.collect(e.Cond, sc)
		thenRow, thenShape := c.collect(e.Then, sc)
		elseRow, elseShape := types.Pure, types.Unit
		if e.Else != nil {
			elseRow, elseShape = c.collect(e.Else, sc)
		}
		// both branches produce the same function value, so their latent rows must agree
		if thenArrow, ok := thenShape.(*types.Arrow); ok {
			if elseArrow, ok := elseShape.(*types.Arrow); ok {
				c.unify(thenArrow.Row, elseArrow.Row, e)
			}
		}
		return c.record(e, c.union(e, condRow, thenRow, elseRow)), thenShape

	case *ir.Handle:
		return c.collectHandle(e, sc)

	case *ir.Resume:
		return c.collectResume(e, sc)

	case *ir.Ascribe:
		innerRow, shape := c.collect(e.Expr, sc)
		declared := c.rowOf(&e.Effects)
		c.checkDeclared(e.Expr, innerRow, declared, e)
		return c.record(e, declared), shape

	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

func (c *funcCtx) collectVar(e *ir.Var, sc *scope) types.Shape {
	if b, ok := sc.lookup(e.Name); ok {
		if b.scheme == nil {
			return b.shape
		}
		arrow, bounds := c.u.Instantiate(*b.scheme, c.level)
		c.addBounds(bounds, e)
		return arrow
	}
	if sig, ok := c.signatureOf(e.Name); ok {
		arrow, bounds := c.u.Instantiate(sig, c.level)
		c.addBounds(bounds, e)
		return arrow
	}
	if e.Name == resumeName {
		c.addError(fxerr.New(fxerr.NewResumeOutsideHandler{Positioner: e}))
	} else {
		c.addError(fxerr.New(fxerr.NewUndefinedVariable{Positioner: e, Name: e.Name}))
	}
	return &types.Arrow{Row: c.errorRow(types.EffectSet{}), Ret: types.Value{Type: "?"}}
}

// signatureOf finds the signature of a top-level function, preferring the
// assumption made for the current recursive group
func (c *funcCtx) signatureOf(name string) (types.Signature, bool) {
	if sig, ok := c.assumed[name]; ok {
		return sig, true
	}
	if _, ok := c.env.Function(name); !ok {
		return types.Signature{}, false
	}
	if c.env.sigs == nil {
		return types.Signature{}, false
	}
	sig, ok := c.env.sigs.Signature(name)
	if !ok {
		c.logger.Error("function has no signature yet, it should have been inferred first", "callee", name)
	}
	return sig, ok
}

func (c *funcCtx) addBounds(bounds map[types.RowVar]types.EffectSet, at ir.Positioner) {
	for v, bound := range bounds {
		c.bounds[v] = bound
		c.boundAt[v] = at
	}
}

// collectPerform implements E-EFFECT-OP: performing F.op adds F to the rows of the arguments
func (c *funcCtx) collectPerform(e *ir.Perform, sc *scope) (types.Row, types.Shape) {
	argRows := make([]types.Row, 0, len(e.Args)+1)
	argShapes := make([]types.Shape, 0, len(e.Args))
	for _, arg := range e.Args {
		row, shape := c.collect(arg, sc)
		argRows = append(argRows, row)
		argShapes = append(argShapes, shape)
	}
	decl, ok := c.env.Effect(e.Effect)
	if !ok {
		c.addError(fxerr.New(fxerr.NewUndefinedEffect{Positioner: e, Name: e.Effect}))
		return c.record(e, c.union(e, append(argRows, c.errorRow(types.EffectSet{}))...)), types.Value{Type: "?"}
	}
	op, ok := decl.Op(e.Op)
	if !ok {
		c.addError(fxerr.New(fxerr.NewUndefinedOperation{Positioner: e, Effect: e.Effect, Op: e.Op}))
		return c.record(e, c.union(e, append(argRows, c.errorRow(types.EffectSet{}))...)), types.Value{Type: "?"}
	}
	if len(op.Params) != len(e.Args) {
		c.addError(fxerr.New(fxerr.NewArityMismatch{Positioner: e, Callee: e.QualifiedOp(), Expected: len(op.Params), Actual: len(e.Args)}))
	}
	for i := 0; i < len(op.Params) && i < len(argShapes); i++ {
		c.relate(argShapes[i], c.shapeOf(op.Params[i]), e.Args[i])
	}
	performed := types.ClosedOf(performedEffect(e))
	return c.record(e, c.union(e, append([]types.Row{performed}, argRows...)...)), c.shapeOf(op.Ret)
}

func performedEffect(e *ir.Perform) types.Effect {
	args := make([]string, len(e.TypeArgs))
	for i, t := range e.TypeArgs {
		args[i] = ir.TypeString(t)
	}
	return types.NewEffect(e.Effect, args...)
}

// collectCall implements E-APP: a call performs the latent row of the callee
// on top of whatever evaluating the callee and the arguments performs
func (c *funcCtx) collectCall(e *ir.Call, sc *scope) (types.Row, types.Shape) {
	funcRow, funcShape := c.collect(e.Func, sc)
	rows := []types.Row{funcRow}
	argShapes := make([]types.Shape, 0, len(e.Args))
	for _, arg := range e.Args {
		row, shape := c.collect(arg, sc)
		rows = append(rows, row)
		argShapes = append(argShapes, shape)
	}
	arrow, ok := funcShape.(*types.Arrow)
	if !ok {
		// calling a value that is not a function has already been rejected by the type checker
		c.logger.Error("call of a non-function value", "expr", e)
		c.latent[e] = types.Pure
		return c.record(e, c.union(e, rows...)), types.Value{Type: "?"}
	}
	erroneous := false
	if tail, open := types.TailOf(c.normalize(arrow.Row)); open && tail.IsError() {
		erroneous = true
	}
	if !erroneous && len(arrow.Params) != len(e.Args) {
		c.addError(fxerr.New(fxerr.NewArityMismatch{
			Positioner: e,
			Callee:     ir.ExprString(e.Func),
			Expected:   len(arrow.Params),
			Actual:     len(e.Args),
		}))
	}
	for i := 0; i < len(arrow.Params) && i < len(argShapes); i++ {
		c.relate(argShapes[i], arrow.Params[i], e.Args[i])
	}
	c.latent[e] = arrow.Row
	rows = append(rows, arrow.Row)
	ret := arrow.Ret
	if ret == nil {
		ret = types.Unit
	}
	return c.record(e, c.union(e, rows...)), ret
}

// collectLambda implements E-LAMBDA: the row of the body becomes the latent row
// of the function value. Building the function performs nothing
func (c *funcCtx) collectLambda(e *ir.Lambda, sc *scope) *types.Arrow {
	params := make([]types.Shape, len(e.Params))
	inner := sc
	for i, p := range e.Params {
		params[i] = c.shapeOf(p.Type)
		inner = inner.with(p.Name, binding{shape: params[i]})
	}
	bodyRow, bodyShape := c.collect(e.Body, inner)
	latent := bodyRow
	if e.Effects != nil {
		latent = c.rowOf(e.Effects)
		c.checkDeclared(e.Body, bodyRow, latent, e)
	}
	return &types.Arrow{Params: params, Ret: bodyShape, Row: latent}
}

// collectLetLambda infers a let-bound lambda one level deeper, so that the
// variables only it uses can be generalised
func (c *funcCtx) collectLetLambda(e *ir.Lambda, sc *scope) (types.Row, binding) {
	c.level++
	arrow := c.collectLambda(e, sc)
	c.level--
	c.record(e, types.Pure)
	scheme := c.u.Generalize(arrow, c.subst, c.level, c.bounds)
	c.logger.Debug("generalised let-bound lambda", "scheme", scheme)
	return types.Pure, binding{scheme: &scheme}
}

func (c *funcCtx) collectResume(e *ir.Resume, sc *scope) (types.Row, types.Shape) {
	argRow := types.Pure
	var argShape types.Shape = types.Unit
	if e.Arg != nil {
		argRow, argShape = c.collect(e.Arg, sc)
	}
	b, ok := sc.lookup(resumeName)
	resume, isArrow := b.shape.(*types.Arrow)
	if !ok || !isArrow {
		c.addError(fxerr.New(fxerr.NewResumeOutsideHandler{Positioner: e}))
		return c.record(e, argRow), types.Value{Type: "?"}
	}
	if len(resume.Params) > 0 {
		c.relate(argShape, resume.Params[0], e)
	}
	// the effects of the resumed computation are accounted for by the handled expression
	return c.record(e, argRow), resume.Ret
}
