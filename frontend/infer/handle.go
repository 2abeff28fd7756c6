package infer

import (
	"slices"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// HandlerInfo is what the Handler Resolver found out about a handle expression
type HandlerInfo struct {
	// Handled is the normalised row of the handled expression
	Handled types.Row
	// Eliminated are the patterns removed from Handled
	Eliminated []types.Effect
	// Result is the row of the whole handle expression
	Result types.Row
}

type handlerSet struct {
	// byOp maps Effect.op to its clause
	byOp     map[string]*ir.Clause
	families []types.Effect
}

func clausePattern(cl *ir.Clause) types.Effect {
	args := make([]string, len(cl.TypeArgs))
	for i, t := range cl.TypeArgs {
		args[i] = ir.TypeString(t)
	}
	return types.NewEffect(cl.Effect, args...)
}

func (c *funcCtx) handlerSetOf(h *ir.Handle) handlerSet {
	hs := handlerSet{byOp: make(map[string]*ir.Clause)}
	for _, cl := range h.Clauses {
		decl, ok := c.env.Effect(cl.Effect)
		if !ok {
			c.addError(fxerr.New(fxerr.NewUndefinedEffect{Positioner: cl, Name: cl.Effect}))
			continue
		}
		if _, ok := decl.Op(cl.Op); !ok {
			c.addError(fxerr.New(fxerr.NewUndefinedOperation{Positioner: cl, Effect: cl.Effect, Op: cl.Op}))
			continue
		}
		if _, dup := hs.byOp[cl.QualifiedOp()]; dup {
			c.logger.Debug("duplicate handler clause, keeping the first one", "op", cl.QualifiedOp(), "clause", cl.Body)
			continue
		}
		hs.byOp[cl.QualifiedOp()] = cl
		pattern := clausePattern(cl)
		if !slices.ContainsFunc(hs.families, func(e types.Effect) bool { return e.Hash() == pattern.Hash() }) {
			hs.families = append(hs.families, pattern)
		}
	}
	return hs
}

// collectHandle implements E-HANDLE: the handled effects are subtracted from the
// row of the body, and the rows of the clauses are added back, since clause bodies
// run outside the handler
func (c *funcCtx) collectHandle(h *ir.Handle, sc *scope) (types.Row, types.Shape) {
	bodyRow, bodyShape := c.collect(h.Body, sc)
	handled := c.normalize(bodyRow)
	hs := c.handlerSetOf(h)
	_, open := types.TailOf(handled)

	for _, cl := range h.Clauses {
		if _, ok := hs.byOp[cl.QualifiedOp()]; !ok {
			continue
		}
		if !handled.Effects().ContainsMatch(clausePattern(cl)) {
			c.addError(fxerr.New(fxerr.NewUnusedHandlerClause{
				Positioner: cl,
				Op:         cl.QualifiedOp(),
				Row:        handled.String(),
				RowOpen:    open,
			}))
		}
	}

	var eliminated []types.Effect
	for _, family := range hs.families {
		decl, _ := c.env.Effect(family.Name)
		var missing []string
		for _, op := range decl.Ops {
			if _, ok := hs.byOp[family.Name+"."+op.Name]; !ok {
				missing = append(missing, family.Name+"."+op.Name)
			}
		}
		complete := len(missing) == 0
		eliminate := complete || c.env.Options.HandlerCoverage == types.FamilyCoverage && c.coveredUses(h, hs, family)
		if !complete && handled.Effects().ContainsMatch(family) {
			c.addError(fxerr.New(fxerr.NewIncompleteHandler{
				Positioner: h,
				Effect:     family.Name,
				Missing:    missing,
				Eliminated: eliminate,
			}))
		}
		if eliminate {
			eliminated = append(eliminated, family)
		}
	}
	result := types.Subtract(handled, eliminated...)

	resultShape := bodyShape
	var returnRow types.Row = types.Pure
	if h.Return != nil {
		inner := sc.with(h.Return.Param.Name, binding{shape: bodyShape})
		returnRow, resultShape = c.collect(h.Return.Body, inner)
	}

	rows := []types.Row{result}
	for _, cl := range h.Clauses {
		clauseRow := c.collectClause(cl, resultShape, sc)
		rows = append(rows, clauseRow)
	}
	rows = append(rows, returnRow)
	row := c.union(h, rows...)

	c.checkClauseTypes(h)
	c.handlers[h] = &HandlerInfo{Handled: handled, Eliminated: eliminated, Result: row}
	c.logger.Debug("resolved handler", "handled", handled, "result", row)
	return c.record(h, row), resultShape
}

// coveredUses reports whether every use of family within the body of h is a
// perform of an operation h has a clause for. The latent row of a call names
// families, not operations, so a call performing family is never covered
func (c *funcCtx) coveredUses(h *ir.Handle, hs handlerSet, family types.Effect) bool {
	covered := true
	var visit func(e ir.Expr) bool
	visit = func(e ir.Expr) bool {
		if !covered {
			return false
		}
		switch e := e.(type) {
		case *ir.Lambda:
			// building a function performs nothing
			return false
		case *ir.Perform:
			if performedEffect(e).Matches(family) && hs.byOp[e.QualifiedOp()] == nil {
				covered = false
			}
		case *ir.Call:
			if latent, ok := c.latent[e]; ok && c.normalize(latent).Effects().ContainsMatch(family) {
				covered = false
			}
		case *ir.Handle:
			info, ok := c.handlers[e]
			if !ok || !slices.ContainsFunc(info.Eliminated, family.Matches) {
				return true
			}
			// uses of family in its body are handled there, its clauses run outside of it
			for _, cl := range e.Clauses {
				ir.Inspect(cl.Body, visit)
			}
			if e.Return != nil {
				ir.Inspect(e.Return.Body, visit)
			}
			return false
		}
		return covered
	}
	ir.Inspect(h.Body, visit)
	return covered
}

// collectClause infers the body of an operation clause, where resume continues the
// handled computation with the result of the operation
func (c *funcCtx) collectClause(cl *ir.Clause, resultShape types.Shape, sc *scope) types.Row {
	var opParams []ir.Type
	var opRet ir.Type
	if decl, ok := c.env.Effect(cl.Effect); ok {
		if op, ok := decl.Op(cl.Op); ok {
			opParams, opRet = op.Params, op.Ret
		}
	}
	inner := sc
	for i, p := range cl.Params {
		t := p.Type
		if t == nil && i < len(opParams) {
			t = opParams[i]
		}
		inner = inner.with(p.Name, binding{shape: c.shapeOf(t)})
	}
	resume := &types.Arrow{Params: []types.Shape{c.shapeOf(opRet)}, Ret: resultShape, Row: types.Pure}
	inner = inner.with(resumeName, binding{shape: resume})
	row, _ := c.collect(cl.Body, inner)
	return row
}

// checkClauseTypes requires every clause of h, and its return clause, to produce the same value type
func (c *funcCtx) checkClauseTypes(h *ir.Handle) {
	type candidate struct {
		t  ir.Type
		at ir.Positioner
	}
	var candidates []candidate
	switch {
	case h.Return != nil && h.Return.Type != nil:
		candidates = append(candidates, candidate{h.Return.Type, h.Return})
	case h.Return == nil && h.BodyType != nil:
		candidates = append(candidates, candidate{h.BodyType, h.Body})
	}
	for _, cl := range h.Clauses {
		if cl.Type != nil {
			candidates = append(candidates, candidate{cl.Type, cl})
		}
	}
	if len(candidates) < 2 {
		return
	}
	vs := newValueSubst()
	first := candidates[0]
	for _, other := range candidates[1:] {
		if !vs.unify(first.t, other.t) {
			c.addError(fxerr.New(fxerr.NewHandlerReturnTypeMismatch{
				Positioner: other.at,
				First:      ir.TypeString(first.t),
				Second:     ir.TypeString(other.t),
				FirstAt:    ir.RangeOf(first.at),
				SecondAt:   ir.RangeOf(other.at),
			}))
		}
	}
}
