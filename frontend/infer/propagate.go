package infer

import (
	"errors"
	"slices"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// checkDeclared pushes a declared row down onto the expression root, whose inferred row
// must be included in it. Declaring more effects than performed is fine.
// When an effect is not covered, the diagnostic points at the operation or call performing it
func (c *funcCtx) checkDeclared(root ir.Expr, inferred, declared types.Row, at ir.Positioner) {
	s, err := c.u.Subsume(inferred, declared, c.subst)
	if err == nil {
		c.subst = s
		return
	}
	var ue *types.UnifyError
	if !errors.As(err, &ue) || ue.Kind != types.SubsetViolation || !ue.HasMissing {
		c.reportUnifyError(err, at)
		return
	}
	offending := c.locate(root, ue.Missing)
	c.addError(fxerr.New(fxerr.NewBoundViolation{
		Positioner: offending,
		Function:   c.decl.Name,
		Effect:     ue.Missing.String(),
		Declared:   c.normalize(declared).String(),
		Actual:     c.normalize(inferred).String(),
		Through:    performer(offending),
	}))
}

// locate walks down from root towards the innermost expression whose row
// contains e, which is the operation or call that performs it
func (c *funcCtx) locate(root ir.Expr, e types.Effect) ir.Expr {
	current := root
	for {
		next := c.offendingChild(current, e)
		if next == nil {
			return current
		}
		current = next
	}
}

func (c *funcCtx) offendingChild(parent ir.Expr, e types.Effect) ir.Expr {
	var candidates []ir.Expr
	switch parent := parent.(type) {
	case *ir.Lambda:
		// the body of a lambda is not performed where the lambda is written
		return nil
	case *ir.Handle:
		handled := slices.ContainsFunc(parent.Clauses, func(cl *ir.Clause) bool {
			return e.Matches(clausePattern(cl))
		})
		if !handled {
			candidates = append(candidates, parent.Body)
		}
		for _, cl := range parent.Clauses {
			candidates = append(candidates, cl.Body)
		}
		if parent.Return != nil {
			candidates = append(candidates, parent.Return.Body)
		}
	default:
		candidates = ir.Children(parent)
	}
	for _, child := range candidates {
		row, ok := c.rows[child]
		if ok && types.Contains(c.normalize(row), e) == types.Present {
			return child
		}
	}
	return nil
}

// performer describes the expression found by locate, for diagnostics
func performer(e ir.Expr) string {
	switch e := e.(type) {
	case *ir.Perform:
		return e.QualifiedOp()
	case *ir.Call:
		return "call to " + ir.ExprString(e.Func)
	default:
		return ""
	}
}

// checkBounds verifies the where bounds of the function once its body is solved.
// A bound on v also applies to whatever tail v was solved to, so bounds move down
// rows until they reach unbound variables
func (c *funcCtx) checkBounds(body ir.Expr) {
	pending := make([]types.RowVar, 0, len(c.bounds))
	for v := range c.bounds {
		pending = append(pending, v)
	}
	slices.Sort(pending)
	for iterations := 0; len(pending) > 0; iterations++ {
		if iterations > c.env.MaxBoundIterations {
			c.addError(fxerr.New(fxerr.NewNonConvergence{
				Positioner: c.decl,
				Functions:  []string{c.decl.Name},
				Iterations: iterations,
			}))
			return
		}
		v := pending[0]
		pending = pending[1:]
		bound := c.bounds[v]
		solved := c.normalize(types.Open{Tail: v})
		at := c.boundAt[v]
		if at == nil {
			at = c.decl
		}
		declared := types.Closed{Ops: bound}
		if missing, ok := solved.Effects().SubsetOf(bound); !ok {
			offending := c.locate(body, missing)
			c.addError(fxerr.New(fxerr.NewBoundViolation{
				Positioner: offending,
				Function:   c.decl.Name,
				Effect:     missing.String(),
				Declared:   declared.String(),
				Actual:     solved.String(),
				Through:    performer(offending),
			}))
			continue
		}
		tail, open := types.TailOf(solved)
		if !open || tail == v || tail.IsError() {
			continue
		}
		if c.u.IsRigid(tail) {
			// a rigid variable may stand for anything, so it cannot be kept within the bound
			c.addError(fxerr.New(fxerr.NewBoundViolation{
				Positioner: at,
				Function:   c.decl.Name,
				Declared:   declared.String(),
				Actual:     solved.String(),
			}))
			continue
		}
		narrowed := bound
		if existing, ok := c.bounds[tail]; ok {
			narrowed = existing.Minus(existing.Minus(bound))
			if narrowed.Equal(existing) {
				continue
			}
		}
		c.bounds[tail] = narrowed
		c.boundAt[tail] = at
		pending = append(pending, tail)
	}
}

// checkEntry requires the row of an entry point to be closed, and to only
// contain allowed effects
func (c *funcCtx) checkEntry(row types.Row) {
	row = c.normalize(row)
	allowed := c.env.EntryAllowed()
	var escaping []string
	for _, e := range row.Effects().Slice() {
		if !slices.ContainsFunc(allowed.Slice(), e.Matches) {
			escaping = append(escaping, e.String())
		}
	}
	diag := fxerr.NewUnhandledEffectEscape{
		Positioner: c.decl,
		Function:   c.decl.Name,
		Row:        row.String(),
		Effects:    escaping,
	}
	// an error row has been reported already, and says nothing about what escapes
	if tail, open := types.TailOf(row); open && !tail.IsError() {
		diag.OpenTail = tail.String()
	}
	if len(diag.Effects) > 0 || diag.OpenTail != "" {
		c.addError(fxerr.New(diag))
	}
}
