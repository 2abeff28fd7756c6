package infer

import (
	"errors"
	"log/slog"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
)

// binding is what a local variable stands for. Let-bound lambdas carry a scheme,
// and are instantiated afresh at every use
type binding struct {
	shape  types.Shape
	scheme *types.Signature
}

// scope is an immutable linked list of local bindings
type scope struct {
	parent *scope
	name   string
	binding
}

func (s *scope) with(name string, b binding) *scope {
	return &scope{parent: s, name: name, binding: b}
}

func (s *scope) lookup(name string) (binding, bool) {
	for ; s != nil; s = s.parent {
		if s.name == name {
			return s.binding, true
		}
	}
	return binding{}, false
}

// resumeName is bound within operation clauses
const resumeName = "resume"

// funcCtx holds the state of inferring a single function.
// Nothing in it is shared with other functions, so it needs no locking
type funcCtx struct {
	env    *Env
	decl   *ir.FuncDecl
	logger *slog.Logger

	u     *types.Unifier
	subst types.Subst
	level types.Level

	// rowVars are the row variables named in the signature or in annotations
	rowVars map[string]types.RowVar
	bounds  map[types.RowVar]types.EffectSet
	boundAt map[types.RowVar]ir.Positioner

	// assumed signatures of the members of the recursive group being solved, if any
	assumed map[string]types.Signature

	rows     map[ir.Expr]types.Row
	latent   map[*ir.Call]types.Row
	handlers map[*ir.Handle]*HandlerInfo

	errors *fxerr.Errors
}

func newFuncCtx(env *Env, decl *ir.FuncDecl, fresher *types.Fresher, assumed map[string]types.Signature) *funcCtx {
	return &funcCtx{
		env:      env,
		decl:     decl,
		logger:   env.Logger.With("function", decl.Name),
		u:        types.NewUnifier(fresher),
		subst:    types.EmptySubst(),
		level:    types.TopLevel + 1,
		rowVars:  make(map[string]types.RowVar),
		bounds:   make(map[types.RowVar]types.EffectSet),
		boundAt:  make(map[types.RowVar]ir.Positioner),
		assumed:  assumed,
		rows:     make(map[ir.Expr]types.Row),
		latent:   make(map[*ir.Call]types.Row),
		handlers: make(map[*ir.Handle]*HandlerInfo),
	}
}

func (c *funcCtx) addError(err fxerr.Diagnostic) {
	c.logger.Warn("effect error", "error", fxerr.FormatWithCode(err))
	c.errors = c.errors.With(err)
}

// errorRow stands in for a row that could not be inferred. It is open, so it unifies
// with anything without raising further errors, and it never generalises
func (c *funcCtx) errorRow(known types.EffectSet) types.Row {
	return types.Open{Ops: known, Tail: c.u.FreshError()}
}

func (c *funcCtx) fresh() types.Row {
	return types.Open{Tail: c.u.Fresh(c.level)}
}

func (c *funcCtx) normalize(r types.Row) types.Row {
	return c.subst.Normalize(r)
}

// unify requires a and b to be equal, reporting failures at at.
// It returns false if unification failed
func (c *funcCtx) unify(a, b types.Row, at ir.Positioner) bool {
	s, err := c.u.Unify(a, b, c.subst)
	if err != nil {
		c.reportUnifyError(err, at)
		return false
	}
	c.subst = s
	return true
}

func (c *funcCtx) reportUnifyError(err error, at ir.Positioner) {
	var ue *types.UnifyError
	if !errors.As(err, &ue) {
		c.addError(fxerr.New(fxerr.Unclassified{From: err, Positioner: ir.RangeOf(at)}))
		return
	}
	switch ue.Kind {
	case types.InfiniteRow:
		c.addError(fxerr.New(fxerr.NewInfiniteRow{
			Positioner: at,
			Var:        ue.Var.String(),
			Row:        ue.Right.String(),
		}))
	case types.SubsetViolation:
		diag := fxerr.NewBoundViolation{
			Positioner: at,
			Function:   c.decl.Name,
			Declared:   ue.Right.String(),
			Actual:     ue.Left.String(),
		}
		if ue.HasMissing {
			diag.Effect = ue.Missing.String()
		}
		c.addError(fxerr.New(diag))
	default:
		diag := fxerr.NewRowMismatch{
			Positioner: at,
			Expected:   ue.Right.String(),
			Actual:     ue.Left.String(),
		}
		if ue.HasVar && c.u.IsRigid(ue.Var) {
			diag.Rigid = ue.Var.String()
		}
		c.addError(fxerr.New(diag))
	}
}

// union merges rows, discharging the residual constraints between their tails.
// If that fails, the result is an error row
func (c *funcCtx) union(at ir.Positioner, rows ...types.Row) types.Row {
	result := types.Pure
	for _, r := range rows {
		merged, residuals := types.Union(c.normalize(result), c.normalize(r))
		for _, residual := range residuals {
			if !c.unify(residual.Left, residual.Right, at) {
				merged = c.errorRow(merged.Effects())
			}
		}
		result = merged
	}
	return c.normalize(result)
}

// record remembers the row performed by e, and returns it
func (c *funcCtx) record(e ir.Expr, r types.Row) types.Row {
	c.rows[e] = r
	return r
}
