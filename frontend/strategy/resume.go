package strategy

import (
	"github.com/cottand/rowfx/frontend/ir"
)

const resumeName = "resume"

// many stands for any number of resumptions above one
const many = 2

// resumption summarises how a clause body uses its continuation,
// over every path through it
type resumption struct {
	min, max int
	// nonTail is set when some resumption is followed by more work
	nonTail bool
	// escaped is set when resume is used other than by calling it
	escaped bool
}

func (r resumption) then(next resumption) resumption {
	return resumption{
		min:     min(r.min+next.min, many),
		max:     min(r.max+next.max, many),
		nonTail: r.nonTail || next.nonTail,
		escaped: r.escaped || next.escaped,
	}
}

func (r resumption) or(other resumption) resumption {
	return resumption{
		min:     min(r.min, other.min),
		max:     max(r.max, other.max),
		nonTail: r.nonTail || other.nonTail,
		escaped: r.escaped || other.escaped,
	}
}

// Classify picks the strategy for a handler clause from its body:
// a clause resuming exactly once on every path as its last action is EvidencePassing,
// one resuming exactly once but with work left afterwards is LocalCPS,
// and anything else needs FullCPS
func Classify(body ir.Expr) Tag {
	r := resumptionsOf(body, true)
	switch {
	case r.escaped || r.min != 1 || r.max != 1:
		return FullCPS
	case r.nonTail:
		return LocalCPS
	default:
		return EvidencePassing
	}
}

func isResume(e ir.Expr) bool {
	v, ok := e.(*ir.Var)
	return ok && v.Name == resumeName
}

func resumed(arg ir.Expr, tail bool) resumption {
	r := resumption{}
	if arg != nil {
		r = resumptionsOf(arg, false)
	}
	return r.then(resumption{min: 1, max: 1, nonTail: !tail})
}

// resumptionsOf walks e, which is in tail position of the clause if tail is set
func resumptionsOf(e ir.Expr, tail bool) resumption {
	switch e := e.(type) {
	case nil:
		return resumption{}
	case *ir.Resume:
		return resumed(e.Arg, tail)
	case *ir.Var:
		return resumption{escaped: isResume(e)}
	case *ir.Call:
		if isResume(e.Func) {
			var arg ir.Expr
			if len(e.Args) > 0 {
				arg = e.Args[0]
			}
			r := resumed(arg, tail)
			for _, extra := range e.Args[min(1, len(e.Args)):] {
				r = resumptionsOf(extra, false).then(r)
			}
			return r
		}
		r := resumptionsOf(e.Func, false)
		for _, a := range e.Args {
			r = r.then(resumptionsOf(a, false))
		}
		return r
	case *ir.Lambda:
		for _, p := range e.Params {
			if p.Name == resumeName {
				return resumption{}
			}
		}
		// a lambda mentioning resume carries the continuation out of the clause
		inner := resumptionsOf(e.Body, false)
		return resumption{escaped: inner.escaped || inner.max > 0}
	case *ir.Let:
		r := resumptionsOf(e.Value, false)
		if e.Name == resumeName {
			return r
		}
		return r.then(resumptionsOf(e.Body, tail))
	case *ir.Block:
		r := resumption{}
		for i, sub := range e.Exprs {
			r = r.then(resumptionsOf(sub, tail && i == len(e.Exprs)-1))
		}
		return r
	case *ir.If:
		return resumptionsOf(e.Cond, false).then(
			resumptionsOf(e.Then, tail).or(resumptionsOf(e.Else, tail)),
		)
	case *ir.Handle:
		// resuming inside a nested handled body may be intercepted, so it is never a tail call.
		// Nested clauses bind their own resume
		r := resumptionsOf(e.Body, false)
		if e.Return != nil && e.Return.Param.Name != resumeName {
			r = r.then(resumptionsOf(e.Return.Body, false))
		}
		return r
	case *ir.Ascribe:
		return resumptionsOf(e.Expr, tail)
	default:
		r := resumption{}
		for _, child := range ir.Children(e) {
			r = r.then(resumptionsOf(child, false))
		}
		return r
	}
}
