package types

import (
	"fmt"
	"iter"

	"github.com/benbjohnson/immutable"
)

type rowVarHasher struct{}

func (rowVarHasher) Hash(v RowVar) uint32   { return uint32(v) }
func (rowVarHasher) Equal(a, b RowVar) bool { return a == b }

// Subst maps row variables to the rows they have been solved to.
// It is persistent: binding returns a new Subst and leaves the receiver untouched,
// so a failed unification can simply keep using the old one.
//
// The zero value is the empty substitution
type Subst struct {
	m *immutable.Map[RowVar, Row]
}

func EmptySubst() Subst {
	return Subst{m: immutable.NewMap[RowVar, Row](rowVarHasher{})}
}

func (s Subst) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

func (s Subst) Lookup(v RowVar) (Row, bool) {
	if s.m == nil {
		return nil, false
	}
	return s.m.Get(v)
}

// bind does not check anything - see Unifier.bind
func (s Subst) bind(v RowVar, r Row) Subst {
	m := s.m
	if m == nil {
		m = immutable.NewMap[RowVar, Row](rowVarHasher{})
	}
	return Subst{m: m.Set(v, r)}
}

// All iterates over the raw (un-normalised) bindings
func (s Subst) All() iter.Seq2[RowVar, Row] {
	return func(yield func(RowVar, Row) bool) {
		if s.m == nil {
			return
		}
		itr := s.m.Iterator()
		for !itr.Done() {
			v, r, _ := itr.Next()
			if !yield(v, r) {
				return
			}
		}
	}
}

// Normalize chases the tail of r through s until it is unbound,
// accumulating the effects found on the way
func (s Subst) Normalize(r Row) Row {
	ops := r.Effects()
	for steps := 0; ; steps++ {
		tail, open := TailOf(r)
		if !open {
			return Closed{Ops: ops}
		}
		bound, ok := s.Lookup(tail)
		if !ok {
			return Open{Ops: ops, Tail: tail}
		}
		if steps > s.Len() {
			panic(fmt.Sprintf("cyclic substitution while normalising %v", r))
		}
		ops = ops.Union(bound.Effects())
		r = bound
	}
}

// NormalizeVar is Normalize for the row made of just v
func (s Subst) NormalizeVar(v RowVar) Row {
	return s.Normalize(Open{Tail: v})
}
