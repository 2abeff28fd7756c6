package types

import (
	"fmt"
	"maps"
)

type UnifyErrorKind uint8

const (
	// RowMismatch is raised when two rows cannot be made equal,
	// including when that would require binding a rigid variable
	RowMismatch UnifyErrorKind = iota
	// InfiniteRow is raised when the occurs check fails
	InfiniteRow
	// SubsetViolation is raised by Subsume when an effect of the inferred row is not covered
	SubsetViolation
)

// UnifyError describes why two rows could not be unified.
// Rows are normalised against the substitution at the time of failure
type UnifyError struct {
	Kind        UnifyErrorKind
	Left, Right Row
	// Var is the variable that failed the occurs check, for InfiniteRow,
	// or the rigid variable that could not be bound
	Var    RowVar
	HasVar bool
	// Missing is the first effect of Left not covered by Right, for SubsetViolation
	Missing    Effect
	HasMissing bool
}

func (e *UnifyError) Error() string {
	switch e.Kind {
	case InfiniteRow:
		return fmt.Sprintf("infinite row: %v occurs in %v", e.Var, e.Right)
	case SubsetViolation:
		if e.HasMissing {
			return fmt.Sprintf("effect %v of %v is not included in %v", e.Missing, e.Left, e.Right)
		}
		return fmt.Sprintf("%v is not included in %v", e.Left, e.Right)
	default:
		if e.HasVar {
			return fmt.Sprintf("cannot match %v with %v: %v is rigid", e.Left, e.Right, e.Var)
		}
		return fmt.Sprintf("cannot match %v with %v", e.Left, e.Right)
	}
}

// Unifier solves row constraints for one function.
// It owns the levels of the variables it hands out and knows which of them are rigid
// (declared by the user, and so not allowed to be bound to anything)
type Unifier struct {
	fresher *Fresher
	levels  map[RowVar]Level
	rigid   map[RowVar]bool
}

func NewUnifier(fresher *Fresher) *Unifier {
	return &Unifier{
		fresher: fresher,
		levels:  make(map[RowVar]Level),
		rigid:   make(map[RowVar]bool),
	}
}

func (u *Unifier) Fresh(level Level) RowVar {
	v := u.fresher.Fresh()
	u.levels[v] = level
	return v
}

// FreshError returns a variable standing for an error row. It has no level,
// so it is never generalised
func (u *Unifier) FreshError() RowVar {
	return u.fresher.FreshError()
}

// FreshRigid returns a variable that may not be bound, like the r in a declared
// signature `(Fn() -> Unit !r) -> Unit !r`
func (u *Unifier) FreshRigid(level Level) RowVar {
	v := u.Fresh(level)
	u.rigid[v] = true
	return v
}

// LevelOf returns the level of v. Variables this Unifier did not create are at TopLevel
func (u *Unifier) LevelOf(v RowVar) Level {
	return u.levels[v]
}

func (u *Unifier) IsRigid(v RowVar) bool {
	return u.rigid[v]
}

// unification holds the state of a single Unify or Subsume call, so that levels are
// only lowered once the whole call succeeds
type unification struct {
	*Unifier
	subst   Subst
	lowered map[RowVar]Level
}

func (u *Unifier) begin(s Subst) *unification {
	return &unification{Unifier: u, subst: s, lowered: make(map[RowVar]Level)}
}

func (un *unification) commit() Subst {
	maps.Copy(un.levels, un.lowered)
	return un.subst
}

func (un *unification) levelOf(v RowVar) Level {
	if l, ok := un.lowered[v]; ok {
		return l
	}
	return un.levels[v]
}

func (un *unification) fresh(level Level) RowVar {
	v := un.fresher.Fresh()
	un.lowered[v] = level
	return v
}

// bind extends the substitution with v := r after the occurs check, and lowers
// the level of every variable of r to the level of v
func (un *unification) bind(v RowVar, r Row) error {
	if v.IsError() {
		// error rows absorb anything, and stay error rows
		return nil
	}
	if _, ok := un.subst.Lookup(v); ok {
		panic(fmt.Sprintf("variable %v is already bound", v))
	}
	r = un.subst.Normalize(r)
	if tail, ok := TailOf(r); ok && tail == v {
		return &UnifyError{Kind: InfiniteRow, Left: Open{Tail: v}, Right: r, Var: v, HasVar: true}
	}
	if un.rigid[v] {
		return &UnifyError{Kind: RowMismatch, Left: Open{Tail: v}, Right: r, Var: v, HasVar: true}
	}
	if tail, ok := TailOf(r); ok && !tail.IsError() {
		if l := un.levelOf(v); un.levelOf(tail) > l {
			un.lowered[tail] = l
		}
	}
	un.subst = un.subst.bind(v, r)
	return nil
}

// Unify makes a and b equal by extending s. On failure the returned Subst is s
func (u *Unifier) Unify(a, b Row, s Subst) (Subst, error) {
	un := u.begin(s)
	if err := un.unify(a, b); err != nil {
		return s, err
	}
	return un.commit(), nil
}

func (un *unification) unify(a, b Row) error {
	a, b = un.subst.Normalize(a), un.subst.Normalize(b)
	switch a := a.(type) {
	case Closed:
		switch b := b.(type) {
		case Closed:
			if !a.Ops.Equal(b.Ops) {
				return &UnifyError{Kind: RowMismatch, Left: a, Right: b}
			}
			return nil
		case Open:
			return un.closedOpen(a, b, false)
		default:
			panic(fmt.Sprintf("unexpected row variant %T", b))
		}
	case Open:
		switch b := b.(type) {
		case Closed:
			return un.closedOpen(b, a, true)
		case Open:
			return un.openOpen(a, b)
		default:
			panic(fmt.Sprintf("unexpected row variant %T", b))
		}
	default:
		panic(fmt.Sprintf("unexpected row variant %T", a))
	}
}

// closedOpen unifies closed(S) with open(T, v): T must be included in S,
// and v absorbs the rest
func (un *unification) closedOpen(closed Closed, open Open, swapped bool) error {
	mismatch := func() *UnifyError {
		if swapped {
			return &UnifyError{Kind: RowMismatch, Left: open, Right: closed}
		}
		return &UnifyError{Kind: RowMismatch, Left: closed, Right: open}
	}
	if _, ok := open.Ops.SubsetOf(closed.Ops); !ok {
		return mismatch()
	}
	// a closed row has no tail, so binding can only fail because open.Tail is rigid
	if err := un.bind(open.Tail, Closed{Ops: closed.Ops.Minus(open.Ops)}); err != nil {
		e := mismatch()
		e.Var, e.HasVar = open.Tail, true
		return e
	}
	return nil
}

func (un *unification) openOpen(a, b Open) error {
	if a.Tail == b.Tail {
		if a.Ops.Equal(b.Ops) {
			return nil
		}
		// {S | v} ~ {T | v} with S != T needs v to contain itself
		return &UnifyError{Kind: InfiniteRow, Left: a, Right: b, Var: a.Tail, HasVar: true}
	}
	onlyA, onlyB := a.Ops.Minus(b.Ops), b.Ops.Minus(a.Ops)
	if a.Tail.IsError() || b.Tail.IsError() {
		errTail, other, extra := a.Tail, b.Tail, onlyA
		if !errTail.IsError() {
			errTail, other, extra = b.Tail, a.Tail, onlyB
		}
		if other.IsError() || un.rigid[other] {
			return nil
		}
		return un.bind(other, Open{Ops: extra, Tail: errTail})
	}
	rigidA, rigidB := un.rigid[a.Tail], un.rigid[b.Tail]
	switch {
	case !rigidA && !rigidB:
		level := min(un.levelOf(a.Tail), un.levelOf(b.Tail))
		w := un.fresh(level)
		if err := un.bind(a.Tail, Open{Ops: onlyB, Tail: w}); err != nil {
			return err
		}
		return un.bind(b.Tail, Open{Ops: onlyA, Tail: w})
	case rigidA && onlyB.IsEmpty():
		// b's tail absorbs what only a has, and then continues as a's tail
		return un.bind(b.Tail, Open{Ops: onlyA, Tail: a.Tail})
	case rigidB && onlyA.IsEmpty():
		return un.bind(a.Tail, Open{Ops: onlyB, Tail: b.Tail})
	default:
		rigid := a.Tail
		if !rigidA {
			rigid = b.Tail
		}
		return &UnifyError{Kind: RowMismatch, Left: a, Right: b, Var: rigid, HasVar: true}
	}
}

// Subsume requires the effects of inferred to be included in declared, extending s so
// that it holds. Unlike Unify, declared may have more effects than inferred.
// On failure the returned Subst is s
func (u *Unifier) Subsume(inferred, declared Row, s Subst) (Subst, error) {
	un := u.begin(s)
	if err := un.subsume(inferred, declared); err != nil {
		return s, err
	}
	return un.commit(), nil
}

func (un *unification) subsume(inferred, declared Row) error {
	inferred, declared = un.subst.Normalize(inferred), un.subst.Normalize(declared)
	violation := func(missing Effect, hasMissing bool) error {
		return &UnifyError{Kind: SubsetViolation, Left: inferred, Right: declared, Missing: missing, HasMissing: hasMissing}
	}
	missing := inferred.Effects().Minus(declared.Effects())

	switch d := declared.(type) {
	case Closed:
		if !missing.IsEmpty() {
			return violation(missing.Slice()[0], true)
		}
		tail, open := TailOf(inferred)
		if !open || tail.IsError() {
			return nil
		}
		// whatever the tail turns out to be, it may only contain what was declared
		if err := un.bind(tail, d); err != nil {
			return violation(Effect{}, false)
		}
		return nil
	case Open:
		if !missing.IsEmpty() {
			if un.rigid[d.Tail] && !d.Tail.IsError() {
				return violation(missing.Slice()[0], true)
			}
			rest := un.fresh(un.levelOf(d.Tail))
			if err := un.bind(d.Tail, Open{Ops: missing, Tail: rest}); err != nil {
				return err
			}
			d = Open{Ops: d.Ops.Union(missing), Tail: rest}
			// inferred may share the tail just bound
			inferred = un.subst.Normalize(inferred)
		}
		tail, open := TailOf(inferred)
		if !open || tail == d.Tail || tail.IsError() {
			return nil
		}
		switch {
		case !un.rigid[tail]:
			return un.bind(tail, Open{Tail: d.Tail})
		case !un.rigid[d.Tail]:
			return un.bind(d.Tail, Open{Tail: tail})
		default:
			return violation(Effect{}, false)
		}
	default:
		panic(fmt.Sprintf("unexpected row variant %T", declared))
	}
}
