package types

import (
	"fmt"
	"log/slog"
	"strings"
)

// Row is an effect row. It is either Closed or Open, and nothing else:
// code matching on a Row should panic on any other variant
type Row interface {
	// Effects is the concrete part of the row
	Effects() EffectSet
	String() string
	isRow()
}

// Closed is a row with no unknown remainder. Closed{} is the pure row
type Closed struct {
	Ops EffectSet
}

// Open is a row whose remainder, Tail, is not known yet
type Open struct {
	Ops  EffectSet
	Tail RowVar
}

var Pure Row = Closed{}

func (Closed) isRow() {}
func (Open) isRow()   {}

func (r Closed) Effects() EffectSet { return r.Ops }
func (r Open) Effects() EffectSet   { return r.Ops }

func (r Closed) String() string { return "{" + r.Ops.String() + "}" }
func (r Open) String() string {
	if r.Ops.IsEmpty() {
		return r.Tail.String()
	}
	return fmt.Sprintf("{%s | %s}", r.Ops.String(), r.Tail.String())
}

func (r Closed) LogValue() slog.Value { return slog.StringValue(r.String()) }
func (r Open) LogValue() slog.Value   { return slog.StringValue(r.String()) }

func ClosedOf(effects ...Effect) Closed {
	return Closed{Ops: NewEffectSet(effects...)}
}

func OpenOf(tail RowVar, effects ...Effect) Open {
	return Open{Ops: NewEffectSet(effects...), Tail: tail}
}

func IsPure(r Row) bool {
	c, ok := r.(Closed)
	return ok && c.Ops.IsEmpty()
}

// TailOf returns the tail of r, if r is open
func TailOf(r Row) (RowVar, bool) {
	switch r := r.(type) {
	case Closed:
		return 0, false
	case Open:
		return r.Tail, true
	default:
		panic(fmt.Sprintf("unexpected row variant %T", r))
	}
}

// RowsEqual is structural equality, ignoring insertion order
func RowsEqual(a, b Row) bool {
	switch a := a.(type) {
	case Closed:
		b, ok := b.(Closed)
		return ok && a.Ops.Equal(b.Ops)
	case Open:
		b, ok := b.(Open)
		return ok && a.Tail == b.Tail && a.Ops.Equal(b.Ops)
	default:
		panic(fmt.Sprintf("unexpected row variant %T", a))
	}
}

// Canonical renders r with its effects sorted, so that two equal rows
// render identically
func Canonical(r Row) string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for i, e := range r.Effects().Sorted() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Hash())
	}
	if tail, ok := TailOf(r); ok {
		sb.WriteString(" | ")
		sb.WriteString(tail.String())
	}
	sb.WriteString("}")
	return sb.String()
}

func withOps(r Row, ops EffectSet) Row {
	switch r := r.(type) {
	case Closed:
		return Closed{Ops: ops}
	case Open:
		return Open{Ops: ops, Tail: r.Tail}
	default:
		panic(fmt.Sprintf("unexpected row variant %T", r))
	}
}

type ConstraintKind uint8

const (
	// Equal requires both rows to unify
	Equal ConstraintKind = iota
	// Subset requires Left to be included in Right
	Subset
)

// Constraint is an obligation between two rows which the Unifier has to discharge
type Constraint struct {
	Kind        ConstraintKind
	Left, Right Row
}

func (c Constraint) String() string {
	op := "~"
	if c.Kind == Subset {
		op = "<:"
	}
	return fmt.Sprintf("%v %s %v", c.Left, op, c.Right)
}

// Union merges two rows. If both rows have tails, the result keeps the tail of a,
// and the returned residual constraint requires both tails to be unified
func Union(a, b Row) (Row, []Constraint) {
	ops := a.Effects().Union(b.Effects())
	switch a := a.(type) {
	case Closed:
		return withOps(b, ops), nil
	case Open:
		switch b := b.(type) {
		case Closed:
			return Open{Ops: ops, Tail: a.Tail}, nil
		case Open:
			if a.Tail == b.Tail {
				return Open{Ops: ops, Tail: a.Tail}, nil
			}
			residual := Constraint{Kind: Equal, Left: Open{Tail: a.Tail}, Right: Open{Tail: b.Tail}}
			return Open{Ops: ops, Tail: a.Tail}, []Constraint{residual}
		default:
			panic(fmt.Sprintf("unexpected row variant %T", b))
		}
	default:
		panic(fmt.Sprintf("unexpected row variant %T", a))
	}
}

// Subtract removes every effect matched by handled from r.
// The tail, if any, is left untouched: nothing is known about what it may contain
func Subtract(r Row, handled ...Effect) Row {
	return withOps(r, r.Effects().Without(handled...))
}

type Membership uint8

const (
	Absent Membership = iota
	Present
	// Unknown means e is not in the concrete part of an open row,
	// and so the row may still contain it
	Unknown
)

func (m Membership) String() string {
	switch m {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

func Contains(r Row, e Effect) Membership {
	if r.Effects().Contains(e) {
		return Present
	}
	if _, open := TailOf(r); open {
		return Unknown
	}
	return Absent
}
