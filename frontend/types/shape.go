package types

import (
	"fmt"
	"strings"
)

// Shape is the part of a value's type that matters for effects: plain values have
// no effects, while function values carry the row they perform when called
type Shape interface {
	isShape()
}

// Value is a non-function value, only kept around by name for rendering
type Value struct {
	Type string
}

// Arrow is a function value with latent effects Row
type Arrow struct {
	Params []Shape
	Ret    Shape
	Row    Row
}

func (Value) isShape()  {}
func (*Arrow) isShape() {}

var Unit Shape = Value{Type: "Unit"}

// ApplyShape normalises every row in sh through s
func ApplyShape(s Subst, sh Shape) Shape {
	return MapRows(sh, s.Normalize)
}

// MapRows rebuilds sh with f applied to every row in it
func MapRows(sh Shape, f func(Row) Row) Shape {
	switch sh := sh.(type) {
	case nil:
		return nil
	case Value:
		return sh
	case *Arrow:
		params := make([]Shape, len(sh.Params))
		for i, p := range sh.Params {
			params[i] = MapRows(p, f)
		}
		return &Arrow{Params: params, Ret: MapRows(sh.Ret, f), Row: f(sh.Row)}
	default:
		panic(fmt.Sprintf("unexpected shape %T", sh))
	}
}

// visitRows calls f on every row of sh, parameters first, in order.
// inParam tells whether the row is reachable through a parameter
func visitRows(sh Shape, inParam bool, f func(r Row, inParam bool)) {
	switch sh := sh.(type) {
	case nil, Value:
	case *Arrow:
		for _, p := range sh.Params {
			visitRows(p, true, f)
		}
		visitRows(sh.Ret, inParam, f)
		f(sh.Row, inParam)
	default:
		panic(fmt.Sprintf("unexpected shape %T", sh))
	}
}

// FreeVars lists the tails of the rows of sh, in order of appearance and without duplicates.
// sh should already be normalised
func FreeVars(sh Shape) []RowVar {
	var vars []RowVar
	seen := make(map[RowVar]bool)
	visitRows(sh, false, func(r Row, _ bool) {
		if tail, ok := TailOf(r); ok && !seen[tail] {
			seen[tail] = true
			vars = append(vars, tail)
		}
	})
	return vars
}

func showShape(sb *strings.Builder, sh Shape, names func(RowVar) string, top bool) {
	switch sh := sh.(type) {
	case nil:
		sb.WriteString("Unit")
	case Value:
		sb.WriteString(sh.Type)
	case *Arrow:
		if !top {
			sb.WriteString("Fn")
		}
		sb.WriteString("(")
		for i, p := range sh.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			showShape(sb, p, names, false)
		}
		sb.WriteString(") -> ")
		if ret, ok := sh.Ret.(*Arrow); ok {
			sb.WriteString("(")
			showShape(sb, ret, names, false)
			sb.WriteString(")")
		} else {
			showShape(sb, sh.Ret, names, false)
		}
		sb.WriteString(" !")
		sb.WriteString(ShowRow(sh.Row, names))
	default:
		panic(fmt.Sprintf("unexpected shape %T", sh))
	}
}

// ShowRow renders r with names giving the display name of every row variable
func ShowRow(r Row, names func(RowVar) string) string {
	switch r := r.(type) {
	case Closed:
		return r.String()
	case Open:
		if r.Ops.IsEmpty() {
			return names(r.Tail)
		}
		return fmt.Sprintf("{%s | %s}", r.Ops.String(), names(r.Tail))
	default:
		panic(fmt.Sprintf("unexpected row variant %T", r))
	}
}

func ShapeString(sh Shape) string {
	sb := &strings.Builder{}
	showShape(sb, sh, RowVar.String, false)
	return sb.String()
}
