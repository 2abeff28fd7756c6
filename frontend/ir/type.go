package ir

import (
	"strings"
)

// Type is a value type, as produced by the upstream type checker.
// The effect engine only inspects them to find function-typed values
// and to check that handler clauses agree on their result type
type Type interface {
	Positioner
	typeNode()
}

// TypeName is a (possibly applied) named type, like Int or List[a]
type TypeName struct {
	Range
	Name string
	Args []Type
}

// TypeVar is a value type variable, like the a in List[a]
type TypeVar struct {
	Range
	Name string
}

// FnType is a function type. Effects is the declared latent row, if there is one
type FnType struct {
	Range
	Params  []Type
	Ret     Type
	Effects *RowAnnotation
}

func (*TypeName) typeNode() {}
func (*TypeVar) typeNode()  {}
func (*FnType) typeNode()   {}

// RowAnnotation is a written effect row: `{Console, State[Int] | r}`, or just `r`
type RowAnnotation struct {
	Range
	Effects []EffectRef
	// Tail is the name of the row variable, empty for a closed row
	Tail string
}

// EffectRef names an effect family or alias in an annotation or a handler pattern
type EffectRef struct {
	Range
	Name string
	Args []Type
}

var UnitType Type = &TypeName{Name: "Unit"}

func TypeString(t Type) string {
	sb := &strings.Builder{}
	showType(sb, t)
	return sb.String()
}

func showType(sb *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		sb.WriteString("Unit")
	case *TypeName:
		sb.WriteString(t.Name)
		showTypeArgs(sb, t.Args)
	case *TypeVar:
		sb.WriteString(t.Name)
	case *FnType:
		sb.WriteString("Fn(")
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			showType(sb, p)
		}
		sb.WriteString(") -> ")
		showType(sb, t.Ret)
		if t.Effects != nil {
			sb.WriteString(" !")
			sb.WriteString(t.Effects.String())
		}
	}
}

func showTypeArgs(sb *strings.Builder, args []Type) {
	if len(args) == 0 {
		return
	}
	sb.WriteString("[")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		showType(sb, a)
	}
	sb.WriteString("]")
}

func (r EffectRef) String() string {
	sb := &strings.Builder{}
	sb.WriteString(r.Name)
	showTypeArgs(sb, r.Args)
	return sb.String()
}

// ArgStrings renders the type arguments of the reference
func (r EffectRef) ArgStrings() []string {
	if len(r.Args) == 0 {
		return nil
	}
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		args[i] = TypeString(a)
	}
	return args
}

func (a *RowAnnotation) String() string {
	if a == nil {
		return "{}"
	}
	if len(a.Effects) == 0 && a.Tail != "" {
		return a.Tail
	}
	sb := &strings.Builder{}
	sb.WriteString("{")
	for i, e := range a.Effects {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	if a.Tail != "" {
		sb.WriteString(" | ")
		sb.WriteString(a.Tail)
	}
	sb.WriteString("}")
	return sb.String()
}
