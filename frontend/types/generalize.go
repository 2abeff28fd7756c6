package types

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Signature is the generalised effect type of a function
type Signature struct {
	Quantified []RowVar
	Fn         *Arrow
	// Bounds keeps the `where v: subset_of(...)` bounds of quantified variables,
	// to be checked again wherever the signature is instantiated
	Bounds map[RowVar]EffectSet
	// Poisoned signatures mention error rows: the function failed to type-check,
	// and its row must not be trusted to be complete
	Poisoned bool
}

// Row is the row performed when calling the function
func (s Signature) Row() Row {
	return s.Fn.Row
}

// Names gives the quantified variables of s their display names: r, r1, r2...
func (s Signature) Names() map[RowVar]string {
	names := make(map[RowVar]string, len(s.Quantified))
	for i, v := range s.Quantified {
		if i == 0 {
			names[v] = "r"
		} else {
			names[v] = fmt.Sprint("r", i)
		}
	}
	return names
}

// String renders s with its quantified variables renamed by Names
func (s Signature) String() string {
	names := s.Names()
	sb := &strings.Builder{}
	if len(s.Quantified) > 0 {
		sb.WriteString("forall ")
		for i, v := range s.Quantified {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(names[v])
		}
		sb.WriteString(". ")
	}
	nameOf := func(v RowVar) string {
		if name, ok := names[v]; ok {
			return name
		}
		return v.String()
	}
	showShape(sb, s.Fn, nameOf, true)
	var bounded []string
	for _, v := range s.Quantified {
		if bound, ok := s.Bounds[v]; ok {
			bounded = append(bounded, fmt.Sprintf("%s: subset_of({%s})", names[v], bound.String()))
		}
	}
	if len(bounded) > 0 {
		sb.WriteString(" where ")
		sb.WriteString(strings.Join(bounded, ", "))
	}
	return sb.String()
}

// CloseDangling binds to {} every variable above level that appears in fn but is not
// reachable from any of its parameters. Nothing can ever flow into such a variable,
// so it only stands for slack introduced by Subsume
func (u *Unifier) CloseDangling(fn *Arrow, s Subst, above Level) Subst {
	normalized := ApplyShape(s, fn).(*Arrow)
	fromParams := make(map[RowVar]bool)
	var candidates []RowVar
	visitRows(normalized, false, func(r Row, inParam bool) {
		tail, ok := TailOf(r)
		if !ok {
			return
		}
		if inParam {
			fromParams[tail] = true
			return
		}
		candidates = append(candidates, tail)
	})
	for _, v := range candidates {
		if fromParams[v] || v.IsError() || u.rigid[v] || u.LevelOf(v) <= above {
			continue
		}
		if _, bound := s.Lookup(v); bound {
			continue
		}
		s = s.bind(v, Pure)
	}
	return s
}

// Generalize quantifies the variables of fn whose level is strictly above the
// enclosing level. Variables at or below it belong to an enclosing scope, which
// quantifies them itself; doing it here too would generalise them twice
func (u *Unifier) Generalize(fn *Arrow, s Subst, above Level, bounds map[RowVar]EffectSet) Signature {
	normalized := ApplyShape(s, fn).(*Arrow)
	sig := Signature{Fn: normalized}
	for _, v := range FreeVars(normalized) {
		if v.IsError() {
			sig.Poisoned = true
			continue
		}
		if u.LevelOf(v) <= above {
			continue
		}
		sig.Quantified = append(sig.Quantified, v)
		if bound, ok := bounds[v]; ok {
			if sig.Bounds == nil {
				sig.Bounds = make(map[RowVar]EffectSet)
			}
			sig.Bounds[v] = bound
		}
	}
	return sig
}

// Instantiate replaces the quantified variables of sig by fresh ones at level,
// returning the bounds that now apply to the fresh variables
func (u *Unifier) Instantiate(sig Signature, level Level) (*Arrow, map[RowVar]EffectSet) {
	if len(sig.Quantified) == 0 {
		return sig.Fn, nil
	}
	renaming := make(map[RowVar]RowVar, len(sig.Quantified))
	bounds := make(map[RowVar]EffectSet)
	for _, v := range sig.Quantified {
		fresh := u.Fresh(level)
		renaming[v] = fresh
		if bound, ok := sig.Bounds[v]; ok {
			bounds[fresh] = bound
		}
	}
	rename := func(r Row) Row {
		open, ok := r.(Open)
		if !ok {
			return r
		}
		if fresh, ok := renaming[open.Tail]; ok {
			return Open{Ops: open.Ops, Tail: fresh}
		}
		return r
	}
	return MapRows(sig.Fn, rename).(*Arrow), bounds
}

func (s Signature) LogValue() slog.Value { return slog.StringValue(s.String()) }

// Poison marks s as not to be trusted: its row keeps the effects already found
// but is opened with the error variable tail, so that callers absorb whatever is missing
func (s Signature) Poison(tail RowVar) Signature {
	fn := *s.Fn
	fn.Row = Open{Ops: s.Fn.Row.Effects(), Tail: tail}
	s.Fn = &fn
	free := FreeVars(&fn)
	s.Quantified = slices.DeleteFunc(slices.Clone(s.Quantified), func(v RowVar) bool {
		return !slices.Contains(free, v)
	})
	s.Poisoned = true
	return s
}

// Canonical renders the signature such that two alpha-equivalent signatures render the same.
// Used to detect when a recursive group has converged
func (s Signature) Canonical() string {
	c := s
	c.Fn = MapRows(s.Fn, func(r Row) Row {
		return withOps(r, NewEffectSet(r.Effects().Sorted()...))
	}).(*Arrow)
	str := c.String()
	if s.Poisoned {
		return str + " (poisoned)"
	}
	return str
}

// Arity is the number of parameters of the function
func (s Signature) Arity() int {
	return len(s.Fn.Params)
}
