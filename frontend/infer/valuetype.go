package infer

import (
	"github.com/cottand/rowfx/frontend/ir"
)

// valueSubst is a first-order unifier over value types. Value types arrive checked,
// so it only needs to decide whether the types written on handler clauses agree
type valueSubst struct {
	bound map[string]ir.Type
}

func newValueSubst() *valueSubst {
	return &valueSubst{bound: make(map[string]ir.Type)}
}

func (s *valueSubst) resolve(t ir.Type) ir.Type {
	for {
		v, ok := t.(*ir.TypeVar)
		if !ok {
			return t
		}
		next, ok := s.bound[v.Name]
		if !ok {
			return t
		}
		t = next
	}
}

func (s *valueSubst) occurs(name string, t ir.Type) bool {
	switch t := s.resolve(t).(type) {
	case *ir.TypeVar:
		return t.Name == name
	case *ir.TypeName:
		for _, a := range t.Args {
			if s.occurs(name, a) {
				return true
			}
		}
	case *ir.FnType:
		for _, p := range t.Params {
			if s.occurs(name, p) {
				return true
			}
		}
		return s.occurs(name, t.Ret)
	}
	return false
}

func (s *valueSubst) unify(a, b ir.Type) bool {
	if a == nil {
		a = ir.UnitType
	}
	if b == nil {
		b = ir.UnitType
	}
	a, b = s.resolve(a), s.resolve(b)
	if va, ok := a.(*ir.TypeVar); ok {
		if vb, ok := b.(*ir.TypeVar); ok && va.Name == vb.Name {
			return true
		}
		if s.occurs(va.Name, b) {
			return false
		}
		s.bound[va.Name] = b
		return true
	}
	if _, ok := b.(*ir.TypeVar); ok {
		return s.unify(b, a)
	}
	switch a := a.(type) {
	case *ir.TypeName:
		b, ok := b.(*ir.TypeName)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !s.unify(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	case *ir.FnType:
		b, ok := b.(*ir.FnType)
		if !ok || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !s.unify(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return s.unify(a.Ret, b.Ret)
	default:
		return false
	}
}
