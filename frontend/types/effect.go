package types

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Effect is a single entry of an effect row: a family name plus its
// (already rendered) type arguments, like State[Int]
type Effect struct {
	Name string
	Args []string
}

var _ set.Hasher[string] = Effect{}

func NewEffect(name string, args ...string) Effect {
	return Effect{Name: name, Args: args}
}

// Hash is the canonical key of the effect. Two effects are the same effect
// iff their hashes are equal
func (e Effect) Hash() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	return e.Name + "[" + strings.Join(e.Args, ", ") + "]"
}

func (e Effect) String() string { return e.Hash() }

// Matches reports whether e is eliminated by a handler pattern.
// A pattern without type arguments matches every instantiation of its family
func (e Effect) Matches(pattern Effect) bool {
	if e.Name != pattern.Name {
		return false
	}
	return len(pattern.Args) == 0 || slices.Equal(e.Args, pattern.Args)
}

// EffectSet is an immutable, deduplicated set of Effect.
// Insertion order is remembered so that diagnostics are reproducible,
// but it plays no part in equality
type EffectSet struct {
	ordered []Effect
	index   *set.HashSet[Effect, string]
}

func NewEffectSet(effects ...Effect) EffectSet {
	s := EffectSet{
		ordered: make([]Effect, 0, len(effects)),
		index:   set.NewHashSet[Effect, string](len(effects)),
	}
	for _, e := range effects {
		if s.index.Insert(e) {
			s.ordered = append(s.ordered, e)
		}
	}
	return s
}

func (s EffectSet) Len() int { return len(s.ordered) }

func (s EffectSet) IsEmpty() bool { return len(s.ordered) == 0 }

// Slice returns the effects in insertion order. It must not be modified
func (s EffectSet) Slice() []Effect { return s.ordered }

func (s EffectSet) Contains(e Effect) bool {
	if s.index == nil {
		return false
	}
	return s.index.Contains(e)
}

// ContainsMatch reports whether some effect in s is matched by pattern
func (s EffectSet) ContainsMatch(pattern Effect) bool {
	return slices.ContainsFunc(s.ordered, func(e Effect) bool { return e.Matches(pattern) })
}

func (s EffectSet) With(effects ...Effect) EffectSet {
	return NewEffectSet(append(slices.Clone(s.ordered), effects...)...)
}

func (s EffectSet) Union(other EffectSet) EffectSet {
	if other.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return other
	}
	return s.With(other.ordered...)
}

// Minus returns the effects of s not in other, keeping the order of s
func (s EffectSet) Minus(other EffectSet) EffectSet {
	if other.IsEmpty() {
		return s
	}
	var kept []Effect
	for _, e := range s.ordered {
		if !other.Contains(e) {
			kept = append(kept, e)
		}
	}
	return NewEffectSet(kept...)
}

// Without removes every effect matched by one of the handler patterns
func (s EffectSet) Without(patterns ...Effect) EffectSet {
	var kept []Effect
	for _, e := range s.ordered {
		if !slices.ContainsFunc(patterns, e.Matches) {
			kept = append(kept, e)
		}
	}
	return NewEffectSet(kept...)
}

// SubsetOf returns ok if every effect of s is in other, otherwise
// the first effect (in insertion order) which is missing
func (s EffectSet) SubsetOf(other EffectSet) (missing Effect, ok bool) {
	for _, e := range s.ordered {
		if !other.Contains(e) {
			return e, false
		}
	}
	return Effect{}, true
}

func (s EffectSet) Equal(other EffectSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	_, ok := s.SubsetOf(other)
	return ok
}

// Sorted returns the effects ordered by their canonical key,
// for when a deterministic rendering independent of insertion order is needed
func (s EffectSet) Sorted() []Effect {
	sorted := slices.Clone(s.ordered)
	slices.SortFunc(sorted, func(a, b Effect) int { return strings.Compare(a.Hash(), b.Hash()) })
	return sorted
}

func (s EffectSet) String() string {
	sb := strings.Builder{}
	for i, e := range s.ordered {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Hash())
	}
	return sb.String()
}
