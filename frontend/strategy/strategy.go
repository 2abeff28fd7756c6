// Package strategy decides how each effect operation should be compiled.
//
// The decision is syntactic: it only looks at where resume appears in the body
// of the handler clause that intercepts an operation
package strategy

import (
	"fmt"
	"slices"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/cottand/rowfx/internal/log"
)

var logger = log.DefaultLogger.With("section", "strategy")

// Tag is a compilation strategy. Tags are ordered from cheapest to most general
type Tag uint8

const (
	// Direct needs no effect machinery at all
	Direct Tag = iota
	// EvidencePassing compiles an operation to a call through the handler's evidence:
	// the clause resumes exactly once, as its last action
	EvidencePassing
	// LocalCPS reifies the continuation locally: the clause resumes exactly once, but not last
	LocalCPS
	// FullCPS needs a first-class continuation: the clause resumes never,
	// more than once, or lets the continuation escape
	FullCPS
	// FiberSuspend suspends the running fiber, for asynchronous effects
	FiberSuspend
)

var tagNames = [...]string{"Direct", "EvidencePassing", "LocalCPS", "FullCPS", "FiberSuspend"}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", t)
}

func ParseTag(s string) (Tag, error) {
	i := slices.Index(tagNames[:], s)
	if i < 0 {
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
	return Tag(i), nil
}

func (t Tag) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ForKind is the strategy used for operations of an effect declared with kind when
// no handler is lexically visible, so that the clause cannot be inspected
func ForKind(kind ir.ResumeKind) Tag {
	switch kind {
	case ir.TailResumptive:
		return EvidencePassing
	case ir.OneShot:
		return LocalCPS
	default:
		return FullCPS
	}
}

// Dominant is the most general of tags, Direct if there are none
func Dominant(tags ...Tag) Tag {
	if len(tags) == 0 {
		return Direct
	}
	return slices.Max(tags)
}

// Effects is the part of the program the selector needs to know about
type Effects interface {
	Effect(name string) (*ir.EffectDecl, bool)
}

type Config struct {
	// AsyncEffects are the families suspending the running fiber, on top of
	// those whose declaration says so
	AsyncEffects []string
}

// Annotations are the strategies chosen within one function
type Annotations struct {
	Ops     map[*ir.Perform]Tag
	Clauses map[*ir.Clause]Tag
	Calls   map[*ir.Call]Tag
}

func (a *Annotations) Len() int {
	return len(a.Ops) + len(a.Clauses) + len(a.Calls)
}

type selector struct {
	effects Effects
	config  Config
	latent  map[*ir.Call]types.Row
	result  *Annotations
}

// Select tags every operation, handler clause and call of decl.
// latent holds the solved latent row of the callee at each call
func Select(decl *ir.FuncDecl, effects Effects, latent map[*ir.Call]types.Row, config Config) *Annotations {
	s := &selector{
		effects: effects,
		config:  config,
		latent:  latent,
		result: &Annotations{
			Ops:     make(map[*ir.Perform]Tag),
			Clauses: make(map[*ir.Clause]Tag),
			Calls:   make(map[*ir.Call]Tag),
		},
	}
	if decl.Body != nil {
		s.walk(decl.Body, nil)
	}
	logger.Debug("selected strategies", "function", decl, "annotations", s.result.Len())
	return s.result
}

// handlerFrame is a handler lexically enclosing the expression being walked
type handlerFrame struct {
	parent  *handlerFrame
	handle  *ir.Handle
	clauses map[string]*ir.Clause
}

// find returns the innermost enclosing clause for effect.op
func (f *handlerFrame) find(effect, op string) (*ir.Clause, bool) {
	for ; f != nil; f = f.parent {
		if cl, ok := f.clauses[effect+"."+op]; ok {
			return cl, true
		}
	}
	return nil, false
}

// handles returns the innermost enclosing clause of any operation of family
func (f *handlerFrame) handles(family string) []*ir.Clause {
	for ; f != nil; f = f.parent {
		var found []*ir.Clause
		for _, cl := range f.handle.Clauses {
			if cl.Effect == family {
				found = append(found, cl)
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

func (s *selector) isAsync(family string) bool {
	if slices.Contains(s.config.AsyncEffects, family) {
		return true
	}
	decl, ok := s.effects.Effect(family)
	return ok && decl.Suspends
}

func (s *selector) clauseTag(cl *ir.Clause) Tag {
	if tag, ok := s.result.Clauses[cl]; ok {
		return tag
	}
	var tag Tag
	if s.isAsync(cl.Effect) {
		tag = FiberSuspend
	} else {
		tag = Classify(cl.Body)
	}
	s.result.Clauses[cl] = tag
	return tag
}

// familyTag is the strategy for operations of family performed under frame
func (s *selector) familyTag(family string, frame *handlerFrame) Tag {
	if s.isAsync(family) {
		return FiberSuspend
	}
	if clauses := frame.handles(family); len(clauses) > 0 {
		tags := make([]Tag, len(clauses))
		for i, cl := range clauses {
			tags[i] = s.clauseTag(cl)
		}
		return Dominant(tags...)
	}
	if decl, ok := s.effects.Effect(family); ok {
		return ForKind(decl.Kind)
	}
	return FullCPS
}

func (s *selector) walk(e ir.Expr, frame *handlerFrame) {
	switch e := e.(type) {
	case *ir.Perform:
		tag := FiberSuspend
		if !s.isAsync(e.Effect) {
			if cl, ok := frame.find(e.Effect, e.Op); ok {
				tag = s.clauseTag(cl)
			} else if decl, ok := s.effects.Effect(e.Effect); ok {
				tag = ForKind(decl.Kind)
			} else {
				tag = FullCPS
			}
		}
		s.result.Ops[e] = tag
	case *ir.Call:
		s.result.Calls[e] = s.callTag(e, frame)
	case *ir.Lambda:
		// the body runs wherever the function is called, so no handler is known to enclose it
		s.walk(e.Body, nil)
		return
	case *ir.Handle:
		inner := &handlerFrame{parent: frame, handle: e, clauses: make(map[string]*ir.Clause)}
		for _, cl := range e.Clauses {
			if _, dup := inner.clauses[cl.QualifiedOp()]; !dup {
				inner.clauses[cl.QualifiedOp()] = cl
			}
			s.clauseTag(cl)
		}
		s.walk(e.Body, inner)
		// clauses and the return clause run outside of the handler
		for _, cl := range e.Clauses {
			s.walk(cl.Body, frame)
		}
		if e.Return != nil {
			s.walk(e.Return.Body, frame)
		}
		return
	}
	for _, child := range ir.Children(e) {
		s.walk(child, frame)
	}
}

// callTag is Direct for calls of pure functions, and otherwise the most general
// strategy among the effects the callee may perform
func (s *selector) callTag(call *ir.Call, frame *handlerFrame) Tag {
	row, ok := s.latent[call]
	if !ok || types.IsPure(row) {
		return Direct
	}
	var tags []Tag
	for _, e := range row.Effects().Slice() {
		tags = append(tags, s.familyTag(e.Name, frame))
	}
	if _, open := types.TailOf(row); open {
		// whatever the callee is polymorphic over may need a full continuation
		tags = append(tags, FullCPS)
	}
	return Dominant(tags...)
}
