// Package frontend infers the effects of a whole program: it splits it into groups of
// mutually recursive functions, infers independent groups in parallel, and picks a
// compilation strategy for every effectful node
package frontend

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/infer"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/frontend/symtab"
	"github.com/cottand/rowfx/frontend/types"
	"golang.org/x/sync/errgroup"
)

// Settings tune a single inference
type Settings struct {
	// Workers bounds how many groups are inferred at once. Defaults to GOMAXPROCS
	Workers int
	// MaxGroupIterations bounds the rounds needed for the signatures of a recursive group to settle
	MaxGroupIterations int
	Options            types.Options
	// AsyncEffects are compiled with FiberSuspend
	AsyncEffects []string
	// EntryPoints are the functions whose row must be closed, on top of those marked in the program
	EntryPoints []string
	// EntryAllowed are the effects entry points may still perform
	EntryAllowed []types.Effect
}

const DefaultMaxGroupIterations = 16

func (s Settings) WithDefaults() Settings {
	if s.Workers <= 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	if s.MaxGroupIterations <= 0 {
		s.MaxGroupIterations = DefaultMaxGroupIterations
	}
	s.Options = s.Options.WithDefaults()
	return s
}

// Function is everything inferred about a single function
type Function struct {
	*infer.FuncResult
	Strategies *strategy.Annotations
}

// Result of inferring a program. Every function of the program is in Functions;
// those of a recursive group that did not converge have poisoned signatures
type Result struct {
	SessionID  string
	Program    *ir.Program
	Signatures *symtab.Table
	Functions  map[string]*Function
	// Groups lists the names of each group of functions inferred together, in dependency order
	Groups [][]string
	Errors *fxerr.Errors
}

// Ordered returns the inferred functions in the order of the program
func (r *Result) Ordered() []*Function {
	var fns []*Function
	for _, decl := range r.Program.Functions {
		if f, ok := r.Functions[decl.Name]; ok {
			fns = append(fns, f)
		}
	}
	return fns
}

type programInference struct {
	session  *Session
	settings Settings
	env      *infer.Env
	table    *symtab.Table

	mu        sync.Mutex
	functions map[string]*Function
	errors    *fxerr.Errors
}

// InferProgram infers the signature of every function of prog, and the strategies
// to compile their effects with. Diagnostics end up in Result.Errors;
// the returned error is only set when ctx is cancelled
func InferProgram(ctx context.Context, prog *ir.Program, settings Settings) (*Result, error) {
	return NewSession().InferProgram(ctx, prog, settings)
}

func (s *Session) InferProgram(ctx context.Context, prog *ir.Program, settings Settings) (*Result, error) {
	settings = settings.WithDefaults()
	if err := settings.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	table := symtab.New()
	env := infer.NewEnv(prog, settings.Options, table).WithEntryPoints(settings.EntryPoints, settings.EntryAllowed...)
	env.Logger = s.inferLogger

	p := &programInference{
		session:   s,
		settings:  settings,
		env:       env,
		table:     table,
		functions: make(map[string]*Function, len(prog.Functions)),
	}

	groups := dependencyGroups(prog)
	result := &Result{
		SessionID:  s.ID,
		Program:    prog,
		Signatures: table,
		Functions:  p.functions,
	}
	for _, g := range groups {
		result.Groups = append(result.Groups, g.names())
	}
	s.Logger.Debug("split program", "program", prog.Name, "functions", len(prog.Functions), "groups", len(groups))

	for i, wave := range waves(groups) {
		s.Logger.Debug("inferring wave", "wave", i, "groups", len(wave))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(settings.Workers)
		for _, grp := range wave {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return p.inferGroup(grp)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	result.Errors = p.errors
	return result, nil
}

func (p *programInference) inferGroup(g *group) error {
	if !g.recursive {
		res := infer.Function(p.env, g.members[0], p.session.Fresher, nil)
		return p.record(res)
	}

	assumed := make(map[string]types.Signature, len(g.members))
	for _, m := range g.members {
		assumed[m.Name] = infer.Assumed(p.env, m, p.session.Fresher)
	}
	var results []*infer.FuncResult
	for round := 1; ; round++ {
		results = results[:0]
		next := make(map[string]types.Signature, len(g.members))
		for _, m := range g.members {
			res := infer.Function(p.env, m, p.session.Fresher, assumed)
			results = append(results, res)
			next[m.Name] = res.Signature
		}
		if converged(assumed, next) {
			p.session.Logger.Debug("recursive group converged", "group", g.names(), "rounds", round)
			break
		}
		if round >= p.settings.MaxGroupIterations {
			p.mu.Lock()
			p.errors = p.errors.With(fxerr.New(fxerr.NewNonConvergence{
				Positioner: g.members[0],
				Functions:  g.names(),
				Iterations: round,
			}))
			p.mu.Unlock()
			p.session.Logger.Warn("recursive group did not converge, poisoning it", "group", g.names(), "rounds", round)
			for _, res := range results {
				res.Signature = res.Signature.Poison(p.session.Fresher.FreshError())
			}
			break
		}
		assumed = next
	}
	for _, res := range results {
		if err := p.record(res); err != nil {
			return err
		}
	}
	return nil
}

func converged(prev, next map[string]types.Signature) bool {
	for name, sig := range next {
		if prev[name].Fn == nil || prev[name].Canonical() != sig.Canonical() {
			return false
		}
	}
	return true
}

func (p *programInference) record(res *infer.FuncResult) error {
	annotations := strategy.Select(res.Decl, p.env, res.Latent, strategy.Config{AsyncEffects: p.settings.AsyncEffects})
	if err := p.table.Put(res.Decl.Name, res.Signature); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.functions[res.Decl.Name] = &Function{FuncResult: res, Strategies: annotations}
	p.errors = p.errors.Merge(res.Errors)
	return nil
}

// Failed reports whether inference produced errors, as opposed to only warnings
func (r *Result) Failed() bool {
	return r.Errors.HasError()
}

// Diagnostics returns the diagnostics of the program ordered by position
func (r *Result) Diagnostics() []fxerr.Diagnostic {
	return slices.Clone(r.Errors.Sorted())
}
