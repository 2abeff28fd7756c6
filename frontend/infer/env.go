package infer

import (
	"log/slog"

	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/cottand/rowfx/internal/log"
)

var logger = log.DefaultLogger.With("section", "infer")

// SignatureLookup finds the generalised signatures of already inferred functions
type SignatureLookup interface {
	Signature(name string) (types.Signature, bool)
}

// Env is what inferring a single function needs to know about the rest of its program.
// It is read-only once built, and shared by concurrent inferences
type Env struct {
	Options types.Options
	// MaxBoundIterations bounds how many times a where bound may move to the tail of a row
	MaxBoundIterations int
	// Logger is the parent of the loggers of every inferred function
	Logger *slog.Logger

	effects   map[string]*ir.EffectDecl
	aliases   map[string]*ir.EffectAlias
	functions map[string]*ir.FuncDecl
	sigs      SignatureLookup

	entries      map[string]bool
	entryAllowed types.EffectSet
}

const defaultMaxBoundIterations = 64

func NewEnv(prog *ir.Program, opts types.Options, sigs SignatureLookup) *Env {
	env := &Env{
		Options:            opts.WithDefaults(),
		MaxBoundIterations: defaultMaxBoundIterations,
		Logger:             logger,
		effects:            make(map[string]*ir.EffectDecl, len(prog.Effects)),
		aliases:            make(map[string]*ir.EffectAlias, len(prog.Aliases)),
		functions:          make(map[string]*ir.FuncDecl, len(prog.Functions)),
		sigs:               sigs,
		entries:            make(map[string]bool),
	}
	for _, e := range prog.Effects {
		env.effects[e.Name] = e
	}
	for _, a := range prog.Aliases {
		env.aliases[a.Name] = a
	}
	for _, f := range prog.Functions {
		env.functions[f.Name] = f
		if f.Entry {
			env.entries[f.Name] = true
		}
	}
	return env
}

// WithEntryPoints marks extra functions as entry points, which may only perform allowed effects
func (env *Env) WithEntryPoints(names []string, allowed ...types.Effect) *Env {
	for _, name := range names {
		if _, ok := env.functions[name]; ok {
			env.entries[name] = true
		}
	}
	env.entryAllowed = env.entryAllowed.With(allowed...)
	return env
}

func (env *Env) IsEntry(name string) bool {
	return env.entries[name]
}

func (env *Env) Effect(name string) (*ir.EffectDecl, bool) {
	decl, ok := env.effects[name]
	return decl, ok
}

func (env *Env) Function(name string) (*ir.FuncDecl, bool) {
	decl, ok := env.functions[name]
	return decl, ok
}

// resolveEffects turns the effect references of an annotation into row entries.
// Transparent aliases are replaced by their members
func (env *Env) resolveEffects(refs []ir.EffectRef) ([]types.Effect, []fxerr.Diagnostic) {
	var effects []types.Effect
	var errs []fxerr.Diagnostic
	var resolve func(ref ir.EffectRef, seen map[string]bool)
	resolve = func(ref ir.EffectRef, seen map[string]bool) {
		if alias, ok := env.aliases[ref.Name]; ok {
			if env.Options.EffectAliases == types.NominalAliases {
				effects = append(effects, types.NewEffect(ref.Name, ref.ArgStrings()...))
				return
			}
			if seen[ref.Name] {
				errs = append(errs, fxerr.New(fxerr.NewInfiniteRow{Positioner: ref.Range, Var: ref.Name, Row: ref.String()}))
				return
			}
			seen[ref.Name] = true
			for _, member := range alias.Effects {
				resolve(member, seen)
			}
			delete(seen, ref.Name)
			return
		}
		if _, ok := env.effects[ref.Name]; !ok {
			errs = append(errs, fxerr.New(fxerr.NewUndefinedEffect{Positioner: ref.Range, Name: ref.Name}))
			return
		}
		effects = append(effects, types.NewEffect(ref.Name, ref.ArgStrings()...))
	}
	for _, ref := range refs {
		resolve(ref, make(map[string]bool))
	}
	return effects, errs
}

// EntryAllowed resolves the names of effects entry points are allowed to perform
func (env *Env) EntryAllowed() types.EffectSet {
	return env.entryAllowed
}
