package types

import "fmt"

// RowVariance decides how the latent row of a function argument relates to the
// latent row the parameter expects
type RowVariance string

const (
	// Covariant lets an argument perform fewer effects than the parameter allows
	Covariant RowVariance = "covariant"
	// Invariant requires the rows to be equal
	Invariant RowVariance = "invariant"
)

// AliasMode decides whether an effect alias stands for its members or is a family of its own
type AliasMode string

const (
	TransparentAliases AliasMode = "transparent"
	NominalAliases     AliasMode = "nominal"
)

// Coverage decides what a handler needs in order to eliminate an effect family
type Coverage string

const (
	// FamilyCoverage eliminates a family as soon as one of its operations has a clause
	FamilyCoverage Coverage = "family"
	// CompleteCoverage only eliminates families whose every operation has a clause
	CompleteCoverage Coverage = "complete"
)

type Options struct {
	RowVariance     RowVariance `yaml:"row_variance"`
	EffectAliases   AliasMode   `yaml:"effect_aliases"`
	HandlerCoverage Coverage    `yaml:"handler_coverage"`
}

func DefaultOptions() Options {
	return Options{
		RowVariance:     Covariant,
		EffectAliases:   TransparentAliases,
		HandlerCoverage: FamilyCoverage,
	}
}

// WithDefaults fills in zero fields
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.RowVariance == "" {
		o.RowVariance = d.RowVariance
	}
	if o.EffectAliases == "" {
		o.EffectAliases = d.EffectAliases
	}
	if o.HandlerCoverage == "" {
		o.HandlerCoverage = d.HandlerCoverage
	}
	return o
}

func (o Options) Validate() error {
	switch o.RowVariance {
	case Covariant, Invariant:
	default:
		return fmt.Errorf("unknown row variance %q", o.RowVariance)
	}
	switch o.EffectAliases {
	case TransparentAliases, NominalAliases:
	default:
		return fmt.Errorf("unknown effect alias mode %q", o.EffectAliases)
	}
	switch o.HandlerCoverage {
	case FamilyCoverage, CompleteCoverage:
	default:
		return fmt.Errorf("unknown handler coverage %q", o.HandlerCoverage)
	}
	return nil
}
