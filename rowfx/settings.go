package rowfx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/types"
	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the file settings are looked up in
const SettingsFile = "rowfx.yaml"

// Settings represents a rowfx.yaml configuration
type Settings struct {
	// Workers bounds how many groups of functions are inferred in parallel.
	// Defaults to the number of CPUs
	Workers int `yaml:"workers,omitempty"`

	// MaxGroupIterations bounds the rounds of inference of a group of
	// mutually recursive functions before giving up
	MaxGroupIterations int `yaml:"max_group_iterations,omitempty"`

	types.Options `yaml:",inline"`

	// AsyncEffects are the effect families compiled by suspending the running fiber
	AsyncEffects []string `yaml:"async_effects,omitempty"`

	// EntryPoints are functions which may not let effects escape, other than
	// EntryAllowedEffects
	EntryPoints []string `yaml:"entry_points,omitempty"`

	// EntryAllowedEffects are written like in annotations: `Console`, `State[Int]`.
	// An effect without arguments allows every instantiation of its family
	EntryAllowedEffects []string `yaml:"entry_allowed_effects,omitempty"`

	// Cache is the path of the database results are cached in. Empty disables caching
	Cache string `yaml:"cache,omitempty"`
}

func DefaultSettings() Settings {
	s := Settings{}
	s.setDefaults()
	return s
}

// LoadSettings reads and parses a rowfx.yaml file
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings parses rowfx.yaml content from bytes.
// The path argument is used only for error messages
func ParseSettings(data []byte, path string) (*Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && len(bytes.TrimSpace(data)) > 0 {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.setDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// FindSettings searches for rowfx.yaml starting from dir and walking up
// to parent directories. It returns an empty path if there is none
func FindSettings(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, SettingsFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (s *Settings) setDefaults() {
	if s.MaxGroupIterations == 0 {
		s.MaxGroupIterations = frontend.DefaultMaxGroupIterations
	}
	s.Options = s.Options.WithDefaults()
	if s.AsyncEffects == nil {
		s.AsyncEffects = []string{"Async", "Channel"}
	}
	if s.EntryPoints == nil {
		s.EntryPoints = []string{"main"}
	}
}

// Validate checks the settings for semantic errors
func (s *Settings) Validate() error {
	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}
	if s.MaxGroupIterations < 0 {
		return fmt.Errorf("max_group_iterations must not be negative, got %d", s.MaxGroupIterations)
	}
	if err := s.Options.Validate(); err != nil {
		return err
	}
	if _, err := s.entryAllowed(); err != nil {
		return err
	}
	return nil
}

func (s *Settings) entryAllowed() ([]types.Effect, error) {
	effects := make([]types.Effect, 0, len(s.EntryAllowedEffects))
	for i, src := range s.EntryAllowedEffects {
		p := newTypeParser(src, rangeNone, nil)
		ref := p.parseEffectRef()
		if err := p.done(); err != nil {
			return nil, fmt.Errorf("entry_allowed_effects[%d]: %w", i, err)
		}
		effects = append(effects, types.NewEffect(ref.Name, ref.ArgStrings()...))
	}
	return effects, nil
}

// Frontend converts s into the settings of a single inference
func (s *Settings) Frontend() (frontend.Settings, error) {
	allowed, err := s.entryAllowed()
	if err != nil {
		return frontend.Settings{}, err
	}
	return frontend.Settings{
		Workers:            s.Workers,
		MaxGroupIterations: s.MaxGroupIterations,
		Options:            s.Options,
		AsyncEffects:       s.AsyncEffects,
		EntryPoints:        s.EntryPoints,
		EntryAllowed:       allowed,
	}, nil
}
