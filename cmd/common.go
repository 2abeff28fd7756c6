package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cottand/rowfx/internal/log"
	"github.com/cottand/rowfx/rowfx"
	"github.com/spf13/cobra"
)

// target is a program file to infer, opened relative to its directory
type target struct {
	dir  string
	name string
	fsys fs.FS
}

func resolveTarget(arg string) (*target, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path of target: %w", err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("could not stat target: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("target %s is a directory, expected a program file", arg)
	}
	dir := filepath.Dir(abs)
	return &target{dir: dir, name: filepath.Base(abs), fsys: os.DirFS(dir)}, nil
}

func (t *target) path() string {
	return filepath.Join(t.dir, t.name)
}

// commonFlags are shared by every command which infers programs
type commonFlags struct {
	config   *string
	workers  *int
	cache    *string
	logLevel *int
	sections *[]string
}

func addCommonFlags(c *cobra.Command) *commonFlags {
	return &commonFlags{
		config:   c.Flags().String("config", "", "settings file (default: the nearest "+rowfx.SettingsFile+")"),
		workers:  c.Flags().Int("workers", 0, "groups of functions inferred in parallel (default: number of CPUs)"),
		cache:    c.Flags().String("cache", "", "path of the report cache database"),
		logLevel: c.Flags().IntP("log-level", "l", int(slog.LevelError), "log level"),
		sections: c.Flags().StringSlice("log-sections", nil, "log sections to enable below warning level"),
	}
}

// applyLogging sets up logging from the flags. It is called once per command
func (f *commonFlags) applyLogging() {
	log.SetLevel(slog.Level(*f.logLevel))
	log.EnableSections(*f.sections...)
}

// settings resolves the settings of a run on t: an explicit --config,
// else the nearest settings file, else the defaults. Flags override files
func (f *commonFlags) settings(c *cobra.Command, t *target) (rowfx.Settings, error) {
	path := *f.config
	if path == "" {
		found, err := rowfx.FindSettings(t.dir)
		if err != nil {
			return rowfx.Settings{}, err
		}
		path = found
	}
	settings := rowfx.DefaultSettings()
	if path != "" {
		loaded, err := rowfx.LoadSettings(path)
		if err != nil {
			return rowfx.Settings{}, err
		}
		settings = *loaded
	}
	if c.Flags().Changed("workers") {
		settings.Workers = *f.workers
	}
	if c.Flags().Changed("cache") {
		settings.Cache = *f.cache
	}
	return settings, settings.Validate()
}
