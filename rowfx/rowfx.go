// Package rowfx infers the effects of programs written in the YAML encoding of the typed AST,
// and picks how each effect should be compiled
package rowfx

import (
	"context"
	"go/token"
	"io/fs"

	"github.com/cottand/rowfx/backend"
	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/internal/cache"
	"github.com/cottand/rowfx/internal/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var logger = log.DefaultLogger.With("section", "rowfx")

// Infer runs inference on an already loaded program
func Infer(ctx context.Context, prog *ir.Program, settings Settings) (*frontend.Result, error) {
	frontendSettings, err := settings.Frontend()
	if err != nil {
		return nil, err
	}
	return frontend.InferProgram(ctx, prog, frontendSettings)
}

// Outcome is the report of a program, and the full result of inferring it
// unless the report came from the cache
type Outcome struct {
	Report *backend.Report
	// Result is nil when Cached is set
	Result *frontend.Result
	Cached bool
}

// Run loads the program at path in fsys, infers it and emits its report.
// When settings name a cache, reports of unchanged programs are read from it
func Run(ctx context.Context, fsys fs.FS, path string, settings Settings) (*Outcome, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading program %s", path)
	}

	var c *cache.Cache
	var key string
	if settings.Cache != "" {
		if c, err = cache.Open(ctx, settings.Cache); err != nil {
			return nil, err
		}
		defer c.Close()
		if key, err = cacheKey(path, data, settings); err != nil {
			return nil, err
		}
		cached, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			report, err := backend.UnmarshalReport(cached)
			if err == nil {
				logger.Debug("using cached report", "path", path)
				return &Outcome{Report: report, Cached: true}, nil
			}
			logger.Warn("ignoring unreadable cached report", "path", path, "err", err)
		}
	}

	prog, err := ParseProgram(data, path, token.NewFileSet())
	if err != nil {
		return nil, err
	}
	result, err := Infer(ctx, prog, settings)
	if err != nil {
		return nil, err
	}
	report := backend.Emit(result)
	if c != nil {
		encoded, err := report.Marshal()
		if err != nil {
			return nil, err
		}
		if err := c.Put(ctx, key, encoded); err != nil {
			return nil, err
		}
	}
	return &Outcome{Report: report, Result: result}, nil
}

// cacheKey covers everything a report depends on: the program and its path,
// which diagnostics point at, the settings that affect inference, and the
// version of the report format
func cacheKey(path string, program []byte, settings Settings) (string, error) {
	// workers and the cache location do not change the report
	settings.Workers = 0
	settings.Cache = ""
	encodedSettings, err := yaml.Marshal(settings)
	if err != nil {
		return "", errors.Wrap(err, "encoding settings")
	}
	return cache.Key([]byte(path), program, encodedSettings, []byte(backend.ReportVersion), preludeSource), nil
}
