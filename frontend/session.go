package frontend

import (
	"log/slog"

	"github.com/cottand/rowfx/frontend/types"
	"github.com/cottand/rowfx/internal/log"
)

// Session is the inference of a single compilation unit.
// Row variables are unique within a Session, and never shared between two of them
type Session struct {
	ID      string
	Fresher *types.Fresher
	Logger  *slog.Logger
	// inferLogger is handed to the inference of every function of the session
	inferLogger *slog.Logger
}

func NewSession() *Session {
	logger, id := log.WithSession(log.DefaultLogger)
	return &Session{
		ID:          id,
		Fresher:     types.NewFresher(),
		Logger:      logger.With("section", "frontend"),
		inferLogger: logger.With("section", "infer"),
	}
}
