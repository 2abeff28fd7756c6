package log

import (
	"bytes"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnableSectionsTwice(t *testing.T) {
	EnableSections("backend", "backend")
	EnableSections("backend")

	sectionsMu.RLock()
	defer sectionsMu.RUnlock()
	count := 0
	for _, s := range enabledSections {
		if s == "backend" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, slices.Contains(enabledSections, "infer"))
}

func TestRecordsAreFilteredBySection(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(&filteringHandler{underlying: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})

	logger.With("section", "infer").Debug("kept")
	logger.With("section", "not-enabled").Debug("dropped")
	logger.With("section", "not-enabled").Warn("warned")

	out := buf.String()
	assert.Contains(t, out, "msg=kept")
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=warned")
}
