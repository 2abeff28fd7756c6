package ir_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/stretchr/testify/assert"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(ir.LogHandler(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestLogHandlerRendersIR(t *testing.T) {
	buf := &bytes.Buffer{}
	decl := &ir.FuncDecl{Name: "main"}
	logger := testLogger(buf).With("function", decl)

	logger.Debug("checking", "expr", &ir.Perform{Effect: "Console", Op: "print"}, "type", &ir.TypeName{Name: "Int"})

	out := buf.String()
	assert.Contains(t, out, "function=main")
	assert.Contains(t, out, `expr.node="effect operation"`)
	assert.Contains(t, out, "type=Int")
}

func TestLogHandlerTruncatesLongExpressions(t *testing.T) {
	buf := &bytes.Buffer{}
	long := strings.Repeat("x", 200)

	testLogger(buf).Info("literal", "expr", &ir.Literal{Syntax: long})

	out := buf.String()
	assert.NotContains(t, out, long)
	assert.Contains(t, out, strings.Repeat("x", 60)+"...")
}
