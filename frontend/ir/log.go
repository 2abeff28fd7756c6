package ir

import (
	"context"
	"log/slog"
)

// maxLoggedSource bounds how much of an expression's source is rendered in a record
const maxLoggedSource = 60

// LogHandler wraps underlying so that expressions, types and declarations passed
// as attributes are only rendered once a record is actually written
func LogHandler(underlying slog.Handler) slog.Handler {
	return &irLogHandler{underlying: underlying}
}

type irLogHandler struct {
	underlying slog.Handler
}

type exprValue struct{ Expr }
type typeValue struct{ Type }

func (v exprValue) LogValue() slog.Value {
	src := ExprString(v.Expr)
	if len(src) > maxLoggedSource {
		src = src[:maxLoggedSource] + "..."
	}
	return slog.GroupValue(
		slog.String("node", v.Describe()),
		slog.String("at", RangeOf(v.Expr).String()),
		slog.String("src", src),
	)
}

func (v typeValue) LogValue() slog.Value { return slog.StringValue(TypeString(v.Type)) }

// lazy replaces the value of attr by one rendered on demand, if it holds IR
func lazy(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindAny {
		return attr
	}
	switch v := attr.Value.Any().(type) {
	case *FuncDecl:
		attr.Value = slog.StringValue(v.Name)
	case Expr:
		attr.Value = slog.AnyValue(exprValue{v})
	case Type:
		attr.Value = slog.AnyValue(typeValue{v})
	}
	return attr
}

func (h *irLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.underlying.Enabled(ctx, level)
}

func (h *irLogHandler) Handle(ctx context.Context, record slog.Record) error {
	rewritten := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		rewritten.AddAttrs(lazy(attr))
		return true
	})
	return h.underlying.Handle(ctx, rewritten)
}

func (h *irLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		rewritten[i] = lazy(attr)
	}
	return &irLogHandler{underlying: h.underlying.WithAttrs(rewritten)}
}

func (h *irLogHandler) WithGroup(name string) slog.Handler {
	return &irLogHandler{underlying: h.underlying.WithGroup(name)}
}
