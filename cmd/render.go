package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/cottand/rowfx/backend"
	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
)

// renderer writes diagnostics, in colour when writing to a terminal
type renderer struct {
	out   io.Writer
	color bool
}

func newRenderer(out *os.File) *renderer {
	color := (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())) && os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
	return &renderer{out: out, color: color}
}

func (r *renderer) paint(color, s string) string {
	if !r.color {
		return s
	}
	return color + s + colorReset
}

func (r *renderer) diagnostic(d backend.DiagnosticReport) {
	color := colorRed
	if d.Severity == "warning" {
		color = colorYellow
	}
	at := ""
	if d.At != "" {
		at = r.paint(colorBold, d.At) + ": "
	}
	_, _ = fmt.Fprintf(r.out, "%s%s: [%s] %s\n", at, r.paint(color, d.Severity), d.Code, d.Message)
}

// diagnostics renders every diagnostic of report and returns how many were errors
func (r *renderer) diagnostics(report *backend.Report) (errors int) {
	for _, d := range report.Diagnostics {
		r.diagnostic(d)
		if d.Severity == "error" {
			errors++
		}
	}
	return errors
}

func (r *renderer) summary(report *backend.Report, cached bool) {
	status := r.paint(colorBold, "ok")
	if report.Failed {
		status = r.paint(colorRed, "failed")
	}
	suffix := ""
	if cached {
		suffix = " (cached)"
	}
	_, _ = fmt.Fprintf(r.out, "%s: %s, %d functions in %d groups%s\n", report.Program, status, len(report.Functions), len(report.Groups), suffix)
}
