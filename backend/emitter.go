package backend

import (
	"fmt"
	"go/token"
	"log/slog"

	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/infer"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/cottand/rowfx/internal/log"
)

// Emitter turns a frontend.Result into a Report
type Emitter struct {
	result *frontend.Result
	fset   *token.FileSet

	*slog.Logger
}

func NewEmitter(result *frontend.Result) *Emitter {
	return &Emitter{
		result: result,
		fset:   result.Program.FileSet,
		Logger: log.DefaultLogger.With("section", "backend"),
	}
}

// Emit builds the report of result
func Emit(result *frontend.Result) *Report {
	return NewEmitter(result).EmitProgram()
}

func (em *Emitter) EmitProgram() *Report {
	report := &Report{
		Version: ReportVersion,
		Program: em.result.Program.Name,
		Failed:  em.result.Failed(),
		Groups:  em.result.Groups,
	}
	for _, fn := range em.result.Ordered() {
		report.Functions = append(report.Functions, em.emitFunction(fn))
	}
	for _, diag := range em.result.Errors.Sorted() {
		report.Diagnostics = append(report.Diagnostics, em.emitDiagnostic(diag))
	}
	em.Debug("emitted report", "program", report.Program, "functions", len(report.Functions))
	return report
}

func (em *Emitter) at(p ir.Positioner) string {
	if pos := ir.Position(em.fset, p); pos.IsValid() {
		return pos.String()
	}
	return ""
}

// rowNamer names the row variables of a function for display. Quantified variables
// get their names from the signature, others are numbered as they are met, so
// that reports do not depend on the order functions were inferred in
type rowNamer struct {
	names map[types.RowVar]string
	next  int
}

func newRowNamer(sig types.Signature) *rowNamer {
	return &rowNamer{names: sig.Names()}
}

func (n *rowNamer) name(v types.RowVar) string {
	if v.IsError() {
		return v.String()
	}
	if name, ok := n.names[v]; ok {
		return name
	}
	name := "e"
	if n.next > 0 {
		name = fmt.Sprint("e", n.next)
	}
	n.next++
	n.names[v] = name
	return name
}

func (n *rowNamer) row(r types.Row) string {
	return types.ShowRow(r, n.name)
}

func (em *Emitter) emitFunction(fn *frontend.Function) FunctionReport {
	sig := fn.Signature
	names := newRowNamer(sig)
	report := FunctionReport{
		Name:      fn.Decl.Name,
		Signature: sig.String(),
		Row:       names.row(sig.Row()),
		Poisoned:  sig.Poisoned,
		Entry:     fn.Decl.Entry,
	}
	if fn.Decl.Body == nil {
		return report
	}
	ir.Inspect(fn.Decl.Body, func(e ir.Expr) bool {
		switch e := e.(type) {
		case *ir.Perform:
			report.Nodes = append(report.Nodes, em.emitNode(fn, names, e, e.QualifiedOp(), fn.Strategies.Ops[e]))
		case *ir.Call:
			node := "call " + ir.ExprString(e.Func)
			if row, ok := fn.Latent[e]; ok && types.IsPure(row) {
				// pure calls need no effect machinery, which is all a report is about
				return true
			}
			report.Nodes = append(report.Nodes, em.emitNode(fn, names, e, node, fn.Strategies.Calls[e]))
		case *ir.Handle:
			if info, ok := fn.Handlers[e]; ok {
				report.Handlers = append(report.Handlers, em.emitHandler(fn, names, e, info))
			}
		}
		return true
	})
	return report
}

func (em *Emitter) emitNode(fn *frontend.Function, names *rowNamer, e ir.Expr, node string, tag strategy.Tag) NodeReport {
	report := NodeReport{At: em.at(e), Node: node, Strategy: &tag}
	if row, ok := fn.Rows[e]; ok {
		report.Row = names.row(row)
	}
	return report
}

func (em *Emitter) emitHandler(fn *frontend.Function, names *rowNamer, h *ir.Handle, info *infer.HandlerInfo) HandlerReport {
	report := HandlerReport{
		At:      em.at(h),
		Handled: names.row(info.Handled),
		Result:  names.row(info.Result),
	}
	for _, e := range info.Eliminated {
		report.Eliminated = append(report.Eliminated, e.String())
	}
	for _, cl := range h.Clauses {
		report.Clauses = append(report.Clauses, ClauseReport{Op: cl.QualifiedOp(), Strategy: fn.Strategies.Clauses[cl]})
	}
	return report
}

func (em *Emitter) emitDiagnostic(diag fxerr.Diagnostic) DiagnosticReport {
	return DiagnosticReport{
		At:       em.at(diag),
		Severity: diag.Severity().String(),
		Code:     diag.Code().String(),
		Message:  diag.Error(),
	}
}
