package fxerr

import (
	"fmt"
	"go/token"
	"runtime/debug"
	"strings"

	"github.com/cottand/rowfx/frontend/ir"
)

// enableDebugErrorPrinting makes errors include the frame that created them when printed
var enableDebugErrorPrinting = false

const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	RowMismatch
	InfiniteRow
	BoundViolation
	UnhandledEffectEscape
	UnusedHandlerClause
	HandlerReturnTypeMismatch
	UndefinedEffect
	UndefinedOperation
	UndefinedVariable
	IncompleteHandler
	ResumeOutsideHandler
	NonConvergence
	ArityMismatch
)

var codeNames = map[ErrCode]string{
	None:                      "Unclassified",
	RowMismatch:               "RowMismatch",
	InfiniteRow:               "InfiniteRow",
	BoundViolation:            "BoundViolation",
	UnhandledEffectEscape:     "UnhandledEffectEscape",
	UnusedHandlerClause:       "UnusedHandlerClause",
	HandlerReturnTypeMismatch: "HandlerReturnTypeMismatch",
	UndefinedEffect:           "UndefinedEffect",
	UndefinedOperation:        "UndefinedOperation",
	UndefinedVariable:         "UndefinedVariable",
	IncompleteHandler:         "IncompleteHandler",
	ResumeOutsideHandler:      "ResumeOutsideHandler",
	NonConvergence:            "NonConvergence",
	ArityMismatch:             "ArityMismatch",
}

func (c ErrCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrCode(%d)", int(c))
}

type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

type Diagnostic interface {
	Error() string
	Code() ErrCode
	Severity() Severity
	ir.Positioner

	withStack([]byte) Diagnostic
	getStack() []byte
}

func FormatWithCode(e Diagnostic) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			if lines := strings.Split(stack, "\n"); len(lines) > 6 {
				stack = lines[6]
			}
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

// FormatWithSource prefixes FormatWithCode with the file position of e
func FormatWithSource(e Diagnostic, fset *token.FileSet) string {
	pos := ir.Position(fset, e)
	if !pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Severity(), FormatWithCode(e))
	}
	return fmt.Sprintf("%v: %s: %s", pos, e.Severity(), FormatWithCode(e))
}

func New[E Diagnostic](err E) Diagnostic {
	return err.withStack(debug.Stack())
}

// isError can be embedded to give a Diagnostic error severity
type isError struct{}

func (isError) Severity() Severity { return Error }

type isWarning struct{}

func (isWarning) Severity() Severity { return Warning }

type Unclassified struct {
	From error
	ir.Positioner
	isError
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Code() ErrCode    { return None }
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewRowMismatch is raised when two rows which must be equal are not
type NewRowMismatch struct {
	ir.Positioner
	isError
	Expected, Actual string
	// Rigid is set when the rows only mismatch because Rigid, a declared variable, cannot be bound
	Rigid string
	stack []byte
}

func (e NewRowMismatch) Error() string {
	if e.Rigid != "" {
		return fmt.Sprintf("effect row mismatch: expected %s, but found %s (%s is a declared row variable, so it cannot be assumed to be anything)", e.Expected, e.Actual, e.Rigid)
	}
	return fmt.Sprintf("effect row mismatch: expected %s, but found %s", e.Expected, e.Actual)
}
func (e NewRowMismatch) Code() ErrCode    { return RowMismatch }
func (e NewRowMismatch) getStack() []byte { return e.stack }
func (e NewRowMismatch) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewInfiniteRow struct {
	ir.Positioner
	isError
	Var, Row string
	stack    []byte
}

func (e NewInfiniteRow) Error() string {
	return fmt.Sprintf("infinite effect row: %s would have to contain itself in %s", e.Var, e.Row)
}
func (e NewInfiniteRow) Code() ErrCode    { return InfiniteRow }
func (e NewInfiniteRow) getStack() []byte { return e.stack }
func (e NewInfiniteRow) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewBoundViolation is raised when an expression performs an effect that a declared
// row or a where bound does not allow. It points at the exact operation or call
type NewBoundViolation struct {
	ir.Positioner
	isError
	Function string
	// Effect is the offending effect, empty when the violation comes from an unknown row variable
	Effect   string
	Declared string
	Actual   string
	// Through names the operation or function performing Effect, when it was located
	Through string
	stack   []byte
}

func (e NewBoundViolation) Error() string {
	sb := strings.Builder{}
	if e.Effect == "" {
		sb.WriteString(fmt.Sprintf("in %s: inferred effects %s may not be included in the declared %s", e.Function, e.Actual, e.Declared))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("in %s: effect %s is not allowed by the declared %s", e.Function, e.Effect, e.Declared))
	if e.Through != "" {
		sb.WriteString(fmt.Sprintf(" (performed by %s)", e.Through))
	}
	return sb.String()
}
func (e NewBoundViolation) Code() ErrCode    { return BoundViolation }
func (e NewBoundViolation) getStack() []byte { return e.stack }
func (e NewBoundViolation) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewUnhandledEffectEscape is raised when an entry point may perform effects nobody handles
type NewUnhandledEffectEscape struct {
	ir.Positioner
	isError
	Function string
	Row      string
	// Effects are the concrete effects that are not allowed to escape
	Effects []string
	// OpenTail is set if the row is open, so that unknown effects may escape
	OpenTail string
	stack    []byte
}

func (e NewUnhandledEffectEscape) Error() string {
	var reasons []string
	if len(e.Effects) > 0 {
		reasons = append(reasons, fmt.Sprintf("unhandled effects %s", strings.Join(e.Effects, ", ")))
	}
	if e.OpenTail != "" {
		reasons = append(reasons, fmt.Sprintf("the row variable %s is never closed", e.OpenTail))
	}
	return fmt.Sprintf("effects escape entry point %s with row %s: %s", e.Function, e.Row, strings.Join(reasons, " and "))
}
func (e NewUnhandledEffectEscape) Code() ErrCode    { return UnhandledEffectEscape }
func (e NewUnhandledEffectEscape) getStack() []byte { return e.stack }
func (e NewUnhandledEffectEscape) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewUnusedHandlerClause struct {
	ir.Positioner
	isWarning
	Op  string
	Row string
	// RowOpen means the clause may still be used by whatever the row variable turns out to be
	RowOpen bool
	stack   []byte
}

func (e NewUnusedHandlerClause) Error() string {
	if e.RowOpen {
		return fmt.Sprintf("handler clause for %s matches no known effect of the handled row %s (it may only be used through the row variable)", e.Op, e.Row)
	}
	return fmt.Sprintf("handler clause for %s is never used: the handled row %s does not contain it", e.Op, e.Row)
}
func (e NewUnusedHandlerClause) Code() ErrCode    { return UnusedHandlerClause }
func (e NewUnusedHandlerClause) getStack() []byte { return e.stack }
func (e NewUnusedHandlerClause) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewHandlerReturnTypeMismatch is raised when two clauses of the same handler
// produce values of different types
type NewHandlerReturnTypeMismatch struct {
	ir.Positioner
	isError
	First, Second     string
	FirstAt, SecondAt ir.Positioner
	stack             []byte
}

func (e NewHandlerReturnTypeMismatch) Error() string {
	return fmt.Sprintf("handler clauses disagree on their result type: '%s' (at %v) and '%s' (at %v)",
		e.First, ir.RangeOf(e.FirstAt), e.Second, ir.RangeOf(e.SecondAt))
}
func (e NewHandlerReturnTypeMismatch) Code() ErrCode    { return HandlerReturnTypeMismatch }
func (e NewHandlerReturnTypeMismatch) getStack() []byte { return e.stack }
func (e NewHandlerReturnTypeMismatch) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewUndefinedEffect struct {
	ir.Positioner
	isError
	Name  string
	stack []byte
}

func (e NewUndefinedEffect) Error() string {
	return fmt.Sprintf("undefined effect: %s", e.Name)
}
func (e NewUndefinedEffect) Code() ErrCode    { return UndefinedEffect }
func (e NewUndefinedEffect) getStack() []byte { return e.stack }
func (e NewUndefinedEffect) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewUndefinedOperation struct {
	ir.Positioner
	isError
	Effect, Op string
	stack      []byte
}

func (e NewUndefinedOperation) Error() string {
	return fmt.Sprintf("effect %s has no operation %s", e.Effect, e.Op)
}
func (e NewUndefinedOperation) Code() ErrCode    { return UndefinedOperation }
func (e NewUndefinedOperation) getStack() []byte { return e.stack }
func (e NewUndefinedOperation) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewUndefinedVariable struct {
	ir.Positioner
	isError
	Name  string
	stack []byte
}

func (e NewUndefinedVariable) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Name)
}
func (e NewUndefinedVariable) Code() ErrCode    { return UndefinedVariable }
func (e NewUndefinedVariable) getStack() []byte { return e.stack }
func (e NewUndefinedVariable) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewIncompleteHandler is raised when a handler has clauses for some, but not all,
// of the operations of an effect family
type NewIncompleteHandler struct {
	ir.Positioner
	isWarning
	Effect  string
	Missing []string
	// Eliminated tells whether the family was removed from the row regardless
	Eliminated bool
	stack      []byte
}

func (e NewIncompleteHandler) Error() string {
	msg := fmt.Sprintf("handler for %s has no clause for %s", e.Effect, strings.Join(e.Missing, ", "))
	if !e.Eliminated {
		return msg + ", so the effect is not handled"
	}
	return msg
}
func (e NewIncompleteHandler) Code() ErrCode    { return IncompleteHandler }
func (e NewIncompleteHandler) getStack() []byte { return e.stack }
func (e NewIncompleteHandler) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewResumeOutsideHandler struct {
	ir.Positioner
	isError
	stack []byte
}

func (e NewResumeOutsideHandler) Error() string {
	return "resume can only be used inside the clause of a handler"
}
func (e NewResumeOutsideHandler) Code() ErrCode    { return ResumeOutsideHandler }
func (e NewResumeOutsideHandler) getStack() []byte { return e.stack }
func (e NewResumeOutsideHandler) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewNonConvergence is raised when the signatures of a recursive group keep changing
type NewNonConvergence struct {
	ir.Positioner
	isError
	Functions  []string
	Iterations int
	stack      []byte
}

func (e NewNonConvergence) Error() string {
	return fmt.Sprintf("effect inference did not converge after %d iterations for the recursive group %s",
		e.Iterations, strings.Join(e.Functions, ", "))
}
func (e NewNonConvergence) Code() ErrCode    { return NonConvergence }
func (e NewNonConvergence) getStack() []byte { return e.stack }
func (e NewNonConvergence) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewArityMismatch struct {
	ir.Positioner
	isError
	Callee           string
	Expected, Actual int
	stack            []byte
}

func (e NewArityMismatch) Error() string {
	return fmt.Sprintf("%s expects %d arguments, but got %d", e.Callee, e.Expected, e.Actual)
}
func (e NewArityMismatch) Code() ErrCode    { return ArityMismatch }
func (e NewArityMismatch) getStack() []byte { return e.stack }
func (e NewArityMismatch) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}
