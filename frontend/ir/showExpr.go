package ir

import (
	"fmt"
	"strings"
)

func ExprString(expr Expr) string {
	ctx := newShowContext()
	ctx.showExprWalker(expr, 0)
	return ctx.String()
}

type showContext struct {
	*strings.Builder
	indent    int
	indentStr string
}

func newShowContext() *showContext {
	return &showContext{
		Builder:   &strings.Builder{},
		indentStr: "  ",
		indent:    0,
	}
}

func (ctx *showContext) currentIndent() string {
	return strings.Repeat(ctx.indentStr, ctx.indent)
}

func (ctx *showContext) newline() {
	ctx.WriteString("\n")
	ctx.WriteString(ctx.currentIndent())
}

func (ctx *showContext) showArgs(args []Expr) {
	ctx.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			ctx.WriteString(", ")
		}
		ctx.showExprWalker(arg, 0)
	}
	ctx.WriteString(")")
}

func (ctx *showContext) showParams(params []Param) {
	ctx.WriteString("(")
	for i, p := range params {
		if i > 0 {
			ctx.WriteString(", ")
		}
		ctx.WriteString(p.Name)
		if p.Type != nil {
			ctx.WriteString(": " + TypeString(p.Type))
		}
	}
	ctx.WriteString(")")
}

// showExprWalker prints to ctx
//
// precedences are as follows:
// 0: can be shown on its own
// 1-10: can be shown as an argument
// 20: needs parentheses unless on its own (let, handle, lambdas)
func (ctx *showContext) showExprWalker(expr Expr, outerPrecedence int16) {
	if expr == nil {
		ctx.WriteString("nil")
		return
	}
	parens := func(own int16) func() {
		if outerPrecedence > own {
			ctx.WriteString("(")
			return func() { ctx.WriteString(")") }
		}
		return func() {}
	}
	switch expr := expr.(type) {
	case *Literal:
		ctx.WriteString(expr.Syntax)
	case *Var:
		ctx.WriteString(expr.Name)
	case *Perform:
		ctx.WriteString(expr.Effect)
		if len(expr.TypeArgs) > 0 {
			sb := &strings.Builder{}
			showTypeArgs(sb, expr.TypeArgs)
			ctx.WriteString(sb.String())
		}
		ctx.WriteString("." + expr.Op)
		ctx.showArgs(expr.Args)
	case *Call:
		ctx.showExprWalker(expr.Func, 10)
		ctx.showArgs(expr.Args)
	case *Resume:
		ctx.WriteString("resume(")
		if expr.Arg != nil {
			ctx.showExprWalker(expr.Arg, 0)
		}
		ctx.WriteString(")")
	case *Lambda:
		defer parens(0)()
		ctx.WriteString("fn")
		ctx.showParams(expr.Params)
		if expr.Effects != nil {
			ctx.WriteString(" !" + expr.Effects.String())
		}
		ctx.WriteString(" => ")
		ctx.showExprWalker(expr.Body, 0)
	case *Let:
		defer parens(0)()
		ctx.WriteString(fmt.Sprintf("let %s = ", expr.Name))
		ctx.showExprWalker(expr.Value, 1)
		ctx.newline()
		ctx.showExprWalker(expr.Body, 0)
	case *Block:
		ctx.WriteString("{")
		ctx.indent++
		for _, e := range expr.Exprs {
			ctx.newline()
			ctx.showExprWalker(e, 0)
		}
		ctx.indent--
		ctx.newline()
		ctx.WriteString("}")
	case *If:
		defer parens(0)()
		ctx.WriteString("if ")
		ctx.showExprWalker(expr.Cond, 1)
		ctx.WriteString(" then ")
		ctx.showExprWalker(expr.Then, 1)
		if expr.Else != nil {
			ctx.WriteString(" else ")
			ctx.showExprWalker(expr.Else, 1)
		}
	case *Handle:
		defer parens(0)()
		ctx.WriteString("handle ")
		ctx.showExprWalker(expr.Body, 1)
		ctx.WriteString(" with {")
		ctx.indent++
		for _, c := range expr.Clauses {
			ctx.newline()
			ctx.WriteString(c.QualifiedOp())
			ctx.showParams(c.Params)
			ctx.WriteString(" => ")
			ctx.showExprWalker(c.Body, 0)
		}
		if expr.Return != nil {
			ctx.newline()
			ctx.WriteString("return")
			ctx.showParams([]Param{expr.Return.Param})
			ctx.WriteString(" => ")
			ctx.showExprWalker(expr.Return.Body, 0)
		}
		ctx.indent--
		ctx.newline()
		ctx.WriteString("}")
	case *Ascribe:
		defer parens(0)()
		ctx.showExprWalker(expr.Expr, 10)
		ctx.WriteString(" !" + expr.Effects.String())
	default:
		if outerPrecedence > 0 {
			ctx.WriteString("(" + expr.Describe() + ")")
		} else {
			ctx.WriteString(expr.Describe())
		}
	}
}
