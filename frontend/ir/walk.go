package ir

import "fmt"

// Children returns the direct subexpressions of e, in evaluation order.
// Clause and return bodies of a Handle come after its body
func Children(e Expr) []Expr {
	switch e := e.(type) {
	case *Literal, *Var:
		return nil
	case *Perform:
		return e.Args
	case *Call:
		return append([]Expr{e.Func}, e.Args...)
	case *Lambda:
		return []Expr{e.Body}
	case *Let:
		return []Expr{e.Value, e.Body}
	case *Block:
		return e.Exprs
	case *If:
		if e.Else == nil {
			return []Expr{e.Cond, e.Then}
		}
		return []Expr{e.Cond, e.Then, e.Else}
	case *Handle:
		children := []Expr{e.Body}
		for _, c := range e.Clauses {
			children = append(children, c.Body)
		}
		if e.Return != nil {
			children = append(children, e.Return.Body)
		}
		return children
	case *Resume:
		if e.Arg == nil {
			return nil
		}
		return []Expr{e.Arg}
	case *Ascribe:
		return []Expr{e.Expr}
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

// Inspect traverses e depth-first, calling f for every node.
// If f returns false, the children of that node are skipped
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, child := range Children(e) {
		Inspect(child, f)
	}
}
