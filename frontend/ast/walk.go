package ast

import "fmt"

// Inspect traverses the statements and expressions below node depth-first,
// calling f on node first. The children of a node are only visited when f
// returns true. Type annotations are not entered.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Ident, *Lit, *Break, *Continue:
	case *ObjectLit:
		for _, p := range n.Props {
			Inspect(p.Value, f)
		}
	case *ArrayLit:
		for _, e := range n.Elems {
			Inspect(e, f)
		}
	case *Member:
		Inspect(n.X, f)
	case *Index:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *Call:
		Inspect(n.Callee, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *FuncExpr:
		if n.Body != nil {
			Inspect(n.Body, f)
		} else {
			Inspect(n.ExprBody, f)
		}
	case *Paren:
		Inspect(n.X, f)
	case *Unary:
		Inspect(n.X, f)
	case *Binary:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *Conditional:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *As:
		Inspect(n.X, f)
	case *NonNull:
		Inspect(n.X, f)
	case *Spread:
		Inspect(n.X, f)

	case *VarDecl:
		inspectOptional(n.Init, f)
	case *FuncDecl:
		Inspect(n.Func, f)
	case *TypeAlias, *Interface:
	case *ExprStmt:
		Inspect(n.X, f)
	case *Return:
		inspectOptional(n.X, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *While:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *For:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
		inspectOptional(n.Cond, f)
		inspectOptional(n.Post, f)
		Inspect(n.Body, f)
	case *Throw:
		Inspect(n.X, f)
	case *Try:
		Inspect(n.Block, f)
		if n.Catch != nil {
			Inspect(n.Catch, f)
		}
		if n.Finally != nil {
			Inspect(n.Finally, f)
		}
	case *Switch:
		Inspect(n.Tag, f)
		for _, c := range n.Cases {
			inspectOptional(c.Test, f)
			for _, s := range c.Body {
				Inspect(s, f)
			}
		}
	default:
		panic(fmt.Sprintf("ast.Inspect: unexpected node %T", node))
	}
}

func inspectOptional(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}
