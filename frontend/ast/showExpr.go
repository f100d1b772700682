package ast

import (
	"strconv"
	"strings"
)

// ExprString renders an expression back to TypeScript source. Function bodies
// are elided; the result is meant for messages and logs.
func ExprString(expr Expr) string {
	var sb strings.Builder
	showExpr(&sb, expr)
	return sb.String()
}

// TypeString renders a type annotation back to TypeScript source
func TypeString(t Type) string {
	var sb strings.Builder
	showType(&sb, t)
	return sb.String()
}

func showExprs(sb *strings.Builder, exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		showExpr(sb, e)
	}
}

func showExpr(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case nil:
		sb.WriteString("nil")
	case *Ident:
		sb.WriteString(e.Name)
	case *Lit:
		switch e.Kind {
		case LitString:
			sb.WriteString(strconv.Quote(e.Value))
		case LitBigInt:
			sb.WriteString(e.Value + "n")
		case LitNull:
			sb.WriteString("null")
		case LitUndefined:
			sb.WriteString("undefined")
		default:
			sb.WriteString(e.Value)
		}
	case *ObjectLit:
		if len(e.Props) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{ ")
		for i, p := range e.Props {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			sb.WriteString(": ")
			showExpr(sb, p.Value)
		}
		sb.WriteString(" }")
	case *ArrayLit:
		sb.WriteString("[")
		showExprs(sb, e.Elems)
		sb.WriteString("]")
	case *Member:
		showExpr(sb, e.X)
		if e.Optional {
			sb.WriteString("?")
		}
		sb.WriteString(".")
		sb.WriteString(e.Name)
	case *Index:
		showExpr(sb, e.X)
		sb.WriteString("[")
		showExpr(sb, e.Index)
		sb.WriteString("]")
	case *Call:
		showExpr(sb, e.Callee)
		if len(e.TypeArgs) > 0 {
			sb.WriteString("<")
			showTypes(sb, e.TypeArgs, ", ")
			sb.WriteString(">")
		}
		sb.WriteString("(")
		showExprs(sb, e.Args)
		sb.WriteString(")")
	case *FuncExpr:
		if !e.Arrow {
			sb.WriteString("function")
		}
		showParams(sb, e.TypeParams, e.Params)
		if e.Arrow {
			sb.WriteString(" => ")
			if e.ExprBody != nil {
				showExpr(sb, e.ExprBody)
				return
			}
		}
		sb.WriteString(" { ... }")
	case *Paren:
		sb.WriteString("(")
		showExpr(sb, e.X)
		sb.WriteString(")")
	case *Unary:
		sb.WriteString(e.Op)
		if e.Op == "typeof" || e.Op == "void" {
			sb.WriteString(" ")
		}
		showExpr(sb, e.X)
	case *Binary:
		showExpr(sb, e.X)
		sb.WriteString(" " + e.Op + " ")
		showExpr(sb, e.Y)
	case *Assign:
		showExpr(sb, e.Target)
		sb.WriteString(" " + e.Op + " ")
		showExpr(sb, e.Value)
	case *Conditional:
		showExpr(sb, e.Cond)
		sb.WriteString(" ? ")
		showExpr(sb, e.Then)
		sb.WriteString(" : ")
		showExpr(sb, e.Else)
	case *As:
		showExpr(sb, e.X)
		sb.WriteString(" as ")
		showType(sb, e.Type)
	case *NonNull:
		showExpr(sb, e.X)
		sb.WriteString("!")
	case *Spread:
		sb.WriteString("...")
		showExpr(sb, e.X)
	default:
		sb.WriteString("<?>")
	}
}

func showParams(sb *strings.Builder, typeParams []TypeParam, params []Param) {
	if len(typeParams) > 0 {
		sb.WriteString("<")
		for i, tp := range typeParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tp.Name)
			if tp.Constraint != nil {
				sb.WriteString(" extends ")
				showType(sb, tp.Constraint)
			}
		}
		sb.WriteString(">")
	}
	sb.WriteString("(")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Rest {
			sb.WriteString("...")
		}
		sb.WriteString(p.Name)
		if p.Optional {
			sb.WriteString("?")
		}
		if p.Type != nil {
			sb.WriteString(": ")
			showType(sb, p.Type)
		}
	}
	sb.WriteString(")")
}

func showTypes(sb *strings.Builder, ts []Type, sep string) {
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(sep)
		}
		showType(sb, t)
	}
}

// showOperand renders t, parenthesized where an operator around it would bind tighter
func showOperand(sb *strings.Builder, t Type) {
	switch t.(type) {
	case *UnionType, *IntersectionType, *FuncType:
		sb.WriteString("(")
		showType(sb, t)
		sb.WriteString(")")
	default:
		showType(sb, t)
	}
}

func showOperands(sb *strings.Builder, ts []Type, sep string) {
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(sep)
		}
		showOperand(sb, t)
	}
}

// showSignature renders the parameters of t, then arrow and its return annotation
func showSignature(sb *strings.Builder, t *FuncType, arrow string) {
	showParams(sb, t.TypeParams, t.Params)
	sb.WriteString(arrow)
	if t.Predicate == nil {
		showType(sb, t.Return)
		return
	}
	if t.Predicate.Asserts {
		sb.WriteString("asserts ")
	}
	sb.WriteString(t.Predicate.Param)
	if t.Predicate.Type != nil {
		sb.WriteString(" is ")
		showType(sb, t.Predicate.Type)
	}
}

func showType(sb *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		sb.WriteString("nil")
	case *KeywordType:
		sb.WriteString(t.Name)
	case *LiteralType:
		showExpr(sb, t.Lit)
	case *TypeRef:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteString("<")
			showTypes(sb, t.Args, ", ")
			sb.WriteString(">")
		}
	case *UnionType:
		showOperands(sb, t.Types, " | ")
	case *IntersectionType:
		showOperands(sb, t.Types, " & ")
	case *ArrayType:
		if t.Readonly {
			sb.WriteString("readonly ")
		}
		showOperand(sb, t.Elem)
		sb.WriteString("[]")
	case *TupleType:
		sb.WriteString("[")
		for i, e := range t.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			if e.Rest {
				sb.WriteString("...")
			}
			if e.Label != "" {
				sb.WriteString(e.Label)
				if e.Optional {
					sb.WriteString("?")
				}
				sb.WriteString(": ")
				showType(sb, e.Type)
				continue
			}
			showType(sb, e.Type)
			if e.Optional {
				sb.WriteString("?")
			}
		}
		sb.WriteString("]")
	case *ObjectType:
		sb.WriteString("{ ")
		for _, p := range t.Properties {
			if p.Readonly {
				sb.WriteString("readonly ")
			}
			sb.WriteString(p.Name)
			if p.Optional {
				sb.WriteString("?")
			}
			if ft, ok := p.Type.(*FuncType); ok && p.Method {
				showSignature(sb, ft, ": ")
			} else {
				sb.WriteString(": ")
				showType(sb, p.Type)
			}
			sb.WriteString("; ")
		}
		for _, idx := range t.Indexes {
			sb.WriteString("[key: " + idx.KeyType + "]: ")
			showType(sb, idx.Value)
			sb.WriteString("; ")
		}
		for _, call := range t.Calls {
			showSignature(sb, call, ": ")
			sb.WriteString("; ")
		}
		sb.WriteString("}")
	case *FuncType:
		showSignature(sb, t, " => ")
	case *KeyOfType:
		sb.WriteString("keyof ")
		showOperand(sb, t.Target)
	case *IndexedAccessType:
		showOperand(sb, t.Object)
		sb.WriteString("[")
		showType(sb, t.Index)
		sb.WriteString("]")
	case *MappedType:
		sb.WriteString("{ ")
		switch t.Readonly {
		case "+":
			sb.WriteString("readonly ")
		case "-":
			sb.WriteString("-readonly ")
		}
		sb.WriteString("[" + t.Param + " in ")
		showType(sb, t.Constraint)
		sb.WriteString("]")
		switch t.Optional {
		case "+":
			sb.WriteString("?")
		case "-":
			sb.WriteString("-?")
		}
		sb.WriteString(": ")
		showType(sb, t.Template)
		sb.WriteString("; }")
	default:
		sb.WriteString("<?>")
	}
}
