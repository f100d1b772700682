package ast

var (
	_ Expr = (*Ident)(nil)
	_ Expr = (*Lit)(nil)
	_ Expr = (*ObjectLit)(nil)
	_ Expr = (*ArrayLit)(nil)
	_ Expr = (*Member)(nil)
	_ Expr = (*Index)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*FuncExpr)(nil)
	_ Expr = (*Paren)(nil)
	_ Expr = (*Unary)(nil)
	_ Expr = (*Binary)(nil)
	_ Expr = (*Assign)(nil)
	_ Expr = (*Conditional)(nil)
	_ Expr = (*As)(nil)
	_ Expr = (*NonNull)(nil)
	_ Expr = (*Spread)(nil)
)

// Ident is a reference to a value. Symbol is nil when the binder could not resolve the name.
type Ident struct {
	Range
	Name   string
	Symbol *Symbol
}

type LitKind uint8

const (
	LitString LitKind = iota
	LitNumber
	LitBigInt
	LitBoolean
	LitNull
	LitUndefined
)

// Lit is a literal. Value holds the source text without quotes for strings,
// the digits without the n suffix for bigints and "true"/"false" for booleans.
type Lit struct {
	Range
	Kind  LitKind
	Value string
}

type PropAssign struct {
	Range
	Name  string
	Value Expr
}

type ObjectLit struct {
	Range
	Props []PropAssign
}

type ArrayLit struct {
	Range
	Elems []Expr
}

// Member is `X.Name`, or `X?.Name` when Optional
type Member struct {
	Range
	X        Expr
	Name     string
	Optional bool
}

type Index struct {
	Range
	X     Expr
	Index Expr
}

type Call struct {
	Range
	Callee   Expr
	TypeArgs []Type
	Args     []Expr
}

// FuncExpr is a function expression, an arrow function or the function of a FuncDecl.
// Exactly one of Body and ExprBody is set.
type FuncExpr struct {
	Range
	Arrow      bool
	TypeParams []TypeParam
	Params     []Param
	// Return and Predicate are the optional return annotation
	Return    Type
	Predicate *Predicate
	Body      *Block
	ExprBody  Expr
}

type Paren struct {
	Range
	X Expr
}

// Unary is a prefix operator: "!", "-", "+", "typeof" or "void"
type Unary struct {
	Range
	Op string
	X  Expr
}

// Binary is an infix operator: comparison, arithmetic, logical ("&&", "||", "??"), "in" or "instanceof"
type Binary struct {
	Range
	Op   string
	X, Y Expr
}

// Assign is `Target Op Value` with Op "=", "+=", "-=" and the like
type Assign struct {
	Range
	Target Expr
	Op     string
	Value  Expr
}

type Conditional struct {
	Range
	Cond, Then, Else Expr
}

// As is a type assertion `X as Type`
type As struct {
	Range
	X    Expr
	Type Type
}

// NonNull is `X!`
type NonNull struct {
	Range
	X Expr
}

// Spread is `...X` in an argument list or array literal
type Spread struct {
	Range
	X Expr
}

func (*Ident) exprNode()       {}
func (*Lit) exprNode()         {}
func (*ObjectLit) exprNode()   {}
func (*ArrayLit) exprNode()    {}
func (*Member) exprNode()      {}
func (*Index) exprNode()       {}
func (*Call) exprNode()        {}
func (*FuncExpr) exprNode()    {}
func (*Paren) exprNode()       {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Assign) exprNode()      {}
func (*Conditional) exprNode() {}
func (*As) exprNode()          {}
func (*NonNull) exprNode()     {}
func (*Spread) exprNode()      {}

// Unparen strips any number of enclosing parentheses
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}
