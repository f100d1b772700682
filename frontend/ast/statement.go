package ast

var (
	_ Stmt = (*VarDecl)(nil)
	_ Stmt = (*FuncDecl)(nil)
	_ Stmt = (*TypeAlias)(nil)
	_ Stmt = (*Interface)(nil)
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*Return)(nil)
	_ Stmt = (*If)(nil)
	_ Stmt = (*Block)(nil)
	_ Stmt = (*While)(nil)
	_ Stmt = (*For)(nil)
	_ Stmt = (*Break)(nil)
	_ Stmt = (*Continue)(nil)
	_ Stmt = (*Throw)(nil)
	_ Stmt = (*Try)(nil)
	_ Stmt = (*Switch)(nil)
)

// VarDecl is a let, const or var declaration of a single name
type VarDecl struct {
	Range
	Symbol *Symbol
	// Type is the annotation, or nil
	Type Type
	// Init is the initializer, or nil
	Init Expr
}

type FuncDecl struct {
	Range
	Symbol *Symbol
	Func   *FuncExpr
}

type TypeAlias struct {
	Range
	Name       string
	TypeParams []TypeParam
	Type       Type
}

type Interface struct {
	Range
	Name       string
	TypeParams []TypeParam
	Body       *ObjectType
}

type ExprStmt struct {
	Range
	X Expr
}

type Return struct {
	Range
	// X is nil for a bare return
	X Expr
}

type If struct {
	Range
	Cond Expr
	Then Stmt
	// Else is nil when there is no else branch
	Else Stmt
}

type Block struct {
	Range
	Stmts []Stmt
}

type While struct {
	Range
	Cond Expr
	Body Stmt
	// DoWhile loops run Body once before testing Cond
	DoWhile bool
}

type For struct {
	Range
	// Init, Cond and Post are each optional
	Init Stmt
	Cond Expr
	Post Expr
	Body Stmt
}

type Break struct{ Range }

type Continue struct{ Range }

type Throw struct {
	Range
	X Expr
}

type Try struct {
	Range
	Block *Block
	// CatchParam is nil for `catch {}` and when there is no catch clause
	CatchParam *Symbol
	Catch      *Block
	Finally    *Block
}

type Case struct {
	Range
	// Test is nil for the default clause
	Test Expr
	Body []Stmt
}

type Switch struct {
	Range
	Tag   Expr
	Cases []Case
}

func (*VarDecl) stmtNode()   {}
func (*FuncDecl) stmtNode()  {}
func (*TypeAlias) stmtNode() {}
func (*Interface) stmtNode() {}
func (*ExprStmt) stmtNode()  {}
func (*Return) stmtNode()    {}
func (*If) stmtNode()        {}
func (*Block) stmtNode()     {}
func (*While) stmtNode()     {}
func (*For) stmtNode()       {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Throw) stmtNode()     {}
func (*Try) stmtNode()       {}
func (*Switch) stmtNode()    {}
