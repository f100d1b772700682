package fixture

import (
	"github.com/cottand/tsz/frontend/ast"
)

// scope maps the value names visible at one block level to their symbols
type scope struct {
	names  map[string]*ast.Symbol
	parent *scope
}

func (s *scope) child() *scope {
	return &scope{names: make(map[string]*ast.Symbol), parent: s}
}

func (s *scope) lookup(name string) (*ast.Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// binder resolves every identifier to the declaration it refers to and numbers
// the symbols of a file. Names nothing declares become globals, one symbol each.
type binder struct {
	symbols []*ast.Symbol
	globals map[string]*ast.Symbol
}

func bind(file *ast.File) {
	b := &binder{globals: make(map[string]*ast.Symbol)}
	top := &scope{names: make(map[string]*ast.Symbol)}
	b.hoistVars(file.Stmts, top)
	b.predeclare(file.Stmts, top)
	b.stmts(file.Stmts, top)
	file.Symbols = b.symbols
	logger.Debug("bound file", "name", file.Name, "symbols", len(b.symbols), "globals", len(b.globals))
}

func (b *binder) declare(sym *ast.Symbol, s *scope) {
	sym.ID = ast.SymbolID(len(b.symbols))
	b.symbols = append(b.symbols, sym)
	s.names[sym.Name] = sym
}

func (b *binder) resolve(id *ast.Ident, s *scope) {
	if sym, ok := s.lookup(id.Name); ok {
		id.Symbol = sym
		return
	}
	sym, ok := b.globals[id.Name]
	if !ok {
		sym = &ast.Symbol{ID: ast.SymbolID(len(b.symbols)), Name: id.Name, Kind: ast.SymGlobal}
		b.symbols = append(b.symbols, sym)
		b.globals[id.Name] = sym
	}
	id.Symbol = sym
}

// hoistVars declares the var bindings of a function body in the function's scope
func (b *binder) hoistVars(stmts []ast.Stmt, fn *scope) {
	for _, stmt := range stmts {
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncDecl, *ast.FuncExpr:
				return false
			case *ast.VarDecl:
				if n.Symbol.Kind != ast.SymVar {
					break
				}
				if prev, ok := fn.names[n.Symbol.Name]; ok && prev.Kind == ast.SymVar {
					// redeclaring a var reuses the binding
					n.Symbol = prev
					break
				}
				b.declare(n.Symbol, fn)
			}
			return true
		})
	}
}

// predeclare declares the block-scoped bindings of stmts, so that they are
// visible to the whole block including code before the declaration
func (b *binder) predeclare(stmts []ast.Stmt, s *scope) {
	for _, stmt := range stmts {
		switch d := stmt.(type) {
		case *ast.VarDecl:
			if d.Symbol.Kind != ast.SymVar {
				b.declare(d.Symbol, s)
			}
		case *ast.FuncDecl:
			b.declare(d.Symbol, s)
		}
	}
}

func (b *binder) stmts(stmts []ast.Stmt, s *scope) {
	for _, stmt := range stmts {
		b.stmt(stmt, s)
	}
}

func (b *binder) block(stmts []ast.Stmt, s *scope) {
	inner := s.child()
	b.predeclare(stmts, inner)
	b.stmts(stmts, inner)
}

// branch binds the body of an if or a loop, which is a scope of its own
func (b *binder) branch(stmt ast.Stmt, s *scope) {
	if blk, ok := stmt.(*ast.Block); ok {
		b.block(blk.Stmts, s)
		return
	}
	b.block([]ast.Stmt{stmt}, s)
}

func (b *binder) stmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.VarDecl:
		b.expr(st.Init, s)
	case *ast.FuncDecl:
		b.function(st.Func, s)
	case *ast.TypeAlias, *ast.Interface, *ast.Break, *ast.Continue:
	case *ast.ExprStmt:
		b.expr(st.X, s)
	case *ast.Return:
		b.expr(st.X, s)
	case *ast.Throw:
		b.expr(st.X, s)
	case *ast.Block:
		b.block(st.Stmts, s)
	case *ast.If:
		b.expr(st.Cond, s)
		b.branch(st.Then, s)
		if st.Else != nil {
			b.branch(st.Else, s)
		}
	case *ast.While:
		b.expr(st.Cond, s)
		b.branch(st.Body, s)
	case *ast.For:
		inner := s.child()
		if st.Init != nil {
			b.predeclare([]ast.Stmt{st.Init}, inner)
			b.stmt(st.Init, inner)
		}
		b.expr(st.Cond, inner)
		b.expr(st.Post, inner)
		b.branch(st.Body, inner)
	case *ast.Try:
		b.block(st.Block.Stmts, s)
		if st.Catch != nil {
			inner := s.child()
			if st.CatchParam != nil {
				b.declare(st.CatchParam, inner)
			}
			b.block(st.Catch.Stmts, inner)
		}
		if st.Finally != nil {
			b.block(st.Finally.Stmts, s)
		}
	case *ast.Switch:
		b.expr(st.Tag, s)
		inner := s.child()
		var all []ast.Stmt
		for _, c := range st.Cases {
			all = append(all, c.Body...)
		}
		b.predeclare(all, inner)
		for _, c := range st.Cases {
			b.expr(c.Test, inner)
			b.stmts(c.Body, inner)
		}
	}
}

func (b *binder) expr(expr ast.Expr, s *scope) {
	if expr == nil {
		return
	}
	ast.Inspect(expr, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			b.resolve(n, s)
		case *ast.FuncExpr:
			b.function(n, s)
			return false
		}
		return true
	})
}

func (b *binder) function(fe *ast.FuncExpr, s *scope) {
	inner := s.child()
	for i := range fe.Params {
		b.declare(fe.Params[i].Symbol, inner)
	}
	if fe.Body == nil {
		b.expr(fe.ExprBody, inner)
		return
	}
	b.hoistVars(fe.Body.Stmts, inner)
	b.predeclare(fe.Body.Stmts, inner)
	b.stmts(fe.Body.Stmts, inner)
}
