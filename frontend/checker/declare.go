package checker

import (
	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/solver"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/frontend/types"
)

// declareBlock runs the first two passes over the statements of one block. The
// first declares every type alias and interface so that forward and mutually
// recursive references resolve, and records where value declarations live. The
// second defines the bodies. Nothing is related before both passes are done.
func (ctx *checkCtx) declareBlock(stmts []ast.Stmt) {
	db := ctx.db
	type pendingDef struct {
		id     types.DefID
		scope  *checkCtx
		alias  *ast.TypeAlias
		bodies []*ast.Interface
	}
	var pending []*pendingDef
	interfaces := make(map[string]*pendingDef)

	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *ast.TypeAlias:
			params := ctx.typeParamsOf(stmt, stmt.TypeParams)
			id := db.DeclareDef(stmt.Name, params, false)
			ctx.typeNames[stmt.Name] = typeName{def: id, params: params}
			pending = append(pending, &pendingDef{id: id, alias: stmt})
		case *ast.Interface:
			if def, ok := interfaces[stmt.Name]; ok {
				// declaration merging: later bodies add members to the first
				def.bodies = append(def.bodies, stmt)
				continue
			}
			params := ctx.typeParamsOf(stmt, stmt.TypeParams)
			id := db.DeclareDef(stmt.Name, params, true)
			ctx.typeNames[stmt.Name] = typeName{def: id, params: params}
			def := &pendingDef{id: id, bodies: []*ast.Interface{stmt}}
			interfaces[stmt.Name] = def
			pending = append(pending, def)
		case *ast.FuncDecl:
			ctx.symbol(stmt.Symbol).scope = ctx
		case *ast.VarDecl:
			ctx.symbol(stmt.Symbol).scope = ctx
		}
	}

	for _, def := range pending {
		if def.alias != nil {
			nested, _ := ctx.withTypeParams(def.alias, def.alias.TypeParams)
			db.DefineDef(def.id, nested.typeOf(def.alias.Type))
			continue
		}
		first := def.bodies[0]
		nested, params := ctx.withTypeParams(first, first.TypeParams)
		bodies := make([]types.TypeID, 0, len(def.bodies))
		for _, decl := range def.bodies {
			scope := nested
			if decl != first {
				// merged declarations name the parameters of the first
				scope = nested.nest()
				for i, tp := range decl.TypeParams {
					if i < len(params) {
						scope.typeNames[tp.Name] = typeName{isParam: true, param: params[i]}
					}
				}
			}
			bodies = append(bodies, scope.typeOf(decl.Body))
		}
		body := bodies[0]
		if len(bodies) > 1 {
			body = db.Intersection(bodies...)
		}
		db.DefineDef(def.id, body)
	}
}

// declaredType is the type of a value symbol, resolving its declaration on
// demand when it is referenced before the walk reached it
func (ctx *checkCtx) declaredType(sym *ast.Symbol) types.TypeID {
	info := ctx.symbol(sym)
	if info.declared != types.NoType {
		return info.declared
	}
	if sym.Kind == ast.SymGlobal {
		if t, ok := ctx.globals[sym.Name]; ok {
			info.declared = t
			return t
		}
		return types.NoType
	}
	if info.resolving || info.scope == nil {
		// a reference to itself from its own initializer or return type
		return types.Any
	}
	info.resolving = true
	defer func() { info.resolving = false }()

	scope := info.scope
	switch decl := sym.Decl.(type) {
	case *ast.FuncDecl:
		var t types.TypeID
		ctx.speculate(func() { t = scope.funcType(decl.Func) })
		info.declared = t
	case *ast.VarDecl:
		if decl.Type != nil {
			var t types.TypeID
			ctx.speculate(func() { t = scope.typeOf(decl.Type) })
			return t
		}
		if decl.Init != nil {
			var t types.TypeID
			ctx.speculate(func() { t = scope.initializerType(decl, types.NoType) })
			return t
		}
		return types.Any
	default:
		return types.Any
	}
	return info.declared
}

// funcType is the type of a function declaration seen from outside its body.
// An unannotated return type is inferred by checking the body.
func (ctx *checkCtx) funcType(fe *ast.FuncExpr) types.TypeID {
	nested, params := ctx.withTypeParams(fe, fe.TypeParams)
	if fe.Return == nil && fe.Predicate == nil {
		return nested.checkFunc(fe, types.NoType, false)
	}
	sig := types.Signature{TypeParams: params}
	for _, p := range fe.Params {
		sig.Params = append(sig.Params, nested.paramOf(p, types.NoType))
	}
	sig.Predicate = nested.predicate(fe.Predicate, fe.Params)
	sig.Return = nested.returnAnnotation(fe, sig.Predicate)
	return ctx.db.FuncOf(sig)
}

// paramOf is the declared parameter p, typed contextually by t when unannotated
func (ctx *checkCtx) paramOf(p ast.Param, t types.TypeID) types.Param {
	param := types.Param{Name: p.Name, Optional: p.Optional && !p.Rest, Rest: p.Rest}
	switch {
	case p.Type != nil:
		param.Type = ctx.typeOf(p.Type)
	case t != types.NoType:
		param.Type = t
	case p.Rest:
		param.Type = ctx.db.ArrayOf(types.Any)
	default:
		param.Type = types.Any
	}
	return param
}

func (ctx *checkCtx) returnAnnotation(fe *ast.FuncExpr, pred *types.Predicate) types.TypeID {
	switch {
	case fe.Return != nil:
		return ctx.typeOf(fe.Return)
	case pred != nil && pred.Asserts:
		return types.Void
	case pred != nil:
		return types.Boolean
	}
	return types.NoType
}

// declareVar checks a variable declaration and brings its binding into the flow
func (ctx *checkCtx) declareVar(decl *ast.VarDecl) {
	sym := decl.Symbol
	info := ctx.symbol(sym)
	ref := narrow.Ref{Symbol: sym.ID}

	declared := types.NoType
	if decl.Type != nil {
		declared = ctx.typeOf(decl.Type)
	}
	if decl.Init == nil {
		if declared == types.NoType {
			declared = types.Any
		}
		info.declared = declared
		ctx.flow = ctx.flow.Declare(ref, declared, sym.Kind == ast.SymConst)
		return
	}

	initType := ctx.initializerType(decl, declared)
	if declared == types.NoType {
		info.declared = initType
		ctx.flow = ctx.flow.Declare(ref, initType, true)
		return
	}
	ctx.checkAssignable(decl.Init, initType, declared, decl.Init)
	info.declared = declared
	ctx.flow = ctx.flow.Declare(ref, declared, false).
		Assign(ref, declared, ctx.narrower.ByAssignment(declared, initType), ast.RangeOf(decl))
}

// initializerType types the initializer of decl against its annotation. Without
// one, the literal types of a mutable binding's initializer are widened.
func (ctx *checkCtx) initializerType(decl *ast.VarDecl, declared types.TypeID) types.TypeID {
	t := ctx.checkExpr(decl.Init, declared)
	if declared != types.NoType {
		return t
	}
	if decl.Symbol.Kind != ast.SymConst && isFresh(decl.Init) {
		return ctx.db.WidenDeep(t)
	}
	return t
}

// checkAssignable reports src, the type of expr, not being assignable to tgt.
// Fresh object literals are first checked for properties tgt does not declare.
func (ctx *checkCtx) checkAssignable(expr ast.Expr, src, tgt types.TypeID, at ast.Positioner) bool {
	if ctx.excessProperties(expr, tgt) {
		return false
	}
	f := ctx.solver.Explain(src, tgt, solver.Strict)
	if f == nil {
		return true
	}
	if f.Kind == solver.RecursionLimitExceeded {
		ctx.addError(tserr.New(tserr.NewInstantiationTooDeep{Positioner: ast.RangeOf(at)}))
		return false
	}
	ctx.addError(tserr.New(tserr.NewNotAssignable{
		Positioner:  ast.RangeOf(at),
		Source:      ctx.db.Format(src),
		Target:      ctx.db.Format(tgt),
		Elaboration: f.Reasons(),
	}))
	return false
}
