package checker

import (
	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/types"
	"github.com/hashicorp/go-set/v3"
)

// checkFunc checks the body of a function expression and returns its type.
//
// contextual is the type the context expects the function to have, or NoType.
// Its call signatures type the parameters that carry no annotation, and its
// return type is the expected type of the returned expressions. Without a return
// annotation the return type is inferred from the return statements.
//
// iife marks a function expression that is called where it is written: its body
// sees the narrowing of the enclosing flow.
func (ctx *checkCtx) checkFunc(fe *ast.FuncExpr, contextual types.TypeID, iife bool) types.TypeID {
	db := ctx.db
	scope, typeParams := ctx.withTypeParams(fe, fe.TypeParams)
	body := scope.nest()

	sigs := ctx.contextualSignatures(contextual)
	sig := types.Signature{TypeParams: typeParams}
	for i, p := range fe.Params {
		expected := types.NoType
		if p.Type == nil {
			expected = ctx.contextualParam(contextual, sigs, i, p)
		}
		sig.Params = append(sig.Params, body.paramOf(p, expected))
	}
	sig.Predicate = body.predicate(fe.Predicate, fe.Params)
	annotated := body.returnAnnotation(fe, sig.Predicate)

	body.fn = &funcState{returnType: annotated, contextualReturn: contextualReturn(db, sigs)}
	savedFlow, savedJumps, savedSites := ctx.flow, ctx.jumps, ctx.throwSites
	reassigned := ctx.reassignedIn(fe)
	ctx.flow = ctx.flow.ForClosure(iife, reassigned.Contains, ctx.mutable)
	ctx.jumps, ctx.throwSites = nil, nil
	for i, p := range fe.Params {
		if p.Symbol == nil {
			continue
		}
		t := sig.Params[i].Type
		if p.Optional && ctx.opts.StrictNullChecks {
			t = db.Union(t, types.Undefined)
		}
		ctx.symbol(p.Symbol).declared = t
		ctx.flow = ctx.flow.Declare(narrow.Ref{Symbol: p.Symbol.ID}, t, true)
	}

	reachableEnd := false
	if fe.ExprBody != nil {
		body.checkReturned(fe.ExprBody)
	} else {
		body.declareBlock(fe.Body.Stmts)
		body.checkStmts(fe.Body.Stmts)
		reachableEnd = !ctx.flow.Unreachable()
	}
	ctx.flow, ctx.jumps, ctx.throwSites = savedFlow, savedJumps, savedSites
	if iife {
		for _, id := range reassigned.Slice() {
			ctx.flow = ctx.flow.Invalidate(narrow.Ref{Symbol: id})
		}
	}

	sig.Return = annotated
	if annotated == types.NoType {
		sig.Return = body.fn.inferredReturn(db, reachableEnd, fe.Arrow)
	}
	t := db.FuncOf(sig)
	ctx.logger.Debug("checked function", "at", fe.Range, "iife", iife, "type", db.Slog(t))
	return t
}

// checkReturned checks a returned expression against the return annotation,
// or records it for return type inference
func (ctx *checkCtx) checkReturned(x ast.Expr) {
	fn := ctx.fn
	if fn.returnType != types.NoType {
		t := ctx.checkExpr(x, fn.returnType)
		ctx.checkAssignable(x, t, fn.returnType, x)
		return
	}
	t := ctx.checkExpr(x, fn.contextualReturn)
	if isFresh(x) && !ctx.impliesLiterals(fn.contextualReturn) {
		t = ctx.db.Widen(t)
	}
	fn.returns = append(fn.returns, t)
}

// inferredReturn is the union of the returned types. A body whose end is
// reachable also returns undefined, or void when it returns nothing else.
func (fn *funcState) inferredReturn(db *types.Database, reachableEnd, arrow bool) types.TypeID {
	implicit := reachableEnd || fn.bareReturn
	switch {
	case len(fn.returns) == 0 && implicit:
		return types.Void
	case len(fn.returns) == 0 && arrow:
		return types.Never
	case len(fn.returns) == 0:
		return types.Void
	case implicit:
		return db.Union(append(fn.returns, types.Undefined)...)
	}
	return db.Union(fn.returns...)
}

// contextualSignatures lists the call signatures of the type expected for a function expression
func (ctx *checkCtx) contextualSignatures(contextual types.TypeID) []types.Signature {
	if contextual == types.NoType || contextual.IsAnyOrUnknown() {
		return nil
	}
	var sigs []types.Signature
	for _, m := range ctx.db.UnionMembers(ctx.removeNullish(contextual)) {
		sigs = append(sigs, ctx.solver.CallSignatures(m)...)
	}
	return sigs
}

// contextualParam is the type the context gives to p, the i-th parameter of a
// function expression, or NoType when p is implicitly any. Conflicting
// signatures give the union of their parameter types, but only under
// noImplicitAny: otherwise the parameter is any.
func (ctx *checkCtx) contextualParam(contextual types.TypeID, sigs []types.Signature, i int, p ast.Param) types.TypeID {
	db := ctx.db
	if contextual == types.Any {
		return types.NoType
	}
	var candidates []types.TypeID
	for _, sig := range sigs {
		params := db.SpreadParams(sig.Params)
		t := paramAt(db, params, i)
		if p.Rest {
			t = restParamAt(db, params, i)
		}
		if t != types.NoType {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) > 0 {
		if allEqual(candidates) {
			return candidates[0]
		}
		if ctx.opts.NoImplicitAny {
			return db.Union(candidates...)
		}
		return types.NoType
	}
	ctx.reportImplicitAny(p)
	return types.NoType
}

func allEqual(ts []types.TypeID) bool {
	for _, t := range ts[1:] {
		if t != ts[0] {
			return false
		}
	}
	return true
}

// contextualReturn is the return type expected by the contextual signatures
func contextualReturn(db *types.Database, sigs []types.Signature) types.TypeID {
	if len(sigs) == 0 {
		return types.NoType
	}
	rets := make([]types.TypeID, len(sigs))
	for i, sig := range sigs {
		rets[i] = sig.Return
	}
	return db.Union(rets...)
}

// paramAt is the type the i-th argument of a call is passed to, or NoType past the last parameter
func paramAt(db *types.Database, params []types.Param, i int) types.TypeID {
	if i < len(params) && !params[i].Rest {
		return params[i].Type
	}
	if len(params) == 0 || !params[len(params)-1].Rest {
		return types.NoType
	}
	return restElement(db, params[len(params)-1].Type)
}

// restParamAt is the type of a rest parameter at position i receiving the
// parameters of params from i on
func restParamAt(db *types.Database, params []types.Param, i int) types.TypeID {
	if i >= len(params) {
		if len(params) == 0 || !params[len(params)-1].Rest {
			return types.NoType
		}
		last := params[len(params)-1].Type
		if _, ok := db.Lookup(last).(types.Array); ok {
			return last
		}
		return db.ArrayOf(restElement(db, last))
	}
	if params[i].Rest {
		return params[i].Type
	}
	var elems []types.TypeID
	for _, p := range params[i:] {
		if p.Rest {
			elems = append(elems, restElement(db, p.Type))
			continue
		}
		elems = append(elems, p.Type)
	}
	return db.ArrayOf(db.Union(elems...))
}

func restElement(db *types.Database, t types.TypeID) types.TypeID {
	if a, ok := db.Lookup(t).(types.Array); ok {
		return a.Elem
	}
	return db.IndexedAccess(t, types.Number)
}

// reassignedIn collects the bindings assigned anywhere inside fe
func (ctx *checkCtx) reassignedIn(fe *ast.FuncExpr) *set.Set[ast.SymbolID] {
	if s, ok := ctx.reassigned[fe]; ok {
		return s
	}
	s := set.New[ast.SymbolID](0)
	ast.Inspect(fe, func(n ast.Node) bool {
		if a, ok := n.(*ast.Assign); ok {
			if id, ok := ast.Unparen(a.Target).(*ast.Ident); ok && id.Symbol != nil {
				s.Insert(id.Symbol.ID)
			}
		}
		return true
	})
	ctx.reassigned[fe] = s
	return s
}

func (ctx *checkCtx) mutable(id ast.SymbolID) bool {
	info, ok := ctx.symbols[id]
	return !ok || info.sym.Mutable()
}
