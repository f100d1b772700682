package checker

import (
	"strings"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/types"
)

// checkCondition types cond and returns its type with the flows that hold
// after it evaluated truthy and falsy. The operands of && and || are checked
// in the flow their left side leaves them in.
func (ctx *checkCtx) checkCondition(cond ast.Expr) (types.TypeID, narrow.Flow, narrow.Flow) {
	db := ctx.db
	switch e := cond.(type) {
	case *ast.Paren:
		return ctx.checkCondition(e.X)
	case *ast.Unary:
		if e.Op == "!" {
			_, whenTrue, whenFalse := ctx.checkCondition(e.X)
			return types.Boolean, whenFalse, whenTrue
		}
	case *ast.Binary:
		switch e.Op {
		case "&&":
			x, xTrue, xFalse := ctx.checkCondition(e.X)
			ctx.flow = xTrue
			y, yTrue, yFalse := ctx.checkCondition(e.Y)
			return db.Union(ctx.narrower.ByTruthiness(x, false), y), yTrue, narrow.Join(db, xFalse, yFalse)
		case "||":
			x, xTrue, xFalse := ctx.checkCondition(e.X)
			ctx.flow = xFalse
			y, yTrue, yFalse := ctx.checkCondition(e.Y)
			return db.Union(ctx.narrower.ByTruthiness(x, true), y), narrow.Join(db, xTrue, yTrue), yFalse
		case "??":
			x := ctx.checkExpr(e.X, types.NoType)
			before := ctx.flow
			if ref, ok := refOf(e.X); ok {
				ctx.flow = ctx.applyGuard(ctx.flow, narrow.Guard{Kind: narrow.GuardNullish, Ref: ref, Range: e.Range}, true)
			}
			y := ctx.checkExpr(e.Y, types.NoType)
			after := narrow.Join(db, before, ctx.flow)
			return db.Union(ctx.removeNullish(x), y), after, after
		}
	}

	t := ctx.checkExpr(cond, types.NoType)
	whenTrue, whenFalse := ctx.flow, ctx.flow
	guards, negated := ctx.guardsOf(cond)
	for _, g := range guards {
		whenTrue = ctx.applyGuard(whenTrue, g, !negated)
		whenFalse = ctx.applyGuard(whenFalse, g, negated)
	}
	return t, whenTrue, whenFalse
}

// guardsOf extracts the guards cond establishes when it is truthy, or falsy when
// negated is set. Every guard describes the whole condition, so all of them hold at once.
func (ctx *checkCtx) guardsOf(cond ast.Expr) (guards []narrow.Guard, negated bool) {
	at := ast.RangeOf(cond)
	switch e := ast.Unparen(cond).(type) {
	case *ast.Ident, *ast.Member:
		if ref, ok := refOf(e); ok {
			return []narrow.Guard{{Kind: narrow.GuardTruthy, Ref: ref, Range: at}}, false
		}
	case *ast.Unary:
		if e.Op == "!" {
			guards, negated := ctx.guardsOf(e.X)
			return guards, !negated
		}
	case *ast.Binary:
		switch e.Op {
		case "===", "==", "!==", "!=":
			guards = append(ctx.equalityGuards(e.X, e.Y, e.Op, at), ctx.equalityGuards(e.Y, e.X, e.Op, at)...)
			return guards, e.Op == "!==" || e.Op == "!="
		case "in":
			lit, ok := ast.Unparen(e.X).(*ast.Lit)
			if !ok || lit.Kind != ast.LitString {
				return nil, false
			}
			if ref, ok := refOf(e.Y); ok {
				return []narrow.Guard{{Kind: narrow.GuardIn, Ref: ref, Tag: lit.Value, Range: at}}, false
			}
		}
	case *ast.Call:
		sig, ok := ctx.resolvedCalls[e]
		if !ok || sig.Predicate == nil || sig.Predicate.Asserts || sig.Predicate.ParamIndex >= len(e.Args) {
			return nil, false
		}
		if ref, ok := refOf(e.Args[sig.Predicate.ParamIndex]); ok {
			return []narrow.Guard{{Kind: narrow.GuardPredicate, Ref: ref, Value: sig.Predicate.Type, Range: at}}, false
		}
	}
	return nil, false
}

// equalityGuards lists the guards `refSide op valueSide` establishes on the
// references of refSide: typeof checks, nullish and literal comparisons, and a
// discriminant guard on every object the compared property path goes through
func (ctx *checkCtx) equalityGuards(refSide, valueSide ast.Expr, op string, at ast.Range) []narrow.Guard {
	loose := op == "==" || op == "!="
	if u, ok := ast.Unparen(refSide).(*ast.Unary); ok && u.Op == "typeof" {
		ref, ok := refOf(u.X)
		lit, isLit := ast.Unparen(valueSide).(*ast.Lit)
		if ok && isLit && lit.Kind == ast.LitString {
			return []narrow.Guard{{Kind: narrow.GuardTypeof, Ref: ref, Tag: lit.Value, Range: at}}
		}
		return nil
	}
	ref, ok := refOf(refSide)
	if !ok {
		return nil
	}
	var value types.TypeID
	ctx.speculate(func() { value = ctx.checkExpr(valueSide, types.NoType) })

	var guards []narrow.Guard
	switch {
	case loose && (value == types.Null || value == types.Undefined):
		return []narrow.Guard{{Kind: narrow.GuardNullish, Ref: ref, Range: at}}
	case ctx.db.IsUnit(value):
		guards = append(guards, narrow.Guard{Kind: narrow.GuardEquality, Ref: ref, Value: value, Range: at})
	default:
		return nil
	}
	if loose {
		return guards
	}
	var path []string
	for cur := ast.Unparen(refSide); ; {
		m, ok := cur.(*ast.Member)
		if !ok {
			break
		}
		path = append([]string{m.Name}, path...)
		parent, ok := refOf(m.X)
		if !ok {
			break
		}
		guards = append(guards, narrow.Guard{
			Kind:  narrow.GuardDiscriminant,
			Ref:   parent,
			Path:  append([]string(nil), path...),
			Value: value,
			Range: at,
		})
		cur = ast.Unparen(m.X)
	}
	return guards
}

// applyGuard narrows g.Ref in flow by g evaluating to sense
func (ctx *checkCtx) applyGuard(flow narrow.Flow, g narrow.Guard, sense bool) narrow.Flow {
	if flow.Unreachable() {
		return flow
	}
	current, declared := ctx.refTypes(flow, g.Ref)
	if current == types.NoType {
		return flow
	}
	return flow.Narrow(g.Ref, declared, g.Apply(ctx.narrower, current, sense), g.Range)
}

// refTypes is the type ref has in flow and the type it reverts to without narrowing.
// Property paths nobody narrowed yet are read off the type of their parent.
func (ctx *checkCtx) refTypes(flow narrow.Flow, ref narrow.Ref) (current, declared types.TypeID) {
	if fact, ok := flow.Lookup(ref); ok {
		return fact.Type, fact.Declared
	}
	if ref.Path == "" {
		info, ok := ctx.symbols[ref.Symbol]
		if !ok {
			return types.NoType, types.NoType
		}
		t := ctx.declaredType(info.sym)
		return t, t
	}
	parent := narrow.Ref{Symbol: ref.Symbol}
	name := ref.Path
	if i := strings.LastIndexByte(ref.Path, '.'); i >= 0 {
		parent.Path, name = ref.Path[:i], ref.Path[i+1:]
	}
	object, _ := ctx.refTypes(flow, parent)
	if object == types.NoType {
		return types.NoType, types.NoType
	}
	t, ok := ctx.propertyType(ctx.removeNullish(object), name)
	if !ok {
		return types.NoType, types.NoType
	}
	return t, t
}

// narrowByAssertion applies the assertion signature a call statement resolved to
func (ctx *checkCtx) narrowByAssertion(call *ast.Call) {
	sig, ok := ctx.resolvedCalls[call]
	if !ok || sig.Predicate == nil || !sig.Predicate.Asserts || sig.Predicate.ParamIndex >= len(call.Args) {
		return
	}
	pred := sig.Predicate
	arg := call.Args[pred.ParamIndex]
	if ref, ok := refOf(arg); ok {
		g := narrow.Guard{Kind: narrow.GuardPredicate, Ref: ref, Value: pred.Type, Asserts: true, Range: call.Range}
		ctx.flow = ctx.applyGuard(ctx.flow, g, true)
		return
	}
	if pred.Type != types.NoType {
		return
	}
	// `asserts v` called with a condition asserts the condition
	guards, negated := ctx.guardsOf(arg)
	for _, g := range guards {
		ctx.flow = ctx.applyGuard(ctx.flow, g, !negated)
	}
}
