package checker

import (
	"fmt"
	"strconv"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/solver"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/frontend/types"
)

// callArg is one value passed to a call. A spread tuple is passed as one callArg
// per element, a spread array as a single open-ended one.
type callArg struct {
	expr ast.Expr
	// typ is set when the value was already typed while expanding a spread
	typ types.TypeID
	// open marks a spread array, which stands for any number of values
	open bool
}

func (ctx *checkCtx) checkCall(call *ast.Call, contextual types.TypeID) types.TypeID {
	db := ctx.db
	var callee types.TypeID
	if fe, ok := ast.Unparen(call.Callee).(*ast.FuncExpr); ok {
		callee = ctx.checkFunc(fe, ctx.iifeContext(call, fe), true)
	} else {
		callee = ctx.checkExpr(call.Callee, types.NoType)
	}

	switch callee {
	case types.Any, types.Error, types.Function:
		ctx.checkArgsAgainst(call, types.Any)
		if callee == types.Error {
			return types.Error
		}
		return types.Any
	case types.Unknown:
		ctx.addError(tserr.New(tserr.NewIsUnknown{Positioner: ast.RangeOf(call.Callee), Expr: ast.ExprString(call.Callee)}))
		ctx.checkArgsAgainst(call, types.NoType)
		return types.Error
	}

	sigs := ctx.callSignatures(callee)
	if len(sigs) == 0 {
		ctx.addError(tserr.New(tserr.NewNotCallable{Positioner: ast.RangeOf(call.Callee), Type: db.Format(callee)}))
		ctx.checkArgsAgainst(call, types.NoType)
		return types.Error
	}
	return ctx.resolveCall(call, sigs, contextual)
}

// iifeContext is the contextual type of a function expression called where it
// is written: its parameters take the types of the arguments
func (ctx *checkCtx) iifeContext(call *ast.Call, fe *ast.FuncExpr) types.TypeID {
	db := ctx.db
	argTypes := make([]types.TypeID, len(call.Args))
	ctx.speculate(func() {
		for i, a := range call.Args {
			t := ctx.checkExpr(a, types.NoType)
			if isFresh(a) {
				t = db.WidenDeep(t)
			}
			argTypes[i] = t
		}
	})
	sig := types.Signature{Return: types.Unknown}
	for i, p := range fe.Params {
		param := types.Param{Name: p.Name, Type: types.Undefined}
		switch {
		case p.Rest:
			rest := db.ArrayOf(types.Never)
			if i < len(argTypes) {
				rest = db.ArrayOf(db.Union(argTypes[i:]...))
			}
			param.Type, param.Rest = rest, true
		case i < len(argTypes):
			param.Type = argTypes[i]
		}
		sig.Params = append(sig.Params, param)
		if p.Rest {
			break
		}
	}
	return db.FuncOf(sig)
}

// checkArgsAgainst types the arguments of a call that cannot be resolved
func (ctx *checkCtx) checkArgsAgainst(call *ast.Call, contextual types.TypeID) {
	for _, a := range call.Args {
		ctx.checkExpr(a, contextual)
	}
}

// callSignatures lists the signatures a value of type t can be called with. A union
// is callable when each member has one non-generic signature; the parameters
// then take the intersection of the members' and the results the union.
func (ctx *checkCtx) callSignatures(t types.TypeID) []types.Signature {
	db := ctx.db
	members := db.UnionMembers(t)
	if len(members) == 1 {
		return ctx.solver.CallSignatures(t)
	}
	var combined *types.Signature
	for _, m := range members {
		sigs := ctx.solver.CallSignatures(m)
		if len(sigs) != 1 || len(sigs[0].TypeParams) > 0 {
			return nil
		}
		sig := sigs[0]
		if combined == nil {
			combined = &types.Signature{Params: db.SpreadParams(sig.Params), Return: sig.Return}
			continue
		}
		combined.Params = combineParams(db, combined.Params, db.SpreadParams(sig.Params))
		combined.Return = db.Union(combined.Return, sig.Return)
	}
	return []types.Signature{*combined}
}

func combineParams(db *types.Database, a, b []types.Param) []types.Param {
	n := max(len(a), len(b))
	out := make([]types.Param, 0, n)
	for i := range n {
		switch {
		case i >= len(a):
			out = append(out, b[i])
		case i >= len(b):
			out = append(out, a[i])
		default:
			p := a[i]
			p.Type = db.Intersection(a[i].Type, b[i].Type)
			p.Optional = a[i].Optional && b[i].Optional
			p.Rest = a[i].Rest && b[i].Rest
			out = append(out, p)
		}
		if out[len(out)-1].Rest {
			break
		}
	}
	return out
}

// resolveCall picks the signature of sigs the call matches and returns the type
// of the call. Overloads are tried in order, speculatively; the first that
// raises no diagnostic is checked for real.
func (ctx *checkCtx) resolveCall(call *ast.Call, sigs []types.Signature, contextual types.TypeID) types.TypeID {
	db := ctx.db
	args, open := ctx.expandArgs(call)
	var candidates []types.Signature
	for _, sig := range sigs {
		if accepts(db, sig, len(args), open) && len(call.TypeArgs) <= len(sig.TypeParams) {
			candidates = append(candidates, sig)
		}
	}

	switch len(candidates) {
	case 0:
		ctx.reportArity(call, sigs, len(args))
		for _, a := range args {
			if a.typ == types.NoType {
				ctx.checkExpr(a.expr, types.NoType)
			}
		}
		return types.Error
	case 1:
		return ctx.checkSignature(call, args, candidates[0], contextual)
	}

	attempts := make([]string, 0, len(candidates))
	for i, sig := range candidates {
		raised := ctx.speculate(func() { ctx.checkSignature(call, args, sig, contextual) })
		if !raised.HasError() {
			return ctx.checkSignature(call, args, sig, contextual)
		}
		attempts = append(attempts, fmt.Sprintf("Overload %d of %d, '%s', gave the following error: %s",
			i+1, len(candidates), db.FormatSignature(sig), raised.Errors()[0].Error()))
	}
	ctx.addError(tserr.New(tserr.NewNoOverloadMatches{Positioner: call.Range, Attempts: attempts}))
	return types.Error
}

// expandArgs lists the values passed by call. Spread tuples are expanded into
// their elements; the returned flag is set when a spread array makes the count open.
func (ctx *checkCtx) expandArgs(call *ast.Call) ([]callArg, bool) {
	db := ctx.db
	args := make([]callArg, 0, len(call.Args))
	open := false
	for _, a := range call.Args {
		s, ok := a.(*ast.Spread)
		if !ok {
			args = append(args, callArg{expr: a})
			continue
		}
		t := ctx.checkExpr(s.X, types.NoType)
		if elems := db.TupleElements(t); elems != nil {
			for _, e := range elems {
				if e.Rest {
					args = append(args, callArg{expr: a, typ: restElement(db, e.Type), open: true})
					open = true
					continue
				}
				args = append(args, callArg{expr: a, typ: e.Type})
			}
			continue
		}
		args = append(args, callArg{expr: a, typ: ctx.spreadElement(t), open: true})
		open = true
	}
	return args, open
}

// arity is the number of required parameters and the maximum number of
// arguments, which is -1 when a rest parameter takes any number
func arity(params []types.Param) (required, most int) {
	for _, p := range params {
		if p.Rest {
			return required, -1
		}
		if !p.Optional {
			required++
		}
	}
	return required, len(params)
}

// accepts reports whether sig can be called with n arguments. An open argument
// list may supply any number of values at its spread.
func accepts(db *types.Database, sig types.Signature, n int, open bool) bool {
	required, most := arity(db.SpreadParams(sig.Params))
	if open {
		return most < 0 || n-1 <= most
	}
	return n >= required && (most < 0 || n <= most)
}

func (ctx *checkCtx) reportArity(call *ast.Call, sigs []types.Signature, got int) {
	fewest, most, unbounded := -1, 0, false
	for _, sig := range sigs {
		required, m := arity(ctx.db.SpreadParams(sig.Params))
		if fewest < 0 || required < fewest {
			fewest = required
		}
		if m < 0 {
			unbounded = true
		}
		most = max(most, m)
	}
	expected := strconv.Itoa(fewest)
	if !unbounded && most != fewest {
		expected = fmt.Sprintf("%d-%d", fewest, most)
	}
	ctx.addError(tserr.New(tserr.NewArgumentCount{
		Positioner: call.Range,
		Expected:   expected,
		Got:        got,
		AtLeast:    unbounded,
	}))
}

// checkSignature checks the arguments of call against sig and returns the
// type of the call. Generic signatures are instantiated first, from the
// explicit type arguments or by inference.
func (ctx *checkCtx) checkSignature(call *ast.Call, args []callArg, sig types.Signature, contextual types.TypeID) types.TypeID {
	db := ctx.db
	if len(sig.TypeParams) > 0 && len(call.TypeArgs) > 0 {
		sig = ctx.explicitInstantiation(call, sig)
	}
	if len(sig.TypeParams) == 0 {
		params := db.SpreadParams(sig.Params)
		failed := false
		for i, a := range args {
			pt := paramAt(db, params, i)
			t := a.typ
			if t == types.NoType {
				t = ctx.checkExpr(a.expr, pt)
			}
			if !failed && pt != types.NoType {
				failed = !ctx.checkArgument(a, t, pt)
			}
		}
		ctx.resolvedCalls[call] = sig
		return sig.Return
	}
	return ctx.inferCall(call, args, sig, contextual)
}

func (ctx *checkCtx) explicitInstantiation(call *ast.Call, sig types.Signature) types.Signature {
	db := ctx.db
	mapping := make(map[types.TypeID]types.TypeID, len(sig.TypeParams))
	for i, p := range sig.TypeParams {
		switch {
		case i < len(call.TypeArgs):
			mapping[p] = ctx.typeOf(call.TypeArgs[i])
		case db.Default(p) != types.NoType:
			mapping[p] = db.Substitute(db.Default(p), mapping)
		default:
			mapping[p] = types.Unknown
		}
	}
	return db.InstantiateSignature(sig, mapping)
}

// inferCall infers the type arguments of a generic call. Function expressions
// whose parameters need a contextual type are checked once the type parameters
// their parameter position mentions are fixed.
func (ctx *checkCtx) inferCall(call *ast.Call, args []callArg, sig types.Signature, contextual types.TypeID) types.TypeID {
	db := ctx.db
	declared := db.SpreadParams(sig.Params)
	solverArgs := make([]solver.Argument, len(args))
	lambdas := make([]types.TypeID, len(args))
	for i, a := range args {
		rng := ast.RangeOf(a.expr)
		if a.typ != types.NoType {
			solverArgs[i] = solver.Argument{Type: a.typ, Range: rng}
			continue
		}
		if fe, ok := contextSensitive(a.expr); ok {
			solverArgs[i] = solver.Argument{Range: rng, Deferred: func(param types.TypeID) types.TypeID {
				t := ctx.checkFunc(fe, param, false)
				lambdas[i] = t
				return t
			}}
			continue
		}
		t := ctx.checkExpr(a.expr, paramAt(db, declared, i))
		solverArgs[i] = solver.Argument{Type: t, Fresh: isFresh(a.expr), Range: rng}
	}
	if contextual != types.NoType && db.Contains(contextual, isInferVar(db)) {
		contextual = types.NoType
	}

	inf := ctx.solver.Infer(sig, solverArgs, contextual)
	params := db.SpreadParams(inf.Signature.Params)
	failed := false
	for i, a := range args {
		pt := paramAt(db, params, i)
		t := solverArgs[i].Type
		if solverArgs[i].Deferred != nil {
			t = lambdas[i]
			if t == types.NoType {
				fe, _ := contextSensitive(a.expr)
				t = ctx.checkFunc(fe, pt, false)
			}
		}
		if !failed && pt != types.NoType {
			failed = !ctx.checkArgument(a, t, pt)
		}
	}
	if !failed && len(inf.Issues) > 0 {
		issue := inf.Issues[0]
		at := ast.RangeOf(call)
		if issue.Arg >= 0 && issue.Arg < len(args) {
			at = ast.RangeOf(args[issue.Arg].expr)
		}
		ctx.addError(tserr.New(tserr.NewArgumentNotAssignable{
			Positioner:  at,
			Argument:    db.Format(issue.Inferred),
			Parameter:   db.Format(issue.Bound),
			Elaboration: []string{issue.Message(db)},
		}))
	}
	ctx.resolvedCalls[call] = inf.Signature
	return inf.Signature.Return
}

func isInferVar(db *types.Database) func(types.TypeID) bool {
	return func(t types.TypeID) bool {
		_, ok := db.Lookup(t).(types.InferVar)
		return ok
	}
}

// contextSensitive returns expr as a function expression if some of its
// parameters take their type from the context
func contextSensitive(expr ast.Expr) (*ast.FuncExpr, bool) {
	fe, ok := ast.Unparen(expr).(*ast.FuncExpr)
	if !ok || len(fe.TypeParams) > 0 {
		return nil, false
	}
	for _, p := range fe.Params {
		if p.Type == nil {
			return fe, true
		}
	}
	return nil, false
}

// checkArgument relates the type t of argument a to the parameter type pt
func (ctx *checkCtx) checkArgument(a callArg, t, pt types.TypeID) bool {
	if a.typ == types.NoType && ctx.excessProperties(ast.Unparen(a.expr), pt) {
		return false
	}
	f := ctx.solver.Explain(t, pt, solver.Strict)
	if f == nil {
		return true
	}
	if f.Kind == solver.RecursionLimitExceeded {
		ctx.addError(tserr.New(tserr.NewInstantiationTooDeep{Positioner: ast.RangeOf(a.expr)}))
		return false
	}
	ctx.addError(tserr.New(tserr.NewArgumentNotAssignable{
		Positioner:  ast.RangeOf(a.expr),
		Argument:    ctx.db.Format(t),
		Parameter:   ctx.db.Format(pt),
		Elaboration: f.Reasons(),
	}))
	return false
}
