package checker

import (
	"fmt"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/types"
)

func (ctx *checkCtx) checkStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		ctx.recordThrowSite()
		ctx.checkStmt(stmt)
	}
	ctx.recordThrowSite()
}

// recordThrowSite notes that an exception thrown here reaches the enclosing catch
// or finally clause with the current flow
func (ctx *checkCtx) recordThrowSite() {
	if ctx.throwSites != nil && !ctx.flow.Unreachable() {
		*ctx.throwSites = append(*ctx.throwSites, ctx.flow)
	}
}

func (ctx *checkCtx) checkStmt(stmt ast.Stmt) {
	db := ctx.db
	switch s := stmt.(type) {
	case *ast.VarDecl:
		ctx.declareVar(s)
	case *ast.FuncDecl:
		info := ctx.symbol(s.Symbol)
		info.declared = ctx.checkFunc(s.Func, types.NoType, false)
	case *ast.TypeAlias, *ast.Interface:
		// defined by declareBlock
	case *ast.ExprStmt:
		t := ctx.checkExpr(s.X, types.NoType)
		if call, ok := ast.Unparen(s.X).(*ast.Call); ok {
			ctx.narrowByAssertion(call)
			if t == types.Never {
				ctx.flow = ctx.flow.MarkUnreachable()
			}
		}
	case *ast.Return:
		switch {
		case ctx.fn == nil:
			if s.X != nil {
				ctx.checkExpr(s.X, types.NoType)
			}
		case s.X == nil:
			ctx.fn.bareReturn = true
		default:
			ctx.checkReturned(s.X)
		}
		ctx.flow = ctx.flow.MarkUnreachable()
	case *ast.Throw:
		ctx.checkExpr(s.X, types.NoType)
		ctx.flow = ctx.flow.MarkUnreachable()
	case *ast.Block:
		ctx.checkBlock(s.Stmts)
	case *ast.If:
		_, whenTrue, whenFalse := ctx.checkCondition(s.Cond)
		ctx.flow = whenTrue
		ctx.checkBranch(s.Then)
		thenFlow := ctx.flow
		ctx.flow = whenFalse
		if s.Else != nil {
			ctx.checkBranch(s.Else)
		}
		ctx.flow = narrow.Join(db, thenFlow, ctx.flow)
	case *ast.While:
		ctx.checkWhile(s)
	case *ast.For:
		ctx.checkFor(s)
	case *ast.Break:
		if ctx.jumps != nil {
			ctx.jumps.breaks = append(ctx.jumps.breaks, ctx.flow)
		}
		ctx.flow = ctx.flow.MarkUnreachable()
	case *ast.Continue:
		for j := ctx.jumps; j != nil; j = j.outer {
			if j.loop {
				j.continues = append(j.continues, ctx.flow)
				break
			}
		}
		ctx.flow = ctx.flow.MarkUnreachable()
	case *ast.Try:
		ctx.checkTry(s)
	case *ast.Switch:
		ctx.checkSwitch(s)
	default:
		panic(fmt.Sprintf("unexpected statement %T at %v", stmt, ast.RangeOf(stmt)))
	}
}

// checkBlock checks stmts in a new lexical scope
func (ctx *checkCtx) checkBlock(stmts []ast.Stmt) {
	nested := ctx.nest()
	nested.declareBlock(stmts)
	nested.checkStmts(stmts)
}

// checkBranch checks the body of an if or a loop
func (ctx *checkCtx) checkBranch(stmt ast.Stmt) {
	if b, ok := stmt.(*ast.Block); ok {
		ctx.checkBlock(b.Stmts)
		return
	}
	ctx.checkBlock([]ast.Stmt{stmt})
}

// loopIteration checks one iteration of a loop starting at head. It returns the
// flow leaving through the condition and the flows reaching the next iteration.
type loopIteration func(head narrow.Flow) (exit narrow.Flow, back []narrow.Flow)

// checkLoop finds the flow at the head of a loop by iterating its body
// speculatively until the head settles, then checks the body once from there
func (ctx *checkCtx) checkLoop(iterate loopIteration) {
	db := ctx.db
	run := func(head narrow.Flow) (narrow.Flow, []narrow.Flow, []narrow.Flow) {
		jumps := &jumpTargets{loop: true, outer: ctx.jumps}
		ctx.jumps = jumps
		exit, back := iterate(head)
		ctx.jumps = jumps.outer
		return exit, append(back, jumps.continues...), jumps.breaks
	}
	head := narrow.Loop(db, ctx.flow, func(head narrow.Flow) []narrow.Flow {
		var back []narrow.Flow
		ctx.speculate(func() { _, back, _ = run(head) })
		return back
	})
	exit, _, breaks := run(head)
	ctx.flow = narrow.Join(db, append(breaks, exit)...)
}

func (ctx *checkCtx) checkWhile(s *ast.While) {
	if s.DoWhile {
		ctx.checkLoop(func(head narrow.Flow) (narrow.Flow, []narrow.Flow) {
			ctx.flow = head
			ctx.checkBranch(s.Body)
			ctx.flow = narrow.Join(ctx.db, append(ctx.jumps.continues, ctx.flow)...)
			ctx.jumps.continues = nil
			_, whenTrue, whenFalse := ctx.checkCondition(s.Cond)
			return exitFlow(s.Cond, whenFalse), []narrow.Flow{whenTrue}
		})
		return
	}
	ctx.checkLoop(func(head narrow.Flow) (narrow.Flow, []narrow.Flow) {
		ctx.flow = head
		_, whenTrue, whenFalse := ctx.checkCondition(s.Cond)
		ctx.flow = whenTrue
		ctx.checkBranch(s.Body)
		return exitFlow(s.Cond, whenFalse), []narrow.Flow{ctx.flow}
	})
}

func (ctx *checkCtx) checkFor(s *ast.For) {
	scope := ctx.nest()
	if s.Init != nil {
		init := []ast.Stmt{s.Init}
		scope.declareBlock(init)
		scope.checkStmts(init)
	}
	scope.checkLoop(func(head narrow.Flow) (narrow.Flow, []narrow.Flow) {
		ctx.flow = head
		exit := head.MarkUnreachable()
		if s.Cond != nil {
			_, whenTrue, whenFalse := scope.checkCondition(s.Cond)
			exit = exitFlow(s.Cond, whenFalse)
			ctx.flow = whenTrue
		}
		scope.checkBranch(s.Body)
		ctx.flow = narrow.Join(ctx.db, append(ctx.jumps.continues, ctx.flow)...)
		ctx.jumps.continues = nil
		if s.Post != nil {
			scope.checkExpr(s.Post, types.NoType)
		}
		return exit, []narrow.Flow{ctx.flow}
	})
}

// exitFlow is the flow leaving a loop whose condition is cond. A literal true
// condition never lets control out.
func exitFlow(cond ast.Expr, whenFalse narrow.Flow) narrow.Flow {
	if lit, ok := ast.Unparen(cond).(*ast.Lit); ok && lit.Kind == ast.LitBoolean && lit.Value == "true" {
		return whenFalse.MarkUnreachable()
	}
	return whenFalse
}

// checkSwitch checks the clauses of a switch in order. Each clause is entered
// with the tag narrowed to its case, joined with the fallthrough from the clause
// before; the values no case matched reach the default clause and the end.
func (ctx *checkCtx) checkSwitch(s *ast.Switch) {
	db := ctx.db
	ctx.checkExpr(s.Tag, types.NoType)
	jumps := &jumpTargets{outer: ctx.jumps}
	ctx.jumps = jumps

	scope := ctx.nest()
	var all []ast.Stmt
	for _, c := range s.Cases {
		all = append(all, c.Body...)
	}
	scope.declareBlock(all)

	remaining := ctx.flow
	carried := remaining.MarkUnreachable()
	hasDefault := false
	for _, c := range s.Cases {
		entry := remaining
		if c.Test == nil {
			hasDefault = true
		} else {
			ctx.flow = remaining
			ctx.checkExpr(c.Test, types.NoType)
			remaining = ctx.flow
			entry = remaining
			for _, g := range ctx.equalityGuards(s.Tag, c.Test, "===", c.Range) {
				entry = ctx.applyGuard(entry, g, true)
				remaining = ctx.applyGuard(remaining, g, false)
			}
		}
		ctx.flow = narrow.Join(db, carried, entry)
		scope.checkStmts(c.Body)
		carried = ctx.flow
	}

	ctx.jumps = jumps.outer
	exits := append(jumps.breaks, carried)
	if !hasDefault && !ctx.exhausted(remaining, s.Tag) {
		exits = append(exits, remaining)
	}
	ctx.flow = narrow.Join(db, exits...)
}

// exhausted reports whether the cases of a switch over tag covered every
// value: its reference is narrowed to never in the flow no case matched
func (ctx *checkCtx) exhausted(remaining narrow.Flow, tag ast.Expr) bool {
	if u, ok := ast.Unparen(tag).(*ast.Unary); ok && u.Op == "typeof" {
		tag = u.X
	}
	ref, ok := refOf(tag)
	if !ok {
		return false
	}
	fact, ok := remaining.Lookup(ref)
	return ok && fact.Type == types.Never
}

// checkTry checks a try statement. An exception may leave the try block before
// any of its statements, so the catch clause starts from the join of all those
// flows. The finally clause also starts from the flows inside the catch clause.
func (ctx *checkCtx) checkTry(s *ast.Try) {
	db := ctx.db
	entry := ctx.flow
	outer := ctx.throwSites
	sites := []narrow.Flow{entry}
	ctx.throwSites = &sites
	ctx.checkBlock(s.Block.Stmts)
	end := ctx.flow
	if s.Catch != nil {
		ctx.flow = narrow.Join(db, sites...)
		scope := ctx.nest()
		if s.CatchParam != nil {
			ctx.symbol(s.CatchParam).declared = types.Any
			ctx.flow = ctx.flow.Declare(narrow.Ref{Symbol: s.CatchParam.ID}, types.Any, true)
		}
		scope.declareBlock(s.Catch.Stmts)
		scope.checkStmts(s.Catch.Stmts)
		end = narrow.Join(db, end, ctx.flow)
	}
	ctx.throwSites = outer
	if outer != nil && s.Finally == nil {
		// what the catch clause throws, or all of the try block without one, propagates
		*outer = append(*outer, sites...)
	}
	if s.Finally == nil {
		ctx.flow = end
		return
	}
	ctx.flow = narrow.Join(db, append(sites, end)...)
	ctx.checkBlock(s.Finally.Stmts)
	if ctx.flow.Unreachable() {
		return
	}
	// completing normally, the finally block ran after the try or catch completed
	ctx.flow = end
	var after narrow.Flow
	ctx.speculate(func() {
		ctx.checkBlock(s.Finally.Stmts)
		after = ctx.flow
	})
	ctx.flow = after
}
