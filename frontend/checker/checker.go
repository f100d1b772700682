// Package checker drives the solver over a bound file. It declares every type
// definition of a block before checking any of its statements, walks statements
// and expressions with a control-flow state from package narrow, and collects
// diagnostics instead of stopping at the first one.
package checker

import (
	"log/slog"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/options"
	"github.com/cottand/tsz/frontend/solver"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/frontend/types"
	"github.com/cottand/tsz/internal/log"
	"github.com/hashicorp/go-set/v3"
)

var logger = log.DefaultLogger.With("section", "checker")

// Checker checks bound files under one set of compiler options.
// Every file gets its own types.Database, so a Checker may be reused but not shared
// between goroutines checking at the same time.
type Checker struct {
	opts options.Compiler
}

func New(opts options.Compiler) *Checker {
	return &Checker{opts: opts}
}

// Result is the outcome of checking one file
type Result struct {
	DB     *types.Database
	Errors *tserr.Errors
	// Symbols holds the declared type of every value symbol that was checked
	Symbols map[ast.SymbolID]types.TypeID
}

// TypeOf formats the declared type of sym, or returns "" if it was never checked
func (r *Result) TypeOf(sym *ast.Symbol) string {
	t, ok := r.Symbols[sym.ID]
	if !ok {
		return ""
	}
	return r.DB.Format(t)
}

// CheckFile checks file and returns its diagnostics
func (c *Checker) CheckFile(file *ast.File) *tserr.Errors {
	return c.Check(file).Errors
}

func (c *Checker) Check(file *ast.File) *Result {
	db := types.NewDatabase()
	ctx := newCheckCtx(db, c.opts.Resolve(), file)
	ctx.logger.Debug("checking file", "name", file.Name, "options", ctx.opts)

	ctx.declareBlock(file.Stmts)
	ctx.checkStmts(file.Stmts)

	symbols := make(map[ast.SymbolID]types.TypeID, len(ctx.symbols))
	for id, info := range ctx.symbols {
		if info.declared != types.NoType {
			symbols[id] = info.declared
		}
	}
	ctx.logger.Debug("checked file", "name", file.Name, "errors", ctx.Errors)
	return &Result{DB: db, Errors: ctx.Errors, Symbols: symbols}
}

// checkCtx is the state of the walk at one lexical position. Nested blocks and
// functions get a nested copy; checkState is shared by all of them.
type checkCtx struct {
	parent *checkCtx // can be nil
	// typeNames holds the type aliases, interfaces and type parameters declared at this level
	typeNames map[string]typeName
	// fn is the innermost enclosing function, nil at the top level
	fn *funcState

	logger *slog.Logger

	*checkState
}

// checkState is shared across all copies of checkCtx during one file check
type checkState struct {
	db       *types.Database
	solver   *solver.SolveContext
	narrower *narrow.Narrower
	opts     options.Resolved
	file     *ast.File

	// Errors are the diagnostics of the file. While speculating they are swapped
	// out and dropped at the end of the speculation.
	Errors *tserr.Errors

	symbols map[ast.SymbolID]*symbolInfo
	globals map[string]types.TypeID

	// flow is the narrowing state at the current program point
	flow narrow.Flow
	// jumps collects the flows leaving the innermost loop or switch
	jumps *jumpTargets
	// throwSites collects the flows an exception may leave the innermost try block
	// or catch clause from. It is nil outside of them.
	throwSites *[]narrow.Flow

	// typeParams caches the type parameters created for each declaring node
	typeParams map[ast.Node][]types.TypeID
	// reassigned caches the bindings assigned inside each function expression
	reassigned map[*ast.FuncExpr]*set.Set[ast.SymbolID]
	// resolvedCalls holds the signature each call resolved to, for predicates
	resolvedCalls map[*ast.Call]types.Signature
	// builtinParams are the key parameters of the builtin mapped types
	builtinParams map[string]types.TypeID
}

type jumpTargets struct {
	breaks, continues []narrow.Flow
	// loop is false for a switch, which continue statements skip
	loop  bool
	outer *jumpTargets
}

// funcState is the function whose body is being checked
type funcState struct {
	// returnType is the annotated return type, or NoType when it is inferred
	returnType types.TypeID
	// contextualReturn is the return type expected by the context, or NoType
	contextualReturn types.TypeID
	returns          []types.TypeID
	// bareReturn is set when some return statement has no value
	bareReturn bool
}

type symbolInfo struct {
	sym *ast.Symbol
	// declared is NoType until the declaration was checked or lazily resolved
	declared types.TypeID
	// scope is the context the declaration appears in, recorded in the first pass
	scope     *checkCtx
	resolving bool
}

// typeName is what a name in type position refers to
type typeName struct {
	def     types.DefID
	params  []types.TypeID
	isParam bool
	// param is set for type parameters
	param types.TypeID
}

func newCheckCtx(db *types.Database, opts options.Resolved, file *ast.File) *checkCtx {
	sctx := solver.NewContext(db, opts)
	state := &checkState{
		db:            db,
		solver:        sctx,
		narrower:      narrow.New(sctx),
		opts:          opts,
		file:          file,
		symbols:       make(map[ast.SymbolID]*symbolInfo, len(file.Symbols)),
		flow:          narrow.NewFlow(),
		typeParams:    make(map[ast.Node][]types.TypeID),
		reassigned:    make(map[*ast.FuncExpr]*set.Set[ast.SymbolID]),
		resolvedCalls: make(map[*ast.Call]types.Signature),
		builtinParams: make(map[string]types.TypeID),
	}
	state.globals = ambientGlobals(db)
	return &checkCtx{
		typeNames:  make(map[string]typeName),
		logger:     logger.With("file", file.Name),
		checkState: state,
	}
}

func (ctx *checkCtx) nest() *checkCtx {
	copied := ctx.copy()
	copied.parent = ctx
	copied.typeNames = make(map[string]typeName)
	return copied
}

func (ctx *checkCtx) copy() *checkCtx {
	copied := *ctx
	return &copied
}

func (ctx *checkCtx) lookupType(name string) (typeName, bool) {
	if n, ok := ctx.typeNames[name]; ok {
		return n, true
	}
	if ctx.parent != nil {
		return ctx.parent.lookupType(name)
	}
	return typeName{}, false
}

func (ctx *checkCtx) addError(err tserr.Diagnostic) {
	ctx.logger.Debug("diagnostic", "code", err.Code(), "msg", err.Error(), "at", ast.RangeOf(err))
	ctx.Errors = ctx.Errors.With(err)
}

// speculate runs f without keeping its diagnostics or its effect on the flow,
// and returns the diagnostics it raised
func (ctx *checkCtx) speculate(f func()) *tserr.Errors {
	savedErrors, savedFlow := ctx.Errors, ctx.flow
	sites, mark := ctx.throwSites, 0
	if sites != nil {
		mark = len(*sites)
	}
	ctx.Errors = nil
	f()
	raised := ctx.Errors
	ctx.Errors, ctx.flow = savedErrors, savedFlow
	if sites != nil {
		*sites = (*sites)[:mark]
	}
	return raised
}

func (ctx *checkCtx) symbol(sym *ast.Symbol) *symbolInfo {
	info, ok := ctx.symbols[sym.ID]
	if !ok {
		info = &symbolInfo{sym: sym}
		ctx.symbols[sym.ID] = info
	}
	return info
}
