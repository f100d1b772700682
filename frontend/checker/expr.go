package checker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/narrow"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/frontend/types"
)

// checkExpr types expr at the current flow. contextual is the type the
// surrounding code expects, or NoType. It decides whether literals stay literal
// and types the parameters of function expressions; relating the result to it
// is left to the caller.
func (ctx *checkCtx) checkExpr(expr ast.Expr, contextual types.TypeID) (ret types.TypeID) {
	db := ctx.db
	defer func() {
		ctx.logger.Debug("typed expression", "expr", ast.Slog(expr), "type", db.Slog(ret))
	}()

	switch expr := expr.(type) {
	case *ast.Ident:
		return ctx.checkIdent(expr)
	case *ast.Lit:
		return ctx.literalType(expr)
	case *ast.ObjectLit:
		return ctx.checkObjectLit(expr, contextual)
	case *ast.ArrayLit:
		return ctx.checkArrayLit(expr, contextual)
	case *ast.Member:
		return ctx.checkMember(expr)
	case *ast.Index:
		return ctx.checkIndex(expr)
	case *ast.Call:
		return ctx.checkCall(expr, contextual)
	case *ast.FuncExpr:
		return ctx.checkFunc(expr, contextual, false)
	case *ast.Paren:
		return ctx.checkExpr(expr.X, contextual)
	case *ast.Unary:
		return ctx.checkUnary(expr)
	case *ast.Binary:
		return ctx.checkBinary(expr)
	case *ast.Assign:
		return ctx.checkAssign(expr)
	case *ast.Conditional:
		_, whenTrue, whenFalse := ctx.checkCondition(expr.Cond)
		ctx.flow = whenTrue
		then := ctx.checkExpr(expr.Then, contextual)
		thenFlow := ctx.flow
		ctx.flow = whenFalse
		els := ctx.checkExpr(expr.Else, contextual)
		ctx.flow = narrow.Join(db, thenFlow, ctx.flow)
		return db.Union(then, els)
	case *ast.As:
		if isConstAssertion(expr.Type) {
			return ctx.checkExpr(expr.X, types.NoType)
		}
		target := ctx.typeOf(expr.Type)
		ctx.checkExpr(expr.X, target)
		return target
	case *ast.NonNull:
		return ctx.removeNullish(ctx.checkExpr(expr.X, contextual))
	case *ast.Spread:
		return ctx.checkExpr(expr.X, contextual)
	default:
		panic(fmt.Sprintf("unexpected expression %T at %v", expr, ast.RangeOf(expr)))
	}
}

// isConstAssertion reports whether typ is the `const` of `x as const`
func isConstAssertion(typ ast.Type) bool {
	ref, ok := typ.(*ast.TypeRef)
	return ok && ref.Name == "const" && len(ref.Args) == 0
}

// isFresh reports whether expr produces a literal type nobody has named yet.
// Such types are widened when they flow into mutable locations.
func isFresh(expr ast.Expr) bool {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Lit:
		return e.Kind != ast.LitNull && e.Kind != ast.LitUndefined
	case *ast.Unary:
		lit, ok := ast.Unparen(e.X).(*ast.Lit)
		return e.Op == "-" && ok && (lit.Kind == ast.LitNumber || lit.Kind == ast.LitBigInt)
	case *ast.ObjectLit, *ast.ArrayLit:
		return true
	case *ast.Conditional:
		return isFresh(e.Then) || isFresh(e.Else)
	}
	return false
}

// isLiteralExpr reports whether expr is written as a literal value
func isLiteralExpr(expr ast.Expr) bool {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Lit:
		return true
	case *ast.Unary:
		return e.Op == "-" && isLiteralExpr(e.X)
	}
	return false
}

func (ctx *checkCtx) checkIdent(id *ast.Ident) types.TypeID {
	sym := id.Symbol
	if sym == nil {
		if t, ok := ctx.globals[id.Name]; ok {
			return t
		}
		ctx.addError(tserr.New(tserr.NewCannotFindName{Positioner: id.Range, Name: id.Name}))
		return types.Error
	}
	declared := ctx.declaredType(sym)
	if declared == types.NoType {
		ctx.addError(tserr.New(tserr.NewCannotFindName{Positioner: id.Range, Name: id.Name}))
		return types.Error
	}
	ref := narrow.Ref{Symbol: sym.ID}
	fact, ok := ctx.flow.Lookup(ref)
	if !ok {
		return declared
	}
	if !fact.Assigned && !ctx.flow.Unreachable() && ctx.mustBeAssigned(sym, fact.Declared) {
		ctx.addError(tserr.New(tserr.NewUsedBeforeAssigned{Positioner: id.Range, Name: id.Name}))
		// once per path is enough
		ctx.flow = ctx.flow.Assign(ref, fact.Declared, fact.Type, id.Range)
	}
	return fact.Type
}

// mustBeAssigned reports whether reading sym before any assignment is an error
func (ctx *checkCtx) mustBeAssigned(sym *ast.Symbol, declared types.TypeID) bool {
	if !ctx.opts.StrictNullChecks {
		return false
	}
	if sym.Kind != ast.SymLet && sym.Kind != ast.SymVar {
		return false
	}
	if declared.IsAnyOrUnknown() || declared == types.Error {
		return false
	}
	for _, m := range ctx.db.UnionMembers(declared) {
		if m == types.Undefined || m == types.Void {
			return false
		}
	}
	return true
}

// removeNullish drops null, undefined and void from t
func (ctx *checkCtx) removeNullish(t types.TypeID) types.TypeID {
	return ctx.db.FilterUnion(t, func(m types.TypeID) bool {
		return m != types.Null && m != types.Undefined && m != types.Void
	})
}

// nullishParts reports which nullish values t admits
func (ctx *checkCtx) nullishParts(t types.TypeID) (maybeNull, maybeUndef bool) {
	for _, m := range ctx.db.UnionMembers(t) {
		switch m {
		case types.Null:
			maybeNull = true
		case types.Undefined, types.Void:
			maybeUndef = true
		}
	}
	return maybeNull, maybeUndef
}

// impliesLiterals reports whether a value expected to have type contextual keeps
// its literal type: the context names literals, or a type parameter constrained to a primitive
func (ctx *checkCtx) impliesLiterals(contextual types.TypeID) bool {
	if contextual == types.NoType {
		return false
	}
	db := ctx.db
	for _, m := range db.UnionMembers(contextual) {
		if db.IsLiteral(m) {
			return true
		}
		if _, ok := db.Lookup(m).(types.TypeParam); ok {
			c := db.Constraint(m)
			if c.IsPrimitive() || ctx.impliesLiterals(c) {
				return true
			}
		}
	}
	return false
}

func (ctx *checkCtx) checkObjectLit(lit *ast.ObjectLit, contextual types.TypeID) types.TypeID {
	db := ctx.db
	props := make([]types.Property, 0, len(lit.Props))
	index := make(map[string]int, len(lit.Props))
	for _, p := range lit.Props {
		expected := ctx.contextualProperty(contextual, p.Name)
		t := ctx.checkExpr(p.Value, expected)
		if isFresh(p.Value) && !ctx.impliesLiterals(expected) {
			t = db.Widen(t)
		}
		prop := types.Property{Name: p.Name, Type: t}
		// the last of duplicate keys wins
		if i, dup := index[p.Name]; dup {
			props[i] = prop
			continue
		}
		index[p.Name] = len(props)
		props = append(props, prop)
	}
	return db.ObjectOf(props...)
}

// contextualProperty is the type expected for property name of an object
// literal whose expected type is contextual
func (ctx *checkCtx) contextualProperty(contextual types.TypeID, name string) types.TypeID {
	if contextual == types.NoType {
		return types.NoType
	}
	db := ctx.db
	var found []types.TypeID
	for _, m := range db.UnionMembers(ctx.removeNullish(contextual)) {
		if m.IsAnyOrUnknown() {
			continue
		}
		if p, ok := ctx.solver.PropertyOf(m, name); ok {
			found = append(found, p.Type)
			continue
		}
		if obj, ok := db.Lookup(db.Evaluate(m)).(types.Object); ok && obj.StringIndex != types.NoType {
			found = append(found, obj.StringIndex)
		}
	}
	if len(found) == 0 {
		return types.NoType
	}
	return db.Union(found...)
}

func (ctx *checkCtx) checkArrayLit(lit *ast.ArrayLit, contextual types.TypeID) types.TypeID {
	db := ctx.db
	tuple := ctx.contextualTuple(contextual)
	elems := make([]types.TypeID, 0, len(lit.Elems))
	spread := false
	for i, e := range lit.Elems {
		if s, ok := e.(*ast.Spread); ok {
			spread = true
			elems = append(elems, ctx.spreadElement(ctx.checkExpr(s.X, types.NoType)))
			continue
		}
		expected := ctx.contextualElement(contextual)
		if tuple != nil {
			expected = types.NoType
			if i < len(tuple) && !tuple[i].Rest {
				expected = tuple[i].Type
			}
		}
		t := ctx.checkExpr(e, expected)
		if isFresh(e) && !ctx.impliesLiterals(expected) {
			t = db.Widen(t)
		}
		elems = append(elems, t)
	}
	if tuple != nil && !spread {
		return db.TupleOf(elems...)
	}
	if len(elems) == 0 {
		if contextual == types.NoType {
			return db.ArrayOf(types.Any)
		}
		return db.ArrayOf(types.Never)
	}
	return db.ArrayOf(db.Union(elems...))
}

// contextualTuple returns the elements of the tuple an array literal is expected
// to be, or nil when arrays are expected
func (ctx *checkCtx) contextualTuple(contextual types.TypeID) []types.TupleElement {
	if contextual == types.NoType {
		return nil
	}
	for _, m := range ctx.db.UnionMembers(ctx.removeNullish(contextual)) {
		if _, ok := ctx.db.Lookup(m).(types.Tuple); ok {
			return ctx.db.TupleElements(m)
		}
	}
	return nil
}

func (ctx *checkCtx) contextualElement(contextual types.TypeID) types.TypeID {
	if contextual == types.NoType {
		return types.NoType
	}
	db := ctx.db
	var found []types.TypeID
	for _, m := range db.UnionMembers(ctx.removeNullish(contextual)) {
		switch data := db.Lookup(m).(type) {
		case types.Array:
			found = append(found, data.Elem)
		case types.Tuple:
			found = append(found, db.IndexedAccess(m, types.Number))
		}
	}
	if len(found) == 0 {
		return types.NoType
	}
	return db.Union(found...)
}

// spreadElement is the type of the elements a spread of t contributes
func (ctx *checkCtx) spreadElement(t types.TypeID) types.TypeID {
	db := ctx.db
	if t == types.Any || t == types.Error {
		return t
	}
	if a, ok := db.Lookup(t).(types.Array); ok {
		return a.Elem
	}
	if el := db.IndexedAccess(t, types.Number); el != types.Error {
		return el
	}
	return types.Any
}

func (ctx *checkCtx) checkMember(m *ast.Member) types.TypeID {
	object := ctx.checkExpr(m.X, types.NoType)
	if ref, ok := refOf(m); ok {
		if fact, ok := ctx.flow.Lookup(ref); ok {
			return fact.Type
		}
	}
	return ctx.propertyAccess(m, object)
}

// propertyAccess types m.Name on a value of type object, reporting values that
// may be nullish or lack the property
func (ctx *checkCtx) propertyAccess(m *ast.Member, object types.TypeID) types.TypeID {
	db := ctx.db
	target, ok := ctx.accessible(m.X, object, m.Optional)
	if !ok {
		return types.Error
	}
	if target == types.Any || target == types.Error {
		return target
	}
	t, ok := ctx.propertyType(target, m.Name)
	if !ok {
		ctx.addError(tserr.New(tserr.NewPropertyMissing{Positioner: m.Range, Property: m.Name, Type: db.Format(target)}))
		return types.Error
	}
	if m.Optional && target != object {
		t = db.Union(t, types.Undefined)
	}
	return t
}

// accessible is the part of object, the type of x, whose members can be read.
// It reports unknown values and, unless the access is optional, nullish ones.
func (ctx *checkCtx) accessible(x ast.Expr, object types.TypeID, optional bool) (types.TypeID, bool) {
	switch object {
	case types.Any, types.Error:
		return object, true
	case types.Unknown:
		ctx.addError(tserr.New(tserr.NewIsUnknown{Positioner: ast.RangeOf(x), Expr: ast.ExprString(x)}))
		return types.Error, false
	}
	maybeNull, maybeUndef := ctx.nullishParts(object)
	if !maybeNull && !maybeUndef {
		return object, true
	}
	target := ctx.removeNullish(object)
	if !optional && ctx.opts.StrictNullChecks {
		ctx.addError(tserr.New(tserr.NewPossiblyNullish{
			Positioner: ast.RangeOf(x),
			Expr:       ast.ExprString(x),
			MaybeNull:  maybeNull,
			MaybeUndef: maybeUndef,
		}))
	}
	if target == types.Never {
		return types.Error, false
	}
	return target, true
}

// propertyType is the type read from property name of a value of type t, with
// undefined added for optional properties. Unions need the property on every member.
func (ctx *checkCtx) propertyType(t types.TypeID, name string) (types.TypeID, bool) {
	db := ctx.db
	if t == types.Any || t == types.Error {
		return t, true
	}
	if members := db.UnionMembers(t); len(members) > 1 {
		out := make([]types.TypeID, 0, len(members))
		for _, m := range members {
			pt, ok := ctx.propertyType(m, name)
			if !ok {
				return types.NoType, false
			}
			out = append(out, pt)
		}
		return db.Union(out...), true
	}
	if p, ok := ctx.solver.PropertyOf(t, name); ok {
		if p.Optional && !ctx.opts.ExactOptionalPropertyTypes {
			return db.Union(p.Type, types.Undefined), true
		}
		return p.Type, true
	}
	switch db.Lookup(t).(type) {
	case types.Object, types.Application, types.Intersection, types.Mapped:
		if indexed := db.IndexedAccess(t, db.StringLiteral(name)); indexed != types.Error {
			return indexed, true
		}
	case types.TypeParam:
		if c := db.Constraint(t); c != types.NoType {
			return ctx.propertyType(c, name)
		}
	}
	return types.NoType, false
}

func (ctx *checkCtx) checkIndex(x *ast.Index) types.TypeID {
	db := ctx.db
	object := ctx.checkExpr(x.X, types.NoType)
	index := ctx.checkExpr(x.Index, types.NoType)
	target, ok := ctx.accessible(x.X, object, false)
	if !ok {
		return types.Error
	}
	if target == types.Any || target == types.Error || index == types.Error {
		return target
	}
	if lit, ok := db.Lookup(index).(types.Literal); ok && lit.LitKind == types.LitString {
		if t, ok := ctx.propertyType(target, lit.Value); ok {
			return t
		}
		ctx.addError(tserr.New(tserr.NewPropertyMissing{Positioner: x.Index, Property: lit.Value, Type: db.Format(target)}))
		return types.Error
	}
	if t := db.IndexedAccess(target, index); t != types.Error {
		return t
	}
	return types.Any
}

func (ctx *checkCtx) checkUnary(u *ast.Unary) types.TypeID {
	db := ctx.db
	switch u.Op {
	case "!":
		ctx.checkExpr(u.X, types.NoType)
		return types.Boolean
	case "typeof":
		ctx.checkExpr(u.X, types.NoType)
		return types.String
	case "void":
		ctx.checkExpr(u.X, types.NoType)
		return types.Undefined
	case "delete":
		ctx.checkExpr(u.X, types.NoType)
		return types.Boolean
	}
	t := ctx.checkExpr(u.X, types.NoType)
	if lit, ok := db.Lookup(t).(types.Literal); ok && u.Op == "-" && isLiteralExpr(u.X) {
		switch lit.LitKind {
		case types.LitNumber:
			if v, err := strconv.ParseFloat(lit.Value, 64); err == nil {
				return db.NumberLiteral(-v)
			}
		case types.LitBigInt:
			return db.BigIntLiteral(negate(lit.Value))
		}
	}
	if db.LiteralBase(t) == types.BigInt && u.Op != "+" {
		return types.BigInt
	}
	return types.Number
}

func negate(digits string) string {
	if rest, ok := strings.CutPrefix(digits, "-"); ok {
		return rest
	}
	return "-" + digits
}

func (ctx *checkCtx) checkBinary(b *ast.Binary) types.TypeID {
	db := ctx.db
	switch b.Op {
	case "&&", "||", "??":
		t, whenTrue, whenFalse := ctx.checkCondition(b)
		ctx.flow = narrow.Join(db, whenTrue, whenFalse)
		return t
	case "===", "!==", "==", "!=":
		x := ctx.checkExpr(b.X, types.NoType)
		y := ctx.checkExpr(b.Y, types.NoType)
		ctx.checkOverlap(b, x, y)
		return types.Boolean
	case "<", ">", "<=", ">=", "in", "instanceof":
		ctx.checkExpr(b.X, types.NoType)
		ctx.checkExpr(b.Y, types.NoType)
		return types.Boolean
	}
	x := ctx.checkExpr(b.X, types.NoType)
	y := ctx.checkExpr(b.Y, types.NoType)
	return ctx.arithmetic(b.Op, x, y)
}

// arithmetic is the result type of the arithmetic operator op
func (ctx *checkCtx) arithmetic(op string, x, y types.TypeID) types.TypeID {
	db := ctx.db
	x, y = db.Widen(x), db.Widen(y)
	if op == "+" {
		switch {
		case x == types.Any || y == types.Any:
			return types.Any
		case x == types.String || y == types.String:
			return types.String
		}
	}
	if x == types.BigInt && y == types.BigInt {
		return types.BigInt
	}
	return types.Number
}

// checkOverlap reports comparisons that are always false because the operand
// types share no value. Literals compared with literals are widened first.
func (ctx *checkCtx) checkOverlap(b *ast.Binary, x, y types.TypeID) {
	db := ctx.db
	for _, t := range []types.TypeID{x, y} {
		switch t {
		case types.Any, types.Unknown, types.Error, types.Null, types.Undefined:
			return
		}
	}
	if isLiteralExpr(b.X) && isLiteralExpr(b.Y) {
		x, y = db.Widen(x), db.Widen(y)
	}
	if ctx.solver.Overlaps(x, y) {
		return
	}
	ctx.addError(tserr.New(tserr.NewNoOverlap{Positioner: b.Range, Left: db.Format(x), Right: db.Format(y)}))
}

func (ctx *checkCtx) checkAssign(a *ast.Assign) types.TypeID {
	db := ctx.db
	target := ast.Unparen(a.Target)
	declared := types.Any
	checkValue := true
	switch t := target.(type) {
	case *ast.Ident:
		if t.Symbol == nil {
			ctx.checkIdent(t)
			declared, checkValue = types.Error, false
			break
		}
		declared = ctx.declaredType(t.Symbol)
		switch {
		case t.Symbol.Kind == ast.SymConst:
			ctx.addError(tserr.New(tserr.NewAssignToConst{Positioner: t.Range, Name: t.Name}))
			checkValue = false
		case t.Symbol.Kind == ast.SymFunction,
			t.Symbol.Kind == ast.SymGlobal && db.IsFunctionLike(declared):
			ctx.addError(tserr.New(tserr.NewAssignToFunction{Positioner: t.Range, Name: t.Name}))
			checkValue = false
		}
	case *ast.Member:
		declared = ctx.propertyAccess(t, ctx.checkExpr(t.X, types.NoType))
	case *ast.Index:
		declared = ctx.checkIndex(t)
	default:
		ctx.checkExpr(target, types.NoType)
	}

	var value types.TypeID
	switch op := strings.TrimSuffix(a.Op, "="); op {
	case "":
		value = ctx.checkExpr(a.Value, declared)
	case "&&", "||", "??":
		current := ctx.currentType(target, declared)
		value = db.Union(current, ctx.checkExpr(a.Value, declared))
	default:
		current := ctx.currentType(target, declared)
		value = ctx.arithmetic(op, current, ctx.checkExpr(a.Value, types.NoType))
	}
	if !checkValue {
		return value
	}
	ctx.checkAssignable(a.Value, value, declared, a.Value)
	if ref, ok := refOf(target); ok {
		ctx.flow = ctx.flow.Assign(ref, declared, ctx.narrower.ByAssignment(declared, value), a.Range)
	}
	return value
}

// currentType is the type target holds before a compound assignment
func (ctx *checkCtx) currentType(target ast.Expr, declared types.TypeID) types.TypeID {
	if id, ok := target.(*ast.Ident); ok && id.Symbol != nil {
		return ctx.checkIdent(id)
	}
	if ref, ok := refOf(target); ok {
		if fact, ok := ctx.flow.Lookup(ref); ok {
			return fact.Type
		}
	}
	return declared
}

// excessProperties reports the properties of a fresh object literal that
// target does not declare, and returns whether it reported any
func (ctx *checkCtx) excessProperties(expr ast.Expr, target types.TypeID) bool {
	lit, ok := expr.(*ast.ObjectLit)
	if !ok || !ctx.checksExcess(target) {
		return false
	}
	db := ctx.db
	reported := false
	for _, p := range lit.Props {
		pt, ok := ctx.propertyType(ctx.removeNullish(target), p.Name)
		if !ok {
			ctx.addError(tserr.New(tserr.NewExcessProperty{Positioner: p.Range, Property: p.Name, Type: db.Format(target)}))
			reported = true
			continue
		}
		if ctx.excessProperties(p.Value, pt) {
			reported = true
		}
	}
	return reported
}

// checksExcess reports whether object literals assigned to t are checked for
// properties t does not know: t must be a closed object type
func (ctx *checkCtx) checksExcess(t types.TypeID) bool {
	db := ctx.db
	members := db.UnionMembers(ctx.removeNullish(t))
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if m.IsAnyOrUnknown() || m == types.Error || m == types.NonPrimitive {
			return false
		}
		switch data := db.Lookup(db.Evaluate(m)).(type) {
		case types.Object:
			if data.StringIndex != types.NoType || len(data.Properties) == 0 && data.NumberIndex == types.NoType {
				return false
			}
		case types.Application:
			if !ctx.checksExcess(db.Expand(m)) {
				return false
			}
		case types.Intersection:
			for _, inner := range data.Members {
				if !ctx.checksExcess(inner) {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

// refOf is the narrowable reference expr denotes, if any: a local binding or a
// property path below one
func refOf(expr ast.Expr) (narrow.Ref, bool) {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Ident:
		if e.Symbol == nil || e.Symbol.Kind == ast.SymGlobal || e.Symbol.Kind == ast.SymFunction {
			return narrow.Ref{}, false
		}
		return narrow.Ref{Symbol: e.Symbol.ID}, true
	case *ast.Member:
		if e.Optional {
			return narrow.Ref{}, false
		}
		parent, ok := refOf(e.X)
		if !ok {
			return narrow.Ref{}, false
		}
		return parent.Property(e.Name), true
	}
	return narrow.Ref{}, false
}
