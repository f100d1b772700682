package checker

import (
	"strconv"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/frontend/types"
)

var keywordTypes = map[string]types.TypeID{
	"string":    types.String,
	"number":    types.Number,
	"boolean":   types.Boolean,
	"bigint":    types.BigInt,
	"symbol":    types.Symbol,
	"object":    types.NonPrimitive,
	"any":       types.Any,
	"unknown":   types.Unknown,
	"never":     types.Never,
	"void":      types.Void,
	"null":      types.Null,
	"undefined": types.Undefined,
}

// typeOf resolves a type annotation in the current scope. Names that do not
// resolve are reported and become Error.
func (ctx *checkCtx) typeOf(typ ast.Type) (ret types.TypeID) {
	db := ctx.db
	defer func() {
		ctx.logger.Debug("resolved annotation", "at", ast.RangeOf(typ), "type", db.Slog(ret))
	}()

	switch typ := typ.(type) {
	case *ast.KeywordType:
		if t, ok := keywordTypes[typ.Name]; ok {
			return t
		}
		ctx.addError(tserr.New(tserr.NewCannotFindName{Positioner: typ.Range, Name: typ.Name}))
		return types.Error
	case *ast.LiteralType:
		return ctx.literalType(typ.Lit)
	case *ast.TypeRef:
		return ctx.typeOfRef(typ)
	case *ast.UnionType:
		members := make([]types.TypeID, len(typ.Types))
		for i, t := range typ.Types {
			members[i] = ctx.typeOf(t)
		}
		return db.Union(members...)
	case *ast.IntersectionType:
		members := make([]types.TypeID, len(typ.Types))
		for i, t := range typ.Types {
			members[i] = ctx.typeOf(t)
		}
		return db.Intersection(members...)
	case *ast.ArrayType:
		return db.Intern(types.Array{Elem: ctx.typeOf(typ.Elem), Readonly: typ.Readonly})
	case *ast.TupleType:
		tuple := types.Tuple{Elements: make([]types.TupleElement, len(typ.Elements))}
		for i, e := range typ.Elements {
			tuple.Elements[i] = types.TupleElement{
				Type:     ctx.typeOf(e.Type),
				Optional: e.Optional && !e.Rest,
				Rest:     e.Rest,
				Label:    e.Label,
			}
		}
		return db.Intern(tuple)
	case *ast.ObjectType:
		return ctx.typeOfObject(typ)
	case *ast.FuncType:
		return db.FuncOf(ctx.signatureOfType(typ))
	case *ast.KeyOfType:
		return db.KeyOf(ctx.typeOf(typ.Target))
	case *ast.IndexedAccessType:
		return db.IndexedAccess(ctx.typeOf(typ.Object), ctx.typeOf(typ.Index))
	case *ast.MappedType:
		nested := ctx.nest()
		param := ctx.typeParamsOf(typ, []ast.TypeParam{{Name: typ.Param}})[0]
		nested.typeNames[typ.Param] = typeName{isParam: true, param: param}
		constraint := nested.typeOf(typ.Constraint)
		db.SetConstraint(param, constraint)
		return db.MappedType(types.Mapped{
			Param:      param,
			Constraint: constraint,
			Template:   nested.typeOf(typ.Template),
			Readonly:   modifier(typ.Readonly),
			Optional:   modifier(typ.Optional),
		})
	default:
		panic("unexpected type annotation " + ast.TypeString(typ))
	}
}

func modifier(m ast.Modifier) types.Modifier {
	switch m {
	case "+":
		return types.ModAdd
	case "-":
		return types.ModRemove
	}
	return types.ModNone
}

// literalType is the unit type of a literal, in type or value position
func (ctx *checkCtx) literalType(lit *ast.Lit) types.TypeID {
	db := ctx.db
	switch lit.Kind {
	case ast.LitString:
		return db.StringLiteral(lit.Value)
	case ast.LitNumber:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			// hex, octal and binary forms
			i, err := strconv.ParseInt(lit.Value, 0, 64)
			if err != nil {
				return types.Number
			}
			v = float64(i)
		}
		return db.NumberLiteral(v)
	case ast.LitBigInt:
		return db.BigIntLiteral(lit.Value)
	case ast.LitBoolean:
		return db.BooleanLiteral(lit.Value == "true")
	case ast.LitNull:
		return types.Null
	case ast.LitUndefined:
		return types.Undefined
	}
	panic("unexpected literal kind " + strconv.Itoa(int(lit.Kind)))
}

func (ctx *checkCtx) typeArgs(args []ast.Type) []types.TypeID {
	out := make([]types.TypeID, len(args))
	for i, a := range args {
		out[i] = ctx.typeOf(a)
	}
	return out
}

func (ctx *checkCtx) typeOfRef(ref *ast.TypeRef) types.TypeID {
	db := ctx.db
	name, ok := ctx.lookupType(ref.Name)
	if !ok {
		if t, ok := ctx.builtinType(ref); ok {
			return t
		}
		ctx.addError(tserr.New(tserr.NewCannotFindName{Positioner: ref.Range, Name: ref.Name}))
		return types.Error
	}
	if name.isParam {
		return name.param
	}
	args := ctx.typeArgs(ref.Args)
	if len(args) > len(name.params) {
		args = args[:len(name.params)]
	}
	for i := len(args); i < len(name.params); i++ {
		if db.Default(name.params[i]) != types.NoType {
			break
		}
		// missing arguments without a default
		args = append(args, types.Error)
	}
	return db.Reference(name.def, args...)
}

// builtinType resolves the library types a program may use without declaring them
func (ctx *checkCtx) builtinType(ref *ast.TypeRef) (types.TypeID, bool) {
	db := ctx.db
	arg := func(i int) types.TypeID {
		if i < len(ref.Args) {
			return ctx.typeOf(ref.Args[i])
		}
		return types.Unknown
	}
	switch ref.Name {
	case "Array":
		return db.ArrayOf(arg(0)), true
	case "ReadonlyArray":
		return db.Intern(types.Array{Elem: arg(0), Readonly: true}), true
	case "Function":
		return types.Function, true
	case "Record":
		key, value := arg(0), arg(1)
		p := ctx.builtinParam("Record")
		return db.MappedType(types.Mapped{Param: p, Constraint: key, Template: value}), true
	case "Partial", "Required", "Readonly":
		target := arg(0)
		p := ctx.builtinParam(ref.Name)
		m := types.Mapped{Param: p, Constraint: db.KeyOf(target), Template: db.IndexedAccess(target, p)}
		switch ref.Name {
		case "Partial":
			m.Optional = types.ModAdd
		case "Required":
			m.Optional = types.ModRemove
		case "Readonly":
			m.Readonly = types.ModAdd
		}
		return db.MappedType(m), true
	case "Pick":
		target, keys := arg(0), arg(1)
		p := ctx.builtinParam("Pick")
		return db.MappedType(types.Mapped{Param: p, Constraint: keys, Template: db.IndexedAccess(target, p)}), true
	case "NonNullable":
		return ctx.removeNullish(arg(0)), true
	}
	return types.NoType, false
}

// builtinParam is the key parameter of a builtin mapped type. It is shared by
// every use so that equal uses intern to the same type.
func (ctx *checkCtx) builtinParam(name string) types.TypeID {
	p, ok := ctx.builtinParams[name]
	if !ok {
		p = ctx.db.NewTypeParam("P")
		ctx.builtinParams[name] = p
	}
	return p
}

func (ctx *checkCtx) typeOfObject(obj *ast.ObjectType) types.TypeID {
	db := ctx.db
	shape := types.Object{}
	seen := make(map[string]bool, len(obj.Properties))
	for _, p := range obj.Properties {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		shape.Properties = append(shape.Properties, types.Property{
			Name:     p.Name,
			Type:     ctx.typeOf(p.Type),
			Optional: p.Optional,
			Readonly: p.Readonly,
			Method:   p.Method,
		})
	}
	for _, idx := range obj.Indexes {
		if idx.KeyType == "number" {
			shape.NumberIndex = ctx.typeOf(idx.Value)
		} else {
			shape.StringIndex = ctx.typeOf(idx.Value)
		}
	}
	if len(obj.Calls) == 0 {
		return db.Intern(shape)
	}
	sigs := make([]types.Signature, len(obj.Calls))
	for i, call := range obj.Calls {
		sigs[i] = ctx.signatureOfType(call)
	}
	callable := db.FuncOf(sigs[0], sigs[1:]...)
	if len(shape.Properties) == 0 && shape.StringIndex == types.NoType && shape.NumberIndex == types.NoType {
		return callable
	}
	return db.Intersection(db.Intern(shape), callable)
}

// typeParamsOf creates the type parameters declared by owner. They are created
// once per node, so checking a declaration again yields the same types.
func (ctx *checkCtx) typeParamsOf(owner ast.Node, decls []ast.TypeParam) []types.TypeID {
	if params, ok := ctx.typeParams[owner]; ok {
		return params
	}
	params := make([]types.TypeID, len(decls))
	for i, d := range decls {
		params[i] = ctx.db.NewTypeParam(d.Name)
	}
	ctx.typeParams[owner] = params
	return params
}

// withTypeParams returns a nested context in which the type parameters of owner
// are in scope, with their constraints and defaults set
func (ctx *checkCtx) withTypeParams(owner ast.Node, decls []ast.TypeParam) (*checkCtx, []types.TypeID) {
	if len(decls) == 0 {
		return ctx, nil
	}
	_, existed := ctx.typeParams[owner]
	params := ctx.typeParamsOf(owner, decls)
	nested := ctx.nest()
	for i, d := range decls {
		nested.typeNames[d.Name] = typeName{isParam: true, param: params[i]}
	}
	if !existed {
		for i, d := range decls {
			if d.Constraint != nil {
				ctx.db.SetConstraint(params[i], nested.typeOf(d.Constraint))
			}
			if d.Default != nil {
				ctx.db.SetDefault(params[i], nested.typeOf(d.Default))
			}
		}
	}
	return nested, params
}

func (ctx *checkCtx) signatureOfType(ft *ast.FuncType) types.Signature {
	nested, params := ctx.withTypeParams(ft, ft.TypeParams)
	sig := types.Signature{TypeParams: params}
	for _, p := range ft.Params {
		t := types.Any
		if p.Type != nil {
			t = nested.typeOf(p.Type)
		} else {
			ctx.reportImplicitAny(p)
			if p.Rest {
				t = ctx.db.ArrayOf(types.Any)
			}
		}
		sig.Params = append(sig.Params, types.Param{Name: p.Name, Type: t, Optional: p.Optional && !p.Rest, Rest: p.Rest})
	}
	sig.Return = types.Any
	if ft.Return != nil {
		sig.Return = nested.typeOf(ft.Return)
	}
	sig.Predicate = nested.predicate(ft.Predicate, ft.Params)
	if sig.Predicate != nil && ft.Return == nil {
		sig.Return = types.Boolean
		if sig.Predicate.Asserts {
			sig.Return = types.Void
		}
	}
	return sig
}

// predicate resolves a predicate annotation against the parameter list it refers to
func (ctx *checkCtx) predicate(pred *ast.Predicate, params []ast.Param) *types.Predicate {
	if pred == nil {
		return nil
	}
	for i, p := range params {
		if p.Name != pred.Param {
			continue
		}
		t := types.NoType
		if pred.Type != nil {
			t = ctx.typeOf(pred.Type)
		}
		if t == types.NoType && !pred.Asserts {
			return nil
		}
		return &types.Predicate{ParamIndex: i, ParamName: p.Name, Type: t, Asserts: pred.Asserts}
	}
	ctx.addError(tserr.New(tserr.NewCannotFindName{Positioner: pred.Range, Name: pred.Param}))
	return nil
}

func (ctx *checkCtx) reportImplicitAny(p ast.Param) {
	if ctx.opts.NoImplicitAny {
		ctx.addError(tserr.New(tserr.NewImplicitAnyParam{Positioner: p.Range, Name: p.Name}))
	}
}
