package solver

import (
	"testing"

	"github.com/cottand/tsz/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generic(tps []types.TypeID, ret types.TypeID, params ...types.Param) types.Signature {
	return types.Signature{TypeParams: tps, Params: params, Return: ret}
}

func TestInferLiteralWidening(t *testing.T) {
	db, ctx := strictContext()
	a := db.StringLiteral("a")

	T := db.NewTypeParam("T")
	identity := generic([]types.TypeID{T}, T, param("x", T))
	inf := ctx.Infer(identity, []Argument{{Type: a, Fresh: true}}, types.NoType)
	assert.Equal(t, a, inf.Mapping[T], "a naked return keeps the literal")

	U := db.NewTypeParam("U")
	wrap := generic([]types.TypeID{U}, db.ArrayOf(U), param("x", U))
	inf = ctx.Infer(wrap, []Argument{{Type: a, Fresh: true}}, types.NoType)
	assert.Equal(t, types.String, inf.Mapping[U])
	assert.Equal(t, "string[]", db.Format(inf.Signature.Return))

	inf = ctx.Infer(wrap, []Argument{{Type: a}}, types.NoType)
	assert.Equal(t, a, inf.Mapping[U], "a declared literal type is not widened")

	S := db.NewTypeParam("S")
	db.SetConstraint(S, types.String)
	keep := generic([]types.TypeID{S}, db.ArrayOf(S), param("x", S))
	inf = ctx.Infer(keep, []Argument{{Type: a, Fresh: true}}, types.NoType)
	assert.Equal(t, a, inf.Mapping[S], "a primitive constraint keeps the literal")
	assert.Empty(t, inf.Issues)

	O := db.NewTypeParam("O")
	object := generic([]types.TypeID{O}, db.ArrayOf(O), param("x", O))
	inf = ctx.Infer(object, []Argument{{Type: db.ObjectOf(prop("kind", a)), Fresh: true}}, types.NoType)
	assert.Equal(t, "{ kind: string; }", db.Format(inf.Mapping[O]))
}

func TestInferCandidates(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	pair := generic([]types.TypeID{T}, T, param("a", T), param("b", T))

	t.Run("common supertype", func(t *testing.T) {
		inf := ctx.Infer(pair, []Argument{{Type: db.StringLiteral("a")}, {Type: types.String}}, types.NoType)
		assert.Equal(t, types.String, inf.Mapping[T])
	})
	t.Run("union without a supertype", func(t *testing.T) {
		inf := ctx.Infer(pair, []Argument{{Type: types.String}, {Type: types.Number}}, types.NoType)
		assert.Equal(t, "string | number", db.Format(inf.Mapping[T]))
	})
	t.Run("no candidates", func(t *testing.T) {
		U := db.NewTypeParam("U")
		nothing := generic([]types.TypeID{U}, U)
		assert.Equal(t, types.Unknown, ctx.Infer(nothing, nil, types.NoType).Mapping[U])

		V := db.NewTypeParam("V")
		db.SetConstraint(V, types.Number)
		assert.Equal(t, types.Number, ctx.Infer(generic([]types.TypeID{V}, V), nil, types.NoType).Mapping[V])
	})
	t.Run("naked variable in a union", func(t *testing.T) {
		U := db.NewTypeParam("U")
		optional := generic([]types.TypeID{U}, U, param("x", db.Union(U, types.Undefined)))
		inf := ctx.Infer(optional, []Argument{{Type: db.Union(types.String, types.Undefined)}}, types.NoType)
		assert.Equal(t, types.String, inf.Mapping[U])
	})
	t.Run("contravariant position gives an upper bound", func(t *testing.T) {
		U := db.NewTypeParam("U")
		sink := generic([]types.TypeID{U}, U, param("f", fn(db, types.Void, param("x", U))))
		inf := ctx.Infer(sink, []Argument{{Type: fn(db, types.Void, param("x", types.String))}}, types.NoType)
		assert.Equal(t, types.String, inf.Mapping[U])
		require.Len(t, inf.Variables, 1)
		assert.Equal(t, []types.TypeID{types.String}, inf.Variables[0].Upper)
	})
	t.Run("through objects, arrays and tuples", func(t *testing.T) {
		K, V := db.NewTypeParam("K"), db.NewTypeParam("V")
		sig := generic([]types.TypeID{K, V}, V,
			param("o", db.ObjectOf(prop("key", K))),
			param("xs", db.ArrayOf(db.TupleOf(K, V))),
		)
		inf := ctx.Infer(sig, []Argument{
			{Type: db.ObjectOf(prop("key", types.String), prop("extra", types.Number))},
			{Type: db.ArrayOf(db.TupleOf(types.String, types.Boolean))},
		}, types.NoType)
		assert.Equal(t, types.String, inf.Mapping[K])
		assert.Equal(t, types.Boolean, inf.Mapping[V])
	})
	assert.Zero(t, ctx.active.Len())
}

func TestInferPriorities(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	identity := generic([]types.TypeID{T}, T, param("x", T))

	inf := ctx.Infer(identity, []Argument{{Type: types.Number}}, types.String)
	assert.Equal(t, types.Number, inf.Mapping[T], "arguments win over the contextual return type")

	U := db.NewTypeParam("U")
	produce := generic([]types.TypeID{U}, U)
	inf = ctx.Infer(produce, nil, types.String)
	assert.Equal(t, types.String, inf.Mapping[U])
	require.Len(t, inf.Variables, 1)
	assert.Equal(t, ReturnType, inf.Variables[0].Priority)

	assert.Less(t, NakedTypeVariable, HomomorphicMappedType)
	assert.Less(t, HomomorphicMappedType, MappedType)
	assert.Less(t, MappedType, ReturnType)
	assert.Less(t, ReturnType, LowPriority)
}

func TestInferConstraintViolation(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	db.SetConstraint(T, types.String)
	sig := generic([]types.TypeID{T}, T, param("x", T))

	inf := ctx.Infer(sig, []Argument{{Type: types.Number}}, types.NoType)
	assert.Equal(t, types.String, inf.Mapping[T])
	require.Len(t, inf.Issues, 1)
	assert.Equal(t, ConstraintViolation, inf.Issues[0].Kind)
	assert.Equal(t, 0, inf.Issues[0].Arg)
	assert.Equal(t, "The inferred type 'number' for 'T' does not satisfy the constraint 'string'.", inf.Issues[0].Message(db))
	assert.False(t, ctx.IsSubtype(types.Number, inf.Signature.Params[0].Type, Strict))
}

func TestInferBoundConflict(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	sig := generic([]types.TypeID{T}, types.Void,
		param("x", T),
		param("f", fn(db, types.Void, param("x", T))),
	)
	inf := ctx.Infer(sig, []Argument{
		{Type: types.Number},
		{Type: fn(db, types.Void, param("x", types.String))},
	}, types.NoType)
	assert.Equal(t, types.Number, inf.Mapping[T])
	require.Len(t, inf.Issues, 1)
	assert.Equal(t, BoundConflict, inf.Issues[0].Kind)
}

func TestInferRestArguments(t *testing.T) {
	db, ctx := strictContext()
	A := db.NewTypeParam("A")
	db.SetConstraint(A, db.ArrayOf(types.Any))
	sig := generic([]types.TypeID{A}, A, types.Param{Name: "args", Type: A, Rest: true})

	inf := ctx.Infer(sig, []Argument{
		{Type: db.NumberLiteral(1), Fresh: true},
		{Type: db.StringLiteral("x"), Fresh: true},
	}, types.NoType)
	assert.Equal(t, "[number, string]", db.Format(inf.Mapping[A]))
	assert.Empty(t, inf.Issues)

	T := db.NewTypeParam("T")
	spread := generic([]types.TypeID{T}, T, types.Param{Name: "args", Type: db.TupleOf(T, types.Number), Rest: true})
	inf = ctx.Infer(spread, []Argument{{Type: types.Boolean}, {Type: types.Number}}, types.NoType)
	assert.Equal(t, types.Boolean, inf.Mapping[T])
	assert.Len(t, inf.Signature.Params, 2)
}

func TestInferDeferredArguments(t *testing.T) {
	db, ctx := strictContext()
	T, U := db.NewTypeParam("T"), db.NewTypeParam("U")
	// map<T, U>(xs: T[], f: (x: T) => U): U[]
	sig := generic([]types.TypeID{T, U}, db.ArrayOf(U),
		param("xs", db.ArrayOf(T)),
		param("f", fn(db, U, param("x", T))),
	)

	var seen types.TypeID
	lambda := func(contextual types.TypeID) types.TypeID {
		seen = contextual
		sigs := db.FunctionSignatures(contextual)
		require.Len(t, sigs, 1)
		x := sigs[0].Params[0].Type
		return fn(db, db.ArrayOf(x), param("x", x))
	}
	inf := ctx.Infer(sig, []Argument{
		{Type: db.ArrayOf(types.String)},
		{Deferred: lambda},
	}, types.NoType)

	require.NotEqual(t, types.NoType, seen)
	assert.Equal(t, types.String, db.FunctionSignatures(seen)[0].Params[0].Type, "the lambda sees its parameter fixed")
	assert.Equal(t, "string[][]", db.Format(inf.Signature.Return))
	assert.Zero(t, ctx.active.Len())
}

func TestInferHomomorphicMappedInversion(t *testing.T) {
	db, ctx := strictContext()
	src := db.ObjectOf(prop("a", types.Number), prop("b", types.String))

	t.Run("identity template", func(t *testing.T) {
		T, K := db.NewTypeParam("T"), db.NewTypeParam("K")
		mapped := db.Intern(types.Mapped{Param: K, Constraint: db.KeyOf(T), Template: db.IndexedAccess(T, K)})
		sig := generic([]types.TypeID{T}, T, param("x", mapped))

		inf := ctx.Infer(sig, []Argument{{Type: src}}, types.NoType)
		assert.Equal(t, src, inf.Mapping[T])
		require.Len(t, inf.Variables, 1)
		assert.Equal(t, HomomorphicMappedType, inf.Variables[0].Priority)
	})

	t.Run("boxed template", func(t *testing.T) {
		T, K := db.NewTypeParam("T"), db.NewTypeParam("K")
		box := func(v types.TypeID) types.TypeID { return db.ObjectOf(prop("value", v)) }
		mapped := db.Intern(types.Mapped{Param: K, Constraint: db.KeyOf(T), Template: box(db.IndexedAccess(T, K))})
		sig := generic([]types.TypeID{T}, T, param("x", mapped))

		boxed := db.ObjectOf(prop("a", box(types.Number)), prop("b", box(types.String)))
		inf := ctx.Infer(sig, []Argument{{Type: boxed}}, types.NoType)
		assert.Equal(t, src, inf.Mapping[T])
	})

	t.Run("keys and values of a non-homomorphic mapped type", func(t *testing.T) {
		Key, V, P := db.NewTypeParam("Key"), db.NewTypeParam("V"), db.NewTypeParam("P")
		mapped := db.Intern(types.Mapped{Param: P, Constraint: Key, Template: V})
		sig := generic([]types.TypeID{Key, V}, V, param("x", mapped))

		inf := ctx.Infer(sig, []Argument{{Type: db.ObjectOf(prop("a", types.Number), prop("b", types.Number))}}, types.NoType)
		assert.Equal(t, `"a" | "b"`, db.Format(inf.Mapping[Key]))
		assert.Equal(t, types.Number, inf.Mapping[V])
	})
	assert.Zero(t, ctx.active.Len())
}

func TestInferGenericComposition(t *testing.T) {
	db, ctx := strictContext()
	// pipe<A extends any[], B, C>(ab: (...a: A) => B, bc: (b: B) => C): (...a: A) => C
	A, B, C := db.NewTypeParam("A"), db.NewTypeParam("B"), db.NewTypeParam("C")
	db.SetConstraint(A, db.ArrayOf(types.Any))
	restA := types.Param{Name: "a", Type: A, Rest: true}
	pipe := generic([]types.TypeID{A, B, C}, fn(db, C, restA),
		param("ab", fn(db, B, restA)),
		param("bc", fn(db, C, param("b", B))),
	)
	// list<T>(a: T): T[]
	T := db.NewTypeParam("T")
	list := db.FuncOf(generic([]types.TypeID{T}, db.ArrayOf(T), param("a", T)))
	// box<V>(x: V): { value: V }
	V := db.NewTypeParam("V")
	box := db.FuncOf(generic([]types.TypeID{V}, db.ObjectOf(prop("value", V)), param("x", V)))

	inf := ctx.Infer(pipe, []Argument{{Type: list}, {Type: box}}, types.NoType)
	assert.Empty(t, inf.Issues)
	assert.Equal(t, "<T>(a: T) => { value: T[]; }", db.Format(inf.Signature.Return))
	assert.True(t, db.IsGeneric(inf.Signature.Return))
	assert.Zero(t, ctx.active.Len())

	for i, arg := range []types.TypeID{list, box} {
		assert.True(t, ctx.IsSubtype(arg, inf.Signature.Params[i].Type, Strict), "argument %d", i)
	}

	t.Run("the composed function instantiates", func(t *testing.T) {
		composed := db.FunctionSignatures(inf.Signature.Return)[0]
		call := ctx.Infer(composed, []Argument{{Type: types.Number}}, types.NoType)
		assert.Equal(t, "{ value: number[]; }", db.Format(call.Signature.Return))
	})
}

func TestInferFromGenericArgumentWithKnownParameters(t *testing.T) {
	db, ctx := strictContext()
	// apply<X, Y>(x: X, f: (x: X) => Y): Y
	X, Y := db.NewTypeParam("X"), db.NewTypeParam("Y")
	apply := generic([]types.TypeID{X, Y}, Y, param("x", X), param("f", fn(db, Y, param("x", X))))
	T := db.NewTypeParam("T")
	list := db.FuncOf(generic([]types.TypeID{T}, db.ArrayOf(T), param("a", T)))

	inf := ctx.Infer(apply, []Argument{{Type: types.String}, {Type: list}}, types.NoType)
	assert.Equal(t, types.String, inf.Mapping[X])
	assert.Equal(t, "string[]", db.Format(inf.Mapping[Y]))
	assert.Zero(t, ctx.active.Len())
}
