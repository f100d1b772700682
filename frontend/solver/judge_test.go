package solver

import (
	"testing"

	"github.com/cottand/tsz/frontend/options"
	"github.com/cottand/tsz/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strictContext() (*types.Database, *SolveContext) {
	db := types.NewDatabase()
	return db, NewContext(db, options.Strict().Resolve())
}

func fn(db *types.Database, ret types.TypeID, params ...types.Param) types.TypeID {
	return db.FuncOf(types.Signature{Params: params, Return: ret})
}

func param(name string, t types.TypeID) types.Param {
	return types.Param{Name: name, Type: t}
}

func prop(name string, t types.TypeID) types.Property {
	return types.Property{Name: name, Type: t}
}

func TestReflexivity(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	tree := db.DeclareDef("Tree", nil, true)
	db.DefineDef(tree, db.ObjectOf(prop("children", db.ArrayOf(db.Reference(tree)))))

	all := []types.TypeID{
		types.Never, types.Unknown, types.Any, types.Void, types.Undefined, types.Null,
		types.String, types.Number, types.Boolean, types.NonPrimitive, types.Function,
		db.StringLiteral("a"), db.NumberLiteral(1),
		db.Union(types.String, types.Undefined),
		db.ObjectOf(prop("a", types.String), types.Property{Name: "b", Type: types.Number, Optional: true}),
		fn(db, types.Void, param("x", types.String)),
		db.TupleOf(types.String, types.Number),
		db.ArrayOf(types.String),
		T,
		db.Reference(tree),
		db.KeyOf(T),
	}
	for _, ty := range all {
		t.Run(db.Format(ty), func(t *testing.T) {
			assert.True(t, ctx.IsSubtype(ty, ty, Strict))
			assert.True(t, ctx.IsSubtype(ty, ty, Comparable))
		})
	}
}

func TestIntrinsicRelations(t *testing.T) {
	db, ctx := strictContext()
	a := db.StringLiteral("a")
	obj := db.ObjectOf(prop("a", types.String))
	tests := []struct {
		name     string
		src, tgt types.TypeID
		want     bool
	}{
		{"literal to base", a, types.String, true},
		{"base to literal", types.String, a, false},
		{"any to string", types.Any, types.String, true},
		{"any to never", types.Any, types.Never, false},
		{"never to anything", types.Never, a, true},
		{"unknown to string", types.Unknown, types.String, false},
		{"string to unknown", types.String, types.Unknown, true},
		{"undefined to void", types.Undefined, types.Void, true},
		{"null to string", types.Null, types.String, false},
		{"error to anything", types.Error, a, true},
		{"anything to error", obj, types.Error, true},
		{"object literal to object", obj, types.NonPrimitive, true},
		{"string to object", types.String, types.NonPrimitive, false},
		{"function to Function", fn(db, types.Void), types.Function, true},
		{"object to Function", obj, types.Function, false},
		{"true to boolean", types.True, types.Boolean, true},
		{"boolean to true | false | string", types.Boolean, db.Union(types.True, types.String, types.False), true},
		{"string to apparent shape", types.String, db.ObjectOf(prop("length", types.Number)), true},
		{"number to apparent shape", types.Number, db.ObjectOf(prop("length", types.Number)), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, ctx.IsSubtype(test.src, test.tgt, Strict))
		})
	}
}

func TestStrictNullChecksOff(t *testing.T) {
	db := types.NewDatabase()
	ctx := NewContext(db, options.Loose().Resolve())
	assert.True(t, ctx.IsSubtype(types.Null, types.String, Strict))
	assert.True(t, ctx.IsSubtype(types.Undefined, db.ObjectOf(prop("a", types.Number)), Strict))
	assert.False(t, ctx.IsSubtype(types.String, types.Null, Strict))
}

func TestUnionEliminationAndIntroduction(t *testing.T) {
	db, ctx := strictContext()
	a, b := db.StringLiteral("a"), db.NumberLiteral(1)
	sample := []types.TypeID{a, b, types.String, types.Number, types.Boolean, types.Null,
		db.ObjectOf(prop("x", types.String)), db.Union(a, types.Null)}

	for _, x := range sample {
		for _, y := range sample {
			for _, z := range sample {
				union := db.Union(x, y)
				assert.Equal(t,
					ctx.IsSubtype(x, z, Strict) && ctx.IsSubtype(y, z, Strict),
					ctx.IsSubtype(union, z, Strict),
					"%s <: %s", db.Format(union), db.Format(z))
				if db.IsUnion(x) {
					// a union source may be covered by the members of y and z together
					continue
				}
				union = db.Union(y, z)
				assert.Equal(t,
					ctx.IsSubtype(x, y, Strict) || ctx.IsSubtype(x, z, Strict),
					ctx.IsSubtype(x, union, Strict),
					"%s <: %s", db.Format(x), db.Format(union))
			}
		}
	}
}

func TestTransitivity(t *testing.T) {
	db, ctx := strictContext()
	a := db.StringLiteral("a")
	chain := []types.TypeID{
		db.ObjectOf(prop("k", a), prop("n", types.Number)),
		db.ObjectOf(prop("k", types.String), prop("n", types.Number)),
		db.ObjectOf(prop("k", types.String)),
		db.ObjectOf(types.Property{Name: "k", Type: db.Union(types.String, types.Null), Optional: true}),
		types.NonPrimitive,
		types.Unknown,
	}
	for i := range chain {
		for j := i; j < len(chain); j++ {
			assert.True(t, ctx.IsSubtype(chain[i], chain[j], Strict), "%s <: %s", db.Format(chain[i]), db.Format(chain[j]))
		}
	}
}

func TestRecursiveTypesAcceptThemselves(t *testing.T) {
	db, ctx := strictContext()
	tree := db.DeclareDef("Tree", nil, true)
	db.DefineDef(tree, db.ObjectOf(prop("children", db.ArrayOf(db.Reference(tree)))))
	other := db.DeclareDef("Forest", nil, true)
	db.DefineDef(other, db.ObjectOf(prop("children", db.ArrayOf(db.Reference(other)))))

	assert.True(t, ctx.IsSubtype(db.Reference(tree), db.Reference(tree), Strict))
	assert.True(t, ctx.IsSubtype(db.Reference(tree), db.Reference(other), Strict))
	assert.True(t, ctx.IsSubtype(db.Expand(db.Reference(tree)), db.Reference(other), Strict))
	assert.Zero(t, ctx.depth)
}

func TestDepthGuard(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	box := db.DeclareDef("Box", []types.TypeID{T}, false)
	db.DefineDef(box, db.ObjectOf(prop("value", T)))

	U := db.NewTypeParam("U")
	deep := db.DeclareDef("Deep", []types.TypeID{U}, false)
	db.DefineDef(deep, db.ObjectOf(prop("next", db.Reference(deep, db.Reference(box, U)))))

	inf := db.DeclareDef("Inf", nil, false)
	db.DefineDef(inf, db.ObjectOf(prop("next", db.Reference(inf))))

	src := db.Reference(deep, types.Number)
	assert.False(t, ctx.IsSubtype(src, db.Reference(inf), Strict))

	failure := ctx.Explain(src, db.Reference(inf), Strict)
	require.NotNil(t, failure)
	assert.Equal(t, RecursionLimitExceeded, failure.Kind)
	assert.Zero(t, ctx.depth)
}

func TestObjectRelations(t *testing.T) {
	db, ctx := strictContext()
	optional := func(name string, t types.TypeID) types.Property {
		return types.Property{Name: name, Type: t, Optional: true}
	}
	tests := []struct {
		name     string
		src, tgt types.TypeID
		want     bool
	}{
		{"extra properties are fine", db.ObjectOf(prop("a", types.String), prop("b", types.Number)), db.ObjectOf(prop("a", types.String)), true},
		{"missing property", db.ObjectOf(prop("a", types.String)), db.ObjectOf(prop("a", types.String), prop("b", types.Number)), false},
		{"missing optional property", db.ObjectOf(prop("a", types.String)), db.ObjectOf(prop("a", types.String), optional("b", types.Number)), true},
		{"optional to required", db.ObjectOf(optional("a", types.String)), db.ObjectOf(prop("a", types.String)), false},
		{"property types are covariant", db.ObjectOf(prop("a", db.StringLiteral("x"))), db.ObjectOf(prop("a", types.String)), true},
		{"required to optional with undefined", db.ObjectOf(prop("a", db.Union(types.String, types.Undefined))), db.ObjectOf(optional("a", types.String)), true},
		{
			"string index accepts matching properties",
			db.ObjectOf(prop("a", types.Number), prop("b", types.Number)),
			db.Intern(types.Object{StringIndex: types.Number}),
			true,
		},
		{
			"string index rejects other properties",
			db.ObjectOf(prop("a", types.Number), prop("b", types.String)),
			db.Intern(types.Object{StringIndex: types.Number}),
			false,
		},
		{
			"number index only checks numeric names",
			db.ObjectOf(prop("0", types.Number), prop("name", types.String)),
			db.Intern(types.Object{NumberIndex: types.Number}),
			true,
		},
		{"array against its apparent shape", db.ArrayOf(types.String), db.ObjectOf(prop("length", types.Number)), true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, ctx.IsSubtype(test.src, test.tgt, Strict))
		})
	}
}

func TestExactOptionalPropertyTypes(t *testing.T) {
	db := types.NewDatabase()
	opts := options.Strict()
	opts.ExactOptionalPropertyTypes = true
	ctx := NewContext(db, opts.Resolve())
	src := db.ObjectOf(prop("a", db.Union(types.String, types.Undefined)))
	tgt := db.ObjectOf(types.Property{Name: "a", Type: types.String, Optional: true})
	assert.False(t, ctx.IsSubtype(src, tgt, Strict))
}

func TestExplainElaboratesProperties(t *testing.T) {
	db, ctx := strictContext()
	src := db.ObjectOf(prop("inner", db.ObjectOf(prop("n", types.String))))
	tgt := db.ObjectOf(prop("inner", db.ObjectOf(prop("n", types.Number))))

	failure := ctx.Explain(src, tgt, Strict)
	require.NotNil(t, failure)
	assert.Equal(t, IncompatibleShape, failure.Kind)
	assert.Equal(t, "Type '{ inner: { n: string; }; }' is not assignable to type '{ inner: { n: number; }; }'.", failure.Message)
	assert.Equal(t, []string{
		"Types of property 'inner' are incompatible.",
		"Type '{ n: string; }' is not assignable to type '{ n: number; }'.",
		"Types of property 'n' are incompatible.",
		"Type 'string' is not assignable to type 'number'.",
	}, failure.Reasons())
	assert.Equal(t, "inner", failure.Cause.Property)

	missing := ctx.Explain(db.ObjectOf(), db.ObjectOf(prop("a", types.String)), Strict)
	require.NotNil(t, missing)
	assert.Equal(t, []string{"Property 'a' is missing in type '{}' but required in type '{ a: string; }'."}, missing.Reasons())

	assert.Nil(t, ctx.Explain(types.String, types.String, Strict))
	assert.False(t, ctx.explaining)
}

func TestFunctionRelations(t *testing.T) {
	db, ctx := strictContext()
	sn := db.Union(types.String, types.Number)
	takesString := fn(db, types.Void, param("x", types.String))
	takesUnion := fn(db, types.Void, param("x", sn))

	tests := []struct {
		name     string
		src, tgt types.TypeID
		want     bool
	}{
		{"wider parameter", takesUnion, takesString, true},
		{"narrower parameter", takesString, takesUnion, false},
		{"fewer parameters", fn(db, types.Void), takesString, true},
		{"more required parameters", fn(db, types.Void, param("x", types.String), param("y", types.String)), takesString, false},
		{"optional extra parameter", fn(db, types.Void, param("x", types.String), types.Param{Name: "y", Type: types.Number, Optional: true}), takesString, true},
		{"void target ignores return", fn(db, types.Number), fn(db, types.Void), true},
		{"covariant return", fn(db, db.StringLiteral("a")), fn(db, types.String), true},
		{"return mismatch", fn(db, types.Number), fn(db, types.String), false},
		{"rest source takes any count", fn(db, types.Void, types.Param{Name: "xs", Type: db.ArrayOf(types.String), Rest: true}), fn(db, types.Void, param("a", types.String), param("b", types.String)), true},
		{"rest element mismatch", fn(db, types.Void, types.Param{Name: "xs", Type: db.ArrayOf(types.Number), Rest: true}), takesString, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, ctx.IsSubtype(test.src, test.tgt, Strict))
		})
	}

	t.Run("methods are bivariant", func(t *testing.T) {
		method := func(p types.TypeID) types.TypeID {
			return db.ObjectOf(types.Property{Name: "m", Type: fn(db, types.Void, param("x", p)), Method: true})
		}
		assert.True(t, ctx.IsSubtype(method(types.String), method(sn), Strict))
		assert.True(t, ctx.IsSubtype(method(sn), method(types.String), Strict))
	})

	t.Run("bivariant without strictFunctionTypes", func(t *testing.T) {
		loose := options.Strict()
		off := false
		loose.StrictFunctionTypes = &off
		ctx := NewContext(db, loose.Resolve())
		assert.True(t, ctx.IsSubtype(takesString, takesUnion, Strict))
		assert.False(t, ctx.IsSubtype(fn(db, types.Void, param("x", types.Boolean)), takesString, Strict))
	})

	t.Run("predicates", func(t *testing.T) {
		guard := db.FuncOf(types.Signature{
			Params:    []types.Param{param("x", types.Unknown)},
			Return:    types.Boolean,
			Predicate: &types.Predicate{ParamIndex: 0, ParamName: "x", Type: types.String},
		})
		plain := fn(db, types.Boolean, param("x", types.Unknown))
		assert.True(t, ctx.IsSubtype(guard, plain, Strict))
		assert.False(t, ctx.IsSubtype(plain, guard, Strict))
		failure := ctx.Explain(plain, guard, Strict)
		require.NotNil(t, failure)
		assert.Contains(t, failure.Reasons(), "Signature '(x: unknown) => boolean' must be a type predicate.")
	})
}

func TestGenericSourceSignature(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	identity := db.FuncOf(types.Signature{TypeParams: []types.TypeID{T}, Params: []types.Param{param("x", T)}, Return: T})
	U := db.NewTypeParam("U")
	db.SetConstraint(U, types.Number)
	numeric := db.FuncOf(types.Signature{TypeParams: []types.TypeID{U}, Params: []types.Param{param("x", U)}, Return: U})

	assert.True(t, ctx.IsSubtype(identity, fn(db, types.String, param("x", types.String)), Strict))
	assert.False(t, ctx.IsSubtype(identity, fn(db, types.Number, param("x", types.String)), Strict))
	assert.False(t, ctx.IsSubtype(numeric, fn(db, types.String, param("x", types.String)), Strict))
	assert.Zero(t, ctx.active.Len())
}

func TestTupleRestUnpacking(t *testing.T) {
	db, ctx := strictContext()
	f1 := fn(db, types.Void, param("a", types.String), param("b", types.Number))
	f2 := fn(db, types.Void, types.Param{Name: "args", Type: db.TupleOf(types.String, types.Number), Rest: true})

	assert.True(t, ctx.IsSubtype(f1, f2, Strict))
	assert.True(t, ctx.IsSubtype(f2, f1, Strict))

	f3 := fn(db, types.Void, types.Param{Name: "args", Type: db.TupleOf(types.Number, types.Number), Rest: true})
	assert.False(t, ctx.IsSubtype(f1, f3, Strict))
}

func TestTupleRelations(t *testing.T) {
	db, ctx := strictContext()
	restOf := func(elem types.TypeID) types.TupleElement {
		return types.TupleElement{Type: db.ArrayOf(elem), Rest: true}
	}
	headAndRest := db.Intern(types.Tuple{Elements: []types.TupleElement{{Type: types.String}, restOf(types.Number)}})
	tests := []struct {
		name     string
		src, tgt types.TypeID
		want     bool
	}{
		{"same length", db.TupleOf(db.StringLiteral("a"), types.Number), db.TupleOf(types.String, types.Number), true},
		{"too short", db.TupleOf(types.String), db.TupleOf(types.String, types.Number), false},
		{"too long", db.TupleOf(types.String, types.Number, types.Number), db.TupleOf(types.String, types.Number), false},
		{"into array", db.TupleOf(types.String, types.String), db.ArrayOf(types.String), true},
		{"into array mismatch", db.TupleOf(types.String, types.Number), db.ArrayOf(types.String), false},
		{"array into tuple", db.ArrayOf(types.String), db.TupleOf(types.String), false},
		{"fixed into rest", db.TupleOf(types.String, types.Number, types.Number), headAndRest, true},
		{"head only into rest", db.TupleOf(types.String), headAndRest, true},
		{"rest into fixed", headAndRest, db.TupleOf(types.String, types.Number), false},
		{"array into rest-only tuple", db.ArrayOf(types.Number), db.Intern(types.Tuple{Elements: []types.TupleElement{restOf(types.Number)}}), true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, ctx.IsSubtype(test.src, test.tgt, Strict))
		})
	}

	readonly := db.Intern(types.Array{Elem: types.String, Readonly: true})
	assert.False(t, ctx.IsSubtype(readonly, db.ArrayOf(types.String), Strict))
	assert.True(t, ctx.IsSubtype(db.ArrayOf(types.String), readonly, Strict))
}

func TestApplicationsFollowVariance(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	box := db.DeclareDef("Box", []types.TypeID{T}, false)
	db.DefineDef(box, db.ObjectOf(prop("value", T)))
	S := db.NewTypeParam("S")
	sink := db.DeclareDef("Sink", []types.TypeID{S}, false)
	db.DefineDef(sink, fn(db, types.Void, param("x", S)))

	a := db.StringLiteral("a")
	assert.True(t, ctx.IsSubtype(db.Reference(box, a), db.Reference(box, types.String), Strict))
	assert.False(t, ctx.IsSubtype(db.Reference(box, types.String), db.Reference(box, a), Strict))
	assert.True(t, ctx.IsSubtype(db.Reference(sink, types.String), db.Reference(sink, a), Strict))
	assert.False(t, ctx.IsSubtype(db.Reference(sink, a), db.Reference(sink, types.String), Strict))
	assert.True(t, ctx.IsSubtype(db.Reference(box, a), db.ObjectOf(prop("value", types.String)), Strict))
}

func TestTypeParameterRelations(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	db.SetConstraint(T, db.Union(types.String, types.Number))
	U := db.NewTypeParam("U")

	assert.True(t, ctx.IsSubtype(T, db.Union(types.String, types.Number), Strict))
	assert.True(t, ctx.IsSubtype(T, db.Union(types.String, types.Number, types.Null), Strict))
	assert.False(t, ctx.IsSubtype(T, types.String, Strict))
	assert.False(t, ctx.IsSubtype(types.String, T, Strict))
	assert.False(t, ctx.IsSubtype(U, types.String, Strict))
	assert.True(t, ctx.IsSubtype(U, types.Unknown, Strict))
	assert.True(t, ctx.IsSubtype(U, types.String, Comparable))
}

func TestComparable(t *testing.T) {
	db, ctx := strictContext()
	one, two := db.NumberLiteral(1), db.NumberLiteral(2)
	oneStr := db.StringLiteral("one")

	assert.False(t, ctx.Overlaps(one, oneStr))
	assert.False(t, ctx.Overlaps(one, two))
	assert.True(t, ctx.Overlaps(types.Number, two))
	assert.True(t, ctx.Overlaps(one, types.Any))
	assert.True(t, ctx.Overlaps(db.Union(one, oneStr), oneStr))
	assert.True(t, ctx.Overlaps(types.Unknown, types.String))
	assert.False(t, ctx.Overlaps(db.StringLiteral("a"), db.StringLiteral("b")))
	assert.True(t, ctx.IsSubtype(db.ObjectOf(types.Property{Name: "a", Type: types.String, Optional: true}), db.ObjectOf(prop("a", types.String)), Comparable))
}

func TestClosedEpisodeVariablePanics(t *testing.T) {
	db, ctx := strictContext()
	T := db.NewTypeParam("T")
	e := ctx.beginEpisode([]types.TypeID{T})
	v := e.Vars[0]
	assert.False(t, ctx.IsSubtype(v, types.String, Strict))
	e.Close()
	assert.Panics(t, func() { ctx.IsSubtype(v, types.String, Strict) })
	assert.Panics(t, func() { ctx.IsSubtype(db.ArrayOf(types.String), v, Strict) })
}

func TestEpisodesCloseInnermostFirst(t *testing.T) {
	db, ctx := strictContext()
	outer := ctx.beginEpisode([]types.TypeID{db.NewTypeParam("T")})
	inner := ctx.beginEpisode([]types.TypeID{db.NewTypeParam("U")})
	assert.Panics(t, func() { outer.Close() })
	inner.Close()
	outer.Close()
	assert.Zero(t, ctx.active.Len())
}

func TestEnumLiteralsRelateToTheirBase(t *testing.T) {
	db, ctx := strictContext()
	red := db.EnumLiteral("Color", "Red", types.Number)
	green := db.EnumLiteral("Color", "Green", types.Number)
	north := db.EnumLiteral("Direction", "North", types.String)

	assert.True(t, ctx.IsSubtype(red, types.Number, Strict))
	assert.True(t, ctx.IsSubtype(north, types.String, Strict))
	assert.True(t, ctx.IsSubtype(red, db.Union(red, green), Strict))
	assert.False(t, ctx.IsSubtype(types.Number, red, Strict))
	assert.False(t, ctx.IsSubtype(red, green, Strict))
	assert.False(t, ctx.IsSubtype(red, types.String, Strict))
	assert.False(t, ctx.IsSubtype(north, types.Number, Strict))

	failure := ctx.Explain(red, types.String, Strict)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Message, "Color.Red")
}
