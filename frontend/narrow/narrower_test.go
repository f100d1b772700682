package narrow

import (
	"testing"

	"github.com/cottand/tsz/frontend/options"
	"github.com/cottand/tsz/frontend/solver"
	"github.com/cottand/tsz/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNarrower() (*types.Database, *Narrower) {
	db := types.NewDatabase()
	return db, New(solver.NewContext(db, options.Strict().Resolve()))
}

func prop(name string, t types.TypeID) types.Property {
	return types.Property{Name: name, Type: t}
}

func TestByTypeof(t *testing.T) {
	db, n := newNarrower()
	fn := db.FuncOf(types.Signature{Return: types.Void})
	obj := db.ObjectOf(prop("a", types.String))
	mixed := db.Union(types.String, types.Number, types.Undefined, obj, fn)

	tests := []struct {
		name  string
		in    types.TypeID
		tag   string
		sense bool
		want  string
	}{
		{"string true", mixed, "string", true, "string"},
		{"string false", mixed, "string", false, "number | undefined | { a: string; } | (() => void)"},
		{"object true", mixed, "object", true, "{ a: string; }"},
		{"function true", mixed, "function", true, "() => void"},
		{"undefined false", mixed, "undefined", false, "string | number | { a: string; } | (() => void)"},
		{"literals keep their type", db.Union(db.StringLiteral("a"), types.Number), "string", true, `"a"`},
		{"boolean splits back", db.Union(types.Boolean, types.String), "boolean", true, "boolean"},
		{"null is an object", db.Union(types.Null, types.String), "object", true, "null"},
		{"unknown to primitive", types.Unknown, "number", true, "number"},
		{"unknown to object", types.Unknown, "object", true, "object | null"},
		{"unknown false branch", types.Unknown, "number", false, "unknown"},
		{"any to primitive", types.Any, "string", true, "string"},
		{"any to object stays any", types.Any, "object", true, "any"},
		{"no match", types.String, "number", true, "never"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.Format(n.ByTypeof(tt.in, tt.tag, tt.sense)))
		})
	}
}

func TestByTypeofTypeParameter(t *testing.T) {
	db, n := newNarrower()
	T := db.NewTypeParam("T")
	db.SetConstraint(T, db.Union(types.String, types.Number))
	assert.Equal(t, "T & string", db.Format(n.ByTypeof(T, "string", true)))
	assert.Equal(t, types.Never, n.ByTypeof(T, "boolean", true))
	assert.Equal(t, T, n.ByTypeof(T, "string", false))

	S := db.NewTypeParam("S")
	db.SetConstraint(S, types.String)
	assert.Equal(t, S, n.ByTypeof(S, "string", true))
	assert.Equal(t, types.Never, n.ByTypeof(S, "string", false))
}

func TestByTruthiness(t *testing.T) {
	db, n := newNarrower()
	obj := db.ObjectOf(prop("a", types.String))
	tests := []struct {
		name  string
		in    types.TypeID
		sense bool
		want  string
	}{
		{"drops nullish", db.Union(types.String, types.Null, types.Undefined), true, "string"},
		{"boolean to true", types.Boolean, true, "true"},
		{"boolean to false", types.Boolean, false, "false"},
		{"string to empty", types.String, false, `""`},
		{"number to zero", types.Number, false, "0"},
		{"bigint to zero", types.BigInt, false, "0n"},
		{"falsy literals", db.Union(db.StringLiteral(""), db.StringLiteral("a"), db.NumberLiteral(0), db.NumberLiteral(1)), true, `"a" | 1`},
		{"falsy subset", db.Union(types.String, obj, types.Undefined), false, `"" | undefined`},
		{"objects are truthy", db.Union(obj, types.Null), true, "{ a: string; }"},
		{"objects are never falsy", obj, false, "never"},
		{"unknown is kept", types.Unknown, true, "unknown"},
		{"any is kept", types.Any, false, "any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.Format(n.ByTruthiness(tt.in, tt.sense)))
		})
	}
}

func shapes(db *types.Database) (circle, square, shape types.TypeID) {
	circle = db.ObjectOf(prop("kind", db.StringLiteral("circle")), prop("radius", types.Number))
	square = db.ObjectOf(prop("kind", db.StringLiteral("square")), prop("side", types.Number))
	return circle, square, db.Union(circle, square)
}

func TestByDiscriminant(t *testing.T) {
	db, n := newNarrower()
	circle, square, shape := shapes(db)
	kind := []string{"kind"}

	assert.Equal(t, circle, n.ByDiscriminant(shape, kind, db.StringLiteral("circle"), true))
	assert.Equal(t, square, n.ByDiscriminant(shape, kind, db.StringLiteral("circle"), false))

	triangle := db.ObjectOf(prop("kind", db.StringLiteral("triangle")), prop("base", types.Number))
	three := db.Union(triangle, circle, square)
	assert.Equal(t, db.Union(triangle, square), n.ByDiscriminant(three, kind, db.StringLiteral("circle"), false))
	assert.Equal(t, three, n.ByDiscriminant(three, kind, db.StringLiteral("hexagon"), false))
	assert.Equal(t, types.Never, n.ByDiscriminant(shape, kind, db.StringLiteral("triangle"), true))
	assert.Equal(t, shape, n.ByDiscriminant(shape, kind, db.StringLiteral("triangle"), false))
	assert.Equal(t, shape, n.ByDiscriminant(shape, kind, types.String, false),
		"a non-unit value rules nothing out")

	t.Run("nested path", func(t *testing.T) {
		a := db.ObjectOf(prop("meta", db.ObjectOf(prop("tag", types.True))), prop("x", types.Number))
		b := db.ObjectOf(prop("meta", db.ObjectOf(prop("tag", types.False))), prop("y", types.String))
		ab := db.Union(a, b)
		assert.Equal(t, a, n.ByDiscriminant(ab, []string{"meta", "tag"}, types.True, true))
		assert.Equal(t, b, n.ByDiscriminant(ab, []string{"meta", "tag"}, types.True, false))
	})
}

func TestDiscriminantRoundTrip(t *testing.T) {
	db, n := newNarrower()
	_, _, shape := shapes(db)
	triangle := db.ObjectOf(prop("kind", db.StringLiteral("triangle")), prop("base", types.Number))
	all := db.Union(shape, triangle)
	value := db.StringLiteral("square")

	yes := n.ByDiscriminant(all, []string{"kind"}, value, true)
	no := n.ByDiscriminant(all, []string{"kind"}, value, false)
	joined := db.Union(yes, no)
	assert.ElementsMatch(t, db.UnionMembers(all), db.UnionMembers(joined), "%s vs %s", db.Format(all), db.Format(joined))
}

func TestNarrowingIsIdempotent(t *testing.T) {
	db, n := newNarrower()
	_, _, shape := shapes(db)
	mixed := db.Union(types.String, types.Number, types.Null, shape)
	guards := []Guard{
		{Kind: GuardTypeof, Tag: "string"},
		{Kind: GuardTruthy},
		{Kind: GuardNullish},
		{Kind: GuardEquality, Value: types.Null},
		{Kind: GuardIn, Tag: "radius"},
		{Kind: GuardPredicate, Value: types.Number},
	}
	for _, g := range guards {
		for _, sense := range []bool{true, false} {
			t.Run(g.Kind.String(), func(t *testing.T) {
				once := g.Apply(n, mixed, sense)
				assert.Equal(t, once, g.Apply(n, once, sense))
			})
		}
	}
	kind := Guard{Kind: GuardDiscriminant, Path: []string{"kind"}, Value: db.StringLiteral("circle")}
	once := kind.Apply(n, shape, true)
	assert.Equal(t, once, kind.Apply(n, once, true))
}

func TestByLiteralEquality(t *testing.T) {
	db, n := newNarrower()
	a, b, c := db.StringLiteral("a"), db.StringLiteral("b"), db.StringLiteral("c")
	tests := []struct {
		name  string
		in    types.TypeID
		lit   types.TypeID
		sense bool
		want  string
	}{
		{"picks the literal", db.Union(a, b), a, true, `"a"`},
		{"removes the literal", db.Union(a, b), a, false, `"b"`},
		{"narrows the base", db.Union(types.String, types.Number), a, true, `"a"`},
		{"base survives the false branch", types.String, a, false, "string"},
		{"null", db.Union(types.String, types.Null), types.Null, true, "null"},
		{"not null", db.Union(types.String, types.Null), types.Null, false, "string"},
		{"boolean", types.Boolean, types.True, false, "false"},
		{"literal not a member", db.Union(a, b), c, false, `"a" | "b"`},
		{"member order is kept", db.Union(c, types.Null, b), types.Null, false, `"c" | "b"`},
		{"boolean member splits", db.Union(types.Boolean, types.String), types.False, false, "true | string"},
		{"unknown takes the literal", types.Unknown, a, true, `"a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.Format(n.ByLiteralEquality(tt.in, tt.lit, tt.sense)))
		})
	}
}

func TestByNullish(t *testing.T) {
	db, n := newNarrower()
	maybe := db.Union(types.String, types.Null, types.Undefined)
	assert.Equal(t, "null | undefined", db.Format(n.ByNullish(maybe, true)))
	assert.Equal(t, types.String, n.ByNullish(maybe, false))
	assert.Equal(t, "null | undefined", db.Format(n.ByNullish(types.Unknown, true)))
}

func TestByPredicate(t *testing.T) {
	db, n := newNarrower()
	circle, square, shape := shapes(db)

	assert.Equal(t, circle, n.ByPredicate(shape, circle, true))
	assert.Equal(t, square, n.ByPredicate(shape, circle, false))
	assert.Equal(t, circle, n.ByPredicate(types.Unknown, circle, true))
	assert.Equal(t, types.Unknown, n.ByPredicate(types.Unknown, circle, false),
		"the false branch only excludes members of a union")

	wide := db.ObjectOf(prop("kind", types.String))
	assert.Equal(t, circle, n.ByPredicate(wide, circle, true), "a subtype of the declared type")
	assert.Equal(t, wide, n.ByPredicate(wide, circle, false))
}

func TestByAssertion(t *testing.T) {
	db, n := newNarrower()
	maybe := db.Union(types.String, types.Undefined)
	assert.Equal(t, types.String, n.ByAssertion(maybe, types.NoType))
	assert.Equal(t, types.String, n.ByAssertion(maybe, types.String))

	g := Guard{Kind: GuardPredicate, Value: types.String, Asserts: true}
	assert.Equal(t, types.String, g.Apply(n, maybe, true))
	require.Panics(t, func() { g.Apply(n, maybe, false) })
}

func TestByInProperty(t *testing.T) {
	db, n := newNarrower()
	circle, square, shape := shapes(db)
	assert.Equal(t, circle, n.ByInProperty(shape, "radius", true))
	assert.Equal(t, square, n.ByInProperty(shape, "radius", false))

	optional := db.ObjectOf(types.Property{Name: "radius", Type: types.Number, Optional: true})
	both := db.Union(optional, square)
	assert.Equal(t, optional, n.ByInProperty(both, "radius", true))
	assert.Equal(t, both, n.ByInProperty(both, "radius", false), "an optional property may be absent")
}

func TestByAssignment(t *testing.T) {
	db, n := newNarrower()
	a := db.StringLiteral("a")
	tests := []struct {
		name               string
		declared, assigned types.TypeID
		want               string
	}{
		{"union member", db.Union(types.String, types.Number), a, "string"},
		{"literal member", db.Union(a, db.StringLiteral("b")), a, `"a"`},
		{"not a union", types.String, a, "string"},
		{"any assigned", db.Union(types.String, types.Number), types.Any, "string | number"},
		{"union assigned", db.Union(types.String, types.Number, types.Null), db.Union(types.Number, types.Null), "number | null"},
		{"unknown declared", types.Unknown, types.Number, "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.Format(n.ByAssignment(tt.declared, tt.assigned)))
		})
	}
}
