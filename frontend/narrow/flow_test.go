package narrow

import (
	"go/token"
	"testing"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(pos token.Pos) ast.Range {
	return ast.Range{PosStart: pos, PosEnd: pos + 1}
}

func TestFlowNarrowAndLookup(t *testing.T) {
	db := types.NewDatabase()
	x := Ref{Symbol: 1}
	declared := db.Union(types.String, types.Number)

	entry := NewFlow().Declare(x, declared, true)
	narrowed := entry.Narrow(x, declared, types.String, at(3))

	fact, ok := narrowed.Lookup(x)
	require.True(t, ok)
	assert.Equal(t, Narrowed, fact.State)
	assert.Equal(t, types.String, fact.Type)
	assert.Equal(t, declared, fact.Declared)
	assert.Equal(t, at(3), fact.Provenance)

	fact, _ = entry.Lookup(x)
	assert.Equal(t, declared, fact.Type, "flows are values")

	_, ok = NewFlow().Lookup(x)
	assert.False(t, ok)
	_, ok = Flow{}.Lookup(x)
	assert.False(t, ok)
}

func TestFlowAssignDropsProperties(t *testing.T) {
	db := types.NewDatabase()
	o := Ref{Symbol: 1}
	kind := o.Property("kind")
	deep := kind.Property("tag")
	other := Ref{Symbol: 2, Path: "kind"}

	flow := NewFlow().
		Declare(o, types.NonPrimitive, true).
		Narrow(kind, types.String, db.StringLiteral("a"), at(1)).
		Narrow(deep, types.String, db.StringLiteral("b"), at(2)).
		Narrow(other, types.String, db.StringLiteral("c"), at(3))

	assigned := flow.Assign(o, types.NonPrimitive, types.NonPrimitive, at(4))
	_, ok := assigned.Lookup(kind)
	assert.False(t, ok)
	_, ok = assigned.Lookup(deep)
	assert.False(t, ok)
	_, ok = assigned.Lookup(other)
	assert.True(t, ok, "only properties below the assigned reference are dropped")

	invalid := flow.Invalidate(kind)
	fact, ok := invalid.Lookup(kind)
	require.True(t, ok)
	assert.Equal(t, Invalidated, fact.State)
	assert.Equal(t, types.String, fact.Type)
	_, ok = invalid.Lookup(deep)
	assert.False(t, ok)
}

func TestRefWithin(t *testing.T) {
	o := Ref{Symbol: 1}
	assert.True(t, o.Property("a").Within(o))
	assert.True(t, o.Property("a").Property("b").Within(o.Property("a")))
	assert.False(t, o.Property("ab").Within(o.Property("a")))
	assert.False(t, Ref{Symbol: 2, Path: "a"}.Within(o))
	assert.Equal(t, "#1.a.b", o.Property("a").Property("b").String())
}

func TestJoin(t *testing.T) {
	db := types.NewDatabase()
	x := Ref{Symbol: 1}
	declared := db.Union(types.String, types.Number, types.Null)
	entry := NewFlow().Declare(x, declared, true)

	t.Run("union of the branches", func(t *testing.T) {
		then := entry.Narrow(x, declared, types.String, at(1))
		els := entry.Narrow(x, declared, types.Number, at(2))
		fact, ok := Join(db, then, els).Lookup(x)
		require.True(t, ok)
		assert.Equal(t, WidenedAtJoin, fact.State)
		assert.Equal(t, "string | number", db.Format(fact.Type))
	})

	t.Run("unreachable predecessors contribute nothing", func(t *testing.T) {
		then := entry.Narrow(x, declared, types.String, at(1))
		els := entry.Narrow(x, declared, types.Number, at(2)).MarkUnreachable()
		fact, ok := Join(db, then, els).Lookup(x)
		require.True(t, ok)
		assert.Equal(t, types.String, fact.Type)

		assert.True(t, Join(db, then.MarkUnreachable(), els).Unreachable())
		assert.True(t, Join(db).Unreachable())
	})

	t.Run("untouched references stay declared", func(t *testing.T) {
		fact, ok := Join(db, entry, entry).Lookup(x)
		require.True(t, ok)
		assert.Equal(t, Declared, fact.State)
		assert.Equal(t, declared, fact.Type)
	})

	t.Run("missing facts fall back to declared", func(t *testing.T) {
		p := x.Property("p")
		then := entry.Narrow(p, types.String, db.StringLiteral("a"), at(1))
		_, ok := Join(db, then, entry).Lookup(p)
		assert.False(t, ok)
	})

	t.Run("definite assignment is a conjunction", func(t *testing.T) {
		y := Ref{Symbol: 2}
		unassigned := entry.Declare(y, types.String, false)
		assigned := unassigned.Assign(y, types.String, types.String, at(5))

		fact, _ := Join(db, assigned, unassigned).Lookup(y)
		assert.False(t, fact.Assigned)
		fact, _ = Join(db, assigned, assigned).Lookup(y)
		assert.True(t, fact.Assigned)
		fact, _ = Join(db, assigned, unassigned.MarkUnreachable()).Lookup(y)
		assert.True(t, fact.Assigned)
	})

	t.Run("invalidation wins", func(t *testing.T) {
		then := entry.Narrow(x, declared, types.String, at(1)).Invalidate(x)
		els := entry.Narrow(x, declared, types.String, at(1))
		fact, _ := Join(db, then, els).Lookup(x)
		assert.Equal(t, Invalidated, fact.State)
		assert.Equal(t, declared, fact.Type)
	})
}

func TestLoopNarrowingNotAssumedAtEntry(t *testing.T) {
	db := types.NewDatabase()
	x := Ref{Symbol: 1}
	declared := db.Union(types.String, types.Number)
	entry := NewFlow().Declare(x, declared, true)

	var heads []types.TypeID
	head := Loop(db, entry, func(head Flow) []Flow {
		fact, _ := head.Lookup(x)
		heads = append(heads, fact.Type)
		// the body ends with `x = "s"`
		return []Flow{head.Assign(x, declared, types.String, at(9))}
	})

	require.NotEmpty(t, heads)
	assert.Equal(t, declared, heads[0], "the first iteration sees the entry type")
	fact, _ := head.Lookup(x)
	assert.Equal(t, "string | number", db.Format(fact.Type))
}

func TestLoopNarrowingFromEntrySurvives(t *testing.T) {
	db := types.NewDatabase()
	x := Ref{Symbol: 1}
	declared := db.Union(types.String, types.Number)
	entry := NewFlow().Declare(x, declared, true).Narrow(x, declared, types.String, at(1))

	head := Loop(db, entry, func(head Flow) []Flow {
		return []Flow{head, head.MarkUnreachable()}
	})
	fact, _ := head.Lookup(x)
	assert.Equal(t, types.String, fact.Type)
}

func TestForClosure(t *testing.T) {
	db := types.NewDatabase()
	letX, constY := Ref{Symbol: 1}, Ref{Symbol: 2}
	declared := db.Union(types.String, types.Number)
	flow := NewFlow().
		Declare(letX, declared, true).
		Declare(constY, declared, true).
		Narrow(letX, declared, types.String, at(1)).
		Narrow(constY, declared, types.String, at(2)).
		Narrow(constY.Property("p"), types.String, db.StringLiteral("a"), at(3))

	mutable := func(s ast.SymbolID) bool { return s == letX.Symbol }
	none := func(ast.SymbolID) bool { return false }
	reassignsX := func(s ast.SymbolID) bool { return s == letX.Symbol }

	typeOf := func(f Flow, r Ref) types.TypeID {
		fact, ok := f.Lookup(r)
		if !ok {
			return types.NoType
		}
		return fact.Type
	}

	t.Run("callback", func(t *testing.T) {
		inner := flow.ForClosure(false, none, mutable)
		assert.Equal(t, declared, typeOf(inner, letX), "mutable bindings revert to declared")
		assert.Equal(t, types.String, typeOf(inner, constY), "const bindings keep their narrowing")
		assert.Equal(t, types.NoType, typeOf(inner, constY.Property("p")), "properties may change before the call")
	})

	t.Run("immediately invoked", func(t *testing.T) {
		inner := flow.ForClosure(true, none, mutable)
		assert.Equal(t, types.String, typeOf(inner, letX))
		assert.Equal(t, types.String, typeOf(inner, constY))
		assert.True(t, inner.Equal(flow))
	})

	t.Run("immediately invoked and reassigning", func(t *testing.T) {
		inner := flow.ForClosure(true, reassignsX, mutable)
		assert.Equal(t, declared, typeOf(inner, letX))
		assert.Equal(t, types.String, typeOf(inner, constY))
	})
}

func TestFlowEqual(t *testing.T) {
	db := types.NewDatabase()
	x := Ref{Symbol: 1}
	a := NewFlow().Declare(x, types.String, true)
	b := NewFlow().Declare(x, types.String, true)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.Narrow(x, types.String, db.StringLiteral("s"), at(1))))
	assert.False(t, a.Equal(a.MarkUnreachable()))
	assert.True(t, a.MarkUnreachable().Equal(b.MarkUnreachable()))
	assert.True(t, Flow{}.Equal(NewFlow()))
}
