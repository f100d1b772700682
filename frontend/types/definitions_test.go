package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveDefinition(t *testing.T) {
	db := NewDatabase()
	tree := db.DeclareDef("Tree", nil, true)
	ref := db.Reference(tree)
	body := db.ObjectOf(Property{Name: "children", Type: db.ArrayOf(ref)})
	db.DefineDef(tree, body)

	assert.Equal(t, body, db.Expand(ref))
	assert.Equal(t, "Tree", db.Format(ref))
	assert.Equal(t, "{ children: Tree[]; }", db.Format(db.Expand(ref)))
	assert.Panics(t, func() { db.DefineDef(tree, body) })
}

func TestExpandBeforeDefinePanics(t *testing.T) {
	db := NewDatabase()
	later := db.DeclareDef("Later", nil, false)
	ref := db.Reference(later)
	assert.Panics(t, func() { db.Expand(ref) })
}

func TestGenericDefinition(t *testing.T) {
	db := NewDatabase()
	T := db.NewTypeParam("T")
	list := db.DeclareDef("List", []TypeID{T}, false)
	db.DefineDef(list, db.ObjectOf(
		Property{Name: "head", Type: T},
		Property{Name: "tail", Type: db.Union(db.Reference(list, T), Null)},
	))

	strings := db.Reference(list, String)
	assert.Equal(t, "List<string>", db.Format(strings))
	assert.Equal(t, "{ head: string; tail: List<string> | null; }", db.Format(db.Expand(strings)))

	p, ok := db.Property(strings, "head")
	require.True(t, ok)
	assert.Equal(t, String, p.Type)

	assert.Equal(t, []Variance{VarianceCovariant}, db.Variances(list))
}

func TestReferenceFillsDefaults(t *testing.T) {
	db := NewDatabase()
	T := db.NewTypeParam("T")
	U := db.NewTypeParam("U")
	db.SetDefault(U, db.ArrayOf(T))
	pair := db.DeclareDef("Pair", []TypeID{T, U}, false)
	db.DefineDef(pair, db.TupleOf(T, U))

	ref := db.Reference(pair, String)
	assert.Equal(t, "Pair<string, string[]>", db.Format(ref))
	assert.Panics(t, func() { db.Reference(pair) })
}

func TestVarianceMeasurement(t *testing.T) {
	db := NewDatabase()
	define := func(name string, body func(T TypeID) TypeID) DefID {
		T := db.NewTypeParam("T")
		id := db.DeclareDef(name, []TypeID{T}, false)
		db.DefineDef(id, body(T))
		return id
	}
	box := define("Box", func(T TypeID) TypeID {
		return db.ObjectOf(Property{Name: "value", Type: T})
	})
	sink := define("Sink", func(T TypeID) TypeID {
		return db.FuncOf(Signature{Params: []Param{{Name: "x", Type: T}}, Return: Void})
	})
	cell := define("Cell", func(T TypeID) TypeID {
		return db.ObjectOf(
			Property{Name: "value", Type: T},
			Property{Name: "set", Type: db.FuncOf(Signature{Params: []Param{{Name: "x", Type: T}}, Return: Void})},
		)
	})
	phantom := define("Phantom", func(T TypeID) TypeID {
		return db.ObjectOf()
	})
	boxedSink := define("BoxedSink", func(T TypeID) TypeID {
		return db.Reference(box, db.Reference(sink, T))
	})
	keys := define("Keys", func(T TypeID) TypeID {
		return db.KeyOf(T)
	})
	method := define("WithMethod", func(T TypeID) TypeID {
		return db.ObjectOf(Property{
			Name:   "accept",
			Type:   db.FuncOf(Signature{Params: []Param{{Name: "x", Type: T}}, Return: Void}),
			Method: true,
		})
	})

	tests := []struct {
		def  DefID
		want Variance
	}{
		{box, VarianceCovariant},
		{sink, VarianceContravariant},
		{cell, VarianceInvariant},
		{phantom, VarianceBivariant},
		{boxedSink, VarianceContravariant},
		{keys, Variance{Unmeasurable: true}},
		{method, Variance{Covariant: true, Unmeasurable: true}},
	}
	for _, test := range tests {
		def := db.Def(test.def)
		t.Run(def.Name, func(t *testing.T) {
			assert.Equal(t, []Variance{test.want}, db.Variances(test.def))
		})
	}
}
