package ast

// Type annotation nodes. Names in TypeRef are resolved by the checker
// against the type aliases, interfaces and type parameters in scope.

var (
	_ Type = (*KeywordType)(nil)
	_ Type = (*LiteralType)(nil)
	_ Type = (*TypeRef)(nil)
	_ Type = (*UnionType)(nil)
	_ Type = (*IntersectionType)(nil)
	_ Type = (*ArrayType)(nil)
	_ Type = (*TupleType)(nil)
	_ Type = (*ObjectType)(nil)
	_ Type = (*FuncType)(nil)
	_ Type = (*KeyOfType)(nil)
	_ Type = (*IndexedAccessType)(nil)
	_ Type = (*MappedType)(nil)
)

// KeywordType is one of string, number, boolean, bigint, symbol, object,
// any, unknown, never, void, null or undefined
type KeywordType struct {
	Range
	Name string
}

type LiteralType struct {
	Range
	Lit *Lit
}

type TypeRef struct {
	Range
	Name string
	Args []Type
}

type UnionType struct {
	Range
	Types []Type
}

type IntersectionType struct {
	Range
	Types []Type
}

type ArrayType struct {
	Range
	Elem     Type
	Readonly bool
}

type TupleElement struct {
	Range
	Type     Type
	Optional bool
	Rest     bool
	Label    string
}

type TupleType struct {
	Range
	Elements []TupleElement
}

type PropertySig struct {
	Range
	Name     string
	Type     Type
	Optional bool
	Readonly bool
	// Method signatures are written `m(x: T): R`; Type is then a *FuncType
	Method bool
}

type IndexSig struct {
	Range
	// KeyType is "string" or "number"
	KeyType string
	Value   Type
}

// ObjectType is an object type literal or interface body. Call signatures make
// it a callable (possibly overloaded) type.
type ObjectType struct {
	Range
	Properties []PropertySig
	Indexes    []IndexSig
	Calls      []*FuncType
}

type TypeParam struct {
	Range
	Name       string
	Constraint Type
	Default    Type
}

type Param struct {
	Range
	Name string
	// Type is nil when the parameter has no annotation
	Type     Type
	Optional bool
	Rest     bool
	Symbol   *Symbol
}

// Predicate is a `x is T`, `asserts x is T` or `asserts x` return annotation
type Predicate struct {
	Range
	Param   string
	Type    Type
	Asserts bool
}

type FuncType struct {
	Range
	TypeParams []TypeParam
	Params     []Param
	Return     Type
	Predicate  *Predicate
}

type KeyOfType struct {
	Range
	Target Type
}

type IndexedAccessType struct {
	Range
	Object Type
	Index  Type
}

// Modifier is a mapped type modifier: "", "+" or "-"
type Modifier string

type MappedType struct {
	Range
	Param      string
	Constraint Type
	Template   Type
	Readonly   Modifier
	Optional   Modifier
}

func (*KeywordType) typeNode()       {}
func (*LiteralType) typeNode()       {}
func (*TypeRef) typeNode()           {}
func (*UnionType) typeNode()         {}
func (*IntersectionType) typeNode()  {}
func (*ArrayType) typeNode()         {}
func (*TupleType) typeNode()         {}
func (*ObjectType) typeNode()        {}
func (*FuncType) typeNode()          {}
func (*KeyOfType) typeNode()         {}
func (*IndexedAccessType) typeNode() {}
func (*MappedType) typeNode()        {}
