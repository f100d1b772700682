package types

import (
	"encoding/binary"
	"slices"
)

// Kind is the tag of a Data variant
type Kind uint8

const (
	KindIntrinsic Kind = iota
	KindLiteral
	KindUnion
	KindIntersection
	KindObject
	KindFunction
	KindTuple
	KindArray
	KindMapped
	KindApplication
	KindTypeParam
	KindInferVar
	KindKeyOf
	KindIndexedAccess
)

var kindNames = [...]string{
	KindIntrinsic:     "intrinsic",
	KindLiteral:       "literal",
	KindUnion:         "union",
	KindIntersection:  "intersection",
	KindObject:        "object",
	KindFunction:      "function",
	KindTuple:         "tuple",
	KindArray:         "array",
	KindMapped:        "mapped",
	KindApplication:   "application",
	KindTypeParam:     "type parameter",
	KindInferVar:      "inference variable",
	KindKeyOf:         "keyof",
	KindIndexedAccess: "indexed access",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Data is the descriptor of a type. The set of implementations is closed:
// every consumer switches exhaustively over the structs in this file.
type Data interface {
	Kind() Kind
	// appendKey writes the canonical key used for hash-consing
	appendKey(b []byte) []byte
}

var (
	_ Data = Intrinsic{}
	_ Data = Literal{}
	_ Data = Union{}
	_ Data = Intersection{}
	_ Data = Object{}
	_ Data = Func{}
	_ Data = Tuple{}
	_ Data = Array{}
	_ Data = Mapped{}
	_ Data = Application{}
	_ Data = TypeParam{}
	_ Data = InferVar{}
	_ Data = KeyOf{}
	_ Data = IndexedAccess{}
)

type Intrinsic struct {
	Name string
}

type LiteralKind uint8

const (
	LitString LiteralKind = iota
	LitNumber
	LitBigInt
	LitBoolean
	LitEnum
)

// Literal is a unit type backed by a primitive. Value holds the canonical
// textual form: unquoted for strings, shortest float form for numbers,
// digits without the `n` suffix for bigints and "true"/"false" for booleans.
// Enum literals carry the enum and member name and are backed by Number or String.
type Literal struct {
	LitKind LiteralKind
	Value   string
	Enum    string
	Base    TypeID
}

// Union members are normalised by Database.Union; never build one directly
type Union struct {
	Members []TypeID
}

type Intersection struct {
	Members []TypeID
}

type Property struct {
	Name     string
	Type     TypeID
	Optional bool
	Readonly bool
	// Method properties are compared bivariantly
	Method bool
}

// Object is a structural object shape. Properties keep declaration order;
// identity does not depend on that order.
type Object struct {
	Properties  []Property
	StringIndex TypeID
	NumberIndex TypeID
}

type Param struct {
	Name     string
	Type     TypeID
	Optional bool
	Rest     bool
}

// Predicate is a type predicate return annotation, `x is T`, `asserts x is T` or `asserts x`.
// Type is NoType for the bare `asserts x` form.
type Predicate struct {
	ParamIndex int
	ParamName  string
	Type       TypeID
	Asserts    bool
}

type Signature struct {
	TypeParams []TypeID
	Params     []Param
	Return     TypeID
	Predicate  *Predicate
}

// Func is a function shape. Signatures[0] is the primary signature,
// any further entries are overloads in declaration order.
type Func struct {
	Signatures []Signature
}

type TupleElement struct {
	// Type of the element. For rest elements this is the array (or tuple) type being spread.
	Type     TypeID
	Optional bool
	Rest     bool
	Label    string
}

type Tuple struct {
	Elements []TupleElement
}

type Array struct {
	Elem     TypeID
	Readonly bool
}

type Modifier uint8

const (
	ModNone Modifier = iota
	ModAdd
	ModRemove
)

// Mapped is `{ [Param in Constraint]: Template }`. Param is a TypeParam.
type Mapped struct {
	Param      TypeID
	Constraint TypeID
	Template   TypeID
	Readonly   Modifier
	Optional   Modifier
}

// Application is a reference to a named definition with type arguments.
// Non-generic aliases and interfaces are applications with no arguments.
type Application struct {
	Def  DefID
	Args []TypeID
}

// TypeParam is a declared type parameter. ID is unique per declaration;
// its constraint and default live in the Database.
type TypeParam struct {
	ID   uint32
	Name string
}

// InferVar is a per-call-site placeholder for a type parameter, owned by one inference episode
type InferVar struct {
	Episode uint32
	Index   uint32
	Name    string
}

type KeyOf struct {
	Target TypeID
}

type IndexedAccess struct {
	Object TypeID
	Index  TypeID
}

func (Intrinsic) Kind() Kind     { return KindIntrinsic }
func (Literal) Kind() Kind       { return KindLiteral }
func (Union) Kind() Kind         { return KindUnion }
func (Intersection) Kind() Kind  { return KindIntersection }
func (Object) Kind() Kind        { return KindObject }
func (Func) Kind() Kind          { return KindFunction }
func (Tuple) Kind() Kind         { return KindTuple }
func (Array) Kind() Kind         { return KindArray }
func (Mapped) Kind() Kind        { return KindMapped }
func (Application) Kind() Kind   { return KindApplication }
func (TypeParam) Kind() Kind     { return KindTypeParam }
func (InferVar) Kind() Kind      { return KindInferVar }
func (KeyOf) Kind() Kind         { return KindKeyOf }
func (IndexedAccess) Kind() Kind { return KindIndexedAccess }

func appendID(b []byte, id TypeID) []byte {
	return binary.AppendUvarint(b, uint64(id))
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendSortedIDs(b []byte, ids []TypeID) []byte {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	b = binary.AppendUvarint(b, uint64(len(sorted)))
	for _, id := range sorted {
		b = appendID(b, id)
	}
	return b
}

func (t Intrinsic) appendKey(b []byte) []byte {
	return appendString(append(b, byte(KindIntrinsic)), t.Name)
}

func (t Literal) appendKey(b []byte) []byte {
	b = append(b, byte(KindLiteral), byte(t.LitKind))
	b = appendString(b, t.Value)
	b = appendString(b, t.Enum)
	return appendID(b, t.Base)
}

func (t Union) appendKey(b []byte) []byte {
	return appendSortedIDs(append(b, byte(KindUnion)), t.Members)
}

func (t Intersection) appendKey(b []byte) []byte {
	return appendSortedIDs(append(b, byte(KindIntersection)), t.Members)
}

func (t Object) appendKey(b []byte) []byte {
	b = append(b, byte(KindObject))
	props := slices.Clone(t.Properties)
	slices.SortFunc(props, func(a, b Property) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	b = binary.AppendUvarint(b, uint64(len(props)))
	for _, p := range props {
		b = appendString(b, p.Name)
		b = appendID(b, p.Type)
		b = appendBool(b, p.Optional)
		b = appendBool(b, p.Readonly)
		b = appendBool(b, p.Method)
	}
	b = appendID(b, t.StringIndex)
	return appendID(b, t.NumberIndex)
}

func (s Signature) appendKey(b []byte) []byte {
	b = binary.AppendUvarint(b, uint64(len(s.TypeParams)))
	for _, tp := range s.TypeParams {
		b = appendID(b, tp)
	}
	b = binary.AppendUvarint(b, uint64(len(s.Params)))
	for _, p := range s.Params {
		b = appendString(b, p.Name)
		b = appendID(b, p.Type)
		b = appendBool(b, p.Optional)
		b = appendBool(b, p.Rest)
	}
	b = appendID(b, s.Return)
	if s.Predicate == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	b = binary.AppendVarint(b, int64(s.Predicate.ParamIndex))
	b = appendString(b, s.Predicate.ParamName)
	b = appendID(b, s.Predicate.Type)
	return appendBool(b, s.Predicate.Asserts)
}

func (t Func) appendKey(b []byte) []byte {
	b = append(b, byte(KindFunction))
	b = binary.AppendUvarint(b, uint64(len(t.Signatures)))
	for _, sig := range t.Signatures {
		b = sig.appendKey(b)
	}
	return b
}

func (t Tuple) appendKey(b []byte) []byte {
	b = append(b, byte(KindTuple))
	b = binary.AppendUvarint(b, uint64(len(t.Elements)))
	for _, e := range t.Elements {
		b = appendID(b, e.Type)
		b = appendBool(b, e.Optional)
		b = appendBool(b, e.Rest)
		b = appendString(b, e.Label)
	}
	return b
}

func (t Array) appendKey(b []byte) []byte {
	return appendBool(appendID(append(b, byte(KindArray)), t.Elem), t.Readonly)
}

func (t Mapped) appendKey(b []byte) []byte {
	b = append(b, byte(KindMapped))
	b = appendID(b, t.Param)
	b = appendID(b, t.Constraint)
	b = appendID(b, t.Template)
	return append(b, byte(t.Readonly), byte(t.Optional))
}

func (t Application) appendKey(b []byte) []byte {
	b = binary.AppendUvarint(append(b, byte(KindApplication)), uint64(t.Def))
	b = binary.AppendUvarint(b, uint64(len(t.Args)))
	for _, arg := range t.Args {
		b = appendID(b, arg)
	}
	return b
}

func (t TypeParam) appendKey(b []byte) []byte {
	return binary.AppendUvarint(append(b, byte(KindTypeParam)), uint64(t.ID))
}

func (t InferVar) appendKey(b []byte) []byte {
	b = binary.AppendUvarint(append(b, byte(KindInferVar)), uint64(t.Episode))
	return binary.AppendUvarint(b, uint64(t.Index))
}

func (t KeyOf) appendKey(b []byte) []byte {
	return appendID(append(b, byte(KindKeyOf)), t.Target)
}

func (t IndexedAccess) appendKey(b []byte) []byte {
	return appendID(appendID(append(b, byte(KindIndexedAccess)), t.Object), t.Index)
}
