package types

import (
	"fmt"
	"log/slog"

	"github.com/cottand/tsz/internal/log"
)

type typeParamInfo struct {
	id         TypeID
	name       string
	constraint TypeID
	def        TypeID
}

// Database interns every type of one check run. It is single-owner:
// the Checker that created it is the only one allowed to intern into it.
//
// TypeIDs issued by one Database are meaningless in another.
type Database struct {
	types []Data
	keys  map[string]TypeID

	typeParams []typeParamInfo
	defs       []*Definition

	expansions map[TypeID]TypeID
	apparent   map[TypeID]TypeID

	nextEpisode uint32
	keyBuf      []byte

	logger *slog.Logger
}

func NewDatabase() *Database {
	db := &Database{}
	db.Clear()
	return db
}

// Clear drops every interned type and definition. TypeIDs issued before
// Clear must not be used afterward, except for the intrinsic ones.
func (db *Database) Clear() {
	db.types = make([]Data, 0, 256)
	db.keys = make(map[string]TypeID, 256)
	db.typeParams = db.typeParams[:0]
	db.defs = db.defs[:0]
	db.expansions = make(map[TypeID]TypeID)
	db.apparent = make(map[TypeID]TypeID)
	db.nextEpisode = 0
	db.logger = log.DefaultLogger.With("section", "types")
	db.registerIntrinsics()
}

var intrinsicNames = [...]string{
	Error:        "error",
	Never:        "never",
	Unknown:      "unknown",
	Any:          "any",
	Void:         "void",
	Undefined:    "undefined",
	Null:         "null",
	Boolean:      "boolean",
	Number:       "number",
	String:       "string",
	BigInt:       "bigint",
	Symbol:       "symbol",
	NonPrimitive: "object",
	Function:     "Function",
}

func (db *Database) registerIntrinsics() {
	for id := NoType; id < firstUserType; id++ {
		var data Data
		switch id {
		case NoType:
			// occupies slot zero so that ids line up; never looked up
			db.types = append(db.types, nil)
			continue
		case True:
			data = Literal{LitKind: LitBoolean, Value: "true", Base: Boolean}
		case False:
			data = Literal{LitKind: LitBoolean, Value: "false", Base: Boolean}
		default:
			data = Intrinsic{Name: intrinsicNames[id]}
		}
		got := db.insert(data)
		if got != id {
			panic(fmt.Sprintf("intrinsic %v registered at %d", data, got))
		}
	}
}

// Intern returns the TypeID of data, allocating one if no structurally
// identical type was interned before. Malformed descriptors panic.
//
// Unions and intersections must go through Union and Intersection, which
// normalise; Intern only accepts them already normalised.
func (db *Database) Intern(data Data) TypeID {
	db.validate(data)
	return db.insert(data)
}

func (db *Database) insert(data Data) TypeID {
	db.keyBuf = data.appendKey(db.keyBuf[:0])
	if id, ok := db.keys[string(db.keyBuf)]; ok {
		return id
	}
	id := TypeID(len(db.types))
	db.types = append(db.types, data)
	db.keys[string(db.keyBuf)] = id
	return id
}

// Lookup returns the descriptor of t. It panics for ids this Database never issued.
func (db *Database) Lookup(t TypeID) Data {
	if t == NoType || int(t) >= len(db.types) {
		panic(fmt.Sprintf("lookup of type id %d not issued by this database", t))
	}
	return db.types[t]
}

// Len is the number of interned types, intrinsics included
func (db *Database) Len() int {
	return len(db.types) - 1
}

func unexpectedData(data Data) string {
	return fmt.Sprintf("unexpected type descriptor %T", data)
}

func (db *Database) checkID(t TypeID, what string) {
	if t == NoType || int(t) >= len(db.types) {
		panic(fmt.Sprintf("malformed type: %s refers to type id %d", what, t))
	}
}

func (db *Database) checkOptionalID(t TypeID, what string) {
	if t != NoType {
		db.checkID(t, what)
	}
}

func (db *Database) validate(data Data) {
	switch data := data.(type) {
	case Intrinsic:
		panic("intrinsic types are pre-registered and cannot be interned")
	case Literal:
		switch data.LitKind {
		case LitString:
			db.checkBase(data, String)
		case LitNumber:
			db.checkBase(data, Number)
		case LitBigInt:
			db.checkBase(data, BigInt)
		case LitBoolean:
			db.checkBase(data, Boolean)
		case LitEnum:
			if data.Base != Number && data.Base != String {
				panic(fmt.Sprintf("malformed enum literal %s.%s: backed by %d", data.Enum, data.Value, data.Base))
			}
		default:
			panic(fmt.Sprintf("malformed literal kind %d", data.LitKind))
		}
	case Union:
		db.validateUnion(data)
	case Intersection:
		if len(data.Members) < 2 {
			panic("malformed intersection: fewer than two members")
		}
		for _, m := range data.Members {
			db.checkID(m, "intersection member")
			if _, nested := db.types[m].(Intersection); nested {
				panic("malformed intersection: nested intersection member")
			}
		}
	case Object:
		seen := make(map[string]struct{}, len(data.Properties))
		for _, p := range data.Properties {
			db.checkID(p.Type, "property "+p.Name)
			if _, dup := seen[p.Name]; dup {
				panic(fmt.Sprintf("malformed object: duplicate property %q", p.Name))
			}
			seen[p.Name] = struct{}{}
		}
		db.checkOptionalID(data.StringIndex, "string index signature")
		db.checkOptionalID(data.NumberIndex, "number index signature")
	case Func:
		if len(data.Signatures) == 0 {
			panic("malformed function: no signatures")
		}
		for _, sig := range data.Signatures {
			db.validateSignature(sig)
		}
	case Tuple:
		rests := 0
		for i, e := range data.Elements {
			db.checkID(e.Type, fmt.Sprintf("tuple element %d", i))
			if e.Rest {
				rests++
				if e.Optional {
					panic("malformed tuple: optional rest element")
				}
			}
		}
		if rests > 1 {
			panic("malformed tuple: more than one rest element")
		}
	case Array:
		db.checkID(data.Elem, "array element")
	case Mapped:
		db.checkID(data.Param, "mapped type parameter")
		if _, ok := db.types[data.Param].(TypeParam); !ok {
			panic("malformed mapped type: parameter is not a type parameter")
		}
		db.checkID(data.Constraint, "mapped constraint")
		db.checkID(data.Template, "mapped template")
	case Application:
		if int(data.Def) >= len(db.defs) {
			panic(fmt.Sprintf("malformed application: unknown definition %d", data.Def))
		}
		if want := len(db.defs[data.Def].Params); want != len(data.Args) {
			panic(fmt.Sprintf("malformed application of %s: %d arguments for %d parameters", db.defs[data.Def].Name, len(data.Args), want))
		}
		for _, arg := range data.Args {
			db.checkID(arg, "type argument")
		}
	case TypeParam:
		if int(data.ID) >= len(db.typeParams) {
			panic(fmt.Sprintf("malformed type parameter %s: id %d was not allocated", data.Name, data.ID))
		}
	case InferVar:
		if data.Episode == 0 || data.Episode > db.nextEpisode {
			panic(fmt.Sprintf("malformed inference variable %s: episode %d was not allocated", data.Name, data.Episode))
		}
	case KeyOf:
		db.checkID(data.Target, "keyof target")
	case IndexedAccess:
		db.checkID(data.Object, "indexed access object")
		db.checkID(data.Index, "indexed access index")
	default:
		panic(unexpectedData(data))
	}
}

func (db *Database) checkBase(l Literal, want TypeID) {
	if l.Base != want {
		panic(fmt.Sprintf("malformed literal %q: backed by %d, want %d", l.Value, l.Base, want))
	}
}

func (db *Database) validateUnion(u Union) {
	if len(u.Members) < 2 {
		panic("non-normalised union: fewer than two members")
	}
	seen := make(map[TypeID]struct{}, len(u.Members))
	for _, m := range u.Members {
		db.checkID(m, "union member")
		if m == Never {
			panic("non-normalised union: contains never")
		}
		if _, nested := db.types[m].(Union); nested {
			panic("non-normalised union: nested union member")
		}
		if _, dup := seen[m]; dup {
			panic("non-normalised union: duplicate member")
		}
		seen[m] = struct{}{}
	}
}

func (db *Database) validateSignature(sig Signature) {
	for _, tp := range sig.TypeParams {
		db.checkID(tp, "signature type parameter")
		if _, ok := db.types[tp].(TypeParam); !ok {
			panic("malformed signature: type parameter list holds a non-parameter type")
		}
	}
	for i, p := range sig.Params {
		db.checkID(p.Type, "parameter "+p.Name)
		if p.Rest && i != len(sig.Params)-1 {
			panic(fmt.Sprintf("malformed signature: rest parameter %s is not last", p.Name))
		}
		if p.Rest && p.Optional {
			panic(fmt.Sprintf("malformed signature: rest parameter %s is optional", p.Name))
		}
	}
	db.checkID(sig.Return, "return type")
	if pred := sig.Predicate; pred != nil {
		if pred.ParamIndex < 0 || pred.ParamIndex >= len(sig.Params) {
			panic(fmt.Sprintf("malformed predicate: parameter index %d out of range", pred.ParamIndex))
		}
		db.checkOptionalID(pred.Type, "predicate type")
		if pred.Type == NoType && !pred.Asserts {
			panic("malformed predicate: only assertion predicates may omit the type")
		}
	}
}

// NewTypeParam declares a type parameter. Every call yields a distinct type,
// even for equal names.
func (db *Database) NewTypeParam(name string) TypeID {
	idx := uint32(len(db.typeParams))
	db.typeParams = append(db.typeParams, typeParamInfo{name: name})
	id := db.insert(TypeParam{ID: idx, Name: name})
	db.typeParams[idx].id = id
	return id
}

func (db *Database) typeParamInfo(t TypeID) *typeParamInfo {
	tp, ok := db.Lookup(t).(TypeParam)
	if !ok {
		panic(fmt.Sprintf("type %d is not a type parameter", t))
	}
	return &db.typeParams[tp.ID]
}

// SetConstraint records the `extends` clause of a type parameter.
// It is set after NewTypeParam so that constraints may mention the parameter itself.
func (db *Database) SetConstraint(param, constraint TypeID) {
	db.checkOptionalID(constraint, "type parameter constraint")
	db.typeParamInfo(param).constraint = constraint
}

func (db *Database) SetDefault(param, def TypeID) {
	db.checkOptionalID(def, "type parameter default")
	db.typeParamInfo(param).def = def
}

// Constraint is the declared constraint of param, or NoType
func (db *Database) Constraint(param TypeID) TypeID {
	return db.typeParamInfo(param).constraint
}

// Default is the declared default of param, or NoType
func (db *Database) Default(param TypeID) TypeID {
	return db.typeParamInfo(param).def
}

// CloneTypeParams declares fresh type parameters mirroring params, with
// constraints and defaults rewritten to refer to the clones.
// The returned map sends each original to its clone.
func (db *Database) CloneTypeParams(params []TypeID) ([]TypeID, map[TypeID]TypeID) {
	clones := make([]TypeID, len(params))
	mapping := make(map[TypeID]TypeID, len(params))
	for i, p := range params {
		clones[i] = db.NewTypeParam(db.typeParamInfo(p).name)
		mapping[p] = clones[i]
	}
	for i, p := range params {
		info := *db.typeParamInfo(p)
		if info.constraint != NoType {
			db.SetConstraint(clones[i], db.Substitute(info.constraint, mapping))
		}
		if info.def != NoType {
			db.SetDefault(clones[i], db.Substitute(info.def, mapping))
		}
	}
	return clones, mapping
}

// NewEpisode allocates the identifier of a new inference episode.
// Episode zero is never issued.
func (db *Database) NewEpisode() uint32 {
	db.nextEpisode++
	return db.nextEpisode
}

// NewInferVar interns the inference variable for the index-th type parameter of episode
func (db *Database) NewInferVar(episode uint32, index int, name string) TypeID {
	return db.Intern(InferVar{Episode: episode, Index: uint32(index), Name: name})
}

// Literal constructors

func (db *Database) StringLiteral(s string) TypeID {
	return db.insert(Literal{LitKind: LitString, Value: s, Base: String})
}

func (db *Database) NumberLiteral(v float64) TypeID {
	return db.insert(Literal{LitKind: LitNumber, Value: formatNumber(v), Base: Number})
}

// BigIntLiteral takes the decimal digits of the literal, without the trailing n
func (db *Database) BigIntLiteral(digits string) TypeID {
	return db.insert(Literal{LitKind: LitBigInt, Value: digits, Base: BigInt})
}

func (db *Database) BooleanLiteral(v bool) TypeID {
	if v {
		return True
	}
	return False
}

func (db *Database) EnumLiteral(enum, member string, base TypeID) TypeID {
	return db.Intern(Literal{LitKind: LitEnum, Value: member, Enum: enum, Base: base})
}

func (db *Database) ArrayOf(elem TypeID) TypeID {
	return db.Intern(Array{Elem: elem})
}

func (db *Database) FuncOf(sig Signature, overloads ...Signature) TypeID {
	return db.Intern(Func{Signatures: append([]Signature{sig}, overloads...)})
}

func (db *Database) ObjectOf(props ...Property) TypeID {
	return db.Intern(Object{Properties: props})
}

func (db *Database) TupleOf(elems ...TypeID) TypeID {
	tuple := Tuple{Elements: make([]TupleElement, len(elems))}
	for i, e := range elems {
		tuple.Elements[i] = TupleElement{Type: e}
	}
	return db.Intern(tuple)
}
