package types

import (
	"slices"
	"strconv"
)

// KeyOf builds `keyof target`, reducing it to a union of key types when
// target is concrete enough to enumerate its keys.
func (db *Database) KeyOf(target TypeID) TypeID {
	switch target {
	case Any, Never:
		return db.Union(String, Number, Symbol)
	case Unknown, NonPrimitive, Function, Void, Null, Undefined:
		return Never
	case Error:
		return Error
	}
	switch data := db.Lookup(target).(type) {
	case Object:
		keys := make([]TypeID, 0, len(data.Properties)+2)
		for _, p := range data.Properties {
			keys = append(keys, db.StringLiteral(p.Name))
		}
		if data.StringIndex != NoType {
			keys = append(keys, String, Number)
		}
		if data.NumberIndex != NoType {
			keys = append(keys, Number)
		}
		return db.Union(keys...)
	case Func:
		return Never
	case Array:
		return Number
	case Tuple:
		keys := []TypeID{Number}
		for i, e := range data.Elements {
			if e.Rest {
				break
			}
			keys = append(keys, db.StringLiteral(strconv.Itoa(i)))
		}
		return db.Union(keys...)
	case Union:
		keys := make([]TypeID, len(data.Members))
		for i, m := range data.Members {
			keys[i] = db.KeyOf(m)
		}
		return db.Intersection(keys...)
	case Intersection:
		keys := make([]TypeID, len(data.Members))
		for i, m := range data.Members {
			keys[i] = db.KeyOf(m)
		}
		return db.Union(keys...)
	case Application:
		return db.KeyOf(db.Expand(target))
	case Mapped:
		return data.Constraint
	case Intrinsic, Literal:
		return db.KeyOf(db.Apparent(target))
	case TypeParam, InferVar, KeyOf, IndexedAccess:
		return db.Intern(KeyOf{Target: target})
	default:
		panic(unexpectedData(data))
	}
}

func (db *Database) isDeferred(t TypeID) bool {
	switch db.Lookup(t).(type) {
	case TypeParam, InferVar, KeyOf, IndexedAccess:
		return true
	}
	return false
}

// IndexedAccess builds `object[index]`, resolving it when both sides are concrete.
// Accessing a key the object does not have yields Error.
func (db *Database) IndexedAccess(object, index TypeID) TypeID {
	switch {
	case object == Error || index == Error:
		return Error
	case object == Any:
		return Any
	case db.isDeferred(index) || db.isDeferred(object):
		if m, ok := db.Lookup(object).(Mapped); ok {
			return db.Substitute(m.Template, map[TypeID]TypeID{m.Param: index})
		}
		return db.Intern(IndexedAccess{Object: object, Index: index})
	}
	if u, ok := db.Lookup(index).(Union); ok {
		results := make([]TypeID, len(u.Members))
		for i, m := range u.Members {
			results[i] = db.IndexedAccess(object, m)
		}
		return db.Union(results...)
	}

	switch data := db.Lookup(object).(type) {
	case Union:
		results := make([]TypeID, len(data.Members))
		for i, m := range data.Members {
			results[i] = db.IndexedAccess(m, index)
		}
		return db.Union(results...)
	case Object, Intersection:
		return db.indexObject(object, index)
	case Array:
		if index == Number || db.isNumericKey(index) {
			return data.Elem
		}
		return db.indexObject(db.Apparent(object), index)
	case Tuple:
		return db.indexTuple(object, data, index)
	case Application:
		return db.IndexedAccess(db.Expand(object), index)
	case Mapped:
		return db.Substitute(data.Template, map[TypeID]TypeID{data.Param: index})
	case Intrinsic, Literal, Func:
		apparent := db.Apparent(object)
		if apparent == object {
			return Error
		}
		return db.IndexedAccess(apparent, index)
	default:
		return Error
	}
}

func (db *Database) isNumericKey(t TypeID) bool {
	lit, ok := db.Lookup(t).(Literal)
	if !ok {
		return false
	}
	if lit.LitKind == LitNumber {
		return true
	}
	if lit.LitKind == LitString {
		_, err := strconv.Atoi(lit.Value)
		return err == nil
	}
	return false
}

func (db *Database) indexObject(object, index TypeID) TypeID {
	var indexSig TypeID
	if obj, ok := db.Lookup(object).(Object); ok {
		indexSig = obj.StringIndex
		if (index == Number || db.isNumericKey(index)) && obj.NumberIndex != NoType {
			indexSig = obj.NumberIndex
		}
	}
	if lit, ok := db.Lookup(index).(Literal); ok && (lit.LitKind == LitString || lit.LitKind == LitNumber) {
		if p, ok := db.Property(object, lit.Value); ok {
			if p.Optional {
				return db.Union(p.Type, Undefined)
			}
			return p.Type
		}
	}
	if indexSig != NoType && (index == String || index == Number || db.IsLiteral(index)) {
		return indexSig
	}
	return Error
}

func (db *Database) indexTuple(object TypeID, tuple Tuple, index TypeID) TypeID {
	if index == Number {
		types := make([]TypeID, len(tuple.Elements))
		for i, e := range tuple.Elements {
			types[i] = db.tupleElementType(e)
		}
		return db.Union(types...)
	}
	if db.isNumericKey(index) {
		n, err := strconv.Atoi(db.Lookup(index).(Literal).Value)
		if err != nil || n < 0 {
			return Error
		}
		for i, e := range tuple.Elements {
			if e.Rest {
				return db.tupleElementType(e)
			}
			if i == n {
				if e.Optional {
					return db.Union(e.Type, Undefined)
				}
				return e.Type
			}
		}
		return Error
	}
	return db.indexObject(db.Apparent(object), index)
}

// tupleElementType is the type of one value at e: the element type of a rest element's array
func (db *Database) tupleElementType(e TupleElement) TypeID {
	if !e.Rest {
		return e.Type
	}
	switch data := db.Lookup(e.Type).(type) {
	case Array:
		return data.Elem
	case Tuple:
		return db.IndexedAccess(e.Type, Number)
	}
	return Any
}

// MappedType builds `{ [P in Constraint]: Template }`, reducing it to an object
// shape when the constraint is a concrete union of keys
func (db *Database) MappedType(m Mapped) TypeID {
	if k, ok := db.Lookup(m.Constraint).(KeyOf); ok {
		return db.homomorphicMapped(m, k.Target)
	}
	keys := db.UnionMembers(m.Constraint)
	for _, k := range keys {
		if k == String || k == Number || k == Symbol {
			continue
		}
		lit, ok := db.Lookup(k).(Literal)
		if !ok || (lit.LitKind != LitString && lit.LitKind != LitNumber) {
			return db.Intern(m)
		}
	}
	obj := Object{}
	for _, k := range keys {
		value := db.Substitute(m.Template, map[TypeID]TypeID{m.Param: k})
		switch k {
		case String:
			obj.StringIndex = value
		case Number:
			obj.NumberIndex = value
		case Symbol:
		default:
			obj.Properties = append(obj.Properties, Property{
				Name:     db.Lookup(k).(Literal).Value,
				Type:     value,
				Optional: m.Optional == ModAdd,
				Readonly: m.Readonly == ModAdd,
			})
		}
	}
	return db.Intern(obj)
}

func (mod Modifier) apply(declared bool) bool {
	switch mod {
	case ModAdd:
		return true
	case ModRemove:
		return false
	}
	return declared
}

// homomorphicMapped builds `{ [P in keyof source]: Template }`, preserving the
// modifiers of source's properties and its array or tuple shape
func (db *Database) homomorphicMapped(m Mapped, source TypeID) TypeID {
	at := func(key TypeID) TypeID {
		return db.Substitute(m.Template, map[TypeID]TypeID{m.Param: key})
	}
	switch source {
	case Any:
		m.Constraint = db.KeyOf(Any)
		return db.MappedType(m)
	case Error:
		return Error
	case Never:
		return Never
	}
	switch data := db.Lookup(source).(type) {
	case Intrinsic, Literal:
		return source
	case Union:
		results := make([]TypeID, len(data.Members))
		for i, member := range data.Members {
			results[i] = db.homomorphicMapped(m, member)
		}
		return db.Union(results...)
	case Application:
		return db.homomorphicMapped(m, db.Expand(source))
	case Array:
		return db.Intern(Array{Elem: at(Number), Readonly: m.Readonly.apply(data.Readonly)})
	case Tuple:
		elems := make([]TupleElement, len(data.Elements))
		for i, e := range data.Elements {
			if e.Rest {
				elems[i] = TupleElement{Type: db.ArrayOf(at(Number)), Rest: true, Label: e.Label}
				continue
			}
			elems[i] = TupleElement{
				Type:     at(db.StringLiteral(strconv.Itoa(i))),
				Optional: m.Optional.apply(e.Optional),
				Label:    e.Label,
			}
			if e.Optional {
				elems[i].Type = db.removeUndefined(elems[i].Type)
			}
		}
		return db.Intern(Tuple{Elements: elems})
	case Object:
		obj := Object{Properties: make([]Property, len(data.Properties))}
		for i, p := range data.Properties {
			prop := Property{
				Name:     p.Name,
				Type:     at(db.StringLiteral(p.Name)),
				Optional: m.Optional.apply(p.Optional),
				Readonly: m.Readonly.apply(p.Readonly),
			}
			// the undefined contributed by an optional source property is not part of the declared type
			if p.Optional {
				prop.Type = db.removeUndefined(prop.Type)
			}
			obj.Properties[i] = prop
		}
		if data.StringIndex != NoType {
			obj.StringIndex = at(String)
		}
		if data.NumberIndex != NoType {
			obj.NumberIndex = at(Number)
		}
		return db.Intern(obj)
	case Intersection, Func:
		return db.MappedType(Mapped{
			Param:      m.Param,
			Constraint: db.KeyOf(source),
			Template:   m.Template,
			Readonly:   m.Readonly,
			Optional:   m.Optional,
		})
	}
	// source is still unknown: keep the homomorphic form
	return db.Intern(Mapped{
		Param:      m.Param,
		Constraint: db.Intern(KeyOf{Target: source}),
		Template:   m.Template,
		Readonly:   m.Readonly,
		Optional:   m.Optional,
	})
}

func (db *Database) removeUndefined(t TypeID) TypeID {
	if !slices.Contains(db.UnionMembers(t), Undefined) {
		return t
	}
	return db.FilterUnion(t, func(m TypeID) bool { return m != Undefined })
}

// IsHomomorphicMapped reports whether t is `{ [P in keyof X]: ... }` over a
// source X that is not known yet, returning X
func (db *Database) IsHomomorphicMapped(t TypeID) (TypeID, bool) {
	m, ok := db.Lookup(t).(Mapped)
	if !ok {
		return NoType, false
	}
	k, ok := db.Lookup(m.Constraint).(KeyOf)
	if !ok {
		return NoType, false
	}
	return k.Target, true
}

// Evaluate re-reduces a deferred keyof, indexed access or mapped type whose operands may have
// become concrete. Other types are returned unchanged.
func (db *Database) Evaluate(t TypeID) TypeID {
	switch data := db.Lookup(t).(type) {
	case KeyOf:
		return db.KeyOf(db.Evaluate(data.Target))
	case IndexedAccess:
		return db.IndexedAccess(db.Evaluate(data.Object), db.Evaluate(data.Index))
	case Mapped:
		if source, ok := db.IsHomomorphicMapped(t); ok {
			return db.homomorphicMapped(data, db.Evaluate(source))
		}
		return db.MappedType(data)
	}
	return t
}
