package types

import (
	"slices"
)

func (db *Database) IsUnion(t TypeID) bool {
	_, ok := db.Lookup(t).(Union)
	return ok
}

// UnionMembers returns the members of a union, nothing for never
// and t itself for any other type.
func (db *Database) UnionMembers(t TypeID) []TypeID {
	if t == Never {
		return nil
	}
	if u, ok := db.Lookup(t).(Union); ok {
		return u.Members
	}
	return []TypeID{t}
}

// IntersectionMembers is like UnionMembers, for intersections
func (db *Database) IntersectionMembers(t TypeID) []TypeID {
	if i, ok := db.Lookup(t).(Intersection); ok {
		return i.Members
	}
	return []TypeID{t}
}

// MapUnion applies f to every member of t and unions the results
func (db *Database) MapUnion(t TypeID, f func(TypeID) TypeID) TypeID {
	members := db.UnionMembers(t)
	out := make([]TypeID, len(members))
	for i, m := range members {
		out[i] = f(m)
	}
	return db.Union(out...)
}

// FilterUnion keeps the members of t for which keep holds
func (db *Database) FilterUnion(t TypeID, keep func(TypeID) bool) TypeID {
	members := db.UnionMembers(t)
	out := make([]TypeID, 0, len(members))
	for _, m := range members {
		if keep(m) {
			out = append(out, m)
		}
	}
	return db.Union(out...)
}

func (db *Database) ObjectProperties(t TypeID) []Property {
	if obj, ok := db.Lookup(t).(Object); ok {
		return obj.Properties
	}
	return nil
}

// Property finds a declared property of an object shape, looking through
// intersections and expanding applications. Index signatures are not consulted.
func (db *Database) Property(t TypeID, name string) (Property, bool) {
	switch data := db.Lookup(t).(type) {
	case Object:
		i := slices.IndexFunc(data.Properties, func(p Property) bool { return p.Name == name })
		if i < 0 {
			return Property{}, false
		}
		return data.Properties[i], true
	case Intersection:
		var found []Property
		for _, m := range data.Members {
			if p, ok := db.Property(m, name); ok {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			return Property{}, false
		case 1:
			return found[0], true
		}
		merged := found[0]
		for _, p := range found[1:] {
			merged.Type = db.Intersection(merged.Type, p.Type)
			merged.Optional = merged.Optional && p.Optional
			merged.Readonly = merged.Readonly && p.Readonly
		}
		return merged, true
	case Application:
		return db.Property(db.Expand(t), name)
	}
	return Property{}, false
}

func (db *Database) FunctionSignatures(t TypeID) []Signature {
	if fn, ok := db.Lookup(t).(Func); ok {
		return fn.Signatures
	}
	return nil
}

func (db *Database) TupleElements(t TypeID) []TupleElement {
	if tuple, ok := db.Lookup(t).(Tuple); ok {
		return tuple.Elements
	}
	return nil
}

func (db *Database) MappedParts(t TypeID) (Mapped, bool) {
	m, ok := db.Lookup(t).(Mapped)
	return m, ok
}

func (db *Database) ApplicationParts(t TypeID) (DefID, []TypeID, bool) {
	app, ok := db.Lookup(t).(Application)
	return app.Def, app.Args, ok
}

func (db *Database) IsLiteral(t TypeID) bool {
	_, ok := db.Lookup(t).(Literal)
	return ok
}

// LiteralBase returns the backing primitive of a literal, or t unchanged
func (db *Database) LiteralBase(t TypeID) TypeID {
	if lit, ok := db.Lookup(t).(Literal); ok {
		return lit.Base
	}
	return t
}

// IsUnit reports whether t has exactly one value
func (db *Database) IsUnit(t TypeID) bool {
	switch t {
	case Null, Undefined, Void:
		return true
	}
	return db.IsLiteral(t)
}

// IsFunctionLike reports whether values of t can be called
func (db *Database) IsFunctionLike(t TypeID) bool {
	if t == Function {
		return true
	}
	switch data := db.Lookup(t).(type) {
	case Func:
		return true
	case Application:
		return db.IsFunctionLike(db.Expand(t))
	case Intersection:
		return slices.ContainsFunc(data.Members, db.IsFunctionLike)
	}
	return false
}

// IsGeneric reports whether t is a function with a generic primary signature
func (db *Database) IsGeneric(t TypeID) bool {
	sigs := db.FunctionSignatures(t)
	return len(sigs) > 0 && len(sigs[0].TypeParams) > 0
}

// Contains reports whether pred holds for t or any type reachable from its
// descriptor. Definition bodies are not entered.
func (db *Database) Contains(t TypeID, pred func(TypeID) bool) bool {
	visited := make(map[TypeID]struct{})
	var walk func(t TypeID) bool
	walk = func(t TypeID) bool {
		if t == NoType {
			return false
		}
		if _, ok := visited[t]; ok {
			return false
		}
		visited[t] = struct{}{}
		if pred(t) {
			return true
		}
		found := false
		db.children(t, func(child TypeID) {
			found = found || walk(child)
		})
		return found
	}
	return walk(t)
}

// children calls f with every type directly referenced by the descriptor of t
func (db *Database) children(t TypeID, f func(TypeID)) {
	switch data := db.Lookup(t).(type) {
	case Intrinsic, Literal, TypeParam, InferVar:
	case Union:
		for _, m := range data.Members {
			f(m)
		}
	case Intersection:
		for _, m := range data.Members {
			f(m)
		}
	case Object:
		for _, p := range data.Properties {
			f(p.Type)
		}
		f(data.StringIndex)
		f(data.NumberIndex)
	case Func:
		for _, sig := range data.Signatures {
			for _, p := range sig.Params {
				f(p.Type)
			}
			f(sig.Return)
			if sig.Predicate != nil {
				f(sig.Predicate.Type)
			}
		}
	case Tuple:
		for _, e := range data.Elements {
			f(e.Type)
		}
	case Array:
		f(data.Elem)
	case Mapped:
		f(data.Constraint)
		f(data.Template)
	case Application:
		for _, arg := range data.Args {
			f(arg)
		}
	case KeyOf:
		f(data.Target)
	case IndexedAccess:
		f(data.Object)
		f(data.Index)
	default:
		panic(unexpectedData(data))
	}
}

// ContainsTypeParams reports whether any of params occurs in t
func (db *Database) ContainsTypeParams(t TypeID, params []TypeID) bool {
	if len(params) == 0 {
		return false
	}
	return db.Contains(t, func(t TypeID) bool { return slices.Contains(params, t) })
}

// IsConcrete reports whether t mentions no type parameters nor inference variables
func (db *Database) IsConcrete(t TypeID) bool {
	return !db.Contains(t, func(t TypeID) bool {
		switch db.Lookup(t).(type) {
		case TypeParam, InferVar:
			return true
		}
		return false
	})
}
