package types

// Widen replaces literal types by their backing primitive, through unions.
// true and false widen to boolean.
func (db *Database) Widen(t TypeID) TypeID {
	switch data := db.Lookup(t).(type) {
	case Literal:
		return data.Base
	case Union:
		return db.MapUnion(t, db.Widen)
	}
	return t
}

// WidenDeep widens t and the mutable locations inside it: properties that are
// not readonly and array elements. It is the type a mutable binding gets from
// a fresh initializer, as in `let o = { kind: "a" }`.
func (db *Database) WidenDeep(t TypeID) TypeID {
	switch data := db.Lookup(t).(type) {
	case Literal:
		return data.Base
	case Union:
		return db.MapUnion(t, db.WidenDeep)
	case Object:
		widened := Object{
			Properties:  make([]Property, len(data.Properties)),
			StringIndex: data.StringIndex,
			NumberIndex: data.NumberIndex,
		}
		for i, p := range data.Properties {
			if !p.Readonly {
				p.Type = db.WidenDeep(p.Type)
			}
			widened.Properties[i] = p
		}
		return db.Intern(widened)
	case Array:
		if data.Readonly {
			return t
		}
		return db.Intern(Array{Elem: db.WidenDeep(data.Elem)})
	}
	return t
}

// IsLiteralUnion reports whether t consists only of literal types
func (db *Database) IsLiteralUnion(t TypeID) bool {
	members := db.UnionMembers(t)
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if !db.IsLiteral(m) && m != Boolean {
			return false
		}
	}
	return true
}
