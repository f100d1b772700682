package types

// Apparent returns the object shape whose members are accessible on values of t:
// the wrapper interface of a primitive, the array interface of arrays and tuples,
// the Function interface of functions. Other types are returned unchanged.
func (db *Database) Apparent(t TypeID) TypeID {
	if done, ok := db.apparent[t]; ok {
		return done
	}
	var result TypeID
	switch data := db.Lookup(t).(type) {
	case Literal:
		result = db.Apparent(data.Base)
	case Array:
		result = db.arrayInterface(data.Elem, data.Readonly)
	case Tuple:
		result = db.arrayInterface(db.IndexedAccess(t, Number), false)
	case Func:
		result = db.Apparent(Function)
	case Intrinsic:
		result = db.primitiveInterface(t)
	default:
		result = t
	}
	db.apparent[t] = result
	return result
}

func (db *Database) method(name string, ret TypeID, params ...Param) Property {
	return Property{
		Name:   name,
		Type:   db.FuncOf(Signature{Params: params, Return: ret}),
		Method: true,
	}
}

func param(name string, t TypeID) Param      { return Param{Name: name, Type: t} }
func optParam(name string, t TypeID) Param   { return Param{Name: name, Type: t, Optional: true} }
func restParam(name string, t TypeID) Param  { return Param{Name: name, Type: t, Rest: true} }
func field(name string, t TypeID) Property   { return Property{Name: name, Type: t} }
func roField(name string, t TypeID) Property { return Property{Name: name, Type: t, Readonly: true} }

func (db *Database) primitiveInterface(t TypeID) TypeID {
	toString := db.method("toString", String)
	switch t {
	case String:
		return db.ObjectOf(
			roField("length", Number),
			db.method("charAt", String, param("pos", Number)),
			db.method("charCodeAt", Number, param("index", Number)),
			db.method("concat", String, restParam("strings", db.ArrayOf(String))),
			db.method("endsWith", Boolean, param("searchString", String), optParam("endPosition", Number)),
			db.method("includes", Boolean, param("searchString", String), optParam("position", Number)),
			db.method("indexOf", Number, param("searchString", String), optParam("position", Number)),
			db.method("slice", String, optParam("start", Number), optParam("end", Number)),
			db.method("split", db.ArrayOf(String), param("separator", String), optParam("limit", Number)),
			db.method("startsWith", Boolean, param("searchString", String), optParam("position", Number)),
			db.method("substring", String, param("start", Number), optParam("end", Number)),
			db.method("toLowerCase", String),
			db.method("toUpperCase", String),
			toString,
			db.method("trim", String),
			db.method("valueOf", String),
		)
	case Number:
		return db.ObjectOf(
			db.method("toFixed", String, optParam("fractionDigits", Number)),
			db.method("toPrecision", String, optParam("precision", Number)),
			db.method("toString", String, optParam("radix", Number)),
			db.method("valueOf", Number),
		)
	case Boolean:
		return db.ObjectOf(toString, db.method("valueOf", Boolean))
	case BigInt:
		return db.ObjectOf(
			db.method("toString", String, optParam("radix", Number)),
			db.method("valueOf", BigInt),
		)
	case Symbol:
		return db.ObjectOf(
			roField("description", db.Union(String, Undefined)),
			toString,
			db.method("valueOf", Symbol),
		)
	case Function:
		return db.ObjectOf(
			roField("length", Number),
			roField("name", String),
			toString,
		)
	case NonPrimitive:
		return db.ObjectOf(toString)
	}
	return t
}

func (db *Database) arrayInterface(elem TypeID, readonly bool) TypeID {
	self := db.Intern(Array{Elem: elem, Readonly: readonly})
	u := db.NewTypeParam("U")
	props := []Property{
		field("length", Number),
		db.method("concat", db.ArrayOf(elem), restParam("items", db.ArrayOf(db.Union(elem, self)))),
		db.method("every", Boolean, param("predicate", db.FuncOf(Signature{
			Params: []Param{param("value", elem), param("index", Number)},
			Return: Unknown,
		}))),
		db.method("filter", db.ArrayOf(elem), param("predicate", db.FuncOf(Signature{
			Params: []Param{param("value", elem), param("index", Number)},
			Return: Unknown,
		}))),
		db.method("find", db.Union(elem, Undefined), param("predicate", db.FuncOf(Signature{
			Params: []Param{param("value", elem), param("index", Number)},
			Return: Unknown,
		}))),
		db.method("forEach", Void, param("callbackfn", db.FuncOf(Signature{
			Params: []Param{param("value", elem), param("index", Number)},
			Return: Void,
		}))),
		db.method("includes", Boolean, param("searchElement", elem), optParam("fromIndex", Number)),
		db.method("indexOf", Number, param("searchElement", elem), optParam("fromIndex", Number)),
		db.method("join", String, optParam("separator", String)),
		{
			Name: "map",
			Type: db.FuncOf(Signature{
				TypeParams: []TypeID{u},
				Params: []Param{param("callbackfn", db.FuncOf(Signature{
					Params: []Param{param("value", elem), param("index", Number)},
					Return: u,
				}))},
				Return: db.ArrayOf(u),
			}),
			Method: true,
		},
		db.method("slice", db.ArrayOf(elem), optParam("start", Number), optParam("end", Number)),
		db.method("some", Boolean, param("predicate", db.FuncOf(Signature{
			Params: []Param{param("value", elem), param("index", Number)},
			Return: Unknown,
		}))),
	}
	if readonly {
		props[0].Readonly = true
	} else {
		props = append(props,
			db.method("pop", db.Union(elem, Undefined)),
			db.method("push", Number, restParam("items", db.ArrayOf(elem))),
			db.method("reverse", db.ArrayOf(elem)),
			db.method("shift", db.Union(elem, Undefined)),
		)
	}
	return db.Intern(Object{Properties: props, NumberIndex: elem})
}
