package types

import (
	"fmt"
)

// Definition is a named type alias or interface. It is declared before its body
// is known so that forward and mutually recursive references resolve.
type Definition struct {
	Name   string
	Params []TypeID
	// Body is NoType until DefineDef
	Body      TypeID
	Interface bool

	variances []Variance
	measuring bool
}

// DeclareDef registers a definition whose body will be supplied later by DefineDef.
// params must be type parameters created with NewTypeParam.
func (db *Database) DeclareDef(name string, params []TypeID, isInterface bool) DefID {
	for _, p := range params {
		db.typeParamInfo(p)
	}
	id := DefID(len(db.defs))
	db.defs = append(db.defs, &Definition{
		Name:      name,
		Params:    params,
		Interface: isInterface,
	})
	db.logger.Debug("declared definition", "name", name, "id", id)
	return id
}

// DefineDef completes a declared definition. Defining twice panics.
func (db *Database) DefineDef(id DefID, body TypeID) {
	def := db.def(id)
	if def.Body != NoType {
		panic(fmt.Sprintf("definition %s defined twice", def.Name))
	}
	db.checkID(body, "definition body")
	def.Body = body
}

func (db *Database) def(id DefID) *Definition {
	if int(id) >= len(db.defs) {
		panic(fmt.Sprintf("unknown definition %d", id))
	}
	return db.defs[id]
}

// Def returns a copy of the definition id
func (db *Database) Def(id DefID) Definition {
	return *db.def(id)
}

// Reference builds the application of definition id to args. Missing trailing
// arguments are filled with the parameters' defaults; a count that still does
// not match panics, as arity is checked by the caller.
func (db *Database) Reference(id DefID, args ...TypeID) TypeID {
	def := db.def(id)
	if len(args) < len(def.Params) {
		filled := make([]TypeID, len(def.Params))
		copy(filled, args)
		for i := len(args); i < len(def.Params); i++ {
			d := db.Default(def.Params[i])
			if d == NoType {
				panic(fmt.Sprintf("reference to %s is missing argument for %s", def.Name, db.Format(def.Params[i])))
			}
			filled[i] = db.Instantiate(d, def.Params[:i], filled[:i])
		}
		args = filled
	}
	return db.Intern(Application{Def: id, Args: args})
}

// Expand substitutes the arguments of an application into the definition's body.
// Expanding before DefineDef is a programming error: definitions are all declared
// and defined before any type is related.
func (db *Database) Expand(app TypeID) TypeID {
	if done, ok := db.expansions[app]; ok {
		return done
	}
	data, ok := db.Lookup(app).(Application)
	if !ok {
		panic(fmt.Sprintf("expand of %s, which is not an application", db.Format(app)))
	}
	def := db.def(data.Def)
	if def.Body == NoType {
		panic(fmt.Sprintf("definition %s expanded before it was defined", def.Name))
	}
	// seeded so that a body referring to itself through an evaluated position
	// sees a finite result
	db.expansions[app] = Error
	expanded := db.Instantiate(def.Body, def.Params, data.Args)
	db.expansions[app] = expanded
	return expanded
}

// Defs iterates over every definition in declaration order
func (db *Database) Defs(yield func(DefID, Definition) bool) {
	for i, def := range db.defs {
		if !yield(DefID(i), *def) {
			return
		}
	}
}
