package types

import (
	"fmt"
	"slices"
)

// Substitute replaces every occurrence of the keys of mapping in t by their value and
// re-normalises the result: unions are rebuilt, keyof, indexed access and
// mapped types are evaluated when they became concrete, and spread tuples are flattened.
//
// A generic signature whose own type parameters are all substituted loses its
// type parameter list: it has been instantiated.
func (db *Database) Substitute(t TypeID, mapping map[TypeID]TypeID) TypeID {
	if len(mapping) == 0 || t == NoType {
		return t
	}
	s := substitution{db: db, mapping: mapping, memo: make(map[TypeID]TypeID)}
	return s.apply(t)
}

// Instantiate substitutes params by args positionally
func (db *Database) Instantiate(t TypeID, params, args []TypeID) TypeID {
	if len(params) != len(args) {
		panic("instantiate: parameter and argument counts differ")
	}
	mapping := make(map[TypeID]TypeID, len(params))
	for i, p := range params {
		mapping[p] = args[i]
	}
	return db.Substitute(t, mapping)
}

// InstantiateSignature substitutes inside one signature, dropping the type
// parameters that mapping binds
func (db *Database) InstantiateSignature(sig Signature, mapping map[TypeID]TypeID) Signature {
	s := substitution{db: db, mapping: mapping, memo: make(map[TypeID]TypeID)}
	return s.signature(sig)
}

type substitution struct {
	db      *Database
	mapping map[TypeID]TypeID
	memo    map[TypeID]TypeID
}

func (s *substitution) apply(t TypeID) TypeID {
	if t == NoType {
		return t
	}
	if to, ok := s.mapping[t]; ok {
		return to
	}
	if t.IsIntrinsic() {
		return t
	}
	if done, ok := s.memo[t]; ok {
		return done
	}
	result := s.compute(t)
	s.memo[t] = result
	return result
}

func (s *substitution) applyAll(ts []TypeID) []TypeID {
	out := make([]TypeID, len(ts))
	for i, t := range ts {
		out[i] = s.apply(t)
	}
	return out
}

func (s *substitution) compute(t TypeID) TypeID {
	db := s.db
	switch data := db.Lookup(t).(type) {
	case Intrinsic, Literal, TypeParam, InferVar:
		return t
	case Union:
		return db.Union(s.applyAll(data.Members)...)
	case Intersection:
		return db.Intersection(s.applyAll(data.Members)...)
	case Object:
		obj := Object{
			Properties:  make([]Property, len(data.Properties)),
			StringIndex: s.apply(data.StringIndex),
			NumberIndex: s.apply(data.NumberIndex),
		}
		for i, p := range data.Properties {
			p.Type = s.apply(p.Type)
			obj.Properties[i] = p
		}
		return db.Intern(obj)
	case Func:
		fn := Func{Signatures: make([]Signature, len(data.Signatures))}
		for i, sig := range data.Signatures {
			fn.Signatures[i] = s.signature(sig)
		}
		return db.Intern(fn)
	case Tuple:
		elems := make([]TupleElement, len(data.Elements))
		for i, e := range data.Elements {
			e.Type = s.apply(e.Type)
			elems[i] = e
		}
		return db.Intern(db.flattenTuple(elems))
	case Array:
		return db.Intern(Array{Elem: s.apply(data.Elem), Readonly: data.Readonly})
	case Mapped:
		return s.mapped(data)
	case Application:
		return db.Intern(Application{Def: data.Def, Args: s.applyAll(data.Args)})
	case KeyOf:
		return db.KeyOf(s.apply(data.Target))
	case IndexedAccess:
		return db.IndexedAccess(s.apply(data.Object), s.apply(data.Index))
	default:
		panic(unexpectedData(data))
	}
}

func (s *substitution) signature(sig Signature) Signature {
	out := Signature{
		TypeParams: slices.DeleteFunc(slices.Clone(sig.TypeParams), func(tp TypeID) bool {
			_, bound := s.mapping[tp]
			return bound
		}),
		Params: make([]Param, len(sig.Params)),
		Return: s.apply(sig.Return),
	}
	if len(out.TypeParams) == 0 {
		out.TypeParams = nil
	}
	for i, p := range sig.Params {
		p.Type = s.apply(p.Type)
		out.Params[i] = p
	}
	if sig.Predicate == nil || sig.Predicate.ParamIndex < len(out.Params)-1 {
		out.Params = s.db.SpreadParams(out.Params)
	}
	if sig.Predicate != nil {
		pred := *sig.Predicate
		pred.Type = s.apply(pred.Type)
		out.Predicate = &pred
	}
	return out
}

func (s *substitution) mapped(m Mapped) TypeID {
	db := s.db
	template := s.apply(m.Template)
	if k, ok := db.Lookup(m.Constraint).(KeyOf); ok {
		source := s.apply(k.Target)
		return db.homomorphicMapped(Mapped{
			Param:    m.Param,
			Template: template,
			Readonly: m.Readonly,
			Optional: m.Optional,
		}, source)
	}
	return db.MappedType(Mapped{
		Param:      m.Param,
		Constraint: s.apply(m.Constraint),
		Template:   template,
		Readonly:   m.Readonly,
		Optional:   m.Optional,
	})
}

// SpreadParams replaces a trailing rest parameter whose type is a tuple by one
// parameter per element, so that `(...args: [a: A, b?: B])` reads `(a: A, b?: B)`.
// Unlabelled elements are named after the rest parameter, as in args_0.
func (db *Database) SpreadParams(params []Param) []Param {
	if len(params) == 0 || !params[len(params)-1].Rest {
		return params
	}
	last := params[len(params)-1]
	tuple, ok := db.Lookup(last.Type).(Tuple)
	if !ok {
		return params
	}
	for i, e := range tuple.Elements {
		if e.Rest && i != len(tuple.Elements)-1 {
			// [...A, B] has no parameter list equivalent
			return params
		}
	}
	out := slices.Clone(params[:len(params)-1])
	for i, e := range tuple.Elements {
		name := e.Label
		if name == "" {
			name = fmt.Sprintf("%s_%d", last.Name, i)
		}
		out = append(out, Param{Name: name, Type: e.Type, Optional: e.Optional, Rest: e.Rest})
	}
	return out
}

// flattenTuple splices rest elements whose type is itself a tuple
func (db *Database) flattenTuple(elems []TupleElement) Tuple {
	out := make([]TupleElement, 0, len(elems))
	for _, e := range elems {
		if e.Rest {
			if inner, ok := db.Lookup(e.Type).(Tuple); ok {
				out = append(out, inner.Elements...)
				continue
			}
		}
		out = append(out, e)
	}
	return Tuple{Elements: out}
}
