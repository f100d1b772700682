package types

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// maxDistribution bounds the number of members an intersection may produce
// when distributed over unions
const maxDistribution = 25

// Union builds the normalised union of members: nested unions are flattened,
// never is dropped, duplicates are removed keeping the first occurrence, literals whose
// backing primitive is present are absorbed, true|false collapses to boolean and
// any, unknown or error absorb everything. No members is never, one member is itself.
func (db *Database) Union(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	seen := set.New[TypeID](len(members))
	var hasAny, hasUnknown, hasError bool
	var add func(m TypeID)
	add = func(m TypeID) {
		db.checkID(m, "union member")
		switch m {
		case Never:
			return
		case Any:
			hasAny = true
		case Unknown:
			hasUnknown = true
		case Error:
			hasError = true
		}
		if u, ok := db.types[m].(Union); ok {
			for _, inner := range u.Members {
				add(inner)
			}
			return
		}
		if seen.Insert(m) {
			flat = append(flat, m)
		}
	}
	for _, m := range members {
		add(m)
	}
	switch {
	case hasError:
		return Error
	case hasAny:
		return Any
	case hasUnknown:
		return Unknown
	}

	if seen.Contains(True) && seen.Contains(False) {
		// boolean takes the position of the first of true, false or boolean
		collapsed := flat[:0]
		placed := false
		for _, m := range flat {
			if m == True || m == False || m == Boolean {
				if placed {
					continue
				}
				placed, m = true, Boolean
			}
			collapsed = append(collapsed, m)
		}
		flat = collapsed
		seen.Insert(Boolean)
	}
	flat = slices.DeleteFunc(flat, func(m TypeID) bool {
		lit, ok := db.types[m].(Literal)
		return ok && seen.Contains(lit.Base)
	})

	switch len(flat) {
	case 0:
		return Never
	case 1:
		return flat[0]
	}
	return db.insert(Union{Members: flat})
}

// Intersection builds the normalised intersection of members. never absorbs
// everything, unknown is the identity, disjoint primitives reduce to never and
// object shapes are merged. Intersections of unions distribute when the result is small.
func (db *Database) Intersection(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	seen := set.New[TypeID](len(members))
	var add func(m TypeID)
	add = func(m TypeID) {
		db.checkID(m, "intersection member")
		if i, ok := db.types[m].(Intersection); ok {
			for _, inner := range i.Members {
				add(inner)
			}
			return
		}
		if m != Unknown && seen.Insert(m) {
			flat = append(flat, m)
		}
	}
	for _, m := range members {
		add(m)
	}
	switch {
	case seen.Contains(Never):
		return Never
	case seen.Contains(Error):
		return Error
	case seen.Contains(Any):
		return Any
	case len(flat) == 0:
		return Unknown
	case len(flat) == 1:
		return flat[0]
	}

	if distributed, ok := db.distribute(flat); ok {
		return distributed
	}
	if db.disjoint(flat) {
		return Never
	}
	flat = db.dropImpliedPrimitives(flat)
	flat = db.mergeObjects(flat)
	if len(flat) == 1 {
		return flat[0]
	}
	return db.insert(Intersection{Members: flat})
}

func (db *Database) distribute(members []TypeID) (TypeID, bool) {
	product := 1
	unionAt := -1
	for i, m := range members {
		if u, ok := db.types[m].(Union); ok {
			product *= len(u.Members)
			if unionAt < 0 {
				unionAt = i
			}
		}
	}
	if unionAt < 0 || product > maxDistribution {
		return NoType, false
	}
	u := db.types[members[unionAt]].(Union)
	results := make([]TypeID, 0, len(u.Members))
	for _, alt := range u.Members {
		rest := slices.Clone(members)
		rest[unionAt] = alt
		results = append(results, db.Intersection(rest...))
	}
	return db.Union(results...), true
}

type domain uint8

const (
	domainOpen domain = iota
	domainString
	domainNumber
	domainBigInt
	domainBoolean
	domainSymbol
	domainNull
	domainUndefined
	domainObject
)

func (db *Database) domainOf(t TypeID) domain {
	switch t {
	case String:
		return domainString
	case Number:
		return domainNumber
	case BigInt:
		return domainBigInt
	case Boolean:
		return domainBoolean
	case Symbol:
		return domainSymbol
	case Null:
		return domainNull
	case Undefined:
		return domainUndefined
	case NonPrimitive, Function:
		return domainObject
	}
	switch data := db.types[t].(type) {
	case Literal:
		return db.domainOf(data.Base)
	case Object, Func, Tuple, Array:
		return domainObject
	}
	return domainOpen
}

// disjoint reports whether two members can have no value in common.
// Primitives and object shapes may meet (branded primitives), null and undefined may not.
func (db *Database) disjoint(members []TypeID) bool {
	var literals = make(map[domain]TypeID)
	var primitives []domain
	hasObject := false
	for _, m := range members {
		d := db.domainOf(m)
		switch d {
		case domainOpen:
			continue
		case domainObject:
			hasObject = true
			continue
		}
		if prev, ok := literals[d]; ok && db.IsLiteral(m) && prev != m {
			return true
		}
		if db.IsLiteral(m) {
			literals[d] = m
		}
		if !slices.Contains(primitives, d) {
			primitives = append(primitives, d)
		}
	}
	if len(primitives) > 1 {
		return true
	}
	if hasObject && len(primitives) == 1 && (primitives[0] == domainNull || primitives[0] == domainUndefined) {
		return true
	}
	return false
}

// dropImpliedPrimitives removes primitives implied by a literal member: "a" & string is "a"
func (db *Database) dropImpliedPrimitives(members []TypeID) []TypeID {
	return slices.DeleteFunc(members, func(m TypeID) bool {
		if !m.IsPrimitive() {
			return false
		}
		return slices.ContainsFunc(members, func(other TypeID) bool {
			lit, ok := db.types[other].(Literal)
			return ok && lit.Base == m
		})
	})
}

// mergeObjects folds all plain object shapes into one shape, intersecting the types
// of properties present in several of them. Other members keep their position.
func (db *Database) mergeObjects(members []TypeID) []TypeID {
	first := -1
	var merged Object
	count := 0
	for i, m := range members {
		obj, ok := db.types[m].(Object)
		if !ok {
			continue
		}
		count++
		if first < 0 {
			first = i
			merged = Object{
				Properties:  slices.Clone(obj.Properties),
				StringIndex: obj.StringIndex,
				NumberIndex: obj.NumberIndex,
			}
			continue
		}
		for _, p := range obj.Properties {
			at := slices.IndexFunc(merged.Properties, func(q Property) bool { return q.Name == p.Name })
			if at < 0 {
				merged.Properties = append(merged.Properties, p)
				continue
			}
			q := merged.Properties[at]
			merged.Properties[at] = Property{
				Name:     p.Name,
				Type:     db.Intersection(q.Type, p.Type),
				Optional: q.Optional && p.Optional,
				Readonly: q.Readonly && p.Readonly,
				Method:   q.Method && p.Method,
			}
		}
		merged.StringIndex = db.intersectOptional(merged.StringIndex, obj.StringIndex)
		merged.NumberIndex = db.intersectOptional(merged.NumberIndex, obj.NumberIndex)
	}
	if count < 2 {
		return members
	}
	out := make([]TypeID, 0, len(members)-count+1)
	for i, m := range members {
		if i == first {
			out = append(out, db.Intern(merged))
			continue
		}
		if _, ok := db.types[m].(Object); !ok {
			out = append(out, m)
		}
	}
	return out
}

func (db *Database) intersectOptional(a, b TypeID) TypeID {
	switch {
	case a == NoType:
		return b
	case b == NoType:
		return a
	}
	return db.Intersection(a, b)
}
