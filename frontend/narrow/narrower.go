// Package narrow refines the types of references along control flow.
//
// A Narrower computes what a guard says about a type; a Flow records, per
// reference, what is known at one program point and merges that knowledge
// where branches meet.
package narrow

import (
	"log/slog"

	"github.com/cottand/tsz/frontend/solver"
	"github.com/cottand/tsz/frontend/types"
	"github.com/cottand/tsz/internal/log"
)

var logger = log.DefaultLogger.With("section", "narrow")

type Narrower struct {
	ctx    *solver.SolveContext
	db     *types.Database
	logger *slog.Logger
}

func New(ctx *solver.SolveContext) *Narrower {
	return &Narrower{ctx: ctx, db: ctx.DB(), logger: logger}
}

// expand lists the members of t with boolean split into true and false and
// type applications expanded, so that guards can filter them one by one
func (n *Narrower) expand(t types.TypeID) []types.TypeID {
	db := n.db
	var out []types.TypeID
	for _, m := range db.UnionMembers(t) {
		switch {
		case m == types.Boolean:
			out = append(out, types.True, types.False)
		case db.Lookup(m).Kind() == types.KindApplication:
			expanded := db.Expand(m)
			if db.IsUnion(expanded) {
				out = append(out, n.expand(expanded)...)
			} else {
				out = append(out, m)
			}
		default:
			out = append(out, m)
		}
	}
	return out
}

// filter keeps the members of t for which keep holds. When nothing was removed
// the original type is returned, so that aliases keep their name.
func (n *Narrower) filter(t types.TypeID, keep func(types.TypeID) bool) types.TypeID {
	members := n.expand(t)
	kept := make([]types.TypeID, 0, len(members))
	for _, m := range members {
		if keep(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(members) {
		return t
	}
	return n.db.Union(kept...)
}

// direct reports whether the members of t are already the ones guards filter,
// with no boolean to split and no application to expand
func (n *Narrower) direct(t types.TypeID) bool {
	return len(n.expand(t)) == len(n.db.UnionMembers(t))
}

// mapMembers replaces every member of t by f of it
func (n *Narrower) mapMembers(t types.TypeID, f func(types.TypeID) types.TypeID) types.TypeID {
	members := n.expand(t)
	out := make([]types.TypeID, 0, len(members))
	changed := false
	for _, m := range members {
		r := f(m)
		changed = changed || r != m
		out = append(out, r)
	}
	if !changed {
		return t
	}
	return n.db.Union(out...)
}

// ByTypeof narrows t by `typeof x === tag`, or `!==` when sense is false
func (n *Narrower) ByTypeof(t types.TypeID, tag string, sense bool) types.TypeID {
	db := n.db
	switch t {
	case types.Any, types.Unknown:
		if !sense {
			return t
		}
		if p, ok := typeofPrimitive[tag]; ok {
			return p
		}
		switch {
		case t == types.Any:
			return t
		case tag == "object":
			return db.Union(types.NonPrimitive, types.Null)
		case tag == "function":
			return types.Function
		}
		return t
	case types.Error:
		return t
	}
	return n.mapMembers(t, func(m types.TypeID) types.TypeID {
		switch typeofMatch(n, m, tag) {
		case yes:
			if sense {
				return m
			}
			return types.Never
		case no:
			if sense {
				return types.Never
			}
			return m
		}
		// the member may or may not have that tag
		if !sense {
			return m
		}
		if db.Lookup(m).Kind() == types.KindTypeParam {
			narrowed := n.ByTypeof(n.constraintOf(m), tag, true)
			if narrowed == types.Never {
				return types.Never
			}
			return db.Intersection(m, narrowed)
		}
		if tag == "function" {
			return types.Function
		}
		return m
	})
}

var typeofPrimitive = map[string]types.TypeID{
	"string":    types.String,
	"number":    types.Number,
	"bigint":    types.BigInt,
	"boolean":   types.Boolean,
	"symbol":    types.Symbol,
	"undefined": types.Undefined,
}

type tristate uint8

const (
	maybe tristate = iota
	yes
	no
)

func fromBool(b bool) tristate {
	if b {
		return yes
	}
	return no
}

// typeofMatch decides whether `typeof` of a value of type m is tag
func typeofMatch(n *Narrower, m types.TypeID, tag string) tristate {
	db := n.db
	switch m {
	case types.Error, types.Any, types.Unknown:
		return maybe
	case types.Null:
		return fromBool(tag == "object")
	case types.Undefined, types.Void:
		return fromBool(tag == "undefined")
	case types.Function:
		return fromBool(tag == "function")
	case types.NonPrimitive:
		if tag == "object" || tag == "function" {
			return maybe
		}
		return no
	}
	switch data := db.Lookup(m).(type) {
	case types.Intrinsic, types.Literal:
		base := db.LiteralBase(m)
		for name, p := range typeofPrimitive {
			if p == base {
				return fromBool(name == tag)
			}
		}
		return no
	case types.Func:
		return fromBool(tag == "function")
	case types.Object, types.Array, types.Tuple, types.Mapped:
		if db.IsFunctionLike(m) {
			return fromBool(tag == "function")
		}
		return fromBool(tag == "object")
	case types.Application:
		return typeofMatch(n, db.Expand(m), tag)
	case types.Intersection:
		result := maybe
		for _, member := range data.Members {
			switch typeofMatch(n, member, tag) {
			case no:
				return no
			case yes:
				result = yes
			}
		}
		return result
	case types.Union:
		all, none := true, true
		for _, member := range data.Members {
			r := typeofMatch(n, member, tag)
			all = all && r == yes
			none = none && r == no
		}
		switch {
		case all:
			return yes
		case none:
			return no
		}
	case types.TypeParam:
		if constraint := db.Constraint(m); constraint != types.NoType {
			if r := typeofMatch(n, constraint, tag); r != maybe {
				return r
			}
		}
	}
	return maybe
}

func (n *Narrower) constraintOf(param types.TypeID) types.TypeID {
	if c := n.db.Constraint(param); c != types.NoType {
		return c
	}
	return types.Unknown
}

// ByTruthiness narrows t by `if (x)`, or `if (!x)` when sense is false.
// The falsy values are null, undefined, false, 0, "" and 0n.
func (n *Narrower) ByTruthiness(t types.TypeID, sense bool) types.TypeID {
	db := n.db
	if t == types.Any || t == types.Unknown || t == types.Error {
		return t
	}
	return n.mapMembers(t, func(m types.TypeID) types.TypeID {
		switch n.truthiness(m) {
		case yes:
			if sense {
				return m
			}
			return types.Never
		case no:
			if sense {
				return types.Never
			}
			return m
		}
		if sense {
			return m
		}
		switch m {
		case types.String:
			return db.StringLiteral("")
		case types.Number:
			return db.NumberLiteral(0)
		case types.BigInt:
			return db.BigIntLiteral("0")
		}
		return m
	})
}

// truthiness reports whether values of m are always truthy (yes), always falsy (no)
func (n *Narrower) truthiness(m types.TypeID) tristate {
	db := n.db
	switch m {
	case types.Null, types.Undefined, types.Void, types.False:
		return no
	case types.True, types.NonPrimitive, types.Function, types.Symbol:
		return yes
	case types.String, types.Number, types.BigInt, types.Any, types.Unknown, types.Error:
		return maybe
	}
	switch data := db.Lookup(m).(type) {
	case types.Literal:
		switch data.LitKind {
		case types.LitString:
			return fromBool(data.Value != "")
		case types.LitNumber:
			return fromBool(data.Value != "0")
		case types.LitBigInt:
			return fromBool(data.Value != "0")
		}
	case types.Object, types.Func, types.Array, types.Tuple, types.Mapped:
		return yes
	case types.Application:
		return n.truthiness(db.Expand(m))
	case types.Intersection:
		for _, member := range data.Members {
			if r := n.truthiness(member); r != maybe {
				return r
			}
		}
	}
	return maybe
}

// ByLiteralEquality narrows t by `x === lit`, or `!==` when sense is false
func (n *Narrower) ByLiteralEquality(t, lit types.TypeID, sense bool) types.TypeID {
	db := n.db
	if t == types.Error || lit == types.Error || lit == types.Any {
		return t
	}
	if sense {
		if (t == types.Any || t == types.Unknown) && db.IsUnit(lit) {
			return lit
		}
		return n.mapMembers(t, func(m types.TypeID) types.TypeID {
			switch {
			case m == lit:
				return m
			case n.ctx.IsSubtype(lit, m, solver.Strict):
				return lit
			case n.ctx.Overlaps(m, lit):
				return m
			}
			return types.Never
		})
	}
	if !db.IsUnit(lit) {
		return t
	}
	if n.direct(t) {
		if !db.HasMembers(t, lit) {
			return t
		}
		return db.MembersMinus(t, lit)
	}
	return n.filter(t, func(m types.TypeID) bool {
		return m != lit
	})
}

// ByNullish narrows t by `x == null`, or `x != null` when sense is false
func (n *Narrower) ByNullish(t types.TypeID, sense bool) types.TypeID {
	isNullish := func(m types.TypeID) bool {
		return m == types.Null || m == types.Undefined || m == types.Void
	}
	switch t {
	case types.Error:
		return t
	case types.Any, types.Unknown:
		if sense {
			return n.db.Union(types.Null, types.Undefined)
		}
		return t
	}
	return n.filter(t, func(m types.TypeID) bool {
		return isNullish(m) == sense
	})
}

// ByDiscriminant narrows a union of object shapes by `x.path === value`. Members whose
// discriminant cannot equal value are dropped in the true branch; in the false branch
// only members whose discriminant is exactly value are.
func (n *Narrower) ByDiscriminant(t types.TypeID, path []string, value types.TypeID, sense bool) types.TypeID {
	if t == types.Any || t == types.Unknown || t == types.Error || value == types.Error {
		return t
	}
	if !sense && n.direct(t) {
		return n.withoutDiscriminant(t, path, value)
	}
	result := n.filter(t, func(m types.TypeID) bool {
		prop, ok := n.propertyAt(m, path)
		if !ok {
			// a member without the property matches nothing but is not ruled out by !==
			return !sense
		}
		if sense {
			return n.ctx.Overlaps(prop, value)
		}
		return !(n.db.IsUnit(value) && n.unitEqual(prop, value))
	})
	n.logger.Debug("narrowed by discriminant",
		"path", path, "value", n.db.Slog(value), "sense", sense, "from", n.db.Slog(t), "to", n.db.Slog(result))
	return result
}

// withoutDiscriminant removes the members of t whose discriminant at path is exactly value
func (n *Narrower) withoutDiscriminant(t types.TypeID, path []string, value types.TypeID) types.TypeID {
	db := n.db
	if !db.IsUnit(value) {
		return t
	}
	var removed []types.TypeID
	for _, m := range db.UnionMembers(t) {
		if prop, ok := n.propertyAt(m, path); ok && n.unitEqual(prop, value) {
			removed = append(removed, m)
		}
	}
	if len(removed) == 0 {
		return t
	}
	result := db.MembersMinus(t, db.Union(removed...))
	n.logger.Debug("narrowed by discriminant",
		"path", path, "value", db.Slog(value), "sense", false, "from", db.Slog(t), "to", db.Slog(result))
	return result
}

// unitEqual reports whether every value of prop is value
func (n *Narrower) unitEqual(prop, value types.TypeID) bool {
	members := n.expand(prop)
	return len(members) == 1 && members[0] == value
}

func (n *Narrower) propertyAt(t types.TypeID, path []string) (types.TypeID, bool) {
	for _, name := range path {
		p, ok := n.ctx.PropertyOf(t, name)
		if !ok {
			return types.NoType, false
		}
		t = p.Type
		if p.Optional {
			t = n.db.Union(t, types.Undefined)
		}
	}
	return t, true
}

// ByPredicate narrows t by a call to a type predicate `v is target`. When sense is
// false only the members of a union that are target are removed.
func (n *Narrower) ByPredicate(t, target types.TypeID, sense bool) types.TypeID {
	ctx, db := n.ctx, n.db
	if target == types.Error || t == types.Error {
		return t
	}
	if !sense {
		if !db.IsUnion(t) && t != types.Boolean {
			return t
		}
		return n.filter(t, func(m types.TypeID) bool {
			return !ctx.IsSubtype(m, target, solver.Strict)
		})
	}
	if t == types.Any || t == types.Unknown {
		return target
	}
	if narrowed := n.filter(t, func(m types.TypeID) bool {
		return ctx.IsSubtype(m, target, solver.Strict)
	}); narrowed != types.Never {
		return narrowed
	}
	if narrowed := n.mapMembers(t, func(m types.TypeID) types.TypeID {
		if ctx.IsSubtype(target, m, solver.Strict) {
			return target
		}
		return types.Never
	}); narrowed != types.Never {
		return narrowed
	}
	return db.Intersection(t, target)
}

// ByAssertion narrows t past a call to an assertion function. A target of NoType
// stands for a bare `asserts v`, which asserts truthiness.
func (n *Narrower) ByAssertion(t, target types.TypeID) types.TypeID {
	if target == types.NoType {
		return n.ByTruthiness(t, true)
	}
	return n.ByPredicate(t, target, true)
}

// ByInProperty narrows t by `name in x`
func (n *Narrower) ByInProperty(t types.TypeID, name string, sense bool) types.TypeID {
	if t == types.Any || t == types.Unknown || t == types.Error {
		return t
	}
	return n.filter(t, func(m types.TypeID) bool {
		p, ok := n.ctx.PropertyOf(m, name)
		switch {
		case sense:
			return ok || n.open(m)
		case ok:
			return p.Optional
		}
		return true
	})
}

// open reports whether values of m may carry properties their type does not list
func (n *Narrower) open(m types.TypeID) bool {
	switch m {
	case types.NonPrimitive, types.Any, types.Unknown:
		return true
	}
	switch data := n.db.Lookup(m).(type) {
	case types.Object:
		return data.StringIndex != types.NoType
	case types.TypeParam:
		return true
	}
	return false
}

// ByAssignment is the type of a reference declared as declared right after a value of
// type assigned was stored in it: the declared members the value can inhabit
func (n *Narrower) ByAssignment(declared, assigned types.TypeID) types.TypeID {
	db := n.db
	if assigned == types.Any || assigned == types.Error || declared == types.Error {
		return declared
	}
	if !db.IsUnion(declared) && declared != types.Boolean {
		if declared == types.Any || declared == types.Unknown {
			return assigned
		}
		return declared
	}
	sources := n.expand(assigned)
	narrowed := n.filter(declared, func(d types.TypeID) bool {
		for _, s := range sources {
			if n.ctx.IsSubtype(s, d, solver.Strict) {
				return true
			}
		}
		return false
	})
	if narrowed == types.Never {
		return declared
	}
	return narrowed
}
