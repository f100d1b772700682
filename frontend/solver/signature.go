package solver

import (
	"github.com/cottand/tsz/frontend/types"
)

// relateSignature decides whether a function with signature s may be used where t is expected
func (c *SolveContext) relateSignature(s, t types.Signature, mode Mode) *Failure {
	db := c.db
	if len(s.TypeParams) > 0 {
		s = c.instantiateInContext(s, t)
	}
	sp, tp := db.SpreadParams(s.Params), db.SpreadParams(t.Params)
	if required := requiredParams(sp); !hasRest(tp) && required > len(tp) {
		return c.fail(types.NoType, types.NoType, nil,
			"Target signature provides too few arguments. Expected %d or more, but got %d.", required, len(tp))
	}

	n := max(len(sp), len(tp))
	for i := 0; i < n; i++ {
		sType, sName, sRest, sok := paramAt(db, sp, i)
		tType, tName, tRest, tok := paramAt(db, tp, i)
		if !sok || !tok {
			break
		}
		if sRest && tRest {
			// both sides spread from here on: compare the arrays themselves
			sType, tType = sp[len(sp)-1].Type, tp[len(tp)-1].Type
		}
		if f := c.relateParam(sType, tType, mode); f != nil {
			return c.fail(types.NoType, types.NoType, f, "Types of parameters '%s' and '%s' are incompatible.", sName, tName)
		}
		if sRest && tRest {
			break
		}
	}

	if t.Return != types.Void {
		if f := c.relate(s.Return, t.Return, childMode(mode)); f != nil {
			return f
		}
	}

	if t.Predicate != nil {
		if s.Predicate == nil {
			if !c.explaining {
				return shapeFailure
			}
			return c.fail(types.NoType, types.NoType, nil, "Signature '%s' must be a type predicate.", db.FormatSignature(s))
		}
		if s.Predicate.Type != types.NoType && t.Predicate.Type != types.NoType {
			if f := c.relate(s.Predicate.Type, t.Predicate.Type, childMode(mode)); f != nil {
				return f
			}
		}
	}
	return nil
}

// relateParam compares parameter types: contravariantly, or in either direction for
// methods and without strictFunctionTypes
func (c *SolveContext) relateParam(s, t types.TypeID, mode Mode) *Failure {
	switch {
	case mode == Comparable:
		if c.IsSubtype(t, s, Comparable) {
			return nil
		}
		return c.relate(s, t, Comparable)
	case mode == Bivariant || !c.opts.StrictFunctionTypes:
		if c.IsSubtype(s, t, Strict) {
			return nil
		}
		return c.relate(t, s, Strict)
	}
	return c.relate(t, s, Strict)
}

// paramAt is the type of the value passed at position i, looking into a trailing rest parameter
func paramAt(db *types.Database, params []types.Param, i int) (t types.TypeID, name string, rest, ok bool) {
	if i < len(params) && !params[i].Rest {
		return params[i].Type, params[i].Name, false, true
	}
	if len(params) == 0 || !params[len(params)-1].Rest {
		return types.NoType, "", false, false
	}
	last := params[len(params)-1]
	return restElement(db, last.Type), last.Name, true, true
}

func requiredParams(params []types.Param) int {
	n := 0
	for _, p := range params {
		if !p.Optional && !p.Rest {
			n++
		}
	}
	return n
}

func hasRest(params []types.Param) bool {
	return len(params) > 0 && params[len(params)-1].Rest
}
