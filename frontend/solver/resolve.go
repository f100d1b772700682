package solver

import (
	"fmt"
	"slices"

	"github.com/cottand/tsz/frontend/types"
)

// Variable is how one inference variable was resolved
type Variable struct {
	Param types.TypeID
	// Lower and Upper are the candidates of the winning priority
	Lower, Upper []types.TypeID
	Priority     Priority
	Resolved     types.TypeID
}

type IssueKind uint8

const (
	// BoundConflict means a lower bound is not assignable to the upper bound
	BoundConflict IssueKind = iota + 1
	// ConstraintViolation means the inferred type does not satisfy the declared constraint
	ConstraintViolation
)

// Issue is an inference that could not be satisfied. The checker reports it against
// argument Arg when checking the arguments did not already report something.
type Issue struct {
	Kind     IssueKind
	Param    types.TypeID
	Inferred types.TypeID
	Bound    types.TypeID
	// Arg is the argument that contributed the offending candidate, or -1
	Arg int
}

func (i Issue) Message(db *types.Database) string {
	name := db.Format(i.Param)
	if i.Kind == ConstraintViolation {
		return fmt.Sprintf("The inferred type '%s' for '%s' does not satisfy the constraint '%s'.",
			db.Format(i.Inferred), name, db.Format(i.Bound))
	}
	return fmt.Sprintf("The candidate '%s' for '%s' is not assignable to its bound '%s'.",
		db.Format(i.Inferred), name, db.Format(i.Bound))
}

// resolve resolves every variable of the episode that is not fixed yet, then
// checks the results against the declared constraints
func (e *Episode) resolve() ([]Variable, []Issue) {
	c := e.ctx
	db := c.db
	vars := make([]Variable, len(e.Vars))
	var issues []Issue
	for i := range e.Vars {
		vars[i] = e.resolveVar(i, &issues)
		if e.fixed[i] {
			vars[i].Resolved = e.resolved[i]
		}
	}

	// results may mention the other variables of the episode
	toResolved := make(map[types.TypeID]types.TypeID, len(vars))
	for i, v := range e.Vars {
		toResolved[v] = vars[i].Resolved
	}
	for round := 0; round <= len(vars); round++ {
		changed := false
		for i := range vars {
			if e.mentionsAnyVar(vars[i].Resolved) {
				vars[i].Resolved = db.Substitute(vars[i].Resolved, toResolved)
				toResolved[e.Vars[i]] = vars[i].Resolved
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	unknowns := make(map[types.TypeID]types.TypeID, len(vars))
	for _, v := range e.Vars {
		unknowns[v] = types.Unknown
	}
	for i := range vars {
		vars[i].Resolved = db.Substitute(vars[i].Resolved, unknowns)
	}

	byParam := make(map[types.TypeID]types.TypeID, len(vars))
	for i, p := range e.Params {
		byParam[p] = vars[i].Resolved
	}
	for i, p := range e.Params {
		constraint := db.Constraint(p)
		if constraint == types.NoType {
			continue
		}
		bound := db.Substitute(constraint, byParam)
		if !c.IsSubtype(vars[i].Resolved, bound, Strict) {
			issues = append(issues, Issue{
				Kind:     ConstraintViolation,
				Param:    p,
				Inferred: vars[i].Resolved,
				Bound:    bound,
				Arg:      e.argOf(i),
			})
			vars[i].Resolved = bound
			byParam[p] = bound
		}
	}
	for i := range vars {
		e.resolved[i] = vars[i].Resolved
		e.fixed[i] = true
	}
	return vars, issues
}

func (e *Episode) mentionsAnyVar(t types.TypeID) bool {
	return e.ctx.db.Contains(t, func(t types.TypeID) bool {
		_, ok := e.varIndex(t)
		return ok
	})
}

// argOf is the first argument that produced a candidate for variable i
func (e *Episode) argOf(i int) int {
	v := e.Vars[i]
	for _, c := range e.constraints {
		if (c.Source == v || c.Target == v) && c.Arg >= 0 {
			return c.Arg
		}
	}
	return -1
}

// resolveVar computes the value of variable i from its candidates of best priority.
// Lower bounds resolve to a common supertype, or their union; upper bounds alone to their
// intersection. Without candidates the declared default or constraint is used.
func (e *Episode) resolveVar(i int, issues *[]Issue) Variable {
	c := e.ctx
	db := c.db
	v, param := e.Vars[i], e.Params[i]

	var lower, upper []Constraint
	for _, con := range e.constraints {
		switch v {
		case con.Target:
			lower = append(lower, con)
		case con.Source:
			upper = append(upper, con)
		}
	}
	lower, upper = bestPriority(lower), bestPriority(upper)
	out := Variable{Param: param, Priority: LowPriority}

	if len(lower) == 0 && len(upper) == 0 {
		fallback := db.Default(param)
		if fallback == types.NoType {
			fallback = db.Constraint(param)
		}
		if fallback == types.NoType {
			fallback = types.Unknown
		}
		out.Resolved = db.Substitute(fallback, e.Mapping())
		return out
	}

	widen := !impliesLiterals(db, db.Constraint(param)) && !e.returnsNaked(param)
	for _, con := range lower {
		t := con.Source
		if con.Fresh && widen {
			t = db.WidenDeep(t)
		}
		if !slices.Contains(out.Lower, t) {
			out.Lower = append(out.Lower, t)
		}
	}
	for _, con := range upper {
		if !slices.Contains(out.Upper, con.Target) {
			out.Upper = append(out.Upper, con.Target)
		}
	}

	switch {
	case len(lower) == 0:
		out.Priority = upper[0].Priority
		out.Resolved = db.Intersection(out.Upper...)
	case len(upper) == 0:
		out.Priority = lower[0].Priority
		out.Resolved = c.commonSupertype(out.Lower)
	default:
		out.Priority = min(lower[0].Priority, upper[0].Priority)
		l, u := c.commonSupertype(out.Lower), db.Intersection(out.Upper...)
		out.Resolved = l
		if !c.IsSubtype(l, u, Strict) {
			if issues != nil {
				*issues = append(*issues, Issue{Kind: BoundConflict, Param: param, Inferred: l, Bound: u, Arg: lower[0].Arg})
			}
			if upper[0].Priority < lower[0].Priority {
				out.Resolved = u
			}
		}
	}
	c.logger.Debug("resolved inference variable",
		"episode", e.ID, "param", db.Slog(param), "resolved", db.Slog(out.Resolved), "priority", out.Priority)
	return out
}

// bestPriority keeps the constraints of the lowest priority value
func bestPriority(cs []Constraint) []Constraint {
	if len(cs) == 0 {
		return nil
	}
	best := slices.MinFunc(cs, func(a, b Constraint) int { return int(a.Priority) - int(b.Priority) }).Priority
	return slices.DeleteFunc(cs, func(c Constraint) bool { return c.Priority != best })
}

// commonSupertype is the candidate every other candidate is assignable to, or the union of all
func (c *SolveContext) commonSupertype(candidates []types.TypeID) types.TypeID {
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, candidate := range candidates {
		all := true
		for _, other := range candidates {
			if other != candidate && !c.IsSubtype(other, candidate, Strict) {
				all = false
				break
			}
		}
		if all {
			return candidate
		}
	}
	return c.db.Union(candidates...)
}

// impliesLiterals reports whether a declared constraint asks for literal types to be kept,
// as `T extends string` does
func impliesLiterals(db *types.Database, constraint types.TypeID) bool {
	if constraint == types.NoType {
		return false
	}
	return db.Contains(constraint, func(t types.TypeID) bool {
		switch t {
		case types.String, types.Number, types.Boolean, types.BigInt, types.Symbol:
			return true
		}
		return db.IsLiteral(t)
	})
}

// returnsNaked reports whether param is the declared return type, or one of its union members.
// The literal a call returns is then the literal it was given.
func (e *Episode) returnsNaked(param types.TypeID) bool {
	if e.ret == types.NoType {
		return false
	}
	return slices.Contains(e.ctx.db.UnionMembers(e.ret), param)
}
