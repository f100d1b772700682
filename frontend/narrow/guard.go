package narrow

import (
	"fmt"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/types"
)

type GuardKind uint8

const (
	// GuardTypeof is `typeof x === Tag`
	GuardTypeof GuardKind = iota
	// GuardTruthy is `if (x)`
	GuardTruthy
	// GuardDiscriminant is `x.Path === Value`
	GuardDiscriminant
	// GuardEquality is `x === Value` for a unit or literal Value
	GuardEquality
	// GuardNullish is `x == null` or `x == undefined`
	GuardNullish
	// GuardPredicate is a call to a function returning `x is Value`,
	// or asserting it when Asserts is set
	GuardPredicate
	// GuardIn is `Tag in x`
	GuardIn
)

var guardKindNames = [...]string{
	GuardTypeof:       "typeof",
	GuardTruthy:       "truthy",
	GuardDiscriminant: "discriminant",
	GuardEquality:     "equality",
	GuardNullish:      "nullish",
	GuardPredicate:    "predicate",
	GuardIn:           "in",
}

func (k GuardKind) String() string { return guardKindNames[k] }

// Guard is a runtime check on Ref that the checker found in a condition
// or at an assertion call
type Guard struct {
	Kind GuardKind
	Ref  Ref
	// Tag is the typeof tag of GuardTypeof or the property name of GuardIn
	Tag string
	// Path is the property path of GuardDiscriminant, relative to Ref
	Path  []string
	Value types.TypeID
	// Asserts marks a guard from an assertion function. It has no false branch.
	Asserts bool
	Range   ast.Range
}

// Apply narrows t, the current type of g.Ref, to what holds when the guard
// evaluates to sense.
func (g Guard) Apply(n *Narrower, t types.TypeID, sense bool) types.TypeID {
	if g.Asserts && !sense {
		panic(fmt.Sprintf("false branch requested for assertion guard on %v at %v", g.Ref, g.Range))
	}
	var narrowed types.TypeID
	switch g.Kind {
	case GuardTypeof:
		narrowed = n.ByTypeof(t, g.Tag, sense)
	case GuardTruthy:
		narrowed = n.ByTruthiness(t, sense)
	case GuardDiscriminant:
		narrowed = n.ByDiscriminant(t, g.Path, g.Value, sense)
	case GuardEquality:
		narrowed = n.ByLiteralEquality(t, g.Value, sense)
	case GuardNullish:
		narrowed = n.ByNullish(t, sense)
	case GuardPredicate:
		if g.Asserts {
			narrowed = n.ByAssertion(t, g.Value)
		} else {
			narrowed = n.ByPredicate(t, g.Value, sense)
		}
	case GuardIn:
		narrowed = n.ByInProperty(t, g.Tag, sense)
	default:
		panic(fmt.Sprintf("unknown guard kind %d", g.Kind))
	}
	n.logger.Debug("applied guard",
		"kind", g.Kind, "ref", g.Ref, "sense", sense, "from", n.db.Slog(t), "to", n.db.Slog(narrowed))
	return narrowed
}
