package solver

import (
	"fmt"

	"github.com/cottand/tsz/frontend/types"
)

type FailureKind uint8

const (
	// IncompatibleShape means the source is merely not related to the target
	IncompatibleShape FailureKind = iota + 1
	// RecursionLimitExceeded means the comparison nested deeper than the depth guard allows
	RecursionLimitExceeded
)

func (k FailureKind) String() string {
	switch k {
	case IncompatibleShape:
		return "incompatible shape"
	case RecursionLimitExceeded:
		return "recursion limit exceeded"
	}
	return "unknown"
}

// Failure explains why Source is not related to Target. Cause, when present,
// is the nested comparison that failed first.
type Failure struct {
	Kind           FailureKind
	Source, Target types.TypeID
	// Property is the property whose types were incompatible, if any
	Property string
	Message  string
	Cause    *Failure
}

var (
	shapeFailure = &Failure{Kind: IncompatibleShape, Message: "incompatible"}
	depthFailure = &Failure{Kind: RecursionLimitExceeded, Message: "Excessive stack depth comparing types."}
)

func (f *Failure) Error() string {
	return f.Message
}

// Reasons lists the messages of the causes of f, outermost first. The message of f
// itself is left out: it is the headline a diagnostic already states.
func (f *Failure) Reasons() []string {
	var reasons []string
	for cause := f.Cause; cause != nil; cause = cause.Cause {
		reasons = append(reasons, cause.Message)
	}
	return reasons
}

// fail builds the failure for src and tgt. Outside of Explain it returns a
// shared failure of the right kind without formatting anything.
func (c *SolveContext) fail(src, tgt types.TypeID, cause *Failure, format string, args ...any) *Failure {
	kind := IncompatibleShape
	if cause != nil && cause.Kind == RecursionLimitExceeded {
		kind = RecursionLimitExceeded
	}
	if !c.explaining {
		if kind == RecursionLimitExceeded {
			return depthFailure
		}
		return shapeFailure
	}
	return &Failure{
		Kind:    kind,
		Source:  src,
		Target:  tgt,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// notRelated is the default headline for src and tgt in mode
func (c *SolveContext) notRelated(src, tgt types.TypeID, mode Mode, cause *Failure) *Failure {
	if !c.explaining {
		return c.fail(src, tgt, cause, "")
	}
	verb := "assignable"
	if mode == Comparable {
		verb = "comparable"
	}
	return c.fail(src, tgt, cause, "Type '%s' is not %s to type '%s'.", c.db.Format(src), verb, c.db.Format(tgt))
}

func (c *SolveContext) propertyFailure(src, tgt types.TypeID, name string, cause *Failure) *Failure {
	if !c.explaining {
		return c.fail(src, tgt, cause, "")
	}
	f := c.fail(src, tgt, cause, "Types of property '%s' are incompatible.", name)
	f.Property = name
	return f
}
