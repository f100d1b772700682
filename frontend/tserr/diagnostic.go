package tserr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cottand/tsz/frontend/ast"
)

// enableDebugErrorPrinting makes errors include the frame that created them when printed
var enableDebugErrorPrinting = false

const enableDebugFullStacktrace bool = false

// SetDebug toggles printing of the creating frame in FormatWithCode
func SetDebug(on bool) {
	enableDebugErrorPrinting = on
}

// Code is a diagnostic code. Values match the TypeScript compiler's numbering.
type Code int

const (
	None                    Code = 0
	CannotFindName          Code = 2304
	NotAssignable           Code = 2322
	PropertyMissing         Code = 2339
	ArgumentNotAssignable   Code = 2345
	NotCallable             Code = 2349
	ExcessProperty          Code = 2353
	NoOverlap               Code = 2367
	UsedBeforeAssigned      Code = 2454
	ArgumentCount           Code = 2554
	ArgumentCountAtLeast    Code = 2555
	AssignToConst           Code = 2588
	InstantiationTooDeep    Code = 2589
	AssignToFunction        Code = 2630
	NoOverloadMatches       Code = 2769
	ImplicitAnyParam        Code = 7006
	IsUnknown               Code = 18046
	PossiblyNull            Code = 18047
	PossiblyUndefined       Code = 18048
	PossiblyNullOrUndefined Code = 18049
)

func (c Code) String() string {
	return fmt.Sprintf("TS%d", int(c))
}

// Diagnostic is a user-facing error in the checked program
type Diagnostic interface {
	Error() string
	Code() Code
	ast.Positioner

	withStack([]byte) Diagnostic
	getStack() []byte
}

// FormatWithCode renders d as `error TS2322: message`
func FormatWithCode(d Diagnostic) string {
	if enableDebugErrorPrinting && d.getStack() != nil {
		stack := string(d.getStack())
		if !enableDebugFullStacktrace {
			stack = strings.TrimSpace(strings.Split(stack, "\n")[6])
		}
		return fmt.Sprintf("%s: error %s: %s", stack, d.Code(), d.Error())
	}
	return fmt.Sprintf("error %s: %s", d.Code(), d.Error())
}

// New records the creation stack of d
func New[D Diagnostic](d D) Diagnostic {
	return d.withStack(debug.Stack())
}

// Unclassified wraps an error that has no dedicated diagnostic
type Unclassified struct {
	From error
	ast.Positioner
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Code() Code       { return None }
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewCannotFindName struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewCannotFindName) Error() string {
	return fmt.Sprintf("Cannot find name '%s'.", e.Name)
}
func (e NewCannotFindName) Code() Code       { return CannotFindName }
func (e NewCannotFindName) getStack() []byte { return e.stack }
func (e NewCannotFindName) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewNotAssignable is reported for assignments, initializers and returns.
// Elaboration holds the nested reasons, outermost first.
type NewNotAssignable struct {
	ast.Positioner
	Source, Target string
	Elaboration    []string
	stack          []byte
}

func (e NewNotAssignable) Error() string {
	return elaborate(fmt.Sprintf("Type '%s' is not assignable to type '%s'.", e.Source, e.Target), e.Elaboration)
}
func (e NewNotAssignable) Code() Code       { return NotAssignable }
func (e NewNotAssignable) getStack() []byte { return e.stack }
func (e NewNotAssignable) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

func elaborate(head string, reasons []string) string {
	if len(reasons) == 0 {
		return head
	}
	var sb strings.Builder
	sb.WriteString(head)
	for i, r := range reasons {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("  ", i+1))
		sb.WriteString(r)
	}
	return sb.String()
}

type NewPropertyMissing struct {
	ast.Positioner
	Property, Type string
	stack          []byte
}

func (e NewPropertyMissing) Error() string {
	return fmt.Sprintf("Property '%s' does not exist on type '%s'.", e.Property, e.Type)
}
func (e NewPropertyMissing) Code() Code       { return PropertyMissing }
func (e NewPropertyMissing) getStack() []byte { return e.stack }
func (e NewPropertyMissing) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewArgumentNotAssignable struct {
	ast.Positioner
	Argument, Parameter string
	Elaboration         []string
	stack               []byte
}

func (e NewArgumentNotAssignable) Error() string {
	return elaborate(fmt.Sprintf("Argument of type '%s' is not assignable to parameter of type '%s'.", e.Argument, e.Parameter), e.Elaboration)
}
func (e NewArgumentNotAssignable) Code() Code       { return ArgumentNotAssignable }
func (e NewArgumentNotAssignable) getStack() []byte { return e.stack }
func (e NewArgumentNotAssignable) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewNotCallable struct {
	ast.Positioner
	Type  string
	stack []byte
}

func (e NewNotCallable) Error() string {
	return fmt.Sprintf("This expression is not callable. Type '%s' has no call signatures.", e.Type)
}
func (e NewNotCallable) Code() Code       { return NotCallable }
func (e NewNotCallable) getStack() []byte { return e.stack }
func (e NewNotCallable) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewExcessProperty struct {
	ast.Positioner
	Property, Type string
	stack          []byte
}

func (e NewExcessProperty) Error() string {
	return fmt.Sprintf("Object literal may only specify known properties, and '%s' does not exist in type '%s'.", e.Property, e.Type)
}
func (e NewExcessProperty) Code() Code       { return ExcessProperty }
func (e NewExcessProperty) getStack() []byte { return e.stack }
func (e NewExcessProperty) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewNoOverlap struct {
	ast.Positioner
	Left, Right string
	stack       []byte
}

func (e NewNoOverlap) Error() string {
	return fmt.Sprintf("This comparison appears to be unintentional because the types '%s' and '%s' have no overlap.", e.Left, e.Right)
}
func (e NewNoOverlap) Code() Code       { return NoOverlap }
func (e NewNoOverlap) getStack() []byte { return e.stack }
func (e NewNoOverlap) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewUsedBeforeAssigned struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewUsedBeforeAssigned) Error() string {
	return fmt.Sprintf("Variable '%s' is used before being assigned.", e.Name)
}
func (e NewUsedBeforeAssigned) Code() Code       { return UsedBeforeAssigned }
func (e NewUsedBeforeAssigned) getStack() []byte { return e.stack }
func (e NewUsedBeforeAssigned) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewArgumentCount reports an arity mismatch. AtLeast selects the
// "at least" wording used when the callee has optional or rest parameters.
type NewArgumentCount struct {
	ast.Positioner
	Expected string
	Got      int
	AtLeast  bool
	stack    []byte
}

func (e NewArgumentCount) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("Expected at least %s arguments, but got %d.", e.Expected, e.Got)
	}
	return fmt.Sprintf("Expected %s arguments, but got %d.", e.Expected, e.Got)
}
func (e NewArgumentCount) Code() Code {
	if e.AtLeast {
		return ArgumentCountAtLeast
	}
	return ArgumentCount
}
func (e NewArgumentCount) getStack() []byte { return e.stack }
func (e NewArgumentCount) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewAssignToConst struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewAssignToConst) Error() string {
	return fmt.Sprintf("Cannot assign to '%s' because it is a constant.", e.Name)
}
func (e NewAssignToConst) Code() Code       { return AssignToConst }
func (e NewAssignToConst) getStack() []byte { return e.stack }
func (e NewAssignToConst) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewInstantiationTooDeep struct {
	ast.Positioner
	stack []byte
}

func (e NewInstantiationTooDeep) Error() string {
	return "Type instantiation is excessively deep and possibly infinite."
}
func (e NewInstantiationTooDeep) Code() Code       { return InstantiationTooDeep }
func (e NewInstantiationTooDeep) getStack() []byte { return e.stack }
func (e NewInstantiationTooDeep) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewAssignToFunction struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewAssignToFunction) Error() string {
	return fmt.Sprintf("Cannot assign to '%s' because it is a function.", e.Name)
}
func (e NewAssignToFunction) Code() Code       { return AssignToFunction }
func (e NewAssignToFunction) getStack() []byte { return e.stack }
func (e NewAssignToFunction) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewNoOverloadMatches struct {
	ast.Positioner
	// Attempts holds one message per overload tried
	Attempts []string
	stack    []byte
}

func (e NewNoOverloadMatches) Error() string {
	return elaborate("No overload matches this call.", e.Attempts)
}
func (e NewNoOverloadMatches) Code() Code       { return NoOverloadMatches }
func (e NewNoOverloadMatches) getStack() []byte { return e.stack }
func (e NewNoOverloadMatches) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewImplicitAnyParam struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewImplicitAnyParam) Error() string {
	return fmt.Sprintf("Parameter '%s' implicitly has an 'any' type.", e.Name)
}
func (e NewImplicitAnyParam) Code() Code       { return ImplicitAnyParam }
func (e NewImplicitAnyParam) getStack() []byte { return e.stack }
func (e NewImplicitAnyParam) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

type NewIsUnknown struct {
	ast.Positioner
	Expr  string
	stack []byte
}

func (e NewIsUnknown) Error() string {
	return fmt.Sprintf("'%s' is of type 'unknown'.", e.Expr)
}
func (e NewIsUnknown) Code() Code       { return IsUnknown }
func (e NewIsUnknown) getStack() []byte { return e.stack }
func (e NewIsUnknown) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}

// NewPossiblyNullish reports a member access on a value that may be null or undefined
type NewPossiblyNullish struct {
	ast.Positioner
	Expr                  string
	MaybeNull, MaybeUndef bool
	stack                 []byte
}

func (e NewPossiblyNullish) Error() string {
	switch {
	case e.MaybeNull && e.MaybeUndef:
		return fmt.Sprintf("'%s' is possibly 'null' or 'undefined'.", e.Expr)
	case e.MaybeNull:
		return fmt.Sprintf("'%s' is possibly 'null'.", e.Expr)
	}
	return fmt.Sprintf("'%s' is possibly 'undefined'.", e.Expr)
}
func (e NewPossiblyNullish) Code() Code {
	switch {
	case e.MaybeNull && e.MaybeUndef:
		return PossiblyNullOrUndefined
	case e.MaybeNull:
		return PossiblyNull
	}
	return PossiblyUndefined
}
func (e NewPossiblyNullish) getStack() []byte { return e.stack }
func (e NewPossiblyNullish) withStack(stack []byte) Diagnostic {
	e.stack = stack
	return e
}
