package tserr

import (
	"errors"
	"testing"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilErrorsIsEmpty(t *testing.T) {
	var errs *Errors
	assert.False(t, errs.HasError())
	assert.Equal(t, 0, errs.Len())
	assert.Nil(t, errs.Errors())
	assert.Nil(t, errs.Codes())

	errs = errs.Merge(nil)
	assert.Nil(t, errs)

	errs = errs.With(New(NewCannotFindName{Name: "x"}))
	require.True(t, errs.HasError())
	assert.Equal(t, []Code{CannotFindName}, errs.Codes())
}

func TestMergeKeepsBoth(t *testing.T) {
	a := (*Errors)(nil).With(New(NewAssignToConst{Name: "a"}))
	b := (*Errors)(nil).With(New(NewAssignToFunction{Name: "parseInt"}))
	merged := a.Merge(b)
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, a, merged.Merge(&Errors{}))
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		diag Diagnostic
		code Code
		msg  string
	}{
		{
			"not assignable",
			NewNotAssignable{Source: "number", Target: "string"},
			NotAssignable,
			"Type 'number' is not assignable to type 'string'.",
		},
		{
			"elaborated",
			NewNotAssignable{Source: "{ a: number; }", Target: "{ a: string; }", Elaboration: []string{
				"Types of property 'a' are incompatible.",
				"Type 'number' is not assignable to type 'string'.",
			}},
			NotAssignable,
			"Type '{ a: number; }' is not assignable to type '{ a: string; }'.\n" +
				"  Types of property 'a' are incompatible.\n" +
				"    Type 'number' is not assignable to type 'string'.",
		},
		{
			"no overlap",
			NewNoOverlap{Left: "number", Right: "string"},
			NoOverlap,
			"This comparison appears to be unintentional because the types 'number' and 'string' have no overlap.",
		},
		{
			"at least",
			NewArgumentCount{Expected: "2", Got: 1, AtLeast: true},
			ArgumentCountAtLeast,
			"Expected at least 2 arguments, but got 1.",
		},
		{
			"exact count",
			NewArgumentCount{Expected: "1-2", Got: 3},
			ArgumentCount,
			"Expected 1-2 arguments, but got 3.",
		},
		{
			"possibly null",
			NewPossiblyNullish{Expr: "x", MaybeNull: true},
			PossiblyNull,
			"'x' is possibly 'null'.",
		},
		{
			"possibly undefined",
			NewPossiblyNullish{Expr: "x", MaybeUndef: true},
			PossiblyUndefined,
			"'x' is possibly 'undefined'.",
		},
		{
			"possibly both",
			NewPossiblyNullish{Expr: "o.p", MaybeNull: true, MaybeUndef: true},
			PossiblyNullOrUndefined,
			"'o.p' is possibly 'null' or 'undefined'.",
		},
		{
			"unclassified",
			Unclassified{From: errors.New("boom")},
			None,
			"unclassified error: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.diag.Code())
			assert.Equal(t, tt.msg, tt.diag.Error())
			assert.Equal(t, "error "+tt.code.String()+": "+tt.msg, FormatWithCode(tt.diag))
		})
	}
}

func TestCodesAreInSourceOrder(t *testing.T) {
	var errs *Errors
	errs = errs.With(
		New(NewPropertyMissing{Positioner: ast.Range{PosStart: 30, PosEnd: 31}, Property: "p", Type: "{}"}),
		New(NewCannotFindName{Positioner: ast.Range{PosStart: 10, PosEnd: 11}, Name: "y"}),
	)
	assert.Equal(t, []Code{CannotFindName, PropertyMissing}, errs.Codes())
	// insertion order is untouched
	assert.Equal(t, PropertyMissing, errs.Errors()[0].Code())
}

func TestNewRecordsStack(t *testing.T) {
	d := New(NewIsUnknown{Expr: "v"})
	assert.NotEmpty(t, d.getStack())
	assert.Equal(t, "TS18046", d.Code().String())
}
