package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cottand/tsz/frontend/fixture"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, src string) (*fixture.Fixture, *Result) {
	t.Helper()
	fx, err := fixture.Parse(t.Name()+".yaml", []byte(src))
	require.NoError(t, err)
	return fx, New(fx.Options).Check(fx.File)
}

func messages(errs *tserr.Errors) []string {
	var msgs []string
	for _, e := range errs.Errors() {
		msgs = append(msgs, tserr.FormatWithCode(e))
	}
	return msgs
}

func assertTypes(t *testing.T, fx *fixture.Fixture, res *Result) {
	t.Helper()
	for name, want := range fx.Types {
		sym, ok := fx.Lookup(name)
		if assert.True(t, ok, "no top-level declaration %s", name) {
			assert.Equal(t, want, res.TypeOf(sym), "type of %s", name)
		}
	}
}

func TestDiagnosticCodes(t *testing.T) {
	tests := []struct {
		name    string
		options string
		program string
		want    []tserr.Code
	}{
		{
			name:    "not assignable",
			program: `[{let: x, type: string, init: 1}]`,
			want:    []tserr.Code{tserr.NotAssignable},
		},
		{
			name:    "cannot find name",
			program: `[{expr: nowhere}]`,
			want:    []tserr.Code{tserr.CannotFindName},
		},
		{
			name:    "missing property",
			program: `[{const: o, init: {object: {a: 1}}}, {expr: o.b}]`,
			want:    []tserr.Code{tserr.PropertyMissing},
		},
		{
			name:    "argument not assignable",
			program: `[{function: f, params: ["x: number"]}, {expr: {call: f, args: [{str: s}]}}]`,
			want:    []tserr.Code{tserr.ArgumentNotAssignable},
		},
		{
			name:    "not callable",
			program: `[{const: n, init: 1}, {expr: {call: n}}]`,
			want:    []tserr.Code{tserr.NotCallable},
		},
		{
			name:    "excess property",
			program: `[{let: p, type: "{ a: number }", init: {object: {a: 1, b: 2}}}]`,
			want:    []tserr.Code{tserr.ExcessProperty},
		},
		{
			name:    "excess property is not checked through a variable",
			program: `[{const: q, init: {object: {a: 1, b: 2}}}, {let: p, type: "{ a: number }", init: q}]`,
		},
		{
			name:    "literals without overlap",
			program: `[{expr: {"===": [1, {str: one}]}}]`,
			want:    []tserr.Code{tserr.NoOverlap},
		},
		{
			name:    "literals of one primitive overlap",
			program: `[{expr: {"===": [1, 2]}}]`,
		},
		{
			name:    "any overlaps everything",
			program: `[{let: anyValue, type: any}, {expr: {"===": [1, anyValue]}}]`,
		},
		{
			name:    "used before assigned",
			program: `[{let: x, type: number}, {expr: x}]`,
			want:    []tserr.Code{tserr.UsedBeforeAssigned},
		},
		{
			name:    "unassigned use is fine without strictNullChecks",
			options: `{strict: false}`,
			program: `[{let: x, type: number}, {expr: x}]`,
		},
		{
			name:    "too many arguments",
			program: `[{function: f, params: ["x: number"]}, {expr: {call: f, args: [1, 2]}}]`,
			want:    []tserr.Code{tserr.ArgumentCount},
		},
		{
			name:    "too few arguments with a rest parameter",
			program: `[{function: f, params: ["x: number, ...r: number[]"]}, {expr: {call: f}}]`,
			want:    []tserr.Code{tserr.ArgumentCountAtLeast},
		},
		{
			name:    "assign to const",
			program: `[{const: c, init: 1}, {expr: {"=": [c, 2]}}]`,
			want:    []tserr.Code{tserr.AssignToConst},
		},
		{
			name:    "assign to function",
			program: `[{function: f}, {expr: {"=": [f, 1]}}]`,
			want:    []tserr.Code{tserr.AssignToFunction},
		},
		{
			name:    "no overload matches",
			program: `[{const: o, type: "{ (x: string): string; (x: number): number }"}, {expr: {call: o, args: [true]}}]`,
			want:    []tserr.Code{tserr.NoOverloadMatches},
		},
		{
			name:    "implicit any parameter",
			program: `[{function: f, params: [x]}]`,
			want:    []tserr.Code{tserr.ImplicitAnyParam},
		},
		{
			name:    "implicit any is allowed when not strict",
			options: `{strict: false}`,
			program: `[{function: f, params: [x]}]`,
		},
		{
			name:    "unknown",
			program: `[{function: f, params: ["u: unknown"], body: [{expr: u.a}]}]`,
			want:    []tserr.Code{tserr.IsUnknown},
		},
		{
			name:    "possibly null",
			program: `[{function: f, params: ["x: { a: number } | null"], body: [{expr: x.a}]}]`,
			want:    []tserr.Code{tserr.PossiblyNull},
		},
		{
			name:    "possibly undefined",
			program: `[{function: f, params: ["x: { a: number } | undefined"], body: [{expr: x.a}]}]`,
			want:    []tserr.Code{tserr.PossiblyUndefined},
		},
		{
			name:    "possibly null or undefined",
			program: `[{function: f, params: ["x: { a: number } | null | undefined"], body: [{expr: x.a}]}]`,
			want:    []tserr.Code{tserr.PossiblyNullOrUndefined},
		},
		{
			name:    "optional access is not reported",
			program: `[{function: f, params: ["x: { a: number } | undefined"], body: [{expr: "x?.a"}]}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			if options == "" {
				options = "{strict: true}"
			}
			_, res := check(t, "options: "+options+"\nprogram: "+tt.program+"\n")
			assert.Equal(t, tt.want, res.Errors.Codes(), "diagnostics: %v", messages(res.Errors))
		})
	}
}

func TestNarrowingInClosures(t *testing.T) {
	inBranch := func(stmt string) string {
		return `
options: {strict: true}
program:
  - function: f
    params: ["x: string | number"]
    body:
      - if: {"===": [{typeof: x}, {str: string}]}
        then: [` + stmt + `]
`
	}
	closure := `{arrow: [], body: [{const: s, type: string, init: x}]}`

	_, res := check(t, inBranch(`{expr: {call: {paren: `+closure+`}}}`))
	assert.Empty(t, res.Errors.Codes(), "an immediately invoked function keeps the narrowing: %v", messages(res.Errors))

	_, res = check(t, inBranch(`{const: g, init: `+closure+`}`))
	assert.Equal(t, []tserr.Code{tserr.NotAssignable}, res.Errors.Codes(), "a parameter may be reassigned before a closure runs")
}

func TestGenericFunctionsAreMutuallyAssignable(t *testing.T) {
	_, res := check(t, `
options: {strict: true}
program:
  - alias: F1
    type: "<T>(x: T) => T"
  - alias: F2
    type: "<U>(y: U) => U"
  - function: id
    typeParams: T
    params: ["x: T"]
    returns: T
    body: [{return: x}]
  - let: a
    type: F1
    init: id
  - let: b
    type: F2
    init: a
  - expr: {"=": [a, b]}
`)
	assert.Empty(t, res.Errors.Codes(), "%v", messages(res.Errors))
}

func TestGenericComposition(t *testing.T) {
	fx, res := check(t, `
options: {strict: true}
types:
  f: "<T>(a: T) => { value: T[]; }"
program:
  - const: pipe
    type: "<A extends any[], B, C>(ab: (...a: A) => B, bc: (b: B) => C) => (...a: A) => C"
  - const: list
    init: {arrow: ["a: T"], typeParams: T, returns: "T[]", expr: {array: [a]}}
  - const: box
    init: {arrow: ["x: V"], typeParams: V, returns: "{ value: V }", expr: {paren: {object: {value: x}}}}
  - const: f
    init: {call: pipe, args: [list, box]}
`)
	assertTypes(t, fx, res)
}

func TestContextualOverloadedLambda(t *testing.T) {
	program := `
program:
  - const: h
    type: "{ (x: string): string; (x: number): string }"
    init: {arrow: [a], expr: a.anything}
`
	_, res := check(t, "options: {strict: true, noImplicitAny: false}"+program)
	assert.Empty(t, res.Errors.Codes(), "conflicting contextual parameters give any: %v", messages(res.Errors))

	_, res = check(t, "options: {strict: true}"+program)
	assert.Equal(t, []tserr.Code{tserr.PropertyMissing}, res.Errors.Codes(), "%v", messages(res.Errors))
}

func TestDeclaredTypes(t *testing.T) {
	fx, res := check(t, `
options: {strict: true}
types:
  l: number
  c: "1"
  o: "{ a: number; b: string; }"
  xs: "number[]"
  t: "[number, string]"
  nothing: "any[]"
program:
  - let: l
    init: 1
  - const: c
    init: 1
  - const: o
    init: {object: {a: 1, b: {str: b}}}
  - const: xs
    init: {array: [1, 2]}
  - const: t
    type: "[number, string]"
    init: {array: [1, {str: s}]}
  - const: nothing
    init: {array: []}
`)
	assert.Empty(t, res.Errors.Codes(), "%v", messages(res.Errors))
	assertTypes(t, fx, res)
}

// TestFixtures checks every program under testdata against the diagnostics and
// types it declares
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			src, err := os.ReadFile(path)
			require.NoError(t, err)
			fx, err := fixture.Parse(path, src)
			require.NoError(t, err)
			res := New(fx.Options).Check(fx.File)
			assert.Equal(t, fx.Expect, res.Errors.Codes(), "diagnostics: %v", messages(res.Errors))
			assertTypes(t, fx, res)
		})
	}
}

func TestContextualRestParameter(t *testing.T) {
	program := func(annotation string) string {
		return `
options: {strict: true}
program:
  - const: h
    type: "(...args: number[]) => void"
    init:
      arrow: [a, "...r"]
      body:
        - const: first
          type: number
          init: a
        - const: others
          type: "` + annotation + `"
          init: r
`
	}
	_, res := check(t, program("number[]"))
	assert.Empty(t, res.Errors.Codes(), "a rest parameter past the end takes the contextual rest type: %v", messages(res.Errors))

	_, res = check(t, program("string[]"))
	assert.Equal(t, []tserr.Code{tserr.NotAssignable}, res.Errors.Codes(), "%v", messages(res.Errors))
}
