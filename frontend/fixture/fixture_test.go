package fixture

import (
	"go/token"
	"testing"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"string", "string"},
		{"string | number", "string | number"},
		{"| 'a' | 'b'", `"a" | "b"`},
		{"A & B", "A & B"},
		{"number[][]", "number[][]"},
		{"readonly string[]", "readonly string[]"},
		{"(string | number)[]", "(string | number)[]"},
		{"T['a']", `T["a"]`},
		{"keyof T", "keyof T"},
		{"-1", "-1"},
		{"10n", "10n"},
		{"Map<string, number[]>", "Map<string, number[]>"},
		{"[a: string, b?: number, ...rest: boolean[]]", "[a: string, b?: number, ...rest: boolean[]]"},
		{"{ a: string; readonly b?: number }", "{ a: string; readonly b?: number; }"},
		{"{ [key: string]: number }", "{ [key: string]: number; }"},
		{"{ (x: string): string; (x: number): string }", "{ (x: string): string; (x: number): string; }"},
		{"{ m(x: T): void }", "{ m(x: T): void; }"},
		{"{ -readonly [K in keyof T]+?: T[K] }", "{ -readonly [K in keyof T]?: T[K]; }"},
		{"<T>(a: T) => T[]", "<T>(a: T) => T[]"},
		{"(x: unknown) => x is string", "(x: unknown) => x is string"},
		{"(x: unknown) => asserts x", "(x: unknown) => asserts x"},
		{"(...a: A) => B", "(...a: A) => B"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, err := ParseType(tt.src, token.NoPos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ast.TypeString(typ))
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, src := range []string{"", "string |", "{ a: }", "[string", "'open", "Map<string", "string string"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseType(src, token.NoPos)
			assert.Error(t, err)
		})
	}
}

func TestAnnotationPositions(t *testing.T) {
	typ, err := ParseType("string | number", 100)
	require.NoError(t, err)
	u := typ.(*ast.UnionType)
	assert.Equal(t, token.Pos(100), u.Pos())
	assert.Equal(t, token.Pos(115), u.End())
	assert.Equal(t, token.Pos(109), u.Types[1].Pos())
}

const narrowing = `
name: typeof narrowing
options: {strict: true}
expect: [TS2322]
types: {y: "string | number"}
program:
  - function: f
    params: ["x: string | number"]
    returns: string
    body:
      - if: {"===": [{typeof: x}, {str: string}]}
        then: [{return: x}]
      - return: {str: ""}
  - let: y
    type: "string | number"
    init: true
`

func TestParse(t *testing.T) {
	fx, err := Parse("narrowing.yaml", []byte(narrowing))
	require.NoError(t, err)
	assert.Equal(t, "typeof narrowing", fx.Name)
	assert.True(t, fx.Options.Strict)
	assert.Equal(t, []tserr.Code{tserr.NotAssignable}, fx.Expect)
	assert.Equal(t, map[string]string{"y": "string | number"}, fx.Types)
	require.Len(t, fx.File.Stmts, 2)

	f := fx.File.Stmts[0].(*ast.FuncDecl)
	require.Len(t, f.Func.Params, 1)
	assert.Equal(t, "string | number", ast.TypeString(f.Func.Params[0].Type))
	require.Len(t, f.Func.Body.Stmts, 2)

	ifStmt := f.Func.Body.Stmts[0].(*ast.If)
	cond := ifStmt.Cond.(*ast.Binary)
	assert.Equal(t, "===", cond.Op)
	x := cond.X.(*ast.Unary).X.(*ast.Ident)
	assert.Same(t, f.Func.Params[0].Symbol, x.Symbol)

	y, ok := fx.Lookup("y")
	require.True(t, ok)
	assert.Equal(t, ast.SymLet, y.Kind)
	assert.Same(t, y, fx.File.Symbols[y.ID])

	pos := fx.Position(fx.File.Stmts[1].Pos())
	assert.Equal(t, 14, pos.Line)
}

func TestParseExpressions(t *testing.T) {
	src := `
program:
  - expr: a.b?.c
  - expr: -1
  - expr: 10n
  - expr: null
  - expr: {call: f, args: [1, {str: x}], typeArgs: [string]}
  - expr: {object: {b: 1, a: 2}}
  - expr: {array: [1, {spread: xs}]}
  - expr: {"=": [a, 1]}
  - expr: {arrow: ["x: number"], expr: x}
  - expr: {cond: a, then: 1, else: 2}
  - expr: {as: a, type: const}
  - {expr: "o?.p"}
`
	fx, err := Parse("exprs.yaml", []byte(src))
	require.NoError(t, err)
	var got []string
	for _, s := range fx.File.Stmts {
		got = append(got, ast.ExprString(s.(*ast.ExprStmt).X))
	}
	assert.Equal(t, []string{
		"a.b?.c",
		"-1",
		"10n",
		"null",
		`f<string>(1, "x")`,
		"{ b: 1, a: 2 }",
		"[1, ...xs]",
		"a = 1",
		"(x: number) => x",
		"a ? 1 : 2",
		"a as const",
		"o?.p",
	}, got)
}

func TestBinding(t *testing.T) {
	src := `
program:
  - expr: {call: g}
  - function: g
    body:
      - var: v
        init: 1
      - block:
          - let: v2
            init: v
          - var: v
  - let: a
    init: 1
  - block:
      - let: a
        init: 2
      - expr: a
  - expr: a
  - expr: parseInt
  - expr: parseInt
  - try: []
    catch: {param: e, body: [{expr: e}]}
`
	fx, err := Parse("binding.yaml", []byte(src))
	require.NoError(t, err)
	stmts := fx.File.Stmts

	g := stmts[1].(*ast.FuncDecl)
	call := stmts[0].(*ast.ExprStmt).X.(*ast.Call)
	assert.Same(t, g.Symbol, call.Callee.(*ast.Ident).Symbol, "functions are visible before their declaration")

	body := g.Func.Body.Stmts
	v := body[0].(*ast.VarDecl)
	inner := body[1].(*ast.Block).Stmts
	assert.Same(t, v.Symbol, inner[0].(*ast.VarDecl).Init.(*ast.Ident).Symbol)
	assert.Same(t, v.Symbol, inner[1].(*ast.VarDecl).Symbol, "var redeclarations share one binding")

	outer := stmts[2].(*ast.VarDecl)
	shadow := stmts[3].(*ast.Block).Stmts[0].(*ast.VarDecl)
	assert.Same(t, shadow.Symbol, stmts[3].(*ast.Block).Stmts[1].(*ast.ExprStmt).X.(*ast.Ident).Symbol)
	assert.Same(t, outer.Symbol, stmts[4].(*ast.ExprStmt).X.(*ast.Ident).Symbol)

	first := stmts[5].(*ast.ExprStmt).X.(*ast.Ident).Symbol
	second := stmts[6].(*ast.ExprStmt).X.(*ast.Ident).Symbol
	assert.Equal(t, ast.SymGlobal, first.Kind)
	assert.Same(t, first, second)

	try := stmts[7].(*ast.Try)
	assert.Same(t, try.CatchParam, try.Catch.Stmts[0].(*ast.ExprStmt).X.(*ast.Ident).Symbol)

	for i, sym := range fx.File.Symbols {
		assert.Equal(t, ast.SymbolID(i), sym.ID)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad yaml", "program: [\n"},
		{"unknown statement", "program: [{loop: 1}]"},
		{"string scalar", "program: [{expr: 'hello world'}]"},
		{"bad annotation", "program: [{let: x, type: 'string |'}]"},
		{"bad code", "expect: [oops]"},
		{"binary arity", `program: [{expr: {"+": [1]}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name, []byte(tt.src))
			assert.Error(t, err)
		})
	}
}
