// Package fixture reads check fixtures: small programs written as YAML together
// with the compiler options to check them under and the diagnostics expected.
//
// A fixture looks like
//
//	name: narrowing by typeof
//	options: {strict: true}
//	expect: [2322]
//	types: {y: "string | number"}
//	program:
//	  - function: f
//	    params: ["x: string | number"]
//	    body:
//	      - if: {"===": [{typeof: x}, {str: string}]}
//	        then: [{return: x}]
//	      - return: {str: ""}
//	  - let: y
//	    type: "string | number"
//	    init: 1
//
// Plain scalars in expression position are numbers, booleans, null, bigints
// such as 10n, and identifiers or property chains such as a.b?.c. Strings are
// written {str: ...}. Every other expression is a mapping keyed by its operator;
// operators YAML reserves, like "&&" or "!==", must be quoted, and so must
// optional chains such as "x?.a" inside flow mappings.
package fixture

import (
	"go/token"
	"os"
	"strconv"
	"strings"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/options"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/internal/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var logger = log.DefaultLogger.With("section", "fixture")

// Fixture is a bound program with what checking it should produce
type Fixture struct {
	Name    string
	Options options.Compiler
	// Expect lists the expected diagnostic codes in source order
	Expect []tserr.Code
	// Types maps top-level names to the type their declaration should have
	Types map[string]string
	File  *ast.File
	Fset  *token.FileSet
}

// document is the shape of a fixture file before its program is decoded
type document struct {
	Name    string            `yaml:"name"`
	Options yaml.Node         `yaml:"options"`
	Expect  []string          `yaml:"expect"`
	Types   map[string]string `yaml:"types"`
	Program yaml.Node         `yaml:"program"`
}

// Parse reads the fixture in src. name is used for positions and as the
// fixture's name when it does not have one.
func Parse(name string, src []byte) (fx *Fixture, err error) {
	var doc document
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, errors.Wrapf(err, "reading fixture %s", name)
	}

	fx = &Fixture{Name: doc.Name, Types: doc.Types, Fset: token.NewFileSet()}
	if fx.Name == "" {
		fx.Name = name
	}
	if !doc.Options.IsZero() {
		if err := doc.Options.Decode(&fx.Options); err != nil {
			return nil, errors.Wrapf(err, "options of fixture %s", name)
		}
	}
	for _, code := range doc.Expect {
		c, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(code), "TS"))
		if err != nil {
			return nil, errors.Wrapf(err, "expected diagnostic %q of fixture %s", code, name)
		}
		fx.Expect = append(fx.Expect, tserr.Code(c))
	}

	tokFile := fx.Fset.AddFile(name, -1, len(src))
	tokFile.SetLinesForContent(src)
	d := &decoder{file: tokFile}

	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			fx, err = nil, errors.Wrapf(pe.err, "fixture %s", name)
		}
	}()
	file := &ast.File{
		Range: ast.Range{PosStart: token.Pos(tokFile.Base()), PosEnd: token.Pos(tokFile.Base() + tokFile.Size())},
		Name:  name,
	}
	if !doc.Program.IsZero() {
		file.Stmts = d.stmts(&doc.Program)
	}
	bind(file)
	fx.File = file
	logger.Debug("parsed fixture", "name", fx.Name, "statements", len(file.Stmts), "expect", fx.Expect)
	return fx, nil
}

// Load reads and parses the fixture file at path
func Load(path string) (*Fixture, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading fixture")
	}
	return Parse(path, src)
}

// Lookup finds the top-level declaration called name
func (fx *Fixture) Lookup(name string) (*ast.Symbol, bool) {
	for _, stmt := range fx.File.Stmts {
		switch d := stmt.(type) {
		case *ast.VarDecl:
			if d.Symbol.Name == name {
				return d.Symbol, true
			}
		case *ast.FuncDecl:
			if d.Symbol.Name == name {
				return d.Symbol, true
			}
		}
	}
	return nil, false
}

// Position resolves p against the fixture's source
func (fx *Fixture) Position(p token.Pos) token.Position {
	return fx.Fset.Position(p)
}
