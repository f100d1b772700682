package ast

import (
	"fmt"
	"go/token"
)

// Positioner allows finding the location in the original source file.
// The easiest way to be a Positioner is to embed a Range
type Positioner interface {
	Pos() token.Pos // position of first character belonging to the node
	End() token.Pos // position of first character immediately after the node
}

type Range struct {
	PosStart token.Pos
	PosEnd   token.Pos
}

func (r Range) Pos() token.Pos { return r.PosStart }
func (r Range) End() token.Pos { return r.PosEnd }
func (r Range) String() string {
	if r.PosStart == r.PosEnd {
		return fmt.Sprintf("%v", r.PosStart)
	}
	return fmt.Sprintf("%v-%v", r.PosStart, r.PosEnd)
}

func RangeBetween(fst, snd Positioner) Range {
	return Range{fst.Pos(), snd.End()}
}

// RangeOf creates a Range from a Positioner.
func RangeOf(p Positioner) Range {
	if p == nil {
		return Range{}
	}
	if asRange, ok := p.(Range); ok {
		return asRange
	}
	return Range{p.Pos(), p.End()}
}

// Node is the base interface for all bound syntax nodes.
type Node interface {
	Positioner
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// Type is a type annotation as written in the source
type Type interface {
	Node
	typeNode()
}

// File is one bound compilation unit
type File struct {
	Range
	Name  string
	Stmts []Stmt
	// Symbols holds every value symbol the binder created, globals included, indexed by ID
	Symbols []*Symbol
}

type SymbolID uint32

type SymbolKind uint8

const (
	SymLet SymbolKind = iota
	SymConst
	SymVar
	SymParam
	SymFunction
	SymCatch
	// SymGlobal is an ambient global such as parseInt, supplied by the environment rather than declared
	SymGlobal
)

var symbolKindNames = [...]string{
	SymLet:      "let",
	SymConst:    "const",
	SymVar:      "var",
	SymParam:    "parameter",
	SymFunction: "function",
	SymCatch:    "catch",
	SymGlobal:   "global",
}

func (k SymbolKind) String() string { return symbolKindNames[k] }

// Symbol is a value binding resolved by the binder. Every Ident that refers to
// the same declaration points to the same Symbol.
type Symbol struct {
	ID   SymbolID
	Name string
	Kind SymbolKind
	// Decl is the declaring node: *VarDecl, *FuncDecl, *Param or nil for globals
	Decl Node
}

// Mutable reports whether the binding can be reassigned after its declaration
func (s *Symbol) Mutable() bool {
	switch s.Kind {
	case SymLet, SymVar, SymParam, SymCatch:
		return true
	}
	return false
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s#%d", s.Name, s.ID)
}
