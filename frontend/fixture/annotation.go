package fixture

import (
	"go/token"
	"strings"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/pkg/errors"
)

var keywords = map[string]bool{
	"string": true, "number": true, "boolean": true, "bigint": true, "symbol": true, "object": true,
	"any": true, "unknown": true, "never": true, "void": true, "null": true, "undefined": true,
}

// annotationParser reads the TypeScript type syntax fixtures write annotations in
type annotationParser struct {
	toks []lexeme
	next int
	// base is the position of the first character of the annotation
	base token.Pos
}

// parseError aborts parsing an annotation; the entry points turn it into an error
type parseError struct{ err error }

func newAnnotationParser(src string, base token.Pos) (*annotationParser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, errors.Wrapf(err, "in annotation %q", src)
	}
	return &annotationParser{toks: toks, base: base}, nil
}

// run calls f, turning a parse failure inside it into an error
func (p *annotationParser) run(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			err = pe.err
		}
	}()
	f()
	if p.peek().kind != tokEOF {
		p.fail("unexpected %v after the annotation", p.peek())
	}
	return nil
}

func (p *annotationParser) fail(format string, args ...any) {
	panic(parseError{err: errors.Errorf(format, args...)})
}

func (p *annotationParser) peek() lexeme { return p.toks[p.next] }

func (p *annotationParser) peekAt(n int) lexeme {
	if p.next+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.next+n]
}

func (p *annotationParser) advance() lexeme {
	t := p.toks[p.next]
	if t.kind != tokEOF {
		p.next++
	}
	return t
}

func (p *annotationParser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *annotationParser) accept(text string) bool {
	if p.is(text) {
		p.advance()
		return true
	}
	return false
}

func (p *annotationParser) expect(text string) lexeme {
	if !p.is(text) {
		p.fail("expected %q, found %v", text, p.peek())
	}
	return p.advance()
}

func (p *annotationParser) ident() lexeme {
	t := p.peek()
	if t.kind != tokIdent {
		p.fail("expected a name, found %v", t)
	}
	return p.advance()
}

func (p *annotationParser) pos(t lexeme) token.Pos {
	return p.base + token.Pos(t.offset)
}

// rangeFrom spans from the lexeme start to the end of the last consumed lexeme
func (p *annotationParser) rangeFrom(start lexeme) ast.Range {
	last := p.toks[max(p.next-1, 0)]
	end := p.pos(last) + token.Pos(len(last.text))
	return ast.Range{PosStart: p.pos(start), PosEnd: end}
}

func (p *annotationParser) typ() ast.Type {
	start := p.peek()
	if p.is("<") || p.is("(") && p.isFunctionType() {
		return p.funcType()
	}
	p.accept("|")
	first := p.intersection()
	if !p.is("|") {
		return first
	}
	types := []ast.Type{first}
	for p.accept("|") {
		types = append(types, p.intersection())
	}
	return &ast.UnionType{Range: p.rangeFrom(start), Types: types}
}

// isFunctionType looks past the parenthesis at the current position for an arrow
func (p *annotationParser) isFunctionType() bool {
	depth := 0
	for i := p.next; i < len(p.toks); i++ {
		switch p.toks[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				next := p.toks[min(i+1, len(p.toks)-1)]
				return next.kind == tokPunct && next.text == "=>"
			}
		}
	}
	return false
}

func (p *annotationParser) intersection() ast.Type {
	start := p.peek()
	p.accept("&")
	first := p.postfix()
	if !p.is("&") {
		return first
	}
	types := []ast.Type{first}
	for p.accept("&") {
		types = append(types, p.postfix())
	}
	return &ast.IntersectionType{Range: p.rangeFrom(start), Types: types}
}

func (p *annotationParser) postfix() ast.Type {
	start := p.peek()
	t := p.primary()
	for p.is("[") {
		p.advance()
		if p.accept("]") {
			t = &ast.ArrayType{Range: p.rangeFrom(start), Elem: t}
			continue
		}
		index := p.typ()
		p.expect("]")
		t = &ast.IndexedAccessType{Range: p.rangeFrom(start), Object: t, Index: index}
	}
	return t
}

func (p *annotationParser) primary() ast.Type {
	start := p.peek()
	switch start.kind {
	case tokString:
		p.advance()
		return &ast.LiteralType{Range: p.rangeFrom(start), Lit: &ast.Lit{Range: p.rangeFrom(start), Kind: ast.LitString, Value: start.text}}
	case tokNumber:
		p.advance()
		return p.numberLiteral(start, "")
	case tokEOF:
		p.fail("expected a type, found %v", start)
	}

	switch {
	case p.is("-"):
		p.advance()
		num := p.peek()
		if num.kind != tokNumber {
			p.fail("expected a number after -, found %v", num)
		}
		p.advance()
		return p.numberLiteral(start, "-")
	case p.is("("):
		p.advance()
		t := p.typ()
		p.expect(")")
		return t
	case p.is("["):
		return p.tuple()
	case p.is("{"):
		return p.object()
	case p.is("keyof"):
		p.advance()
		return &ast.KeyOfType{Range: p.rangeFrom(start), Target: p.postfix()}
	case p.is("readonly"):
		p.advance()
		t := p.postfix()
		if arr, ok := t.(*ast.ArrayType); ok {
			arr.Readonly = true
			arr.Range = p.rangeFrom(start)
		}
		return t
	case p.is("true"), p.is("false"):
		p.advance()
		return &ast.LiteralType{Range: p.rangeFrom(start), Lit: &ast.Lit{Range: p.rangeFrom(start), Kind: ast.LitBoolean, Value: start.text}}
	}

	name := p.ident()
	if keywords[name.text] {
		return &ast.KeywordType{Range: p.rangeFrom(start), Name: name.text}
	}
	ref := &ast.TypeRef{Name: name.text}
	if p.accept("<") {
		for !p.is(">") {
			ref.Args = append(ref.Args, p.typ())
			if !p.accept(",") {
				break
			}
		}
		p.expect(">")
	}
	ref.Range = p.rangeFrom(start)
	return ref
}

func (p *annotationParser) numberLiteral(start lexeme, sign string) ast.Type {
	text := p.toks[p.next-1].text
	lit := &ast.Lit{Range: p.rangeFrom(start), Kind: ast.LitNumber, Value: sign + text}
	if digits, ok := strings.CutSuffix(text, "n"); ok && !strings.HasPrefix(text, "0x") {
		lit.Kind, lit.Value = ast.LitBigInt, sign+digits
	}
	return &ast.LiteralType{Range: lit.Range, Lit: lit}
}

func (p *annotationParser) tuple() ast.Type {
	start := p.expect("[")
	tuple := &ast.TupleType{}
	for !p.is("]") {
		elemStart := p.peek()
		var elem ast.TupleElement
		elem.Rest = p.accept("...")
		if p.peek().kind == tokIdent && (p.peekAt(1).text == ":" || p.peekAt(1).text == "?" && p.peekAt(2).text == ":") {
			elem.Label = p.advance().text
			elem.Optional = p.accept("?")
			p.expect(":")
		}
		elem.Type = p.typ()
		if p.accept("?") {
			elem.Optional = true
		}
		elem.Range = p.rangeFrom(elemStart)
		tuple.Elements = append(tuple.Elements, elem)
		if !p.accept(",") {
			break
		}
	}
	p.expect("]")
	tuple.Range = p.rangeFrom(start)
	return tuple
}

// object parses an object type literal or a mapped type
func (p *annotationParser) object() ast.Type {
	start := p.expect("{")
	if p.isMapped() {
		return p.mapped(start)
	}
	obj := &ast.ObjectType{}
	for !p.is("}") {
		p.member(obj)
		if !p.accept(";") && !p.accept(",") {
			break
		}
	}
	p.expect("}")
	obj.Range = p.rangeFrom(start)
	return obj
}

func (p *annotationParser) isMapped() bool {
	i := 0
	if p.peekAt(i).text == "+" || p.peekAt(i).text == "-" {
		i++
	}
	if p.peekAt(i).text == "readonly" {
		i++
	}
	return p.peekAt(i).text == "[" && p.peekAt(i+1).kind == tokIdent && p.peekAt(i+2).text == "in"
}

func (p *annotationParser) modifier(keyword string) ast.Modifier {
	switch {
	case p.is("+") && p.peekAt(1).text == keyword:
		p.advance()
		p.advance()
		return "+"
	case p.is("-") && p.peekAt(1).text == keyword:
		p.advance()
		p.advance()
		return "-"
	case p.accept(keyword):
		return "+"
	}
	return ""
}

func (p *annotationParser) mapped(start lexeme) ast.Type {
	m := &ast.MappedType{}
	m.Readonly = p.modifier("readonly")
	p.expect("[")
	m.Param = p.ident().text
	p.expect("in")
	m.Constraint = p.typ()
	p.expect("]")
	m.Optional = p.modifier("?")
	p.expect(":")
	m.Template = p.typ()
	p.accept(";")
	p.expect("}")
	m.Range = p.rangeFrom(start)
	return m
}

func (p *annotationParser) member(obj *ast.ObjectType) {
	start := p.peek()
	switch {
	case p.is("(") || p.is("<"):
		obj.Calls = append(obj.Calls, p.signature(start, ":"))
		return
	case p.is("[") && p.peekAt(1).kind == tokIdent && p.peekAt(2).text == ":":
		p.advance()
		p.advance()
		p.advance()
		key := p.ident().text
		if key != "string" && key != "number" {
			p.fail("index signature keys are string or number, found %q", key)
		}
		p.expect("]")
		p.expect(":")
		value := p.typ()
		obj.Indexes = append(obj.Indexes, ast.IndexSig{Range: p.rangeFrom(start), KeyType: key, Value: value})
		return
	}

	prop := ast.PropertySig{}
	if p.is("readonly") && p.peekAt(1).text != ":" && p.peekAt(1).text != "?" && p.peekAt(1).text != "(" {
		p.advance()
		prop.Readonly = true
	}
	nameTok := p.advance()
	if nameTok.kind != tokIdent && nameTok.kind != tokString && nameTok.kind != tokNumber {
		p.fail("expected a property name, found %v", nameTok)
	}
	prop.Name = nameTok.text
	prop.Optional = p.accept("?")
	if p.is("(") || p.is("<") {
		prop.Method = true
		prop.Type = p.signature(p.peek(), ":")
	} else {
		p.expect(":")
		prop.Type = p.typ()
	}
	prop.Range = p.rangeFrom(start)
	obj.Properties = append(obj.Properties, prop)
}

func (p *annotationParser) funcType() ast.Type {
	return p.signature(p.peek(), "=>")
}

// signature parses `<T>(params) arrow returnType`, where arrow is "=>" in a
// function type and ":" in a call or method signature
func (p *annotationParser) signature(start lexeme, arrow string) *ast.FuncType {
	ft := &ast.FuncType{}
	if p.accept("<") {
		ft.TypeParams = p.typeParamList()
	}
	p.expect("(")
	ft.Params = p.paramList(")")
	p.expect(arrow)
	ft.Return, ft.Predicate = p.returnType()
	ft.Range = p.rangeFrom(start)
	return ft
}

// typeParamList parses type parameters up to and including the closing >
func (p *annotationParser) typeParamList() []ast.TypeParam {
	var params []ast.TypeParam
	for !p.is(">") {
		params = append(params, p.typeParam())
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
	return params
}

func (p *annotationParser) typeParam() ast.TypeParam {
	start := p.peek()
	tp := ast.TypeParam{Name: p.ident().text}
	if p.accept("extends") {
		tp.Constraint = p.typ()
	}
	if p.accept("=") {
		tp.Default = p.typ()
	}
	tp.Range = p.rangeFrom(start)
	return tp
}

// paramList parses parameters up to and including close
func (p *annotationParser) paramList(close string) []ast.Param {
	var params []ast.Param
	for !p.is(close) {
		params = append(params, p.param())
		if !p.accept(",") {
			break
		}
	}
	p.expect(close)
	return params
}

func (p *annotationParser) param() ast.Param {
	start := p.peek()
	param := ast.Param{}
	param.Rest = p.accept("...")
	param.Name = p.ident().text
	param.Optional = p.accept("?")
	if p.accept(":") {
		param.Type = p.typ()
	}
	param.Range = p.rangeFrom(start)
	return param
}

// returnType parses a return type, which may be a type predicate
func (p *annotationParser) returnType() (ast.Type, *ast.Predicate) {
	start := p.peek()
	if p.is("asserts") && p.peekAt(1).kind == tokIdent {
		p.advance()
		pred := &ast.Predicate{Asserts: true, Param: p.ident().text}
		if p.accept("is") {
			pred.Type = p.typ()
		}
		pred.Range = p.rangeFrom(start)
		return nil, pred
	}
	if p.peek().kind == tokIdent && p.peekAt(1).text == "is" {
		pred := &ast.Predicate{Param: p.advance().text}
		p.advance()
		pred.Type = p.typ()
		pred.Range = p.rangeFrom(start)
		return nil, pred
	}
	return p.typ(), nil
}

// ParseType parses a type annotation located at base
func ParseType(src string, base token.Pos) (ast.Type, error) {
	p, err := newAnnotationParser(src, base)
	if err != nil {
		return nil, err
	}
	var t ast.Type
	err = p.run(func() { t = p.typ() })
	return t, errors.Wrapf(err, "in annotation %q", src)
}

// parseParams parses a parameter list written without parentheses
func parseParams(src string, base token.Pos) ([]ast.Param, error) {
	p, err := newAnnotationParser(src, base)
	if err != nil {
		return nil, err
	}
	var params []ast.Param
	err = p.run(func() {
		for p.peek().kind != tokEOF {
			params = append(params, p.param())
			if !p.accept(",") {
				break
			}
		}
	})
	return params, errors.Wrapf(err, "in parameters %q", src)
}

// parseTypeParams parses a type parameter list written without angle brackets
func parseTypeParams(src string, base token.Pos) ([]ast.TypeParam, error) {
	p, err := newAnnotationParser(src, base)
	if err != nil {
		return nil, err
	}
	var params []ast.TypeParam
	err = p.run(func() {
		for p.peek().kind != tokEOF {
			params = append(params, p.typeParam())
			if !p.accept(",") {
				break
			}
		}
	})
	return params, errors.Wrapf(err, "in type parameters %q", src)
}

// parseReturn parses a return annotation, which may be a type predicate
func parseReturn(src string, base token.Pos) (ast.Type, *ast.Predicate, error) {
	p, err := newAnnotationParser(src, base)
	if err != nil {
		return nil, nil, err
	}
	var t ast.Type
	var pred *ast.Predicate
	err = p.run(func() { t, pred = p.returnType() })
	return t, pred, errors.Wrapf(err, "in return annotation %q", src)
}
