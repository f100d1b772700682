package fixture

import (
	"go/token"
	"regexp"
	"strings"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// decoder turns the YAML form of a program into unbound syntax. Declarations get
// a Symbol without an ID; identifiers are left unresolved for the binder.
type decoder struct {
	file *token.File
}

func (d *decoder) fail(n *yaml.Node, format string, args ...any) {
	panic(parseError{err: errors.Wrapf(errors.Errorf(format, args...), "%s:%d:%d", d.file.Name(), n.Line, n.Column)})
}

func (d *decoder) pos(n *yaml.Node) token.Pos {
	if n.Line < 1 || n.Line > d.file.LineCount() {
		return token.Pos(d.file.Base())
	}
	return d.file.LineStart(n.Line) + token.Pos(n.Column-1)
}

func (d *decoder) end(n *yaml.Node) token.Pos {
	if len(n.Content) > 0 {
		return d.end(n.Content[len(n.Content)-1])
	}
	return d.pos(n) + token.Pos(len(n.Value))
}

func (d *decoder) rangeOf(n *yaml.Node) ast.Range {
	return ast.Range{PosStart: d.pos(n), PosEnd: d.end(n)}
}

// annotationBase is the position of the first character of a scalar's value
func (d *decoder) annotationBase(n *yaml.Node) token.Pos {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return d.pos(n) + 1
	}
	return d.pos(n)
}

// fields indexes the values of a mapping node by key
func (d *decoder) fields(n *yaml.Node) map[string]*yaml.Node {
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a mapping")
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		fields[n.Content[i].Value] = n.Content[i+1]
	}
	return fields
}

func (d *decoder) scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode {
		d.fail(n, "expected a scalar")
	}
	return n.Value
}

func (d *decoder) sequence(n *yaml.Node) []*yaml.Node {
	if n.Kind != yaml.SequenceNode {
		d.fail(n, "expected a list")
	}
	return n.Content
}

func (d *decoder) annotation(n *yaml.Node) ast.Type {
	t, err := ParseType(d.scalar(n), d.annotationBase(n))
	if err != nil {
		d.fail(n, "%v", err)
	}
	return t
}

func (d *decoder) typeParams(n *yaml.Node) []ast.TypeParam {
	if n == nil {
		return nil
	}
	var srcs []*yaml.Node
	if n.Kind == yaml.ScalarNode {
		srcs = []*yaml.Node{n}
	} else {
		srcs = d.sequence(n)
	}
	var params []ast.TypeParam
	for _, src := range srcs {
		ps, err := parseTypeParams(d.scalar(src), d.annotationBase(src))
		if err != nil {
			d.fail(src, "%v", err)
		}
		params = append(params, ps...)
	}
	return params
}

func (d *decoder) params(n *yaml.Node) []ast.Param {
	if n == nil {
		return nil
	}
	var srcs []*yaml.Node
	if n.Kind == yaml.ScalarNode {
		srcs = []*yaml.Node{n}
	} else {
		srcs = d.sequence(n)
	}
	var params []ast.Param
	for _, src := range srcs {
		ps, err := parseParams(d.scalar(src), d.annotationBase(src))
		if err != nil {
			d.fail(src, "%v", err)
		}
		params = append(params, ps...)
	}
	for i := range params {
		params[i].Symbol = &ast.Symbol{Name: params[i].Name, Kind: ast.SymParam, Decl: &params[i]}
	}
	return params
}

// statementKeys are the keys that decide what a statement mapping is, in the order they are tried
var statementKeys = []string{
	"let", "const", "var", "function", "alias", "interface", "return", "if", "while",
	"doWhile", "for", "throw", "try", "switch", "block", "expr",
}

func (d *decoder) stmts(n *yaml.Node) []ast.Stmt {
	if n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	var stmts []ast.Stmt
	for _, s := range d.sequence(n) {
		stmts = append(stmts, d.stmt(s))
	}
	return stmts
}

func (d *decoder) block(n *yaml.Node) *ast.Block {
	b := &ast.Block{Stmts: d.stmts(n)}
	if n != nil {
		b.Range = d.rangeOf(n)
	}
	return b
}

// body decodes the body of an if or a loop: a list of statements or a single one
func (d *decoder) body(n *yaml.Node) ast.Stmt {
	if n == nil || n.Kind == yaml.SequenceNode || n.Tag == "!!null" {
		return d.block(n)
	}
	return d.stmt(n)
}

func (d *decoder) stmt(n *yaml.Node) ast.Stmt {
	at := d.rangeOf(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &ast.Break{Range: at}
		case "continue":
			return &ast.Continue{Range: at}
		}
		d.fail(n, "unknown statement %q", n.Value)
	}
	f := d.fields(n)
	key := ""
	for _, k := range statementKeys {
		if _, ok := f[k]; ok {
			key = k
			break
		}
	}

	switch key {
	case "let", "const", "var":
		kinds := map[string]ast.SymbolKind{"let": ast.SymLet, "const": ast.SymConst, "var": ast.SymVar}
		decl := &ast.VarDecl{Range: at}
		decl.Symbol = &ast.Symbol{Name: d.scalar(f[key]), Kind: kinds[key], Decl: decl}
		if t, ok := f["type"]; ok {
			decl.Type = d.annotation(t)
		}
		if init, ok := f["init"]; ok {
			decl.Init = d.expr(init)
		}
		return decl
	case "function":
		decl := &ast.FuncDecl{Range: at, Func: d.funcExpr(n, f, false)}
		decl.Symbol = &ast.Symbol{Name: d.scalar(f["function"]), Kind: ast.SymFunction, Decl: decl}
		return decl
	case "alias":
		if f["type"] == nil {
			d.fail(n, "alias without a type")
		}
		return &ast.TypeAlias{
			Range:      at,
			Name:       d.scalar(f["alias"]),
			TypeParams: d.typeParams(f["typeParams"]),
			Type:       d.annotation(f["type"]),
		}
	case "interface":
		if f["body"] == nil {
			d.fail(n, "interface without a body")
		}
		body, ok := d.annotation(f["body"]).(*ast.ObjectType)
		if !ok {
			d.fail(f["body"], "an interface body is an object type")
		}
		return &ast.Interface{
			Range:      at,
			Name:       d.scalar(f["interface"]),
			TypeParams: d.typeParams(f["typeParams"]),
			Body:       body,
		}
	case "return":
		x := f["return"]
		// `return:` with nothing after it is a bare return; `return: null` returns null
		if x.Kind == yaml.ScalarNode && x.Tag == "!!null" && x.Value != "null" {
			return &ast.Return{Range: at}
		}
		return &ast.Return{Range: at, X: d.expr(x)}
	case "if":
		s := &ast.If{Range: at, Cond: d.expr(f["if"]), Then: d.body(f["then"])}
		if e, ok := f["else"]; ok {
			s.Else = d.body(e)
		}
		return s
	case "while":
		return &ast.While{Range: at, Cond: d.expr(f["while"]), Body: d.body(f["do"])}
	case "doWhile":
		return &ast.While{Range: at, Cond: d.expr(f["doWhile"]), Body: d.body(f["do"]), DoWhile: true}
	case "for":
		s := &ast.For{Range: at, Body: d.body(f["do"])}
		header := f["for"]
		if header.Kind == yaml.MappingNode {
			h := d.fields(header)
			if init, ok := h["init"]; ok {
				s.Init = d.stmt(init)
			}
			if cond, ok := h["cond"]; ok {
				s.Cond = d.expr(cond)
			}
			if post, ok := h["post"]; ok {
				s.Post = d.expr(post)
			}
		}
		return s
	case "throw":
		return &ast.Throw{Range: at, X: d.expr(f["throw"])}
	case "try":
		s := &ast.Try{Range: at, Block: d.block(f["try"])}
		if c, ok := f["catch"]; ok {
			if c.Kind == yaml.MappingNode {
				cf := d.fields(c)
				if p, ok := cf["param"]; ok {
					s.CatchParam = &ast.Symbol{Name: d.scalar(p), Kind: ast.SymCatch}
				}
				s.Catch = d.block(cf["body"])
			} else {
				s.Catch = d.block(c)
			}
		}
		if fin, ok := f["finally"]; ok {
			s.Finally = d.block(fin)
		}
		if s.Catch == nil && s.Finally == nil {
			d.fail(n, "try without catch or finally")
		}
		return s
	case "switch":
		s := &ast.Switch{Range: at, Tag: d.expr(f["switch"])}
		if f["cases"] == nil {
			return s
		}
		for _, c := range d.sequence(f["cases"]) {
			cf := d.fields(c)
			if def, ok := cf["default"]; ok {
				s.Cases = append(s.Cases, ast.Case{Range: d.rangeOf(c), Body: d.stmts(def)})
				continue
			}
			test, ok := cf["case"]
			if !ok {
				d.fail(c, "a switch clause is either case or default")
			}
			s.Cases = append(s.Cases, ast.Case{Range: d.rangeOf(c), Test: d.expr(test), Body: d.stmts(cf["body"])})
		}
		return s
	case "block":
		return d.block(f["block"])
	case "expr":
		return &ast.ExprStmt{Range: at, X: d.expr(f["expr"])}
	}
	d.fail(n, "unknown statement with keys %v", keysOf(n))
	return nil
}

func keysOf(n *yaml.Node) []string {
	var keys []string
	for i := 0; i < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// funcExpr decodes the parameters, annotations and body shared by function
// declarations and function expressions
func (d *decoder) funcExpr(n *yaml.Node, f map[string]*yaml.Node, arrow bool) *ast.FuncExpr {
	fe := &ast.FuncExpr{
		Range:      d.rangeOf(n),
		Arrow:      arrow,
		TypeParams: d.typeParams(f["typeParams"]),
	}
	if arrow {
		fe.Params = d.params(f["arrow"])
	} else if p, ok := f["fn"]; ok {
		fe.Params = d.params(p)
	} else {
		fe.Params = d.params(f["params"])
	}
	if r, ok := f["returns"]; ok {
		var err error
		fe.Return, fe.Predicate, err = parseReturn(d.scalar(r), d.annotationBase(r))
		if err != nil {
			d.fail(r, "%v", err)
		}
	}
	body, hasBody := f["body"]
	x, hasExpr := f["expr"]
	switch {
	case hasBody && hasExpr:
		d.fail(n, "a function has either a body or an expression")
	case hasExpr:
		fe.ExprBody = d.expr(x)
	default:
		fe.Body = d.block(body)
	}
	return fe
}

var binaryOps = map[string]bool{
	"===": true, "!==": true, "==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
	"&&": true, "||": true, "??": true, "in": true, "instanceof": true,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&&=": true, "||=": true, "??=": true,
}

var (
	memberChain = regexp.MustCompile(`^[A-Za-z_$][\w$]*((\?)?\.[A-Za-z_$][\w$]*)*$`)
	bigintLit   = regexp.MustCompile(`^-?[0-9]+n$`)
)

func (d *decoder) expr(n *yaml.Node) ast.Expr {
	if n == nil {
		panic(parseError{err: errors.New("missing expression")})
	}
	at := d.rangeOf(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalarExpr(n)
	case yaml.SequenceNode:
		d.fail(n, "a list is not an expression; use {array: [...]}")
	case yaml.AliasNode:
		return d.expr(n.Alias)
	}

	f := d.fields(n)
	op := n.Content[0].Value
	switch {
	case binaryOps[op] && len(n.Content) == 2:
		xs := d.sequence(f[op])
		if len(xs) != 2 {
			d.fail(n, "%s takes two operands", op)
		}
		return &ast.Binary{Range: at, Op: op, X: d.expr(xs[0]), Y: d.expr(xs[1])}
	case assignOps[op]:
		xs := d.sequence(f[op])
		if len(xs) != 2 {
			d.fail(n, "%s takes a target and a value", op)
		}
		return &ast.Assign{Range: at, Op: op, Target: d.expr(xs[0]), Value: d.expr(xs[1])}
	}

	switch op {
	case "str":
		return &ast.Lit{Range: at, Kind: ast.LitString, Value: d.scalar(f["str"])}
	case "bigint":
		return &ast.Lit{Range: at, Kind: ast.LitBigInt, Value: strings.TrimSuffix(d.scalar(f["bigint"]), "n")}
	case "call":
		call := &ast.Call{Range: at, Callee: d.expr(f["call"])}
		if args, ok := f["args"]; ok {
			for _, a := range d.sequence(args) {
				call.Args = append(call.Args, d.expr(a))
			}
		}
		if targs, ok := f["typeArgs"]; ok {
			for _, t := range d.sequence(targs) {
				call.TypeArgs = append(call.TypeArgs, d.annotation(t))
			}
		}
		return call
	case "object":
		lit := &ast.ObjectLit{Range: at}
		props := f["object"]
		if props.Kind == yaml.ScalarNode && props.Tag == "!!null" {
			return lit
		}
		if props.Kind != yaml.MappingNode {
			d.fail(props, "object properties are a mapping")
		}
		for i := 0; i+1 < len(props.Content); i += 2 {
			key, value := props.Content[i], props.Content[i+1]
			lit.Props = append(lit.Props, ast.PropAssign{
				Range: ast.Range{PosStart: d.pos(key), PosEnd: d.end(value)},
				Name:  key.Value,
				Value: d.expr(value),
			})
		}
		return lit
	case "array":
		lit := &ast.ArrayLit{Range: at}
		elems := f["array"]
		if elems.Kind == yaml.ScalarNode && elems.Tag == "!!null" {
			return lit
		}
		for _, e := range d.sequence(elems) {
			lit.Elems = append(lit.Elems, d.expr(e))
		}
		return lit
	case "spread":
		return &ast.Spread{Range: at, X: d.expr(f["spread"])}
	case "member":
		m := &ast.Member{Range: at, X: d.expr(f["member"]), Name: d.scalar(f["name"])}
		if opt, ok := f["optional"]; ok {
			m.Optional = d.scalar(opt) == "true"
		}
		return m
	case "index":
		return &ast.Index{Range: at, X: d.expr(f["index"]), Index: d.expr(f["at"])}
	case "arrow":
		return d.funcExpr(n, f, true)
	case "fn":
		return d.funcExpr(n, f, false)
	case "not":
		return &ast.Unary{Range: at, Op: "!", X: d.expr(f["not"])}
	case "typeof", "void":
		return &ast.Unary{Range: at, Op: op, X: d.expr(f[op])}
	case "neg":
		return &ast.Unary{Range: at, Op: "-", X: d.expr(f["neg"])}
	case "cond":
		return &ast.Conditional{Range: at, Cond: d.expr(f["cond"]), Then: d.expr(f["then"]), Else: d.expr(f["else"])}
	case "as":
		return &ast.As{Range: at, X: d.expr(f["as"]), Type: d.annotation(f["type"])}
	case "nonnull":
		return &ast.NonNull{Range: at, X: d.expr(f["nonnull"])}
	case "paren":
		return &ast.Paren{Range: at, X: d.expr(f["paren"])}
	}
	d.fail(n, "unknown expression with keys %v", keysOf(n))
	return nil
}

// scalarExpr decodes numbers, booleans, null and identifier chains such as `a.b?.c`
func (d *decoder) scalarExpr(n *yaml.Node) ast.Expr {
	at := d.rangeOf(n)
	text := n.Value
	negative := strings.HasPrefix(text, "-")
	literal := func(kind ast.LitKind, value string) ast.Expr {
		if !negative {
			return &ast.Lit{Range: at, Kind: kind, Value: value}
		}
		inner := ast.Range{PosStart: at.PosStart + 1, PosEnd: at.PosEnd}
		return &ast.Unary{Range: at, Op: "-", X: &ast.Lit{Range: inner, Kind: kind, Value: strings.TrimPrefix(value, "-")}}
	}

	switch n.Tag {
	case "!!int", "!!float":
		return literal(ast.LitNumber, text)
	case "!!bool":
		return &ast.Lit{Range: at, Kind: ast.LitBoolean, Value: text}
	case "!!null":
		return &ast.Lit{Range: at, Kind: ast.LitNull, Value: "null"}
	}
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 && bigintLit.MatchString(text) {
		return literal(ast.LitBigInt, strings.TrimSuffix(text, "n"))
	}
	if !memberChain.MatchString(text) {
		d.fail(n, "%q is not an identifier or property access; write strings as {str: ...}", text)
	}

	base := d.annotationBase(n)
	var expr ast.Expr
	offset := 0
	optional := false
	for i, part := range strings.Split(text, ".") {
		name := strings.TrimSuffix(part, "?")
		r := ast.Range{PosStart: base, PosEnd: base + token.Pos(offset+len(name))}
		if i == 0 {
			expr = &ast.Ident{Range: r, Name: name}
		} else {
			expr = &ast.Member{Range: r, X: expr, Name: name, Optional: optional}
		}
		// a trailing ? makes the next access optional
		optional = len(name) < len(part)
		offset += len(part) + 1
	}
	return expr
}
