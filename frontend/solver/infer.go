package solver

import (
	"slices"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/types"
	"github.com/hashicorp/go-set/v3"
)

// Argument is one argument at a call site
type Argument struct {
	Type types.TypeID
	// Fresh is set for literal expressions, whose literal types may be widened
	Fresh bool
	// Deferred, when set, types a context-sensitive argument such as an unannotated lambda.
	// It is called once the inferences of the other arguments are fixed, with the
	// parameter type instantiated so far, or NoType when there is no parameter.
	Deferred func(param types.TypeID) types.TypeID
	Range    ast.Range
}

// Inference is the outcome of inferring the type arguments of a call
type Inference struct {
	// Signature is the instantiated signature, without type parameters
	Signature types.Signature
	// Mapping sends each type parameter of the generic signature to its inferred type
	Mapping   map[types.TypeID]types.TypeID
	Variables []Variable
	Issues    []Issue
}

// Infer infers the type arguments of the generic signature sig from the arguments of a
// call and, when not NoType, the type the call's result is expected to have.
func (c *SolveContext) Infer(sig types.Signature, args []Argument, contextualReturn types.TypeID) Inference {
	db := c.db
	e := c.beginEpisode(sig.TypeParams)
	defer e.Close()
	e.ret = sig.Return

	mapping := e.Mapping()
	params := make([]types.Param, len(sig.Params))
	for i, p := range sig.Params {
		p.Type = db.Substitute(p.Type, mapping)
		params[i] = p
	}
	params = db.SpreadParams(params)
	ret := db.Substitute(sig.Return, mapping)

	var deferred []int
	rest := len(params)
	if len(params) > 0 && params[len(params)-1].Rest {
		rest = len(params) - 1
	}
	for i, arg := range args {
		if i >= rest && rest < len(params) {
			if _, naked := e.varIndex(params[rest].Type); naked {
				// the trailing arguments are inferred together as one tuple
				e.arg, e.fresh = i, false
				e.infer(c.argumentTuple(params[rest], args[rest:]), params[rest].Type, NakedTypeVariable)
				break
			}
		}
		if arg.Deferred != nil {
			deferred = append(deferred, i)
			continue
		}
		if pt := paramTypeAt(db, params, i); pt != types.NoType {
			e.arg, e.fresh = i, arg.Fresh
			e.infer(arg.Type, pt, NakedTypeVariable)
		}
	}
	if contextualReturn != types.NoType {
		e.arg, e.fresh = -1, false
		e.infer(contextualReturn, ret, ReturnType)
	}
	for _, i := range deferred {
		pt := paramTypeAt(db, params, i)
		if pt == types.NoType {
			args[i].Deferred(types.NoType)
			continue
		}
		// the lambda's parameters must be known before its body is checked
		for _, s := range c.signaturesOf(pt) {
			for _, p := range s.Params {
				e.fixMentioned(p.Type)
			}
		}
		argType := args[i].Deferred(db.Substitute(pt, e.fixedMapping()))
		e.arg, e.fresh = i, false
		e.infer(argType, pt, NakedTypeVariable)
	}

	vars, issues := e.resolve()
	result := make(map[types.TypeID]types.TypeID, len(vars))
	for i, p := range sig.TypeParams {
		result[p] = vars[i].Resolved
	}
	inst := db.InstantiateSignature(sig, result)
	inst.Return = e.generalize(inst.Return)
	c.logger.Debug("inferred call", "episode", e.ID, "signature", db.FormatSignature(inst))
	return Inference{Signature: inst, Mapping: result, Variables: vars, Issues: issues}
}

// argumentTuple is the tuple of the arguments spread into a rest parameter
func (c *SolveContext) argumentTuple(rest types.Param, args []Argument) types.TypeID {
	db := c.db
	elems := make([]types.TupleElement, len(args))
	for i, arg := range args {
		t := arg.Type
		if arg.Deferred != nil {
			t = arg.Deferred(types.NoType)
		}
		if arg.Fresh && !impliesLiterals(db, db.Constraint(c.declaredParam(rest.Type))) {
			t = db.WidenDeep(t)
		}
		elems[i] = types.TupleElement{Type: t}
	}
	return db.Intern(types.Tuple{Elements: elems})
}

// declaredParam is the type parameter an inference variable stands for
func (c *SolveContext) declaredParam(v types.TypeID) types.TypeID {
	if e := c.checkVar(v); e != nil {
		if i, ok := e.varIndex(v); ok {
			return e.Params[i]
		}
	}
	return types.NoType
}

// paramTypeAt is the type the i-th argument is matched against, or NoType
func paramTypeAt(db *types.Database, params []types.Param, i int) types.TypeID {
	if i < len(params) && !params[i].Rest {
		return params[i].Type
	}
	if len(params) == 0 || !params[len(params)-1].Rest {
		return types.NoType
	}
	return restElement(db, params[len(params)-1].Type)
}

// restElement is the type of one value spread into a rest position of type t
func restElement(db *types.Database, t types.TypeID) types.TypeID {
	if a, ok := db.Lookup(t).(types.Array); ok {
		return a.Elem
	}
	return db.IndexedAccess(t, types.Number)
}

// generalize adds the type parameters propagated from generic arguments to a
// function result that mentions them, keeping it polymorphic
func (e *Episode) generalize(t types.TypeID) types.TypeID {
	if len(e.propagated) == 0 {
		return t
	}
	db := e.ctx.db
	fn, ok := db.Lookup(t).(types.Func)
	if !ok || len(fn.Signatures) != 1 {
		return t
	}
	sig := fn.Signatures[0]
	for _, p := range e.propagated {
		if !slices.Contains(sig.TypeParams, p) && db.ContainsTypeParams(t, []types.TypeID{p}) {
			sig.TypeParams = append(slices.Clone(sig.TypeParams), p)
		}
	}
	return db.Intern(types.Func{Signatures: []types.Signature{sig}})
}

// instantiateInContext instantiates the generic signature source by inferring its
// type parameters from target, the signature it is compared with
func (c *SolveContext) instantiateInContext(source, target types.Signature) types.Signature {
	db := c.db
	e := c.beginEpisode(source.TypeParams)
	defer e.Close()
	e.ret = source.Return

	mapping := e.Mapping()
	withVars := db.InstantiateSignature(source, mapping)
	e.visited = set.NewHashSet[inferKey, uint64](8)
	e.inferParams(target.Params, withVars.Params, NakedTypeVariable, false)
	if target.Return != types.Void {
		e.infer(target.Return, withVars.Return, ReturnType)
	}
	vars, _ := e.resolve()
	result := make(map[types.TypeID]types.TypeID, len(vars))
	for i, p := range source.TypeParams {
		result[p] = vars[i].Resolved
	}
	return db.InstantiateSignature(source, result)
}

// infer starts constraint generation from one source and target pair
func (e *Episode) infer(source, target types.TypeID, priority Priority) {
	e.visited = set.NewHashSet[inferKey, uint64](8)
	e.depth = 0
	e.inferFrom(source, target, priority, false)
}

// inferFrom records the constraints under which source relates to target,
// or target to source when contra is set. Target holds the variables.
func (e *Episode) inferFrom(source, target types.TypeID, priority Priority, contra bool) {
	db := e.ctx.db
	if source == target || source == types.NoType || target == types.NoType || !e.mentionsOpenVars(target) {
		return
	}
	if i, ok := e.varIndex(target); ok {
		if contra {
			e.addUpper(i, source, priority)
		} else {
			e.addLower(i, source, priority)
		}
		return
	}
	if source == types.Any || source == types.Error {
		// an untyped argument says the same of every variable it meets
		db.Contains(target, func(t types.TypeID) bool {
			if i, ok := e.varIndex(t); ok && !e.fixed[i] {
				e.addLower(i, source, priority)
			}
			return false
		})
		return
	}

	key := inferKey{src: source, tgt: target, contra: contra}
	if e.visited.Contains(key) || e.depth >= maxDepth {
		return
	}
	e.visited.Insert(key)
	e.depth++
	defer func() { e.depth-- }()

	srcData, tgtData := db.Lookup(source), db.Lookup(target)
	if u, ok := tgtData.(types.Union); ok {
		e.inferToUnion(source, u, priority, contra)
		return
	}
	if u, ok := srcData.(types.Union); ok {
		for _, m := range u.Members {
			e.inferFrom(m, target, priority, contra)
		}
		return
	}
	if i, ok := tgtData.(types.Intersection); ok {
		for _, m := range i.Members {
			e.inferFrom(source, m, priority, contra)
		}
		return
	}

	sApp, sIsApp := srcData.(types.Application)
	tApp, tIsApp := tgtData.(types.Application)
	if sIsApp && tIsApp && sApp.Def == tApp.Def {
		variances := db.Variances(sApp.Def)
		for i := range tApp.Args {
			flip := variances != nil && variances[i].Contravariant && !variances[i].Covariant
			e.inferFrom(sApp.Args[i], tApp.Args[i], priority, contra != flip)
		}
		return
	}
	if tIsApp {
		e.inferFrom(source, db.Expand(target), priority, contra)
		return
	}
	if sIsApp {
		e.inferFrom(db.Expand(source), target, priority, contra)
		return
	}

	switch t := tgtData.(type) {
	case types.Mapped:
		e.inferToMapped(source, target, t, priority, contra)
	case types.KeyOf:
		if s, ok := srcData.(types.KeyOf); ok {
			e.inferFrom(s.Target, t.Target, priority, !contra)
		}
	case types.IndexedAccess:
		if s, ok := srcData.(types.IndexedAccess); ok {
			e.inferFrom(s.Object, t.Object, priority, contra)
			e.inferFrom(s.Index, t.Index, priority, contra)
		}
	case types.Func:
		e.inferToFunction(source, t, priority, contra)
	case types.Array:
		switch s := srcData.(type) {
		case types.Array:
			e.inferFrom(s.Elem, t.Elem, priority, contra)
		case types.Tuple:
			for _, el := range s.Elements {
				e.inferFrom(e.ctx.elementType(el), t.Elem, priority, contra)
			}
		}
	case types.Tuple:
		e.inferToTuple(source, srcData, t, priority, contra)
	case types.Object:
		e.inferToObject(source, t, priority, contra)
	}
}

// inferToUnion matches the source members the target already names, then infers
// what is left to the naked variables of the target
func (e *Episode) inferToUnion(source types.TypeID, u types.Union, priority Priority, contra bool) {
	db := e.ctx.db
	var naked, others []types.TypeID
	for _, m := range u.Members {
		if i, ok := e.varIndex(m); ok {
			if !e.fixed[i] {
				naked = append(naked, m)
			}
			continue
		}
		others = append(others, m)
	}
	remaining := slices.DeleteFunc(slices.Clone(db.UnionMembers(source)), func(s types.TypeID) bool {
		return slices.Contains(others, s) || slices.Contains(others, db.LiteralBase(s))
	})
	if len(remaining) == 0 {
		return
	}
	rest := db.Union(remaining...)
	for _, o := range others {
		if e.mentionsOpenVars(o) {
			e.inferFrom(rest, o, priority, contra)
		}
	}
	for _, v := range naked {
		e.inferFrom(rest, v, priority, contra)
	}
}

func (e *Episode) inferToMapped(source, target types.TypeID, m types.Mapped, priority Priority, contra bool) {
	c := e.ctx
	db := c.db
	if x, ok := db.IsHomomorphicMapped(target); ok {
		if _, naked := e.varIndex(x); naked {
			if inverted := e.invertMapped(source, x, m); inverted != types.NoType {
				e.inferFrom(inverted, x, max(priority, HomomorphicMappedType), contra)
			}
		}
		return
	}
	shape := c.shapeOf(source)
	if shape == types.NoType {
		return
	}
	props := c.PropertiesOf(shape)
	keys := make([]types.TypeID, 0, len(props))
	values := make([]types.TypeID, 0, len(props))
	for _, p := range props {
		keys = append(keys, db.StringLiteral(p.Name))
		values = append(values, p.Type)
	}
	if obj, ok := db.Lookup(shape).(types.Object); ok && obj.StringIndex != types.NoType {
		keys = append(keys, types.String)
		values = append(values, obj.StringIndex)
	}
	if len(keys) == 0 {
		return
	}
	priority = max(priority, MappedType)
	e.inferFrom(db.Union(keys...), m.Constraint, priority, contra)
	e.inferFrom(db.Union(values...), m.Template, priority, contra)
}

// invertMapped computes the x for which `{ [P in keyof x]: template }` is source
func (e *Episode) invertMapped(source, x types.TypeID, m types.Mapped) types.TypeID {
	c := e.ctx
	db := c.db
	identity := db.IndexedAccess(x, m.Param)
	if m.Template == identity {
		return source
	}
	if a, ok := db.Lookup(source).(types.Array); ok {
		return db.Intern(types.Array{Elem: e.reverseTemplate(a.Elem, m, identity), Readonly: a.Readonly})
	}
	shape := c.shapeOf(source)
	if shape == types.NoType {
		return types.NoType
	}
	props := c.PropertiesOf(shape)
	out := make([]types.Property, len(props))
	for i, p := range props {
		out[i] = types.Property{
			Name:     p.Name,
			Type:     e.reverseTemplate(p.Type, m, identity),
			Optional: p.Optional,
			Readonly: p.Readonly,
		}
	}
	return db.Intern(types.Object{Properties: out})
}

// reverseTemplate infers which x[P] makes the mapped template equal to value
func (e *Episode) reverseTemplate(value types.TypeID, m types.Mapped, identity types.TypeID) types.TypeID {
	c := e.ctx
	inner := c.beginEpisode([]types.TypeID{m.Param})
	defer inner.Close()
	template := c.db.Substitute(m.Template, map[types.TypeID]types.TypeID{identity: inner.Vars[0]})
	inner.infer(value, template, NakedTypeVariable)
	vars, _ := inner.resolve()
	return vars[0].Resolved
}

func (e *Episode) inferToFunction(source types.TypeID, t types.Func, priority Priority, contra bool) {
	sigs := e.ctx.signaturesOf(source)
	if len(sigs) == 0 {
		return
	}
	if len(sigs) == 1 && len(sigs[0].TypeParams) > 0 && len(t.Signatures) == 1 {
		e.inferFromGeneric(sigs[0], t.Signatures[0], priority, contra)
		return
	}
	// overloads are matched from the last
	n := min(len(sigs), len(t.Signatures))
	for i := 0; i < n; i++ {
		e.inferSignatures(sigs[len(sigs)-n+i], t.Signatures[len(t.Signatures)-n+i], priority, contra)
	}
}

// inferFromGeneric infers from a generic source signature. When the target's parameters
// are all variables nothing is known about yet, the source's type parameters are cloned
// and carried into the result. Otherwise the source is instantiated first, against the
// target with the variables of its parameters fixed.
func (e *Episode) inferFromGeneric(s, t types.Signature, priority Priority, contra bool) {
	c := e.ctx
	db := c.db
	if e.canPropagate(t) {
		clones, mapping := db.CloneTypeParams(s.TypeParams)
		e.propagated = append(e.propagated, clones...)
		e.inferSignatures(db.InstantiateSignature(s, mapping), t, priority, contra)
		return
	}
	for _, p := range t.Params {
		e.fixMentioned(p.Type)
	}
	fixed := db.InstantiateSignature(t, e.fixedMapping())
	e.inferSignatures(c.instantiateInContext(s, fixed), t, priority, contra)
}

func (e *Episode) canPropagate(t types.Signature) bool {
	if len(t.Params) == 0 {
		return false
	}
	for _, p := range t.Params {
		i, ok := e.varIndex(p.Type)
		if !ok || e.fixed[i] || e.hasCandidates(i) {
			return false
		}
	}
	return true
}

func (e *Episode) inferSignatures(s, t types.Signature, priority Priority, contra bool) {
	e.inferParams(s.Params, t.Params, priority, !contra)
	e.inferFrom(s.Return, t.Return, priority, contra)
	if s.Predicate != nil && t.Predicate != nil && s.Predicate.Type != types.NoType && t.Predicate.Type != types.NoType {
		e.inferFrom(s.Predicate.Type, t.Predicate.Type, priority, contra)
	}
}

// inferParams matches parameter lists position by position. A target rest parameter
// typed by a variable receives the remaining source parameters as a labelled tuple.
func (e *Episode) inferParams(sources, targets []types.Param, priority Priority, contra bool) {
	db := e.ctx.db
	sp, tp := db.SpreadParams(sources), db.SpreadParams(targets)
	for i, p := range tp {
		if p.Rest {
			remaining := sp[min(i, len(sp)):]
			if _, naked := e.varIndex(p.Type); naked {
				e.inferFrom(paramTuple(db, remaining), p.Type, priority, contra)
				return
			}
			elem := restElement(db, p.Type)
			for _, s := range remaining {
				if s.Rest {
					e.inferFrom(s.Type, p.Type, priority, contra)
					continue
				}
				e.inferFrom(s.Type, elem, priority, contra)
			}
			return
		}
		if i >= len(sp) {
			return
		}
		if sp[i].Rest {
			e.inferFrom(restElement(db, sp[i].Type), p.Type, priority, contra)
			continue
		}
		e.inferFrom(sp[i].Type, p.Type, priority, contra)
	}
}

func paramTuple(db *types.Database, params []types.Param) types.TypeID {
	elems := make([]types.TupleElement, len(params))
	for i, p := range params {
		elems[i] = types.TupleElement{Type: p.Type, Optional: p.Optional, Rest: p.Rest, Label: p.Name}
	}
	return db.Intern(types.Tuple{Elements: elems})
}

func (e *Episode) inferToTuple(source types.TypeID, srcData types.Data, t types.Tuple, priority Priority, contra bool) {
	db := e.ctx.db
	switch s := srcData.(type) {
	case types.Array:
		for _, te := range t.Elements {
			if te.Rest {
				e.inferFrom(source, te.Type, priority, contra)
			} else {
				e.inferFrom(s.Elem, te.Type, priority, contra)
			}
		}
	case types.Tuple:
		r := restIndex(t.Elements)
		if r < 0 {
			for i, te := range t.Elements {
				if i >= len(s.Elements) || s.Elements[i].Rest {
					return
				}
				e.inferFrom(s.Elements[i].Type, te.Type, priority, contra)
			}
			return
		}
		for i := 0; i < r && i < len(s.Elements) && !s.Elements[i].Rest; i++ {
			e.inferFrom(s.Elements[i].Type, t.Elements[i].Type, priority, contra)
		}
		suffix := len(t.Elements) - r - 1
		for j := 0; j < suffix; j++ {
			si, ti := len(s.Elements)-1-j, len(t.Elements)-1-j
			if si < r || s.Elements[si].Rest {
				break
			}
			e.inferFrom(s.Elements[si].Type, t.Elements[ti].Type, priority, contra)
		}
		var middle []types.TupleElement
		if end := len(s.Elements) - suffix; r < end {
			middle = slices.Clone(s.Elements[r:end])
		}
		rest := t.Elements[r]
		if _, naked := e.varIndex(rest.Type); naked {
			e.inferFrom(db.Intern(types.Tuple{Elements: middle}), rest.Type, priority, contra)
			return
		}
		elem := restElement(db, rest.Type)
		for _, m := range middle {
			if m.Rest {
				e.inferFrom(m.Type, rest.Type, priority, contra)
			} else {
				e.inferFrom(m.Type, elem, priority, contra)
			}
		}
	}
}

func (e *Episode) inferToObject(source types.TypeID, t types.Object, priority Priority, contra bool) {
	c := e.ctx
	db := c.db
	shape := c.shapeOf(source)
	if shape == types.NoType {
		return
	}
	for _, tp := range t.Properties {
		if sp, ok := c.PropertyOf(shape, tp.Name); ok {
			e.inferFrom(sp.Type, tp.Type, priority, contra)
		}
	}
	if t.StringIndex == types.NoType && t.NumberIndex == types.NoType {
		return
	}
	var all, numeric []types.TypeID
	for _, p := range c.PropertiesOf(shape) {
		all = append(all, p.Type)
		if isNumericName(p.Name) {
			numeric = append(numeric, p.Type)
		}
	}
	if obj, ok := db.Lookup(shape).(types.Object); ok {
		if obj.StringIndex != types.NoType {
			all = append(all, obj.StringIndex)
		}
		if obj.NumberIndex != types.NoType {
			all = append(all, obj.NumberIndex)
			numeric = append(numeric, obj.NumberIndex)
		}
	}
	if t.StringIndex != types.NoType && len(all) > 0 {
		e.inferFrom(db.Union(all...), t.StringIndex, priority, contra)
	}
	if t.NumberIndex != types.NoType && len(numeric) > 0 {
		e.inferFrom(db.Union(numeric...), t.NumberIndex, priority, contra)
	}
}
