package solver

import (
	"fmt"
	"strconv"

	"github.com/cottand/tsz/frontend/types"
)

// IsSubtype reports whether src is related to tgt in mode
func (c *SolveContext) IsSubtype(src, tgt types.TypeID, mode Mode) bool {
	return c.relate(src, tgt, mode) == nil
}

// Explain is IsSubtype reporting why the relation does not hold. It returns nil when it does.
func (c *SolveContext) Explain(src, tgt types.TypeID, mode Mode) *Failure {
	prev := c.explaining
	c.explaining = true
	defer func() { c.explaining = prev }()
	return c.relate(src, tgt, mode)
}

// Overlaps reports whether a and b are comparable in either direction,
// which is what an equality comparison between them requires
func (c *SolveContext) Overlaps(a, b types.TypeID) bool {
	return c.IsSubtype(a, b, Comparable) || c.IsSubtype(b, a, Comparable)
}

func (c *SolveContext) relate(src, tgt types.TypeID, mode Mode) *Failure {
	if src == tgt {
		return nil
	}
	c.checkVar(src)
	c.checkVar(tgt)
	if related, decided := c.simpleRelation(src, tgt, mode); decided {
		if related {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	}

	r := relation{src: src, tgt: tgt, mode: mode}
	if c.inFlight.Contains(r) {
		// coinductive hypothesis: a cycle back to a pair being compared holds
		return nil
	}
	if c.depth >= maxDepth {
		c.logger.Debug("comparison depth exceeded", "src", c.db.Slog(src), "tgt", c.db.Slog(tgt))
		if !c.explaining {
			return depthFailure
		}
		return &Failure{
			Kind:    RecursionLimitExceeded,
			Source:  src,
			Target:  tgt,
			Message: fmt.Sprintf("Excessive stack depth comparing types '%s' and '%s'.", c.db.Format(src), c.db.Format(tgt)),
		}
	}
	c.inFlight.Insert(r)
	c.depth++
	defer func() {
		c.inFlight.Remove(r)
		c.depth--
	}()

	f := c.structural(src, tgt, mode)
	if f != nil && c.explaining && (f.Source != src || f.Target != tgt) {
		f = c.notRelated(src, tgt, mode, f)
	}
	return f
}

// simpleRelation decides the pairs that need no structural comparison
func (c *SolveContext) simpleRelation(src, tgt types.TypeID, mode Mode) (related, decided bool) {
	switch {
	case src == types.Error || tgt == types.Error:
		return true, true
	case tgt == types.Any || tgt == types.Unknown:
		return true, true
	case src == types.Never:
		return true, true
	case tgt == types.Never:
		return false, true
	case src == types.Any:
		return true, true
	case src == types.Unknown:
		return mode == Comparable, true
	}
	if !c.opts.StrictNullChecks && (src == types.Null || src == types.Undefined) {
		return true, true
	}
	if src == types.Undefined && tgt == types.Void {
		return true, true
	}
	return false, false
}

func childMode(mode Mode) Mode {
	if mode == Comparable {
		return Comparable
	}
	return Strict
}

// reframe replaces the headline of a failure found on an expansion of src or tgt
// by the headline for src and tgt themselves
func (c *SolveContext) reframe(src, tgt types.TypeID, mode Mode, f *Failure) *Failure {
	if f == nil || !c.explaining || f.Kind == RecursionLimitExceeded {
		return f
	}
	return c.notRelated(src, tgt, mode, f.Cause)
}

func (c *SolveContext) structural(src, tgt types.TypeID, mode Mode) *Failure {
	db := c.db
	srcData, tgtData := db.Lookup(src), db.Lookup(tgt)

	if u, ok := srcData.(types.Union); ok {
		return c.relateUnionSource(src, tgt, u, mode)
	}
	if u, ok := tgtData.(types.Union); ok {
		return c.relateToUnion(src, tgt, u, mode)
	}
	if i, ok := tgtData.(types.Intersection); ok {
		for _, m := range i.Members {
			if f := c.relate(src, m, mode); f != nil {
				return c.notRelated(src, tgt, mode, f)
			}
		}
		return nil
	}
	if i, ok := srcData.(types.Intersection); ok {
		for _, m := range i.Members {
			if c.IsSubtype(m, tgt, mode) {
				return nil
			}
		}
		// the members may satisfy an object target only together
		if obj, ok := tgtData.(types.Object); ok {
			return c.relateObject(src, tgt, obj, mode)
		}
		return c.notRelated(src, tgt, mode, nil)
	}

	srcApp, srcIsApp := srcData.(types.Application)
	tgtApp, tgtIsApp := tgtData.(types.Application)
	if srcIsApp && tgtIsApp && srcApp.Def == tgtApp.Def {
		if f, decided := c.relateArguments(src, tgt, srcApp, tgtApp, mode); decided {
			return f
		}
	}
	if srcIsApp {
		return c.reframe(src, tgt, mode, c.relate(db.Expand(src), tgt, mode))
	}
	if tgtIsApp {
		return c.reframe(src, tgt, mode, c.relate(src, db.Expand(tgt), mode))
	}

	if f, decided := c.relateDeferred(src, tgt, srcData, tgtData, mode); decided {
		return f
	}

	switch tgt {
	case types.NonPrimitive:
		if c.isNonPrimitive(srcData) {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	case types.Function:
		if db.IsFunctionLike(src) {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	}

	switch t := tgtData.(type) {
	case types.Intrinsic:
		if lit, ok := srcData.(types.Literal); ok && lit.Base == tgt {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	case types.Literal:
		if mode == Comparable && src == t.Base {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	}

	switch srcData.(type) {
	case types.Intrinsic, types.Literal:
		apparent := db.Apparent(src)
		if _, isObj := tgtData.(types.Object); !isObj || apparent == src {
			return c.notRelated(src, tgt, mode, nil)
		}
		return c.reframe(src, tgt, mode, c.relate(apparent, tgt, mode))
	}

	switch t := tgtData.(type) {
	case types.Object:
		return c.relateObject(src, tgt, t, mode)
	case types.Func:
		return c.relateFunction(src, tgt, t, mode)
	case types.Array:
		return c.relateToArray(src, tgt, srcData, t, mode)
	case types.Tuple:
		return c.relateToTuple(src, tgt, srcData, t, mode)
	}
	return c.notRelated(src, tgt, mode, nil)
}

func (c *SolveContext) isNonPrimitive(data types.Data) bool {
	switch data.(type) {
	case types.Object, types.Func, types.Tuple, types.Array, types.Mapped:
		return true
	}
	return false
}

// relateUnionSource requires every member of the source to be related.
// A comparable source needs only one comparable member.
func (c *SolveContext) relateUnionSource(src, tgt types.TypeID, u types.Union, mode Mode) *Failure {
	if mode == Comparable {
		for _, m := range u.Members {
			if c.IsSubtype(m, tgt, mode) {
				return nil
			}
		}
		return c.notRelated(src, tgt, mode, nil)
	}
	for _, m := range u.Members {
		if f := c.relate(m, tgt, mode); f != nil {
			return c.notRelated(src, tgt, mode, f)
		}
	}
	return nil
}

// relateToUnion requires the source to be related to some member of the target
func (c *SolveContext) relateToUnion(src, tgt types.TypeID, u types.Union, mode Mode) *Failure {
	if src == types.Boolean {
		// boolean is true|false, which may match different members
		if c.IsSubtype(types.True, tgt, mode) && c.IsSubtype(types.False, tgt, mode) {
			return nil
		}
		return c.notRelated(src, tgt, mode, nil)
	}
	for _, m := range u.Members {
		if c.IsSubtype(src, m, mode) {
			return nil
		}
	}
	// T extends A | B relates to A | B through its constraint as a whole
	if constraint := c.baseConstraint(src); constraint != src {
		if c.IsSubtype(constraint, tgt, mode) {
			return nil
		}
	}
	if !c.explaining {
		return c.notRelated(src, tgt, mode, nil)
	}
	// elaborate against the member that shares the source's shape
	var cause *Failure
	for _, m := range u.Members {
		if sameShape(c.db, src, m) {
			cause = c.relate(src, m, mode)
			break
		}
	}
	return c.notRelated(src, tgt, mode, cause)
}

func sameShape(db *types.Database, a, b types.TypeID) bool {
	ka, kb := db.Lookup(a).Kind(), db.Lookup(b).Kind()
	return ka == kb && ka != types.KindIntrinsic && ka != types.KindLiteral
}

// relateArguments compares two applications of one definition argument-wise,
// following the measured variance of each parameter. It does not decide when
// a variance is unmeasurable or still being measured: the expansions must then be compared.
func (c *SolveContext) relateArguments(src, tgt types.TypeID, s, t types.Application, mode Mode) (*Failure, bool) {
	variances := c.db.Variances(s.Def)
	if variances == nil {
		return nil, false
	}
	for _, v := range variances {
		if v.Unmeasurable {
			return nil, false
		}
		// contravariance was measured with strict function types
		if v.Contravariant && !v.Covariant && !c.opts.StrictFunctionTypes {
			return nil, false
		}
	}
	inner := childMode(mode)
	for i, v := range variances {
		sa, ta := s.Args[i], t.Args[i]
		var f *Failure
		switch {
		case v.Covariant && v.Contravariant:
			continue
		case v.Covariant:
			f = c.relate(sa, ta, inner)
		case v.Contravariant:
			f = c.relate(ta, sa, inner)
		default:
			f = c.relate(sa, ta, inner)
			if f == nil {
				f = c.relate(ta, sa, inner)
			}
		}
		if f != nil {
			return c.notRelated(src, tgt, mode, f), true
		}
	}
	return nil, true
}

// relateDeferred handles type parameters, inference variables and the keyof,
// indexed access and mapped types that could not be reduced yet
func (c *SolveContext) relateDeferred(src, tgt types.TypeID, srcData, tgtData types.Data, mode Mode) (*Failure, bool) {
	db := c.db
	switch s := srcData.(type) {
	case types.TypeParam:
		constraint := db.Constraint(src)
		if constraint == types.NoType {
			if mode == Comparable {
				return nil, true
			}
			constraint = types.Unknown
		}
		if f := c.relate(constraint, tgt, mode); f != nil {
			return c.notRelated(src, tgt, mode, nil), true
		}
		return nil, true
	case types.InferVar:
		return c.notRelated(src, tgt, mode, nil), true
	case types.KeyOf:
		if t, ok := tgtData.(types.KeyOf); ok {
			// keyof is contravariant in its operand
			return c.reframe(src, tgt, mode, c.relate(t.Target, s.Target, mode)), true
		}
		if evaluated := db.Evaluate(src); evaluated != src {
			return c.relate(evaluated, tgt, mode), true
		}
		return c.reframe(src, tgt, mode, c.relate(db.Union(types.String, types.Number, types.Symbol), tgt, mode)), true
	case types.IndexedAccess:
		if evaluated := db.Evaluate(src); evaluated != src {
			return c.relate(evaluated, tgt, mode), true
		}
		object, index := c.baseConstraint(s.Object), c.baseConstraint(s.Index)
		if object != s.Object || index != s.Index {
			if bound := db.IndexedAccess(object, index); bound != types.Error && bound != src {
				return c.reframe(src, tgt, mode, c.relate(bound, tgt, mode)), true
			}
		}
		return c.notRelated(src, tgt, mode, nil), true
	case types.Mapped:
		if evaluated := db.Evaluate(src); evaluated != src {
			return c.relate(evaluated, tgt, mode), true
		}
		if t, ok := tgtData.(types.Mapped); ok && t.Constraint == s.Constraint {
			template := db.Substitute(s.Template, map[types.TypeID]types.TypeID{s.Param: t.Param})
			return c.reframe(src, tgt, mode, c.relate(template, t.Template, mode)), true
		}
	}

	switch t := tgtData.(type) {
	case types.TypeParam:
		if mode == Comparable && db.Constraint(tgt) == types.NoType {
			return nil, true
		}
		return c.notRelated(src, tgt, mode, nil), true
	case types.InferVar, types.IndexedAccess:
		if evaluated := db.Evaluate(tgt); evaluated != tgt {
			return c.relate(src, evaluated, mode), true
		}
		return c.notRelated(src, tgt, mode, nil), true
	case types.KeyOf:
		if evaluated := db.Evaluate(tgt); evaluated != tgt {
			return c.relate(src, evaluated, mode), true
		}
		// S is assignable to keyof T when it is assignable to the keys of T's constraint
		if constraint := c.baseConstraint(t.Target); constraint != t.Target {
			return c.reframe(src, tgt, mode, c.relate(src, db.KeyOf(constraint), mode)), true
		}
		return c.notRelated(src, tgt, mode, nil), true
	case types.Mapped:
		if evaluated := db.Evaluate(tgt); evaluated != tgt {
			return c.relate(src, evaluated, mode), true
		}
		return c.notRelated(src, tgt, mode, nil), true
	}
	return nil, false
}

// baseConstraint is the declared constraint of a type parameter, or t itself
func (c *SolveContext) baseConstraint(t types.TypeID) types.TypeID {
	if _, ok := c.db.Lookup(t).(types.TypeParam); ok {
		if constraint := c.db.Constraint(t); constraint != types.NoType {
			return constraint
		}
	}
	return t
}

// shapeOf is the type whose properties values of t expose, or NoType
func (c *SolveContext) shapeOf(t types.TypeID) types.TypeID {
	db := c.db
	switch db.Lookup(t).(type) {
	case types.Object, types.Intersection:
		return t
	case types.Application:
		return c.shapeOf(db.Expand(t))
	case types.Array, types.Tuple, types.Func, types.Intrinsic, types.Literal:
		apparent := db.Apparent(t)
		if apparent == t {
			return types.NoType
		}
		return apparent
	case types.Mapped:
		if evaluated := db.Evaluate(t); evaluated != t {
			return c.shapeOf(evaluated)
		}
	case types.TypeParam:
		if constraint := db.Constraint(t); constraint != types.NoType {
			return c.shapeOf(constraint)
		}
	}
	return types.NoType
}

// PropertiesOf lists the properties of an object shape, merging the members of intersections
func (c *SolveContext) PropertiesOf(shape types.TypeID) []types.Property {
	db := c.db
	switch data := db.Lookup(shape).(type) {
	case types.Object:
		return data.Properties
	case types.Intersection:
		var names []string
		seen := make(map[string]struct{})
		for _, m := range data.Members {
			for _, p := range c.PropertiesOf(c.shapeOf(m)) {
				if _, dup := seen[p.Name]; !dup {
					seen[p.Name] = struct{}{}
					names = append(names, p.Name)
				}
			}
		}
		props := make([]types.Property, 0, len(names))
		for _, name := range names {
			if p, ok := c.PropertyOf(shape, name); ok {
				props = append(props, p)
			}
		}
		return props
	case types.Application:
		return c.PropertiesOf(db.Expand(shape))
	}
	return nil
}

// PropertyOf finds property name on the values of t, looking through the apparent
// type of primitives, arrays and functions and the members of intersections
func (c *SolveContext) PropertyOf(t types.TypeID, name string) (types.Property, bool) {
	db := c.db
	if i, ok := db.Lookup(t).(types.Intersection); ok {
		var found []types.Property
		for _, m := range i.Members {
			if p, ok := c.PropertyOf(m, name); ok {
				found = append(found, p)
			}
		}
		if len(found) == 0 {
			return types.Property{}, false
		}
		merged := found[0]
		for _, p := range found[1:] {
			merged.Type = db.Intersection(merged.Type, p.Type)
			merged.Optional = merged.Optional && p.Optional
			merged.Readonly = merged.Readonly && p.Readonly
		}
		return merged, true
	}
	shape := c.shapeOf(t)
	if shape == types.NoType {
		return types.Property{}, false
	}
	return db.Property(shape, name)
}

func (c *SolveContext) relateObject(src, tgt types.TypeID, t types.Object, mode Mode) *Failure {
	db := c.db
	shape := c.shapeOf(src)
	if shape == types.NoType {
		return c.notRelated(src, tgt, mode, nil)
	}
	for _, tp := range t.Properties {
		sp, ok := c.PropertyOf(shape, tp.Name)
		if !ok {
			if tp.Optional {
				continue
			}
			if !c.explaining {
				return shapeFailure
			}
			return c.notRelated(src, tgt, mode, c.fail(src, tgt, nil, "Property '%s' is missing in type '%s' but required in type '%s'.",
				tp.Name, db.Format(src), db.Format(tgt)))
		}
		if sp.Optional && !tp.Optional && mode != Comparable {
			if !c.explaining {
				return shapeFailure
			}
			return c.notRelated(src, tgt, mode, c.fail(src, tgt, nil, "Property '%s' is optional in type '%s' but required in type '%s'.",
				tp.Name, db.Format(src), db.Format(tgt)))
		}
		propMode := childMode(mode)
		if propMode == Strict && (tp.Method || sp.Method) {
			propMode = Bivariant
		}
		target := tp.Type
		if tp.Optional && !sp.Optional && !c.opts.ExactOptionalPropertyTypes {
			target = db.Union(target, types.Undefined)
		}
		if f := c.relate(sp.Type, target, propMode); f != nil {
			return c.notRelated(src, tgt, mode, c.propertyFailure(src, tgt, tp.Name, f))
		}
	}
	if t.StringIndex != types.NoType {
		if f := c.relateToIndex(shape, t.StringIndex, false, mode); f != nil {
			return c.notRelated(src, tgt, mode, f)
		}
	}
	if t.NumberIndex != types.NoType {
		if f := c.relateToIndex(shape, t.NumberIndex, true, mode); f != nil {
			return c.notRelated(src, tgt, mode, f)
		}
	}
	return nil
}

// relateToIndex checks the properties and index signatures of shape against
// an index signature of the target. Numeric signatures only constrain numeric names.
func (c *SolveContext) relateToIndex(shape, index types.TypeID, numeric bool, mode Mode) *Failure {
	db := c.db
	inner := childMode(mode)
	if obj, ok := db.Lookup(shape).(types.Object); ok {
		sourceIndex := obj.StringIndex
		if numeric && obj.NumberIndex != types.NoType {
			sourceIndex = obj.NumberIndex
		}
		if sourceIndex != types.NoType {
			if f := c.relate(sourceIndex, index, inner); f != nil {
				return c.fail(shape, index, f, "'%s' index signatures are incompatible.", indexKind(numeric))
			}
		}
	}
	for _, p := range c.PropertiesOf(shape) {
		if numeric && !isNumericName(p.Name) {
			continue
		}
		t := p.Type
		if p.Optional {
			t = db.Union(t, types.Undefined)
		}
		if f := c.relate(t, index, inner); f != nil {
			return c.fail(shape, index, f, "Property '%s' is incompatible with index signature.", p.Name)
		}
	}
	return nil
}

func indexKind(numeric bool) string {
	if numeric {
		return "number"
	}
	return "string"
}

func isNumericName(name string) bool {
	_, err := strconv.ParseFloat(name, 64)
	return err == nil
}

// CallSignatures lists the signatures values of t can be called with,
// looking through applications, intersections and type parameter constraints
func (c *SolveContext) CallSignatures(t types.TypeID) []types.Signature {
	return c.signaturesOf(t)
}

// signaturesOf lists the call signatures of t
func (c *SolveContext) signaturesOf(t types.TypeID) []types.Signature {
	db := c.db
	switch data := db.Lookup(t).(type) {
	case types.Func:
		return data.Signatures
	case types.Intersection:
		var sigs []types.Signature
		for _, m := range data.Members {
			sigs = append(sigs, c.signaturesOf(m)...)
		}
		return sigs
	case types.Application:
		return c.signaturesOf(db.Expand(t))
	case types.TypeParam:
		if constraint := db.Constraint(t); constraint != types.NoType {
			return c.signaturesOf(constraint)
		}
	}
	return nil
}

// relateFunction requires every target signature to be matched by some source signature
func (c *SolveContext) relateFunction(src, tgt types.TypeID, t types.Func, mode Mode) *Failure {
	sigs := c.signaturesOf(src)
	if len(sigs) == 0 {
		if !c.explaining {
			return shapeFailure
		}
		return c.notRelated(src, tgt, mode, c.fail(src, tgt, nil, "Type '%s' provides no match for the signature '%s'.",
			c.db.Format(src), c.db.FormatSignature(t.Signatures[0])))
	}
	for _, ts := range t.Signatures {
		var first *Failure
		matched := false
		for _, ss := range sigs {
			f := c.relateSignature(ss, ts, mode)
			if f == nil {
				matched = true
				break
			}
			if first == nil {
				first = f
			}
		}
		if !matched {
			if len(sigs) > 1 {
				first = nil
			}
			return c.notRelated(src, tgt, mode, first)
		}
	}
	return nil
}

func (c *SolveContext) relateToArray(src, tgt types.TypeID, srcData types.Data, t types.Array, mode Mode) *Failure {
	inner := childMode(mode)
	switch s := srcData.(type) {
	case types.Array:
		if s.Readonly && !t.Readonly && mode != Comparable {
			if !c.explaining {
				return shapeFailure
			}
			return c.notRelated(src, tgt, mode, c.fail(src, tgt, nil, "The type '%s' is 'readonly' and cannot be assigned to the mutable type '%s'.",
				c.db.Format(src), c.db.Format(tgt)))
		}
		if f := c.relate(s.Elem, t.Elem, inner); f != nil {
			return c.notRelated(src, tgt, mode, f)
		}
		return nil
	case types.Tuple:
		for _, e := range s.Elements {
			if f := c.relate(c.elementType(e), t.Elem, inner); f != nil {
				return c.notRelated(src, tgt, mode, f)
			}
		}
		return nil
	}
	return c.notRelated(src, tgt, mode, nil)
}

// elementType is the type of one value of a tuple element; for rest elements, of the spread array
func (c *SolveContext) elementType(e types.TupleElement) types.TypeID {
	if !e.Rest {
		return e.Type
	}
	return c.db.IndexedAccess(e.Type, types.Number)
}

func restIndex(elems []types.TupleElement) int {
	for i, e := range elems {
		if e.Rest {
			return i
		}
	}
	return -1
}

func requiredElements(elems []types.TupleElement) int {
	n := 0
	for _, e := range elems {
		if !e.Optional && !e.Rest {
			n++
		}
	}
	return n
}

func (c *SolveContext) relateToTuple(src, tgt types.TypeID, srcData types.Data, t types.Tuple, mode Mode) *Failure {
	switch s := srcData.(type) {
	case types.Tuple:
		if f := c.relateTuples(src, tgt, s, t, mode); f != nil {
			return c.notRelated(src, tgt, mode, f)
		}
		return nil
	case types.Array:
		if len(t.Elements) == 1 && t.Elements[0].Rest {
			return c.reframe(src, tgt, mode, c.relate(src, t.Elements[0].Type, mode))
		}
		if !c.explaining {
			return shapeFailure
		}
		return c.notRelated(src, tgt, mode, c.fail(src, tgt, nil,
			"Target requires %d element(s) but source may have fewer.", requiredElements(t.Elements)))
	}
	return c.notRelated(src, tgt, mode, nil)
}

func (c *SolveContext) relateTuples(src, tgt types.TypeID, s, t types.Tuple, mode Mode) *Failure {
	inner := childMode(mode)
	sElems, tElems := s.Elements, t.Elements
	sRest, tRest := restIndex(sElems), restIndex(tElems)
	if sMin, tMin := requiredElements(sElems), requiredElements(tElems); sMin < tMin && mode != Comparable {
		return c.fail(src, tgt, nil, "Source has %d element(s) but target requires %d.", sMin, tMin)
	}
	position := func(si, ti int, f *Failure) *Failure {
		return c.fail(src, tgt, f, "Type at position %d in source is not compatible with type at position %d in target.", si, ti)
	}

	if tRest < 0 {
		if sRest >= 0 {
			return c.fail(src, tgt, nil, "Target allows only %d element(s) but source may have more.", len(tElems))
		}
		if len(sElems) > len(tElems) {
			return c.fail(src, tgt, nil, "Source has %d element(s) but target allows only %d.", len(sElems), len(tElems))
		}
		for i, se := range sElems {
			if f := c.relate(se.Type, tElems[i].Type, inner); f != nil {
				return position(i, i, f)
			}
		}
		return nil
	}

	suffix := len(tElems) - tRest - 1
	for i := 0; i < tRest && i < len(sElems); i++ {
		if f := c.relate(c.elementType(sElems[i]), tElems[i].Type, inner); f != nil {
			return position(i, i, f)
		}
	}
	for j := 0; j < suffix; j++ {
		si, ti := len(sElems)-1-j, len(tElems)-1-j
		if si < tRest {
			return c.fail(src, tgt, nil, "Source has %d element(s) but target requires %d.", len(sElems), len(tElems)-1)
		}
		if f := c.relate(c.elementType(sElems[si]), tElems[ti].Type, inner); f != nil {
			return position(si, ti, f)
		}
	}
	restTarget := tElems[tRest]
	for i := tRest; i < len(sElems)-suffix; i++ {
		se := sElems[i]
		var f *Failure
		if se.Rest {
			f = c.relate(se.Type, restTarget.Type, inner)
		} else {
			f = c.relate(se.Type, c.elementType(restTarget), inner)
		}
		if f != nil {
			return position(i, tRest, f)
		}
	}
	return nil
}
