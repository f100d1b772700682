package types

import "fmt"

// Variance says in which directions arguments of one definition parameter may
// be compared. Both flags set is bivariant (the parameter is unused), neither is invariant.
type Variance struct {
	Covariant, Contravariant bool
	// Unmeasurable parameters occur in positions where argument-wise comparison
	// is unsound (keyof, indexed access, mapped constraints, method parameters);
	// applications must then be compared by their expansion.
	Unmeasurable bool
}

var (
	VarianceBivariant     = Variance{Covariant: true, Contravariant: true}
	VarianceCovariant     = Variance{Covariant: true}
	VarianceContravariant = Variance{Contravariant: true}
	VarianceInvariant     = Variance{}
)

func (v Variance) String() string {
	var s string
	switch {
	case v.Covariant && v.Contravariant:
		s = "bivariant"
	case v.Covariant:
		s = "covariant"
	case v.Contravariant:
		s = "contravariant"
	default:
		s = "invariant"
	}
	if v.Unmeasurable {
		s += " (unmeasurable)"
	}
	return s
}

type polarity int8

const (
	positive polarity = 1
	negative polarity = -1
)

type occurrences struct {
	positive, negative, unmeasurable bool
}

// Variances returns the variance of each parameter of definition id, measuring
// it on first use by walking the body and recording the polarity of every
// occurrence of the parameter. Occurrences inside other applications compose with
// that definition's variances; a definition still being measured contributes none.
func (db *Database) Variances(id DefID) []Variance {
	def := db.def(id)
	if def.variances != nil {
		return def.variances
	}
	if def.Body == NoType {
		panic(fmt.Sprintf("variance of %s requested before it was defined", def.Name))
	}
	if def.measuring {
		return nil
	}
	def.measuring = true
	defer func() { def.measuring = false }()

	variances := make([]Variance, len(def.Params))
	for i, p := range def.Params {
		var occ occurrences
		db.measure(def.Body, p, positive, &occ, make(map[polarizedType]struct{}))
		variances[i] = Variance{
			Covariant:     !occ.negative,
			Contravariant: !occ.positive,
			Unmeasurable:  occ.unmeasurable,
		}
	}
	def.variances = variances
	db.logger.Debug("measured variance", "definition", def.Name, "variances", variances)
	return variances
}

type polarizedType struct {
	t   TypeID
	pol polarity
}

func (o *occurrences) record(pol polarity) {
	if pol == positive {
		o.positive = true
	} else {
		o.negative = true
	}
}

func (db *Database) measure(t, param TypeID, pol polarity, occ *occurrences, visited map[polarizedType]struct{}) {
	if t == NoType {
		return
	}
	if t == param {
		occ.record(pol)
		return
	}
	key := polarizedType{t, pol}
	if _, ok := visited[key]; ok {
		return
	}
	visited[key] = struct{}{}

	walk := func(t TypeID, pol polarity) { db.measure(t, param, pol, occ, visited) }
	unmeasurable := func(t TypeID) {
		if db.ContainsTypeParams(t, []TypeID{param}) {
			occ.unmeasurable = true
			occ.positive, occ.negative = true, true
		}
	}
	switch data := db.Lookup(t).(type) {
	case Intrinsic, Literal, TypeParam, InferVar:
	case Union:
		for _, m := range data.Members {
			walk(m, pol)
		}
	case Intersection:
		for _, m := range data.Members {
			walk(m, pol)
		}
	case Object:
		for _, p := range data.Properties {
			if p.Method {
				db.measureMethod(p.Type, param, pol, occ, visited)
				continue
			}
			walk(p.Type, pol)
		}
		walk(data.StringIndex, pol)
		walk(data.NumberIndex, pol)
	case Func:
		for _, sig := range data.Signatures {
			for _, p := range sig.Params {
				walk(p.Type, -pol)
			}
			walk(sig.Return, pol)
			if sig.Predicate != nil {
				walk(sig.Predicate.Type, pol)
			}
		}
	case Tuple:
		for _, e := range data.Elements {
			walk(e.Type, pol)
		}
	case Array:
		walk(data.Elem, pol)
	case Application:
		inner := db.Variances(data.Def)
		if inner == nil {
			// recursive reference to a definition being measured
			for _, arg := range data.Args {
				walk(arg, pol)
			}
			return
		}
		for i, arg := range data.Args {
			v := inner[i]
			if v.Unmeasurable {
				unmeasurable(arg)
				continue
			}
			if !v.Contravariant {
				walk(arg, pol)
			}
			if !v.Covariant {
				walk(arg, -pol)
			}
		}
	case Mapped:
		walk(data.Template, pol)
		unmeasurable(data.Constraint)
	case KeyOf:
		unmeasurable(data.Target)
	case IndexedAccess:
		unmeasurable(data.Object)
		unmeasurable(data.Index)
	default:
		panic(unexpectedData(data))
	}
}

// measureMethod walks a method's signature: its return is ordinary, its
// parameters are compared bivariantly and so cannot be measured
func (db *Database) measureMethod(t, param TypeID, pol polarity, occ *occurrences, visited map[polarizedType]struct{}) {
	fn, ok := db.Lookup(t).(Func)
	if !ok {
		db.measure(t, param, pol, occ, visited)
		return
	}
	for _, sig := range fn.Signatures {
		for _, p := range sig.Params {
			if db.ContainsTypeParams(p.Type, []TypeID{param}) {
				occ.unmeasurable = true
				occ.record(pol)
			}
		}
		db.measure(sig.Return, param, pol, occ, visited)
	}
}
