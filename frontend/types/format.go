package types

import (
	"math"
	"strconv"
	"strings"

	"github.com/cottand/tsz/util"
)

// formatNumber renders a number literal the way JavaScript prints it
func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	case v == math.Trunc(v) && math.Abs(v) < 1e21:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Format renders t in TypeScript syntax, as it appears in diagnostic messages
func (db *Database) Format(t TypeID) string {
	var sb strings.Builder
	db.format(&sb, t, precTop)
	return sb.String()
}

func (db *Database) FormatSignature(sig Signature) string {
	var sb strings.Builder
	db.formatSignature(&sb, sig, " => ")
	return sb.String()
}

// precedence of the context a type is printed in, to decide on parentheses
type precedence int

const (
	precTop precedence = iota
	precUnion
	precIntersection
	precPostfix
)

func (db *Database) format(sb *strings.Builder, t TypeID, prec precedence) {
	if t == NoType {
		sb.WriteString("?")
		return
	}
	switch data := db.Lookup(t).(type) {
	case Intrinsic:
		if t == Error {
			sb.WriteString("any")
			return
		}
		sb.WriteString(data.Name)
	case Literal:
		switch data.LitKind {
		case LitString:
			sb.WriteString(strconv.Quote(data.Value))
		case LitBigInt:
			sb.WriteString(data.Value)
			sb.WriteString("n")
		case LitEnum:
			sb.WriteString(data.Enum)
			sb.WriteString(".")
			sb.WriteString(data.Value)
		default:
			sb.WriteString(data.Value)
		}
	case Union:
		db.formatList(sb, data.Members, " | ", prec > precUnion, precUnion)
	case Intersection:
		db.formatList(sb, data.Members, " & ", prec > precIntersection, precIntersection)
	case Object:
		db.formatObject(sb, data)
	case Func:
		if len(data.Signatures) == 1 {
			if prec > precTop {
				sb.WriteString("(")
			}
			db.formatSignature(sb, data.Signatures[0], " => ")
			if prec > precTop {
				sb.WriteString(")")
			}
			return
		}
		sb.WriteString("{ ")
		for _, sig := range data.Signatures {
			db.formatSignature(sb, sig, ": ")
			sb.WriteString("; ")
		}
		sb.WriteString("}")
	case Tuple:
		if len(data.Elements) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[")
		for i, e := range data.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			if e.Rest {
				sb.WriteString("...")
			}
			if e.Label != "" {
				sb.WriteString(e.Label)
				if e.Optional {
					sb.WriteString("?")
				}
				sb.WriteString(": ")
				db.format(sb, e.Type, precTop)
				continue
			}
			if e.Optional {
				db.format(sb, e.Type, precPostfix)
				sb.WriteString("?")
				continue
			}
			db.format(sb, e.Type, precTop)
		}
		sb.WriteString("]")
	case Array:
		if data.Readonly {
			sb.WriteString("readonly ")
		}
		db.format(sb, data.Elem, precPostfix)
		sb.WriteString("[]")
	case Mapped:
		sb.WriteString("{ ")
		sb.WriteString(modifierPrefix(data.Readonly))
		if data.Readonly != ModNone {
			sb.WriteString("readonly ")
		}
		sb.WriteString("[")
		db.format(sb, data.Param, precTop)
		sb.WriteString(" in ")
		db.format(sb, data.Constraint, precTop)
		sb.WriteString("]")
		sb.WriteString(modifierPrefix(data.Optional))
		if data.Optional != ModNone {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		db.format(sb, data.Template, precTop)
		sb.WriteString("; }")
	case Application:
		sb.WriteString(db.def(data.Def).Name)
		if len(data.Args) > 0 {
			sb.WriteString("<")
			db.formatList(sb, data.Args, ", ", false, precTop)
			sb.WriteString(">")
		}
	case TypeParam:
		sb.WriteString(data.Name)
	case InferVar:
		sb.WriteString(data.Name)
	case KeyOf:
		if prec > precIntersection {
			sb.WriteString("(")
		}
		sb.WriteString("keyof ")
		db.format(sb, data.Target, precPostfix)
		if prec > precIntersection {
			sb.WriteString(")")
		}
	case IndexedAccess:
		db.format(sb, data.Object, precPostfix)
		sb.WriteString("[")
		db.format(sb, data.Index, precTop)
		sb.WriteString("]")
	default:
		panic(unexpectedData(data))
	}
}

func modifierPrefix(m Modifier) string {
	switch m {
	case ModAdd:
		return "+"
	case ModRemove:
		return "-"
	}
	return ""
}

func (db *Database) formatList(sb *strings.Builder, ts []TypeID, sep string, parens bool, prec precedence) {
	if parens {
		sb.WriteString("(")
	}
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(sep)
		}
		db.format(sb, t, prec+1)
	}
	if parens {
		sb.WriteString(")")
	}
}

func (db *Database) formatObject(sb *strings.Builder, obj Object) {
	if len(obj.Properties) == 0 && obj.StringIndex == NoType && obj.NumberIndex == NoType {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{ ")
	if obj.StringIndex != NoType {
		sb.WriteString("[x: string]: ")
		db.format(sb, obj.StringIndex, precTop)
		sb.WriteString("; ")
	}
	if obj.NumberIndex != NoType {
		sb.WriteString("[x: number]: ")
		db.format(sb, obj.NumberIndex, precTop)
		sb.WriteString("; ")
	}
	for _, p := range obj.Properties {
		if p.Readonly {
			sb.WriteString("readonly ")
		}
		sb.WriteString(formatPropertyName(p.Name))
		if p.Optional {
			sb.WriteString("?")
		}
		if sigs := db.FunctionSignatures(p.Type); p.Method && len(sigs) == 1 {
			db.formatSignature(sb, sigs[0], ": ")
		} else {
			sb.WriteString(": ")
			db.format(sb, p.Type, precTop)
		}
		sb.WriteString("; ")
	}
	sb.WriteString("}")
}

func formatPropertyName(name string) string {
	if name == "" {
		return `""`
	}
	for i, r := range name {
		ok := r == '_' || r == '$' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || i > 0 && '0' <= r && r <= '9'
		if !ok {
			if _, err := strconv.Atoi(name); err == nil {
				return name
			}
			return strconv.Quote(name)
		}
	}
	return name
}

// formatSignature writes `<T>(a: T) => R`, with arrow as the separator before the return type
func (db *Database) formatSignature(sb *strings.Builder, sig Signature, arrow string) {
	if len(sig.TypeParams) > 0 {
		sb.WriteString("<")
		sb.WriteString(util.JoinString(sig.TypeParams, ", ", func(tp TypeID) string {
			s := db.Format(tp)
			if c := db.Constraint(tp); c != NoType {
				s += " extends " + db.Format(c)
			}
			return s
		}))
		sb.WriteString(">")
	}
	sb.WriteString("(")
	for i, p := range sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Rest {
			sb.WriteString("...")
		}
		sb.WriteString(p.Name)
		if p.Optional {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		db.format(sb, p.Type, precTop)
	}
	sb.WriteString(")")
	sb.WriteString(arrow)
	if pred := sig.Predicate; pred != nil {
		if pred.Asserts {
			sb.WriteString("asserts ")
		}
		sb.WriteString(pred.ParamName)
		if pred.Type != NoType {
			sb.WriteString(" is ")
			db.format(sb, pred.Type, precTop)
		}
		return
	}
	db.format(sb, sig.Return, precTop)
}
