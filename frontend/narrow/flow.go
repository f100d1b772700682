package narrow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/types"
)

// Ref is a narrowable reference: a binding, or a property path below one
type Ref struct {
	Symbol ast.SymbolID
	// Path is the dotted property path from the binding, empty for the binding itself
	Path string
}

func (r Ref) Property(name string) Ref {
	if r.Path == "" {
		return Ref{Symbol: r.Symbol, Path: name}
	}
	return Ref{Symbol: r.Symbol, Path: r.Path + "." + name}
}

// Within reports whether r is other or a property path below it
func (r Ref) Within(other Ref) bool {
	if r.Symbol != other.Symbol {
		return false
	}
	return other.Path == "" || r.Path == other.Path || strings.HasPrefix(r.Path, other.Path+".")
}

func (r Ref) String() string {
	if r.Path == "" {
		return fmt.Sprintf("#%d", r.Symbol)
	}
	return fmt.Sprintf("#%d.%s", r.Symbol, r.Path)
}

type refHasher struct{}

func (refHasher) Hash(r Ref) uint32 {
	h := uint32(r.Symbol)*16777619 ^ 2166136261
	for i := 0; i < len(r.Path); i++ {
		h = (h ^ uint32(r.Path[i])) * 16777619
	}
	return h
}

func (refHasher) Equal(a, b Ref) bool { return a == b }

type State uint8

const (
	// Declared facts carry the declared type, or the type of the initializer
	Declared State = iota
	// Narrowed facts were refined by a guard or an assignment
	Narrowed
	// WidenedAtJoin facts are the union of what the branches meeting at a join knew
	WidenedAtJoin
	// Invalidated facts no longer trust any narrowing: Type is back to the declared type
	Invalidated
)

var stateNames = [...]string{
	Declared:      "declared",
	Narrowed:      "narrowed",
	WidenedAtJoin: "widened at join",
	Invalidated:   "invalidated",
}

func (s State) String() string { return stateNames[s] }

// Fact is what is known about one reference at one program point
type Fact struct {
	State State
	Type  types.TypeID
	// Declared is the type the reference reverts to when its narrowing is dropped
	Declared types.TypeID
	// Provenance is the guard or assignment that produced Type
	Provenance ast.Range
	// Assigned is set once the reference is definitely assigned on every path here
	Assigned bool
}

// Flow is the knowledge at one program point. It is a value: every operation
// returns a new Flow and leaves the receiver untouched, so branches can fork freely.
// The zero Flow is reachable and knows nothing.
type Flow struct {
	facts       *immutable.Map[Ref, Fact]
	unreachable bool
}

func NewFlow() Flow {
	return Flow{facts: immutable.NewMap[Ref, Fact](refHasher{})}
}

func (f Flow) init() *immutable.Map[Ref, Fact] {
	if f.facts == nil {
		return immutable.NewMap[Ref, Fact](refHasher{})
	}
	return f.facts
}

// Unreachable reports whether control cannot reach this point
func (f Flow) Unreachable() bool {
	return f.unreachable
}

// MarkUnreachable is the flow after a return, throw, break or continue
func (f Flow) MarkUnreachable() Flow {
	return Flow{facts: f.init(), unreachable: true}
}

func (f Flow) Lookup(r Ref) (Fact, bool) {
	if f.facts == nil {
		return Fact{}, false
	}
	return f.facts.Get(r)
}

// Declare records a binding coming into scope with type t
func (f Flow) Declare(r Ref, t types.TypeID, assigned bool) Flow {
	facts := dropBelow(f.init(), r)
	return Flow{
		facts:       facts.Set(r, Fact{State: Declared, Type: t, Declared: t, Assigned: assigned}),
		unreachable: f.unreachable,
	}
}

// Narrow records that r has type t because of the guard at at. declared is used when
// nothing was known about r yet, as for a property path narrowed for the first time.
func (f Flow) Narrow(r Ref, declared, t types.TypeID, at ast.Range) Flow {
	facts := f.init()
	fact, ok := facts.Get(r)
	if !ok {
		fact = Fact{Declared: declared, Assigned: true}
	}
	fact.State, fact.Type, fact.Provenance = Narrowed, t, at
	return Flow{facts: facts.Set(r, fact), unreachable: f.unreachable}
}

// Assign records that a value of type t was stored in r. What was known about
// properties below r no longer holds.
func (f Flow) Assign(r Ref, declared, t types.TypeID, at ast.Range) Flow {
	facts := dropBelow(f.init(), r)
	fact, ok := facts.Get(r)
	if !ok {
		fact = Fact{Declared: declared}
	}
	fact.State, fact.Type, fact.Provenance, fact.Assigned = Narrowed, t, at, true
	return Flow{facts: facts.Set(r, fact), unreachable: f.unreachable}
}

// Invalidate drops the narrowing of r and of the properties below it
func (f Flow) Invalidate(r Ref) Flow {
	facts := dropBelow(f.init(), r)
	if fact, ok := facts.Get(r); ok {
		fact.State, fact.Type, fact.Provenance = Invalidated, fact.Declared, ast.Range{}
		facts = facts.Set(r, fact)
	}
	return Flow{facts: facts, unreachable: f.unreachable}
}

// dropBelow deletes the facts of the property paths strictly below r
func dropBelow(facts *immutable.Map[Ref, Fact], r Ref) *immutable.Map[Ref, Fact] {
	itr := facts.Iterator()
	for !itr.Done() {
		ref, _, _ := itr.Next()
		if ref != r && ref.Within(r) {
			facts = facts.Delete(ref)
		}
	}
	return facts
}

// Join merges the flows of the predecessors of a join point. Unreachable
// predecessors contribute nothing; a reference some reachable predecessor knows
// nothing about is dropped, falling back to its declared type.
func Join(db *types.Database, preds ...Flow) Flow {
	var live []Flow
	for _, p := range preds {
		if !p.unreachable {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return NewFlow().MarkUnreachable()
	case 1:
		return Flow{facts: live[0].init()}
	}

	joined := immutable.NewMap[Ref, Fact](refHasher{})
	itr := live[0].init().Iterator()
	for !itr.Done() {
		ref, first, _ := itr.Next()
		fact := first
		members := []types.TypeID{first.Type}
		allDeclared := first.State == Declared
		complete := true
		for _, other := range live[1:] {
			o, ok := other.Lookup(ref)
			if !ok {
				complete = false
				break
			}
			members = append(members, o.Type)
			fact.Assigned = fact.Assigned && o.Assigned
			allDeclared = allDeclared && o.State == Declared && o.Type == first.Type
			if o.State == Invalidated {
				fact.State = Invalidated
			}
			if o.Provenance != first.Provenance {
				fact.Provenance = ast.Range{}
			}
		}
		if !complete {
			continue
		}
		fact.Type = db.Union(members...)
		switch {
		case fact.State == Invalidated:
		case allDeclared:
			fact.State = Declared
		default:
			fact.State = WidenedAtJoin
		}
		joined = joined.Set(ref, fact)
	}
	return Flow{facts: joined}
}

// maxLoopIterations bounds the fixpoint iteration at a loop head
const maxLoopIterations = 8

// Loop computes the flow at the head of a loop entered with entry. body runs the loop
// body from a head flow and returns the flows reaching the back edges. Narrowing
// established in the body only holds at the head once joined with the entry flow.
func Loop(db *types.Database, entry Flow, body func(head Flow) []Flow) Flow {
	head := entry
	for range maxLoopIterations {
		next := Join(db, append([]Flow{entry}, body(head)...)...)
		if next.Equal(head) {
			return head
		}
		head = next
	}
	// no fixpoint: forget what the body changed
	settled := entry.init()
	itr := head.init().Iterator()
	for !itr.Done() {
		ref, fact, _ := itr.Next()
		if before, ok := entry.Lookup(ref); !ok || before != fact {
			fact.State, fact.Type, fact.Provenance = WidenedAtJoin, fact.Declared, ast.Range{}
			settled = settled.Set(ref, fact)
		}
	}
	logger.Debug("loop head did not settle", "iterations", maxLoopIterations)
	return Flow{facts: settled, unreachable: entry.unreachable}
}

// ForClosure is the flow at the start of the body of a function expression created
// here. A function that may run later cannot trust the narrowing of mutable bindings
// nor of any property. An immediately invoked function runs now, so it keeps
// everything except the bindings it reassigns itself.
func (f Flow) ForClosure(iife bool, reassigned func(ast.SymbolID) bool, mutable func(ast.SymbolID) bool) Flow {
	facts := f.init()
	itr := facts.Iterator()
	for !itr.Done() {
		ref, fact, _ := itr.Next()
		if iife && !reassigned(ref.Symbol) {
			continue
		}
		if !iife && ref.Path == "" && !mutable(ref.Symbol) {
			continue
		}
		if ref.Path != "" {
			facts = facts.Delete(ref)
			continue
		}
		assigned := fact.Assigned || !iife
		facts = facts.Set(ref, Fact{State: Declared, Type: fact.Declared, Declared: fact.Declared, Assigned: assigned})
	}
	return Flow{facts: facts}
}

// Equal reports whether f and g know the same facts
func (f Flow) Equal(g Flow) bool {
	if f.unreachable || g.unreachable {
		return f.unreachable == g.unreachable
	}
	ff, gf := f.init(), g.init()
	if ff.Len() != gf.Len() {
		return false
	}
	itr := ff.Iterator()
	for !itr.Done() {
		ref, fact, _ := itr.Next()
		if other, ok := gf.Get(ref); !ok || other != fact {
			return false
		}
	}
	return true
}

func (f Flow) LogValue() slog.Value {
	if f.unreachable {
		return slog.StringValue("unreachable")
	}
	var attrs []slog.Attr
	itr := f.init().Iterator()
	for !itr.Done() {
		ref, fact, _ := itr.Next()
		attrs = append(attrs, slog.String(ref.String(), fmt.Sprintf("%v %d", fact.State, fact.Type)))
	}
	return slog.GroupValue(attrs...)
}
