package solver

import (
	"fmt"
	"slices"

	"github.com/cottand/tsz/frontend/types"
	"github.com/hashicorp/go-set/v3"
)

// Priority ranks where an inference candidate came from. Lower values win:
// only the candidates of the best priority recorded for a variable are resolved.
type Priority uint8

const (
	NakedTypeVariable Priority = iota
	HomomorphicMappedType
	MappedType
	ReturnType
	LowPriority
)

func (p Priority) String() string {
	switch p {
	case NakedTypeVariable:
		return "naked"
	case HomomorphicMappedType:
		return "homomorphic mapped"
	case MappedType:
		return "mapped"
	case ReturnType:
		return "return"
	case LowPriority:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", p)
}

// Constraint records Source <: Target where one side is an inference variable of Episode
type Constraint struct {
	Source, Target types.TypeID
	Priority       Priority
	Episode        uint32
	// Fresh candidates come from literal expressions and may be widened
	Fresh bool
	// Arg is the index of the argument the constraint was generated from, or -1
	Arg int
}

// Episode is one round of inference: a call site, or the instantiation of a generic
// signature against another. It owns one inference variable per type parameter.
type Episode struct {
	ID     uint32
	Params []types.TypeID
	Vars   []types.TypeID

	ctx         *SolveContext
	constraints []Constraint
	fixed       []bool
	resolved    []types.TypeID
	// ret is the declared return type of the signature being inferred, or NoType
	ret types.TypeID
	// propagated holds the type parameters cloned from generic arguments whose
	// polymorphism carries over to the result
	propagated []types.TypeID

	// state of the constraint generation in progress
	visited *set.HashSet[inferKey, uint64]
	depth   int
	arg     int
	fresh   bool

	closed bool
}

type inferKey struct {
	src, tgt types.TypeID
	contra   bool
}

func (k inferKey) Hash() uint64 {
	h := uint64(k.src)<<32 ^ uint64(k.tgt)<<1
	if k.contra {
		h ^= 1
	}
	return h
}

// beginEpisode opens an episode with one fresh variable per type parameter
func (c *SolveContext) beginEpisode(params []types.TypeID) *Episode {
	id := c.db.NewEpisode()
	e := &Episode{
		ID:       id,
		Params:   params,
		Vars:     make([]types.TypeID, len(params)),
		ctx:      c,
		fixed:    make([]bool, len(params)),
		resolved: make([]types.TypeID, len(params)),
		visited:  set.NewHashSet[inferKey, uint64](8),
		arg:      -1,
	}
	for i, p := range params {
		e.Vars[i] = c.db.NewInferVar(id, i, c.db.Lookup(p).(types.TypeParam).Name)
	}
	c.episodes[id] = e
	c.active.Push(e)
	c.logger.Debug("opened inference episode", "episode", id, "params", c.db.SlogAll(params))
	return e
}

// Close tears the episode down. Any later use of one of its variables panics.
// Episodes close innermost first.
func (e *Episode) Close() {
	if e.closed {
		return
	}
	c := e.ctx
	top, ok := c.active.Peek()
	if !ok || *top != e {
		panic(fmt.Sprintf("inference episode %d closed while not innermost", e.ID))
	}
	c.active.Pop()
	e.closed = true
	delete(c.episodes, e.ID)
	c.closed.Insert(e.ID)
}

// Mapping sends each type parameter of the episode to its variable
func (e *Episode) Mapping() map[types.TypeID]types.TypeID {
	m := make(map[types.TypeID]types.TypeID, len(e.Params))
	for i, p := range e.Params {
		m[p] = e.Vars[i]
	}
	return m
}

// Constraints lists what was recorded so far, in order
func (e *Episode) Constraints() []Constraint {
	return slices.Clone(e.constraints)
}

// varIndex returns the index of t if it is a variable of this episode
func (e *Episode) varIndex(t types.TypeID) (int, bool) {
	v, ok := e.ctx.db.Lookup(t).(types.InferVar)
	if !ok || v.Episode != e.ID {
		return 0, false
	}
	return int(v.Index), true
}

// mentionsOpenVars reports whether t contains a variable of this episode that is not fixed yet
func (e *Episode) mentionsOpenVars(t types.TypeID) bool {
	return e.ctx.db.Contains(t, func(t types.TypeID) bool {
		i, ok := e.varIndex(t)
		return ok && !e.fixed[i]
	})
}

func (e *Episode) hasCandidates(i int) bool {
	v := e.Vars[i]
	return slices.ContainsFunc(e.constraints, func(c Constraint) bool {
		return c.Source == v || c.Target == v
	})
}

func (e *Episode) addLower(i int, source types.TypeID, priority Priority) {
	e.add(Constraint{Source: source, Target: e.Vars[i], Priority: priority, Episode: e.ID, Fresh: e.fresh, Arg: e.arg})
}

func (e *Episode) addUpper(i int, target types.TypeID, priority Priority) {
	e.add(Constraint{Source: e.Vars[i], Target: target, Priority: priority, Episode: e.ID, Arg: e.arg})
}

func (e *Episode) add(c Constraint) {
	if e.closed {
		panic(fmt.Sprintf("constraint added to closed inference episode %d", e.ID))
	}
	if c.Source == c.Target {
		return
	}
	e.ctx.logger.Debug("inference constraint",
		"episode", e.ID, "source", e.ctx.db.Slog(c.Source), "target", e.ctx.db.Slog(c.Target), "priority", c.Priority)
	e.constraints = append(e.constraints, c)
}

// fix resolves variable i from the candidates seen so far. Later candidates for it are ignored.
func (e *Episode) fix(i int) types.TypeID {
	if !e.fixed[i] {
		e.resolved[i] = e.resolveVar(i, nil).Resolved
		e.fixed[i] = true
	}
	return e.resolved[i]
}

// fixMentioned fixes every variable occurring in t
func (e *Episode) fixMentioned(t types.TypeID) {
	e.ctx.db.Contains(t, func(t types.TypeID) bool {
		if i, ok := e.varIndex(t); ok {
			e.fix(i)
		}
		return false
	})
}

// fixedMapping sends the fixed variables to their values
func (e *Episode) fixedMapping() map[types.TypeID]types.TypeID {
	m := make(map[types.TypeID]types.TypeID)
	for i, v := range e.Vars {
		if e.fixed[i] {
			m[v] = e.resolved[i]
		}
	}
	return m
}
