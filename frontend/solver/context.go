// Package solver relates and infers types held in a types.Database.
//
// Every operation goes through a SolveContext, which owns the mutable state of
// one check run: the comparisons in flight, the recursion depth and the open
// inference episodes. A context is not safe for concurrent use.
package solver

import (
	"fmt"
	"log/slog"

	"github.com/cottand/tsz/frontend/options"
	"github.com/cottand/tsz/frontend/types"
	"github.com/cottand/tsz/internal/log"
	"github.com/cottand/tsz/util"
	"github.com/hashicorp/go-set/v3"
)

var logger = log.DefaultLogger.With("section", "solver")

// Mode selects the relation the judge decides
type Mode uint8

const (
	// Strict is assignability
	Strict Mode = iota
	// Bivariant is assignability with parameters compared in either direction, used for methods
	Bivariant
	// Comparable is the relation behind equality comparisons and type assertions
	Comparable
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Bivariant:
		return "bivariant"
	case Comparable:
		return "comparable"
	}
	return fmt.Sprintf("mode(%d)", m)
}

// maxDepth bounds nested comparisons independently of cycle detection
const maxDepth = 100

// relation is one in-flight comparison
type relation struct {
	src, tgt types.TypeID
	mode     Mode
}

func (r relation) Hash() uint64 {
	return uint64(r.src)<<33 ^ uint64(r.tgt)<<2 ^ uint64(r.mode)
}

type SolveContext struct {
	db   *types.Database
	opts options.Resolved

	inFlight *set.HashSet[relation, uint64]
	depth    int
	// explaining is set while Explain builds a detailed failure
	explaining bool

	episodes map[uint32]*Episode
	closed   *set.Set[uint32]
	// active holds the episodes opened and not yet closed, innermost on top
	active util.Stack[*Episode]

	logger *slog.Logger
}

// NewContext returns a fresh context over db. One context serves one check run.
func NewContext(db *types.Database, opts options.Resolved) *SolveContext {
	return &SolveContext{
		db:       db,
		opts:     opts,
		inFlight: set.NewHashSet[relation, uint64](16),
		episodes: make(map[uint32]*Episode),
		closed:   set.New[uint32](8),
		logger:   logger,
	}
}

func (c *SolveContext) DB() *types.Database {
	return c.db
}

func (c *SolveContext) Options() options.Resolved {
	return c.opts
}

// checkVar panics if t is an inference variable of an episode that was closed.
// It returns the episode owning t, or nil if t is not an inference variable of an open episode.
func (c *SolveContext) checkVar(t types.TypeID) *Episode {
	v, ok := c.db.Lookup(t).(types.InferVar)
	if !ok {
		return nil
	}
	if c.closed.Contains(v.Episode) {
		panic(fmt.Sprintf("inference variable %s used after its episode %d was closed", v.Name, v.Episode))
	}
	return c.episodes[v.Episode]
}
