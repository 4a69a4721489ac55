// Package hvm is the embeddable host API: init, reduce, normalize,
// collapse_iter, batch_op, parallel_batch_op, analyze_safety, reset_heap
// and stats, wired over a single owned heap and def table. Every other
// internal package is a mechanism; this package is the one a host program
// actually calls. One constructor takes a config struct, builds every
// collaborating service (heap, counters, reducer) and exposes them as
// methods on a single owning type, rather than free functions threading
// state through parameters.
//
// An optional GPU accelerator could sit alongside ParallelBatchOp: handed
// a raw heap, a list of redex locations and an op code, it would run a
// bounded batch of interactions using the same compare-and-publish
// protocol heap.TryClaim implements, returning the mutated heap and an
// interaction count. Only a subset of interactions is a candidate for
// that treatment (beta, dup-sup annihilate, dup-num, erasure, numeric
// primitives); unsupported shapes would pass through unchanged. No such
// backend is implemented here.
package hvm

import (
	"github.com/google/uuid"

	"hvm/internal/autodup"
	"hvm/internal/batch"
	"hvm/internal/collapse"
	"hvm/internal/heap"
	"hvm/internal/interact"
	"hvm/internal/numeric"
	"hvm/internal/reduce"
	"hvm/internal/rterr"
	"hvm/internal/safety"
	"hvm/internal/stats"
	"hvm/internal/surface"
	"hvm/internal/term"
)

// Config configures one State. RunID and the worker pool are generated
// internally; everything else is a direct knob over the mechanisms in
// internal/heap, internal/reduce and internal/batch.
type Config struct {
	HeapSize             int
	StackSize            int // 0 = unlimited, per internal/reduce.Reducer.MaxStack
	NumWorkers           int // 0 = runtime.GOMAXPROCS(0), per internal/batch.NewPool
	EnableRefcount       bool
	EnableLabelRecycling bool // reserved: no component reads it
	CommutationLimit     uint64
	CompareAnnotations   bool
}

// DefaultConfig returns sane sizes for interactive use (eval/run), not a
// production sizing recommendation.
func DefaultConfig() Config {
	return Config{
		HeapSize:  1 << 20,
		StackSize: 4096,
	}
}

// State is one running instance of the runtime: a heap, a def table, the
// wired interaction machine and reducer, and a worker pool for the batch
// primitives. Not safe for concurrent use across goroutines except through
// the dedicated batch_op/parallel_batch_op entry points, which own their
// own data-parallel partitioning.
type State struct {
	RunID  uuid.UUID
	Config Config

	Heap    *heap.Heap
	Counts  *stats.Counters
	Machine *interact.Machine
	Reducer *reduce.Reducer
	Pool    *batch.Pool

	defs []term.Term
}

// Init builds a fresh State per cfg. RunID identifies this instance in
// logs/stats across a host process that may run many VMs concurrently.
func Init(cfg Config) *State {
	h := heap.New(cfg.HeapSize, cfg.EnableRefcount)
	counts := &stats.Counters{CommutationLimit: cfg.CommutationLimit}

	s := &State{
		RunID:  uuid.New(),
		Config: cfg,
		Heap:   h,
		Counts: counts,
		Pool:   batch.NewPool(cfg.NumWorkers),
	}

	s.Machine = &interact.Machine{
		Heap:               h,
		Alloc:              h.Alloc,
		Counts:             counts,
		LookupDef:          s.lookupDef,
		CompareAnnotations: cfg.CompareAnnotations,
	}
	s.Reducer = reduce.New(h, s.Machine, cfg.StackSize)
	return s
}

func (s *State) lookupDef(id uint32) (term.Term, bool) {
	if int(id) >= len(s.defs) {
		return 0, false
	}
	return s.defs[id], true
}

// Define installs a top-level definition, returning the REF id surface
// syntax can resolve a name to (see Eval's refs argument).
func (s *State) Define(body term.Term) uint32 {
	id := uint32(len(s.defs))
	s.defs = append(s.defs, body)
	return id
}

// Parse lowers source through internal/surface and internal/autodup into
// a heap term, without reducing it.
func (s *State) Parse(source string, refs map[string]uint32) (term.Term, error) {
	e, err := surface.Parse(source, refs)
	if err != nil {
		return 0, rterr.New(rterr.ParseError, "%s", err)
	}
	e = autodup.Insert(e, autodup.NewLabels())
	return autodup.Build(e, s.Heap, s.Heap.Alloc)
}

// Reduce drives t to weak head normal form.
func (s *State) Reduce(t term.Term) (term.Term, error) {
	return s.Reducer.Reduce(t)
}

// Normalize drives t to full normal form.
func (s *State) Normalize(t term.Term) (term.Term, error) {
	return s.Reducer.Normalize(t)
}

// Eval parses source and normalizes the result in one call, the shape the
// `eval` and `run` CLI subcommands both drive.
func (s *State) Eval(source string, refs map[string]uint32) (term.Term, error) {
	root, err := s.Parse(source, refs)
	if err != nil {
		return 0, err
	}
	return s.Normalize(root)
}

// CollapseIter returns a lazy, resumable enumerator over root's SUP
// branches, forcing lazily through this State's reducer.
func (s *State) CollapseIter(root term.Term) *collapse.Iterator {
	return collapse.New(s.Heap, s.force, root)
}

func (s *State) force(t term.Term) term.Term {
	v, err := s.Reducer.Reduce(t)
	if err != nil {
		panic(err)
	}
	return v
}

// BatchOp runs the single-threaded vectorised batch primitive over plain
// uint32 arrays, bypassing the heap entirely.
func (s *State) BatchOp(op numeric.Op, a, b, out []uint32) error {
	return batch.Op(op, a, b, out)
}

// ParallelBatchOp is BatchOp partitioned across s.Pool's workers.
func (s *State) ParallelBatchOp(op numeric.Op, a, b, out []uint32) error {
	return s.Pool.RunBinary(op, a, b, out)
}

// AnalyzeSafety runs the static commutation-risk check over root without
// reducing anything.
func (s *State) AnalyzeSafety(root term.Term) safety.Level {
	return safety.Analyze(s.Heap, root)
}

// ResetHeap discards all allocated cells and zeroes the interaction/
// commutation counters, for reuse across independent reductions.
func (s *State) ResetHeap() {
	s.Heap.Reset()
	s.Counts.Reset()
	s.defs = nil
}

// Stats returns a point-in-time snapshot of the interaction/commutation
// counters plus heap occupancy, the `stats` host call's result.
func (s *State) Stats() Stats {
	snap := s.Counts.Snapshot()
	return Stats{
		Snapshot:  snap,
		HeapUsed:  s.Heap.Used(),
		HeapTotal: uint32(s.Heap.Len()),
		RunID:     s.RunID,
	}
}

// Stats is the reporting shape for the `stats` host call.
type Stats struct {
	stats.Snapshot
	HeapUsed  uint32
	HeapTotal uint32
	RunID     uuid.UUID
}
