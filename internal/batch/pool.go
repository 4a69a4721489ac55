package batch

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"hvm/internal/numeric"
	"hvm/internal/rterr"
)

// Job describes one worker's share of a partitioned batch op: a contiguous
// index range into the caller's arrays. No ID/Type/Priority/Timeout, since
// there is no task routing or cancellation here, only a fixed partition of
// pure work.
type Job struct {
	Start, End int
}

// JobResult reports one worker's outcome. No Duration/WorkerID/Completed
// bookkeeping, since partitions share no mutable state to race over and
// nothing times them.
type JobResult struct {
	Job Job
	Err error
}

// Pool runs partitioned batch ops across a fixed number of workers. There
// is no persistent goroutine pool, job channel, or worker-quit signal to
// manage: each call to RunBinary spins up at most Size worker goroutines
// (one per non-empty partition) over disjoint slices and joins them with errgroup, because every batch
// op is already a bounded, one-shot unit of work with no queueing or
// backpressure concern.
type Pool struct {
	Size int
}

// NewPool builds a Pool with Size workers, defaulting to GOMAXPROCS when
// size is not positive.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{Size: size}
}

// partition splits [0, n) into at most p.Size contiguous, roughly equal
// ranges, never producing an empty range when n > 0.
func (p *Pool) partition(n int) []Job {
	workers := p.Size
	if workers > n {
		workers = n
	}
	if workers <= 0 {
		return nil
	}
	jobs := make([]Job, 0, workers)
	chunk := n / workers
	rem := n % workers
	start := 0
	for i := 0; i < workers; i++ {
		size := chunk
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		jobs = append(jobs, Job{Start: start, End: start + size})
		start += size
	}
	return jobs
}

// RunBinary partitions a, b, out across the pool's workers and runs Op on
// each partition concurrently: each worker operates on an independent
// slice with no shared mutable state.
func (p *Pool) RunBinary(op numeric.Op, a, b, out []uint32) error {
	if !numeric.Valid(op) || numeric.IsUnary(op) {
		return rterr.New(rterr.UnknownPrimitive, "parallel batch op requires a binary primitive, got id %d", op)
	}
	if len(a) != len(b) || len(a) != len(out) {
		return rterr.New(rterr.UnknownTag, "parallel batch op operand/output length mismatch: len(a)=%d len(b)=%d len(out)=%d", len(a), len(b), len(out))
	}

	jobs := p.partition(len(a))
	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			runBinary(op, a[j.Start:j.End], b[j.Start:j.End], out[j.Start:j.End])
			return nil
		})
	}
	return g.Wait()
}

// RunUnary is RunBinary's counterpart for the sole unary primitive, NOT.
func (p *Pool) RunUnary(op numeric.Op, a, out []uint32) error {
	if !numeric.IsUnary(op) {
		return rterr.New(rterr.UnknownPrimitive, "parallel batch unary op requires NOT, got id %d", op)
	}
	if len(a) != len(out) {
		return rterr.New(rterr.UnknownTag, "parallel batch unary op operand/output length mismatch: len(a)=%d len(out)=%d", len(a), len(out))
	}

	jobs := p.partition(len(a))
	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			for i := j.Start; i < j.End; i++ {
				out[i] = numeric.Unary(op, a[i])
			}
			return nil
		})
	}
	return g.Wait()
}
