package indexsync

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Op is a single index mutation derived from a batch.
type Op string

const (
	OpAddOrUpdate Op = "add_or_update"
	OpRemove      Op = "remove"
)

const defaultOpTimeout = 10 * time.Second

// FailureRecorder persists replay failures so they can be recovered later.
type FailureRecorder interface {
	Record(ctx context.Context, f Failure) error
}

// Options tunes the synchronizer.
type Options struct {
	Workers   int
	QueueSize int
	OpTimeout time.Duration
	Journal   FailureRecorder
	// Sources are re-read at apply time for the indexes they cover.
	Sources []model.IndexableSource
}

type task struct {
	op  Op
	doc model.Document
}

// Stats counts replayed operations since start.
type Stats struct {
	Applied int64
	Failed  int64
}

// Synchronizer replays committed batches into the search index.
//
// Operations for the same document always land on the same worker queue
// and are applied one at a time. Writers may hand over their batches in a
// different order than they committed, so for indexes with a registered
// source every operation re-reads the row and writes what the store holds
// now. Failures are logged and journaled, never returned to the writer
// whose transaction already committed.
type Synchronizer struct {
	index     model.SearchIndex
	journal   FailureRecorder
	sources   map[string]model.IndexableSource
	logger    *logger.Logger
	opTimeout time.Duration

	queues []chan task
	wg     conc.WaitGroup

	mu     sync.RWMutex
	closed bool

	applied atomic.Int64
	failed  atomic.Int64
}

// New starts a synchronizer with opts.Workers background workers.
func New(index model.SearchIndex, logger *logger.Logger, opts Options) *Synchronizer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}

	s := &Synchronizer{
		index:     index,
		journal:   opts.Journal,
		sources:   make(map[string]model.IndexableSource, len(opts.Sources)),
		logger:    logger,
		opTimeout: opts.OpTimeout,
		queues:    make([]chan task, opts.Workers),
	}
	for _, src := range opts.Sources {
		s.sources[src.Index()] = src
	}
	for i := range s.queues {
		q := make(chan task, opts.QueueSize)
		s.queues[i] = q
		s.wg.Go(func() {
			for t := range q {
				_ = s.apply(t)
			}
		})
	}
	return s
}

// Replay schedules the batch for asynchronous application. It only blocks
// while the target worker queue is full. After Close the batch is applied
// inline so nothing committed is lost.
func (s *Synchronizer) Replay(batch Batch) {
	if batch.Empty() {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range tasks(batch) {
		if s.closed {
			_ = s.apply(t)
			continue
		}
		s.queues[s.shard(t.doc.Ref())] <- t
	}
}

// ReplayNow applies the batch synchronously and returns every failure.
// Failures are still logged and journaled.
func (s *Synchronizer) ReplayNow(batch Batch) error {
	var errs []error
	for _, t := range tasks(batch) {
		if err := s.apply(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting queued work and waits for the workers to drain.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, q := range s.queues {
		close(q)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Index synchronizer: stopped", "applied", s.applied.Load(), "failed", s.failed.Load())
}

// Stats returns counters of applied and failed operations.
func (s *Synchronizer) Stats() Stats {
	return Stats{Applied: s.applied.Load(), Failed: s.failed.Load()}
}

func (s *Synchronizer) apply(t task) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	var err error
	src, ok := s.sources[t.doc.Index]
	switch {
	case ok:
		err = s.current(ctx, src, t.doc.Ref())
	case t.op == OpAddOrUpdate:
		err = s.index.AddOrUpdate(ctx, t.doc)
	case t.op == OpRemove:
		err = s.index.Remove(ctx, t.doc.Ref())
	default:
		err = fmt.Errorf("unknown op %q", t.op)
	}
	if err == nil {
		s.applied.Add(1)
		return nil
	}

	s.failed.Add(1)
	s.logger.Error("Index synchronizer: replay failed",
		"op", t.op, "index", t.doc.Index, "id", t.doc.ID, "error", err)

	if s.journal != nil {
		jctx, jcancel := context.WithTimeout(context.Background(), s.opTimeout)
		defer jcancel()
		f := Failure{Op: t.op, Ref: t.doc.Ref(), Error: err.Error(), FailedAt: time.Now().UTC()}
		if jerr := s.journal.Record(jctx, f); jerr != nil {
			s.logger.Error("Index synchronizer: failed to journal replay failure",
				"index", t.doc.Index, "id", t.doc.ID, "error", jerr)
		}
	}
	return err
}

// current brings ref in line with the row src holds now: the current
// projection when the row exists, a removal when it is gone.
func (s *Synchronizer) current(ctx context.Context, src model.IndexableSource, ref model.DocumentRef) error {
	item, err := src.Lookup(ctx, ref.ID)
	if errors.Is(err, model.ErrNotFound) {
		return s.index.Remove(ctx, ref)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", ref.Index, ref.ID, err)
	}
	return s.index.AddOrUpdate(ctx, item.SearchDocument())
}

func (s *Synchronizer) shard(ref model.DocumentRef) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d", ref.Index, ref.ID)
	return int(h.Sum32() % uint32(len(s.queues)))
}

// tasks flattens a batch: additions and updates first, then removals.
// The sets are disjoint, so the order between them does not matter.
func tasks(b Batch) []task {
	out := make([]task, 0, b.Len())
	for _, d := range b.Created {
		out = append(out, task{op: OpAddOrUpdate, doc: d})
	}
	for _, d := range b.Modified {
		out = append(out, task{op: OpAddOrUpdate, doc: d})
	}
	for _, r := range b.Deleted {
		out = append(out, task{op: OpRemove, doc: model.Document{Index: r.Index, ID: r.ID}})
	}
	return out
}
