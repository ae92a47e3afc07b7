package indexsync

import (
	"context"
	"fmt"

	"github.com/Willamette-OR/microblog/internal/model"
)

const defaultReindexBatch = 500

// Reindex pushes every row of source into the index, walking the table by
// id in batches. It only adds or updates; stale index entries whose rows
// no longer exist are left alone.
func (s *Synchronizer) Reindex(ctx context.Context, source model.IndexableSource, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = defaultReindexBatch
	}

	var (
		after int64
		total int
	)
	for {
		items, err := source.ScanAfter(ctx, after, batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to scan %s after %d: %w", source.Index(), after, err)
		}

		for _, item := range items {
			doc := item.SearchDocument()
			if err := s.index.AddOrUpdate(ctx, doc); err != nil {
				return total, fmt.Errorf("failed to reindex %s %d: %w", doc.Index, doc.ID, err)
			}
			after = doc.ID
			total++
		}

		if len(items) < batchSize {
			break
		}
		s.logger.Debug("Index synchronizer: reindex progress", "index", source.Index(), "documents", total)
	}

	s.logger.Info("Index synchronizer: reindex finished", "index", source.Index(), "documents", total)
	return total, nil
}

// RecoverStats summarizes a journal recovery run.
type RecoverStats struct {
	Resolved int
	Failed   int
}

// Recover re-applies journaled failures. The journaled operation itself is
// not trusted: each document is recomputed from the current store state,
// so a stale failure can never overwrite newer data. Entries are deleted
// only once their document has been brought in line.
func (s *Synchronizer) Recover(ctx context.Context, journal *Journal, sources ...model.IndexableSource) (RecoverStats, error) {
	bySource := make(map[string]model.IndexableSource, len(sources))
	for _, src := range sources {
		bySource[src.Index()] = src
	}

	keys, err := journal.Pending(ctx)
	if err != nil {
		return RecoverStats{}, err
	}

	var (
		stats RecoverStats
		done  = make(map[model.DocumentRef]error)
	)
	for _, key := range keys {
		f, err := journal.Load(ctx, key)
		if err != nil {
			s.logger.Error("Index synchronizer: unreadable journal entry", "key", key, "error", err)
			stats.Failed++
			continue
		}

		syncErr, seen := done[f.Ref]
		if !seen {
			syncErr = s.resync(ctx, bySource, f.Ref)
			done[f.Ref] = syncErr
		}
		if syncErr != nil {
			s.logger.Error("Index synchronizer: recovery failed", "key", key, "error", syncErr)
			stats.Failed++
			continue
		}

		if err := journal.Resolve(ctx, key); err != nil {
			s.logger.Error("Index synchronizer: failed to resolve journal entry", "key", key, "error", err)
			stats.Failed++
			continue
		}
		stats.Resolved++
	}

	s.logger.Info("Index synchronizer: recovery finished", "resolved", stats.Resolved, "failed", stats.Failed)
	return stats, nil
}

func (s *Synchronizer) resync(ctx context.Context, sources map[string]model.IndexableSource, ref model.DocumentRef) error {
	src, ok := sources[ref.Index]
	if !ok {
		return fmt.Errorf("no source for index %q", ref.Index)
	}

	return s.current(ctx, src, ref)
}
