package indexsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

const journalPrefix = "replay-failures/"

// Failure is one index operation that could not be replayed.
type Failure struct {
	Op       Op                `json:"op"`
	Ref      model.DocumentRef `json:"ref"`
	Error    string            `json:"error"`
	FailedAt time.Time         `json:"failed_at"`
}

var _ FailureRecorder = (*Journal)(nil)

// Journal stores replay failures as JSON objects in an object store.
type Journal struct {
	storage model.Storage
	logger  *logger.Logger
}

// NewJournal creates a journal on top of storage.
func NewJournal(storage model.Storage, logger *logger.Logger) *Journal {
	return &Journal{storage: storage, logger: logger}
}

// Record writes f under a unique key.
func (j *Journal) Record(ctx context.Context, f Failure) error {
	data, err := sonic.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode replay failure: %w", err)
	}

	key := fmt.Sprintf("%s%s/%d-%s.json", journalPrefix, f.Ref.Index, f.Ref.ID, uuid.NewString())
	if err := j.storage.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload replay failure: %w", err)
	}

	j.logger.Debug("Replay journal: failure recorded", "key", key)
	return nil
}

// Pending lists the keys of unresolved failures.
func (j *Journal) Pending(ctx context.Context) ([]string, error) {
	keys, err := j.storage.List(ctx, journalPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list replay failures: %w", err)
	}
	return keys, nil
}

// Load reads the failure stored under key.
func (j *Journal) Load(ctx context.Context, key string) (Failure, error) {
	rc, err := j.storage.Download(ctx, key)
	if err != nil {
		return Failure{}, fmt.Errorf("failed to download replay failure: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Failure{}, fmt.Errorf("failed to read replay failure: %w", err)
	}

	var f Failure
	if err := sonic.Unmarshal(data, &f); err != nil {
		return Failure{}, fmt.Errorf("failed to decode replay failure %s: %w", key, err)
	}
	return f, nil
}

// Resolve deletes the failure stored under key.
func (j *Journal) Resolve(ctx context.Context, key string) error {
	if err := j.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete replay failure: %w", err)
	}
	return nil
}
