package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Willamette-OR/microblog/internal/indexsync"
	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

var (
	_ model.Transactor = (*Transactor)(nil)
	_ model.TxStores   = (*txStores)(nil)
)

// Replayer receives the search changes of every committed transaction.
type Replayer interface {
	Replay(batch indexsync.Batch)
}

// Transactor runs units of work in read-committed transactions and hands
// their captured search changes to the replayer after commit.
type Transactor struct {
	db       *Connection
	replayer Replayer
	logger   *logger.Logger
}

func NewTransactor(db *Connection, replayer Replayer, logger *logger.Logger) *Transactor {
	return &Transactor{
		db:       db,
		replayer: replayer,
		logger:   logger,
	}
}

// WithinTx runs fn in a transaction. Transient conflicts rerun fn from
// scratch with a fresh change set. Any failure is returned as a
// *model.TransactionAbortError and nothing is replayed.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.TxStores) error) error {
	var batch indexsync.Batch

	onRetry := func(err error, next time.Duration) {
		t.logger.Warn("Transactor: retrying transaction", "error", err, "backoff", next)
	}
	err := retry(ctx, onRetry, func(ctx context.Context) error {
		b, err := t.run(ctx, fn)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return &model.TransactionAbortError{Err: err}
	}

	if !batch.Empty() {
		t.logger.Debug("Transactor: committed, replaying search changes",
			"created", len(batch.Created), "modified", len(batch.Modified), "deleted", len(batch.Deleted))
		t.replayer.Replay(batch)
	}
	return nil
}

func (t *Transactor) run(ctx context.Context, fn func(ctx context.Context, tx model.TxStores) error) (indexsync.Batch, error) {
	pgTx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return indexsync.Batch{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := pgTx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			t.logger.Error("Transactor: failed to roll back", "error", err)
		}
	}()

	changes := indexsync.NewChangeSet()
	stores := &txStores{
		users:   &UserRepository{db: pgTx},
		posts:   &PostRepository{db: pgTx, changes: changes},
		follows: &FollowRepository{db: pgTx},
	}

	if err := fn(ctx, stores); err != nil {
		return indexsync.Batch{}, err
	}

	// frozen before commit so nothing written afterwards can leak in
	batch := changes.Capture()

	if err := pgTx.Commit(ctx); err != nil {
		return indexsync.Batch{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return batch, nil
}

type txStores struct {
	users   *UserRepository
	posts   *PostRepository
	follows *FollowRepository
}

func (s *txStores) Users() model.UserStore     { return s.users }
func (s *txStores) Posts() model.PostWriter    { return s.posts }
func (s *txStores) Follows() model.FollowStore { return s.follows }
