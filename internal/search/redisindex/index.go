// Package redisindex implements the full-text search index on Redis.
//
// Each index keeps one sorted set per term (member: document id, score:
// term frequency), one set per document listing its terms, and one set of
// all document ids. Queries union the term sets weighted by inverse
// document frequency.
package redisindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

const (
	maxWatchRetries = 5
	queryKeyTTL     = 30 * time.Second
)

var _ model.SearchIndex = (*Index)(nil)

// Index is a model.SearchIndex stored in Redis.
type Index struct {
	client redis.UniversalClient
	prefix string
	logger *logger.Logger
}

// Open returns a client for addr without contacting Redis. Connections are
// made on first use.
func Open(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := Open(addr, password, db)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// New creates an index whose keys all start with prefix.
func New(client redis.UniversalClient, prefix string, logger *logger.Logger) *Index {
	return &Index{client: client, prefix: prefix, logger: logger}
}

// Ping checks that Redis is reachable.
func (x *Index) Ping(ctx context.Context) error {
	return x.client.Ping(ctx).Err()
}

// AddOrUpdate replaces the postings of doc with the terms of its body.
func (x *Index) AddOrUpdate(ctx context.Context, doc model.Document) error {
	terms := termFrequencies(doc.Body)
	member := strconv.FormatInt(doc.ID, 10)
	docTerms := x.docTermsKey(doc.Index, doc.ID)

	err := x.watch(ctx, docTerms, func(tx *redis.Tx) error {
		old, err := tx.SMembers(ctx, docTerms).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, t := range old {
				if _, keep := terms[t]; !keep {
					pipe.ZRem(ctx, x.termKey(doc.Index, t), member)
				}
			}
			pipe.Del(ctx, docTerms)
			members := make([]any, 0, len(terms))
			for t, n := range terms {
				pipe.ZAdd(ctx, x.termKey(doc.Index, t), redis.Z{Score: float64(n), Member: member})
				members = append(members, t)
			}
			if len(members) > 0 {
				pipe.SAdd(ctx, docTerms, members...)
			}
			pipe.SAdd(ctx, x.docsKey(doc.Index), member)
			return nil
		})
		return err
	})
	if err != nil {
		return &model.IndexUnavailableError{Op: "add", Index: doc.Index, ID: doc.ID, Err: err}
	}
	return nil
}

// Remove drops every posting of the referenced document. Removing an
// unknown document is not an error.
func (x *Index) Remove(ctx context.Context, ref model.DocumentRef) error {
	member := strconv.FormatInt(ref.ID, 10)
	docTerms := x.docTermsKey(ref.Index, ref.ID)

	err := x.watch(ctx, docTerms, func(tx *redis.Tx) error {
		old, err := tx.SMembers(ctx, docTerms).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, t := range old {
				pipe.ZRem(ctx, x.termKey(ref.Index, t), member)
			}
			pipe.Del(ctx, docTerms)
			pipe.SRem(ctx, x.docsKey(ref.Index), member)
			return nil
		})
		return err
	})
	if err != nil {
		return &model.IndexUnavailableError{Op: "remove", Index: ref.Index, ID: ref.ID, Err: err}
	}
	return nil
}

// Query returns one page of document ids matching any term of expression,
// best match first, and the total number of matches. Pages start at 1.
func (x *Index) Query(ctx context.Context, index, expression string, page, perPage int) ([]int64, int, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, &model.ValidationError{Field: "page", Reason: "page and page size must be positive"}
	}
	if page > math.MaxInt/perPage {
		return nil, 0, &model.ValidationError{Field: "page", Reason: "page is out of range"}
	}

	terms := uniqueTerms(expression)
	if len(terms) == 0 {
		return []int64{}, 0, nil
	}

	ids, total, err := x.query(ctx, index, terms, page, perPage)
	if err != nil {
		return nil, 0, &model.IndexUnavailableError{Op: "query", Index: index, Err: err}
	}
	return ids, total, nil
}

func (x *Index) query(ctx context.Context, index string, terms []string, page, perPage int) ([]int64, int, error) {
	n, err := x.client.SCard(ctx, x.docsKey(index)).Result()
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []int64{}, 0, nil
	}

	pipe := x.client.Pipeline()
	cards := make([]*redis.IntCmd, len(terms))
	for i, t := range terms {
		cards[i] = pipe.ZCard(ctx, x.termKey(index, t))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, 0, err
	}

	var (
		keys    []string
		weights []float64
	)
	for i, t := range terms {
		df := cards[i].Val()
		if df == 0 {
			continue
		}
		keys = append(keys, x.termKey(index, t))
		weights = append(weights, math.Log(1+float64(n)/float64(df)))
	}
	if len(keys) == 0 {
		return []int64{}, 0, nil
	}

	tmp := fmt.Sprintf("%s:search:%s:query:%s", x.prefix, index, uuid.NewString())
	defer func() {
		if err := x.client.Del(context.WithoutCancel(ctx), tmp).Err(); err != nil {
			x.logger.Warn("Search index: failed to delete query key", "key", tmp, "error", err)
		}
	}()

	// a negative start would count from the tail of the result set
	start := int64((page - 1) * perPage)
	if start < 0 {
		return []int64{}, 0, nil
	}
	stop := start + int64(perPage) - 1

	pipe = x.client.Pipeline()
	pipe.ZUnionStore(ctx, tmp, &redis.ZStore{Keys: keys, Weights: weights, Aggregate: "SUM"})
	pipe.Expire(ctx, tmp, queryKeyTTL)
	totalCmd := pipe.ZCard(ctx, tmp)
	rangeCmd := pipe.ZRevRange(ctx, tmp, start, stop)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, 0, err
	}

	members := rangeCmd.Val()
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("corrupt posting %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, int(totalCmd.Val()), nil
}

// watch runs fn in an optimistic transaction on key, retrying when another
// writer touched the key first.
func (x *Index) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	var err error
	for range maxWatchRetries {
		err = x.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (x *Index) termKey(index, term string) string {
	return fmt.Sprintf("%s:search:%s:term:%s", x.prefix, index, term)
}

func (x *Index) docTermsKey(index string, id int64) string {
	return fmt.Sprintf("%s:search:%s:doc:%d:terms", x.prefix, index, id)
}

func (x *Index) docsKey(index string) string {
	return fmt.Sprintf("%s:search:%s:docs", x.prefix, index)
}
