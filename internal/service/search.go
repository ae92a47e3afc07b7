package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Search answers full-text queries. The index only ranks ids; posts are
// always re-read from the store.
type Search struct {
	index   model.SearchIndex
	posts   model.PostStore
	perPage int
	logger  *logger.Logger
}

func NewSearch(index model.SearchIndex, posts model.PostStore, perPage int, logger *logger.Logger) *Search {
	return &Search{
		index:   index,
		posts:   posts,
		perPage: perPage,
		logger:  logger,
	}
}

// Posts returns one page of posts matching expression, best match first.
// Ids the index still knows about but the store no longer has are dropped,
// while Total keeps counting them.
func (s *Search) Posts(ctx context.Context, expression, pageToken string) (model.SearchResult, error) {
	number, err := model.DecodePageToken(pageToken)
	if err != nil {
		return model.SearchResult{}, err
	}

	expression = strings.TrimSpace(expression)
	if expression == "" {
		return model.SearchResult{Page: model.NewPage([]model.Post{}, number, s.perPage)}, nil
	}

	ids, total, err := s.index.Query(ctx, model.PostIndex, expression, number, s.perPage)
	if err != nil {
		s.logger.Error("Search service: index query failed", "query", expression, "error", err)
		return model.SearchResult{}, fmt.Errorf("failed to query search index: %w", err)
	}

	found, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("failed to get posts by ids: %w", err)
	}

	items := rankOrder(ids, found)
	if stale := len(ids) - len(items); stale > 0 {
		s.logger.Debug("Search service: dropped stale index entries", "query", expression, "stale", stale)
	}

	page := model.NewPage(items, number, s.perPage)
	if number*s.perPage < total {
		page.HasNext = true
		page.Next = model.EncodePageToken(number + 1)
	}
	return model.SearchResult{Page: page, Total: total}, nil
}

// rankOrder arranges posts in the order of ids, skipping ids with no post.
func rankOrder(ids []int64, posts []model.Post) []model.Post {
	byID := make(map[int64]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	out := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
