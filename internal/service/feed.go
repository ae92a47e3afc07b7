package service

import (
	"context"
	"fmt"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Feed assembles paginated post streams. Every stream is ordered newest
// first with the post id as tie-break, so pages never overlap or skip.
type Feed struct {
	posts   model.PostStore
	perPage int
	logger  *logger.Logger
}

func NewFeed(posts model.PostStore, perPage int, logger *logger.Logger) *Feed {
	return &Feed{
		posts:   posts,
		perPage: perPage,
		logger:  logger,
	}
}

// Followed returns the posts of everyone userID follows plus userID's own.
func (s *Feed) Followed(ctx context.Context, userID int64, pageToken string) (model.Page[model.Post], error) {
	return s.page(ctx, pageToken, func(limit, offset int) ([]model.Post, error) {
		return s.posts.ListFollowed(ctx, userID, limit, offset)
	})
}

// Explore returns every post.
func (s *Feed) Explore(ctx context.Context, pageToken string) (model.Page[model.Post], error) {
	return s.page(ctx, pageToken, func(limit, offset int) ([]model.Post, error) {
		return s.posts.ListAll(ctx, limit, offset)
	})
}

// ByAuthor returns the posts written by authorID.
func (s *Feed) ByAuthor(ctx context.Context, authorID int64, pageToken string) (model.Page[model.Post], error) {
	return s.page(ctx, pageToken, func(limit, offset int) ([]model.Post, error) {
		return s.posts.ListByAuthor(ctx, authorID, limit, offset)
	})
}

func (s *Feed) page(ctx context.Context, pageToken string, fetch func(limit, offset int) ([]model.Post, error)) (model.Page[model.Post], error) {
	number, err := model.DecodePageToken(pageToken)
	if err != nil {
		return model.Page[model.Post]{}, err
	}

	// one extra row tells whether a next page exists
	rows, err := fetch(s.perPage+1, model.Offset(number, s.perPage))
	if err != nil {
		return model.Page[model.Post]{}, fmt.Errorf("failed to list posts: %w", err)
	}

	return model.NewPage(rows, number, s.perPage), nil
}
