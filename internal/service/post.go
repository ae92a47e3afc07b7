package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Posts writes posts. Every write runs in a transaction whose search
// changes are replayed into the index after commit.
type Posts struct {
	tx       model.Transactor
	detector LanguageDetector
	logger   *logger.Logger
}

func NewPosts(tx model.Transactor, detector LanguageDetector, logger *logger.Logger) *Posts {
	return &Posts{
		tx:       tx,
		detector: detector,
		logger:   logger,
	}
}

func (s *Posts) Create(ctx context.Context, authorID int64, body string) (model.Post, error) {
	body, err := validateBody(body)
	if err != nil {
		return model.Post{}, err
	}

	post := model.Post{
		Body:     body,
		AuthorID: authorID,
		Language: s.detector.Detect(body),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx model.TxStores) error {
		var err error
		post, err = tx.Posts().Create(ctx, post)
		return err
	})
	if err != nil {
		s.logger.Error("Post service: failed to create post",
			"author_id", authorID,
			"error", err)
		return model.Post{}, err
	}

	s.logger.Info("Post service: post created",
		"post_id", post.ID,
		"author_id", authorID,
		"language", post.Language)
	return post, nil
}

// Edit replaces the body of a post. Posts of other authors look missing.
func (s *Posts) Edit(ctx context.Context, authorID, postID int64, body string) (model.Post, error) {
	body, err := validateBody(body)
	if err != nil {
		return model.Post{}, err
	}

	var post model.Post
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx model.TxStores) error {
		current, err := ownPost(ctx, tx.Posts(), authorID, postID)
		if err != nil {
			return err
		}

		current.Body = body
		current.Language = s.detector.Detect(body)
		post, err = tx.Posts().Update(ctx, current)
		return err
	})
	if err != nil {
		return model.Post{}, err
	}

	s.logger.Info("Post service: post edited", "post_id", post.ID, "author_id", authorID)
	return post, nil
}

// Delete removes a post. Posts of other authors look missing.
func (s *Posts) Delete(ctx context.Context, authorID, postID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx model.TxStores) error {
		if _, err := ownPost(ctx, tx.Posts(), authorID, postID); err != nil {
			return err
		}
		return tx.Posts().Delete(ctx, postID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Post service: post deleted", "post_id", postID, "author_id", authorID)
	return nil
}

func ownPost(ctx context.Context, posts model.PostWriter, authorID, postID int64) (model.Post, error) {
	post, err := posts.GetByID(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	if post.AuthorID != authorID {
		return model.Post{}, model.NewErrPostNotFound(postID)
	}
	return post, nil
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", &model.ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(body) > model.MaxPostLength {
		return "", &model.ValidationError{Field: "body", Reason: "must be at most 140 characters"}
	}
	return body, nil
}
