package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// FollowGraph manages the directed follow edges between users.
type FollowGraph struct {
	follows model.FollowStore
	tx      model.Transactor
	logger  *logger.Logger
}

func NewFollowGraph(follows model.FollowStore, tx model.Transactor, logger *logger.Logger) *FollowGraph {
	return &FollowGraph{
		follows: follows,
		tx:      tx,
		logger:  logger,
	}
}

func (s *FollowGraph) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	ok, err := s.follows.Exists(ctx, followerID, followedID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return ok, nil
}

// Follow makes followerID follow followedID. Following twice is a no-op.
func (s *FollowGraph) Follow(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return model.ErrSelfFollow
	}

	var created bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx model.TxStores) error {
		if err := ensureUser(ctx, tx.Users(), followedID); err != nil {
			return err
		}
		var err error
		created, err = tx.Follows().Insert(ctx, followerID, followedID)
		return err
	})
	if err != nil {
		s.logger.Debug("Follow graph: follow rejected",
			"follower_id", followerID, "followed_id", followedID, "error", err)
		return err
	}

	if created {
		s.logger.Info("Follow graph: followed",
			"follower_id", followerID, "followed_id", followedID)
	}
	return nil
}

// Unfollow removes the edge if present. Removing a missing edge is a no-op.
func (s *FollowGraph) Unfollow(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return model.ErrSelfFollow
	}

	var removed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx model.TxStores) error {
		if err := ensureUser(ctx, tx.Users(), followedID); err != nil {
			return err
		}
		var err error
		removed, err = tx.Follows().Delete(ctx, followerID, followedID)
		return err
	})
	if err != nil {
		s.logger.Debug("Follow graph: unfollow rejected",
			"follower_id", followerID, "followed_id", followedID, "error", err)
		return err
	}

	if removed {
		s.logger.Info("Follow graph: unfollowed",
			"follower_id", followerID, "followed_id", followedID)
	}
	return nil
}

func (s *FollowGraph) FollowersOf(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.follows.FollowersOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return ids, nil
}

func (s *FollowGraph) FollowedBy(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.follows.FollowedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followed users: %w", err)
	}
	return ids, nil
}

func ensureUser(ctx context.Context, users model.UserStore, id int64) error {
	if _, err := users.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return model.NewErrUserNotFound(strconv.FormatInt(id, 10))
		}
		return fmt.Errorf("failed to get user by id: %w", err)
	}
	return nil
}
