package model

import "context"

// FollowStore defines operations over the follow edge set.
type FollowStore interface {
	Exists(ctx context.Context, followerID, followedID int64) (bool, error)
	Insert(ctx context.Context, followerID, followedID int64) (bool, error)
	Delete(ctx context.Context, followerID, followedID int64) (bool, error)
	FollowersOf(ctx context.Context, userID int64) ([]int64, error)
	FollowedBy(ctx context.Context, userID int64) ([]int64, error)
	Counts(ctx context.Context, userID int64) (followers int, followed int, err error)
}

// Follow is a directed edge meaning the follower reads the followed user's posts.
type Follow struct {
	FollowerID int64
	FollowedID int64
}
