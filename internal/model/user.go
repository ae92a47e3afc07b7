package model

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AboutMe      string
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// Profile is a user as seen by a viewer.
type Profile struct {
	User           User
	FollowersCount int
	FollowedCount  int
	IsFollowing    bool
	IsSelf         bool
}

// RegisterParams contains parameters to register a user.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}
