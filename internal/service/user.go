package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

const (
	maxUsernameLength = 64
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

// Users registers accounts, issues access tokens and builds profiles.
type Users struct {
	users   model.UserStore
	follows model.FollowStore
	tokens  model.TokenManager
	logger  *logger.Logger
	now     func() time.Time
}

func NewUsers(users model.UserStore, follows model.FollowStore, tokens model.TokenManager, logger *logger.Logger) *Users {
	return &Users{
		users:   users,
		follows: follows,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates an account and returns it with an access token.
func (s *Users) Register(ctx context.Context, params model.RegisterParams) (model.User, string, error) {
	if err := validateRegistration(params); err != nil {
		return model.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     params.Username,
		Email:        strings.ToLower(params.Email),
		PasswordHash: string(hash),
	})
	if err != nil {
		s.logger.Info("User service: registration rejected",
			"username", params.Username,
			"error", err)
		return model.User{}, "", err
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Info("User service: user registered", "user_id", user.ID, "username", user.Username)
	return user, token, nil
}

// Login checks the password of username and returns an access token.
func (s *Users) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return "", model.ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("User service: wrong password", "user_id", user.ID)
		return "", model.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, nil
}

// ByUsername resolves a username to a user.
func (s *Users) ByUsername(ctx context.Context, username string) (model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// Profile returns username's profile as seen by viewerID.
func (s *Users) Profile(ctx context.Context, viewerID int64, username string) (model.Profile, error) {
	user, err := s.ByUsername(ctx, username)
	if err != nil {
		return model.Profile{}, err
	}

	followers, followed, err := s.follows.Counts(ctx, user.ID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to count follows: %w", err)
	}

	profile := model.Profile{
		User:           user,
		FollowersCount: followers,
		FollowedCount:  followed,
		IsSelf:         viewerID == user.ID,
	}
	if !profile.IsSelf {
		profile.IsFollowing, err = s.follows.Exists(ctx, viewerID, user.ID)
		if err != nil {
			return model.Profile{}, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

// TouchLastSeen records that userID was active now.
func (s *Users) TouchLastSeen(ctx context.Context, userID int64) error {
	if err := s.users.TouchLastSeen(ctx, userID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to touch last seen: %w", err)
	}
	return nil
}

func validateRegistration(p model.RegisterParams) error {
	switch {
	case p.Username == "" || len(p.Username) > maxUsernameLength:
		return &model.ValidationError{Field: "username", Reason: "must be 1 to 64 characters"}
	case strings.IndexFunc(p.Username, notUsernameRune) >= 0:
		return &model.ValidationError{Field: "username", Reason: "may only contain letters, digits, '.', '_' and '-'"}
	case !validEmail(p.Email):
		return &model.ValidationError{Field: "email", Reason: "is not a valid address"}
	case len(p.Password) < minPasswordLength:
		return &model.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	case len(p.Password) > maxPasswordBytes:
		return &model.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
	}
	return nil
}

func notUsernameRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != '-'
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
