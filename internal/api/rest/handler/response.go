package handler

import (
	"time"

	"github.com/Willamette-OR/microblog/internal/model"
)

type userResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	AboutMe   string     `json:"about_me,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type profileResponse struct {
	userResponse
	FollowersCount int  `json:"followers_count"`
	FollowedCount  int  `json:"followed_count"`
	IsFollowing    bool `json:"is_following"`
	IsSelf         bool `json:"is_self"`
}

type authorResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type postResponse struct {
	ID        int64          `json:"id"`
	Body      string         `json:"body"`
	Timestamp time.Time      `json:"timestamp"`
	Language  string         `json:"language,omitempty"`
	Author    authorResponse `json:"author"`
}

type pageResponse struct {
	Items []postResponse `json:"items"`
	Next  string         `json:"next,omitempty"`
	Prev  string         `json:"prev,omitempty"`
}

type searchResponse struct {
	pageResponse
	Total int `json:"total"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerResponse struct {
	User userResponse `json:"user"`
	tokenResponse
}

type followResponse struct {
	Following bool `json:"following"`
}

type userIDsResponse struct {
	UserIDs []int64 `json:"user_ids"`
}

func toUser(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		AboutMe:   u.AboutMe,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

func toProfile(p model.Profile) profileResponse {
	return profileResponse{
		userResponse:   toUser(p.User),
		FollowersCount: p.FollowersCount,
		FollowedCount:  p.FollowedCount,
		IsFollowing:    p.IsFollowing,
		IsSelf:         p.IsSelf,
	}
}

func toPost(p model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Body:      p.Body,
		Timestamp: p.Timestamp,
		Language:  p.Language,
		Author: authorResponse{
			ID:       p.AuthorID,
			Username: p.AuthorUsername,
		},
	}
}

func toPage(p model.Page[model.Post]) pageResponse {
	items := make([]postResponse, 0, len(p.Items))
	for _, post := range p.Items {
		items = append(items, toPost(post))
	}
	return pageResponse{
		Items: items,
		Next:  p.Next,
		Prev:  p.Prev,
	}
}

func bearer(token string) tokenResponse {
	return tokenResponse{AccessToken: token, TokenType: "Bearer"}
}
