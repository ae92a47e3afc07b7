package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	restctx "github.com/Willamette-OR/microblog/internal/api/rest/context"
	"github.com/Willamette-OR/microblog/internal/model"
	"github.com/Willamette-OR/microblog/internal/testutil"
)

func newTimelineEngine(feed *MockFeedService, search *MockSearchService, users *MockUserService, viewerID int64) *gin.Engine {
	ctxMgr := restctx.NewManager()
	h := NewTimeline(feed, search, users, ctxMgr, testutil.MakeNoopLogger())

	e := gin.New()
	authed := e.Group("", asViewer(ctxMgr, viewerID))
	authed.GET("/feed", h.Feed)
	authed.GET("/explore", h.Explore)
	authed.GET("/search", h.Search)
	authed.GET("/users/:username/posts", h.ByAuthor)
	return e
}

func postsPage(number, size int, ids ...int64) model.Page[model.Post] {
	rows := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.Post{ID: id, Body: "post", AuthorID: 1, AuthorUsername: "john"})
	}
	return model.NewPage(rows, number, size)
}

func pageIDs(t *testing.T, body []byte) (ids []int64, next, prev string) {
	t.Helper()
	var got pageResponse
	require.NoError(t, json.Unmarshal(body, &got))
	for _, p := range got.Items {
		ids = append(ids, p.ID)
	}
	return ids, got.Next, got.Prev
}

func TestTimeline_Feed(t *testing.T) {
	t.Run("first page", func(t *testing.T) {
		feed := &MockFeedService{}
		feed.On("Followed", mock.Anything, int64(1), "").Return(postsPage(1, 2, 4, 3, 2), nil)

		w := serve(t, newTimelineEngine(feed, &MockSearchService{}, &MockUserService{}, 1), http.MethodGet, "/feed", "")
		require.Equal(t, http.StatusOK, w.Code)

		ids, next, prev := pageIDs(t, w.Body.Bytes())
		assert.Equal(t, []int64{4, 3}, ids)
		assert.Equal(t, model.EncodePageToken(2), next)
		assert.Empty(t, prev)
	})

	t.Run("page token forwarded", func(t *testing.T) {
		token := model.EncodePageToken(2)
		feed := &MockFeedService{}
		feed.On("Followed", mock.Anything, int64(1), token).Return(postsPage(2, 2, 2), nil)

		w := serve(t, newTimelineEngine(feed, &MockSearchService{}, &MockUserService{}, 1), http.MethodGet, "/feed?page="+token, "")
		require.Equal(t, http.StatusOK, w.Code)

		ids, next, prev := pageIDs(t, w.Body.Bytes())
		assert.Equal(t, []int64{2}, ids)
		assert.Empty(t, next)
		assert.Equal(t, model.EncodePageToken(1), prev)
	})

	t.Run("bad token", func(t *testing.T) {
		feed := &MockFeedService{}
		feed.On("Followed", mock.Anything, int64(1), "garbage").
			Return(model.Page[model.Post]{}, &model.ValidationError{Field: "page", Reason: "malformed page token"})

		w := serve(t, newTimelineEngine(feed, &MockSearchService{}, &MockUserService{}, 1), http.MethodGet, "/feed?page=garbage", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := serve(t, newTimelineEngine(&MockFeedService{}, &MockSearchService{}, &MockUserService{}, 0), http.MethodGet, "/feed", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTimeline_Explore(t *testing.T) {
	feed := &MockFeedService{}
	feed.On("Explore", mock.Anything, "").Return(postsPage(1, 25), nil)

	w := serve(t, newTimelineEngine(feed, &MockSearchService{}, &MockUserService{}, 1), http.MethodGet, "/explore", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestTimeline_ByAuthor(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		users := &MockUserService{}
		users.On("ByUsername", mock.Anything, "john").Return(model.User{ID: 1, Username: "john"}, nil)
		feed := &MockFeedService{}
		feed.On("ByAuthor", mock.Anything, int64(1), "").Return(postsPage(1, 25, 3, 1), nil)

		w := serve(t, newTimelineEngine(feed, &MockSearchService{}, users, 2), http.MethodGet, "/users/john/posts", "")
		require.Equal(t, http.StatusOK, w.Code)

		ids, _, _ := pageIDs(t, w.Body.Bytes())
		assert.Equal(t, []int64{3, 1}, ids)
	})

	t.Run("unknown author", func(t *testing.T) {
		users := &MockUserService{}
		users.On("ByUsername", mock.Anything, "ghost").Return(model.User{}, model.NewErrUserNotFound("ghost"))
		feed := &MockFeedService{}

		w := serve(t, newTimelineEngine(feed, &MockSearchService{}, users, 2), http.MethodGet, "/users/ghost/posts", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		feed.AssertNotCalled(t, "ByAuthor", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTimeline_Search(t *testing.T) {
	tests := []struct {
		name       string
		result     model.SearchResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name: "hits",
			result: model.SearchResult{
				Page:  model.Page[model.Post]{Items: []model.Post{{ID: 5, Body: "go", AuthorID: 1, AuthorUsername: "john"}}},
				Total: 1,
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "index down",
			err:        &model.IndexUnavailableError{Op: "query", Index: model.PostIndex, Err: errors.New("dial tcp: refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"search is temporarily unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &MockSearchService{}
			search.On("Posts", mock.Anything, "go", "").Return(tt.result, tt.err)

			w := serve(t, newTimelineEngine(&MockFeedService{}, search, &MockUserService{}, 1), http.MethodGet, "/search?q=go", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
				return
			}

			var got searchResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, 1, got.Total)
			require.Len(t, got.Items, 1)
			assert.Equal(t, int64(5), got.Items[0].ID)
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &model.ValidationError{Field: "body", Reason: "too long"}, http.StatusBadRequest},
		{"validation inside aborted tx", &model.TransactionAbortError{Err: model.ErrSelfFollow}, http.StatusBadRequest},
		{"not found", model.NewErrPostNotFound(1), http.StatusNotFound},
		{"bare not found", model.ErrNotFound, http.StatusNotFound},
		{"credentials", model.ErrInvalidCredentials, http.StatusUnauthorized},
		{"index", &model.IndexUnavailableError{Op: "query", Err: errors.New("x")}, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusOf(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
