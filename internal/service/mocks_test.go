package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Willamette-OR/microblog/internal/model"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockFollowStore mocks the FollowStore interface
type MockFollowStore struct {
	mock.Mock
}

func (m *MockFollowStore) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	args := m.Called(ctx, followerID, followedID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowStore) Insert(ctx context.Context, followerID, followedID int64) (bool, error) {
	args := m.Called(ctx, followerID, followedID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowStore) Delete(ctx context.Context, followerID, followedID int64) (bool, error) {
	args := m.Called(ctx, followerID, followedID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowStore) FollowersOf(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockFollowStore) FollowedBy(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockFollowStore) Counts(ctx context.Context, userID int64) (int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockPostStore mocks the PostStore interface
type MockPostStore struct {
	mock.Mock
}

func (m *MockPostStore) GetByID(ctx context.Context, id int64) (model.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostStore) GetByIDs(ctx context.Context, ids []int64) ([]model.Post, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostStore) ListFollowed(ctx context.Context, userID int64, limit, offset int) ([]model.Post, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostStore) ListAll(ctx context.Context, limit, offset int) ([]model.Post, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostStore) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	args := m.Called(ctx, authorID, limit, offset)
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostStore) ScanAfter(ctx context.Context, afterID int64, limit int) ([]model.Post, error) {
	args := m.Called(ctx, afterID, limit)
	return args.Get(0).([]model.Post), args.Error(1)
}

// MockPostWriter mocks the PostWriter interface
type MockPostWriter struct {
	mock.Mock
}

func (m *MockPostWriter) GetByID(ctx context.Context, id int64) (model.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostWriter) Create(ctx context.Context, post model.Post) (model.Post, error) {
	args := m.Called(ctx, post)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostWriter) Update(ctx context.Context, post model.Post) (model.Post, error) {
	args := m.Called(ctx, post)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostWriter) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSearchIndex mocks the SearchIndex interface
type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) AddOrUpdate(ctx context.Context, doc model.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockSearchIndex) Remove(ctx context.Context, ref model.DocumentRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockSearchIndex) Query(ctx context.Context, index, expression string, page, perPage int) ([]int64, int, error) {
	args := m.Called(ctx, index, expression, page, perPage)
	return args.Get(0).([]int64), args.Int(1), args.Error(2)
}

// MockTokenManager mocks the TokenManager interface
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAccessToken(userID int64) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) ParseAccessToken(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

// stubTransactor runs the unit of work against mocked stores and reports
// a failed unit of work as an aborted transaction.
type stubTransactor struct {
	users   *MockUserStore
	posts   *MockPostWriter
	follows *MockFollowStore
	calls   int
}

func newStubTransactor() *stubTransactor {
	return &stubTransactor{
		users:   new(MockUserStore),
		posts:   new(MockPostWriter),
		follows: new(MockFollowStore),
	}
}

func (s *stubTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.TxStores) error) error {
	s.calls++
	if err := fn(ctx, s); err != nil {
		return &model.TransactionAbortError{Err: err}
	}
	return nil
}

func (s *stubTransactor) Users() model.UserStore     { return s.users }
func (s *stubTransactor) Posts() model.PostWriter    { return s.posts }
func (s *stubTransactor) Follows() model.FollowStore { return s.follows }

type stubDetector string

func (d stubDetector) Detect(string) string { return string(d) }
