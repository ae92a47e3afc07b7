package model

import (
	"context"
	"strconv"
	"time"
)

// PostIndex is the search index name for posts.
const PostIndex = "post"

// MaxPostLength is the maximum post body length in runes.
const MaxPostLength = 140

// PostStore defines read operations for posts. Every list is ordered by
// timestamp descending with id descending as the tie-break.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (Post, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Post, error)
	ListFollowed(ctx context.Context, userID int64, limit, offset int) ([]Post, error)
	ListAll(ctx context.Context, limit, offset int) ([]Post, error)
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]Post, error)
	ScanAfter(ctx context.Context, afterID int64, limit int) ([]Post, error)
}

// PostWriter defines transactional write operations for posts.
type PostWriter interface {
	GetByID(ctx context.Context, id int64) (Post, error)
	Create(ctx context.Context, post Post) (Post, error)
	Update(ctx context.Context, post Post) (Post, error)
	Delete(ctx context.Context, id int64) error
}

// Post is a short message authored by a user.
type Post struct {
	ID             int64
	Body           string
	Timestamp      time.Time
	AuthorID       int64
	AuthorUsername string
	Language       string
}

// SearchDocument projects the indexed fields of the post.
func (p Post) SearchDocument() Document {
	return Document{
		Index:    PostIndex,
		ID:       p.ID,
		Body:     p.Body,
		Language: p.Language,
	}
}

// String returns the post id in decimal.
func (p Post) String() string {
	return strconv.FormatInt(p.ID, 10)
}
