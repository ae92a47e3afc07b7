package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Willamette-OR/microblog/internal/indexsync"
	"github.com/Willamette-OR/microblog/internal/model"
)

var (
	_ model.PostStore       = (*PostRepository)(nil)
	_ model.PostWriter      = (*PostRepository)(nil)
	_ model.IndexableSource = (*PostSource)(nil)
)

const postSelect = `SELECT p.id, p.body, p.created_at, p.author_id, u.username, p.language
			  FROM posts p
			  JOIN users u ON u.id = p.author_id`

// newest first, id breaks timestamp ties
const postOrder = ` ORDER BY p.created_at DESC, p.id DESC`

// PostRepository reads and writes posts. Writes are recorded into changes
// when the repository is bound to a transaction.
type PostRepository struct {
	db      querier
	changes *indexsync.ChangeSet
}

func NewPostRepository(db *Connection) *PostRepository {
	return &PostRepository{
		db: db,
	}
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (model.Post, error) {
	query := postSelect + ` WHERE p.id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, model.NewErrPostNotFound(id)
		}
		return model.Post{}, fmt.Errorf("failed to get post by id: %w", err)
	}

	return post, nil
}

// GetByIDs returns the existing posts among ids in no particular order.
func (r *PostRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	return r.list(ctx, "get posts by ids", postSelect+` WHERE p.id = ANY($1)`, ids)
}

// ListFollowed returns the posts of everyone userID follows plus userID's own.
func (r *PostRepository) ListFollowed(ctx context.Context, userID int64, limit, offset int) ([]model.Post, error) {
	query := postSelect + `
			  WHERE p.author_id = $1
			     OR p.author_id IN (SELECT followed_id FROM follows WHERE follower_id = $1)` +
		postOrder + ` LIMIT $2 OFFSET $3`

	return r.list(ctx, "list followed posts", query, userID, limit, offset)
}

func (r *PostRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Post, error) {
	return r.list(ctx, "list posts", postSelect+postOrder+` LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	query := postSelect + ` WHERE p.author_id = $1` + postOrder + ` LIMIT $2 OFFSET $3`
	return r.list(ctx, "list posts by author", query, authorID, limit, offset)
}

// ScanAfter returns up to limit posts with id greater than afterID, by id.
func (r *PostRepository) ScanAfter(ctx context.Context, afterID int64, limit int) ([]model.Post, error) {
	query := postSelect + ` WHERE p.id > $1 ORDER BY p.id LIMIT $2`
	return r.list(ctx, "scan posts", query, afterID, limit)
}

func (r *PostRepository) Create(ctx context.Context, post model.Post) (model.Post, error) {
	query := `WITH saved AS (
				INSERT INTO posts (body, author_id, language)
				VALUES ($1, $2, $3)
				RETURNING id, body, created_at, author_id, language
			  )
			  SELECT s.id, s.body, s.created_at, s.author_id, u.username, s.language
			  FROM saved s JOIN users u ON u.id = s.author_id`

	saved, err := scanPost(r.db.QueryRow(ctx, query, post.Body, post.AuthorID, post.Language))
	if err != nil {
		if verr := asValidation(err); verr != err {
			return model.Post{}, verr
		}
		return model.Post{}, fmt.Errorf("failed to create post: %w", err)
	}

	if r.changes != nil {
		r.changes.Created(saved)
	}
	return saved, nil
}

// Update rewrites the body and language of an existing post.
func (r *PostRepository) Update(ctx context.Context, post model.Post) (model.Post, error) {
	query := `WITH saved AS (
				UPDATE posts SET body = $2, language = $3
				WHERE id = $1
				RETURNING id, body, created_at, author_id, language
			  )
			  SELECT s.id, s.body, s.created_at, s.author_id, u.username, s.language
			  FROM saved s JOIN users u ON u.id = s.author_id`

	saved, err := scanPost(r.db.QueryRow(ctx, query, post.ID, post.Body, post.Language))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, model.NewErrPostNotFound(post.ID)
		}
		return model.Post{}, fmt.Errorf("failed to update post: %w", err)
	}

	if r.changes != nil {
		r.changes.Modified(saved)
	}
	return saved, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1 RETURNING id, body, created_at, author_id, '', language`

	deleted, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewErrPostNotFound(id)
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if r.changes != nil {
		r.changes.Deleted(deleted)
	}
	return nil
}

func (r *PostRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Post, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return posts, nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var post model.Post
	err := row.Scan(
		&post.ID, &post.Body, &post.Timestamp, &post.AuthorID, &post.AuthorUsername, &post.Language,
	)
	return post, err
}

// PostSource exposes the posts table to reindexing and journal recovery.
type PostSource struct {
	posts *PostRepository
}

func NewPostSource(db *Connection) *PostSource {
	return &PostSource{posts: NewPostRepository(db)}
}

func (s *PostSource) Index() string {
	return model.PostIndex
}

func (s *PostSource) ScanAfter(ctx context.Context, afterID int64, limit int) ([]model.Indexable, error) {
	posts, err := s.posts.ScanAfter(ctx, afterID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.Indexable, len(posts))
	for i, p := range posts {
		items[i] = p
	}
	return items, nil
}

func (s *PostSource) Lookup(ctx context.Context, id int64) (model.Indexable, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return post, nil
}
