package model

import "context"

// Document is the index-only projection of a searchable entity.
type Document struct {
	Index    string `json:"index"`
	ID       int64  `json:"id"`
	Body     string `json:"body"`
	Language string `json:"language,omitempty"`
}

// Ref identifies a document inside an index.
func (d Document) Ref() DocumentRef {
	return DocumentRef{Index: d.Index, ID: d.ID}
}

// DocumentRef identifies a document without its content.
type DocumentRef struct {
	Index string `json:"index"`
	ID    int64  `json:"id"`
}

// Indexable is implemented by every entity kept in the search index.
type Indexable interface {
	SearchDocument() Document
}

// SearchIndex is an inverted full-text index. Query returns identifiers only,
// ordered by relevance.
type SearchIndex interface {
	AddOrUpdate(ctx context.Context, doc Document) error
	Remove(ctx context.Context, ref DocumentRef) error
	Query(ctx context.Context, index, expression string, page, perPage int) (ids []int64, total int, err error)
}

// IndexableSource iterates every row of a searchable table in id order.
type IndexableSource interface {
	Index() string
	ScanAfter(ctx context.Context, afterID int64, limit int) ([]Indexable, error)
	Lookup(ctx context.Context, id int64) (Indexable, error)
}

// SearchResult is one page of search hits re-fetched from the store.
type SearchResult struct {
	Page  Page[Post]
	Total int
}
