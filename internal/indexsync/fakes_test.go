package indexsync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Willamette-OR/microblog/internal/model"
)

// memoryIndex is a SearchIndex keeping the latest document per ref.
type memoryIndex struct {
	mu   sync.Mutex
	docs map[model.DocumentRef]model.Document
	log  []string
	fail func(op Op, ref model.DocumentRef) error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{docs: make(map[model.DocumentRef]model.Document)}
}

func (m *memoryIndex) AddOrUpdate(ctx context.Context, doc model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		if err := m.fail(OpAddOrUpdate, doc.Ref()); err != nil {
			return err
		}
	}
	m.docs[doc.Ref()] = doc
	m.log = append(m.log, "add:"+doc.Body)
	return nil
}

func (m *memoryIndex) Remove(ctx context.Context, ref model.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		if err := m.fail(OpRemove, ref); err != nil {
			return err
		}
	}
	delete(m.docs, ref)
	m.log = append(m.log, "remove")
	return nil
}

func (m *memoryIndex) Query(ctx context.Context, index, expression string, page, perPage int) ([]int64, int, error) {
	return nil, 0, errors.New("not supported")
}

func (m *memoryIndex) get(ref model.DocumentRef) (model.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[ref]
	return d, ok
}

func (m *memoryIndex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// memoryStorage is a Storage backed by a map.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (s *memoryStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memoryStorage) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// postSource is an IndexableSource over an in-memory set of posts.
type postSource struct {
	mu    sync.Mutex
	posts []model.Post
}

func (s *postSource) Index() string { return model.PostIndex }

// put inserts p or replaces the post with the same id.
func (s *postSource) put(p model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == p.ID {
			s.posts[i] = p
			return
		}
	}
	s.posts = append(s.posts, p)
}

func (s *postSource) ScanAfter(ctx context.Context, afterID int64, limit int) ([]model.Indexable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Indexable
	for _, p := range s.posts {
		if p.ID > afterID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *postSource) Lookup(ctx context.Context, id int64) (model.Indexable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, model.NewErrPostNotFound(id)
}

// failingSource fails every lookup with err.
type failingSource struct {
	err error
}

func (s failingSource) Index() string { return model.PostIndex }

func (s failingSource) ScanAfter(ctx context.Context, afterID int64, limit int) ([]model.Indexable, error) {
	return nil, s.err
}

func (s failingSource) Lookup(ctx context.Context, id int64) (model.Indexable, error) {
	return nil, s.err
}
