// Package indexsync keeps the search index eventually consistent with the
// relational store. Writes are captured per transaction, frozen right before
// commit and replayed into the index only after the commit succeeded.
package indexsync

import (
	"sync"

	"github.com/Willamette-OR/microblog/internal/model"
)

type changeKind int

const (
	changeCreated changeKind = iota + 1
	changeModified
	changeDeleted
)

type change struct {
	kind changeKind
	doc  model.Document
}

// ChangeSet accumulates the searchable entities touched by one transaction.
// Every entity ends up in exactly one of created, modified or deleted.
type ChangeSet struct {
	mu      sync.Mutex
	entries map[model.DocumentRef]*change
	order   []model.DocumentRef
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{entries: make(map[model.DocumentRef]*change)}
}

// Created records a newly inserted entity.
func (c *ChangeSet) Created(item model.Indexable) {
	doc := item.SearchDocument()
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[doc.Ref()]; ok {
		e.kind = changeCreated
		e.doc = doc
		return
	}
	c.put(doc, changeCreated)
}

// Modified records an update. An entity created earlier in the same
// transaction stays created and carries the newest projection.
func (c *ChangeSet) Modified(item model.Indexable) {
	doc := item.SearchDocument()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[doc.Ref()]
	if !ok {
		c.put(doc, changeModified)
		return
	}
	if e.kind == changeDeleted {
		return
	}
	e.doc = doc
}

// Deleted records a removal. An entity created and deleted inside the same
// transaction never reaches the index, so it is forgotten entirely.
func (c *ChangeSet) Deleted(item model.Indexable) {
	doc := item.SearchDocument()
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := doc.Ref()
	e, ok := c.entries[ref]
	if !ok {
		c.put(doc, changeDeleted)
		return
	}
	if e.kind == changeCreated {
		delete(c.entries, ref)
		return
	}
	e.kind = changeDeleted
	e.doc = doc
}

// Len returns the number of distinct entities in the set.
func (c *ChangeSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capture freezes the set into a Batch. It must be called before commit;
// the change set itself can be discarded afterwards.
func (c *ChangeSet) Capture() Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b Batch
	emitted := make(map[model.DocumentRef]struct{}, len(c.entries))
	for _, ref := range c.order {
		e, ok := c.entries[ref]
		if !ok {
			continue
		}
		if _, dup := emitted[ref]; dup {
			continue
		}
		emitted[ref] = struct{}{}
		switch e.kind {
		case changeCreated:
			b.Created = append(b.Created, e.doc)
		case changeModified:
			b.Modified = append(b.Modified, e.doc)
		case changeDeleted:
			b.Deleted = append(b.Deleted, ref)
		}
	}
	return b
}

func (c *ChangeSet) put(doc model.Document, kind changeKind) {
	ref := doc.Ref()
	c.entries[ref] = &change{kind: kind, doc: doc}
	c.order = append(c.order, ref)
}

// Batch is the frozen outcome of a transaction. The three slices are
// disjoint by document reference.
type Batch struct {
	Created  []model.Document
	Modified []model.Document
	Deleted  []model.DocumentRef
}

// Len returns the number of index operations the batch produces.
func (b Batch) Len() int {
	return len(b.Created) + len(b.Modified) + len(b.Deleted)
}

// Empty reports whether the batch has nothing to replay.
func (b Batch) Empty() bool {
	return b.Len() == 0
}
