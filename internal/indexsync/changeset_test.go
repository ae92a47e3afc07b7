package indexsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Willamette-OR/microblog/internal/model"
)

func post(id int64, body string) model.Post {
	return model.Post{ID: id, Body: body}
}

func TestChangeSet_Capture(t *testing.T) {
	tests := []struct {
		name         string
		record       func(c *ChangeSet)
		wantCreated  []model.Document
		wantModified []model.Document
		wantDeleted  []model.DocumentRef
	}{
		{
			name:   "empty",
			record: func(c *ChangeSet) {},
		},
		{
			name: "one of each",
			record: func(c *ChangeSet) {
				c.Created(post(1, "new"))
				c.Modified(post(2, "edited"))
				c.Deleted(post(3, "gone"))
			},
			wantCreated:  []model.Document{post(1, "new").SearchDocument()},
			wantModified: []model.Document{post(2, "edited").SearchDocument()},
			wantDeleted:  []model.DocumentRef{{Index: model.PostIndex, ID: 3}},
		},
		{
			name: "created then modified stays created with latest body",
			record: func(c *ChangeSet) {
				c.Created(post(1, "draft"))
				c.Modified(post(1, "final"))
			},
			wantCreated: []model.Document{post(1, "final").SearchDocument()},
		},
		{
			name: "created then deleted vanishes",
			record: func(c *ChangeSet) {
				c.Created(post(1, "oops"))
				c.Deleted(post(1, "oops"))
			},
		},
		{
			name: "modified then deleted becomes deleted",
			record: func(c *ChangeSet) {
				c.Modified(post(7, "edit"))
				c.Deleted(post(7, "edit"))
			},
			wantDeleted: []model.DocumentRef{{Index: model.PostIndex, ID: 7}},
		},
		{
			name: "modified twice keeps latest",
			record: func(c *ChangeSet) {
				c.Modified(post(4, "a"))
				c.Modified(post(4, "b"))
			},
			wantModified: []model.Document{post(4, "b").SearchDocument()},
		},
		{
			name: "deleted ignores later modification",
			record: func(c *ChangeSet) {
				c.Deleted(post(5, "x"))
				c.Modified(post(5, "y"))
			},
			wantDeleted: []model.DocumentRef{{Index: model.PostIndex, ID: 5}},
		},
		{
			name: "created deleted created again is emitted once",
			record: func(c *ChangeSet) {
				c.Created(post(6, "one"))
				c.Deleted(post(6, "one"))
				c.Created(post(6, "two"))
			},
			wantCreated: []model.Document{post(6, "two").SearchDocument()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChangeSet()
			tt.record(c)

			b := c.Capture()
			assert.Equal(t, tt.wantCreated, b.Created)
			assert.Equal(t, tt.wantModified, b.Modified)
			assert.Equal(t, tt.wantDeleted, b.Deleted)
			assert.Equal(t, len(tt.wantCreated)+len(tt.wantModified)+len(tt.wantDeleted), b.Len())
		})
	}
}

func TestChangeSet_CaptureIsSnapshot(t *testing.T) {
	c := NewChangeSet()
	c.Created(post(1, "before"))

	b := c.Capture()
	c.Modified(post(1, "after"))

	require.Len(t, b.Created, 1)
	assert.Equal(t, "before", b.Created[0].Body)
	assert.Equal(t, 1, c.Len())
}

func TestBatch_Empty(t *testing.T) {
	assert.True(t, Batch{}.Empty())
	assert.False(t, Batch{Deleted: []model.DocumentRef{{Index: model.PostIndex, ID: 1}}}.Empty())
}
