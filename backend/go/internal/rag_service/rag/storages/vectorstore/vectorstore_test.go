package vectorstore

import (
	"context"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMemoryIndex_Search(t *testing.T) {
	idx := NewMemoryIndex([]*schema.Chunk{
		{ID: "a", Index: 0, Text: "sky", Embedding: []float32{1, 0, 0}},
		{ID: "b", Index: 1, Text: "sea", Embedding: []float32{0.7, 0.7, 0}},
		{ID: "c", Index: 2, Text: "grass", Embedding: []float32{0, 0, 1}},
		{ID: "d", Index: 3, Text: "no vector"},
	})
	assert.Equal(t, 3, idx.Len())

	got := idx.Search([]float32{1, 0.1, 0}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "sky", got[0].Text)
	assert.Equal(t, "sea", got[1].Text)
	assert.Greater(t, got[0].Score, got[1].Score)

	// 搜索结果是副本，不修改索引中的分块
	assert.Zero(t, idx.Chunks()[0].Score)

	assert.Len(t, idx.Search([]float32{1, 0, 0}, 10), 3)
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 0))
	assert.Empty(t, NewMemoryIndex(nil).Search([]float32{1}, 3))
}

func TestMemoryIndex_SkipsDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex([]*schema.Chunk{
		{Text: "two", Embedding: []float32{1, 0}},
		{Text: "three", Embedding: []float32{1, 0, 0}},
	})
	got := idx.Search([]float32{1, 0, 0}, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "three", got[0].Text)
}

func TestSQLStore_SaveLoadDelete(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.IndexedChunk{}))

	ctx := context.Background()
	s := NewSQLStore(db)
	chunks := []*schema.Chunk{
		{ID: "c1", Index: 1, Text: "second", Embedding: []float32{0, 1}},
		{ID: "c0", Index: 0, Text: "first", Embedding: []float32{1, 0}},
	}
	require.NoError(t, s.Save(ctx, "pdf:1", chunks))
	require.NoError(t, s.Save(ctx, "pdf:2", chunks[:1]))

	got, err := s.Load(ctx, "pdf:1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, []float32{1, 0}, got[0].Embedding)
	assert.Equal(t, "c1", got[1].ID)

	// 再次保存会替换旧的分块
	require.NoError(t, s.Save(ctx, "pdf:1", chunks[1:]))
	got, err = s.Load(ctx, "pdf:1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, s.Delete(ctx, "pdf:1"))
	got, err = s.Load(ctx, "pdf:1")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := s.Load(ctx, "pdf:2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
	assert.Equal(t, "sql:indexed_chunks", s.Ref())
}
