package vectorstore

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"

	"gorm.io/gorm"
)

// SQLStore keeps chunks and their vectors in the indexed_chunks table.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a SQLStore on the given connection.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Save replaces the chunks stored for the source in one transaction.
func (s *SQLStore) Save(ctx context.Context, sourceKey string, chunks []*schema.Chunk) error {
	rows := make([]models.IndexedChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = models.IndexedChunk{
			SourceKey:  sourceKey,
			ChunkIndex: c.Index,
			ChunkID:    c.ID,
			Text:       c.Text,
			Embedding:  c.Embedding,
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_key = ?", sourceKey).Delete(&models.IndexedChunk{}).Error; err != nil {
			return fmt.Errorf("failed to clear chunks of %s: %w", sourceKey, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to store chunks of %s: %w", sourceKey, err)
		}
		return nil
	})
}

// Load reads back every chunk of the source ordered by chunk index.
func (s *SQLStore) Load(ctx context.Context, sourceKey string) ([]*schema.Chunk, error) {
	var rows []models.IndexedChunk
	err := s.db.WithContext(ctx).
		Where("source_key = ?", sourceKey).
		Order("chunk_index asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks of %s: %w", sourceKey, err)
	}
	chunks := make([]*schema.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = &schema.Chunk{ID: r.ChunkID, Index: r.ChunkIndex, Text: r.Text, Embedding: r.Embedding}
	}
	return chunks, nil
}

// Delete removes every chunk of the source.
func (s *SQLStore) Delete(ctx context.Context, sourceKey string) error {
	if err := s.db.WithContext(ctx).Where("source_key = ?", sourceKey).Delete(&models.IndexedChunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", sourceKey, err)
	}
	return nil
}

// Ref implements interfaces.PersistedIndex.
func (s *SQLStore) Ref() string {
	return "sql:" + models.IndexedChunk{}.TableName()
}

// compile-time check to ensure SQLStore implements the PersistedIndex interface
var _ interfaces.PersistedIndex = (*SQLStore)(nil)
