package models

import "gorm.io/datatypes"

// IndexedChunk 是 MySQL 索引后端中持久化的一个文本分块及其向量。
type IndexedChunk struct {
	ID         uint                         `gorm:"primaryKey"`
	SourceKey  string                       `gorm:"index:idx_chunk_source;size:64;not null"`
	ChunkIndex int                          `gorm:"index:idx_chunk_source"`
	ChunkID    string                       `gorm:"size:36"`
	Text       string                       `gorm:"type:text;not null"`
	Embedding  datatypes.JSONSlice[float32] `gorm:"not null"`
}

func (IndexedChunk) TableName() string {
	return "indexed_chunks"
}
