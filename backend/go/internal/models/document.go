package models

import (
	"fmt"
	"time"
)

// Document 是用户上传的一份 PDF。
// 上传后 Processed 为 false，后台完成文本提取与分块索引后置为 true。
type Document struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"-"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	ObjectKey       string    `gorm:"size:512;not null" json:"-"` // MinIO 中的对象名
	Size            int64     `json:"size"`
	ContentType     string    `gorm:"size:100" json:"content_type"`
	Processed       bool      `gorm:"not null;default:false" json:"processed"`
	ExtractedText   string    `gorm:"type:longtext" json:"-"`
	IndexRef        string    `gorm:"size:255" json:"-"` // 持久化索引的位置，例如 "milvus:document_chunks"
	ChunkCount      int       `json:"chunk_count"`
	ProcessingError string    `gorm:"size:1024" json:"processing_error,omitempty"`
	UploadedAt      time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// SourceKey 返回该文档在对话与索引中使用的键。
func (d *Document) SourceKey() string {
	return PDFSourceKey(d.ID)
}

// PDFSourceKey 根据文档ID构造来源键。
func PDFSourceKey(documentID string) string {
	return "pdf:" + documentID
}

// VideoSourceKey 根据用户与视频ID构造来源键。同一视频的摘要按用户分别保存，索引与对话也按用户隔离。
func VideoSourceKey(userID uint, videoID string) string {
	return fmt.Sprintf("youtube:%d:%s", userID, videoID)
}
