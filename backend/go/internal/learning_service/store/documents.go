package store

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"gorm.io/gorm"
)

// CreateDocument 保存一份新上传的文档。
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := s.DB.WithContext(ctx).Create(doc).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save document", err)
	}
	return nil
}

// GetDocument 返回属于 userID 的文档，不存在或不属于该用户时返回 NotFound。
func (s *Store) GetDocument(ctx context.Context, id string, userID uint) (*models.Document, error) {
	var doc models.Document
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&doc).Error
	if err != nil {
		return nil, notFound(err, "PDF")
	}
	return &doc, nil
}

// ListDocuments 按上传时间倒序列出用户的文档。
func (s *Store) ListDocuments(ctx context.Context, userID uint) ([]models.Document, error) {
	var docs []models.Document
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at desc").
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list documents", err)
	}
	return docs, nil
}

// DeleteDocument 删除文档及其对话记录，返回被删除的文档以便调用方清理文件与索引。
func (s *Store) DeleteDocument(ctx context.Context, id string, userID uint) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_key = ?", doc.SourceKey()).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(doc).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to delete document", err)
	}
	return doc, nil
}

// SaveExtractedText 缓存文档的提取文本。
func (s *Store) SaveExtractedText(ctx context.Context, id, text string) error {
	err := s.DB.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Update("extracted_text", text).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save extracted text", err)
	}
	return nil
}

// MarkProcessed 标记文档已完成提取与索引。
func (s *Store) MarkProcessed(ctx context.Context, id string, chunkCount int, indexRef string) error {
	err := s.DB.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":        true,
			"chunk_count":      chunkCount,
			"index_ref":        indexRef,
			"processing_error": "",
		}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to mark document processed", err)
	}
	return nil
}

// MarkFailed 记录后台处理失败，文档保持未处理状态。
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	if len(reason) > 1024 {
		reason = reason[:1024]
	}
	err := s.DB.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":        false,
			"processing_error": reason,
		}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to record processing error", err)
	}
	return nil
}
