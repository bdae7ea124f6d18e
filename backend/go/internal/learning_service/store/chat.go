package store

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
)

// AddChatMessages 追加一轮或多轮对话。
func (s *Store) AddChatMessages(ctx context.Context, msgs ...*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.DB.WithContext(ctx).Create(msgs).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save chat messages", err)
	}
	return nil
}

// ChatHistory 按时间顺序返回某个来源最近的 limit 条消息，limit 为 0 表示全部。
func (s *Store) ChatHistory(ctx context.Context, sourceKey string, userID uint, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	q := s.DB.WithContext(ctx).
		Where("source_key = ? AND user_id = ?", sourceKey, userID).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load chat history", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
