package store

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
)

// SaveYouTubeContent 保存一次视频内容生成的结果。
func (s *Store) SaveYouTubeContent(ctx context.Context, content *models.YouTubeContent) error {
	if err := s.DB.WithContext(ctx).Create(content).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to save video content", err)
	}
	return nil
}

// RecentYouTubeContent 返回用户最近的 limit 条视频内容。
func (s *Store) RecentYouTubeContent(ctx context.Context, userID uint, limit int) ([]models.YouTubeContent, error) {
	var items []models.YouTubeContent
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list video content", err)
	}
	return items, nil
}

// VideoSummary 返回用户为该视频保存过的最新摘要。没有时返回 NotFound。
func (s *Store) VideoSummary(ctx context.Context, userID uint, videoID string) (string, error) {
	var item models.YouTubeContent
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND video_id = ? AND summary <> ''", userID, videoID).
		Order("id desc").
		First(&item).Error
	if err != nil {
		return "", notFound(err, "video")
	}
	return item.Summary, nil
}
