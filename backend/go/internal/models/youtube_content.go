package models

import (
	"time"

	"gorm.io/datatypes"
)

// YouTubeContent 保存从一个视频生成的内容。ContentData 的结构随 ContentType 变化。
type YouTubeContent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index;not null" json:"-"`
	VideoID      string         `gorm:"size:32;index" json:"video_id"`
	Title        string         `gorm:"size:255" json:"title"`
	VideoURL     string         `gorm:"size:512" json:"video_url"`
	ThumbnailURL string         `gorm:"size:512" json:"thumbnail_url"`
	ContentType  string         `gorm:"size:16" json:"content_type"`
	ContentData  datatypes.JSON `json:"content_data"`
	Summary      string         `gorm:"type:longtext" json:"-"` // 视频理解得到的摘要，作为对话的原文
	Placeholder  bool           `json:"placeholder"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (YouTubeContent) TableName() string {
	return "youtube_contents"
}
