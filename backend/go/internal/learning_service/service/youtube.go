package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/extractor"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"gorm.io/datatypes"
)

// videoHistoryLimit 是 YouTube 历史接口返回的条目数。
const videoHistoryLimit = 4

// VideoResult 是一次 YouTube 内容生成的响应。
type VideoResult struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	Content     interface{} `json:"content"`
	VideoURL    string      `json:"video_url"`
	Placeholder bool        `json:"placeholder"`
}

// invokerSummarizer 让 Invoker 满足 extractor.VideoSummarizer。
type invokerSummarizer struct {
	invoker *generation.Invoker
}

func (s invokerSummarizer) Summarize(ctx context.Context, videoURL string) (string, error) {
	out, err := s.invoker.GenerateFromVideo(ctx, videoURL, generation.Chat, 0)
	if err != nil {
		return "", err
	}
	return out.Raw, nil
}

var videoKinds = map[generation.ArtifactType]string{
	generation.Quiz:       "Quiz",
	generation.Flashcards: "Flashcards",
	generation.Notes:      "Notes",
	generation.Chat:       "Chat",
}

// GenerateFromVideo 基于 YouTube 视频生成测验、卡片或笔记并保存。
// artifact 为 Chat 时生成视频摘要，建立对话索引并返回欢迎语。
func (s *Service) GenerateFromVideo(ctx context.Context, userID uint, url string, artifact generation.ArtifactType, count int) (*VideoResult, error) {
	kind, ok := videoKinds[artifact]
	if !ok {
		return nil, apperr.Newf(apperr.BadInput, "unsupported content type: %s", artifact)
	}
	if artifact == generation.Chat {
		return s.startVideoChat(ctx, userID, url)
	}

	videoID, err := extractor.VideoID(url)
	if err != nil {
		return nil, err
	}
	if count > s.cfg.MaxItems {
		return nil, apperr.Newf(apperr.BadInput, "num_questions must be between 1 and %d", s.cfg.MaxItems)
	}
	if count <= 0 {
		count = s.cfg.DefaultItems
	}

	out, err := s.invoker.GenerateFromVideo(ctx, extractor.ShareURL(videoID), artifact, count)
	if err != nil {
		s.record(ctx, userID, artifact, models.VideoSourceKey(userID, videoID), 0, out, err)
		return nil, err
	}
	content := videoContent(out.Result)
	data, err := json.Marshal(content)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode video content", err)
	}

	item := &models.YouTubeContent{
		UserID:       userID,
		VideoID:      videoID,
		Title:        fmt.Sprintf("YouTube %s: %s", kind, videoID),
		VideoURL:     extractor.WatchURL(videoID),
		ThumbnailURL: extractor.ThumbnailURL(videoID),
		ContentType:  artifact.String(),
		ContentData:  datatypes.JSON(data),
		Placeholder:  out.Placeholder,
	}
	if err := s.store.SaveYouTubeContent(ctx, item); err != nil {
		return nil, err
	}
	s.record(ctx, userID, artifact, models.VideoSourceKey(userID, videoID), item.ID, out, nil)
	return &VideoResult{
		ID:          item.ID,
		Title:       item.Title,
		Content:     content,
		VideoURL:    item.VideoURL,
		Placeholder: item.Placeholder,
	}, nil
}

func (s *Service) startVideoChat(ctx context.Context, userID uint, url string) (*VideoResult, error) {
	if s.chat == nil {
		return nil, apperr.New(apperr.ServiceUnavailable, "chat is not available")
	}
	videoID, summary, err := extractor.ExtractVideo(ctx, invokerSummarizer{invoker: s.invoker}, url)
	if err != nil {
		return nil, err
	}

	item := &models.YouTubeContent{
		UserID:       userID,
		VideoID:      videoID,
		Title:        "YouTube Chat: " + videoID,
		VideoURL:     extractor.WatchURL(videoID),
		ThumbnailURL: extractor.ThumbnailURL(videoID),
		ContentType:  generation.Chat.String(),
		ContentData:  datatypes.JSON(`{}`),
		Summary:      summary,
	}
	if err := s.store.SaveYouTubeContent(ctx, item); err != nil {
		return nil, err
	}
	welcome, err := s.chat.StartVideoChat(ctx, userID, videoID, summary)
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, generation.Chat, models.VideoSourceKey(userID, videoID), item.ID,
		generation.Output{Result: generation.Result{Artifact: generation.Chat}, Raw: summary}, nil)
	return &VideoResult{ID: item.ID, Title: item.Title, Content: welcome, VideoURL: item.VideoURL}, nil
}

func videoContent(res generation.Result) interface{} {
	switch res.Artifact {
	case generation.Quiz:
		return map[string]interface{}{"questions": res.Questions}
	case generation.Flashcards:
		return map[string]interface{}{"cards": res.Cards}
	default:
		return map[string]interface{}{"sections": res.Sections}
	}
}

// VideoHistory 返回用户最近生成的视频内容。
func (s *Service) VideoHistory(ctx context.Context, userID uint) ([]models.YouTubeContent, error) {
	return s.store.RecentYouTubeContent(ctx, userID, videoHistoryLimit)
}
