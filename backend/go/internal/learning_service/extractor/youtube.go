package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#/]+)`),
}

// VideoID 从 YouTube 链接中解析视频 ID。
func VideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil && m[1] != "" {
			return m[1], nil
		}
	}
	return "", apperr.New(apperr.BadInput, "Invalid YouTube URL")
}

// ShareURL 返回模型读取视频时使用的短链接。
func ShareURL(videoID string) string {
	return "https://youtu.be/" + videoID
}

// WatchURL 返回视频的标准观看地址。
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL 返回视频的高清缩略图地址。
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}

// VideoSummarizer 让模型观看视频并返回文本。
type VideoSummarizer interface {
	Summarize(ctx context.Context, videoURL string) (string, error)
}

// ExtractVideo 解析视频 ID 并返回模型生成的摘要，摘要在后续流程中代替提取文本。
func ExtractVideo(ctx context.Context, s VideoSummarizer, url string) (string, string, error) {
	id, err := VideoID(url)
	if err != nil {
		return "", "", err
	}
	summary, err := s.Summarize(ctx, ShareURL(id))
	if err != nil {
		return id, "", err
	}
	if strings.TrimSpace(summary) == "" {
		return id, "", apperr.New(apperr.EmptyContent, "the video could not be summarised")
	}
	return id, summary, nil
}
