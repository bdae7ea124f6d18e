package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 与 VideoLLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client     *genai.Client
	model      *genai.GenerativeModel // 文本生成模型
	videoModel *genai.GenerativeModel // 视频理解模型
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	cfg: Gemini 配置，包含 API 密钥、文本模型、视频模型与温度。
//
// 返回值:
//
//	*Gemini: 新创建的 Gemini 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("创建 GenAI 客户端失败: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	videoName := cfg.VideoModel
	if videoName == "" {
		videoName = cfg.Model
	}
	videoModel := client.GenerativeModel(videoName)
	videoModel.SetTemperature(cfg.Temperature)

	return &Gemini{client: client, model: model, videoModel: videoModel}, nil
}

// Generate 向 Gemini API 发送单轮请求并返回文本。
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// GenerateFromVideo 把视频链接作为 FileData 与提示词一起发送。
func (g *Gemini) GenerateFromVideo(ctx context.Context, videoURL, prompt string) (string, error) {
	resp, err := g.videoModel.GenerateContent(ctx,
		genai.FileData{MIMEType: "video/*", URI: videoURL},
		genai.Text(prompt),
	)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Close 释放底层客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText 拼接第一个候选结果中的全部文本部分。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
