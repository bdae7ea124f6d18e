package embedding

import (
	"context"
	"fmt"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
)

// NewEmdModel 根据配置中的提供商创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	ctx: 上下文，用于初始化需要连接的客户端。
//	cfg: Embedding 配置 (provider 为 "gemini"、"openai" 或 "ollama")。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果缺少凭证则返回 ServiceUnavailable；提供商不支持时返回普通错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	switch ModelType(cfg.Provider) {
	case "", Google, "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, apperr.New(apperr.ServiceUnavailable, "Google API key is not configured")
		}
		return NewGoogleModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case OpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, apperr.New(apperr.ServiceUnavailable, "OpenAI API key is not configured")
		}
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case Ollama:
		return NewOllamaModel(cfg.Ollama)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
