package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"

	ollama "github.com/ollama/ollama/api"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

// OllamaModel 通过本地 Ollama 服务计算分块与查询的向量。
type OllamaModel struct {
	client *ollama.Client
	model  string
}

// NewOllamaModel 根据 Ollama 配置创建客户端，地址和模型为空时使用本地默认值。
func NewOllamaModel(cfg config.OllamaConfig) (*OllamaModel, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	base := cfg.URL
	if base == "" {
		base = defaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ollama 地址无效: %w", err)
	}
	// 长文档的一批分块在 CPU 上可能需要较长时间
	hc := &http.Client{Timeout: 120 * time.Second}
	return &OllamaModel{client: ollama.NewClient(u, hc), model: model}, nil
}

// Embed 计算一条查询的向量。
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 在一次请求中计算整批分块的向量。
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return m.embed(ctx, texts, len(texts))
}

// embed 发送请求并检查返回的向量数量，input 可以是字符串或字符串切片。
func (m *OllamaModel) embed(ctx context.Context, input any, want int) ([][]float32, error) {
	truncate := true
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model:    m.model,
		Input:    input,
		Truncate: &truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama 向量计算失败 (%s): %w", m.model, err)
	}
	if len(resp.Embeddings) != want {
		return nil, fmt.Errorf("ollama 返回了 %d 个向量，期望 %d 个", len(resp.Embeddings), want)
	}
	for i, v := range resp.Embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("ollama 返回的第 %d 个向量为空", i)
		}
	}
	return resp.Embeddings, nil
}
