// Package service 实现基于检索的对话：为 PDF 文本和视频摘要建立向量索引，并用最相关的分块回答问题。
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/pipeline"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/splitters"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/history"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/vectorstore"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/util"

	"golang.org/x/sync/singleflight"
)

const (
	// NoInfoReply 是检索不到任何分块时的固定回复，此时不会调用 LLM。
	NoInfoReply = "I don't have enough information to answer that question."
	// VideoWelcome 是视频对话开始时的欢迎语。
	VideoWelcome = "Hello! I'm ready to help you understand this video. What would you like to know?"
)

// Documents 读取文档，按所有者过滤。
type Documents interface {
	GetDocument(ctx context.Context, id string, userID uint) (*models.Document, error)
}

// Videos 读取用户保存过的视频摘要。
type Videos interface {
	VideoSummary(ctx context.Context, userID uint, videoID string) (string, error)
}

// Messages 持久化对话记录。
type Messages interface {
	AddChatMessages(ctx context.Context, msgs ...*models.ChatMessage) error
	ChatHistory(ctx context.Context, sourceKey string, userID uint, limit int) ([]models.ChatMessage, error)
}

// Deps 是 Service 的依赖。Splitter、VideoSplitter 与 History 为空时使用默认实现，
// Persisted 为空时索引只保存在内存中。
type Deps struct {
	Documents     Documents
	Videos        Videos
	Messages      Messages
	History       interfaces.HistoryStore
	Embedder      interfaces.EmbeddingModel
	Persisted     interfaces.PersistedIndex
	LLM           interfaces.LLM
	Splitter      interfaces.Splitter
	VideoSplitter interfaces.Splitter
}

// Service 管理每个来源的索引与对话。
type Service struct {
	deps         Deps
	cfg          config.ChatConfig
	indexer      *pipeline.IndexingPipeline
	videoIndexer *pipeline.IndexingPipeline
	retriever    *pipeline.RetrievalPipeline
	qa           *pipeline.QAPipeline
	cache        *util.LRUCache[string, *vectorstore.MemoryIndex]
	loads        singleflight.Group
	log          *logger.Logger
}

// New 创建一个 Service。
func New(deps Deps, cfg config.ChatConfig, log *logger.Logger) (*Service, error) {
	if deps.Documents == nil || deps.Messages == nil || deps.Embedder == nil || deps.LLM == nil {
		return nil, fmt.Errorf("rag service: documents, messages, embedder and llm are required")
	}
	if log == nil {
		log = logger.Discard()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}

	var err error
	if deps.Splitter == nil {
		if deps.Splitter, err = splitters.New(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
			return nil, fmt.Errorf("创建分块器失败: %w", err)
		}
	}
	if deps.VideoSplitter == nil {
		if deps.VideoSplitter, err = splitters.New(cfg.VideoChunkSize, cfg.VideoOverlap); err != nil {
			return nil, fmt.Errorf("创建视频分块器失败: %w", err)
		}
	}
	if deps.History == nil {
		deps.History = history.NewInMemoryStore(cfg.HistoryTurns * 2)
	}

	capacity := cfg.CacheCapacity
	if capacity <= 0 && cfg.CacheMaxWeight <= 0 {
		capacity = 32
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, *vectorstore.MemoryIndex]{
		Capacity:  capacity,
		MaxWeight: cfg.CacheMaxWeight,
		TTL:       config.Duration(cfg.CacheTTL, time.Hour),
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		deps:         deps,
		cfg:          cfg,
		indexer:      pipeline.NewIndexingPipeline(deps.Splitter, deps.Embedder, deps.Persisted, log),
		videoIndexer: pipeline.NewIndexingPipeline(deps.VideoSplitter, deps.Embedder, deps.Persisted, log),
		retriever:    pipeline.NewRetrievalPipeline(deps.Embedder, log),
		qa:           pipeline.NewQAPipeline(deps.LLM, log),
		cache:        cache,
		log:          log,
	}, nil
}

// IndexRef 返回持久化索引的位置，写入 Document.IndexRef。
func (s *Service) IndexRef() string {
	if s.deps.Persisted == nil {
		return "memory"
	}
	return s.deps.Persisted.Ref()
}

// IndexDocument 为 PDF 文本建立索引并放入缓存，返回分块数量。
func (s *Service) IndexDocument(ctx context.Context, documentID, text string) (int, error) {
	return s.index(ctx, s.indexer, models.PDFSourceKey(documentID), text)
}

// IndexVideo 为用户的视频摘要建立索引并放入缓存，返回分块数量。
func (s *Service) IndexVideo(ctx context.Context, userID uint, videoID, summary string) (int, error) {
	return s.index(ctx, s.videoIndexer, models.VideoSourceKey(userID, videoID), summary)
}

func (s *Service) index(ctx context.Context, p *pipeline.IndexingPipeline, sourceKey, text string) (int, error) {
	idx, err := p.Run(ctx, sourceKey, text)
	if err != nil {
		return 0, err
	}
	s.cache.Put(sourceKey, idx, idx.Len())
	return idx.Len(), nil
}

// Chat 针对一份已处理的 PDF 回答问题。
func (s *Service) Chat(ctx context.Context, userID uint, documentID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperr.New(apperr.BadInput, "message is required")
	}
	doc, err := s.deps.Documents.GetDocument(ctx, documentID, userID)
	if err != nil {
		return "", err
	}
	if !doc.Processed {
		return "", apperr.New(apperr.NotReady, "PDF is still being processed")
	}

	sourceKey := doc.SourceKey()
	idx, err := s.loadIndex(ctx, sourceKey, func(ctx context.Context) (*vectorstore.MemoryIndex, error) {
		if strings.TrimSpace(doc.ExtractedText) == "" {
			return nil, nil
		}
		return s.indexer.Run(ctx, sourceKey, doc.ExtractedText)
	})
	if err != nil {
		return "", err
	}
	return s.answer(ctx, userID, sourceKey, "document", idx, message)
}

// History 返回用户与某份 PDF 的全部对话记录。
func (s *Service) History(ctx context.Context, userID uint, documentID string) ([]models.ChatMessage, error) {
	doc, err := s.deps.Documents.GetDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	return s.deps.Messages.ChatHistory(ctx, doc.SourceKey(), userID, 0)
}

// StartVideoChat 为视频摘要建立索引并返回欢迎语，欢迎语也会记入对话。
func (s *Service) StartVideoChat(ctx context.Context, userID uint, videoID, summary string) (string, error) {
	if _, err := s.IndexVideo(ctx, userID, videoID, summary); err != nil {
		return "", err
	}
	s.record(ctx, userID, models.VideoSourceKey(userID, videoID), interfaces.Turn{Role: string(models.RoleAssistant), Content: VideoWelcome})
	return VideoWelcome, nil
}

// VideoChat 针对用户处理过的视频回答问题。
func (s *Service) VideoChat(ctx context.Context, userID uint, videoID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperr.New(apperr.BadInput, "message is required")
	}
	if s.deps.Videos == nil {
		return "", apperr.New(apperr.NotFound, "video not found")
	}
	summary, err := s.deps.Videos.VideoSummary(ctx, userID, videoID)
	if err != nil {
		return "", err
	}

	sourceKey := models.VideoSourceKey(userID, videoID)
	idx, err := s.loadIndex(ctx, sourceKey, func(ctx context.Context) (*vectorstore.MemoryIndex, error) {
		return s.videoIndexer.Run(ctx, sourceKey, summary)
	})
	if err != nil {
		return "", err
	}
	return s.answer(ctx, userID, sourceKey, "video", idx, message)
}

// DeleteSource 删除来源的缓存索引、持久化分块以及该用户的对话历史。
func (s *Service) DeleteSource(ctx context.Context, userID uint, sourceKey string) error {
	s.cache.Delete(sourceKey)
	if err := s.deps.History.Clear(ctx, historyKey(sourceKey, userID)); err != nil {
		s.log.WithField("source", sourceKey).Warn("清除对话历史失败: " + err.Error())
	}
	if s.deps.Persisted != nil {
		if err := s.deps.Persisted.Delete(ctx, sourceKey); err != nil {
			return apperr.Wrap(apperr.Internal, "failed to delete index", err)
		}
	}
	return nil
}

// loadIndex 先查缓存，未命中时从持久化索引重新加载；持久化索引为空时调用 rebuild。
// 同一来源的并发加载只执行一次。
func (s *Service) loadIndex(ctx context.Context, sourceKey string, rebuild func(context.Context) (*vectorstore.MemoryIndex, error)) (*vectorstore.MemoryIndex, error) {
	if idx, ok := s.cache.Get(sourceKey); ok {
		return idx, nil
	}

	v, err, _ := s.loads.Do(sourceKey, func() (interface{}, error) {
		if idx, ok := s.cache.Get(sourceKey); ok {
			return idx, nil
		}
		log := s.log.WithField("source", sourceKey)

		if s.deps.Persisted != nil {
			chunks, err := s.deps.Persisted.Load(ctx, sourceKey)
			if err != nil {
				log.Warn("从持久化索引加载失败: " + err.Error())
			} else if len(chunks) > 0 {
				idx := vectorstore.NewMemoryIndex(chunks)
				s.cache.Put(sourceKey, idx, idx.Len())
				log.Info(fmt.Sprintf("已从持久化索引重新加载 %d 个分块", idx.Len()))
				return idx, nil
			}
		}

		if rebuild != nil {
			idx, err := rebuild(ctx)
			if err != nil {
				return nil, err
			}
			if idx != nil && idx.Len() > 0 {
				s.cache.Put(sourceKey, idx, idx.Len())
				return idx, nil
			}
		}
		return vectorstore.NewMemoryIndex(nil), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vectorstore.MemoryIndex), nil
}

func (s *Service) answer(ctx context.Context, userID uint, sourceKey, sourceLabel string, idx *vectorstore.MemoryIndex, message string) (string, error) {
	chunks, err := s.retriever.Run(ctx, idx, message, s.cfg.TopK)
	if err != nil {
		return "", err
	}

	reply := NoInfoReply
	if len(chunks) > 0 {
		turns := s.recentTurns(ctx, userID, sourceKey)
		reply, err = s.qa.Run(ctx, message, chunks, turns, sourceLabel)
		if err != nil {
			return "", err
		}
	}

	s.record(ctx, userID, sourceKey,
		interfaces.Turn{Role: string(models.RoleUser), Content: message},
		interfaces.Turn{Role: string(models.RoleAssistant), Content: reply},
	)
	return reply, nil
}

// recentTurns 返回最近的若干轮对话（每轮包含提问与回答），优先读取 Redis，失败或为空时读取数据库。
func (s *Service) recentTurns(ctx context.Context, userID uint, sourceKey string) []interfaces.Turn {
	n := s.cfg.HistoryTurns * 2
	if n == 0 {
		return nil
	}
	turns, err := s.deps.History.Recent(ctx, historyKey(sourceKey, userID), n)
	if err != nil {
		s.log.WithField("source", sourceKey).Warn("读取对话缓存失败: " + err.Error())
	}
	if len(turns) > 0 {
		return turns
	}

	msgs, err := s.deps.Messages.ChatHistory(ctx, sourceKey, userID, n)
	if err != nil {
		s.log.WithField("source", sourceKey).Warn("读取对话记录失败: " + err.Error())
		return nil
	}
	turns = make([]interfaces.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = interfaces.Turn{Role: string(m.Role), Content: m.Content}
	}
	return turns
}

// record 把对话写入 Redis 与数据库。写入失败不影响已经生成的回答。
func (s *Service) record(ctx context.Context, userID uint, sourceKey string, turns ...interfaces.Turn) {
	log := s.log.WithField("source", sourceKey)
	if err := s.deps.History.Append(ctx, historyKey(sourceKey, userID), turns...); err != nil {
		log.Warn("写入对话缓存失败: " + err.Error())
	}
	msgs := make([]*models.ChatMessage, len(turns))
	for i, t := range turns {
		msgs[i] = &models.ChatMessage{SourceKey: sourceKey, UserID: userID, Role: models.ChatRole(t.Role), Content: t.Content}
	}
	if err := s.deps.Messages.AddChatMessages(ctx, msgs...); err != nil {
		log.Warn("保存对话记录失败: " + err.Error())
	}
}

func historyKey(sourceKey string, userID uint) string {
	return fmt.Sprintf("%s:%d", sourceKey, userID)
}
