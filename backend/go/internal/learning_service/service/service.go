// Package service 编排学习服务的各条流水线：上传与后台处理 PDF、生成测验/卡片/笔记、YouTube 视频内容以及导出。
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/extractor"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/publisher"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/store"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// ChatIndex 是检索对话层中被学习服务使用的部分。
type ChatIndex interface {
	IndexDocument(ctx context.Context, documentID, text string) (int, error)
	IndexRef() string
	DeleteSource(ctx context.Context, userID uint, sourceKey string) error
	StartVideoChat(ctx context.Context, userID uint, videoID, summary string) (string, error)
}

// Deps 是 Service 的依赖。Records 与 Dispatcher 可以为空。
type Deps struct {
	Store      *store.Store
	Blobs      store.BlobStore
	Records    store.RecordStore
	Extractor  *extractor.Extractor
	Invoker    *generation.Invoker
	Chat       ChatIndex
	Dispatcher publisher.Dispatcher
}

// Service 是学习服务的业务逻辑层。
type Service struct {
	store      *store.Store
	blobs      store.BlobStore
	records    store.RecordStore
	extractor  *extractor.Extractor
	invoker    *generation.Invoker
	chat       ChatIndex
	dispatcher publisher.Dispatcher
	cfg        config.GenerationConfig
	log        *logger.Logger
}

// New 创建一个新的 Service 实例。
func New(deps Deps, cfg config.GenerationConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.DefaultItems <= 0 {
		cfg.DefaultItems = generation.DefaultCount
	}
	if cfg.MaxItems <= 0 || cfg.MaxItems > generation.MaxCount {
		cfg.MaxItems = generation.MaxCount
	}
	return &Service{
		store:      deps.Store,
		blobs:      deps.Blobs,
		records:    deps.Records,
		extractor:  deps.Extractor,
		invoker:    deps.Invoker,
		chat:       deps.Chat,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// SetDispatcher 设置后台任务的分发器。进程内分发器需要回调 Service，只能在创建之后设置。
func (s *Service) SetDispatcher(d publisher.Dispatcher) {
	s.dispatcher = d
}

// record 写入一条生成审计记录。审计失败不影响生成结果。
func (s *Service) record(ctx context.Context, userID uint, artifact generation.ArtifactType, sourceKey string, artifactID uint, out generation.Output, genErr error) {
	if s.records == nil {
		return
	}
	rec := &models.GenerationRecord{
		ID:           uuid.New().String(),
		UserID:       userID,
		ArtifactType: artifact.String(),
		SourceKey:    sourceKey,
		ArtifactID:   artifactID,
		RawOutput:    out.Raw,
		Strategy:     out.Strategy,
		ItemCount:    out.Len(),
		CreatedAt:    time.Now().UTC(),
	}
	if genErr != nil {
		rec.Error = genErr.Error()
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		s.log.WithField("artifact", artifact.String()).Warn("写入生成记录失败: " + err.Error())
	}
}

// RecentGenerations 返回用户最近的生成记录。
func (s *Service) RecentGenerations(ctx context.Context, userID uint, limit int) ([]*models.GenerationRecord, error) {
	if s.records == nil {
		return []*models.GenerationRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.records.Recent(ctx, userID, limit)
}

func titleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func artifactTitle(kind, source string) string {
	return fmt.Sprintf("%s: %s", kind, source)
}
