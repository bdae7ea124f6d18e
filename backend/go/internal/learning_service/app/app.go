// Package app 组装学习服务的全部依赖，HTTP 服务与 PDF 后台 worker 共用同一套对象。
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/auth"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/database/kafka"
	"github.com/aimankahim/mcqsbank/backend/go/internal/database/milvus"
	minioclient "github.com/aimankahim/mcqsbank/backend/go/internal/database/minio"
	mongoclient "github.com/aimankahim/mcqsbank/backend/go/internal/database/mongo"
	"github.com/aimankahim/mcqsbank/backend/go/internal/database/mysql"
	redisdb "github.com/aimankahim/mcqsbank/backend/go/internal/database/redis"
	"github.com/aimankahim/mcqsbank/backend/go/internal/embedding"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/extractor"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/publisher"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/store"
	"github.com/aimankahim/mcqsbank/backend/go/internal/llm"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/embeddings"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/interfaces"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/history"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/storages/vectorstore"
	ragservice "github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
	httpserver "github.com/aimankahim/mcqsbank/backend/go/pkg/http"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/office"

	"gorm.io/gorm"
)

const localWorkers = 2

// App 持有学习服务运行所需的全部组件。
type App struct {
	Config  *config.AppConfig
	DB      *gorm.DB
	Store   *store.Store
	Service *service.Service
	Chat    *ragservice.Service
	Tokens  *auth.TokenManager
	Kafka   *kafka.KafkaClient

	local   *publisher.LocalDispatcher
	closers []func(ctx context.Context) error
	log     *logger.Logger
}

// Build 连接各存储并创建服务。模型凭证缺失时服务仍然启动，调用模型的接口返回 503。
func Build(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	if err := office.SetLicense(os.Getenv("UNIDOC_LICENSE_API_KEY")); err != nil {
		log.Warn("设置 unioffice 许可证失败，笔记导出不可用: " + err.Error())
	}

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	a.Tokens = tokens

	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func(context.Context) error { return mysql.Close() })
	a.Store = store.New(db, log)

	minioClient, err := minioclient.GetClient(&cfg.Databases.MinIO)
	if err != nil {
		return nil, err
	}
	blobs := store.NewMinIOBlobStore(minioClient, cfg.Databases.MinIO.Bucket)

	var records store.RecordStore
	if cfg.Databases.MongoDB.Address != "" {
		mc, err := mongoclient.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			return nil, err
		}
		coll, err := mongoclient.GenerationCollection(ctx, mc, &cfg.Databases.MongoDB)
		if err != nil {
			return nil, err
		}
		records = store.NewMongoRecordStore(coll)
		a.closers = append(a.closers, mongoclient.Close)
	} else {
		log.Warn("未配置 MongoDB，生成记录不会保存")
	}

	var chatHistory interfaces.HistoryStore
	if cfg.Databases.Redis.Address != "" {
		rdb, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			return nil, err
		}
		chatHistory = history.NewRedisStore(rdb, cfg.Chat.HistoryTurns*2, config.Duration(cfg.Chat.HistoryTTL, 24*time.Hour))
		a.closers = append(a.closers, func(context.Context) error { return redisdb.Close() })
	}

	persisted, err := a.persistedIndex(ctx)
	if err != nil {
		return nil, err
	}

	var breaker *circuitbreaker.Breaker
	if cfg.Middleware.CircuitBreaker.Enabled {
		if breaker, err = httpserver.NewBreaker(cfg.Middleware.CircuitBreaker); err != nil {
			return nil, err
		}
	}
	var (
		invokerModel llm.LLM
		chatModel    interfaces.LLM
	)
	model, err := llm.NewClient(ctx, cfg.LLM)
	switch {
	case err == nil:
		guarded := llm.NewGuarded(model, breaker)
		invokerModel, chatModel = guarded, guarded
	case apperr.Is(err, apperr.ServiceUnavailable):
		log.Warn("LLM 未配置: " + err.Error())
		chatModel = unavailable{err: err}
	default:
		return nil, err
	}

	var embedder interfaces.EmbeddingModel
	emd, err := embedding.NewEmdModel(ctx, cfg.Embedding)
	switch {
	case err == nil:
		embedder = embeddings.NewBatchAdapter(emd, cfg.Chat.EmbedBatchSize, 0)
	case apperr.Is(err, apperr.ServiceUnavailable):
		log.Warn("Embedding 模型未配置: " + err.Error())
		embedder = unavailable{err: err}
	default:
		return nil, err
	}

	chat, err := ragservice.New(ragservice.Deps{
		Documents: a.Store,
		Videos:    a.Store,
		Messages:  a.Store,
		History:   chatHistory,
		Embedder:  embedder,
		Persisted: persisted,
		LLM:       chatModel,
	}, cfg.Chat, log.WithField("component", "chat"))
	if err != nil {
		return nil, err
	}
	a.Chat = chat

	ext, err := extractor.New(a.Store, blobs, cfg.Generation.TextCacheSize, log)
	if err != nil {
		return nil, err
	}

	a.Service = service.New(service.Deps{
		Store:     a.Store,
		Blobs:     blobs,
		Records:   records,
		Extractor: ext,
		Invoker:   generation.NewInvoker(invokerModel, log),
		Chat:      chat,
	}, cfg.Generation, log)

	if err := a.dispatcher(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) persistedIndex(ctx context.Context) (interfaces.PersistedIndex, error) {
	switch a.Config.Chat.IndexBackend {
	case "milvus":
		mc, err := milvus.GetClient(ctx, &a.Config.Databases.Milvus)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { mc.Close(); return nil })
		return vectorstore.NewMilvusStore(ctx, mc, a.log)
	case "", "mysql", "sql":
		return vectorstore.NewSQLStore(a.DB), nil
	default:
		return nil, fmt.Errorf("不支持的索引后端: %s", a.Config.Chat.IndexBackend)
	}
}

// dispatcher 启用 Kafka 时把 PDF 任务写入主题，否则在进程内执行。
func (a *App) dispatcher() error {
	if !a.Config.Databases.Kafka.Enabled {
		a.local = publisher.NewLocalDispatcher(a.Service.ProcessPDF, localWorkers, a.log)
		a.Service.SetDispatcher(a.local)
		return nil
	}
	kc, err := kafka.GetClient(&a.Config.Databases.Kafka)
	if err != nil {
		return err
	}
	a.Kafka = kc
	pub := publisher.NewKafkaPublisher(kc.NewWriter(), a.log)
	a.Service.SetDispatcher(pub)
	a.closers = append(a.closers,
		func(context.Context) error { return pub.Close() },
		func(context.Context) error { return kc.Close() },
	)
	return nil
}

// Close 等待进程内任务结束，然后按创建的逆序关闭连接。
func (a *App) Close(ctx context.Context) error {
	if a.local != nil {
		a.local.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// unavailable 在凭证缺失时代替模型，每次调用都返回创建时的错误。
type unavailable struct {
	err error
}

func (u unavailable) Generate(ctx context.Context, prompt string) (string, error) {
	return "", u.err
}

func (u unavailable) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, u.err
}
