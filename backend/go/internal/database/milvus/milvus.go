package milvus

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 分块集合的字段名。
const (
	FieldID         = "id"
	FieldSourceKey  = "source_key"
	FieldChunkIndex = "chunk_index"
	FieldChunk      = "chunk"
	FieldEmbedding  = "embedding"

	maxChunkLength = 65535
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和分块集合的配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// StoredChunk 是从集合中读回的一个分块。
type StoredChunk struct {
	ID        string
	Index     int
	Text      string
	Embedding []float32
	Score     float32
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection 确保分块集合存在、已建索引并已加载。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Collection
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("PDF 与视频摘要的文本分块").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldSourceKey).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
			WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldChunk).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxChunkLength)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := c.buildIndex()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
		log.Printf("✅ 已创建 Milvus 集合 '%s'", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// buildIndex 根据配置构建向量索引。
func (c *MilvusClient) buildIndex() (entity.Index, error) {
	metric := c.metric()
	nlist := c.Config.NList
	if nlist <= 0 {
		nlist = 128
	}
	switch strings.ToUpper(c.Config.IndexType) {
	case "", "IVF_FLAT":
		return entity.NewIndexIvfFlat(metric, nlist)
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metric, nlist)
	case "HNSW":
		return entity.NewIndexHNSW(metric, 8, 96)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metric)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", c.Config.IndexType)
	}
}

func (c *MilvusClient) metric() entity.MetricType {
	if c.Config.MetricType == "" {
		return entity.L2
	}
	return entity.MetricType(strings.ToUpper(c.Config.MetricType))
}

// InsertChunks 写入同一来源的一批分块。
func (c *MilvusClient) InsertChunks(ctx context.Context, sourceKey string, chunks []StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		sources[i] = sourceKey
		indexes[i] = int64(ch.Index)
		texts[i] = truncate(ch.Text, maxChunkLength)
		vectors[i] = ch.Embedding
	}

	_, err := c.Client.Insert(ctx, c.Config.Collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldSourceKey, sources),
		entity.NewColumnInt64(FieldChunkIndex, indexes),
		entity.NewColumnVarChar(FieldChunk, texts),
		entity.NewColumnFloatVector(FieldEmbedding, len(vectors[0]), vectors),
	)
	if err != nil {
		return fmt.Errorf("向 Milvus 写入分块失败: %w", err)
	}
	if err := c.Client.Flush(ctx, c.Config.Collection, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", c.Config.Collection, err)
	}
	log.Printf("✅ 已为 '%s' 写入 %d 个分块", sourceKey, len(chunks))
	return nil
}

// LoadChunks 读回某个来源的全部分块及其向量，按分块序号排序。
func (c *MilvusClient) LoadChunks(ctx context.Context, sourceKey string) ([]StoredChunk, error) {
	rs, err := c.Client.Query(ctx, c.Config.Collection, nil, sourceExpr(sourceKey),
		[]string{FieldID, FieldChunkIndex, FieldChunk, FieldEmbedding})
	if err != nil {
		return nil, fmt.Errorf("查询来源 '%s' 的分块失败: %w", sourceKey, err)
	}

	idCol, ok := rs.GetColumn(FieldID).(*entity.ColumnVarChar)
	if !ok {
		return nil, nil
	}
	idxCol, _ := rs.GetColumn(FieldChunkIndex).(*entity.ColumnInt64)
	textCol, _ := rs.GetColumn(FieldChunk).(*entity.ColumnVarChar)
	vecCol, _ := rs.GetColumn(FieldEmbedding).(*entity.ColumnFloatVector)
	if idxCol == nil || textCol == nil || vecCol == nil {
		return nil, fmt.Errorf("来源 '%s' 的查询结果缺少字段", sourceKey)
	}

	ids, idxs, texts, vecs := idCol.Data(), idxCol.Data(), textCol.Data(), vecCol.Data()
	out := make([]StoredChunk, len(ids))
	for i := range ids {
		out[i] = StoredChunk{ID: ids[i], Index: int(idxs[i]), Text: texts[i], Embedding: vecs[i]}
	}
	sortByIndex(out)
	return out, nil
}

// Search 在某个来源的分块中做向量检索。
func (c *MilvusClient) Search(ctx context.Context, sourceKey string, vector []float32, topK int) ([]StoredChunk, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	results, err := c.Client.Search(ctx, c.Config.Collection, nil, sourceExpr(sourceKey),
		[]string{FieldChunkIndex, FieldChunk},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, c.metric(), topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("在来源 '%s' 中检索失败: %w", sourceKey, err)
	}

	var out []StoredChunk
	for _, res := range results {
		textCol, ok := res.Fields.GetColumn(FieldChunk).(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		idxCol, _ := res.Fields.GetColumn(FieldChunkIndex).(*entity.ColumnInt64)
		for i := 0; i < res.ResultCount; i++ {
			ch := StoredChunk{Text: textCol.Data()[i], Score: res.Scores[i]}
			if idxCol != nil {
				ch.Index = int(idxCol.Data()[i])
			}
			if id, err := res.IDs.GetAsString(i); err == nil {
				ch.ID = id
			}
			out = append(out, ch)
		}
	}
	return out, nil
}

// DeleteSource 删除某个来源的全部分块。
func (c *MilvusClient) DeleteSource(ctx context.Context, sourceKey string) error {
	if err := c.Client.Delete(ctx, c.Config.Collection, "", sourceExpr(sourceKey)); err != nil {
		return fmt.Errorf("删除来源 '%s' 的分块失败: %w", sourceKey, err)
	}
	return nil
}

func sourceExpr(sourceKey string) string {
	return fmt.Sprintf(`%s == "%s"`, FieldSourceKey, strings.ReplaceAll(sourceKey, `"`, `\"`))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortByIndex(chunks []StoredChunk) {
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
}
