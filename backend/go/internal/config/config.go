package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MilvusConfig 定义了 Milvus 向量库的连接配置以及分块索引集合的参数。
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus 服务地址
	Collection string `yaml:"collection"` // 存放文档分块的集合名称
	Dim        int    `yaml:"dim"`        // 向量维度 (embedding-001 为 768)
	IndexType  string `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW")
	MetricType string `yaml:"metricType"` // 相似度度量类型 (例如: "L2", "COSINE")
	NList      int    `yaml:"nlist"`      // IVF 索引的聚类数量
}

// RedisConfig 定义了 Redis 的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
	AutoMigrate     bool   `yaml:"autoMigrate"`     // 启动时是否自动迁移表结构
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 存放 PDF 的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 的连接配置，用于保存生成记录。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 服务器地址
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 生成记录集合名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled"`  // 为 false 时 PDF 处理在进程内的 goroutine 中执行
	Brokers  []string `yaml:"brokers"`  // Kafka Broker 地址列表
	PDFTopic string   `yaml:"pdfTopic"` // PDF 处理任务的主题
	GroupID  string   `yaml:"groupID"`  // 消费者组
}

// DatabaseConfigs 包含所有存储组件的配置。
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 配置
	MySQL   MySQLConfig  `yaml:"mysql"`   // MySQL 配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name         string `yaml:"name"`         // 应用程序名称
	Version      string `yaml:"version"`      // 应用程序版本
	Environment  string `yaml:"environment"`  // 运行环境 (例如: "development", "production")
	UserAddr     string `yaml:"userAddr"`     // 用户服务监听地址
	LearningAddr string `yaml:"learningAddr"` // 学习服务监听地址
}

// AuthConfig 定义了 JWT 与找回密码相关的设置。
type AuthConfig struct {
	JwtSecret  string `yaml:"jwtSecret"`  // JWT 密钥
	Issuer     string `yaml:"issuer"`     // 签发者
	TokenTTL   int    `yaml:"tokenTTL"`   // 访问令牌有效期（秒）
	RefreshTTL int    `yaml:"refreshTTL"` // 刷新令牌有效期（秒）
	OTPTTL     int    `yaml:"otpTTL"`     // 验证码及重置令牌有效期（秒）

	// 用布隆过滤器跳过不存在用户名的数据库查询。多副本部署时关闭，因为过滤器看不到其他副本注册的用户
	UsernameFilter bool `yaml:"usernameFilter"`
}

// MailConfig 定义了发送验证码邮件的 SMTP 配置。
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 关闭时只记录日志
	Host     string `yaml:"host"`     // SMTP 主机
	Port     int    `yaml:"port"`     // SMTP 端口
	Username string `yaml:"username"` // 登录用户名
	Password string `yaml:"password"` // 登录密码
	From     string `yaml:"from"`     // 发件人
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey      string  `yaml:"apiKey"`      // Gemini API 密钥
	Model       string  `yaml:"model"`       // 文本生成模型
	VideoModel  string  `yaml:"videoModel"`  // 视频理解模型
	Temperature float32 `yaml:"temperature"` // 采样温度
}

// OpenAIConfig 包含了 OpenAI 兼容接口的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 兼容接口地址，可为空
	Model   string `yaml:"model"`   // 模型名称
}

// OllamaConfig 包含了本地 Ollama 服务的配置。
type OllamaConfig struct {
	URL   string `yaml:"url"`   // Ollama 服务地址
	Model string `yaml:"model"` // 模型名称
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // LLM提供商 ("gemini", "openai", "ollama")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 配置
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 配置
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // Embedding提供商 ("gemini", "openai", "ollama")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 配置
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 配置
}

// GenerationConfig 定义了内容生成的默认参数。
type GenerationConfig struct {
	DefaultItems      int    `yaml:"defaultItems"`      // 默认题目/卡片数量
	MaxItems          int    `yaml:"maxItems"`          // 单次允许的最大数量
	DefaultDifficulty string `yaml:"defaultDifficulty"` // 默认难度
	DefaultLanguage   string `yaml:"defaultLanguage"`   // 默认语言
	MaxSourceChars    int    `yaml:"maxSourceChars"`    // 写入提示词的原文最大字符数
	TextCacheSize     int    `yaml:"textCacheSize"`     // 提取文本缓存的条目数
}

// ChatConfig 定义了检索问答的参数。
type ChatConfig struct {
	ChunkSize      int    `yaml:"chunkSize"`      // 分块大小（token）
	ChunkOverlap   int    `yaml:"chunkOverlap"`   // 分块重叠（token）
	VideoChunkSize int    `yaml:"videoChunkSize"` // 视频摘要的分块大小
	VideoOverlap   int    `yaml:"videoOverlap"`   // 视频摘要的分块重叠
	TopK           int    `yaml:"topK"`           // 每次检索的分块数
	HistoryTurns   int    `yaml:"historyTurns"`   // 提示词中保留的历史轮数
	HistoryTTL     string `yaml:"historyTTL"`     // 对话历史在 Redis 中的过期时间
	CacheCapacity  int    `yaml:"cacheCapacity"`  // 内存中索引的最大数量
	CacheMaxWeight int    `yaml:"cacheMaxWeight"` // 内存中分块的最大总数
	CacheTTL       string `yaml:"cacheTTL"`       // 内存索引的过期时间
	IndexBackend   string `yaml:"indexBackend"`   // 持久化索引后端 ("milvus" 或 "mysql")
	EmbedBatchSize int    `yaml:"embedBatchSize"` // 每批 embedding 的分块数
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按用户限流的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "fixedWindow"
	MaxKeys     int               `yaml:"maxKeys"`   // 同时跟踪的用户数上限
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	Mail       MailConfig       `yaml:"mail"`       // 邮件配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 存储配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
	Generation GenerationConfig `yaml:"generation"` // 内容生成配置
	Chat       ChatConfig       `yaml:"chat"`       // 检索问答配置
}

// LoadConfig 从指定路径加载并解析 YAML 配置文件。
// 同目录或工作目录下的 .env 文件会先被加载，其中的密钥会覆盖 YAML 中的值。
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("加载 .env 文件失败: %w", err)
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default 返回带有默认值的配置，YAML 中未出现的字段保持这些值。
func Default() *AppConfig {
	return &AppConfig{
		App: AppInfo{Name: "mcqsbank", UserAddr: ":8081", LearningAddr: ":8080"},
		Auth: AuthConfig{
			Issuer:     "mcqsbank",
			TokenTTL:   3600,
			RefreshTTL: 7 * 24 * 3600,
			OTPTTL:     600,

			UsernameFilter: true,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{Model: "gemini-2.0-flash", VideoModel: "gemini-2.5-flash-preview-04-17"},
		},
		Embedding: EmbeddingConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{Model: "models/embedding-001"},
		},
		Logger: LoggerConfig{Level: "info"},
		Databases: DatabaseConfigs{
			Milvus:  MilvusConfig{Collection: "document_chunks", Dim: 768, IndexType: "IVF_FLAT", MetricType: "L2", NList: 128},
			MongoDB: MongoConfig{Database: "mcqsbank", Collection: "generations"},
			Kafka:   KafkaConfig{PDFTopic: "pdf-processing", GroupID: "pdf-worker"},
		},
		Generation: GenerationConfig{
			DefaultItems:      5,
			MaxItems:          50,
			DefaultDifficulty: "medium",
			DefaultLanguage:   "English",
			MaxSourceChars:    30000,
			TextCacheSize:     64,
		},
		Chat: ChatConfig{
			ChunkSize:      500,
			ChunkOverlap:   50,
			VideoChunkSize: 1000,
			VideoOverlap:   200,
			TopK:           3,
			HistoryTurns:   5,
			HistoryTTL:     "1h",
			CacheCapacity:  32,
			CacheMaxWeight: 20000,
			CacheTTL:       "1h",
			IndexBackend:   "mysql",
			EmbedBatchSize: 100,
		},
	}
}

// applyEnv 用环境变量覆盖敏感配置。
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.LLM.Gemini.APIKey = v
		c.Embedding.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
		c.Embedding.OpenAI.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.Databases.MySQL.Password = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Mail.Password = v
	}
}

// Duration 解析配置中的时长字符串，为空或非法时返回 fallback。
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
