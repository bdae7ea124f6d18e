package models

import (
	"time"
)

// ParseStrategy 记录生成结果是通过哪一步解析出来的。
type ParseStrategy string

const (
	StrategyJSON        ParseStrategy = "json"
	StrategyRegex       ParseStrategy = "regex"
	StrategyPlaceholder ParseStrategy = "placeholder"
)

// GenerationRecord 是一次内容生成的审计记录，保存在 MongoDB 中。
// RawOutput 为 LLM 的原始输出，Strategy 记录最终采用的解析步骤。
type GenerationRecord struct {
	ID           string        `bson:"_id" json:"id"`
	UserID       uint          `bson:"user_id" json:"-"`
	ArtifactType string        `bson:"artifact_type" json:"artifact_type"`
	SourceKey    string        `bson:"source_key" json:"source"`
	ArtifactID   uint          `bson:"artifact_id,omitempty" json:"artifact_id,omitempty"`
	RawOutput    string        `bson:"raw_output" json:"raw_output"`
	Strategy     ParseStrategy `bson:"strategy" json:"strategy"`
	ItemCount    int           `bson:"item_count" json:"item_count"`
	Error        string        `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
}
