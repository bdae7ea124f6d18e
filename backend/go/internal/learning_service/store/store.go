// Package store 是学习服务的持久化层：MySQL 中的文档与生成内容、MinIO 中的 PDF 文件，
// 以及 MongoDB 中的生成审计记录。所有读取都按所有者过滤。
package store

import (
	"errors"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"gorm.io/gorm"
)

// Store 封装了关系型数据库的访问。
type Store struct {
	DB  *gorm.DB
	log *logger.Logger
}

// New 创建一个新的 Store。
func New(db *gorm.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{DB: db, log: log}
}

// notFound 把 gorm 的记录不存在错误转换为 NotFound，其余错误视为内部错误。
func notFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Newf(apperr.NotFound, "%s not found", what)
	}
	return apperr.Wrap(apperr.Internal, "failed to load "+what, err)
}
