// Package extractor 把学习材料转换为纯文本：PDF 按页提取，YouTube 视频由模型生成摘要代替文本。
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/util"

	"github.com/ledongthuc/pdf"
)

// Documents 是提取器需要的文档存取操作。
type Documents interface {
	GetDocument(ctx context.Context, id string, userID uint) (*models.Document, error)
	SaveExtractedText(ctx context.Context, id, text string) error
}

// Blobs 读取上传的原文件。
type Blobs interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ParseFunc 从 PDF 字节中提取按页顺序排列的文本。
type ParseFunc func(data []byte) ([]string, error)

// Extractor 提取 PDF 文本并缓存结果。缓存命中时返回与首次提取完全相同的文本。
type Extractor struct {
	docs  Documents
	blobs Blobs
	parse ParseFunc
	cache *util.LRUCache[string, string]
	log   *logger.Logger
}

// Option 配置 Extractor。
type Option func(*Extractor)

// WithParser 替换 PDF 解析函数。
func WithParser(p ParseFunc) Option {
	return func(e *Extractor) { e.parse = p }
}

// New 创建一个 Extractor，cacheSize 为内存中缓存的文档数。
func New(docs Documents, blobs Blobs, cacheSize int, log *logger.Logger, opts ...Option) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, string]{Capacity: cacheSize})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	e := &Extractor{docs: docs, blobs: blobs, parse: ParsePDF, cache: cache, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExtractPDF 返回文档的全部文本。依次使用内存缓存、数据库中已保存的文本，最后才下载并解析文件。
func (e *Extractor) ExtractPDF(ctx context.Context, documentID string, userID uint) (string, error) {
	doc, err := e.docs.GetDocument(ctx, documentID, userID)
	if err != nil {
		return "", err
	}
	if text, ok := e.cache.Get(doc.ID); ok {
		return text, nil
	}
	if strings.TrimSpace(doc.ExtractedText) != "" {
		e.cache.Put(doc.ID, doc.ExtractedText, 1)
		return doc.ExtractedText, nil
	}

	text, err := e.extractBlob(ctx, doc)
	if err != nil {
		return "", err
	}
	if err := e.docs.SaveExtractedText(ctx, doc.ID, text); err != nil {
		// 文本已经提取成功，保存失败只影响下次是否需要重新解析
		e.log.WithField("pdf_id", doc.ID).Warn("保存提取文本失败: " + err.Error())
	}
	e.cache.Put(doc.ID, text, 1)
	return text, nil
}

// Forget 从缓存中移除文档，文档删除时调用。
func (e *Extractor) Forget(documentID string) {
	e.cache.Delete(documentID)
}

func (e *Extractor) extractBlob(ctx context.Context, doc *models.Document) (string, error) {
	rc, err := e.blobs.Get(ctx, doc.ObjectKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to read PDF", err)
	}
	pages, err := e.parse(data)
	if err != nil {
		return "", apperr.Wrap(apperr.BadInput, "could not read text from PDF", err)
	}
	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.EmptyContent, "no text could be extracted from the PDF")
	}
	e.log.WithPayload(map[string]interface{}{"pdf_id": doc.ID, "pages": len(pages), "chars": len(text)}).Info("PDF 文本提取完成")
	return text, nil
}

// ParsePDF 使用 ledongthuc/pdf 逐页提取纯文本。
func ParsePDF(data []byte) (pages []string, err error) {
	// 损坏的文件可能让解析库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
