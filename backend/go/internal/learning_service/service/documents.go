package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen 是判断文件类型时读取的字节数。
const sniffLen = 3072

// UploadPDF 校验并保存上传的 PDF，然后分发后台处理任务。
// 扩展名或内容不是 PDF 时在写入任何存储之前返回 BadInput。
func (s *Service) UploadPDF(ctx context.Context, userID uint, filename string, size int64, r io.Reader) (*models.Document, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, apperr.New(apperr.BadInput, "Only PDF files are allowed")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperr.Wrap(apperr.BadInput, "failed to read upload", err)
	}
	head = head[:n]
	mtype := mimetype.Detect(head)
	if !mtype.Is("application/pdf") {
		return nil, apperr.Newf(apperr.BadInput, "Only PDF files are allowed, got %s", mtype.String())
	}

	id := uuid.New().String()
	doc := &models.Document{
		ID:          id,
		UserID:      userID,
		Title:       strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		ObjectKey:   fmt.Sprintf("pdfs/%d/%s.pdf", userID, id),
		Size:        size,
		ContentType: "application/pdf",
	}
	if err := s.blobs.Put(ctx, doc.ObjectKey, io.MultiReader(bytes.NewReader(head), r), size, doc.ContentType); err != nil {
		return nil, err
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(ctx, doc.ObjectKey); delErr != nil {
			s.log.WithField("pdf_id", id).Error("补偿删除文件失败: " + delErr.Error())
		}
		return nil, err
	}

	log := s.log.WithUser(fmt.Sprint(userID)).WithField("pdf_id", id)
	log.Info("PDF 上传成功")

	if s.dispatcher != nil {
		task := models.PDFTask{TaskID: uuid.New().String(), DocumentID: id, UserID: userID, CreatedAt: time.Now().UTC()}
		if err := s.dispatcher.Dispatch(ctx, task); err != nil {
			log.Error("分发 PDF 处理任务失败: " + err.Error())
			if mErr := s.store.MarkFailed(ctx, id, "failed to schedule processing"); mErr != nil {
				log.Error("记录处理失败状态失败: " + mErr.Error())
			}
		}
	}
	return doc, nil
}

// ProcessPDF 是后台任务的处理函数：提取文本、建立索引并把文档标记为已处理。
// 已处理或已删除的文档直接跳过。失败时记录原因，文档保持未处理状态。
func (s *Service) ProcessPDF(ctx context.Context, task models.PDFTask) error {
	log := s.log.WithPayload(map[string]interface{}{"pdf_id": task.DocumentID, "task_id": task.TaskID})

	doc, err := s.store.GetDocument(ctx, task.DocumentID, task.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			log.Warn("文档已不存在，跳过处理")
			return nil
		}
		return err
	}
	if doc.Processed {
		log.Info("文档已处理，跳过")
		return nil
	}

	start := time.Now()
	text, err := s.extractor.ExtractPDF(ctx, doc.ID, doc.UserID)
	if err != nil {
		s.markFailed(ctx, doc.ID, err)
		return err
	}
	chunks, err := s.chat.IndexDocument(ctx, doc.ID, text)
	if err != nil {
		s.markFailed(ctx, doc.ID, err)
		return err
	}
	if err := s.store.MarkProcessed(ctx, doc.ID, chunks, s.chat.IndexRef()); err != nil {
		return err
	}

	log.WithPayload(map[string]interface{}{
		"pdf_id":     doc.ID,
		"chunks":     chunks,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("PDF 处理完成")
	return nil
}

func (s *Service) markFailed(ctx context.Context, id string, cause error) {
	if err := s.store.MarkFailed(ctx, id, apperr.Message(cause)); err != nil {
		s.log.WithField("pdf_id", id).Error("记录处理失败状态失败: " + err.Error())
	}
}

// ListDocuments 列出用户的全部 PDF。
func (s *Service) ListDocuments(ctx context.Context, userID uint) ([]models.Document, error) {
	return s.store.ListDocuments(ctx, userID)
}

// GetDocument 返回属于用户的 PDF。
func (s *Service) GetDocument(ctx context.Context, userID uint, id string) (*models.Document, error) {
	return s.store.GetDocument(ctx, id, userID)
}

// OpenDocument 返回 PDF 的原文件，调用方负责关闭。
func (s *Service) OpenDocument(ctx context.Context, userID uint, id string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.store.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// DeleteDocument 删除 PDF 及其对话记录、持久化索引和原文件。
func (s *Service) DeleteDocument(ctx context.Context, userID uint, id string) error {
	doc, err := s.store.DeleteDocument(ctx, id, userID)
	if err != nil {
		return err
	}
	log := s.log.WithField("pdf_id", id)
	s.extractor.Forget(id)
	if s.chat != nil {
		if err := s.chat.DeleteSource(ctx, userID, doc.SourceKey()); err != nil {
			log.Warn("删除文档索引失败: " + err.Error())
		}
	}
	if err := s.blobs.Delete(ctx, doc.ObjectKey); err != nil {
		log.Warn("删除 PDF 文件失败: " + err.Error())
	}
	return nil
}
