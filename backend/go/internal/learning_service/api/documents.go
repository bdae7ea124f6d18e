package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UploadPDF 接收 multipart 字段 file 中的 PDF。
func (h *Handler) UploadPDF(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer f.Close()

	doc, err := h.service.UploadPDF(c.Request.Context(), userID, fh.Filename, fh.Size, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "PDF uploaded successfully", "pdf_id": doc.ID})
}

// ListPDFs 列出当前用户的 PDF。
func (h *Handler) ListPDFs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docs, err := h.service.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// DeletePDF 删除 PDF 及其相关数据。
func (h *Handler) DeletePDF(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.DeleteDocument(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadPDF 返回 PDF 原文件。
func (h *Handler) DownloadPDF(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	doc, rc, err := h.service.OpenDocument(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer rc.Close()

	setAttachment(c, doc.Title+".pdf")
	c.Header("Content-Type", doc.ContentType)
	if doc.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.WithField("pdf_id", doc.ID).Warn("发送 PDF 失败: " + err.Error())
	}
}
