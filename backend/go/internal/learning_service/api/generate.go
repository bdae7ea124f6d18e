package api

import (
	"net/http"

	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"

	"github.com/gin-gonic/gin"
)

// GenerateRequest 定义了基于 PDF 生成内容的请求结构。
type GenerateRequest struct {
	PDFID      string `json:"pdf_id" binding:"required"`
	NumItems   int    `json:"num_items"`
	Difficulty string `json:"difficulty"`
	Language   string `json:"language"`
	QuizType   string `json:"quiz_type"`
	Title      string `json:"title"`
}

func (r GenerateRequest) params() service.GenerateParams {
	return service.GenerateParams{
		DocumentID: r.PDFID,
		Count:      r.NumItems,
		Difficulty: r.Difficulty,
		Language:   r.Language,
		QuizType:   r.QuizType,
		Title:      r.Title,
	}
}

func (h *Handler) bindGenerate(c *gin.Context) (uint, GenerateRequest, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, GenerateRequest{}, false
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return 0, req, false
	}
	return userID, req, true
}

// GenerateQuiz 基于 PDF 生成测验。
func (h *Handler) GenerateQuiz(c *gin.Context) {
	userID, req, ok := h.bindGenerate(c)
	if !ok {
		return
	}
	quiz, err := h.service.GenerateQuiz(c.Request.Context(), userID, req.params())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// GenerateFlashcards 基于 PDF 生成卡片。
func (h *Handler) GenerateFlashcards(c *gin.Context) {
	userID, req, ok := h.bindGenerate(c)
	if !ok {
		return
	}
	set, err := h.service.GenerateFlashcards(c.Request.Context(), userID, req.params())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// GenerateNotes 基于 PDF 生成笔记。
func (h *Handler) GenerateNotes(c *gin.Context) {
	userID, req, ok := h.bindGenerate(c)
	if !ok {
		return
	}
	notes, err := h.service.GenerateNotes(c.Request.Context(), userID, req.params())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// RecentGenerations 返回最近的生成记录。
func (h *Handler) RecentGenerations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	records, err := h.service.RecentGenerations(c.Request.Context(), userID, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ChatRequest 定义了 PDF 对话请求的结构。
type ChatRequest struct {
	PDFID   string `json:"pdf_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Chat 基于 PDF 内容回答问题。
func (h *Handler) Chat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	answer, err := h.chat.Chat(c.Request.Context(), userID, req.PDFID, req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// ChatHistory 返回 PDF 的对话记录。
func (h *Handler) ChatHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messages, err := h.chat.History(c.Request.Context(), userID, c.Param("pdf_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
