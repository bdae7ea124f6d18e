package api

import (
	"bytes"
	"net/http"

	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/office"

	"github.com/gin-gonic/gin"
)

// VideoRequest 定义了基于 YouTube 视频生成内容的请求结构。
type VideoRequest struct {
	URL          string `json:"url" binding:"required"`
	NumQuestions int    `json:"num_questions"`
}

// VideoContent 返回一个按产物类型生成视频内容的处理函数。
func (h *Handler) VideoContent(artifact generation.ArtifactType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req VideoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
		res, err := h.service.GenerateFromVideo(c.Request.Context(), userID, req.URL, artifact, req.NumQuestions)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// VideoChatRequest 定义了视频对话消息的请求结构。
type VideoChatRequest struct {
	VideoID string `json:"video_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// VideoChat 基于视频摘要回答问题。
func (h *Handler) VideoChat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req VideoChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	answer, err := h.chat.VideoChat(c.Request.Context(), userID, req.VideoID, req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": answer})
}

// VideoHistory 返回最近的视频内容。
func (h *Handler) VideoHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.VideoHistory(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// NotesDownloadRequest 定义了视频笔记下载的请求结构。
type NotesDownloadRequest struct {
	Title    string               `json:"title"`
	VideoURL string               `json:"video_url"`
	Notes    []NoteSectionRequest `json:"notes" binding:"required"`
}

// DownloadVideoNotes 把视频笔记以 .docx 返回。
func (h *Handler) DownloadVideoNotes(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req NotesDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.service.WriteVideoNotes(&buf, req.Title, req.VideoURL, sectionInputs(req.Notes)); err != nil {
		h.respondError(c, err)
		return
	}
	title := req.Title
	if title == "" {
		title = "youtube_notes"
	}
	setAttachment(c, service.Filename(title, ".docx"))
	c.Data(http.StatusOK, office.DocxContentType, buf.Bytes())
}
