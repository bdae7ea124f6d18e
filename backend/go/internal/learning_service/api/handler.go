// Package api 暴露学习服务的 REST 接口。
package api

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/httpmiddleware"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatService 是检索对话层对外提供的操作。
type ChatService interface {
	Chat(ctx context.Context, userID uint, documentID, message string) (string, error)
	History(ctx context.Context, userID uint, documentID string) ([]models.ChatMessage, error)
	VideoChat(ctx context.Context, userID uint, videoID, message string) (string, error)
}

// Handler 封装了学习服务所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Service
	chat    ChatService
	log     *logger.Logger
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Service, chat ChatService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{service: s, chat: chat, log: log}
}

// respondError 把错误转换为 {"error": message} 响应。内部错误只记录日志，不把细节返回给客户端。
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(models.ErrorInfo{
			Message:    err.Error(),
			Type:       apperr.KindOf(err).String(),
			StatusCode: status,
		}).WithField("path", c.FullPath()).Error("请求处理失败")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// currentUser 返回认证中间件写入的用户 ID。
func currentUser(c *gin.Context) (uint, bool) {
	id, ok := httpmiddleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
	}
	return id, ok
}

// idParam 解析路径中的数字 ID。
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// setAttachment 设置下载文件名。文件名来自用户输入，需要按 RFC 2183/2231 转义。
func setAttachment(c *gin.Context, filename string) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
}
