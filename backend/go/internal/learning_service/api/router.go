package api

import (
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 在 r 上注册 /api/v1 下的全部路由。
// auth 是认证中间件；limit 对生成与对话接口按用户限流，可以为 nil。
func RegisterRoutes(r gin.IRouter, h *Handler, auth gin.HandlerFunc, limit gin.HandlerFunc) {
	apiV1 := r.Group("/api/v1")
	apiV1.Use(auth)

	// 调用模型的接口按用户限流
	costly := []gin.HandlerFunc{}
	if limit != nil {
		costly = append(costly, limit)
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, costly...), handler)
	}

	pdfs := apiV1.Group("/pdfs")
	{
		pdfs.POST("/upload/", h.UploadPDF)
		pdfs.GET("/", h.ListPDFs)
		pdfs.DELETE("/:id/", h.DeletePDF)
		pdfs.GET("/:id/download/", h.DownloadPDF)
	}

	learning := apiV1.Group("/learning")
	{
		learning.POST("/generate-quiz/", with(h.GenerateQuiz)...)
		learning.POST("/generate-flashcards/", with(h.GenerateFlashcards)...)
		learning.POST("/generate-notes/", with(h.GenerateNotes)...)
		learning.GET("/generations/", h.RecentGenerations)
	}

	chat := apiV1.Group("/chat")
	{
		chat.POST("/", with(h.Chat)...)
		chat.GET("/:pdf_id/history/", h.ChatHistory)
	}

	youtube := apiV1.Group("/youtube")
	{
		youtube.POST("/quiz/", with(h.VideoContent(generation.Quiz))...)
		youtube.POST("/flashcards/", with(h.VideoContent(generation.Flashcards))...)
		youtube.POST("/notes/", with(h.VideoContent(generation.Notes))...)
		youtube.POST("/chat/", with(h.VideoContent(generation.Chat))...)
		youtube.POST("/chat/message/", with(h.VideoChat)...)
		youtube.GET("/history/", h.VideoHistory)
		youtube.POST("/notes/download/", h.DownloadVideoNotes)
	}

	quizzes := apiV1.Group("/quizzes")
	{
		quizzes.GET("/", h.ListQuizzes)
		quizzes.POST("/", h.CreateQuiz)
		quizzes.GET("/recent/", h.RecentQuizzes)
		quizzes.GET("/:id/", h.GetQuiz)
		quizzes.DELETE("/:id/", h.DeleteQuiz)
		quizzes.POST("/:id/questions/", h.AddQuestion)
		quizzes.GET("/:id/export/", h.ExportQuiz)
	}

	flashcards := apiV1.Group("/flashcards")
	{
		flashcards.GET("/", h.ListFlashcards)
		flashcards.POST("/", h.CreateFlashcards)
		flashcards.GET("/recent/", h.RecentFlashcards)
		flashcards.GET("/:id/", h.GetFlashcards)
		flashcards.DELETE("/:id/", h.DeleteFlashcards)
	}

	notes := apiV1.Group("/notes")
	{
		notes.GET("/", h.ListNotes)
		notes.POST("/", h.CreateNotes)
		notes.GET("/recent/", h.RecentNotes)
		notes.GET("/:id/", h.GetNotes)
		notes.DELETE("/:id/", h.DeleteNotes)
	}
}
