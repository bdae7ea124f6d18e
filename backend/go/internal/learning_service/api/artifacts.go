package api

import (
	"net/http"

	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/office"

	"github.com/gin-gonic/gin"
)

// QuestionRequest 是一道题的请求结构。
type QuestionRequest struct {
	Question      string   `json:"question" binding:"required"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
}

func (q QuestionRequest) input() service.QuestionInput {
	return service.QuestionInput{
		Question:      q.Question,
		Type:          q.Type,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
	}
}

// CreateQuizRequest 定义了手动创建测验的请求结构。
type CreateQuizRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	QuizType    string            `json:"quiz_type"`
	Difficulty  string            `json:"difficulty"`
	Language    string            `json:"language"`
	Questions   []QuestionRequest `json:"questions"`
}

// CreateQuiz 手动创建测验。
func (h *Handler) CreateQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in := service.QuizInput{
		Title:       req.Title,
		Description: req.Description,
		QuizType:    req.QuizType,
		Difficulty:  req.Difficulty,
		Language:    req.Language,
	}
	for _, q := range req.Questions {
		in.Questions = append(in.Questions, q.input())
	}
	quiz, err := h.service.CreateQuiz(c.Request.Context(), userID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) ListQuizzes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizzes, err := h.service.ListQuizzes(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) RecentQuizzes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizzes, err := h.service.RecentQuizzes(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	quiz, err := h.service.GetQuiz(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddQuestion 向测验追加一道题。
func (h *Handler) AddQuestion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	q, err := h.service.AddQuestion(c.Request.Context(), userID, id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// ExportQuiz 以 .xlsx 下载测验。
func (h *Handler) ExportQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	data, name, err := h.service.ExportQuiz(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	setAttachment(c, name)
	c.Data(http.StatusOK, office.XlsxContentType, data)
}

// CreateFlashcardsRequest 定义了手动创建卡片组的请求结构。
type CreateFlashcardsRequest struct {
	Title string `json:"title" binding:"required"`
	Cards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"cards"`
}

func (h *Handler) CreateFlashcards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateFlashcardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cards := make([]service.CardInput, len(req.Cards))
	for i, card := range req.Cards {
		cards[i] = service.CardInput{Front: card.Front, Back: card.Back}
	}
	set, err := h.service.CreateFlashcardSet(c.Request.Context(), userID, req.Title, cards)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, set)
}

func (h *Handler) ListFlashcards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sets, err := h.service.ListFlashcardSets(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (h *Handler) RecentFlashcards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sets, err := h.service.RecentFlashcardSets(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (h *Handler) GetFlashcards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	set, err := h.service.GetFlashcardSet(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *Handler) DeleteFlashcards(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteFlashcardSet(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NoteSectionRequest 是笔记中的一个章节。
type NoteSectionRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func sectionInputs(in []NoteSectionRequest) []service.SectionInput {
	out := make([]service.SectionInput, len(in))
	for i, s := range in {
		out[i] = service.SectionInput{Title: s.Title, Content: s.Content}
	}
	return out
}

// CreateNotesRequest 定义了手动创建笔记的请求结构。
type CreateNotesRequest struct {
	Title      string               `json:"title" binding:"required"`
	SourceText string               `json:"source_text"`
	Sections   []NoteSectionRequest `json:"sections"`
}

func (h *Handler) CreateNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	notes, err := h.service.CreateNoteSet(c.Request.Context(), userID, req.Title, req.SourceText, sectionInputs(req.Sections))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notes)
}

func (h *Handler) ListNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	notes, err := h.service.ListNoteSets(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) RecentNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	notes, err := h.service.RecentNoteSets(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) GetNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	notes, err := h.service.GetNoteSet(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) DeleteNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteNoteSet(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
