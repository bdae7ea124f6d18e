package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/extractor"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/publisher"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/store"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	ragservice "github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/splitters"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/httpmiddleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pdfBytes = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n"

type tokenParser struct{}

func (tokenParser) ParseAccess(token string) (uint, error) {
	switch token {
	case "alice":
		return 1, nil
	case "bob":
		return 2, nil
	}
	return 0, errors.New("bad token")
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (m *memBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.objects[key] = data
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "PDF file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

var vocabulary = []string{"sky", "blue", "grass", "green", "colour"}

type wordEmbedder struct{}

func (wordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		vec := make([]float32, len(vocabulary))
		for j, w := range vocabulary {
			vec[j] = float32(strings.Count(t, w))
		}
		out[i] = vec
	}
	return out, nil
}

type fakeLLM struct {
	mu    sync.Mutex
	reply string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, nil
}

func (f *fakeLLM) set(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

type testServer struct {
	router     *gin.Engine
	blobs      *memBlobs
	llm        *fakeLLM
	dispatcher *publisher.LocalDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	st := store.New(db, nil)
	ts := &testServer{blobs: &memBlobs{objects: map[string][]byte{}}, llm: &fakeLLM{}}

	splitter, err := splitters.NewCharSplitter(40, 0)
	require.NoError(t, err)
	chat, err := ragservice.New(ragservice.Deps{
		Documents:     st,
		Videos:        st,
		Messages:      st,
		Embedder:      wordEmbedder{},
		LLM:           ts.llm,
		Splitter:      splitter,
		VideoSplitter: splitter,
	}, config.Default().Chat, nil)
	require.NoError(t, err)

	ex, err := extractor.New(st, ts.blobs, 8, nil, extractor.WithParser(func(data []byte) ([]string, error) {
		return []string{"The sky is blue on a clear day.", "Grass is green."}, nil
	}))
	require.NoError(t, err)

	svc := service.New(service.Deps{
		Store:     st,
		Blobs:     ts.blobs,
		Extractor: ex,
		Invoker:   generation.NewInvoker(ts.llm, nil),
		Chat:      chat,
	}, config.Default().Generation, nil)
	ts.dispatcher = publisher.NewLocalDispatcher(svc.ProcessPDF, 2, nil)
	svc.SetDispatcher(ts.dispatcher)

	ts.router = gin.New()
	RegisterRoutes(ts.router, NewHandler(svc, chat, nil), httpmiddleware.Auth(tokenParser{}), nil)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(t *testing.T, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pdfs/upload/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) uploadProcessed(t *testing.T) string {
	t.Helper()
	w := ts.upload(t, "alice", "biology.pdf", pdfBytes)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		PDFID string `json:"pdf_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	ts.dispatcher.Wait()
	return resp.PDFID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestRequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/pdfs/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/pdfs/", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpload_NonPDFRejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.upload(t, "alice", "notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.upload(t, "alice", "notes.pdf", "hello, not really a pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only PDF files are allowed")
	assert.Zero(t, ts.blobs.puts)
}

func TestChat_UnknownDocument(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/v1/chat/", "alice", gin.H{"pdf_id": "nope", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 别人的文档也是 404
	id := ts.uploadProcessed(t)
	w = ts.do(t, http.MethodPost, "/api/v1/chat/", "bob", gin.H{"pdf_id": id, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSkyIsBlueScenario(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadProcessed(t)

	ts.llm.set(`{"questions": [{"question": "The sky is blue on a clear day", "options": ["True", "False"], "correct_answer": "True", "type": "true_false"}]}`)
	w := ts.do(t, http.MethodPost, "/api/v1/learning/generate-quiz/", "alice", gin.H{
		"pdf_id": id, "num_items": 1, "quiz_type": "true_false", "difficulty": "easy",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var quiz models.Quiz
	decode(t, w, &quiz)
	assert.False(t, quiz.Placeholder)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"true", "false"}, []string(quiz.Questions[0].Options))
	assert.Equal(t, "true", quiz.Questions[0].CorrectAnswer)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quizzes/%d/", quiz.ID), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quizzes/%d/", quiz.ID), "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.llm.set("The sky is blue.")
	w = ts.do(t, http.MethodPost, "/api/v1/chat/", "alice", gin.H{"pdf_id": id, "message": "What colour is the sky?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answer struct {
		Response string `json:"response"`
	}
	decode(t, w, &answer)
	assert.Equal(t, "The sky is blue.", answer.Response)

	w = ts.do(t, http.MethodGet, "/api/v1/chat/"+id+"/history/", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ChatMessage
	decode(t, w, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "What colour is the sky?", history[0].Content)
}

func TestGenerateQuiz_MalformedOutputReturnsPlaceholder(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadProcessed(t)

	ts.llm.set("I am unable to produce a quiz right now")
	w := ts.do(t, http.MethodPost, "/api/v1/learning/generate-quiz/", "alice", gin.H{"pdf_id": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var quiz models.Quiz
	decode(t, w, &quiz)
	assert.True(t, quiz.Placeholder)
	assert.NotZero(t, quiz.ID)
}

func TestGenerate_BadInput(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadProcessed(t)

	w := ts.do(t, http.MethodPost, "/api/v1/learning/generate-notes/", "alice", gin.H{"pdf_id": id, "num_items": 999})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/learning/generate-flashcards/", "alice", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuizCRUDAndExport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/quizzes/", "alice", gin.H{
		"title":     "Colours",
		"quiz_type": "multiple_choice",
		"questions": []gin.H{{"question": "Colour of the sky?", "options": []string{"Red", "Blue", "Green", "Pink"}, "correct_answer": "Blue"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var quiz models.Quiz
	decode(t, w, &quiz)

	w = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quizzes/%d/questions/", quiz.ID), "alice", gin.H{
		"question": "Colour of grass?", "options": []string{"Red", "Blue", "Green", "Pink"}, "correct_answer": "C",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/quizzes/recent/", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recent []models.Quiz
	decode(t, w, &recent)
	require.Len(t, recent, 1)
	assert.Len(t, recent[0].Questions, 2)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quizzes/%d/export/", quiz.ID), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Colours.xlsx")

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/quizzes/%d/", quiz.ID), "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/quizzes/%d/", quiz.ID), "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/quizzes/abc/", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletePDF(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadProcessed(t)

	w := ts.do(t, http.MethodGet, "/api/v1/pdfs/"+id+"/download/", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdfBytes, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/api/v1/pdfs/"+id+"/", "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ts.blobs.objects)

	w = ts.do(t, http.MethodPost, "/api/v1/chat/", "alice", gin.H{"pdf_id": id, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadPDF_QuotedFilename(t *testing.T) {
	ts := newTestServer(t)
	w := ts.upload(t, "alice", `cell "biology" notes.pdf`, pdfBytes)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		PDFID string `json:"pdf_id"`
	}
	decode(t, w, &resp)
	ts.dispatcher.Wait()

	w = ts.do(t, http.MethodGet, "/api/v1/pdfs/"+resp.PDFID+"/download/", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `cell "biology" notes.pdf`, params["filename"])
}
