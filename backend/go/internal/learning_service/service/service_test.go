package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/extractor"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/generation"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/store"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pdfBytes = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n"

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	deletes int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
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
	m.deletes++
	delete(m.objects, key)
	return nil
}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	video   string
	err     error
	prompts []string
	videos  []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeLLM) GenerateFromVideo(ctx context.Context, videoURL, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, videoURL)
	if f.err != nil {
		return "", f.err
	}
	if f.video != "" {
		return f.video, nil
	}
	return f.reply, nil
}

type fakeChat struct {
	indexed  map[string]string
	deleted  []string
	videos   map[string]string
	indexErr error
}

func (f *fakeChat) IndexDocument(ctx context.Context, documentID, text string) (int, error) {
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	f.indexed[documentID] = text
	return 3, nil
}

func (f *fakeChat) IndexRef() string { return "memory" }

func (f *fakeChat) DeleteSource(ctx context.Context, userID uint, sourceKey string) error {
	f.deleted = append(f.deleted, sourceKey)
	return nil
}

func (f *fakeChat) StartVideoChat(ctx context.Context, userID uint, videoID, summary string) (string, error) {
	f.videos[videoID] = summary
	return "welcome", nil
}

type fakeRecords struct {
	records []*models.GenerationRecord
}

func (f *fakeRecords) Insert(ctx context.Context, rec *models.GenerationRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecords) Recent(ctx context.Context, userID uint, limit int) ([]*models.GenerationRecord, error) {
	var out []*models.GenerationRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	tasks []models.PDFTask
	err   error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, task models.PDFTask) error {
	d.tasks = append(d.tasks, task)
	return d.err
}

type fixture struct {
	svc        *Service
	store      *store.Store
	blobs      *memBlobs
	llm        *fakeLLM
	chat       *fakeChat
	records    *fakeRecords
	dispatcher *recordingDispatcher
	pages      []string
	parseErr   error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		store:      store.New(db, nil),
		blobs:      newMemBlobs(),
		llm:        &fakeLLM{},
		chat:       &fakeChat{indexed: map[string]string{}, videos: map[string]string{}},
		records:    &fakeRecords{},
		dispatcher: &recordingDispatcher{},
		pages:      []string{"The sky is blue on a clear day.", "Grass is green."},
	}
	ex, err := extractor.New(f.store, f.blobs, 8, nil, extractor.WithParser(func(data []byte) ([]string, error) {
		return f.pages, f.parseErr
	}))
	require.NoError(t, err)

	f.svc = New(Deps{
		Store:      f.store,
		Blobs:      f.blobs,
		Records:    f.records,
		Extractor:  ex,
		Invoker:    generation.NewInvoker(f.llm, nil),
		Chat:       f.chat,
		Dispatcher: f.dispatcher,
	}, config.Default().Generation, nil)
	return f
}

func (f *fixture) upload(t *testing.T, userID uint) *models.Document {
	t.Helper()
	doc, err := f.svc.UploadPDF(context.Background(), userID, "biology.pdf", int64(len(pdfBytes)), strings.NewReader(pdfBytes))
	require.NoError(t, err)
	return doc
}

func TestUploadPDF_RejectsNonPDFBeforeStoring(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
	}{
		{"wrong extension", "notes.txt", pdfBytes},
		{"wrong content", "notes.pdf", "just some plain text pretending to be a PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.UploadPDF(context.Background(), 1, tt.filename, int64(len(tt.body)), strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Equal(t, apperr.BadInput, apperr.KindOf(err))
			assert.Zero(t, f.blobs.puts)
			assert.Empty(t, f.dispatcher.tasks)

			docs, err := f.svc.ListDocuments(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestUploadPDF_StoresAndDispatches(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, 1)

	assert.Equal(t, "biology", doc.Title)
	assert.Equal(t, []byte(pdfBytes), f.blobs.objects[doc.ObjectKey])
	require.Len(t, f.dispatcher.tasks, 1)
	assert.Equal(t, doc.ID, f.dispatcher.tasks[0].DocumentID)
	assert.Equal(t, uint(1), f.dispatcher.tasks[0].UserID)

	_, rc, err := f.svc.OpenDocument(context.Background(), 1, doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, string(data))
}

func TestUploadPDF_DispatchFailureMarksDocument(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("broker down")
	doc := f.upload(t, 1)

	got, err := f.svc.GetDocument(context.Background(), 1, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.NotEmpty(t, got.ProcessingError)
}

func TestProcessPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.upload(t, 1)
	task := f.dispatcher.tasks[0]

	require.NoError(t, f.svc.ProcessPDF(ctx, task))
	got, err := f.svc.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, "memory", got.IndexRef)
	assert.Contains(t, f.chat.indexed[doc.ID], "The sky is blue")

	// 已处理的文档不会被再次索引
	delete(f.chat.indexed, doc.ID)
	require.NoError(t, f.svc.ProcessPDF(ctx, task))
	assert.NotContains(t, f.chat.indexed, doc.ID)
}

func TestProcessPDF_FailureLeavesDocumentUnprocessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pages = []string{"   "}
	doc := f.upload(t, 1)

	err := f.svc.ProcessPDF(ctx, f.dispatcher.tasks[0])
	require.Error(t, err)
	assert.Equal(t, apperr.EmptyContent, apperr.KindOf(err))

	got, err := f.svc.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.Contains(t, got.ProcessingError, "no text")
}

func TestProcessPDF_DeletedDocumentIsSkipped(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ProcessPDF(context.Background(), models.PDFTask{DocumentID: "missing", UserID: 1})
	assert.NoError(t, err)
}

func TestGenerateQuiz_TrueFalseSkyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.upload(t, 1)
	f.llm.reply = `Here you go:
{"questions": [{"question": "The sky is blue on a clear day", "options": ["True", "False"], "correct_answer": "True"}]}`

	quiz, err := f.svc.GenerateQuiz(ctx, 1, GenerateParams{DocumentID: doc.ID, Count: 1, QuizType: "true_false"})
	require.NoError(t, err)
	assert.False(t, quiz.Placeholder)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"true", "false"}, []string(quiz.Questions[0].Options))
	assert.Equal(t, "true", quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, "The sky is blue on a clear day?", quiz.Questions[0].Question)

	stored, err := f.svc.GetQuiz(ctx, 1, quiz.ID)
	require.NoError(t, err)
	require.Len(t, stored.Questions, 1)
	assert.Equal(t, "true", stored.Questions[0].CorrectAnswer)
	assert.Equal(t, doc.ID, *stored.DocumentID)

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "The sky is blue on a clear day.")

	require.Len(t, f.records.records, 1)
	assert.Equal(t, models.StrategyJSON, f.records.records[0].Strategy)
	assert.Equal(t, quiz.ID, f.records.records[0].ArtifactID)
}

func TestGenerateQuiz_MalformedOutputPersistsPlaceholder(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, 1)
	f.llm.reply = "Sorry, I cannot help with that."

	quiz, err := f.svc.GenerateQuiz(context.Background(), 1, GenerateParams{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.True(t, quiz.Placeholder)
	assert.NotZero(t, quiz.ID)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Failed to generate quiz", quiz.Questions[0].Question)
	assert.Equal(t, models.StrategyPlaceholder, f.records.records[0].Strategy)
}

func TestGenerate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.upload(t, 1)

	_, err := f.svc.GenerateQuiz(ctx, 2, GenerateParams{DocumentID: doc.ID})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = f.svc.GenerateFlashcards(ctx, 1, GenerateParams{DocumentID: doc.ID, Count: 500})
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	_, err = f.svc.GenerateQuiz(ctx, 1, GenerateParams{DocumentID: doc.ID, QuizType: "essay"})
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	f.llm.err = apperr.New(apperr.GenerationFailure, "model failed")
	_, err = f.svc.GenerateNotes(ctx, 1, GenerateParams{DocumentID: doc.ID})
	assert.Equal(t, apperr.GenerationFailure, apperr.KindOf(err))
	require.NotEmpty(t, f.records.records)
	assert.NotEmpty(t, f.records.records[len(f.records.records)-1].Error)

	notes, err := f.svc.ListNoteSets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestGenerateFlashcardsAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.upload(t, 1)

	f.llm.reply = `{"cards": [{"front": "Colour of the sky", "back": "Blue"}, {"front": "Colour of grass", "back": "Green"}]}`
	set, err := f.svc.GenerateFlashcards(ctx, 1, GenerateParams{DocumentID: doc.ID, Count: 2, Title: "Colours"})
	require.NoError(t, err)
	assert.Equal(t, "Colours", set.Title)
	require.Len(t, set.Cards, 2)
	assert.Equal(t, "Blue", set.Cards[0].Back)

	f.llm.reply = `{"sections": [{"title": "Sky", "content": "The sky is blue."}]}`
	notes, err := f.svc.GenerateNotes(ctx, 1, GenerateParams{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "Notes: biology", notes.Title)
	require.Len(t, notes.Sections, 1)
	assert.Equal(t, "Sky", notes.Sections[0].Title)

	recent, err := f.svc.RecentGenerations(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.upload(t, 1)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(f.svc.DeleteDocument(ctx, 2, doc.ID)))

	require.NoError(t, f.svc.DeleteDocument(ctx, 1, doc.ID))
	assert.Equal(t, []string{models.PDFSourceKey(doc.ID)}, f.chat.deleted)
	assert.Empty(t, f.blobs.objects)

	_, err := f.svc.GetDocument(ctx, 1, doc.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCreateQuizAndAddQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "Bad", Questions: []QuestionInput{
		{Question: "Pick one", Options: []string{"a", "b"}, CorrectAnswer: "a"},
	}})
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	quiz, err := f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "Colours", QuizType: "multiple_choice", Questions: []QuestionInput{
		{Question: "Colour of the sky?", Options: []string{"Red", "Blue", "Green", "Pink"}, CorrectAnswer: "B"},
	}})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Blue", quiz.Questions[0].CorrectAnswer)

	q, err := f.svc.AddQuestion(ctx, 1, quiz.ID, QuestionInput{
		Question: "Colour of grass?", Options: []string{"Red", "Blue", "Green", "Pink"}, CorrectAnswer: "Green",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Position)

	_, err = f.svc.AddQuestion(ctx, 2, quiz.ID, QuestionInput{Question: "x"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	recent, err := f.svc.RecentQuizzes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Len(t, recent[0].Questions, 2)

	require.NoError(t, f.svc.DeleteQuiz(ctx, 1, quiz.ID))
	all, err := f.svc.ListQuizzes(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateFlashcardsAndNotes_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFlashcardSet(ctx, 1, "Set", []CardInput{{Front: "only front"}})
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	set, err := f.svc.CreateFlashcardSet(ctx, 1, "Set", []CardInput{{Front: "f", Back: "b"}})
	require.NoError(t, err)
	got, err := f.svc.GetFlashcardSet(ctx, 1, set.ID)
	require.NoError(t, err)
	assert.Len(t, got.Cards, 1)

	_, err = f.svc.CreateNoteSet(ctx, 1, "", "", nil)
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	notes, err := f.svc.CreateNoteSet(ctx, 1, "Notes", "src", []SectionInput{{Title: "A", Content: "body"}})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteNoteSet(ctx, 1, notes.ID))
	_, err = f.svc.GetNoteSet(ctx, 1, notes.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestExportQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz, err := f.svc.CreateQuiz(ctx, 1, QuizInput{Title: "Sky & Grass", QuizType: "true_false", Questions: []QuestionInput{
		{Question: "The sky is blue", CorrectAnswer: "true"},
	}})
	require.NoError(t, err)

	data, name, err := f.svc.ExportQuiz(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sky_Grass.xlsx", name)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Quiz")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "The sky is blue?", rows[3][1])
}

func TestGenerateFromVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateFromVideo(ctx, 1, "https://example.com/video", generation.Quiz, 3)
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))

	f.llm.reply = `{"cards": [{"front": "Topic", "back": "Photosynthesis"}]}`
	res, err := f.svc.GenerateFromVideo(ctx, 1, "https://www.youtube.com/watch?v=abc123", generation.Flashcards, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", res.VideoURL)
	assert.Equal(t, []string{"https://youtu.be/abc123"}, f.llm.videos)
	content, ok := res.Content.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, content["cards"], 1)

	f.llm.video = "A video about photosynthesis."
	res, err = f.svc.GenerateFromVideo(ctx, 1, "https://youtu.be/xyz789", generation.Chat, 0)
	require.NoError(t, err)
	assert.Equal(t, "welcome", res.Content)
	assert.Equal(t, "A video about photosynthesis.", f.chat.videos["xyz789"])

	summary, err := f.store.VideoSummary(ctx, 1, "xyz789")
	require.NoError(t, err)
	assert.Equal(t, "A video about photosynthesis.", summary)

	history, err := f.svc.VideoHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "chat", history[0].ContentType)
}
