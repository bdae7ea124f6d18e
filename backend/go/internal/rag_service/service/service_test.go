package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/schema"
	"github.com/aimankahim/mcqsbank/backend/go/internal/rag_service/rag/splitters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vocabulary = []string{"sky", "blue", "grass", "green", "sea", "water"}

// wordEmbedder 把文本映射为词表中每个词的出现次数。
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
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeDocs map[string]*models.Document

func (f fakeDocs) GetDocument(ctx context.Context, id string, userID uint) (*models.Document, error) {
	doc, ok := f[id]
	if !ok || doc.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "PDF not found")
	}
	return doc, nil
}

type fakeVideos map[string]string

func (f fakeVideos) VideoSummary(ctx context.Context, userID uint, videoID string) (string, error) {
	s, ok := f[videoID]
	if !ok {
		return "", apperr.New(apperr.NotFound, "video not found")
	}
	return s, nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []models.ChatMessage
}

func (f *fakeMessages) AddChatMessages(ctx context.Context, msgs ...*models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.msgs = append(f.msgs, *m)
	}
	return nil
}

func (f *fakeMessages) ChatHistory(ctx context.Context, sourceKey string, userID uint, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.msgs {
		if m.SourceKey == sourceKey && m.UserID == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakePersisted struct {
	mu     sync.Mutex
	chunks map[string][]*schema.Chunk
	loads  int
}

func (f *fakePersisted) Save(ctx context.Context, key string, chunks []*schema.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[key] = chunks
	return nil
}

func (f *fakePersisted) Load(ctx context.Context, key string) ([]*schema.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.chunks[key], nil
}

func (f *fakePersisted) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chunks, key)
	return nil
}

func (f *fakePersisted) Ref() string { return "fake:chunks" }

type fixture struct {
	svc       *Service
	llm       *fakeLLM
	docs      fakeDocs
	msgs      *fakeMessages
	persisted *fakePersisted
}

func newFixture(t *testing.T, cfg config.ChatConfig) *fixture {
	t.Helper()
	splitter, err := splitters.NewCharSplitter(40, 0)
	require.NoError(t, err)

	f := &fixture{
		llm:       &fakeLLM{reply: "The sky is blue."},
		docs:      fakeDocs{},
		msgs:      &fakeMessages{},
		persisted: &fakePersisted{chunks: map[string][]*schema.Chunk{}},
	}
	f.svc, err = New(Deps{
		Documents:     f.docs,
		Videos:        fakeVideos{"abc123xyz00": "The video explains why the sea water looks blue.", "vid": "The sky is blue over the sea."},
		Messages:      f.msgs,
		Embedder:      wordEmbedder{},
		Persisted:     f.persisted,
		LLM:           f.llm,
		Splitter:      splitter,
		VideoSplitter: splitter,
	}, cfg, nil)
	require.NoError(t, err)
	return f
}

func defaultChatConfig() config.ChatConfig {
	return config.Default().Chat
}

const sourceText = "The sky is blue on a clear day. Grass is green in spring. The sea holds salty water."

func TestChat_UnknownDocumentIsNotFound(t *testing.T) {
	f := newFixture(t, defaultChatConfig())
	_, err := f.svc.Chat(context.Background(), 1, "missing", "what color is the sky?")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	// 其他用户的文档同样视为不存在
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 2, Processed: true}
	_, err = f.svc.Chat(context.Background(), 1, "d1", "hi")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestChat_UnprocessedIsNotReady(t *testing.T) {
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1}
	_, err := f.svc.Chat(context.Background(), 1, "d1", "what color is the sky?")
	assert.Equal(t, apperr.NotReady, apperr.KindOf(err))
	assert.Empty(t, f.llm.prompts)
}

func TestChat_EmptyMessage(t *testing.T) {
	f := newFixture(t, defaultChatConfig())
	_, err := f.svc.Chat(context.Background(), 1, "d1", "   ")
	assert.Equal(t, apperr.BadInput, apperr.KindOf(err))
}

func TestChat_AnswersFromTopChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}

	n, err := f.svc.IndexDocument(ctx, "d1", sourceText)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.persisted.chunks["pdf:d1"], 3)

	answer, err := f.svc.Chat(ctx, 1, "d1", "Why is the sky blue?")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)

	require.Len(t, f.llm.prompts, 1)
	prompt := f.llm.prompts[0]
	assert.Contains(t, prompt, "context from the document")
	assert.Contains(t, prompt, "The sky is blue on a clear day.")
	assert.Contains(t, prompt, "Please answer this question: Why is the sky blue?")

	history, err := f.svc.History(ctx, 1, "d1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	assert.Equal(t, "The sky is blue.", history[1].Content)
}

func TestChat_IncludesRecentHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}
	_, err := f.svc.IndexDocument(ctx, "d1", sourceText)
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, 1, "d1", "What color is grass?")
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, 1, "d1", "And the sky?")
	require.NoError(t, err)

	require.Len(t, f.llm.prompts, 2)
	assert.NotContains(t, f.llm.prompts[0], "Conversation so far")
	assert.Contains(t, f.llm.prompts[1], "User: What color is grass?")
	assert.Contains(t, f.llm.prompts[1], "Assistant: The sky is blue.")
}

func TestChat_NoChunksSkipsLLM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}

	answer, err := f.svc.Chat(ctx, 1, "d1", "anything?")
	require.NoError(t, err)
	assert.Equal(t, NoInfoReply, answer)
	assert.Empty(t, f.llm.prompts)
	assert.Len(t, f.msgs.msgs, 2)
}

func TestChat_ReloadsAfterEviction(t *testing.T) {
	ctx := context.Background()
	cfg := defaultChatConfig()
	cfg.CacheCapacity = 1
	f := newFixture(t, cfg)
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}
	f.docs["d2"] = &models.Document{ID: "d2", UserID: 1, Processed: true}

	_, err := f.svc.IndexDocument(ctx, "d1", sourceText)
	require.NoError(t, err)
	_, err = f.svc.IndexDocument(ctx, "d2", "Water is wet.")
	require.NoError(t, err)
	assert.Equal(t, 0, f.persisted.loads)

	_, err = f.svc.Chat(ctx, 1, "d1", "Why is the sky blue?")
	require.NoError(t, err)
	assert.Equal(t, 1, f.persisted.loads)
	assert.Contains(t, f.llm.prompts[0], "The sky is blue on a clear day.")

	// 重新加载后留在缓存中
	_, err = f.svc.Chat(ctx, 1, "d1", "Again?")
	require.NoError(t, err)
	assert.Equal(t, 1, f.persisted.loads)
}

func TestChat_RebuildsFromExtractedText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true, ExtractedText: sourceText}

	_, err := f.svc.Chat(ctx, 1, "d1", "Why is the sky blue?")
	require.NoError(t, err)
	require.Len(t, f.llm.prompts, 1)
	assert.Len(t, f.persisted.chunks["pdf:d1"], 3)
}

func TestChat_LLMErrorPropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.llm.err = apperr.Wrap(apperr.ServiceUnavailable, "LLM provider unavailable", errors.New("open"))
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}
	_, err := f.svc.IndexDocument(ctx, "d1", sourceText)
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, 1, "d1", "sky?")
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))
	assert.Empty(t, f.msgs.msgs)
}

func TestVideoChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())

	welcome, err := f.svc.StartVideoChat(ctx, 1, "abc123xyz00", "The video explains why the sea water looks blue.")
	require.NoError(t, err)
	assert.Equal(t, VideoWelcome, welcome)

	answer, err := f.svc.VideoChat(ctx, 1, "abc123xyz00", "Why is the sea blue?")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)
	assert.Contains(t, f.llm.prompts[0], "context from the video")
	assert.Contains(t, f.llm.prompts[0], "Assistant: "+VideoWelcome)

	_, err = f.svc.VideoChat(ctx, 1, "unknownvid1", "hello")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestVideoChat_RebuildsFromSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())

	_, err := f.svc.VideoChat(ctx, 1, "abc123xyz00", "Why is the sea blue?")
	require.NoError(t, err)
	assert.Len(t, f.persisted.chunks["youtube:1:abc123xyz00"], 2)
}

func TestVideoChat_IndexIsPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())

	_, err := f.svc.StartVideoChat(ctx, 1, "vid", "The sky is blue over the sea.")
	require.NoError(t, err)
	_, err = f.svc.StartVideoChat(ctx, 2, "vid", "Grass is green near the water.")
	require.NoError(t, err)
	assert.Contains(t, f.persisted.chunks, models.VideoSourceKey(1, "vid"))
	assert.Contains(t, f.persisted.chunks, models.VideoSourceKey(2, "vid"))

	_, err = f.svc.VideoChat(ctx, 1, "vid", "Why is the sky blue?")
	require.NoError(t, err)
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "The sky is blue over the sea.")
	assert.NotContains(t, f.llm.prompts[0], "Grass is green")

	// 第二个用户删除自己的索引不影响第一个用户
	require.NoError(t, f.svc.DeleteSource(ctx, 2, models.VideoSourceKey(2, "vid")))
	assert.NotContains(t, f.persisted.chunks, models.VideoSourceKey(2, "vid"))
	assert.NotEmpty(t, f.persisted.chunks[models.VideoSourceKey(1, "vid")])

	_, err = f.svc.VideoChat(ctx, 1, "vid", "Is the sky blue?")
	require.NoError(t, err)
	require.Len(t, f.llm.prompts, 2)
	assert.Contains(t, f.llm.prompts[1], "The sky is blue over the sea.")
}

func TestDeleteSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultChatConfig())
	f.docs["d1"] = &models.Document{ID: "d1", UserID: 1, Processed: true}
	_, err := f.svc.IndexDocument(ctx, "d1", sourceText)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSource(ctx, 1, "pdf:d1"))
	assert.NotContains(t, f.persisted.chunks, "pdf:d1")

	answer, err := f.svc.Chat(ctx, 1, "d1", "sky?")
	require.NoError(t, err)
	assert.Equal(t, NoInfoReply, answer)
}

func TestIndexRef(t *testing.T) {
	f := newFixture(t, defaultChatConfig())
	assert.Equal(t, "fake:chunks", f.svc.IndexRef())
}
