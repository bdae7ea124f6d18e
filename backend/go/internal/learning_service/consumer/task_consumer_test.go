package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueReader 依次返回预置的消息，取完后阻塞到 ctx 结束。
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

func taskMessage(t *testing.T, offset int64, docID string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(models.PDFTask{TaskID: "t", DocumentID: docID, UserID: 1})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestTaskConsumer_HandlesAndCommitsEveryMessage(t *testing.T) {
	reader := &queueReader{
		queue: []kafka.Message{
			taskMessage(t, 1, "doc-a"),
			{Offset: 2, Value: []byte("not json")},
			taskMessage(t, 3, "doc-fail"),
		},
		drained: make(chan struct{}, 1),
	}

	var handled []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewTaskConsumer(reader, nil).Run(ctx, func(ctx context.Context, task models.PDFTask) error {
			handled = append(handled, task.DocumentID)
			if task.DocumentID == "doc-fail" {
				return errors.New("extract failed")
			}
			return nil
		})
		close(done)
	}()

	<-reader.drained
	cancel()
	<-done

	assert.Equal(t, []string{"doc-a", "doc-fail"}, handled)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
}
