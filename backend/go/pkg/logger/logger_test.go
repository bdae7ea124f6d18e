package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{entry: logrus.NewEntry(l).WithField("service_name", "test")}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	base.WithError(models.ErrorInfo{Message: "boom"}).Error("failed")
	buf.Reset()
	base.Info("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "plain", line["msg"])
	assert.NotContains(t, line, "error")
	assert.Equal(t, "test", line["service_name"])
}

func TestWithPayload(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).WithPayload(map[string]interface{}{"pdf_id": "abc"}).Info("uploaded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	payload, ok := line["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", payload["pdf_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}
