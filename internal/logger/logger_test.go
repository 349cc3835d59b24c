package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetLogger 测试结束后恢复全局日志实例
func resetLogger(t *testing.T) {
	t.Helper()
	prev := Logger
	t.Cleanup(func() { Logger = prev })
}

func TestInitWritesRotatingFile(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "reelfolio.log")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Format = "json"
	cfg.FilePath = path
	require.NoError(t, Init(cfg))

	Infof("video %s uploaded", "v1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "video v1 uploaded", line["msg"])
	assert.Equal(t, "info", line["level"])
}

func TestInitFallsBackOnInvalidValues(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(&Config{Level: "loud", Format: "xml", Output: "console"}))
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
	_, ok := GetLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestFromContext(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(&Config{Level: "debug", Format: "json"}))
	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	ctx := NewContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
	FromContext(ctx).Warn("orphaned asset")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "req-42", line["request_id"])

	buf.Reset()
	FromContext(context.Background()).Info("no request")
	assert.NotContains(t, buf.String(), "request_id")
}
