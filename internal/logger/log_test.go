package logger

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zappabad/liquidbook/internal/util"
)

func newObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{logger: zap.New(core)}, logs
}

func TestLoggerContextAddsRequestID(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	ctx := util.WithRequestID(context.Background(), "req-1")

	l.InfoContext(ctx, "polled", NewField("source", "ticks"))
	l.DebugContext(context.Background(), "no id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "polled", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "ticks", entries[0].ContextMap()["source"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestLoggerErrorKeepsStack(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	l.Error(errors.WithStack(errors.New("boom")), NewField("op", "place"))
	l.Error(nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestLoggerWithFields(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	child := l.WithFields(NewField("component", "feed"))
	child.Warn("stale")
	l.Debug("filtered out")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "feed", entries[0].ContextMap()["component"])
}

func TestLevelParsing(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Level("DEBUG").zapLevel())
	assert.Equal(t, zapcore.WarnLevel, WarnLevel.zapLevel())
	assert.Equal(t, zapcore.InfoLevel, Level("verbose").zapLevel())
}

func TestNewLoggerToFile(t *testing.T) {
	path := t.TempDir() + "/app.log"
	l, err := NewLogger(WithLoggingLevel(DebugLevel), WithOutputPaths([]string{path}), WithTimeKey("ts"))
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()

	NewNop().Info("discarded")
}
