package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_DefaultsToJSONInfo(t *testing.T) {
	t.Parallel()
	l, err := NewLogger(Config{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_InvalidOutputPath(t *testing.T) {
	t.Parallel()
	_, err := NewLogger(Config{OutputPaths: []string{"scheme-does-not-exist://x"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestZapLogger_FieldsAndLevels(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core)

	l.Info("trained",
		String("candidate", "modelX"),
		Int("folds", 10),
		Float64("accuracy", 0.91),
		Bool("cross_corpus", true),
		Duration("elapsed", 3*time.Second),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "trained", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "modelX", fields["candidate"])
	assert.Equal(t, int64(10), fields["folds"])
	assert.Equal(t, 0.91, fields["accuracy"])
	assert.Equal(t, true, fields["cross_corpus"])
	assert.Equal(t, "boom", fields["error"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core).Named("sweep").With(String("corpus", "A"))

	l.Debug("fold assignment ready")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "sweep", entry.LoggerName)
	assert.Equal(t, "A", entry.ContextMap()["corpus"])
}

func TestNopLogger_NoPanics(t *testing.T) {
	t.Parallel()
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("a")
		l.Info("b", String("k", "v"))
		l.Warn("c")
		l.Error("d", Err(nil))
		l.With(Int("i", 1)).Named("x").Info("e")
	})
}
