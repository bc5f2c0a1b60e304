package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Handle INFO level log", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "query answered", 0)
		record.AddAttrs(slog.Int("retrieved", 3))

		assert.NoError(t, handler.Handle(ctx, record))
		output := buf.String()
		assert.Contains(t, output, "INFO:")
		assert.Contains(t, output, "query answered")
		assert.Contains(t, output, `"retrieved":3`)
	})

	t.Run("Handle error attribute", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelError, "retrieval failed", 0)
		record.AddAttrs(slog.Any("error", errors.New("index down")))

		assert.NoError(t, handler.Handle(ctx, record))
		output := buf.String()
		assert.Contains(t, output, "ERROR:")
		assert.Contains(t, output, `"error":"index down"`)
	})

	t.Run("Handle log with no attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelWarn, "simple message", 0)

		assert.NoError(t, handler.Handle(ctx, record))
		assert.Contains(t, buf.String(), "{}")
	})
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn").With("request_id", "abc")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	l := slog.Default()
	assert.Same(t, l, OrDiscard(l))
}
