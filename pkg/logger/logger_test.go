package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	SetupWriter(&buf, level, "json")
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestWithComponentTagsRecords(t *testing.T) {
	buf := capture(t, "info")

	WithComponent("dedup").Info("index built", "entries", 3)

	rec := decode(t, buf)
	assert.Equal(t, "dedup", rec["component"])
	assert.Equal(t, "index built", rec["msg"])
	assert.EqualValues(t, 3, rec["entries"])
}

func TestFromContextCarriesRunID(t *testing.T) {
	buf := capture(t, "info")

	ctx := WithRunID(context.Background(), "run-42")
	assert.Equal(t, "run-42", RunID(ctx))
	FromContext(ctx).Info("started")

	assert.Equal(t, "run-42", decode(t, buf)["run_id"])
}

func TestFromContextWithoutRunID(t *testing.T) {
	buf := capture(t, "info")

	FromContext(context.Background()).Info("started")

	_, ok := decode(t, buf)["run_id"]
	assert.False(t, ok)
	assert.Empty(t, RunID(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")

	WithComponent("store").Info("dropped")
	assert.Zero(t, buf.Len())

	WithComponent("store").Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
