package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTrace(t *testing.T) {
	ctx, root := Start(context.Background(), "search", "req-1")
	_, child := Start(ctx, "index.qnetvo", "ignored")
	child.SetAttr("hits", 3)
	child.End()
	root.End()

	assert.Equal(t, "req-1", child.TraceID)
	require.Len(t, root.Children(), 1)
	assert.Same(t, child, root.Children()[0])
	assert.Same(t, root, FromContext(ctx))
}

func TestStartGeneratesTraceID(t *testing.T) {
	_, span := Start(context.Background(), "search", "")
	assert.Len(t, span.TraceID, 36)
}

func TestLogWritesTree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "search", "t")
	_, child := Start(ctx, "fulltext", "")
	child.SetAttr("terms", 2)
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=search")
	assert.Contains(t, lines[1], "span=fulltext")
	assert.Contains(t, lines[1], "terms=2")
	assert.Contains(t, lines[1], "depth=1")
}
