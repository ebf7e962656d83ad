package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xdocstore/pkg/observability/xrotate"
)

func newJSON(t *testing.T, b *Builder) (LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := b.SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestLogger_LevelsAndAttrs(t *testing.T) {
	logger, buf := newJSON(t, New().SetLevel(LevelWarn))
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "slow query", Collection("users"), Duration(150*time.Millisecond))
	logger.Error(ctx, "insert failed", Err(errors.New("boom")), Err(nil))

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "WARN", got[0]["level"])
	assert.Equal(t, "users", got[0][KeyCollection])
	assert.Equal(t, "150ms", got[0][KeyDuration])
	assert.Equal(t, "boom", got[1][KeyError])
}

func TestLogger_DynamicLevel(t *testing.T) {
	logger, buf := newJSON(t, New())
	ctx := context.Background()

	assert.Equal(t, LevelInfo, logger.GetLevel())
	assert.False(t, logger.Enabled(ctx, LevelDebug))

	child := logger.With(Component("xmongoctl"))
	logger.SetLevel(LevelDebug)
	child.Debug(ctx, "visible")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "xmongoctl", got[0][KeyComponent])
}

func TestLogger_WithGroup(t *testing.T) {
	logger, buf := newJSON(t, New())
	assert.Same(t, logger, logger.WithGroup(""))
	assert.Same(t, logger, logger.With())

	logger.WithGroup("mongo").Info(context.Background(), "op", Operation("find"))
	got := lines(t, buf)
	require.Len(t, got, 1)
	group, ok := got[0]["mongo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "find", group[KeyOperation])
}

func TestLogger_TraceEnrichment(t *testing.T) {
	logger, buf := newJSON(t, New())
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))

	logger.Info(ctx, "traced")
	logger.Info(context.Background(), "untraced")
	//nolint:staticcheck // nil ctx 必须安全
	logger.Info(nil, "nil ctx")

	got := lines(t, buf)
	require.Len(t, got, 3)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got[0][KeyTraceID])
	assert.Equal(t, "00f067aa0ba902b7", got[0][KeySpanID])
	assert.Equal(t, "01", got[0][KeyTraceFlags])
	assert.NotContains(t, got[1], KeyTraceID)
	assert.NotContains(t, got[2], KeyTraceID)
}

func TestLogger_EnrichDisabled(t *testing.T) {
	logger, buf := newJSON(t, New().SetEnrich(false))
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))

	logger.Info(ctx, "traced")
	assert.NotContains(t, lines(t, buf)[0], KeyTraceID)
}

func TestNewEnrichHandler_Nil(t *testing.T) {
	_, err := NewEnrichHandler(nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	h, err := NewEnrichHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.NoError(t, err)
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_OnError(t *testing.T) {
	var seen []error
	logger, cleanup, err := New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) {
			seen = append(seen, err)
			panic("must not escape")
		}).
		Build()
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info(context.Background(), "lost") })
	require.Len(t, seen, 1)
	assert.EqualError(t, seen[0], "disk full")
	assert.Equal(t, uint64(2), ErrorCount(logger), "write failure plus recovered panic")
	assert.Zero(t, ErrorCount(nil))
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{"bad level", New().SetLevelString("loud")},
		{"bad format", New().SetFormat("xml")},
		{"bad rotation", New().SetRotation("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.b.Build()
			assert.Error(t, err)
		})
	}

	_, _, err := New().SetRotation("").Build()
	assert.ErrorIs(t, err, xrotate.ErrEmptyFilename)
}

func TestBuilder_ReplaceAttrAndFixedAttrs(t *testing.T) {
	logger, buf := newJSON(t, New().
		SetAttrs(Component("xmongoctl")).
		SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "uri" {
				return slog.String("uri", "***")
			}
			return a
		}))

	logger.Info(context.Background(), "connect", slog.String("uri", "mongodb://u:p@h"))
	got := lines(t, buf)[0]
	assert.Equal(t, "***", got["uri"])
	assert.Equal(t, "xmongoctl", got[KeyComponent])
}

func TestBuilder_AddSource(t *testing.T) {
	logger, buf := newJSON(t, New().SetAddSource(true))
	logger.Info(context.Background(), "here")

	src, ok := lines(t, buf)[0][slog.SourceKey].(map[string]any)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(src["file"].(string), "xlog_test.go"), src["file"])
}

func TestFromConfig_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xmongoctl.log")
	logger, cleanup, err := FromConfig(Config{Level: "debug", Format: "json", File: path}).Build()
	require.NoError(t, err)

	logger.Debug(context.Background(), "to file")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestFromConfig_Defaults(t *testing.T) {
	b := FromConfig(Config{})
	assert.Equal(t, "text", b.format)
	assert.Equal(t, slog.LevelInfo, b.levelVar.Level())
	assert.Nil(t, b.rotator)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{"Warn", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("fatal")
	assert.Error(t, err)

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("error")))
	assert.Equal(t, LevelError, l)
	text, err := l.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ERROR", string(text))
	assert.Error(t, l.UnmarshalText([]byte("nope")))
}

func TestSlog(t *testing.T) {
	logger, buf := newJSON(t, New())
	Slog(logger).Info("bridged", "n", 3)
	assert.Equal(t, float64(3), lines(t, buf)[0]["n"])
	assert.Same(t, slog.Default(), Slog(nil))
}
