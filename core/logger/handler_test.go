package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: format})
	ctx = WithLogger(ctx, slog.New(h))
	Event(ctx, component, level, event, attrs...)
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := emit(t, formatKV, ctx, "stats", slog.LevelInfo, "stats.recorded",
		slog.String("status", "OK"),
		slog.Int64("total", 3),
	)

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=stats", "event=stats.recorded", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(want), line)
	for i, prefix := range want {
		require.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	require.Contains(t, line, "total=3")
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := emit(t, formatJSON, ctx, "catalog", slog.LevelError, "catalog.commit",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	require.True(t, strings.HasPrefix(line, "{"), line)
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"catalog"`, `"event":"catalog.commit"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`} {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	ctx := WithRID(context.Background(), raw)

	kv := emit(t, formatKV, ctx, "tg", slog.LevelInfo, "rid.test")
	require.Contains(t, kv, "rid="+CompactRID(raw))
	require.NotContains(t, kv, "rid_full=")

	js := emit(t, formatJSON, ctx, "tg", slog.LevelInfo, "rid.test")
	require.Contains(t, js, `"rid":"`+CompactRID(raw)+`"`)
	require.Contains(t, js, `"rid_full":"`+raw+`"`)
	require.Contains(t, js, `"ts_unix_nano"`)
}

func TestDurationKeysAreMilliseconds(t *testing.T) {
	line := emit(t, formatKV, context.Background(), "db", slog.LevelInfo, "db.connect",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
	)
	require.Contains(t, line, "duration_ms=2")
	require.Contains(t, line, "backoff_ms=2000")
}

func TestDefaultLoggerDiscards(t *testing.T) {
	require.NotNil(t, L)
	require.NotNil(t, DB)
	Info(context.Background(), "app", "noop")
}

func TestCompactRID(t *testing.T) {
	require.Equal(t, "z.10.1", CompactRID("35:36:1"))
	require.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	require.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestSanitizeLimit(t *testing.T) {
	require.Equal(t, "ab\tc", SanitizeLimit("a\x00b\tc\u200b", 10))
	require.Equal(t, "hé", SanitizeLimit("héllo", 2))
	require.Empty(t, SanitizeLimit("abc", 0))
}

func TestRatioSampler(t *testing.T) {
	s := &ratioSampler{}
	s.Set(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	require.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	require.True(t, s.Allow())
}

func TestBotTokensAreRedacted(t *testing.T) {
	line := emit(t, formatKV, context.Background(), "tg", slog.LevelError, "send.fail",
		slog.String("err", `Post "https://api.telegram.org/bot123:AbC-d_e/sendMessage": EOF`),
		slog.Any("cause", errors.New("dial bot99:zz failed")),
	)
	require.NotContains(t, line, "123:AbC")
	require.NotContains(t, line, "99:zz")
	require.Contains(t, line, "bot<redacted>/sendMessage")
}
