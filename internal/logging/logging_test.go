package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func Test_ForComponent_TagsEveryLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	log := ForComponent(base, "rag")
	log.Info("collection created", slog.String("collection", "doc_abc"))

	line := buf.String()
	if !strings.Contains(line, `"component":"rag"`) {
		t.Errorf("line missing component field: %s", line)
	}
	if !strings.Contains(line, `"collection":"doc_abc"`) {
		t.Errorf("line missing call attrs: %s", line)
	}
}

func Test_ForComponent_NilBase(t *testing.T) {
	t.Parallel()
	if got := ForComponent(nil, "query"); got == nil {
		t.Fatal("expected a logger")
	}
}

func Test_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("context did not return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil {
		t.Error("expected default logger for bare context")
	}
}

func Test_ParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
