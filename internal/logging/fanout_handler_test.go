package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerWithoutFileIsConsole(t *testing.T) {
	var buf bytes.Buffer
	console := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(console, nil); h != console {
		t.Fatal("expected the console handler to be returned unwrapped")
	}
}

func TestTeeHandlerAppliesLevelPerSink(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.NewTextHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	file := slog.NewTextHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newTeeHandler(console, file)).With(FieldRunID, "abc")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the file sink")
	}

	logger.Debug("resolved batch")
	logger.Warn("fetch failed")

	if strings.Contains(consoleBuf.String(), "resolved batch") {
		t.Fatalf("console received debug record: %q", consoleBuf.String())
	}
	if !strings.Contains(consoleBuf.String(), "fetch failed") || !strings.Contains(fileBuf.String(), "fetch failed") {
		t.Fatal("expected warn record in both sinks")
	}
	if !strings.Contains(fileBuf.String(), "run_id=abc") {
		t.Fatalf("expected WithAttrs to propagate, got %q", fileBuf.String())
	}
}
