package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReplaceRestores(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	L().Info("match_create", zap.String("match_id", "m1"))
	restore()
	L().Info("after_restore")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 captured entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["match_id"]; got != "m1" {
		t.Fatalf("unexpected field value: %v", got)
	}
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "checkers.log")
	restore := Replace(nil)
	defer restore()

	if err := Init(Options{Level: "debug", Format: "json", ToFile: true, File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Debug("file_sink_event", zap.Int("n", 3))
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "file_sink_event") {
		t.Fatalf("log file missing entry: %q", raw)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
