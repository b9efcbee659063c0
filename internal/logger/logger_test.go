package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{
		Path:       filepath.Join(dir, "viewer.log"),
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAgeDays: 1,
	}
	if err := InitWithFileConfig("info", cfg, false); err != nil {
		t.Fatalf("InitWithFileConfig() error = %v", err)
	}
	defer InitNop()

	payload := strings.Repeat("p", 256)
	for i := 0; i < 6000; i++ {
		Named("stream").Info("texture decoded", zap.Int("n", i), zap.String("payload", payload))
	}
	Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	rotated := 0
	for _, e := range entries {
		if e.Name() != "viewer.log" && strings.HasPrefix(e.Name(), "viewer-") {
			rotated++
		}
	}
	if rotated == 0 {
		t.Errorf("no rotated files in %v", entries)
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	if err := InitWithFileConfig("warn", FileConfig{Path: path, MaxSizeMB: 5}, false); err != nil {
		t.Fatalf("InitWithFileConfig() error = %v", err)
	}
	defer InitNop()

	log := Named("render")
	log.Info("hidden at warn")
	log.Warn("shown at warn")

	SetLevel("debug")
	if Level() != zapcore.DebugLevel {
		t.Fatalf("Level() = %v, want debug", Level())
	}
	log.Debug("shown after reload")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden at warn") {
		t.Error("info line written at warn level")
	}
	for _, want := range []string{"shown at warn", "shown after reload", "render"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"info":  zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNamedBeforeInit(t *testing.T) {
	Log = nil
	l := Named("visibility")
	if l == nil {
		t.Fatal("Named() returned nil before Init")
	}
	l.Info("must not panic")

	InitNop()
	if Log == nil || Sugar == nil {
		t.Fatal("InitNop left a nil logger")
	}
	Named("streaming").Debug("discarded")
}
