package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
)

// Tests in this file share the package-level logging state and must not run
// in parallel.

func initTo(t *testing.T, cfg logging.Config) string {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "acfgen.log")
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })
	return cfg.Path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return string(content)
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr error
	}{
		{name: "info", cfg: logging.Config{Level: "info"}},
		{name: "debug with console", cfg: logging.Config{Level: "debug", ConsoleLevel: "warn", Console: &bytes.Buffer{}}},
		{name: "component overrides", cfg: logging.Config{Level: "info", Components: map[string]string{"steamcmd": "debug"}}},
		{name: "invalid level", cfg: logging.Config{Level: "loud"}, wantErr: logging.ErrInvalidLevel},
		{name: "invalid component level", cfg: logging.Config{Level: "info", Components: map[string]string{"x": "loud"}}, wantErr: logging.ErrInvalidLevel},
		{name: "invalid console level", cfg: logging.Config{Level: "info", ConsoleLevel: "loud"}, wantErr: logging.ErrInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Path = filepath.Join(t.TempDir(), "acfgen.log")
			err := logging.Init(tt.cfg)
			defer func() { _ = logging.Close() }()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Init() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Init() error = %v", err)
			}
		})
	}
}

func TestGet_ReturnsSameHandle(t *testing.T) {
	a := logging.Get("manifest")
	b := logging.Get("manifest")
	if a != b {
		t.Error("Get() should return the same handle for a component")
	}
	if logging.Get("history") == a {
		t.Error("Get() should return distinct handles per component")
	}
}

func TestLogger_HandleCreatedBeforeInit(t *testing.T) {
	logger := logging.Get("early")
	logger.Info("dropped before init")

	path := initTo(t, logging.Config{Level: "info"})
	logger.Info("written after init", "apps", 2)

	content := readLog(t, path)
	if strings.Contains(content, "dropped before init") {
		t.Error("messages before Init should be discarded")
	}
	if !strings.Contains(content, "written after init") {
		t.Errorf("log missing message: %q", content)
	}
	if !strings.Contains(content, "early") {
		t.Errorf("log missing component prefix: %q", content)
	}
}

func TestLogger_Levels(t *testing.T) {
	path := initTo(t, logging.Config{Level: "warn"})
	logger := logging.Get("levels")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	content := readLog(t, path)
	for _, msg := range []string{"debug message", "info message"} {
		if strings.Contains(content, msg) {
			t.Errorf("%q should be filtered at warn level", msg)
		}
	}
	for _, msg := range []string{"warn message", "error message"} {
		if !strings.Contains(content, msg) {
			t.Errorf("%q missing from log", msg)
		}
	}
}

func TestLogger_ComponentOverride(t *testing.T) {
	path := initTo(t, logging.Config{
		Level:      "info",
		Components: map[string]string{"steamcmd": "debug"},
	})

	logging.Get("steamcmd").Debug("steamcmd debug")
	logging.Get("generator").Debug("generator debug")

	content := readLog(t, path)
	if !strings.Contains(content, "steamcmd debug") {
		t.Error("component override should enable debug")
	}
	if strings.Contains(content, "generator debug") {
		t.Error("other components should keep the default level")
	}
}

func TestLogger_Console(t *testing.T) {
	var console bytes.Buffer
	initTo(t, logging.Config{Level: "debug", ConsoleLevel: "info", Console: &console})

	logger := logging.Get("console")
	logger.Debug("file only")
	logger.Info("both sinks")

	out := console.String()
	if strings.Contains(out, "file only") {
		t.Error("console should filter below its level")
	}
	if !strings.Contains(out, "both sinks") {
		t.Errorf("console missing message: %q", out)
	}
}

func TestLogger_With(t *testing.T) {
	path := initTo(t, logging.Config{Level: "info"})

	logging.Get("with").With("run", "abc123").Info("tagged")

	content := readLog(t, path)
	if !strings.Contains(content, "abc123") {
		t.Errorf("log missing context field: %q", content)
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	path := initTo(t, logging.Config{Level: "info"})
	logger := logging.Get("concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info("concurrent message", "worker", n, "seq", j)
			}
		}(i)
	}
	wg.Wait()

	content := readLog(t, path)
	if got := strings.Count(content, "concurrent message"); got != 160 {
		t.Errorf("message count = %d, want 160", got)
	}
}

func TestDefaultLogPath(t *testing.T) {
	path := logging.DefaultLogPath()
	if filepath.Base(path) != "acfgen.log" {
		t.Errorf("DefaultLogPath() = %q, want acfgen.log", path)
	}
	if filepath.Base(filepath.Dir(path)) != "acfgen" {
		t.Errorf("DefaultLogPath() = %q, want parent dir acfgen", path)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"warn", logging.LevelWarn, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"", logging.LevelInfo, true},
		{"trace", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if logging.LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", logging.LevelWarn.String())
	}
	if logging.Level(42).String() != "unknown" {
		t.Errorf("Level(42).String() = %q", logging.Level(42).String())
	}
}
