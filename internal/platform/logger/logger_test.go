package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNew_DualOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	var console bytes.Buffer

	logger := New(Options{
		Env:          "prod",
		ConsoleLevel: "warn",
		FileLevel:    "debug",
		File:         logFile,
		App:          "restarter",
		Console:      &console,
	})
	defer func() {
		if err := Close(logger); err != nil {
			t.Errorf("Error closing logger: %v", err)
		}
	}()

	logger.Debug("debug only in file")
	logger.Info("info only in file")
	logger.Warn("warn in both")

	fileContent := readLog(t, logFile)
	for _, want := range []string{"debug only in file", "info only in file", "warn in both", `"level":"DEBUG"`, `"app":"restarter"`} {
		if !strings.Contains(fileContent, want) {
			t.Errorf("file should contain %q", want)
		}
	}

	out := console.String()
	if strings.Contains(out, "info only in file") {
		t.Error("console should filter out info")
	}
	if !strings.Contains(out, "warn in both") {
		t.Error("console should contain warn")
	}
}

func TestNew_DefaultLevels(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "default.log")
	var console bytes.Buffer

	logger := New(Options{Env: "prod", File: logFile, App: "restarter", Console: &console})
	defer Close(logger)

	logger.Debug("debug message")
	logger.Info("info message")

	if !strings.Contains(readLog(t, logFile), "debug message") {
		t.Error("Default file level should include debug messages")
	}
	if strings.Contains(console.String(), "debug message") {
		t.Error("Default console level should drop debug messages")
	}
	if !strings.Contains(console.String(), "info message") {
		t.Error("Console should contain info message")
	}
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger := New(Options{Env: "dev", ConsoleLevel: "info", App: "restarter", Console: &console})
	if err := Close(logger); err != nil {
		t.Errorf("Close without file should be a no-op: %v", err)
	}

	logger.Info("console only message")
	if !strings.Contains(console.String(), "console only message") {
		t.Error("message missing from console")
	}
}

func TestRedaction(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "redacted.log")
	var console bytes.Buffer

	logger := New(Options{Env: "prod", FileLevel: "debug", File: logFile, App: "restarter", Console: &console})
	defer Close(logger)

	hook := "https://discord.com/api/webhooks/123456/AbCdEf_secretPart-42"
	bot := "1234567890:AAH" + strings.Repeat("x", 32)

	logger.Info("configured",
		slog.String("webhook_url", hook),
		slog.String("admin_token", "hunter2"),
		slog.String("user", "alex"))
	logger.Error("send failed",
		slog.Any("error", errors.New("Post \""+hook+"\": connection refused")),
		slog.String("detail", "bot "+bot+" rejected"))
	logger.With(slog.String("token", bot)).Info("with attrs")
	logger.Info("grouped", slog.Group("telegram", slog.String("secret", "s")))

	for name, content := range map[string]string{"file": readLog(t, logFile), "console": console.String()} {
		for _, leaked := range []string{"AbCdEf_secretPart-42", "hunter2", bot} {
			if strings.Contains(content, leaked) {
				t.Errorf("%s leaked %q", name, leaked)
			}
		}
		if !strings.Contains(content, redacted) {
			t.Errorf("%s should contain redacted placeholder", name)
		}
		if !strings.Contains(content, "alex") {
			t.Errorf("%s should keep non-sensitive data", name)
		}
		if !strings.Contains(content, "connection refused") {
			t.Errorf("%s should keep the rest of the error text", name)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h1 := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn})

	multi := NewMultiHandler(h1, h2)
	ctx := context.Background()

	if !multi.Enabled(ctx, slog.LevelInfo) {
		t.Error("Should be enabled for info level")
	}
	if multi.Enabled(ctx, slog.LevelDebug) {
		t.Error("Should not be enabled for debug level")
	}

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)
	if err := multi.Handle(ctx, record); err != nil {
		t.Errorf("Handle should not return error: %v", err)
	}
	if !strings.Contains(a.String(), "test") || b.Len() != 0 {
		t.Error("record should reach only the info handler")
	}

	if multi.WithAttrs([]slog.Attr{slog.String("key", "value")}) == nil {
		t.Error("WithAttrs should not return nil")
	}
	if multi.WithGroup("group") == nil {
		t.Error("WithGroup should not return nil")
	}
}
