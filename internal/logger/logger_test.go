package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Options{Level: slog.LevelWarn, Writer: &buf, NoColor: true})

	log.Info("hidden")
	log.Warn("shown", "session_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "session_id=abc") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestInitInstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	Init(&Options{Writer: &buf, NoColor: true})
	Init(&Options{Writer: &bytes.Buffer{}})

	L().Info("hello")
	slog.Info("again")
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "again") {
		t.Errorf("default logger not installed: %q", buf.String())
	}
}
