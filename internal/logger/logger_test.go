package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{" warn ", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"verbose", log.InfoLevel},
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)

	l.Info("hidden message")
	l.Warn("shown message", "run_id", "r1")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("Expected info record filtered at warn level")
	}
	if !strings.Contains(out, "shown message") || !strings.Contains(out, "run_id=r1") {
		t.Errorf("Expected warn record with attributes, got %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(New("debug", &buf), "gdelt").Debug("fetch")
	if !strings.Contains(buf.String(), "component=gdelt") {
		t.Errorf("Expected component attribute, got %q", buf.String())
	}
}
