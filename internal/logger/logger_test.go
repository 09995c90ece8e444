package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	defer InitWithWriter(&buf, "INFO", "text")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("levels below WARN should be suppressed, got: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("WARN and ERROR should be logged, got: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	defer InitWithWriter(&buf, "INFO", "text")

	Info("hello", "pos", 42)

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected json output, got: %q", out)
	}
	if !strings.Contains(out, `"pos":42`) {
		t.Errorf("expected structured field, got: %q", out)
	}
}

func TestTextAttrs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("seek", "target", 1024)

	out := buf.String()
	if !strings.Contains(out, "seek") || !strings.Contains(out, "target=1024") {
		t.Errorf("expected key=value rendering, got: %q", out)
	}
}

func TestSetLevelInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("NOISY") // ignored

	Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Errorf("invalid level name must not change configuration")
	}
}
