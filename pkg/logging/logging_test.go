package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixed(l Logger) Logger {
	tl := l.(*textLogger)
	tl.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return tl
}

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixed(New(&buf, Options{Level: LevelInfo, TimeFormat: "%Y-%m-%d %H:%M:%S", Color: ColorNever}))

	l.With(map[string]any{"b": 2, "a": "x y"}).Infof("created %s", "chan")

	want := "[INFO] 2024-03-09 14:05:07 created chan a=\"x y\" b=2\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: LevelWarn, Color: ColorNever})

	l.Debugf("d")
	l.Infof("i")
	l.Warnf("w")
	l.Errorf("e")

	if got := buf.String(); got != "[WARN] w\n[ERROR] e\n" {
		t.Errorf("unexpected output %q", got)
	}
	if l.Enabled(LevelDebug) || !l.Enabled(LevelError) {
		t.Error("Enabled disagrees with the configured level")
	}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, Options{Level: LevelInfo, Color: ColorNever})
	child := parent.With(map[string]any{"id": 1})
	_ = child.With(map[string]any{"extra": true})

	parent.Infof("p")
	child.Infof("c")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "[INFO] p" || lines[1] != "[INFO] c id=1" {
		t.Errorf("unexpected lines %q", lines)
	}
}

func TestColor(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Level: LevelInfo, Color: ColorAlways}).Errorf("boom")
	if !strings.HasPrefix(buf.String(), "\x1b[31m[ERROR]\x1b[0m ") {
		t.Errorf("expected coloured tag, got %q", buf.String())
	}

	buf.Reset()
	New(&buf, Options{Level: LevelInfo, Color: ColorAuto}).Errorf("boom")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("auto mode must not colour a non-terminal writer")
	}
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Level{"debug": LevelDebug, "WARNING": LevelWarn, " info ": LevelInfo, "error": LevelError} {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Error("unknown level should not parse")
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("unknown color mode should fail")
	}
}

func TestNop(t *testing.T) {
	l := Nop().With(map[string]any{"a": 1})
	l.Errorf("ignored")
	if l.Enabled(LevelError) {
		t.Error("nop logger reports nothing enabled")
	}
}
