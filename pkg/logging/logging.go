// Package logging provides the leveled, field-carrying logger used across
// the runtime. Output is one line per record:
//
//	[LEVEL] ts msg key1=val1 key2=val2
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/mattn/go-isatty"
)

// Level is the severity of a record. Lower is more severe.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name. Unknown names yield LevelWarn and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "INFO":
		return LevelInfo, true
	case "DEBUG":
		return LevelDebug, true
	default:
		return LevelWarn, false
	}
}

// Logger is the interface components log through
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger carrying the extra fields
	With(fields map[string]any) Logger

	Enabled(level Level) bool
}

// ColorMode selects when level tags are coloured
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode accepts auto, always and never
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("logging: unknown color mode %q", s)
}

// DefaultTimeFormat is a strftime layout
const DefaultTimeFormat = "%Y-%m-%dT%H:%M:%S.%f%z"

// Options configure New
type Options struct {
	Level      Level
	TimeFormat string // strftime layout; empty disables timestamps
	Color      ColorMode
}

var levelColors = map[Level]string{
	LevelError: "\x1b[31m",
	LevelWarn:  "\x1b[33m",
	LevelInfo:  "\x1b[32m",
	LevelDebug: "\x1b[36m",
}

const colorReset = "\x1b[0m"

type formatter struct {
	timeFormat string
	color      bool
}

func (f *formatter) format(ts time.Time, level Level, msg string, fields map[string]any) []byte {
	var b strings.Builder
	b.Grow(128)

	if f.color {
		b.WriteString(levelColors[level])
	}
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteByte(']')
	if f.color {
		b.WriteString(colorReset)
	}
	b.WriteByte(' ')

	if f.timeFormat != "" {
		b.WriteString(timefmt.Format(ts, f.timeFormat))
		b.WriteByte(' ')
	}

	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(sprintField(fields[k]))
		}
	}

	b.WriteByte('\n')
	return []byte(b.String())
}

func sprintField(v any) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

type textLogger struct {
	out    io.Writer
	level  Level
	lines  *formatter
	fields map[string]any
	now    func() time.Time

	// shared with children
	mu *sync.Mutex
}

// New creates a logger writing to w, or os.Stderr when w is nil
func New(w io.Writer, opts Options) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:    w,
		level:  opts.Level,
		lines:  &formatter{timeFormat: opts.TimeFormat, color: useColor(w, opts.Color)},
		fields: map[string]any{},
		now:    time.Now,
		mu:     &sync.Mutex{},
	}
}

func useColor(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *textLogger) Enabled(level Level) bool { return level <= l.level }

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *textLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *textLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *textLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *textLogger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	line := l.lines.format(l.now(), level, fmt.Sprintf(format, args...), l.fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func (n nopLogger) With(map[string]any) Logger { return n }

func (nopLogger) Enabled(Level) bool { return false }

// Nop returns a logger that discards everything
func Nop() Logger { return nopLogger{} }
