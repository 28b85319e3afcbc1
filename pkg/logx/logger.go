package logx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

// Logger carries bound fields and resolves its sink at write time, so a
// Logger derived from a Service picks up every later Apply. The zero value
// discards everything.
type Logger struct {
	svc    *Service
	fixed  *zerolog.Logger
	fields []Field
}

// Nop returns a non-zero logger that writes nothing.
func Nop() Logger {
	zl := zerolog.Nop()
	return Logger{fixed: &zl}
}

// New writes JSON lines to w. Meant for tests and tools without a Service.
func New(w io.Writer, level string) Logger {
	zl := zerolog.New(w).Level(levelOr(level, LevelInfo)).With().Timestamp().Logger()
	return Logger{fixed: &zl}
}

// NewConsole logs to stderr in console format. Used before a Service exists.
func NewConsole(level string) Logger {
	zl := zerolog.New(console(os.Stderr)).Level(levelOr(level, LevelInfo)).With().Timestamp().Logger()
	return Logger{fixed: &zl}
}

func (l Logger) IsZero() bool { return l.svc == nil && l.fixed == nil && len(l.fields) == 0 }

func (l Logger) sink() *zerolog.Logger {
	switch {
	case l.svc != nil:
		return l.svc.current()
	case l.fixed != nil:
		return l.fixed
	default:
		return &disabled
	}
}

var disabled = zerolog.Nop()

func (l Logger) Enabled(level Level) bool { return level >= l.sink().GetLevel() }

func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	out := l
	out.fields = make([]Field, 0, len(l.fields)+len(fields))
	out.fields = append(append(out.fields, l.fields...), fields...)
	return out
}

// Named tags every line with comp=name.
func (l Logger) Named(name string) Logger { return l.With(String("comp", name)) }

func (l Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l Logger) write(level Level, msg string, fields []Field) {
	e := l.sink().WithLevel(level)
	if e == nil {
		return
	}
	// write <- Info/Warn/... <- caller
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	apply(e, l.fields)
	apply(e, fields)
	e.Msg(msg)
}

func apply(e *zerolog.Event, fields []Field) {
	for _, f := range fields {
		if f != nil {
			f(e)
		}
	}
}

// ParseLevel accepts zerolog level names plus "warning".
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return zerolog.NoLevel, false
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

func levelOr(s string, def Level) Level {
	if lvl, ok := ParseLevel(s); ok {
		return lvl
	}
	return def
}
