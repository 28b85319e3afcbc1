package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

const (
	timeFormat  = "2006-01-02T15:04:05.000Z07:00"
	defaultFile = "./memberwatch.log"
)

func init() {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"
}

// Service owns the process sinks. Apply rebuilds them in place.
type Service struct {
	mu   sync.Mutex
	file *os.File
	zl   atomic.Pointer[zerolog.Logger]
}

// NewService applies cfg and returns a root Logger that follows the Service.
// A log file that can't be opened is reported on stderr and skipped.
func NewService(cfg Config) (*Service, Logger) {
	s := &Service{}
	if err := s.Apply(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "logx:", err)
	}
	return s, Logger{svc: s}
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

func (s *Service) current() *zerolog.Logger {
	if zl := s.zl.Load(); zl != nil {
		return zl
	}
	return &disabled
}

// Apply swaps level and sinks. When the file sink fails the console takes
// over and the error is returned.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	var (
		sinks   []io.Writer
		fileErr error
	)
	if cfg.Console {
		sinks = append(sinks, console(os.Stdout))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultFile
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileErr = fmt.Errorf("open log file %q: %w", path, err)
		} else {
			s.file = f
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, console(os.Stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(levelOr(cfg.Level, LevelInfo)).
		With().Timestamp().Logger()
	s.zl.Store(&zl)
	return fileErr
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func console(f *os.File) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: timeFormat,
		NoColor:    !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()),
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}
