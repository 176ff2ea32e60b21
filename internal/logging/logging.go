// Package logging configures the process-wide zerolog logger.
//
// Console output is human-oriented with coloured level labels; when a log
// file is configured, the same events are also written there as JSON lines
// and rotated by size.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    io.Writer
	NoColor    bool
}

var (
	debugLabel = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"})
	infoLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5092EA"))
	warnLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B"))
	errorLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E06C75"))
)

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// New builds a logger from opts. The returned closer releases the log file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	console := zerolog.ConsoleWriter{
		Out:         out,
		TimeFormat:  time.TimeOnly,
		NoColor:     opts.NoColor,
		FormatLevel: levelFormatter(opts.NoColor),
	}

	var (
		w      io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, rotator)
		closer = rotator
	}

	logger := zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	return logger, closer, nil
}

// Setup installs a logger built from opts as the global zerolog logger.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}
	log.Logger = logger
	return closer, nil
}

func levelFormatter(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		lvl, _ := i.(string)
		label := "[" + strings.ToUpper(lvl) + "]"
		if noColor {
			return label
		}
		switch lvl {
		case zerolog.LevelDebugValue, zerolog.LevelTraceValue:
			return debugLabel.Render(label)
		case zerolog.LevelWarnValue:
			return warnLabel.Render(label)
		case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
			return errorLabel.Render(label)
		default:
			return infoLabel.Render(label)
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
