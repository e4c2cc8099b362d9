package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type Options struct {
	Level      slog.Leveler // slog.LevelInfo, slog.LevelDebug, etc.
	Writer     io.Writer    // default: os.Stdout
	TimeFormat string       // default: time.RFC3339
	NoColor    bool
}

// Init installs the process logger. Later calls are ignored.
func Init(opts *Options) {
	once.Do(func() {
		logger = New(opts)
		slog.SetDefault(logger)
	})
}

// New builds a tint-backed logger without touching the default.
func New(opts *Options) *slog.Logger {
	if opts == nil {
		opts = &Options{}
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return slog.New(tint.NewHandler(writer, &tint.Options{
		Level:      opts.Level,
		TimeFormat: timeFormat,
		NoColor:    opts.NoColor,
	}))
}

// L returns the installed logger, or slog's default before Init.
func L() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
