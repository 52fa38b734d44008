package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/levenlabs/go-lflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   atomic.Pointer[slog.Logger]
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
	defaultLogger.Store(New(os.Stdout))
}

type contextKey struct{}

var loggerKey = contextKey{}

// New returns a JSON logger writing to w that follows the default log level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLogLevel,
	}))
}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger.Load()
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// SetDefault replaces the logger returned by Ctx when the context carries none.
func SetDefault(logger *slog.Logger) {
	defaultLogger.Store(logger)
	slog.SetDefault(logger)
}

func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}

// Output is where process logs are written. Logs always go to stdout and,
// when a log file is configured, to a size-rotated file as well.
type Output struct {
	file *lumberjack.Logger
}

// ConfiguredOutput registers the log file flags.
func ConfiguredOutput() *Output {
	o := &Output{}
	path := lflag.String("log-file", "", "Also write logs to this file, rotated by size (empty disables)")
	maxSize := lflag.Int("log-file-max-size-mb", 100, "Rotate the log file after it reaches this many megabytes")
	maxBackups := lflag.Int("log-file-max-backups", 5, "Number of rotated log files to keep")
	maxAge := lflag.Int("log-file-max-age-days", 28, "Days to keep rotated log files")

	lflag.Do(func() {
		if *path == "" {
			return
		}
		o.file = &lumberjack.Logger{
			Filename:   *path,
			MaxSize:    *maxSize,
			MaxBackups: *maxBackups,
			MaxAge:     *maxAge,
			Compress:   true,
		}
	})
	return o
}

// Writer returns the destination for log lines.
func (o *Output) Writer() io.Writer {
	if o == nil || o.file == nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, o.file)
}

// Close closes the log file, if any.
func (o *Output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}
	return o.file.Close()
}
