package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axonbase/extcore/ctxutil"
	"github.com/axonbase/extcore/logging/logger/config"
	"github.com/sirupsen/logrus"
)

// Field key constants
const (
	TraceIDKey = "trace_id"
	VersionKey = "version"
)

// Logger wraps logrus with context-aware helpers and optional search hooks.
type Logger struct {
	*logrus.Logger
	version string
	logFile *os.File
	logPath string
	mu      sync.Mutex
}

var (
	standardLogger *Logger
	once           sync.Once
)

// StandardLogger returns the singleton logger instance.
func StandardLogger() *Logger {
	once.Do(func() {
		standardLogger = &Logger{
			Logger: logrus.New(),
		}
		standardLogger.SetFormatter(&logrus.JSONFormatter{})
	})
	return standardLogger
}

// New initializes the standard logger from configuration and returns it with
// a cleanup function.
func New(c *config.Config) (*Logger, func(), error) {
	l := StandardLogger()
	cleanup, err := l.Init(c)
	return l, cleanup, err
}

// SetVersion sets the version attached to every entry.
func (l *Logger) SetVersion(v string) {
	l.version = v
}

// Init configures level, format, output and hooks from configuration.
func (l *Logger) Init(c *config.Config) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	l.SetLevel(logrus.Level(c.Level))

	switch c.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{})
	}

	switch c.Output {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		l.logPath = c.OutputFile
		if l.logPath != "" {
			if err := l.setupLogFile(); err != nil {
				return nil, err
			}
		}
	}

	if err := l.initSearchHooks(c); err != nil {
		return nil, err
	}

	return func() {
		if l.logFile != nil {
			_ = l.logFile.Close()
		}
	}, nil
}

func (l *Logger) setupLogFile() error {
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0o755); err != nil {
		return err
	}
	return l.rotateLog()
}

func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("%s.%s", l.logPath, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.logFile = f
	l.Logger.SetOutput(f)
	return nil
}

// entryFromContext builds an entry carrying the trace id and version fields.
func (l *Logger) entryFromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if traceID := ctxutil.GetTraceID(ctx); traceID != "" {
		fields[TraceIDKey] = traceID
	}
	if l.version != "" {
		fields[VersionKey] = l.version
	}
	return l.WithFields(fields)
}

func (l *Logger) logf(ctx context.Context, level logrus.Level, format string, args ...any) {
	l.entryFromContext(ctx).Logf(level, format, args...)
}

func (l *Logger) log(ctx context.Context, level logrus.Level, args ...any) {
	l.entryFromContext(ctx).Log(level, args...)
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(out io.Writer) {
	l.Logger.SetOutput(out)
}

// AddHook adds a hook to the logger.
func (l *Logger) AddHook(hook logrus.Hook) {
	l.Logger.AddHook(hook)
}

// Package-level helpers on the standard logger.

func SetVersion(v string) { StandardLogger().SetVersion(v) }

// Init configures the standard logger.
func Init(c *config.Config) (func(), error) { return StandardLogger().Init(c) }

// EntryWithFields returns an entry with the given fields plus context fields.
func EntryWithFields(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return StandardLogger().entryFromContext(ctx).WithFields(fields)
}

func Debug(ctx context.Context, args ...any) { StandardLogger().log(ctx, logrus.DebugLevel, args...) }
func Info(ctx context.Context, args ...any)  { StandardLogger().log(ctx, logrus.InfoLevel, args...) }
func Warn(ctx context.Context, args ...any)  { StandardLogger().log(ctx, logrus.WarnLevel, args...) }
func Error(ctx context.Context, args ...any) { StandardLogger().log(ctx, logrus.ErrorLevel, args...) }

func Debugf(ctx context.Context, format string, args ...any) {
	StandardLogger().logf(ctx, logrus.DebugLevel, format, args...)
}
func Infof(ctx context.Context, format string, args ...any) {
	StandardLogger().logf(ctx, logrus.InfoLevel, format, args...)
}
func Warnf(ctx context.Context, format string, args ...any) {
	StandardLogger().logf(ctx, logrus.WarnLevel, format, args...)
}
func Errorf(ctx context.Context, format string, args ...any) {
	StandardLogger().logf(ctx, logrus.ErrorLevel, format, args...)
}
func Fatalf(ctx context.Context, format string, args ...any) {
	StandardLogger().entryFromContext(ctx).Fatalf(format, args...)
}

// SetOutput sets the output of the standard logger.
func SetOutput(out io.Writer) { StandardLogger().SetOutput(out) }

// AddHook adds a hook to the standard logger.
func AddHook(hook logrus.Hook) { StandardLogger().AddHook(hook) }
