package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config controls the process-wide logger
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// ContextKey is the type for logging context keys
type ContextKey string

const (
	// UserKey carries the acting user name
	UserKey ContextKey = "user"
	// RequestIDKey carries the request ID
	RequestIDKey ContextKey = "requestID"
)

var (
	root   = logrus.New()
	rootMu sync.RWMutex
)

// Init configures the shared logger. Safe to call more than once.
func Init(cfg Config) *logrus.Logger {
	rootMu.Lock()
	defer rootMu.Unlock()

	l := logrus.New()
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	root = l
	return l
}

// L returns the shared logger
func L() *logrus.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// WithContext returns an entry with fields taken from ctx
func WithContext(ctx context.Context) *logrus.Entry {
	entry := L().WithContext(ctx)
	if ctx == nil {
		return entry
	}
	if user := ctx.Value(UserKey); user != nil {
		entry = entry.WithField("user", user)
	}
	if rid := ctx.Value(RequestIDKey); rid != nil {
		entry = entry.WithField("request_id", rid)
	}
	return entry
}

// WithComponent returns an entry tagged with a component name
func WithComponent(name string) *logrus.Entry {
	return L().WithField("component", name)
}

// WithUser stores the acting user name for WithContext
func WithUser(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, UserKey, name)
}

// WithRequestID stores a request ID for WithContext
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
