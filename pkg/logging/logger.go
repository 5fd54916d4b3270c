package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the upper-case name of the level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields holds structured key/value pairs attached to an entry
type Fields map[string]interface{}

type ctxKey struct{}

// WithRequestID stores a request ID in ctx so every entry logged with it carries the ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Caller    string    `json:"caller,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Logger writes one JSON object per line
type Logger struct {
	mu      *sync.Mutex
	out     io.Writer
	level   Level
	service string
	fields  Fields
}

// New creates a logger writing to stdout
func New(service string, level Level) *Logger {
	return &Logger{mu: &sync.Mutex{}, out: os.Stdout, level: level, service: service}
}

// Discard returns a logger that drops everything, handy in tests
func Discard() *Logger {
	return &Logger{mu: &sync.Mutex{}, out: io.Discard, level: ErrorLevel + 1}
}

// SetOutput redirects log output
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, out: l.out, level: l.level, service: l.service, fields: merged}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, DebugLevel, msg, fields, nil)
}

func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, InfoLevel, msg, fields, nil)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields Fields, err error) {
	l.log(ctx, WarnLevel, msg, fields, err)
}

func (l *Logger) Error(ctx context.Context, msg string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, msg, fields, err)
}

func (l *Logger) log(ctx context.Context, level Level, msg string, fields Fields, err error) {
	if level < l.level {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Message:   msg,
		RequestID: RequestID(ctx),
	}

	if len(l.fields) > 0 || len(fields) > 0 {
		e.Fields = make(Fields, len(l.fields)+len(fields))
		for k, v := range l.fields {
			e.Fields[k] = v
		}
		for k, v := range fields {
			e.Fields[k] = v
		}
	}

	if err != nil {
		e.Error = err.Error()
	}

	if level >= ErrorLevel {
		if _, file, line, ok := runtime.Caller(2); ok {
			e.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v (marshal: %v)\n",
			e.Timestamp.Format(time.RFC3339), e.Level, msg, fields, marshalErr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	data = append(data, '\n')
	_, _ = l.out.Write(data)
}
