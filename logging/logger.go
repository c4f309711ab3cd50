// Package logging provides structured, leveled logging for the workbench.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown strings map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field is a single structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field      { return Field{Key: key, Value: val} }
func Int(key string, val int) Field     { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field   { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the interface every workbench component logs through.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// jsonLogger writes one JSON object per line via the standard log package.
type jsonLogger struct {
	out        *log.Logger
	minLevel   Level
	baseFields []Field
}

// New creates a logger writing JSON lines at or above the given level.
// A nil output defaults to stderr.
func New(level Level, output io.Writer) Logger {
	if output == nil {
		output = os.Stderr
	}
	return &jsonLogger{
		out:      log.New(output, "", 0),
		minLevel: level,
	}
}

// NewDefault creates an INFO-level logger writing to stderr.
func NewDefault() Logger {
	return New(INFO, os.Stderr)
}

func (l *jsonLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *jsonLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *jsonLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *jsonLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

func (l *jsonLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.baseFields)+len(fields))
	merged = append(merged, l.baseFields...)
	merged = append(merged, fields...)
	return &jsonLogger{
		out:        l.out,
		minLevel:   l.minLevel,
		baseFields: merged,
	}
}

func (l *jsonLogger) log(level Level, msg string, fields ...Field) {
	if level < l.minLevel {
		return
	}

	entry := make(map[string]interface{}, len(l.baseFields)+len(fields)+3)
	entry["timestamp"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg
	for _, f := range l.baseFields {
		entry[f.Key] = redact(f)
	}
	for _, f := range fields {
		entry[f.Key] = redact(f)
	}

	b, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf(`{"level":"ERROR","message":"failed to marshal log entry","error":%q}`, err.Error())
		return
	}
	l.out.Println(string(b))
}

// sensitiveKeys lists field keys whose values are never logged verbatim.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"api_key":       true,
}

func redact(f Field) interface{} {
	if sensitiveKeys[strings.ToLower(f.Key)] {
		return "[REDACTED]"
	}
	return f.Value
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...Field) {}
func (noopLogger) Info(msg string, fields ...Field)  {}
func (noopLogger) Warn(msg string, fields ...Field)  {}
func (noopLogger) Error(msg string, fields ...Field) {}
func (noopLogger) WithFields(fields ...Field) Logger { return noopLogger{} }

// NewNop returns a logger that discards all output. Useful in tests.
func NewNop() Logger { return noopLogger{} }
