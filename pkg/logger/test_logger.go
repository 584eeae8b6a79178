package logger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages so tests can assert on them
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	zerolog  *zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{zerolog: &nop}
}

func (l *TestLogger) scoped() *scopedTestLogger {
	return &scopedTestLogger{root: l}
}

func (l *TestLogger) Debug(msg string) { l.scoped().Debug(msg) }
func (l *TestLogger) Info(msg string)  { l.scoped().Info(msg) }
func (l *TestLogger) Warn(msg string)  { l.scoped().Warn(msg) }
func (l *TestLogger) Error(msg string) { l.scoped().Error(msg) }
func (l *TestLogger) Fatal(msg string) { l.scoped().Fatal(msg) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.scoped().DebugWithFields(msg, fields)
}
func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.scoped().InfoWithFields(msg, fields)
}
func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.scoped().WarnWithFields(msg, fields)
}
func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.scoped().ErrorWithFields(msg, fields)
}
func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.scoped().FatalWithFields(msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.scoped().WithField(key, value)
}
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.scoped().WithFields(fields)
}
func (l *TestLogger) WithError(err error) Logger { return l.scoped().WithError(err) }

// WithContext is a no-op for captured output
func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }

func (l *TestLogger) GetZerolog() *zerolog.Logger { return l.zerolog }

func (l *TestLogger) record(msg LogMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]LogMessage, len(l.messages))
	copy(messages, l.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

// String renders the captured messages, one per line
func (l *TestLogger) String() string {
	var b strings.Builder
	for _, msg := range l.GetMessages() {
		fmt.Fprintf(&b, "[%s] %s", msg.Level, msg.Message)
		if len(msg.Fields) > 0 {
			fmt.Fprintf(&b, " fields=%v", msg.Fields)
		}
		if msg.Error != nil {
			fmt.Fprintf(&b, " error=%v", msg.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// scopedTestLogger carries fields and an error bound with WithField(s)/WithError
type scopedTestLogger struct {
	root   *TestLogger
	fields map[string]interface{}
	err    error
}

func (s *scopedTestLogger) log(level, msg string, extra map[string]interface{}) {
	var fields map[string]interface{}
	if len(s.fields) > 0 || len(extra) > 0 {
		fields = s.merge(extra)
	}
	s.root.record(LogMessage{Level: level, Message: msg, Fields: fields, Error: s.err})
}

func (s *scopedTestLogger) merge(extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(s.fields)+len(extra))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (s *scopedTestLogger) Debug(msg string) { s.log("DEBUG", msg, nil) }
func (s *scopedTestLogger) Info(msg string)  { s.log("INFO", msg, nil) }
func (s *scopedTestLogger) Warn(msg string)  { s.log("WARN", msg, nil) }
func (s *scopedTestLogger) Error(msg string) { s.log("ERROR", msg, nil) }
func (s *scopedTestLogger) Fatal(msg string) { s.log("FATAL", msg, nil) }

func (s *scopedTestLogger) DebugWithFields(msg string, f map[string]interface{}) { s.log("DEBUG", msg, f) }
func (s *scopedTestLogger) InfoWithFields(msg string, f map[string]interface{})  { s.log("INFO", msg, f) }
func (s *scopedTestLogger) WarnWithFields(msg string, f map[string]interface{})  { s.log("WARN", msg, f) }
func (s *scopedTestLogger) ErrorWithFields(msg string, f map[string]interface{}) { s.log("ERROR", msg, f) }
func (s *scopedTestLogger) FatalWithFields(msg string, f map[string]interface{}) { s.log("FATAL", msg, f) }

func (s *scopedTestLogger) WithField(key string, value interface{}) Logger {
	return s.WithFields(map[string]interface{}{key: value})
}

func (s *scopedTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &scopedTestLogger{root: s.root, fields: s.merge(fields), err: s.err}
}

func (s *scopedTestLogger) WithError(err error) Logger {
	return &scopedTestLogger{root: s.root, fields: s.fields, err: err}
}

func (s *scopedTestLogger) WithContext(ctx context.Context) Logger { return s }
func (s *scopedTestLogger) GetZerolog() *zerolog.Logger           { return s.root.zerolog }
