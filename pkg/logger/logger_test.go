package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermes/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "hermes.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewWithWriter(tt.cfg, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l)

			l.Info("hello")
			assert.Contains(t, buf.String(), "hello")

			if tt.cfg.File != "" {
				data, err := os.ReadFile(tt.cfg.File)
				require.NoError(t, err)
				assert.Contains(t, string(data), `"app":"hermes"`)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Info("quiet")
	l.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	base.WithField("component", "gateway").
		WithFields(map[string]interface{}{"requests": 10, "proxy": true}).
		Info("chained")

	out := buf.String()
	assert.Contains(t, out, `"component":"gateway"`)
	assert.Contains(t, out, `"requests":10`)
	assert.Contains(t, out, `"proxy":true`)

	// the parent must not see child fields
	buf.Reset()
	base.Info("plain")
	assert.NotContains(t, buf.String(), "component")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("connection reset")).Error("request failed")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("typed", map[string]interface{}{
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"err":      errors.New("boom"),
		"custom":   struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"int64":456`)
	assert.Contains(t, out, `"strings":["a","b"]`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"Name":"x"`)
}

func TestGlobalLogger(t *testing.T) {
	previous := GetLogger()
	defer SetLogger(previous)

	tl := NewTestLogger()
	SetLogger(tl)

	Info("global info")
	WithComponent("scheduler").Warn("component warn")
	LogComponentStart("gateway", map[string]interface{}{"timeout": "10s"})
	LogMetrics("round", map[string]interface{}{"requests": 3})

	assert.True(t, tl.HasMessage("global info"))
	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "scheduler", warns[0].Fields["component"])
	assert.True(t, tl.HasMessage("Component started"))
	assert.True(t, tl.HasMessage("Performance metrics"))
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://example.test", 200, 15*time.Millisecond)
	LogRequest(tl, "GET", "https://example.test", 404, time.Millisecond)
	LogRequest(tl, "GET", "https://example.test", 503, time.Millisecond)
	LogRateLimit(tl, "item_list", 7*time.Second, 2)
	LogRotation(tl, "identity", "cadence", "Mozilla/5.0")

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 2)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
	assert.True(t, tl.HasError())
	assert.True(t, strings.Contains(tl.String(), "rate_limited"))
}

func TestTestLoggerScopes(t *testing.T) {
	tl := NewTestLogger()
	err := errors.New("bad item")

	tl.WithError(err).WithField("index", 3).Warn("skipping item")
	tl.Info("no fields")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, err, msgs[0].Error)
	assert.Equal(t, 3, msgs[0].Fields["index"])
	assert.Nil(t, msgs[1].Fields)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Error("ignored")
	assert.NotNil(t, l.GetZerolog())
}
