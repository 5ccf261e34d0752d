package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundcompare/backend/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(buf, &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "json",
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, &config.Config{Env: "development", LogLevel: tt.level})
			require.NotNil(t, log)
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.Info("catalog loaded")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "catalog loaded", entry["message"])
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "development", entry["env"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.WithFields(map[string]interface{}{
		"fund_id":  "F1",
		"class_id": "C1",
		"count":    3,
	}).Warn("selection rejected")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "F1", entry["fund_id"])
	assert.Equal(t, "C1", entry["class_id"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "warn", entry["level"])
}

func TestWithErrorAndSession(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.WithSession("abc").WithError(errors.New("feed unavailable")).Error("history failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "abc", entry["session_id"])
	assert.Equal(t, "feed unavailable", entry["error"])
	assert.Equal(t, "history failed", entry["message"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, &config.Config{Env: "development", LogLevel: "info", LogFormat: "console"})

	log.Infof("loaded %d funds", 4)

	if !strings.Contains(buf.String(), "loaded 4 funds") {
		t.Errorf("Expected console output to contain message, got: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("k", "v").Error("discarded")
}
