package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		wantLevels []string
	}{
		{name: "debug", level: "debug", wantLevels: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{name: "info", level: "info", wantLevels: []string{"INFO", "WARN", "ERROR"}},
		{name: "warn", level: "warn", wantLevels: []string{"WARN", "ERROR"}},
		{name: "error", level: "error", wantLevels: []string{"ERROR"}},
		{name: "unknown falls back to info", level: "verbose", wantLevels: []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("Publishing job")
			logger.Info("Job sent to queue")
			logger.Warn("Invalid scrape request")
			logger.Error("Failed to send job to queue")

			var got []string
			for _, entry := range decodeLines(t, output) {
				got = append(got, entry["level"].(string))
			}
			assert.Equal(t, tt.wantLevels, got)
		})
	}
}

func TestNew_JSONFields(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{
		Level:        "info",
		Format:       "json",
		EnableSource: true,
		Service:      "company-ingest-api",
		writer:       output,
	})
	require.NoError(t, err)

	logger.Info("Job sent to queue",
		slog.String("queue", "primary"),
		slog.String("job_id", "abc123"),
	)

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, "Job sent to queue", entry["msg"])
	assert.Equal(t, "company-ingest-api", entry["service"])
	assert.Equal(t, "primary", entry["queue"])
	assert.Equal(t, "abc123", entry["job_id"])
	assert.Contains(t, entry, "time")

	source, ok := entry["source"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_Console(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", writer: output})
	require.NoError(t, err)

	logger.Info("Job submitted", slog.String("job_id", "abc123"))

	// tint uses "INF" not "INFO"
	line := output.String()
	assert.Contains(t, line, "INF")
	assert.Contains(t, line, "Job submitted")
	assert.Contains(t, line, "job_id=abc123")
	assert.NotContains(t, line, "\x1b[", "non-terminal output must not be colored")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.log")

	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	require.NoError(t, err)

	logger.Info("written to file", slog.String("job_id", "abc123"))
	require.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &logEntry))
	assert.Equal(t, "abc123", logEntry["job_id"])
}

func TestNew_FileOutputError(t *testing.T) {
	logger, err := New(&Config{
		Format: "json",
		Output: filepath.Join(t.TempDir(), "missing", "dir", "ingest.log"),
	})
	require.Error(t, err)
	assert.Nil(t, logger)
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "DEBUG", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warning", expected: slog.LevelWarn},
		{level: "Error", expected: slog.LevelError},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_Component(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", Service: "queue-check", writer: output})
	require.NoError(t, err)

	logger.Component("queue_publisher").With(slog.String("queue", "secondary")).Info("Job sent to queue")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "queue-check", entries[0]["service"])
	assert.Equal(t, "queue_publisher", entries[0]["component"])
	assert.Equal(t, "secondary", entries[0]["queue"])
}
