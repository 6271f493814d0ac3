package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallscraper/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"disabled", false},
		{"verbose", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn", NoColor: true}, &buf)
	require.NoError(t, err)

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug", NoColor: true}, &buf)
	require.NoError(t, err)

	child := l.WithField("url", "https://example.com/a.png")
	child.Info("child")
	l.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "url=https://example.com/a.png")
	assert.NotContains(t, lines[1], "url=")
}

func TestWithErrorNil(t *testing.T) {
	l := NewNopLogger()
	assert.Equal(t, l, l.WithError(nil))

	var buf bytes.Buffer
	zl, err := NewWithWriter(&config.LoggingConfig{Level: "debug", NoColor: true}, &buf)
	require.NoError(t, err)
	assert.Same(t, zl, zl.WithError(nil))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wallscraper.log")

	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", File: path, NoColor: true}, &buf)
	require.NoError(t, err)

	l.InfoWithFields("Download completed", map[string]interface{}{"file": "AlfaRomeo_01.png"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Download completed"`)
	assert.Contains(t, string(data), `"file":"AlfaRomeo_01.png"`)
	assert.Contains(t, string(data), `"app":"wallscraper"`)
}

func TestLogDownload(t *testing.T) {
	tl := NewTestLogger()

	LogDownload(tl, "https://example.com/a.png", "AlfaRomeo_01.png", true, 1024, time.Second, nil)
	LogDownload(tl, "https://example.com/b.png", "AlfaRomeo_02.png", false, 0, time.Second, errors.New("boom"))
	LogDownload(tl, "https://example.com/c.png", "AlfaRomeo_03.png", false, 0, 0, nil)

	msgs := tl.GetMessages()
	require.Len(t, msgs, 3)

	assert.Equal(t, "Download completed", msgs[0].Message)
	assert.Equal(t, int64(1024), msgs[0].Fields["size"])

	assert.Equal(t, "ERROR", msgs[1].Level)
	assert.EqualError(t, msgs[1].Error, "boom")

	assert.Equal(t, "Download skipped", msgs[2].Message)
	assert.True(t, tl.HasError())
}

func TestTestLoggerSharesBuffer(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("run", "abc").WithError(errors.New("x"))
	child.Warn("from child")
	tl.Info("from parent")

	assert.True(t, tl.HasMessage("from child"))
	assert.True(t, tl.HasMessage("from parent"))
	require.Len(t, tl.GetMessagesByLevel("WARN"), 1)

	warn := tl.GetMessagesByLevel("WARN")[0]
	assert.Equal(t, "abc", warn.Fields["run"])
	assert.EqualError(t, warn.Error, "x")
	assert.Contains(t, tl.String(), "[INFO] from parent")
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "error", NoColor: true}))
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, WithField("k", "v"))
	assert.NotNil(t, WithFields(map[string]interface{}{"k": 1}))
	assert.NotNil(t, WithError(errors.New("e")))
}
