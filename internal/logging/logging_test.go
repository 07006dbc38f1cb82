package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/conf"
)

// captureOutputs points both process loggers at fresh buffers. Tests here
// mutate shared package state and run serially.
func captureOutputs(t *testing.T) (structured, humanReadable *bytes.Buffer) {
	t.Helper()

	structured = &bytes.Buffer{}
	humanReadable = &bytes.Buffer{}
	SetOutput(structured, humanReadable)
	return structured, humanReadable
}

func TestInitAndSetOutput(t *testing.T) {
	Init()
	require.NotNil(t, Structured())
	require.NotNil(t, HumanReadable())

	structured, humanReadable := captureOutputs(t)

	Info("screening run started", "tables", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "screening run started", entry["msg"])
	assert.Equal(t, float64(3), entry["tables"])

	// Package shorthands go through the default logger only.
	assert.Empty(t, humanReadable.String())
}

func TestHumanReadableLogger(t *testing.T) {
	Init()
	_, humanReadable := captureOutputs(t)

	HumanReadable().Warn("dataset is stale", "age_days", 12)

	out := humanReadable.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "dataset is stale")
	assert.Contains(t, out, "age_days=12")
}

func TestShorthandsRespectLevel(t *testing.T) {
	Init()
	structured, _ := captureOutputs(t)

	Debug("per-row detail")
	Warn("table skipped", "label", "capacidad")
	Trace("below every threshold")

	lines := strings.Split(strings.TrimSpace(structured.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "per-row detail")
	assert.Contains(t, lines[1], "table skipped")
	assert.NotContains(t, structured.String(), "below every threshold")
}

func TestForService(t *testing.T) {
	Init()
	structured, _ := captureOutputs(t)

	logger := ForService("screening")
	require.NotNil(t, logger)
	logger.Info("summary stored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "screening", entry["service"])
}

func TestForServiceBeforeInit(t *testing.T) {
	saved := structuredLogger
	structuredLogger = nil
	defer func() { structuredLogger = saved }()

	assert.Nil(t, ForService("screening"))
}

func TestCustomLevelLabels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newStructuredHandler(buf, LevelTrace))

	logger.Log(context.Background(), LevelTrace, "row accepted")
	logger.Log(context.Background(), LevelFatal, "database gone")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "TRACE", entry["level"])
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "FATAL", entry["level"])
}

func TestRotationFor(t *testing.T) {
	tests := []struct {
		name        string
		logConf     conf.LogConfig
		wantSizeMB  int
		wantBackups int
		wantAgeDays int
	}{
		{
			name:        "daily keeps a month of files",
			logConf:     conf.LogConfig{Rotation: conf.RotationDaily},
			wantSizeMB:  100,
			wantBackups: 30,
			wantAgeDays: 1,
		},
		{
			name:        "weekly keeps four files",
			logConf:     conf.LogConfig{Rotation: conf.RotationWeekly},
			wantSizeMB:  100,
			wantBackups: 4,
			wantAgeDays: 7,
		},
		{
			name:        "size uses configured limit",
			logConf:     conf.LogConfig{Rotation: conf.RotationSize, MaxSize: 50 * 1024 * 1024},
			wantSizeMB:  50,
			wantBackups: 3,
			wantAgeDays: 28,
		},
		{
			name:        "unknown mode falls back to size defaults",
			logConf:     conf.LogConfig{Rotation: conf.RotationType("hourly")},
			wantSizeMB:  100,
			wantBackups: 3,
			wantAgeDays: 28,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxSizeMB, maxBackups, maxAgeDays := rotationFor(&tt.logConf)
			assert.Equal(t, tt.wantSizeMB, maxSizeMB)
			assert.Equal(t, tt.wantBackups, maxBackups)
			assert.Equal(t, tt.wantAgeDays, maxAgeDays)
		})
	}
}
