package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("batch processed", "batch_id", "b1", "created", 3)

	// Stderr side is the text handler.
	assert.Contains(t, stderr.String(), "batch processed")
	assert.Contains(t, stderr.String(), "batch_id=b1")

	// File side is JSON, one object per line.
	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "batch processed", entry["msg"])
	assert.Equal(t, "b1", entry["batch_id"])
	assert.Equal(t, float64(3), entry["created"])
}

func TestSetupLoggerWithWritersLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("also noise")

	assert.Zero(t, stderr.Len())
	assert.Zero(t, file.Len())
}
