package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	_, err := Init(Options{})
	assert.NoError(t, err)
}

func TestInit_InvalidLevel(t *testing.T) {
	_, err := Init(Options{Level: "shouting"})
	assert.Error(t, err)
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convoflow.log")
	logger, err := Init(Options{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Str("event", "started").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"started"`)
}
