package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
	"github.com/andrescamacho/rts-production/internal/infrastructure/logging"
)

func TestNewLogger_WritesJSONToFileAtConfiguredLevel(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "logs", "sim.log")
	cfg := config.LoggingConfig{Level: "warn", Format: "json", Output: "file", FilePath: path}

	// Act
	logger, closer, err := logging.NewLogger(cfg)
	require.NoError(t, err)
	logger.Info().Msg("dropped")
	logger.Warn().Str("component", "factory_manager").Msg("kept")
	require.NoError(t, closer.Close())

	// Assert
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"component":"factory_manager"`)
	assert.Contains(t, string(data), `"message":"kept"`)
}

func TestNewLogger_RejectsBadSettings(t *testing.T) {
	_, _, err := logging.NewLogger(config.LoggingConfig{Level: "loud", Format: "json", Output: "stderr"})
	assert.Error(t, err)

	_, _, err = logging.NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "file"})
	assert.Error(t, err)

	_, _, err = logging.NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "syslog"})
	assert.Error(t, err)
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, zerolog.ErrorLevel)

	logger.Warn().Msg("quiet")
	logger.Error().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
