package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logMu.Lock()
	prev := consoleOut
	consoleOut = &buf
	logMu.Unlock()
	t.Cleanup(func() {
		CloseLogFile()
		logMu.Lock()
		consoleOut = prev
		logMu.Unlock()
		_ = InitLogger("info", false)
	})
	return &buf
}

func TestInitLogger_Levels(t *testing.T) {
	buf := captureConsole(t)

	require.NoError(t, InitLogger("warn", false))
	assert.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())

	logger := GetLogger()
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	require.NoError(t, InitLogger("not-a-level", false))
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())

	SetLogLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
	SetLogLevel("???")
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestInitLogger_File(t *testing.T) {
	isolateEnv(t)
	captureConsole(t)
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := New()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "fluxi.log")
	SetGlobalConfig(cfg)

	require.NoError(t, InitLogger("debug", true))
	cacheLogger := ComponentLogger("cache")
	cacheLogger.Debug().Msg("to file")
	CloseLogFile()

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"cache"`)
	assert.Contains(t, string(data), "to file")

	// After close, logging must not touch the closed handle.
	logger := GetLogger()
	logger.Info().Msg("console only")
}
