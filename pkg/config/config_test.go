package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4096, cfg.PageSize)
	assert.Equal(t, 64, cfg.BucketSize)
	assert.False(t, cfg.Strict2PL)
	assert.True(t, cfg.WaitDieEnabled)
}

func TestLoadWithoutEnvFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().PageSize, cfg.PageSize)
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	_, err := Load("/nonexistent/path/to/.env")
	require.NoError(t, err)
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	os.Setenv("STORAGECORE_PAGE_SIZE", "8192")
	os.Setenv("STORAGECORE_STRICT_2PL", "true")
	os.Setenv("STORAGECORE_LOG_TIMEOUT_MS", "500")
	os.Setenv("STORAGECORE_WAIT_DIE_ENABLED", "false")
	defer os.Unsetenv("STORAGECORE_PAGE_SIZE")
	defer os.Unsetenv("STORAGECORE_STRICT_2PL")
	defer os.Unsetenv("STORAGECORE_LOG_TIMEOUT_MS")
	defer os.Unsetenv("STORAGECORE_WAIT_DIE_ENABLED")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.PageSize)
	assert.True(t, cfg.Strict2PL)
	assert.Equal(t, 500*time.Millisecond, cfg.LogTimeout)
	assert.False(t, cfg.WaitDieEnabled)
}
