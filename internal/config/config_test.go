package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"server_address": ":3000",
	"database_url": "json-dsn",
	"file_storage_path": "json_storage.db",
	"cat_api_base_url": "http://json-catalog.com/v1",
	"images_per_breed": 3,
	"cat_api_timeout": "3s",
	"breeds_cache_ttl": "1m"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.True(t, cfg.UsesDefaultSecretKey())

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.thecatapi.com/v1", cfg.CatAPIBaseURL)
	assert.Equal(t, 5, cfg.ImagesPerBreed)
	assert.Equal(t, 10*time.Second, cfg.CatAPITimeout)
	assert.Zero(t, cfg.BreedsCacheTTL)
	assert.Equal(t, "catfinder_session", cfg.SessionCookieName)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "json_storage.db", cfg.DBFileName)
	assert.Equal(t, "http://json-catalog.com/v1", cfg.CatAPIBaseURL)
	assert.Equal(t, 3, cfg.ImagesPerBreed)
	assert.Equal(t, 3*time.Second, cfg.CatAPITimeout)
	assert.Equal(t, time.Minute, cfg.BreedsCacheTTL)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("CAT_API_TIMEOUT", "7s")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, 7*time.Second, cfg.CatAPITimeout)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")

	cfg, err := New(WithArgs([]string{"-a", ":6000", "-l", "debug"}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigFileFromFlag(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)

	cfg, err := New(WithArgs([]string{"-c", jsonPath}))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, jsonPath, cfg.ConfigFile)
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SECRET_KEY", "a-much-longer-secret")
	t.Setenv("TRUSTED_SUBNET", "10.0.0.0/8")
	t.Setenv("GRPC_ADDRESS", "localhost:9090")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "a-much-longer-secret", cfg.SecretKey)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
	assert.Equal(t, "localhost:9090", cfg.GRPCAddr)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown log level", key: "LOG_LEVEL", val: "verbose"},
		{name: "short secret", key: "SECRET_KEY", val: "short"},
		{name: "bad catalog url", key: "CAT_API_BASE_URL", val: "not a url"},
		{name: "bad subnet", key: "TRUSTED_SUBNET", val: "10.0.0.0"},
		{name: "too many images", key: "IMAGES_PER_BREED", val: "100"},
		{name: "bad grpc address", key: "GRPC_ADDRESS", val: "no-port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}
