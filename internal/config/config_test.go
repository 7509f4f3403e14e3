package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:3000", cfg.HTTPAddr)
	require.Equal(t, StoreMemory, cfg.ProfileStore)
	require.Equal(t, StoreMemory, cfg.TokenStore)
	require.True(t, cfg.StockfishEnabled)
	require.Equal(t, 12, cfg.StockfishDepth)
	require.Equal(t, 450*time.Millisecond, cfg.BotReplyDelay)
	require.Equal(t, 12*time.Hour, cfg.AdminTokenTTL)
	require.Equal(t, "chess_coach", cfg.MongoDatabase)
	require.Empty(t, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("BOT_REPLY_DELAY", "1s")
	t.Setenv("STOCKFISH_ENABLED", "false")
	t.Setenv("PROFILE_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.lan")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	require.Equal(t, time.Second, cfg.BotReplyDelay)
	require.False(t, cfg.StockfishEnabled)
	require.Equal(t, StoreRedis, cfg.ProfileStore)
	require.Equal(t, []string{"example.com", "*.lan"}, cfg.AllowedOrigins)
}

func TestExplicitAddrWins(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("PORT", "8080")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr)
}

func TestValidation(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"PROFILE_STORE": "redis"}, "REDIS_URL is required"},
		{map[string]string{"PROFILE_STORE": "postgres"}, "DATABASE_URL is required"},
		{map[string]string{"PROFILE_STORE": "mongo"}, "MONGO_URI is required"},
		{map[string]string{"PROFILE_STORE": "sqlite"}, `unknown PROFILE_STORE "sqlite"`},
		{map[string]string{"TOKEN_STORE": "redis"}, "REDIS_URL is required"},
		{map[string]string{"ADMIN_REQUIRED_FOR_PROFILE": "true"}, "ADMIN_USERNAME and ADMIN_PASSWORD are required"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.EqualError(t, err, tc.want)
		})
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chess.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STOCKFISH_DEPTH: 18\nADMIN_USERNAME: root\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ADMIN_USERNAME", "env-admin")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 18, cfg.StockfishDepth)
	require.Equal(t, "env-admin", cfg.AdminUsername)
}

func TestMissingConfigFileIsIgnored(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.env"))
	_, err := Load()
	require.NoError(t, err)
}
