package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// unsetenv clears a variable for the test while restoring the original
// value afterwards.
func unsetenv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "PORT", "SMTP_PORT", "REDIS_ADDR"} {
		unsetenv(t, key)
	}

	cfg := Load()
	assert.Equal(t, "corex.db", cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "587", cfg.SMTPPort)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
