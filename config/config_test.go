package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Webhooks.ProcessorCount)
	assert.Equal(t, 3, cfg.Webhooks.MaxRetries)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_DSN", "user:pass@tcp(localhost:3306)/proptx?parseTime=true")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WEBHOOK_PROCESSOR_COUNT", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 4, cfg.Webhooks.ProcessorCount)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DB_DRIVER", "postgres")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestLoadConfig_WithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.ValidateServer(), "JWT_SECRET")

	cfg.JWTSecret = "x"
	assert.NoError(t, cfg.ValidateServer())
}
