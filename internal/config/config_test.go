package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTablePrefix(t *testing.T) {
	cfg := Config{AppEnv: "production"}
	assert.Equal(t, "", cfg.TablePrefix())

	cfg.AppEnv = "development"
	assert.Equal(t, "dev_", cfg.TablePrefix())

	cfg.AppEnv = "staging"
	assert.Equal(t, "dev_", cfg.TablePrefix())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("SERVER_PORT", "")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_NAME", "seisan_other")
	t.Setenv("APP_ENV", "production")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "seisan_other", cfg.Database.DBName)
	assert.Equal(t, "", cfg.TablePrefix())
}
