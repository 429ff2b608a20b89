package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "database", cfg.PasswordReset.TokenStore)
	assert.Equal(t, 3, cfg.SelfHeal.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.SelfHeal.AttemptTimeout)
	assert.Contains(t, cfg.Maintenance.ExemptPaths, "/api/v1/maintenance/status")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/data/app.db")
	t.Setenv("RESET_TOKEN_STORE", "redis")
	t.Setenv("SELF_HEAL_BACKOFF", "500ms")
	t.Setenv("FRONTEND_URL", "https://market.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/app.db", cfg.Database.DSN())
	assert.Equal(t, "redis", cfg.PasswordReset.TokenStore)
	assert.Equal(t, 500*time.Millisecond, cfg.SelfHeal.Backoff)
	assert.Equal(t, "https://market.example.com", cfg.PasswordReset.FrontendURL)
}

func TestLoad_RejectsUnknownTokenStore(t *testing.T) {
	t.Setenv("RESET_TOKEN_STORE", "etcd")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestParseSlice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "Empty", input: "", want: []string{}},
		{name: "Single", input: "http://localhost:3000", want: []string{"http://localhost:3000"}},
		{name: "Trims spaces and blanks", input: " /a , ,/b", want: []string{"/a", "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlice(tt.input))
		})
	}
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	c := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
