package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "password", cfg.AuthProvider)
	assert.Equal(t, "payshield", cfg.Origin)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.CustomerStartingBalance.Equal(decimal.RequireFromString("100000.00")))
	assert.Equal(t, 5, cfg.SignInMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.SignInWindow)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("PROFILE_API_URL", "https://profiles.example.com/")
	t.Setenv("AUTH_PROVIDER", "Keycloak")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CUSTOMER_STARTING_BALANCE", "300000.0")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg := Load()

	assert.Equal(t, "https://profiles.example.com", cfg.ProfileAPIURL)
	assert.Equal(t, "keycloak", cfg.AuthProvider)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr)
	assert.True(t, cfg.CustomerStartingBalance.Equal(decimal.NewFromInt(300000)))
}

func TestLoad_InvalidBalanceFallsBackToDefault(t *testing.T) {
	t.Setenv("CUSTOMER_STARTING_BALANCE", "-5")

	cfg := Load()

	assert.True(t, cfg.CustomerStartingBalance.Equal(decimal.RequireFromString(defaultStartingBalance)))
}
