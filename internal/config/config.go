package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultStartingBalance = "100000.00"

type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	// ProfileAPIURL is the base URL of the backend profile service.
	ProfileAPIURL string
	HTTPTimeout   time.Duration

	// AuthProvider selects the external identity provider ("password" or "keycloak").
	AuthProvider string

	KeycloakIssuer       string
	KeycloakClientID     string
	KeycloakClientSecret string

	// Origin namespaces tab storage and the cross-tab relay channel.
	Origin     string
	SessionTTL time.Duration

	CustomerStartingBalance decimal.Decimal

	// Sign-in attempts allowed per email within SignInWindow.
	SignInMaxAttempts int
	SignInWindow      time.Duration
}

// Load reads configuration from the environment and an optional
// payshield.env file in the working directory. Environment wins.
func Load() Config {
	v := viper.New()

	v.SetConfigName("payshield")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	balance, err := decimal.NewFromString(v.GetString("CUSTOMER_STARTING_BALANCE"))
	if err != nil || balance.IsNegative() {
		balance = decimal.RequireFromString(defaultStartingBalance)
	}

	return Config{
		AppEnv:   v.GetString("APP_ENV"),
		AppPort:  v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseDSN: v.GetString("DATABASE_DSN"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		ProfileAPIURL: strings.TrimRight(v.GetString("PROFILE_API_URL"), "/"),
		HTTPTimeout:   v.GetDuration("HTTP_TIMEOUT"),

		AuthProvider: strings.ToLower(v.GetString("AUTH_PROVIDER")),

		KeycloakIssuer:       v.GetString("KEYCLOAK_ISSUER"),
		KeycloakClientID:     v.GetString("KEYCLOAK_CLIENT_ID"),
		KeycloakClientSecret: v.GetString("KEYCLOAK_CLIENT_SECRET"),

		Origin:     v.GetString("SESSION_ORIGIN"),
		SessionTTL: v.GetDuration("SESSION_TTL"),

		CustomerStartingBalance: balance,

		SignInMaxAttempts: v.GetInt("SIGNIN_MAX_ATTEMPTS"),
		SignInWindow:      v.GetDuration("SIGNIN_WINDOW"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PROFILE_API_URL", "http://localhost:8080")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("AUTH_PROVIDER", "password")
	v.SetDefault("SESSION_ORIGIN", "payshield")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("CUSTOMER_STARTING_BALANCE", defaultStartingBalance)
	v.SetDefault("SIGNIN_MAX_ATTEMPTS", 5)
	v.SetDefault("SIGNIN_WINDOW", 15*time.Minute)
}
