package config

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Request-time settings. Read through Lookup on every use.
const (
	BACKEND_URL            = "BACKEND_URL"
	BILLING_WEBHOOK_URL    = "BILLING_WEBHOOK_URL"
	BILLING_WEBHOOK_SECRET = "BILLING_WEBHOOK_SECRET"
)

var (
	PORT     string
	APP_ENV  string
	APP_URL  string
	LOG_FILE string

	CORS_ORIGIN    string
	SESSION_SECRET string

	// Empty means X-Forwarded-For is never believed.
	TRUSTED_PROXIES []string

	AUTH_ISSUER_URL    string
	AUTH_CLIENT_ID     string
	AUTH_CLIENT_SECRET string
	AUTH_REDIRECT_URL  string
	AUTH_LOGOUT_URL    string

	OTEL_EXPORTER_OTLP_ENDPOINT string
)

var (
	envOnce sync.Once
	env     *viper.Viper
)

// MissingError reports an environment variable that is absent or blank.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variable: %s", e.Key)
}

// Message is the client-facing form of the error.
func (e *MissingError) Message() string {
	return e.Key + " is not configured"
}

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	APP_ENV = getEnv("APP_ENV", "development")
	APP_URL = getEnv("APP_URL", "http://localhost:"+PORT)
	LOG_FILE = getEnv("LOG_FILE", "")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", APP_URL)
	SESSION_SECRET = mustEnv("SESSION_SECRET")
	TRUSTED_PROXIES = splitList(getEnv("TRUSTED_PROXIES", ""))

	AUTH_ISSUER_URL = mustEnv("AUTH_ISSUER_URL")
	AUTH_CLIENT_ID = mustEnv("AUTH_CLIENT_ID")
	AUTH_CLIENT_SECRET = mustEnv("AUTH_CLIENT_SECRET")
	AUTH_REDIRECT_URL = mustEnv("AUTH_REDIRECT_URL")
	AUTH_LOGOUT_URL = getEnv("AUTH_LOGOUT_URL", "")

	OTEL_EXPORTER_OTLP_ENDPOINT = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	return strings.EqualFold(APP_ENV, "production")
}

// Lookup reads key from the live environment. A missing or blank value
// yields *MissingError.
func Lookup(key string) (string, error) {
	v := strings.TrimSpace(environment().GetString(key))
	if v == "" {
		return "", &MissingError{Key: key}
	}
	return v, nil
}

func environment() *viper.Viper {
	envOnce.Do(func() {
		env = viper.New()
		env.AutomaticEnv()
	})
	return env
}

func mustEnv(key string) string {
	v, err := Lookup(key)
	if err != nil {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if v, err := Lookup(key); err == nil {
		return v
	}
	return fallback
}

// splitList parses a comma-separated setting, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
