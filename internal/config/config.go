package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
)

// ErrMissingDatabaseURL is returned by Validate when DATABASE_URL is unset.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")

// DefaultPerplexityBaseURL is the OpenAI-compatible endpoint used for question generation.
const DefaultPerplexityBaseURL = "https://api.perplexity.ai/"

// Config holds the server configuration.
type Config struct {
	Port        string
	DatabaseURL string

	// CORS and admin access
	AllowedOrigins  []string
	AllowedAdminIPs []string
	CookieSecure    bool

	// Proxies whose X-Forwarded-For / X-Real-IP headers are believed
	TrustedProxies []string

	LogFile  string
	LogLevel string

	// Per-IP burst limit on write endpoints
	SubmitRatePerMin float64
	SubmitBurst      int

	PerplexityKey     string
	PerplexityBaseURL string
	PerplexityModel   string
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - DATABASE_URL: PostgreSQL DSN (required)
//   - ALLOWED_ORIGINS: comma separated CORS origins
//   - ALLOWED_ADMIN_IPS: comma separated client IPs allowed on admin routes (empty: any)
//   - TRUSTED_PROXIES: comma separated proxy IPs or CIDRs allowed to set X-Forwarded-For (empty: none)
//   - COOKIE_SECURE: "true" to mark the session cookie Secure
//   - LOG_FILE: rotating log file path (empty: stdout only)
//   - LOG_LEVEL: logrus level (default: info)
//   - SUBMIT_RATE_PER_MIN, SUBMIT_BURST: token bucket per client IP (default: 10/min, burst 5)
//   - PERPLEXITY_API_KEY, PERPLEXITY_BASE_URL, PERPLEXITY_MODEL
func LoadFromEnv() Config {
	return Config{
		Port:              getEnv("PORT", "5050"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		AllowedAdminIPs:   splitList(os.Getenv("ALLOWED_ADMIN_IPS")),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),
		CookieSecure:      getBool("COOKIE_SECURE", false),
		LogFile:           os.Getenv("LOG_FILE"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SubmitRatePerMin:  getFloat("SUBMIT_RATE_PER_MIN", 10),
		SubmitBurst:       getInt("SUBMIT_BURST", 5),
		PerplexityKey:     os.Getenv("PERPLEXITY_API_KEY"),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", DefaultPerplexityBaseURL),
		PerplexityModel:   getEnv("PERPLEXITY_MODEL", "sonar-pro"),
	}
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if _, err := utils.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
