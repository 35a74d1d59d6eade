package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	PolarAccessToken    string
	PolarOrganizationID string
	PolarSandbox        bool
	PolarAPIURL         string

	WebhookSecret       string
	WebhookSecretBase64 bool
	WebhookPath         string
	WebhookTolerance    time.Duration
	CheckoutSuccessURL  string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "cashier-polar"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		PolarAccessToken:    strings.TrimSpace(getenv("POLAR_ACCESS_TOKEN", "")),
		PolarOrganizationID: strings.TrimSpace(getenv("POLAR_ORGANIZATION_ID", "")),
		PolarSandbox:        getenvBool("POLAR_SANDBOX", true),
		PolarAPIURL:         strings.TrimSpace(getenv("POLAR_API_URL", "")),

		WebhookSecret:       strings.TrimSpace(getenv("POLAR_WEBHOOK_SECRET", "")),
		WebhookSecretBase64: getenvBool("POLAR_WEBHOOK_SECRET_BASE64", false),
		WebhookPath:         getenv("POLAR_WEBHOOK_PATH", "/webhooks/polar"),
		WebhookTolerance:    time.Duration(getenvInt("POLAR_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
		CheckoutSuccessURL:  getenv("POLAR_SUCCESS_URL", "/dashboard"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cashier"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
	}

	return cfg
}

// PolarBaseURL returns the API base URL for the configured environment. An
// explicit POLAR_API_URL wins over the sandbox switch.
func (c Config) PolarBaseURL() string {
	if c.PolarAPIURL != "" {
		return c.PolarAPIURL
	}
	if c.PolarSandbox {
		return "https://sandbox-api.polar.sh/v1"
	}
	return "https://api.polar.sh/v1"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
