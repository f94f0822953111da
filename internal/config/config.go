package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
)

// The lead source table name ends up interpolated into a SQL statement, so
// it must never be anything looser than a plain or schema-qualified
// identifier.
var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Engine tuning
	DispatchWorkers      int // concurrent action executions
	CapabilityTimeoutSec int // per capability invocation
	RetryBackoffSec      int // single automatic retry after transient failure

	// Outbound message gateways. Empty means log-only (dev mode).
	EmailGatewayURL    string
	WhatsAppGatewayURL string

	// External Postgres lead source. Empty DSN disables the poller.
	LeadSourceDSN     string
	LeadSourceTable   string
	LeadSourcePollSec int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-leadflow"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-leadflow"),

		DispatchWorkers:      getEnvInt("DISPATCH_WORKERS", 8),
		CapabilityTimeoutSec: getEnvInt("CAPABILITY_TIMEOUT_SEC", 30),
		RetryBackoffSec:      getEnvInt("RETRY_BACKOFF_SEC", 15),

		EmailGatewayURL:    getEnv("EMAIL_GATEWAY_URL", ""),
		WhatsAppGatewayURL: getEnv("WHATSAPP_GATEWAY_URL", ""),

		LeadSourceDSN:     getEnv("LEAD_SOURCE_DSN", ""),
		LeadSourceTable:   getEnv("LEAD_SOURCE_TABLE", "leads"),
		LeadSourcePollSec: getEnvInt("LEAD_SOURCE_POLL_SEC", 60),
	}

	if !sqlIdentifier.MatchString(cfg.LeadSourceTable) {
		return nil, fmt.Errorf("invalid LEAD_SOURCE_TABLE %q: expected a plain or schema-qualified identifier", cfg.LeadSourceTable)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}
