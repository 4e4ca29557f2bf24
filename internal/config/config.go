package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Ledger         LedgerConfig
	Settlement     SettlementConfig
	Notifier       NotifierConfig
	Reconciliation ReconciliationConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrateOnStart bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds the secret used to verify bearer tokens issued by the identity service
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// LedgerConfig holds ledger engine behaviour switches
type LedgerConfig struct {
	// StrictDeposit rejects deposits into wallets that were never provisioned.
	StrictDeposit bool
}

// Settlement confirmation modes
const (
	SettlementModeSync     = "sync"
	SettlementModeCallback = "callback"
)

// SettlementConfig holds the Solana settlement gateway configuration
type SettlementConfig struct {
	Mode                string
	Timeout             time.Duration
	ConfirmPollInterval time.Duration
	SolanaRPCURL        string
	USDCMint            string
	RPCRatePerSecond    int
	CustodySignerURL    string
	WebhookSecret       string
}

// NotifierConfig holds notification delivery configuration
type NotifierConfig struct {
	Sink         string
	Workers      int
	MaxAttempts  int
	KafkaBrokers []string
	KafkaTopic   string
}

// ReconciliationConfig holds the pending-transfer sweep configuration
type ReconciliationConfig struct {
	Schedule       string
	PendingTimeout time.Duration
	MaxPendingAge  time.Duration
	BatchSize      int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "paymenow"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrateOnStart: getEnvAsBool("MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Ledger: LedgerConfig{
			StrictDeposit: getEnvAsBool("LEDGER_STRICT_DEPOSIT", false),
		},
		Settlement: SettlementConfig{
			Mode:                strings.ToLower(getEnv("SETTLEMENT_MODE", SettlementModeSync)),
			Timeout:             getEnvAsDuration("SETTLEMENT_TIMEOUT", 30*time.Second),
			ConfirmPollInterval: getEnvAsDuration("SETTLEMENT_CONFIRM_POLL_INTERVAL", 2*time.Second),
			SolanaRPCURL:        getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			USDCMint:            getEnv("SOLANA_USDC_MINT", "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"),
			RPCRatePerSecond:    getEnvAsInt("SOLANA_RPC_RATE_PER_SECOND", 10),
			CustodySignerURL:    getEnv("CUSTODY_SIGNER_URL", "http://localhost:8899"),
			WebhookSecret:       getEnv("SETTLEMENT_WEBHOOK_SECRET", ""),
		},
		Notifier: NotifierConfig{
			Sink:         strings.ToLower(getEnv("NOTIFIER_SINK", "log")),
			Workers:      getEnvAsInt("NOTIFIER_WORKERS", 4),
			MaxAttempts:  getEnvAsInt("NOTIFIER_MAX_ATTEMPTS", 3),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "wallet.transfer-events"),
		},
		Reconciliation: ReconciliationConfig{
			Schedule:       getEnv("RECONCILE_SCHEDULE", "@every 1m"),
			PendingTimeout: getEnvAsDuration("RECONCILE_PENDING_TIMEOUT", 2*time.Minute),
			MaxPendingAge:  getEnvAsDuration("RECONCILE_MAX_PENDING_AGE", time.Hour),
			BatchSize:      getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
