package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Solana   SolanaConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
}

// SolanaConfig carries everything the ledger client and escrow custody need.
// EscrowSecretKey is read once at startup and handed to the custody package;
// it must never be logged.
type SolanaConfig struct {
	RPCURL            string
	EscrowSecretKey   string
	PlatformFeeBps    uint64
	MinBountyLamports uint64
	ConfirmRetries    int
	RPCRatePerSec     float64
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Solana: SolanaConfig{
			RPCURL:            getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			EscrowSecretKey:   getEnv("ESCROW_WALLET_SECRET_KEY", ""),
			PlatformFeeBps:    uint64(getEnvAsInt("PLATFORM_FEE_BPS", 250)),
			MinBountyLamports: uint64(getEnvAsInt("MIN_BOUNTY_LAMPORTS", 10_000_000)),
			ConfirmRetries:    getEnvAsInt("SOLANA_CONFIRM_RETRIES", 3),
			RPCRatePerSec:     float64(getEnvAsInt("SOLANA_RPC_RATE_PER_SEC", 10)),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Solana.RPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}

	if c.Solana.EscrowSecretKey == "" {
		return fmt.Errorf("ESCROW_WALLET_SECRET_KEY is required")
	}

	if c.Solana.PlatformFeeBps >= 10_000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be below 10000")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
