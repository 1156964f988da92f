package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"legitify/pkg/validation"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	MaxFileSize int

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Ledger   LedgerConfig
	Anchor   AnchorConfig
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the client used for identity change notifications.
type RedisConfig struct {
	URL             string
	IdentityChannel string
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// KafkaConfig configures the anchoring outcome producer.
type KafkaConfig struct {
	Brokers     string
	AnchorTopic string
	Acks        string
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
}

// LedgerConfig points at the crypto-config tree and the deployed chaincode.
type LedgerConfig struct {
	CryptoPath    string
	Channel       string
	Chaincode     string
	DNSServer     string
	CommitTimeout time.Duration
}

type AnchorConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

const (
	defaultSigningKey = "dev-secret-key-change-in-production"
	defaultIssuer     = "legitify"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("LEGITIFY_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MaxFileSize: getInt("MAX_FILE_SIZE", validation.MaxFileSize),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:             os.Getenv("REDIS_URL"),
			IdentityChannel: getEnv("REDIS_IDENTITY_CHANNEL", "legitify.identities"),
			PoolSize:        getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:    getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:     getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     os.Getenv("KAFKA_BROKERS"),
			AnchorTopic: getEnv("KAFKA_ANCHOR_TOPIC", "legitify.ledger.anchors"),
			Acks:        getEnv("KAFKA_ACKS", "all"),
		},
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getEnv("JWT_SIGNING_KEY", defaultSigningKey),
			Issuer:     getEnv("JWT_ISSUER", defaultIssuer),
			Audience:   getEnv("JWT_AUDIENCE", "legitify-api"),
			TokenTTL:   getDuration("TOKEN_TTL", 15*time.Minute),
		},
		Ledger: LedgerConfig{
			CryptoPath:    getEnv("LEDGER_CRYPTO_PATH", "./fabric/crypto-config"),
			Channel:       getEnv("LEDGER_CHANNEL", "legitifychannel"),
			Chaincode:     getEnv("LEDGER_CHAINCODE", "credentialCC"),
			DNSServer:     os.Getenv("LEDGER_DNS_SERVER"),
			CommitTimeout: getDuration("LEDGER_COMMIT_TIMEOUT", 30*time.Second),
		},
		Anchor: AnchorConfig{
			Workers:     getInt("ANCHOR_WORKERS", 4),
			QueueSize:   getInt("ANCHOR_QUEUE_SIZE", 256),
			TaskTimeout: getDuration("ANCHOR_TASK_TIMEOUT", 30*time.Second),
		},
	}
}

// IsProduction reports whether the process runs with production settings.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production") || strings.EqualFold(s.Environment, "prod")
}

// UsesDefaultSigningKey flags the development signing key, which must not reach production.
func (s Server) UsesDefaultSigningKey() bool {
	return s.JWT.SigningKey == defaultSigningKey
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
