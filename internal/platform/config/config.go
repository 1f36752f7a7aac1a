package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevPseudonymKey is used when PSEUDONYM_KEY is unset. Pseudonyms derived
// with it are stable but guessable; production must configure its own key.
const DevPseudonymKey = "6d6564676174652d6465762d70736575646f6e796d2d6b65792d303030303030"

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// JWTSigningKey is empty when unset; the server then generates a random
	// key so sessions do not outlive the process.
	JWTSigningKey string
	SessionTTL    time.Duration

	PseudonymKey    []byte
	PseudonymKeyDev bool

	StoreTimeout time.Duration

	RederiveMasksOnUpdate bool
	AuditDenials          bool
	AuditAuthFailures     bool
}

// RedisConfig configures the optional token revocation backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit mirror.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	var errs []string
	duration := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}
	boolean := func(key string) bool {
		raw := os.Getenv(key)
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid boolean %q", key, raw))
		}
		return b
	}

	cfg := Server{
		Addr:          getenv("MEDGATE_ADDR", ":8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		SessionTTL:    duration("SESSION_TTL", 8*time.Hour),
		StoreTimeout:  duration("STORE_TIMEOUT", 5*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", "medgate.audit"),
		},
		RederiveMasksOnUpdate: boolean("PATIENT_REDERIVE_MASKS"),
		AuditDenials:          boolean("AUDIT_DENIALS"),
		AuditAuthFailures:     boolean("AUDIT_AUTH_FAILURES"),
	}

	keyHex := os.Getenv("PSEUDONYM_KEY")
	if keyHex == "" {
		keyHex = DevPseudonymKey
		cfg.PseudonymKeyDev = true
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		errs = append(errs, "PSEUDONYM_KEY: must be 64 hex characters")
	}
	cfg.PseudonymKey = key

	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
