package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "trustcore/pkg/platform/strings"
)

// Notification backends.
const (
	NotifyLog   = "log"
	NotifyKafka = "kafka"
	NotifyAMQP  = "amqp"
)

// Config is the process configuration read from the environment.
type Config struct {
	OpsAddr    string
	LogLevel   string
	TxTimeout  time.Duration
	BcryptCost int
	Database   DatabaseConfig
	Redis      RedisConfig
	Notify     NotifyConfig
}

// DatabaseConfig selects Postgres storage. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the distributed per-user lease. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// NotifyConfig selects and tunes the notification sink.
type NotifyConfig struct {
	Backend       string
	KafkaBrokers  []string
	KafkaTopic    string
	AMQPURL       string
	AMQPQueue     string
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// FromEnv builds the configuration from environment variables. In dev
// (TRUSTCORE_ENV=dev) a .env file is loaded first when present.
func FromEnv() (Config, error) {
	if os.Getenv("TRUSTCORE_ENV") == "dev" {
		_ = godotenv.Load()
	}

	cfg := Config{
		OpsAddr:    getEnv("TRUSTCORE_OPS_ADDR", ":9090"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		TxTimeout:  getEnvDuration("TX_TIMEOUT", 5*time.Second),
		BcryptCost: getEnvInt("BCRYPT_COST", 12),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getEnvDuration("USER_LOCK_TTL", 10*time.Second),
		},
		Notify: NotifyConfig{
			Backend:       strings.ToLower(getEnv("NOTIFY_BACKEND", NotifyLog)),
			KafkaBrokers:  platformstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			KafkaTopic:    getEnv("KAFKA_TOPIC", "trustcore.notifications"),
			AMQPURL:       os.Getenv("AMQP_URL"),
			AMQPQueue:     getEnv("AMQP_QUEUE", "trustcore.notifications"),
			BufferSize:    getEnvInt("NOTIFY_BUFFER_SIZE", 10000),
			BatchSize:     getEnvInt("NOTIFY_BATCH_SIZE", 100),
			FlushInterval: getEnvDuration("NOTIFY_FLUSH_INTERVAL", 200*time.Millisecond),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Notify.Backend {
	case NotifyLog:
	case NotifyKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_BACKEND=kafka")
		}
	case NotifyAMQP:
		if c.Notify.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when NOTIFY_BACKEND=amqp")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notify.Backend)
	}
	if c.Redis.URL != "" && c.Redis.LockTTL <= c.TxTimeout {
		return fmt.Errorf("USER_LOCK_TTL (%s) must exceed TX_TIMEOUT (%s)", c.Redis.LockTTL, c.TxTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return d
}
