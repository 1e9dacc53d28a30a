package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Kafka     KafkaConfig
	Reminder  ReminderConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver   string
	URI      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URI          string
	Fanout       bool
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins []string
	SendBufferSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	AuthTimeout    time.Duration

	// Handshakes allowed per client IP within HandshakeWindow; 0 disables the limit
	HandshakeLimit  int
	HandshakeWindow time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	IngestTopic string
	GroupID     string
	AuditTopic  string
}

type ReminderConfig struct {
	Schedule  string
	DueWindow time.Duration
}

type LogConfig struct {
	Environment string
	Level       string
}

var (
	ErrMissingJWTSecret  = errors.New("JWT_SECRET must be set")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrKafkaTopicLoop    = errors.New("KAFKA_INGEST_TOPIC and KAFKA_AUDIT_TOPIC must differ")
)

// LoadConfig reads configuration from the environment, optionally seeded by a .env file
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URI:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URI:          v.GetString("REDIS_URL"),
			Fanout:       v.GetBool("REDIS_FANOUT"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  splitList(v.GetString("WS_ALLOWED_ORIGINS")),
			SendBufferSize:  v.GetInt("WS_SEND_BUFFER"),
			WriteWait:       v.GetDuration("WS_WRITE_WAIT"),
			PongWait:        v.GetDuration("WS_PONG_WAIT"),
			MaxMessageSize:  v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			AuthTimeout:     v.GetDuration("WS_AUTH_TIMEOUT"),
			HandshakeLimit:  v.GetInt("WS_HANDSHAKE_LIMIT"),
			HandshakeWindow: v.GetDuration("WS_HANDSHAKE_WINDOW"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			IngestTopic: v.GetString("KAFKA_INGEST_TOPIC"),
			GroupID:     v.GetString("KAFKA_GROUP_ID"),
			AuditTopic:  v.GetString("KAFKA_AUDIT_TOPIC"),
		},
		Reminder: ReminderConfig{
			Schedule:  v.GetString("REMINDER_SCHEDULE"),
			DueWindow: v.GetDuration("REMINDER_DUE_WINDOW"),
		},
		Log: LogConfig{
			Environment: v.GetString("APP_ENV"),
			Level:       v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "tasks")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("REDIS_FANOUT", false)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("WS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_PONG_WAIT", 60*time.Second)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 512)
	v.SetDefault("WS_AUTH_TIMEOUT", 5*time.Second)
	v.SetDefault("WS_HANDSHAKE_LIMIT", 30)
	v.SetDefault("WS_HANDSHAKE_WINDOW", time.Minute)

	v.SetDefault("KAFKA_INGEST_TOPIC", "task-events")
	v.SetDefault("KAFKA_GROUP_ID", "task-service-ws")
	v.SetDefault("KAFKA_AUDIT_TOPIC", "task-events-audit")

	v.SetDefault("REMINDER_SCHEDULE", "@every 1m")
	v.SetDefault("REMINDER_DUE_WINDOW", 24*time.Hour)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Database.Driver)
	}
	// audited events would be consumed and dispatched again
	if c.Kafka.IngestTopic != "" && c.Kafka.IngestTopic == c.Kafka.AuditTopic {
		return fmt.Errorf("%w: both are %q", ErrKafkaTopicLoop, c.Kafka.IngestTopic)
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a DSN assembled for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.URI != "" {
		return d.URI
	}
	if d.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

// Addr is the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
