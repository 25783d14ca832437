package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTPServer HTTPServerConfig
	Report     ReportConfig
	Ingest     IngestConfig
	SMTP       SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicStatus   string
	TopicHours    string
	TopicTimezone string
	NumPartitions int
}

type HTTPServerConfig struct {
	Port int
}

// ReportConfig carries the report-computation policies. The defaults for
// missing business hours, missing timezones and pre-first-observation
// status are product assumptions, so each one is a knob rather than a
// constant baked into the aggregation code.
type ReportConfig struct {
	JobTimeout          time.Duration
	ArtifactTTL         time.Duration // 0 keeps artifacts until explicitly deleted
	DefaultTimezone     string
	MissingHoursOpen    bool // no store_hours rows => open 24/7
	UnknownStatusActive bool // status assumed before the first observation
}

type IngestConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "uptime_user"),
			Password: getEnv("DB_PASSWORD", "uptime_pass"),
			DBName:   getEnv("DB_NAME", "uptime_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicStatus:   getEnv("KAFKA_TOPIC_STATUS", "stores.status.raw"),
			TopicHours:    getEnv("KAFKA_TOPIC_HOURS", "stores.hours.raw"),
			TopicTimezone: getEnv("KAFKA_TOPIC_TIMEZONE", "stores.timezone.raw"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		HTTPServer: HTTPServerConfig{
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		Report: ReportConfig{
			JobTimeout:          getEnvAsDuration("REPORT_JOB_TIMEOUT", 5*time.Minute),
			ArtifactTTL:         getEnvAsDuration("REPORT_ARTIFACT_TTL", 0),
			DefaultTimezone:     getEnv("REPORT_DEFAULT_TIMEZONE", "UTC"),
			MissingHoursOpen:    getEnvAsBool("REPORT_MISSING_HOURS_OPEN", true),
			UnknownStatusActive: getEnvAsBool("REPORT_UNKNOWN_STATUS_ACTIVE", false),
		},
		Ingest: IngestConfig{
			BatchSize:     getEnvAsInt("INGEST_BATCH_SIZE", 100),
			FlushInterval: getEnvAsDuration("INGEST_FLUSH_INTERVAL", 5*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "uptime-server@example.com"),
			To:       getEnv("SMTP_TO", "ops@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
