package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const serviceName = "transfer-service"

// Storage and session backends
const (
	BackendMemory  = "memory"
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
)

// Config holds the service configuration read from the environment and an optional config file
type Config struct {
	ServiceName     string
	ServerAddr      string
	LogLevel        string
	Environment     string
	StorageBackend  string
	SessionBackend  string
	MongoURI        string
	MongoDatabase   string
	RedisURL        string
	SessionTTL      time.Duration
	KafkaEnabled    bool
	KafkaBrokers    []string
	TracingEnabled  bool
	OTELEndpoint    string
	SeedFile        string
	OverTransferCap int
	ShutdownTimeout time.Duration
	// OpenAPIValidation checks requests against docs/openapi.yaml before the handlers run
	OpenAPIValidation bool
}

// Load reads configuration. Environment variables override config.yaml in . or ./config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		ServiceName:     serviceName,
		ServerAddr:      v.GetString("SERVER_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Environment:     v.GetString("ENVIRONMENT"),
		StorageBackend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
		SessionBackend:  strings.ToLower(v.GetString("SESSION_BACKEND")),
		MongoURI:        v.GetString("MONGODB_URI"),
		MongoDatabase:   v.GetString("MONGODB_DATABASE"),
		RedisURL:        v.GetString("REDIS_URL"),
		SessionTTL:      v.GetDuration("SESSION_TTL"),
		KafkaEnabled:    v.GetBool("KAFKA_ENABLED"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
		OTELEndpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SeedFile:        v.GetString("SEED_FILE"),
		OverTransferCap: v.GetInt("OVER_TRANSFER_CAP"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		OpenAPIValidation: v.GetBool("OPENAPI_VALIDATION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDR", ":8020")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("SESSION_BACKEND", BackendMemory)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "wms_transfer")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("OVER_TRANSFER_CAP", -1)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("OPENAPI_VALIDATION", false)
}

// Validate rejects unknown backends and incomplete settings
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendMongoDB:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OverTransferCap < -1 {
		return fmt.Errorf("OVER_TRANSFER_CAP must be -1 or non-negative, got %d", c.OverTransferCap)
	}
	return nil
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
