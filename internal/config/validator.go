package config

import (
	"fmt"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateIngest(cfg.Ingest); err != nil {
		errors = append(errors, err)
	}

	if err := validateWhatsApp(cfg.WhatsApp); err != nil {
		errors = append(errors, err)
	}

	if err := validateMQTT(cfg.MQTT); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port == 0 {
		return nil // server is optional for the edge listener
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil // broker is optional for the edge listener
	}
	return validateKafka(cfg.Kafka)
}

func validateKafka(cfg KafkaConfig) error {
	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.EventsTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.events_topic",
			Message: "Kafka events topic is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be non-negative",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateIngest(cfg IngestConfig) error {
	if cfg.DedupTTLSeconds < 0 {
		return &ValidationError{
			Field:   "ingest.dedup_ttl_seconds",
			Message: "dedup TTL must be non-negative",
		}
	}

	if cfg.RecentBufferSize < 0 {
		return &ValidationError{
			Field:   "ingest.recent_buffer_size",
			Message: "recent buffer size must be non-negative",
		}
	}

	return nil
}

func validateWhatsApp(cfg WhatsAppConfig) error {
	// Credentials are optional: without them alerts are logged and dropped.
	if cfg.AccessToken == "" && cfg.PhoneNumberID == "" {
		return nil
	}

	if cfg.AccessToken == "" {
		return &ValidationError{
			Field:   "whatsapp.access_token",
			Message: "access token is required when phone_number_id is set",
		}
	}

	if cfg.PhoneNumberID == "" {
		return &ValidationError{
			Field:   "whatsapp.phone_number_id",
			Message: "phone_number_id is required when access token is set",
		}
	}

	if cfg.RequestTimeout < 0 {
		return &ValidationError{
			Field:   "whatsapp.request_timeout",
			Message: "request timeout must be non-negative",
		}
	}

	return nil
}

func validateMQTT(cfg MQTTConfig) error {
	if cfg.Host == "" {
		return nil // MQTT only applies to the edge listener
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "mqtt.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "mqtt.topic",
			Message: "MQTT topic is required",
		}
	}

	return nil
}

// Defaults applied where the file and environment leave gaps.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 10 * time.Second
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 10 * time.Second
	}
	if cfg.Ingest.DedupTTLSeconds == 0 {
		cfg.Ingest.DedupTTLSeconds = 60
	}
	if cfg.Ingest.RecentBufferSize == 0 {
		cfg.Ingest.RecentBufferSize = 100
	}
	if cfg.WhatsApp.APIBaseURL == "" {
		cfg.WhatsApp.APIBaseURL = "https://graph.facebook.com/v17.0"
	}
	if cfg.WhatsApp.RequestTimeout == 0 {
		cfg.WhatsApp.RequestTimeout = 15 * time.Second
	}
	if cfg.Listener.RequestTimeout == 0 {
		cfg.Listener.RequestTimeout = 10 * time.Second
	}
	if cfg.MQTT.Topic == "" && cfg.MQTT.Host != "" {
		cfg.MQTT.Topic = "frigate/events"
	}
}
