package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		Timeout  time.Duration
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Redis struct {
		Addr     string
		Password string
		GeoKey   string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Stripe struct {
		APIKey   string
		Currency string
	}
	Auth struct {
		JWTSecret     string
		TokenDuration time.Duration
	}
	LogLevel string
}

// Load reads an optional env file and resolves all settings from the
// environment with local-development defaults.
func Load(filename string) (*Config, error) {
	if filename != "" {
		if err := loadEnvFile(filename); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":3000")
	cfg.HTTP.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", 5*time.Second)
	cfg.HTTP.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second)
	cfg.HTTP.ShutdownTimeout = getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second)

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.DB.User = getEnv("DB_USER", "rideflow_user")
	cfg.DB.Password = getEnv("DB_PASS", "rideflow_pass")
	cfg.DB.Database = getEnv("DB_NAME", "rideflow_db")
	cfg.DB.Timeout = getEnvAsDuration("DB_TIMEOUT", 5*time.Second)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.Port = getEnvAsInt("RABBITMQ_PORT", 5672)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASS", "guest")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.GeoKey = getEnv("REDIS_GEO_KEY", "drivers_geo")

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "driver-locations")

	cfg.Stripe.APIKey = getEnv("STRIPE_API_KEY", "")
	cfg.Stripe.Currency = getEnv("STRIPE_CURRENCY", "usd")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.TokenDuration = getEnvAsDuration("JWT_TOKEN_DURATION", time.Hour)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading env file: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
