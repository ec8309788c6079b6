// Package config loads client and server settings from an optional YAML
// file overlaid by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ClientConfig struct {
	ShopBaseURL          string        `yaml:"shop_base_url"`
	ShopGRPCAddr         string        `yaml:"shop_grpc_addr"`
	TransactionTransport string        `yaml:"transaction_transport"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	CheckoutTimeout      time.Duration `yaml:"checkout_timeout"`
	LogFile              string        `yaml:"log_file"`
	LogLevel             string        `yaml:"log_level"`
}

type ServerConfig struct {
	HTTPPort        string        `yaml:"http_port"`
	GRPCPort        string        `yaml:"grpc_port"`
	DBDriver        string        `yaml:"db_driver"`
	DBDSN           string        `yaml:"db_dsn"`
	MigrationsPath  string        `yaml:"migrations_path"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	KafkaTopic      string        `yaml:"kafka_topic"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

func defaultClient() ClientConfig {
	return ClientConfig{
		ShopBaseURL:          "http://localhost:8080",
		ShopGRPCAddr:         "localhost:50061",
		TransactionTransport: TransportHTTP,
		RequestTimeout:       5 * time.Second,
		CheckoutTimeout:      30 * time.Second,
		LogFile:              "billing-client.log",
		LogLevel:             "info",
	}
}

func defaultServer() ServerConfig {
	return ServerConfig{
		HTTPPort:        "8080",
		GRPCPort:        "50061",
		DBDriver:        "sqlite",
		DBDSN:           "./billing.db",
		MigrationsPath:  "./internal/store/migrations",
		KafkaTopic:      "sales-completed",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// LoadClient reads path (if not empty) and then applies environment overrides.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := defaultClient()
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}

	cfg.ShopBaseURL = getEnv("SHOP_BASE_URL", cfg.ShopBaseURL)
	cfg.ShopGRPCAddr = getEnv("SHOP_GRPC_ADDR", cfg.ShopGRPCAddr)
	cfg.TransactionTransport = strings.ToLower(getEnv("TRANSACTION_TRANSPORT", cfg.TransactionTransport))
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.CheckoutTimeout, err = getDuration("CHECKOUT_TIMEOUT", cfg.CheckoutTimeout); err != nil {
		return nil, err
	}

	if cfg.TransactionTransport != TransportHTTP && cfg.TransactionTransport != TransportGRPC {
		return nil, fmt.Errorf("invalid TRANSACTION_TRANSPORT %q: want %q or %q", cfg.TransactionTransport, TransportHTTP, TransportGRPC)
	}
	return &cfg, nil
}

func LoadServer(path string) (*ServerConfig, error) {
	cfg := defaultServer()
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = getEnv("GRPC_PORT", cfg.GRPCPort)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = getEnv("DB_DSN", cfg.DBDSN)
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.MigrationsPath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite or postgres", cfg.DBDriver)
	}
	return &cfg, nil
}

func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("750ms") or plain seconds ("5").
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
