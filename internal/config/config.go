// Package config provides functionality for managing configuration options
// for the server using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// Cart store backends selectable with -cart-store.
const (
	CartStorePostgres = "postgres"
	CartStoreRedis    = "redis"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// CartStore selects the cart backend: "postgres" or "redis".
	CartStore string `json:"cart_store"`

	// RedisAddr is the Redis address or redis:// URL used when CartStore is "redis".
	RedisAddr string `json:"redis_addr"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Parse reads flags from args (without the program name), then the JSON
// config file, then environment variables; later sources override earlier
// ones.
func Parse(args []string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.CartStore, "cart-store", CartStorePostgres, "cart backend: postgres | redis")
	fs.StringVar(&options.RedisAddr, "redis", "localhost:6379", "redis address for the redis cart store")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to TLS private key")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if store := os.Getenv("CART_STORE"); store != "" {
		options.CartStore = store
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		options.RedisAddr = redisAddr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	switch options.CartStore {
	case CartStorePostgres, CartStoreRedis:
	default:
		return nil, fmt.Errorf("unknown cart store %q", options.CartStore)
	}

	return options, nil
}
