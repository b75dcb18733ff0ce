package graph

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains the connection settings for a Neo4j-backed client.
// The URI scheme selects encryption: "bolt://" and "neo4j://" are
// plaintext, "bolt+s://" and "neo4j+s://" are TLS.
type Config struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Database selects the target database; empty means the server
	// default.
	Database string `yaml:"database"`
	// MaxConnectionPoolSize limits the driver's connection pool. Zero or
	// negative uses the driver default.
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size"`
	// ConnectionTimeout bounds connection acquisition.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	// MaxTransactionRetryTime bounds the driver's managed-transaction
	// retry window.
	MaxTransactionRetryTime time.Duration `yaml:"max_transaction_retry_time"`
}

// DefaultConfig returns a Config pointing at a local instance with the
// driver's usual defaults.
func DefaultConfig() Config {
	return Config{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// LoadConfig reads a YAML config file over the defaults, so a file only
// needs to state what differs.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can produce a working driver.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("config: URI cannot be empty")
	}
	if c.Username == "" {
		return fmt.Errorf("config: username cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("config: password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("config: connection timeout must be positive")
	}
	if c.MaxTransactionRetryTime <= 0 {
		return fmt.Errorf("config: max transaction retry time must be positive")
	}
	return nil
}
