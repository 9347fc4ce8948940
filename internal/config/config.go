// Package config loads usher configuration from a YAML file and USHER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all usher configuration
type Config struct {
	DataDir  string         `yaml:"data_dir" env:"USHER_DATA_DIR"`
	Store    StoreConfig    `yaml:"store" envPrefix:"USHER_STORE_"`
	Arweave  ArweaveConfig  `yaml:"arweave" envPrefix:"USHER_ARWEAVE_"`
	Ethereum EthereumConfig `yaml:"ethereum" envPrefix:"USHER_ETHEREUM_"`
	Token    TokenConfig    `yaml:"token" envPrefix:"USHER_TOKEN_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"USHER_SERVER_"`
	Network  NetworkConfig  `yaml:"network" envPrefix:"USHER_NETWORK_"`
}

// StoreConfig selects and configures the DID document store
type StoreConfig struct {
	Backend    string      `yaml:"backend" env:"BACKEND"`
	SQLitePath string      `yaml:"sqlite_path,omitempty" env:"SQLITE_PATH"`
	Redis      RedisConfig `yaml:"redis,omitempty" envPrefix:"REDIS_"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
	DB       int    `yaml:"db,omitempty" env:"DB"`
	Prefix   string `yaml:"prefix,omitempty" env:"PREFIX"`
}

// ArweaveConfig holds custodial Arweave wallet settings
type ArweaveConfig struct {
	KeyBits int `yaml:"key_bits,omitempty" env:"KEY_BITS"`
}

// EthereumConfig configures the custodial Ethereum signer.
// RPCURL takes precedence over PrivateKey.
type EthereumConfig struct {
	RPCURL     string `yaml:"rpc_url,omitempty" env:"RPC_URL"`
	PrivateKey string `yaml:"private_key,omitempty" env:"PRIVATE_KEY"`
}

// TokenConfig holds DID bearer token settings
type TokenConfig struct {
	Issuer      string `yaml:"issuer" env:"ISSUER"`
	ExpiryHours int    `yaml:"expiry_hours" env:"EXPIRY_HOURS"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// NetworkConfig holds the network DID seed, as hex or a BIP39 mnemonic.
// Seed takes precedence over SeedFile.
type NetworkConfig struct {
	Seed     string `yaml:"seed,omitempty" env:"SEED"`
	SeedFile string `yaml:"seed_file,omitempty" env:"SEED_FILE"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Store:   StoreConfig{Backend: BackendMemory},
		Arweave: ArweaveConfig{KeyBits: 4096},
		Token:   TokenConfig{Issuer: "usher", ExpiryHours: 24},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".usher"
	}
	return filepath.Join(home, ".usher")
}

// envVarPattern matches ${VAR_NAME} patterns for environment variable expansion
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR_NAME} patterns in the input string with environment variable values
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Load reads configuration from path, then applies USHER_* environment
// overrides. An empty path skips the file. ${VAR_NAME} references in the
// file are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Arweave.KeyBits != 0 && c.Arweave.KeyBits < 2048 {
		errs = append(errs, fmt.Errorf("arweave.key_bits must be at least 2048, got %d", c.Arweave.KeyBits))
	}
	if c.Token.ExpiryHours < 0 {
		errs = append(errs, errors.New("token.expiry_hours must not be negative"))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the database path, defaulting to {data_dir}/usher.db.
func (c *Config) SQLitePath() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.DataDir, "usher.db")
}

// NetworkSeedFile returns the seed file path, defaulting to {data_dir}/network.seed.
func (c *Config) NetworkSeedFile() string {
	if c.Network.SeedFile != "" {
		return c.Network.SeedFile
	}
	return filepath.Join(c.DataDir, "network.seed")
}
