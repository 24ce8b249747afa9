// Package config loads the daemon configuration: which backend to run
// and how to reach it. The file is read once at startup; flags may
// override individual fields afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend selector values accepted in the config file.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	// Backend selects the storage engine: memory, bolt, sqlite or mongo.
	Backend string `yaml:"backend"`
	// Addr is the RESP listen address.
	Addr string `yaml:"addr"`
	// HTTPAddr is the HTTP listen address.
	HTTPAddr string `yaml:"http_addr"`

	Bolt   BoltConfig   `yaml:"bolt"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Mongo  MongoConfig  `yaml:"mongo"`
}

type BoltConfig struct {
	Path string `yaml:"path"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

func Default() Config {
	return Config{
		Backend:  BackendMemory,
		Addr:     "localhost:6379",
		HTTPAddr: "localhost:8080",
		Bolt:     BoltConfig{Path: "kvpd.db"},
		SQLite:   SQLiteConfig{DSN: "kvpd.sqlite"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "kvpd",
			Collection: "kv",
		},
	}
}

// Load reads a YAML config file over the defaults. Unset fields keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBolt, BackendSQLite, BackendMongo:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}
