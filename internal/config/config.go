// Package config loads the churn platform configuration from an optional
// YAML file, an optional .env file and the process environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Model    ModelConfig    `mapstructure:"model"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	FrontendOrigin  string        `mapstructure:"frontend_origin"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	// URL selects the driver by scheme: postgres:// or sqlite://.
	URL string `mapstructure:"url"`
}

type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	UploadsDir string `mapstructure:"uploads_dir"`
}

type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ResultsTTL time.Duration `mapstructure:"results_ttl"`
}

// Enabled reports whether a Redis results cache is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaultDatabaseURL is the SQLite file kept under the data directory.
func defaultDatabaseURL(dataDir string) string {
	return "sqlite://" + filepath.Join(dataDir, "churn.db")
}
