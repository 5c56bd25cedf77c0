package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override
// them, in priority order.
var envBindings = map[string][]string{
	"server.port":            {"PORT", "SERVER_PORT"},
	"server.frontend_origin": {"FRONTEND_ORIGIN", "SERVER_FRONTEND_ORIGIN"},
	"database.url":           {"DATABASE_URL"},
	"storage.data_dir":       {"CHURN_PLATFORM_DATA_DIR", "STORAGE_DATA_DIR"},
	"storage.uploads_dir":    {"CHURN_PLATFORM_UPLOADS_DIR", "STORAGE_UPLOADS_DIR"},
	"model.path":             {"CHURN_MODEL_PATH", "MODEL_PATH"},
	"redis.address":          {"REDIS_ADDRESS", "REDIS_ADDR"},
	"redis.password":         {"REDIS_PASSWORD"},
	"redis.db":               {"REDIS_DB"},
	"redis.results_ttl":      {"REDIS_RESULTS_TTL"},
	"logging.level":          {"LOG_LEVEL", "LOGGING_LEVEL"},
	"logging.format":         {"LOG_FORMAT", "LOGGING_FORMAT"},
	"app.environment":        {"APP_ENVIRONMENT"},
}

// Load reads configs/config.yaml (when present), merges
// configs/config.<APP_ENVIRONMENT>.yaml, then applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app.name", "churn-platform")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.frontend_origin", "http://localhost:5173")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("database.url", "")
	v.SetDefault("storage.data_dir", filepath.Join("data", "churn_platform"))
	v.SetDefault("storage.uploads_dir", "")
	v.SetDefault("model.path", "")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.results_ttl", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory. Variables already set in the environment win.
func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// applyDefaults fills values derived from other settings.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = filepath.Join("data", "churn_platform")
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = filepath.Join(cfg.Storage.DataDir, "uploads")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = defaultDatabaseURL(cfg.Storage.DataDir)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Model.Path == "" {
		return fmt.Errorf("model.path is required (set CHURN_MODEL_PATH)")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Database.URL, "postgres://") &&
		!strings.HasPrefix(cfg.Database.URL, "postgresql://") &&
		!strings.HasPrefix(cfg.Database.URL, "sqlite://") {
		return fmt.Errorf("database.url must use the postgres:// or sqlite:// scheme")
	}
	if cfg.Redis.Enabled() && cfg.Redis.ResultsTTL < 0 {
		return fmt.Errorf("redis.results_ttl must not be negative")
	}
	return nil
}
