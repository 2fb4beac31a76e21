package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	JWTTTLHours   int              `json:"jwt_ttl_hours"`
	MigrationsDir string           `json:"migrations_dir"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Oracle        OracleConfig     `json:"oracle"`
	Dictionary    DictionaryConfig `json:"dictionary"`
	Clustering    ClusteringConfig `json:"clustering"`
	Duplicates    DuplicateConfig  `json:"duplicates"`
	Suggestions   SuggestConfig    `json:"suggestions"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"` // sqlite | postgres
	Path     string `json:"path"`   // sqlite file path
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type OracleConfig struct {
	Provider        string      `json:"provider"`
	Model           string      `json:"model"`
	TimeoutSeconds  int         `json:"timeout_seconds"`
	CacheSize       int         `json:"cache_size"`
	CacheTTLMinutes int         `json:"cache_ttl_minutes"`
	Data            interface{} `json:"data"`
}

type DictionaryConfig struct {
	Store     string      `json:"store"` // local | s3
	Path      string      `json:"path"`  // local snapshot file
	Key       string      `json:"key"`   // object key for s3
	FlushCron string      `json:"flush_cron"`
	Data      interface{} `json:"data"`
}

// ClusteringConfig pins the weighting between exact and semantic concept
// overlap and the acceptance threshold. Defaults: 0.6 / 0.4 / 0.3.
type ClusteringConfig struct {
	ExactWeight     *float64 `json:"exact_weight"`
	SemanticWeight  *float64 `json:"semantic_weight"`
	AcceptThreshold *float64 `json:"accept_threshold"`
}

type DuplicateConfig struct {
	ScanCron  string  `json:"scan_cron"`
	Threshold float64 `json:"threshold"`
}

type SuggestConfig struct {
	DefaultMax int `json:"default_max"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	switch cfg.Database.Driver {
	case "", "sqlite":
		cfg.Database.Driver = "sqlite"
		if cfg.Database.Path == "" {
			return nil, fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.DBName == "" {
			return nil, fmt.Errorf("database host/user/db_name are required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	default:
		return nil, fmt.Errorf("database.driver must be sqlite or postgres")
	}
	if cfg.Oracle.TimeoutSeconds == 0 {
		cfg.Oracle.TimeoutSeconds = 10
	}
	if cfg.Oracle.CacheSize == 0 {
		cfg.Oracle.CacheSize = 10000
	}
	if cfg.Oracle.CacheTTLMinutes == 0 {
		cfg.Oracle.CacheTTLMinutes = 120
	}
	switch cfg.Dictionary.Store {
	case "", "local":
		cfg.Dictionary.Store = "local"
		if cfg.Dictionary.Path == "" {
			cfg.Dictionary.Path = "data/semdict.json"
		}
	case "s3":
		if cfg.Dictionary.Key == "" {
			cfg.Dictionary.Key = "semdict.json"
		}
	default:
		return nil, fmt.Errorf("dictionary.store must be local or s3")
	}
	if cfg.Dictionary.FlushCron == "" {
		cfg.Dictionary.FlushCron = "* * * * *"
	}
	if cfg.Duplicates.ScanCron == "" {
		cfg.Duplicates.ScanCron = "0 3 * * *"
	}
	if cfg.Duplicates.Threshold == 0 {
		cfg.Duplicates.Threshold = 0.85
	}
	if cfg.Suggestions.DefaultMax == 0 {
		cfg.Suggestions.DefaultMax = 3
	}
	return &cfg, nil
}
