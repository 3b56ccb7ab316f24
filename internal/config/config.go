package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines dashboard configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Export    ExportConfig    `yaml:"export"`
	Import    ImportConfig    `yaml:"import"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type APIConfig struct {
	URL               string  `yaml:"url"`
	Token             string  `yaml:"token"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type ServerConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	// Token, when set, is required as a bearer token on /mcp in http mode.
	Token string `yaml:"token"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
	// MaxBytes caps the log file; older lines are dropped past it.
	MaxBytes int64 `yaml:"max_bytes"`
}

// SlogLevel maps Level to a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ExportConfig struct {
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// ImportConfig names the only directory MCP clients may ingest workbooks
// from by path. Empty disables path ingestion.
type ImportConfig struct {
	Dir string `yaml:"dir"`
}

type DashboardConfig struct {
	PageSize    int           `yaml:"page_size"`
	Debounce    time.Duration `yaml:"debounce"`
	Concurrency int           `yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:               "http://localhost:8000/api",
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      8080,
		},
		DB: DBConfig{
			Path: "inscritos.db",
		},
		Log: LogConfig{
			Level:    "info",
			MaxBytes: 10 << 20,
		},
		Export: ExportConfig{
			Dir: "exports",
		},
		Dashboard: DashboardConfig{
			PageSize:    10,
			Debounce:    250 * time.Millisecond,
			Concurrency: 4,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("INSCRITOS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	str := map[string]*string{
		"INSCRITOS_API_URL":      &cfg.API.URL,
		"INSCRITOS_API_TOKEN":    &cfg.API.Token,
		"INSCRITOS_TRANSPORT":    &cfg.Server.Transport,
		"INSCRITOS_SERVER_HOST":  &cfg.Server.Host,
		"INSCRITOS_SERVER_TOKEN": &cfg.Server.Token,
		"INSCRITOS_DB_PATH":      &cfg.DB.Path,
		"INSCRITOS_LOG_LEVEL":    &cfg.Log.Level,
		"INSCRITOS_LOG_PATH":     &cfg.Log.Path,
		"INSCRITOS_EXPORT_DIR":   &cfg.Export.Dir,
		"INSCRITOS_IMPORT_DIR":   &cfg.Import.Dir,
		"INSCRITOS_S3_BUCKET":    &cfg.Export.S3Bucket,
		"INSCRITOS_S3_PREFIX":    &cfg.Export.S3Prefix,
		"INSCRITOS_S3_REGION":    &cfg.Export.S3Region,
		"INSCRITOS_S3_ENDPOINT":  &cfg.Export.S3Endpoint,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"INSCRITOS_SERVER_PORT": &cfg.Server.Port,
		"INSCRITOS_API_BURST":   &cfg.API.Burst,
		"INSCRITOS_PAGE_SIZE":   &cfg.Dashboard.PageSize,
		"INSCRITOS_CONCURRENCY": &cfg.Dashboard.Concurrency,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("INSCRITOS_API_RATE"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INSCRITOS_API_RATE: %w", err)
		}
		cfg.API.RequestsPerSecond = rps
	}
	if v := os.Getenv("INSCRITOS_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INSCRITOS_DEBOUNCE: %w", err)
		}
		cfg.Dashboard.Debounce = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the dashboard cannot run with.
func (c Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q: want stdio or http", c.Server.Transport)
	}
	if c.API.URL == "" {
		return fmt.Errorf("api url required")
	}
	if c.Dashboard.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Dashboard.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Dashboard.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
