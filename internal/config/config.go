package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration. Precedence: env > TOML file > flags.
type Config struct {
	Port         int    `toml:"port"`
	LogLevel     string `toml:"log_level"`
	StoreBackend string `toml:"store_backend"` // sqlite, redis or postgres
	DBPath       string `toml:"db_path"`
	RedisURL     string `toml:"redis_url"`
	PostgresURL  string `toml:"postgres_url"`

	BlobDir        string `toml:"blob_dir"`
	ContentBaseURL string `toml:"content_base_url"`

	AffindaBaseURL string `toml:"affinda_base_url"`
	AffindaAPIKey  string `toml:"affinda_api_key"`

	IndeedBaseURL     string `toml:"indeed_base_url"`
	IndeedLinkBaseURL string `toml:"indeed_link_base_url"`
}

// DefaultDBPath returns the default database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "vitae", "vitae.db")
}

// DefaultBlobDir returns the default resume blob directory using XDG_DATA_HOME.
func DefaultBlobDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "vitae", "blobs")
}

// Load parses flags, an optional TOML file and environment to build Config.
func Load() (*Config, error) {
	cfg := &Config{}
	var configFile string

	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.StoreBackend, "store-backend", "sqlite", "Fingerprint store backend (sqlite, redis, postgres)")
	flag.StringVar(&cfg.DBPath, "db", DefaultDBPath(), "SQLite database path")
	flag.StringVar(&cfg.RedisURL, "redis-url", "", "Redis URL for the redis store backend")
	flag.StringVar(&cfg.PostgresURL, "postgres-url", "", "Postgres URL for the postgres store backend")
	flag.StringVar(&cfg.BlobDir, "blob-dir", DefaultBlobDir(), "Resume blob directory")
	flag.StringVar(&cfg.ContentBaseURL, "content-base-url", "", "Public base URL under which stored resume blobs are reachable")
	flag.StringVar(&cfg.AffindaBaseURL, "affinda-base-url", "https://resume-parser.affinda.com/public/api/v1/documents", "Affinda documents endpoint")
	flag.StringVar(&cfg.AffindaAPIKey, "affinda-api-key", "", "Affinda API key")
	flag.StringVar(&cfg.IndeedBaseURL, "indeed-base-url", "https://www.indeed.com", "Indeed search base URL")
	flag.StringVar(&cfg.IndeedLinkBaseURL, "indeed-link-base-url", "https://www.indeed.com", "Base URL prefixed to scraped listing links")
	flag.StringVar(&configFile, "config", "", "Optional TOML config file")
	flag.Parse()

	if configFile != "" {
		if err := cfg.ApplyFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays non-zero values from a TOML file.
func (c *Config) ApplyFile(path string) error {
	var fileCfg Config
	if _, err := toml.DecodeFile(path, &fileCfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fileCfg.Port != 0 {
		c.Port = fileCfg.Port
	}
	for _, o := range []struct {
		dst *string
		src string
	}{
		{&c.LogLevel, fileCfg.LogLevel},
		{&c.StoreBackend, fileCfg.StoreBackend},
		{&c.DBPath, fileCfg.DBPath},
		{&c.RedisURL, fileCfg.RedisURL},
		{&c.PostgresURL, fileCfg.PostgresURL},
		{&c.BlobDir, fileCfg.BlobDir},
		{&c.ContentBaseURL, fileCfg.ContentBaseURL},
		{&c.AffindaBaseURL, fileCfg.AffindaBaseURL},
		{&c.AffindaAPIKey, fileCfg.AffindaAPIKey},
		{&c.IndeedBaseURL, fileCfg.IndeedBaseURL},
		{&c.IndeedLinkBaseURL, fileCfg.IndeedLinkBaseURL},
	} {
		if o.src != "" {
			*o.dst = o.src
		}
	}
	return nil
}

// ApplyEnv overlays values from the environment.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("VITAE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	for _, o := range []struct {
		dst *string
		env string
	}{
		{&c.LogLevel, "VITAE_LOG_LEVEL"},
		{&c.StoreBackend, "VITAE_STORE_BACKEND"},
		{&c.DBPath, "VITAE_DB"},
		{&c.RedisURL, "VITAE_REDIS_URL"},
		{&c.PostgresURL, "VITAE_POSTGRES_URL"},
		{&c.BlobDir, "VITAE_BLOB_DIR"},
		{&c.ContentBaseURL, "VITAE_CONTENT_BASE_URL"},
		{&c.AffindaBaseURL, "VITAE_AFFINDA_BASE_URL"},
		{&c.AffindaAPIKey, "AFFINDA_API_KEY"},
		{&c.IndeedBaseURL, "VITAE_INDEED_BASE_URL"},
		{&c.IndeedLinkBaseURL, "VITAE_INDEED_LINK_BASE_URL"},
	} {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks required settings for the selected backend.
func (c *Config) Validate() error {
	var missing []string

	if c.AffindaAPIKey == "" {
		missing = append(missing, "AFFINDA_API_KEY")
	}
	switch c.StoreBackend {
	case "sqlite":
	case "redis":
		if c.RedisURL == "" {
			missing = append(missing, "VITAE_REDIS_URL")
		}
	case "postgres":
		if c.PostgresURL == "" {
			missing = append(missing, "VITAE_POSTGRES_URL")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
