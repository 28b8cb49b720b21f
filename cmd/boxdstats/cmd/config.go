package cmd

import (
	"boxdstats/internal/components/pagecache"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/pipeline"
	"boxdstats/internal/scrapers/letterboxd"
	"boxdstats/pkg/configutil"
	"errors"
	"log/slog"
	"os"
	"time"
)

type PageCacheConfig struct {
	// Dir is where badger keeps the cache, the cache is off when it is empty.
	Dir      string `json:"dir"`
	TtlHours int    `json:"ttl_hours"`
}

type Config struct {
	BaseUrl           string          `json:"base_url"`
	Usernames         []string        `json:"usernames"`
	Database          string          `json:"database"`
	Timezone          string          `json:"timezone"`
	Workers           int             `json:"workers"`
	RequestsPerSecond float64         `json:"requests_per_second"`
	TimeoutSeconds    int             `json:"timeout_seconds"`
	Retries           int             `json:"retries"`
	CloudflareBypass  bool            `json:"cloudflare_bypass"`
	PageCache         PageCacheConfig `json:"page_cache"`
	// Cron is the schedule of the daemon in the standard 5 field format.
	Cron      string           `json:"cron"`
	TopN      int              `json:"top_n"`
	Telemetry telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	BaseUrl:           letterboxd.DefaultBaseUrl,
	Database:          "boxdstats.db",
	Workers:           pipeline.DefaultWorkers,
	RequestsPerSecond: 4,
	TimeoutSeconds:    30,
	Retries:           3,
	PageCache: PageCacheConfig{
		TtlHours: int(pagecache.DefaultLifetime / time.Hour),
	},
	Cron: "0 4 * * *",
	TopN: 10,
}

const (
	envDatabase = "BOXDSTATS_DB"
	envBaseUrl  = "BOXDSTATS_BASE_URL"
)

// loadConfig reads the config file if there is one, applies the environment overrides
// and fills in defaults. A missing file is not an error, every field has a default.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
	} else if err != nil {
		return Config{}, err
	}

	if db, ok := os.LookupEnv(envDatabase); ok && db != "" {
		cfg.Database = db
	}
	if baseUrl, ok := os.LookupEnv(envBaseUrl); ok && baseUrl != "" {
		cfg.BaseUrl = baseUrl
	}

	return configutil.WithDefaults(cfg, defaultConfig)
}

func (c Config) clientOptions() letterboxd.ClientOptions {
	return letterboxd.ClientOptions{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Retries:           c.Retries,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

func (c Config) pageCacheOptions() pagecache.Options {
	return pagecache.Options{
		Dir:      c.PageCache.Dir,
		Lifetime: time.Duration(c.PageCache.TtlHours) * time.Hour,
	}
}
