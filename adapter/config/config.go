// Package config loads engine settings from defaults, an optional file and
// GEDBQL_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/logging"
)

// EnvPrefix prefixes the environment variables read by [Load]. Nested keys
// join with underscores, so log.level is read from GEDBQL_LOG_LEVEL.
const EnvPrefix = "GEDBQL"

// Config holds engine settings.
type Config struct {
	// LockTimeout bounds every lock wait. Negative values wait until the
	// statement context is done.
	LockTimeout time.Duration `gedbql:"lock_timeout"`
	// BreadcrumbLimit is the number of tokens a tokenizer keeps for
	// diagnostics. Non-positive values keep every token.
	BreadcrumbLimit int `gedbql:"breadcrumb_limit"`
	// PatternCacheSize is the number of compiled like patterns kept.
	PatternCacheSize int            `gedbql:"pattern_cache_size"`
	Log              logging.Config `gedbql:"log"`
	Metrics          Metrics        `gedbql:"metrics"`
	Storage          Storage        `gedbql:"storage"`
}

// Metrics configures the lock metrics.
type Metrics struct {
	Namespace string `gedbql:"namespace"`
}

// Storage configures the in-memory document store.
type Storage struct {
	PageSize              int     `gedbql:"page_size"`
	CorruptAlertThreshold float64 `gedbql:"corrupt_alert_threshold"`
	// Datafile keeps committed documents on disk. Empty keeps them in
	// memory only.
	Datafile string `gedbql:"datafile"`
}

var defaults = map[string]any{
	"lock_timeout":                    "5s",
	"breadcrumb_limit":                64,
	"pattern_cache_size":              256,
	"log.level":                       "INFO",
	"log.format":                      "text",
	"log.add_source":                  false,
	"metrics.namespace":               "gedbql",
	"storage.page_size":               64,
	"storage.corrupt_alert_threshold": 0.1,
	"storage.datafile":                "",
}

// Default returns the default settings.
func Default() Config {
	cfg, err := load(viper.New())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the settings. An empty path skips the file. Environment
// variables override the file, which overrides the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %q: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	// Defaults make every key known, which AutomaticEnv needs for
	// AllSettings to see the environment.
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return FromMap(v.AllSettings())
}

// FromMap decodes settings from a nested map, such as one read from a
// document. Values are weakly typed and durations may be strings.
func FromMap(m map[string]any) (Config, error) {
	var cfg Config
	if err := decoder.NewDecoder().Decode(m, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Settings returns c as the nested map [FromMap] reads.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"lock_timeout":       c.LockTimeout.String(),
		"breadcrumb_limit":   c.BreadcrumbLimit,
		"pattern_cache_size": c.PatternCacheSize,
		"log": map[string]any{
			"level":      c.Log.Level,
			"format":     c.Log.Format,
			"add_source": c.Log.AddSource,
		},
		"metrics": map[string]any{
			"namespace": c.Metrics.Namespace,
		},
		"storage": map[string]any{
			"page_size":               c.Storage.PageSize,
			"corrupt_alert_threshold": c.Storage.CorruptAlertThreshold,
			"datafile":                c.Storage.Datafile,
		},
	}
}
