package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestDefault() {
	cfg := Default()
	s.Equal(5*time.Second, cfg.LockTimeout)
	s.Equal(64, cfg.BreadcrumbLimit)
	s.Equal(256, cfg.PatternCacheSize)
	s.Equal("INFO", cfg.Log.Level)
	s.Equal("text", cfg.Log.Format)
	s.False(cfg.Log.AddSource)
	s.Equal("gedbql", cfg.Metrics.Namespace)
	s.Equal(64, cfg.Storage.PageSize)
	s.Equal(0.1, cfg.Storage.CorruptAlertThreshold)
	s.Empty(cfg.Storage.Datafile)
}

func (s *ConfigTestSuite) TestLoadFile() {
	path := filepath.Join(s.T().TempDir(), "gedbql.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
lock_timeout: 250ms
log:
  level: debug
  format: json
storage:
  page_size: 8
`), 0o600))

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(250*time.Millisecond, cfg.LockTimeout)
	s.Equal("debug", cfg.Log.Level)
	s.Equal("json", cfg.Log.Format)
	s.Equal(8, cfg.Storage.PageSize)
	s.Equal(0.1, cfg.Storage.CorruptAlertThreshold)
	s.Equal("gedbql", cfg.Metrics.Namespace)
}

func (s *ConfigTestSuite) TestEnvironment() {
	s.T().Setenv("GEDBQL_LOCK_TIMEOUT", "2s")
	s.T().Setenv("GEDBQL_LOG_LEVEL", "ERROR")
	s.T().Setenv("GEDBQL_METRICS_NAMESPACE", "db")
	s.T().Setenv("GEDBQL_STORAGE_DATAFILE", "/var/lib/gedbql/data.db")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(2*time.Second, cfg.LockTimeout)
	s.Equal("ERROR", cfg.Log.Level)
	s.Equal("db", cfg.Metrics.Namespace)
	s.Equal("/var/lib/gedbql/data.db", cfg.Storage.Datafile)
}

func (s *ConfigTestSuite) TestLoadErrors() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.ErrorContains(err, "reading config")

	s.T().Setenv("GEDBQL_BREADCRUMB_LIMIT", "many")
	_, err = Load("")
	s.ErrorContains(err, "decoding config")
}

func (s *ConfigTestSuite) TestFromMap() {
	cfg, err := FromMap(map[string]any{
		"lock_timeout":     "1m",
		"breadcrumb_limit": "10",
		"log":              map[string]any{"add_source": "true"},
	})
	s.Require().NoError(err)
	s.Equal(time.Minute, cfg.LockTimeout)
	s.Equal(10, cfg.BreadcrumbLimit)
	s.True(cfg.Log.AddSource)
	s.Empty(cfg.Log.Level)
}

func (s *ConfigTestSuite) TestSettings() {
	cfg := Default()
	cfg.LockTimeout = 1500 * time.Millisecond
	cfg.Storage.PageSize = 8

	settings := cfg.Settings()
	s.Equal("1.5s", settings["lock_timeout"])
	s.Equal(8, settings["storage"].(map[string]any)["page_size"])

	back, err := FromMap(settings)
	s.Require().NoError(err)
	s.Equal(cfg, back)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
