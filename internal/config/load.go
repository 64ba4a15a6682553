// internal/config/load.go
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment overrides. A .env file next to the config is loaded
// first; variables already set in the process win.
const (
	EnvSourceEndpoint = "GATEWAY_SOURCE_ENDPOINT"
	EnvSinkURL        = "GATEWAY_SINK_URL"
	EnvWebListen      = "GATEWAY_WEB_LISTEN"
	EnvInfluxToken    = "GATEWAY_INFLUX_TOKEN"
	EnvLogLevel       = "GATEWAY_LOG_LEVEL"
)

// Load parses a YAML or TOML file (by extension), applies defaults and
// environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}

	cfg := &Config{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(b), cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	default:
		return nil, errors.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "config: defaults")
	}
	if len(cfg.Poll.Schedule) == 0 {
		cfg.Poll.Schedule = DefaultSchedule()
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "config: load %s", envFile)
	}
	applyEnv(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Source.Endpoint, EnvSourceEndpoint)
	set(&cfg.Sink.URL, EnvSinkURL)
	set(&cfg.Web.Listen, EnvWebListen)
	set(&cfg.Influx.Token, EnvInfluxToken)
	set(&cfg.Log.Level, EnvLogLevel)
}
