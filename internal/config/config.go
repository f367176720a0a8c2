package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MISSIONS_"

type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Postgres Postgres `koanf:"postgres"`
	Redis    Redis    `koanf:"redis"`
	Realtime Realtime `koanf:"realtime"`
	Bus      Bus      `koanf:"bus"`
	Operator Operator `koanf:"operator"`
}

type HTTP struct {
	Port string `koanf:"port"`
}

type Log struct {
	Level string `koanf:"level"`
}

type Postgres struct {
	Address  string `koanf:"address"`
	Port     string `koanf:"port"`
	DB       string `koanf:"db"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// DSN is the lib/pq connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.Username, p.Password),
		Host:     p.Address + ":" + p.Port,
		Path:     "/" + p.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Redis is optional; an empty URL disables the cross-node relay.
type Redis struct {
	URL string `koanf:"url"`
}

type Realtime struct {
	Heartbeat time.Duration `koanf:"heartbeat"`
	Buffer    int           `koanf:"buffer"`
}

type Bus struct {
	Buffer int `koanf:"buffer"`
}

type Operator struct {
	Workers int `koanf:"workers"`
}

// defaults match the docker compose setup.
func defaults() map[string]any {
	return map[string]any{
		"http.port":          "9446",
		"log.level":          "info",
		"postgres.address":   "localhost",
		"postgres.port":      "5433",
		"postgres.db":        "postgres",
		"postgres.username":  "postgres",
		"postgres.password":  "testpassword",
		"redis.url":          "",
		"realtime.heartbeat": "30s",
		"realtime.buffer":    64,
		"bus.buffer":         256,
		"operator.workers":   4,
	}
}

// Load layers defaults, the optional YAML file at path, then MISSIONS_*
// environment variables. Nested keys use a double underscore, e.g.
// MISSIONS_POSTGRES__ADDRESS.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(key), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	if c.Realtime.Heartbeat <= 0 {
		return fmt.Errorf("realtime.heartbeat must be positive, got %s", c.Realtime.Heartbeat)
	}
	if c.Operator.Workers < 1 {
		return fmt.Errorf("operator.workers must be at least 1, got %d", c.Operator.Workers)
	}
	return nil
}
