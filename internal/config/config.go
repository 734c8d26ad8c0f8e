// Package config loads agent and relay settings from TOML or YAML files,
// picked by extension, with environment overrides for the relay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAddr        = "HUDDLE_ADDR"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvGeminiKey   = "GEMINI_API_KEY"
)

var ErrUnknownFormat = errors.New("unknown config format")

type AgentConfig struct {
	Relay             string `toml:"relay" yaml:"relay"`
	Discover          bool   `toml:"discover" yaml:"discover"`
	DiscoverTimeoutMS int    `toml:"discover_timeout_ms" yaml:"discover_timeout_ms"`
	Profile           string `toml:"profile" yaml:"profile"`
	IdentityPath      string `toml:"identity_path" yaml:"identity_path"`
	LogFile           string `toml:"log_file" yaml:"log_file"`
	DebounceMS        int    `toml:"debounce_ms" yaml:"debounce_ms"`
	EchoGraceMS       int    `toml:"echo_grace_ms" yaml:"echo_grace_ms"`
	JitsiBase         string `toml:"jitsi_base" yaml:"jitsi_base"`
}

func DefaultAgent() AgentConfig {
	return AgentConfig{
		Relay:             "localhost:8080",
		DiscoverTimeoutMS: 3000,
		Profile:           "default",
		IdentityPath:      "huddle-identity.db",
		LogFile:           "huddle-agent.log",
		DebounceMS:        500,
		EchoGraceMS:       50,
		JitsiBase:         "https://meet.jit.si",
	}
}

func (c AgentConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c AgentConfig) EchoGrace() time.Duration {
	return time.Duration(c.EchoGraceMS) * time.Millisecond
}

func (c AgentConfig) DiscoverTimeout() time.Duration {
	return time.Duration(c.DiscoverTimeoutMS) * time.Millisecond
}

func (c AgentConfig) Validate() error {
	c.Relay = strings.TrimSpace(c.Relay)
	if c.Relay == "" && !c.Discover {
		return fmt.Errorf("relay must be set unless discover is enabled")
	}
	if c.DebounceMS <= 0 {
		return fmt.Errorf("debounce_ms must be positive, got %d", c.DebounceMS)
	}
	if c.EchoGraceMS <= 0 {
		return fmt.Errorf("echo_grace_ms must be positive, got %d", c.EchoGraceMS)
	}
	if c.Discover && c.DiscoverTimeoutMS <= 0 {
		return fmt.Errorf("discover_timeout_ms must be positive, got %d", c.DiscoverTimeoutMS)
	}
	if strings.TrimSpace(c.Profile) == "" {
		return fmt.Errorf("profile must not be empty")
	}
	if strings.TrimSpace(c.IdentityPath) == "" {
		return fmt.Errorf("identity_path must not be empty")
	}
	return nil
}

// LoadAgent reads path over the defaults. An empty path yields the defaults.
func LoadAgent(path string) (AgentConfig, error) {
	cfg := DefaultAgent()
	if err := decodeFile(path, &cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("load agent config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AgentConfig{}, fmt.Errorf("agent config: %w", err)
	}
	return cfg, nil
}

type Store string

const (
	StoreMemory   Store = "memory"
	StoreSQLite   Store = "sqlite"
	StorePostgres Store = "postgres"
)

type RelayConfig struct {
	Addr            string `toml:"addr" yaml:"addr"`
	Store           Store  `toml:"store" yaml:"store"`
	SQLitePath      string `toml:"sqlite_path" yaml:"sqlite_path"`
	DatabaseURL     string `toml:"database_url" yaml:"database_url"`
	RedisAddr       string `toml:"redis_addr" yaml:"redis_addr"`
	FlushIntervalMS int    `toml:"flush_interval_ms" yaml:"flush_interval_ms"`
	SweepIntervalMS int    `toml:"sweep_interval_ms" yaml:"sweep_interval_ms"`
	RetentionHours  int    `toml:"retention_hours" yaml:"retention_hours"`
	SendQueue       int    `toml:"send_queue" yaml:"send_queue"`
	GeminiAPIKey    string `toml:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel     string `toml:"gemini_model" yaml:"gemini_model"`
	Announce        bool   `toml:"announce" yaml:"announce"`
	Instance        string `toml:"instance" yaml:"instance"`
}

func DefaultRelay() RelayConfig {
	return RelayConfig{
		Addr:            ":8080",
		Store:           StoreMemory,
		SQLitePath:      "huddle.db",
		FlushIntervalMS: 5000,
		SweepIntervalMS: int(time.Hour / time.Millisecond),
		RetentionHours:  24,
		SendQueue:       256,
		GeminiModel:     "gemini-1.5-flash-latest",
		Instance:        "huddle-relay",
	}
}

func (c RelayConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

func (c RelayConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}

func (c RelayConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c RelayConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr must not be empty")
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite_path must be set for the sqlite store")
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("database_url must be set for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, sqlite or postgres)", c.Store)
	}
	if c.FlushIntervalMS <= 0 {
		return fmt.Errorf("flush_interval_ms must be positive, got %d", c.FlushIntervalMS)
	}
	if c.SweepIntervalMS <= 0 {
		return fmt.Errorf("sweep_interval_ms must be positive, got %d", c.SweepIntervalMS)
	}
	if c.RetentionHours <= 0 {
		return fmt.Errorf("retention_hours must be positive, got %d", c.RetentionHours)
	}
	if c.SendQueue <= 0 {
		return fmt.Errorf("send_queue must be positive, got %d", c.SendQueue)
	}
	return nil
}

// LoadRelay reads path over the defaults and then applies environment
// overrides from lookup (os.LookupEnv when nil).
func LoadRelay(path string, lookup func(string) (string, bool)) (RelayConfig, error) {
	cfg := DefaultRelay()
	if err := decodeFile(path, &cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("load relay config: %w", err)
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.applyEnv(lookup)
	if err := cfg.Validate(); err != nil {
		return RelayConfig{}, fmt.Errorf("relay config: %w", err)
	}
	return cfg, nil
}

func (c *RelayConfig) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := nonEmpty(lookup, EnvAddr); ok {
		c.Addr = normalizeAddr(v)
	}
	if v, ok := nonEmpty(lookup, EnvRedisAddr); ok {
		c.RedisAddr = v
	}
	if v, ok := nonEmpty(lookup, EnvDatabaseURL); ok {
		c.DatabaseURL = v
		if c.Store == StoreMemory {
			c.Store = StorePostgres
		}
	}
	if v, ok := nonEmpty(lookup, EnvGeminiKey); ok {
		c.GeminiAPIKey = v
	}
}

// normalizeAddr accepts a bare port, as PORT-style variables usually carry.
func normalizeAddr(v string) string {
	if _, err := strconv.Atoi(v); err == nil {
		return ":" + v
	}
	return v
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// LoadDotenv loads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func decodeFile(path string, into any) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, into); err != nil {
			return err
		}
		return nil
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, into); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
