package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "HUDDLE_LOG_LEVEL"
	EnvLogNoColor = "HUDDLE_LOG_NOCOLOR"
	EnvLogJSON    = "HUDDLE_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
	// ProfileFile is for processes whose terminal belongs to a UI.
	ProfileFile
)

type Config struct {
	Level   zerolog.Level
	NoColor bool
	JSON    bool
	Out     io.Writer
}

var (
	configureOnce sync.Once
	root          zerolog.Logger
)

func ConfigureRuntime(app string) zerolog.Logger {
	return Configure(ProfileRuntime, app, os.Stdout)
}

func ConfigureFile(app string, out io.Writer) zerolog.Logger {
	return Configure(ProfileFile, app, out)
}

func ConfigureTests() zerolog.Logger {
	return Configure(ProfileTest, "test", os.Stderr)
}

// Configure installs the process-wide logger once; later calls return it
// unchanged.
func Configure(profile Profile, app string, out io.Writer) zerolog.Logger {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		cfg.Out = out
		applyEnvOverrides(&cfg)
		root = New(cfg).With().Str("app", app).Logger()
		zerolog.SetGlobalLevel(cfg.Level)
		log.Logger = root
	})
	return root
}

func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

// Component derives a child of the global logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	case ProfileFile:
		return Config{Level: zerolog.InfoLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
