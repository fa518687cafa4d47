package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mgomes/dotbf/bf"
)

const configEnvVar = "DOTBF_CONFIG"

// Config is the dotbf.toml file.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	REPL   REPLConfig   `toml:"repl"`
	Log    LogConfig    `toml:"log"`
}

type EngineConfig struct {
	TapeSize  int `toml:"tape_size"`
	StepQuota int `toml:"step_quota"`
}

// REPLConfig applies only to `dotbf repl`. Its step quota keeps a stray
// infinite loop from freezing the terminal; an explicit 0 lifts it. A tape
// window of 0 shows only the cell under the pointer.
type REPLConfig struct {
	StepQuota  int `toml:"step_quota"`
	TapeWindow int `toml:"tape_window"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func defaultConfig() Config {
	return Config{
		Engine: EngineConfig{TapeSize: bf.DefaultTapeSize},
		REPL:   REPLConfig{StepQuota: 1_000_000, TapeWindow: 6},
		Log:    LogConfig{Level: "warn", Format: "text"},
	}
}

// loadConfig reads the config file at path. An empty path falls back to
// $DOTBF_CONFIG, ./dotbf.toml and ~/.config/dotbf/config.toml in that
// order; when none exists the defaults are used.
func loadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		path = findDefaultConfig()
		if path == "" {
			return defaultConfig(), nil
		}
	}

	path = os.ExpandEnv(path)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("access config %s: %w", path, err)
	}

	// Keys missing from the file keep their defaults.
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func findDefaultConfig() string {
	candidates := []string{"dotbf.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "dotbf", "config.toml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Engine.TapeSize == 0 {
		c.Engine.TapeSize = bf.DefaultTapeSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Engine.TapeSize < 0 {
		return fmt.Errorf("engine.tape_size must not be negative (got %d)", c.Engine.TapeSize)
	}
	if c.Engine.StepQuota < 0 {
		return fmt.Errorf("engine.step_quota must not be negative (got %d)", c.Engine.StepQuota)
	}
	if c.REPL.StepQuota < 0 {
		return fmt.Errorf("repl.step_quota must not be negative (got %d)", c.REPL.StepQuota)
	}
	if c.REPL.TapeWindow < 0 {
		return fmt.Errorf("repl.tape_window must not be negative (got %d)", c.REPL.TapeWindow)
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

func (c Config) engineConfig(logger *slog.Logger) bf.Config {
	return bf.Config{
		TapeSize:  c.Engine.TapeSize,
		StepQuota: c.Engine.StepQuota,
		Logger:    logger,
	}
}

func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", name, err)
	}
	return level, nil
}

func newLogger(w io.Writer, cfg LogConfig, verbose bool) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
