package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding an optional YAML config path.
const PathEnv = "CHATBOT_CONFIG"

// Config aggregates every setting of the service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

// SessionConfig holds the limits handed to the session store.
type SessionConfig struct {
	MaxSessions   int           `yaml:"max_sessions"`
	Timeout       time.Duration `yaml:"timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	HistoryLimit  int           `yaml:"history_limit"`
}

// LogConfig selects the zap level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			AllowedOrigins:    []string{"*"},
		},
		Session: SessionConfig{
			MaxSessions:   100,
			Timeout:       4 * time.Hour,
			SweepInterval: 30 * time.Minute,
			HistoryLimit:  10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing default .env is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CHATBOT_CONFIG), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(PathEnv))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if addr, ok, err := parseAddrEnv("PORT"); err != nil {
		return err
	} else if ok {
		c.Server.Addr = addr
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	maxSessions, err := parseOptionalIntEnv("CHATBOT_MAX_SESSIONS")
	if err != nil {
		return err
	}
	if maxSessions != nil {
		c.Session.MaxSessions = *maxSessions
	}

	historyLimit, err := parseOptionalIntEnv("CHATBOT_HISTORY_LIMIT")
	if err != nil {
		return err
	}
	if historyLimit != nil {
		c.Session.HistoryLimit = *historyLimit
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CHATBOT_SESSION_TIMEOUT", &c.Session.Timeout},
		{"CHATBOT_SWEEP_INTERVAL", &c.Session.SweepInterval},
		{"SERVER_READ_HEADER_TIMEOUT", &c.Server.ReadHeaderTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := parseOptionalDurationEnv(d.key)
		if err != nil {
			return err
		}
		if v != nil {
			*d.dst = *v
		}
	}

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)
	return nil
}

// Validate rejects limits the session store cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server address is required")
	case c.Session.MaxSessions <= 0:
		return fmt.Errorf("max sessions must be positive, got %d", c.Session.MaxSessions)
	case c.Session.Timeout <= 0:
		return fmt.Errorf("session timeout must be positive, got %s", c.Session.Timeout)
	case c.Session.SweepInterval <= 0:
		return fmt.Errorf("sweep interval must be positive, got %s", c.Session.SweepInterval)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// parseAddrEnv accepts a bare port or a host:port listen address.
func parseAddrEnv(key string) (string, bool, error) {
	port := strings.TrimSpace(os.Getenv(key))
	if port == "" {
		return "", false, nil
	}
	if strings.Contains(port, " ") {
		return "", false, fmt.Errorf("invalid %s value: %q", key, port)
	}
	if strings.Contains(port, ":") {
		return port, true, nil
	}
	return ":" + port, true, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
