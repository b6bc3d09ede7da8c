package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Engine    EngineConfig    `yaml:"engine"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	Lifetime time.Duration `yaml:"lifetime"`
}

type ProviderConfig struct {
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
}

type AuthConfig struct {
	Discord     ProviderConfig `yaml:"discord"`
	Google      ProviderConfig `yaml:"google"`
	AdminEmails []string       `yaml:"admin_emails"`
}

// EngineConfig holds the bracket engine's tunables.
type EngineConfig struct {
	ReadyGrace        time.Duration `yaml:"ready_grace"`
	VetoBuffer        time.Duration `yaml:"veto_buffer"`
	VetoTurn          time.Duration `yaml:"veto_turn"`
	TurnTimeoutPolicy string        `yaml:"turn_timeout_policy"`
	DefaultMapPool    []string      `yaml:"default_map_pool"`
	DefaultBestOf     int           `yaml:"default_best_of"`
	RetryAttempts     int           `yaml:"retry_attempts"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "op_bracket.db"},
		Session:  SessionConfig{Lifetime: 24 * time.Hour},
		Engine: EngineConfig{
			ReadyGrace:        bracket.DefaultReadyGrace,
			VetoTurn:          bracket.DefaultTurnDuration,
			TurnTimeoutPolicy: string(bracket.TimeoutAutoBan),
			DefaultBestOf:     1,
			RetryAttempts:     3,
		},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
	}
}

// Load reads .env, then the YAML file at path if there is one, then environment
// overrides. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
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

func (c *Config) applyEnv() error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DISCORD_KEY"); v != "" {
		c.Auth.Discord.Key = v
	}
	if v := os.Getenv("DISCORD_SECRET"); v != "" {
		c.Auth.Discord.Secret = v
	}
	if v := os.Getenv("DISCORD_CALLBACK_URL"); v != "" {
		c.Auth.Discord.CallbackURL = v
	}
	if v := os.Getenv("GOOGLE_KEY"); v != "" {
		c.Auth.Google.Key = v
	}
	if v := os.Getenv("GOOGLE_SECRET"); v != "" {
		c.Auth.Google.Secret = v
	}
	if v := os.Getenv("GOOGLE_CALLBACK_URL"); v != "" {
		c.Auth.Google.CallbackURL = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Auth.AdminEmails = splitList(v)
	}
	if v := os.Getenv("TURN_TIMEOUT_POLICY"); v != "" {
		c.Engine.TurnTimeoutPolicy = v
	}
	if v := os.Getenv("DEFAULT_MAP_POOL"); v != "" {
		c.Engine.DefaultMapPool = splitList(v)
	}

	durations := map[string]*time.Duration{
		"SESSION_LIFETIME": &c.Session.Lifetime,
		"READY_GRACE":      &c.Engine.ReadyGrace,
		"VETO_BUFFER":      &c.Engine.VetoBuffer,
		"VETO_TURN":        &c.Engine.VetoTurn,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"DEFAULT_BEST_OF": &c.Engine.DefaultBestOf,
		"RETRY_ATTEMPTS":  &c.Engine.RetryAttempts,
		"RATELIMIT_BURST": &c.RateLimit.Burst,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("RATELIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATELIMIT_RPS value: %w", err)
		}
		c.RateLimit.RPS = f
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := bracket.ParseTimeoutPolicy(c.Engine.TurnTimeoutPolicy); err != nil {
		return err
	}
	if !bracket.ValidBestOf(c.Engine.DefaultBestOf) {
		return fmt.Errorf("default_best_of must be 1, 3 or 5, got %d", c.Engine.DefaultBestOf)
	}
	if c.Engine.ReadyGrace <= 0 || c.Engine.VetoTurn <= 0 || c.Engine.VetoBuffer < 0 {
		return fmt.Errorf("engine durations must be positive")
	}
	if c.Engine.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	return nil
}

// Policy returns the engine policy the config describes.
func (c *Config) Policy() bracket.Policy {
	timeout, _ := bracket.ParseTimeoutPolicy(c.Engine.TurnTimeoutPolicy)
	return bracket.Policy{
		ReadyGrace:   c.Engine.ReadyGrace,
		VetoBuffer:   c.Engine.VetoBuffer,
		TurnDuration: c.Engine.VetoTurn,
		TurnTimeout:  timeout,
	}
}

// IsAdminEmail reports whether email is listed as an admin, ignoring case.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.Auth.AdminEmails {
		if strings.EqualFold(e, email) {
			return email != ""
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
