package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file; RESEARCH_CONFIG overrides it.
const ConfigPath = "config.yaml"

// GenerationConfig selects the LLM provider.
type GenerationConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseURL"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                         string           `yaml:"port"`
	LogLevel                     string           `yaml:"logLevel"`
	StoreDriver                  string           `yaml:"storeDriver"`
	DatabaseURL                  string           `yaml:"databaseURL"`
	RedisAddr                    string           `yaml:"redisAddr"`
	RedisPassword                string           `yaml:"redisPassword"`
	SessionStrategy              string           `yaml:"sessionStrategy"`
	SessionSecret                string           `yaml:"sessionSecret"`
	SessionTTL                   string           `yaml:"sessionTTL"`
	SessionCookieName            string           `yaml:"sessionCookieName"`
	SessionCookieSecure          bool             `yaml:"sessionCookieSecure"`
	SessionCookieSameSite        string           `yaml:"sessionCookieSameSite"`
	AllowedOrigins               []string         `yaml:"allowedOrigins"`
	TrustedProxyCIDRs            []string         `yaml:"trustedProxyCidrs"`
	Generation                   GenerationConfig `yaml:"generation"`
	AuthRateLimitPerMinute       int              `yaml:"authRateLimitPerMinute"`
	GenerationRateLimitPerMinute int              `yaml:"generationRateLimitPerMinute"`
}

// Load reads config from path (defaults to RESEARCH_CONFIG, then config.yaml),
// applies environment overrides and validates the result.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("RESEARCH_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"PORT", &cfg.Port},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"STORE_DRIVER", &cfg.StoreDriver},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"REDIS_ADDR", &cfg.RedisAddr},
		{"REDIS_PASSWORD", &cfg.RedisPassword},
		{"SESSION_STRATEGY", &cfg.SessionStrategy},
		{"SESSION_SECRET", &cfg.SessionSecret},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"GENERATION_PROVIDER", &cfg.Generation.Provider},
		{"GENERATION_BASE_URL", &cfg.Generation.BaseURL},
		{"GENERATION_MODEL", &cfg.Generation.Model},
		{"GENERATION_TIMEOUT", &cfg.Generation.Timeout},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	// GEMINI_API_KEY is what the hosted setup exports; GENERATION_API_KEY wins.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("GENERATION_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitList(v)
	}
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SessionCookieSecure = b
		}
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("GENERATION_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerationRateLimitPerMinute = n
		}
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "5000"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "postgres"
	}
	if cfg.SessionStrategy == "" {
		cfg.SessionStrategy = "redis"
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "researchduo_session"
	}
	if cfg.SessionCookieSameSite == "" {
		cfg.SessionCookieSameSite = "lax"
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "gemini"
	}
}

func validateConfig(cfg FileConfig) error {
	switch cfg.StoreDriver {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres store (set DATABASE_URL)")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	switch cfg.SessionStrategy {
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis session strategy")
		}
	case "jwt":
		if len(strings.TrimSpace(cfg.SessionSecret)) < 32 {
			return errors.New("config: sessionSecret must be at least 32 characters for the jwt session strategy")
		}
	default:
		return fmt.Errorf("config: unknown sessionStrategy %q", cfg.SessionStrategy)
	}
	sameSite, err := ParseSameSite(cfg.SessionCookieSameSite)
	if err != nil {
		return err
	}
	if sameSite == http.SameSiteNoneMode && !cfg.SessionCookieSecure {
		return errors.New("config: sessionCookieSameSite=none requires sessionCookieSecure")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseGenerationTimeout(cfg.Generation.Timeout); err != nil {
		return err
	}
	if cfg.AuthRateLimitPerMinute < 0 || cfg.GenerationRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL; empty means 24h.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("invalid sessionTTL duration: must be positive")
	}
	return dur, nil
}

// ParseGenerationTimeout parses generation.timeout; empty leaves the provider default.
func ParseGenerationTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid generation.timeout duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("invalid generation.timeout duration: must be positive")
	}
	return dur, nil
}

// ParseSameSite maps sessionCookieSameSite to the cookie attribute. Empty
// means lax.
func ParseSameSite(raw string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: invalid sessionCookieSameSite %q", raw)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
