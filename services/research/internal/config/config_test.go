package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, `
storeDriver: memory
redisAddr: localhost:6379
generation:
  model: gemini-2.5-flash
`)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("PORT", "8088")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8088" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Generation.APIKey != "from-env" || cfg.Generation.Provider != "gemini" {
		t.Fatalf("unexpected generation config %+v", cfg.Generation)
	}
	if cfg.SessionStrategy != "redis" || cfg.SessionCookieName != "researchduo_session" {
		t.Fatalf("unexpected session defaults %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadUsesResearchConfigEnv(t *testing.T) {
	path := writeConfig(t, "storeDriver: memory\nredisAddr: localhost:6379\n")
	t.Setenv("RESEARCH_CONFIG", path)
	if _, err := Load(""); err != nil {
		t.Fatalf("load via RESEARCH_CONFIG: %v", err)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "postgres without dsn", body: "redisAddr: r:6379\n", want: "databaseURL"},
		{name: "redis sessions without addr", body: "storeDriver: memory\n", want: "redisAddr"},
		{name: "short jwt secret", body: "storeDriver: memory\nsessionStrategy: jwt\nsessionSecret: short\n", want: "sessionSecret"},
		{name: "samesite none without secure", body: "storeDriver: memory\nredisAddr: r:6379\nsessionCookieSameSite: none\n", want: "sessionCookieSecure"},
		{name: "unknown samesite", body: "storeDriver: memory\nredisAddr: r:6379\nsessionCookieSameSite: sideways\n", want: "sessionCookieSameSite"},
		{name: "negative generation timeout", body: "storeDriver: memory\nredisAddr: r:6379\ngeneration:\n  timeout: -5s\n", want: "generation.timeout"},
		{name: "bad ttl", body: "storeDriver: memory\nredisAddr: r:6379\nsessionTTL: soon\n", want: "sessionTTL"},
		{name: "negative limit", body: "storeDriver: memory\nredisAddr: r:6379\nauthRateLimitPerMinute: -1\n", want: "rate limits"},
		{name: "unknown driver", body: "storeDriver: sqlite\n", want: "storeDriver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseSessionTTL(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 24*time.Hour {
		t.Fatalf("default ttl = %s, %v", d, err)
	}
	if d, err := ParseSessionTTL("90m"); err != nil || d != 90*time.Minute {
		t.Fatalf("ttl = %s, %v", d, err)
	}
	if _, err := ParseSessionTTL("-1h"); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestParseGenerationTimeout(t *testing.T) {
	if d, err := ParseGenerationTimeout(""); err != nil || d != 0 {
		t.Fatalf("empty timeout = %s, %v", d, err)
	}
	if d, err := ParseGenerationTimeout("45s"); err != nil || d != 45*time.Second {
		t.Fatalf("timeout = %s, %v", d, err)
	}
	for _, raw := range []string{"-1s", "0s", "later"} {
		if _, err := ParseGenerationTimeout(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"":        http.SameSiteLaxMode,
		"lax":     http.SameSiteLaxMode,
		" Strict": http.SameSiteStrictMode,
		"NONE":    http.SameSiteNoneMode,
	}
	for raw, want := range cases {
		got, err := ParseSameSite(raw)
		if err != nil || got != want {
			t.Fatalf("ParseSameSite(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseSameSite("sideways"); err == nil {
		t.Fatalf("expected error for unknown value")
	}
}
