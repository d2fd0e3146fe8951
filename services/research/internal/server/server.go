package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"researchduo/internal/metrics"
	"researchduo/internal/ratelimit"
	"researchduo/internal/util"
	"researchduo/pkg/domain"
	"researchduo/services/research/internal/app"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Metrics *metrics.Metrics

	// Nil limiters disable limiting for that scope.
	AuthLimiter       ratelimit.Limiter
	GenerationLimiter ratelimit.Limiter

	TrustedProxies *util.TrustedProxies
	AllowedOrigins []string

	CookieName     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	SessionTTL     time.Duration
}

// Server exposes the research API.
type Server struct {
	app            *app.App
	metrics        *metrics.Metrics
	authLimiter    ratelimit.Limiter
	genLimiter     ratelimit.Limiter
	trusted        *util.TrustedProxies
	allowedOrigins []string
	cookie         cookieSettings
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	cookie, err := newCookieSettings(cfg.CookieName, cfg.CookieSecure, cfg.CookieSameSite, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:            cfg.App,
		metrics:        cfg.Metrics,
		authLimiter:    cfg.AuthLimiter,
		genLimiter:     cfg.GenerationLimiter,
		trusted:        cfg.TrustedProxies,
		allowedOrigins: cfg.AllowedOrigins,
		cookie:         cookie,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithSecurityHeaders(s.trusted, h)
	h = util.WithCORS(s.allowedOrigins, h)
	h = util.WithRequestLog(h)
	return util.WithRequestID(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("/metrics", promhttp.Handler())
	}

	// accounts
	s.mux.HandleFunc("/api/signup", s.handleSignup)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/guest-init", s.handleGuestInit)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.Handle("/api/me", s.authenticated(s.handleMe))

	// research pipeline
	s.mux.Handle("/api/research", s.authenticated(s.handleResearch))
	s.mux.Handle("/api/research/", s.authenticated(s.handleResearchByID))
	s.mux.Handle("/api/refine", s.authenticated(s.handleRefine))
	s.mux.Handle("/api/create-post", s.authenticated(s.handleCreatePost))
	s.mux.Handle("/api/history", s.authenticated(s.handleHistory))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) authenticated(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.identity(r)
		if !ok {
			s.audit(r, "research.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, identity)
	})
}

// identity resolves the caller once per request: session cookie first, then
// an Authorization bearer token.
func (s *Server) identity(r *http.Request) (domain.Identity, bool) {
	token, ok := s.sessionToken(r)
	if !ok {
		return domain.Identity{}, false
	}
	return s.app.Resolve(r.Context(), token)
}

func (s *Server) sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(s.cookie.name); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, true
		}
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

// allowRate applies limiter to key and writes a 429 when the quota is spent.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, scope, key string) bool {
	if limiter == nil {
		return true
	}
	ok, retryAfter := limiter.Allow(r.Context(), scope+"|"+key)
	if ok {
		return true
	}
	if s.metrics != nil {
		s.metrics.RecordRateLimited(scope)
	}
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "too many requests, please retry later")
	return false
}

// allowGeneration applies the generation quota of identity. Rejections are
// also counted against operation.
func (s *Server) allowGeneration(w http.ResponseWriter, r *http.Request, identity domain.Identity, operation string) bool {
	if s.allowRate(w, r, s.genLimiter, "generation", identity.String()) {
		return true
	}
	if s.metrics != nil {
		s.metrics.RecordTransition(operation, metrics.OutcomeRejected)
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps core errors to status codes. 5xx bodies stay generic.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrIdentityDenied):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, app.ErrRecordNotFound.Error())
	case errors.Is(err, app.ErrTopicRequired),
		errors.Is(err, app.ErrFeedbackRequired),
		errors.Is(err, app.ErrInvalidStep):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, "failed to generate content")
	case errors.Is(err, app.ErrPersistenceFailed):
		writeError(w, http.StatusInternalServerError, app.ErrPersistenceFailed.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
