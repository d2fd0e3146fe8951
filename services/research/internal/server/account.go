package server

import (
	"errors"
	"net/http"

	"researchduo/internal/util"
	"researchduo/pkg/auth"
	"researchduo/pkg/domain"
	"researchduo/services/research/internal/app"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

type guestResponse struct {
	Success bool   `json:"success"`
	GuestID string `json:"guestId"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "auth", r.URL.Path+"|"+s.clientIP(r)) {
		s.audit(r, "research.signup", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "research.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.SignUp(r.Context(), req.Username, req.Password)
	if err != nil {
		s.audit(r, "research.signup", "fail", "reason", err.Error())
		writeAccountError(w, err)
		return
	}
	s.audit(r, "research.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, userResponse{Success: true, UserID: user.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "auth", r.URL.Path+"|"+s.clientIP(r)) {
		s.audit(r, "research.login", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "research.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.audit(r, "research.login", "fail", "reason", err.Error())
		writeAccountError(w, err)
		return
	}
	// A login replaces whatever session (usually a guest one) the client had.
	if previous, ok := s.sessionToken(r); ok {
		if err := s.app.Logout(previous); err != nil {
			s.audit(r, "research.login", "warn", "reason", "revoke_previous_session_failed")
		}
	}
	s.cookie.set(w, token)
	s.audit(r, "research.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, userResponse{Success: true, UserID: user.ID})
}

func (s *Server) handleGuestInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "auth", r.URL.Path+"|"+s.clientIP(r)) {
		s.audit(r, "research.guest_init", "rate_limited")
		return
	}
	current, _ := s.identity(r)
	guest, token, err := s.app.GuestInit(current)
	if err != nil {
		s.audit(r, "research.guest_init", "fail", "reason", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if token != "" {
		s.cookie.set(w, token)
	}
	s.audit(r, "research.guest_init", "success", "guest_id", guest.ID, "reused", token == "")
	writeJSON(w, http.StatusOK, guestResponse{Success: true, GuestID: guest.ID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := s.sessionToken(r)
	if !ok {
		s.audit(r, "research.logout", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "research.logout", "fail", "reason", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.cookie.clear(w)
	s.audit(r, "research.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	profile, err := s.app.Me(r.Context(), identity)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trusted)
}

func writeAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrUsernameAndPasswordRequired),
		errors.Is(err, app.ErrInvalidUsername),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordWeak):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
