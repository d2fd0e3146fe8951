package server

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

type cookieSettings struct {
	name     string
	secure   bool
	sameSite http.SameSite
	ttl      time.Duration
}

// newCookieSettings takes an already parsed SameSite; zero means lax.
func newCookieSettings(name string, secure bool, sameSite http.SameSite, ttl time.Duration) (cookieSettings, error) {
	c := cookieSettings{name: strings.TrimSpace(name), secure: secure, sameSite: sameSite, ttl: ttl}
	if c.name == "" {
		c.name = "researchduo_session"
	}
	if c.ttl <= 0 {
		c.ttl = 24 * time.Hour
	}
	if c.sameSite == 0 || c.sameSite == http.SameSiteDefaultMode {
		c.sameSite = http.SameSiteLaxMode
	}
	if c.sameSite == http.SameSiteNoneMode && !secure {
		return c, errors.New("SameSite=None session cookie requires Secure")
	}
	return c, nil
}

func (c cookieSettings) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		Expires:  time.Now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

func (c cookieSettings) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}
