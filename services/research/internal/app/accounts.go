package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"researchduo/internal/util"
	"researchduo/pkg/auth"
	"researchduo/pkg/domain"
	"researchduo/pkg/store"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// SignUp registers a user. It does not start a session; the client logs in
// afterwards.
func (a *App) SignUp(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrUsernameAndPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return domain.User{}, ErrInvalidUsername
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login checks credentials and opens a user session.
func (a *App) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, "", ErrUsernameAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(domain.UserIdentity(user.ID))
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// GuestInit keeps an existing guest identity, or opens a session for a new
// guest. token is empty when the current session is reused.
func (a *App) GuestInit(current domain.Identity) (domain.Identity, string, error) {
	if current.Valid() && current.IsGuest() {
		return current, "", nil
	}
	guest := domain.GuestIdentity(uuid.NewString())
	token, err := a.sessions.NewSession(guest)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("issue guest session: %w", err)
	}
	return guest, token, nil
}

// Resolve maps a session token to its identity. User sessions whose account
// no longer exists are denied.
func (a *App) Resolve(ctx context.Context, token string) (domain.Identity, bool) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, false
	}
	identity, ok, err := a.sessions.ResolveSession(token)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("resolve session failed", "err", err)
		return domain.Identity{}, false
	}
	if !ok {
		return domain.Identity{}, false
	}
	if identity.Kind == domain.IdentityUser {
		_, found, err := a.store.GetUserByID(ctx, identity.ID)
		if err != nil {
			util.LoggerFromContext(ctx).Warn("resolve session user failed", "err", err)
			return domain.Identity{}, false
		}
		if !found {
			return domain.Identity{}, false
		}
	}
	return identity, true
}

// Logout ends the session behind token. Unknown tokens are not an error.
func (a *App) Logout(token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return a.sessions.DeleteSession(token)
}

// Profile describes the current identity for the client.
type Profile struct {
	Kind     domain.IdentityKind `json:"kind"`
	ID       string              `json:"id"`
	Username string              `json:"username,omitempty"`
}

// Me returns the profile of identity.
func (a *App) Me(ctx context.Context, identity domain.Identity) (Profile, error) {
	if !identity.Valid() {
		return Profile{}, ErrIdentityDenied
	}
	p := Profile{Kind: identity.Kind, ID: identity.ID}
	if identity.IsGuest() {
		return p, nil
	}
	user, ok, err := a.store.GetUserByID(ctx, identity.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return Profile{}, ErrIdentityDenied
	}
	p.Username = user.Username
	return p, nil
}
