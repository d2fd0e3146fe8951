package store

import (
	"context"
	"errors"

	"researchduo/pkg/domain"
)

var (
	// ErrRecordNotFound is returned by UpdateRecord when the id does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUsernameTaken is returned by CreateUser on a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidOwner is returned when a record would be created without a valid owner.
	ErrInvalidOwner = errors.New("record owner required")
)

// Store defines persistence operations for users and research records.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// research records
	CreateRecord(ctx context.Context, topic, rawReport string, owner domain.Identity) (domain.ResearchRecord, error)
	GetRecord(ctx context.Context, id string) (domain.ResearchRecord, bool, error)
	UpdateRecord(ctx context.Context, id string, patch domain.RecordPatch) (domain.ResearchRecord, error)
	ListRecordsByOwner(ctx context.Context, owner domain.Identity) ([]domain.ResearchRecord, error)
}

// SessionStore maps opaque session tokens to the identity that owns them.
type SessionStore interface {
	NewSession(identity domain.Identity) (string, error)
	ResolveSession(token string) (domain.Identity, bool, error)
	DeleteSession(token string) error
}
