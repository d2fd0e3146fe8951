package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"researchduo/internal/util"
	"researchduo/pkg/domain"
)

// RedisSessionStore keeps opaque session tokens in Redis with TTL. The value
// is the encoded identity ("user:<id>" or "guest:<id>").
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store on a shared client.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "researchduo:session"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

// NewSession writes a token -> identity mapping with TTL.
func (s *RedisSessionStore) NewSession(identity domain.Identity) (string, error) {
	if !identity.Valid() {
		return "", errors.New("session identity required")
	}
	token := util.NewID() + util.NewID()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(token), identity.String(), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession returns the identity bound to token.
func (s *RedisSessionStore) ResolveSession(token string) (domain.Identity, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, err
	}
	identity, ok := parseIdentity(val)
	if !ok {
		return domain.Identity{}, false, errors.New("malformed session value")
	}
	return identity, true, nil
}

// DeleteSession removes a token mapping.
func (s *RedisSessionStore) DeleteSession(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + ":" + token
}

func parseIdentity(raw string) (domain.Identity, bool) {
	kind, id, ok := strings.Cut(raw, ":")
	if !ok {
		return domain.Identity{}, false
	}
	identity := domain.Identity{Kind: domain.IdentityKind(kind), ID: id}
	return identity, identity.Valid()
}
