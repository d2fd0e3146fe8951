package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"researchduo/pkg/domain"
)

func newRedisSessions(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, "test:session", ttl), mr
}

func TestRedisSessionStoreLifecycle(t *testing.T) {
	s, _ := newRedisSessions(t, time.Hour)

	token, err := s.NewSession(domain.GuestIdentity("guest-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	got, ok, err := s.ResolveSession(token)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if got != domain.GuestIdentity("guest-1") {
		t.Fatalf("resolved %v", got)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := s.ResolveSession(token); ok || err != nil {
		t.Fatalf("expected deleted session to be gone, ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	s, mr := newRedisSessions(t, time.Minute)
	token, err := s.NewSession(domain.UserIdentity("user-1"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.ResolveSession(token); ok {
		t.Fatalf("expected session to expire")
	}
}

func TestRedisSessionStoreRejectsMalformedValue(t *testing.T) {
	s, mr := newRedisSessions(t, time.Minute)
	if err := mr.Set("test:session:bad", "nonsense"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := s.ResolveSession("bad"); ok || err == nil {
		t.Fatalf("expected malformed session error, ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreRequiresIdentity(t *testing.T) {
	s, _ := newRedisSessions(t, time.Minute)
	if _, err := s.NewSession(domain.Identity{}); err == nil {
		t.Fatalf("expected error for empty identity")
	}
}
