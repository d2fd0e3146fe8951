package store

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"researchduo/internal/util"
	"researchduo/pkg/domain"
)

const (
	defaultJWTIssuer = "researchduo"
	defaultJWTLeeway = 30 * time.Second
)

// JWTOptions configures JWT claim validation behavior.
type JWTOptions struct {
	Issuer string
	Leeway time.Duration
}

type sessionClaims struct {
	Kind domain.IdentityKind `json:"kind"`
	jwt.RegisteredClaims
}

// JWTSessionStore issues stateless HS256 session tokens. Logout is recorded
// in the revoker by jti.
type JWTSessionStore struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker
	issuer  string
	leeway  time.Duration
}

// NewJWTSessionStore builds a JWT session store. secret must be non-empty.
func NewJWTSessionStore(secret string, ttl time.Duration, revoker TokenRevoker, opts JWTOptions) (*JWTSessionStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt session secret required")
	}
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultJWTIssuer
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultJWTLeeway
	}
	return &JWTSessionStore{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		issuer:  issuer,
		leeway:  leeway,
	}, nil
}

// NewSession signs a token for identity.
func (s *JWTSessionStore) NewSession(identity domain.Identity) (string, error) {
	if !identity.Valid() {
		return "", errors.New("session identity required")
	}
	now := time.Now().UTC()
	claims := sessionClaims{
		Kind: identity.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        util.NewID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ResolveSession verifies the token and returns its identity. Invalid,
// expired and revoked tokens resolve to no identity without an error.
func (s *JWTSessionStore) ResolveSession(token string) (domain.Identity, bool, error) {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return domain.Identity{}, false, nil
	}
	revoked, err := s.revoker.IsRevoked(claims.ID)
	if err != nil {
		return domain.Identity{}, false, err
	}
	if revoked {
		return domain.Identity{}, false, nil
	}
	identity := domain.Identity{Kind: claims.Kind, ID: claims.Subject}
	if !identity.Valid() {
		return domain.Identity{}, false, nil
	}
	return identity, true, nil
}

// DeleteSession revokes the token until it expires.
func (s *JWTSessionStore) DeleteSession(token string) error {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *JWTSessionStore) parseAndVerify(token string) (sessionClaims, error) {
	claims := sessionClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, errors.New("invalid token format")
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return claims, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return claims, errors.New("token jti missing")
	}
	return claims, nil
}
