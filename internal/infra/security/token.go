package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"carrental/internal/app/apperr"
	domainuser "carrental/internal/domain/user"
)

var ErrSecretRequired = errors.New("security: jwt secret required")

// Claims carries the caller identity issued by the auth service.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens and yields the principal.
type TokenVerifier struct {
	secret []byte
	leeway time.Duration
}

func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	return &TokenVerifier{secret: []byte(secret), leeway: 30 * time.Second}, nil
}

func (v *TokenVerifier) Verify(raw string) (domainuser.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domainuser.Principal{}, apperr.ErrUnauthenticated
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(v.leeway))
	if err != nil {
		return domainuser.Principal{}, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}
	id := strings.TrimSpace(claims.ID)
	if id == "" {
		id = strings.TrimSpace(claims.Subject)
	}
	if id == "" {
		return domainuser.Principal{}, apperr.ErrUnauthenticated
	}
	role, err := domainuser.ParseRole(claims.Role)
	if err != nil {
		return domainuser.Principal{}, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}
	return domainuser.Principal{ID: id, Role: role}, nil
}

// Issue signs a token for the principal. Used by tests and local tooling.
func (v *TokenVerifier) Issue(p domainuser.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   p.ID,
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
