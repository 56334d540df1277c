// Package auth issues and verifies the bearer tokens that identify callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"property-workflow-backend/config"
	"property-workflow-backend/internal/model"
)

var (
	// ErrUnauthorized is returned for missing, malformed or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSecret is returned when no signing secret is configured.
	ErrNoSecret = errors.New("auth.jwt_secret is not set")
)

const identityKey = "identity"

// Identity is the authenticated caller.
type Identity struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

type claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token service from cfg.
func NewTokens(cfg config.AuthConfig) (*Tokens, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	return &Tokens{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// Issue mints a token for p.
func (t *Tokens) Issue(p model.Profile) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (t *Tokens) Verify(raw string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if c.Subject == "" || !c.Role.Valid() {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}

// SetCurrentUser stores id on the request context.
func SetCurrentUser(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// CurrentUser returns the identity stored by the auth middleware.
func CurrentUser(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
