package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-workflow-backend/config"
	"property-workflow-backend/internal/model"
)

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	tokens, err := NewTokens(config.AuthConfig{JWTSecret: "test-secret", Issuer: "property-workflow", TokenTTL: time.Hour})
	require.NoError(t, err)
	return tokens
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := newTokens(t)
	raw, err := tokens.Issue(model.Profile{ID: "u-1", Email: "mgr@example.com", Role: model.RolePropertyManager})
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Email: "mgr@example.com", Role: model.RolePropertyManager}, id)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := newTokens(t)
	profile := model.Profile{ID: "u-1", Role: model.RoleTenant}

	expired := newTokens(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredRaw, err := expired.Issue(profile)
	require.NoError(t, err)

	other, err := NewTokens(config.AuthConfig{JWTSecret: "other", Issuer: "property-workflow", TokenTTL: time.Hour})
	require.NoError(t, err)
	forgedRaw, err := other.Issue(profile)
	require.NoError(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: "janitor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "property-workflow",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badRoleRaw, err := badRole.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"expired":   expiredRaw,
		"forged":    forgedRaw,
		"bad role":  badRoleRaw,
		"malformed": "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(raw)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens(config.AuthConfig{})
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CurrentUser(c)
	assert.False(t, ok)

	SetCurrentUser(c, Identity{UserID: "u-1", Role: model.RoleTenant})
	id, ok := CurrentUser(c)
	assert.True(t, ok)
	assert.Equal(t, "u-1", id.UserID)
}
