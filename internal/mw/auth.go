package mw

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/auth"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Auth rejects requests without a valid bearer token. Websocket clients,
// which cannot set headers, may pass the token as ?access_token=.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			raw = c.Query("access_token")
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := verifier.Verify(raw)
		if err != nil {
			log.Printf("auth: rejected token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		auth.SetCurrentUser(c, id)
		c.Next()
	}
}
