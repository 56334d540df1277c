package mw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"property-workflow-backend/internal/auth"
	"property-workflow-backend/internal/model"
)

type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(raw string) (auth.Identity, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return auth.Identity{}, errors.New("bad token")
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuth(t *testing.T) {
	r := newEngine()
	r.Use(Auth(stubVerifier{"good": {UserID: "u-1", Role: model.RoleTenant}}))
	r.GET("/me", func(c *gin.Context) {
		id, _ := auth.CurrentUser(c)
		c.String(http.StatusOK, id.UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "bad").Code)

	w := serve(r, http.MethodGet, "/me", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	w = serve(r, http.MethodGet, "/me?access_token=good", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseCache_PerUserAndFlush(t *testing.T) {
	r := newEngine()
	rc := NewResponseCache(time.Minute)
	calls := 0
	r.Use(Auth(stubVerifier{
		"a": {UserID: "u-a", Role: model.RoleTenant},
		"b": {UserID: "u-b", Role: model.RoleTenant},
	}), rc.Handler())
	r.GET("/items", func(c *gin.Context) {
		calls++
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, `{"n":%d}`, calls)
	})

	first := serve(r, http.MethodGet, "/items", "a")
	second := serve(r, http.MethodGet, "/items", "a")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	other := serve(r, http.MethodGet, "/items", "b")
	assert.Equal(t, `{"n":2}`, other.Body.String(), "callers do not share cache entries")

	rc.Flush()
	assert.Equal(t, `{"n":3}`, serve(r, http.MethodGet, "/items", "a").Body.String())
}

func TestResponseCache_DropsPageRenderedAcrossFlush(t *testing.T) {
	r := newEngine()
	rc := NewResponseCache(time.Minute)
	calls := 0
	r.Use(rc.Handler())
	r.GET("/items", func(c *gin.Context) {
		calls++
		if calls == 1 {
			// A write lands while this read is in flight.
			rc.Flush()
		}
		c.String(http.StatusOK, "%d", calls)
	})

	assert.Equal(t, "1", serve(r, http.MethodGet, "/items", "").Body.String())
	second := serve(r, http.MethodGet, "/items", "")
	assert.Equal(t, "2", second.Body.String())
	assert.Empty(t, second.Header().Get("X-Cache"))

	third := serve(r, http.MethodGet, "/items", "")
	assert.Equal(t, "2", third.Body.String())
	assert.Equal(t, "HIT", third.Header().Get("X-Cache"))
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	r := newEngine()
	rc := NewResponseCache(time.Minute)
	calls := 0
	r.Use(rc.Handler())
	r.GET("/broken", func(c *gin.Context) {
		calls++
		c.Status(http.StatusInternalServerError)
	})

	serve(r, http.MethodGet, "/broken", "")
	serve(r, http.MethodGet, "/broken", "")
	assert.Equal(t, 2, calls)
}

func TestRateLimiter(t *testing.T) {
	r := newEngine()
	r.Use(Auth(stubVerifier{
		"a": {UserID: "u-a"},
		"b": {UserID: "u-b"},
	}), RateLimiter(rate.Limit(0.001), 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", "a").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "b").Code, "limits are per user")
}
