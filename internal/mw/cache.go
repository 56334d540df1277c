package mw

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"property-workflow-backend/internal/auth"
)

type cachedPage struct {
	status  int
	headers http.Header
	body    []byte
}

func (p cachedPage) replay(w gin.ResponseWriter) {
	for k, v := range p.headers {
		w.Header()[k] = v
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(p.status)
	w.Write(p.body)
}

// teeWriter copies the response body aside while it is written out.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET responses per caller for a short time.
// Any change event flushes it, so a cached read never outlives a write.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
	// flushes counts Flush calls. A page rendered across a flush may hold
	// pre-write data and is not stored.
	flushes atomic.Uint64
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	rc.flushes.Add(1)
	rc.store.Flush()
}

// Handler serves cached responses and records new ones. It must run after
// Auth; responses are keyed by caller because they are filtered by role.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if id, ok := auth.CurrentUser(c); ok {
			key = id.UserID + " " + key
		}
		if hit, found := rc.store.Get(key); found {
			hit.(cachedPage).replay(c.Writer)
			c.Abort()
			return
		}

		generation := rc.flushes.Load()
		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Next()

		if rc.flushes.Load() != generation {
			return
		}
		if status := tw.Status(); status >= 200 && status < 300 {
			rc.store.Set(key, cachedPage{
				status:  status,
				headers: tw.Header().Clone(),
				body:    tw.buf.Bytes(),
			}, rc.ttl)
		}
	}
}
