package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache keeps copies of successful GET responses for a fixed TTL.
// It suits routes whose content does not change once it exists.
type ResponseCache struct {
	entries *cache.Cache
	ttl     time.Duration
}

type snapshot struct {
	header http.Header
	body   []byte
}

// NewResponseCache creates a cache whose entries expire after ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries: cache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

// teeWriter copies the body into buf while passing it through.
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

// Handler replays a stored 200 response for the same request URI. Other
// statuses pass through untouched, so a 404 for a batch that is not yet
// logged is never remembered.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, ok := rc.entries.Get(key); ok {
			snap := v.(snapshot)
			header := c.Writer.Header()
			for k, vals := range snap.header {
				header[k] = vals
			}
			header.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(http.StatusOK)
			c.Writer.Write(snap.body)
			c.Abort()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee
		c.Next()

		if tee.Status() != http.StatusOK {
			return
		}
		rc.entries.Set(key, snapshot{
			header: tee.Header().Clone(),
			body:   bytes.Clone(tee.buf.Bytes()),
		}, rc.ttl)
	}
}

