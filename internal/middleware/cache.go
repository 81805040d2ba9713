package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khoanguyen-dev/unitime-api/internal/repository"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
)

const cacheHitHeader = "X-Cache"

type cachingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *cachingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// ResponseCache serves successful GET responses from Redis. Rendered grids
// and subject listings are deterministic for a stored catalog, so the whole
// response body can be cached under the request path and query.
func ResponseCache(cache *repository.CacheRepository, metrics *service.MetricsService, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return func(c *gin.Context) {
		if cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := "resp:" + c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			key += "?" + raw
		}

		var cached json.RawMessage
		if err := cache.Get(c.Request.Context(), key, &cached); err == nil {
			metrics.RecordCacheOperation(true)
			c.Header(cacheHitHeader, "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}
		metrics.RecordCacheOperation(false)

		writer := &cachingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header(cacheHitHeader, "MISS")
		c.Next()

		if c.Writer.Status() != http.StatusOK || writer.body.Len() == 0 {
			return
		}
		// A failed write just means the next request renders again.
		_ = cache.Set(c.Request.Context(), key, json.RawMessage(writer.body.Bytes()), ttl)
	}
}
