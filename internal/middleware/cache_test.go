package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/repository"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
)

func TestResponseCachePassThroughWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cache := repository.NewCacheRepository(nil, zap.NewNop())
	router.Use(ResponseCache(cache, service.NewMetricsService(), time.Minute))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/ping", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(cacheHitHeader))
	assert.Contains(t, w.Body.String(), "pong")
}

func TestResponseCacheSkipsNonGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cache := repository.NewCacheRepository(nil, zap.NewNop())
	router.Use(ResponseCache(cache, nil, time.Minute))
	router.POST("/write", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/write", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(cacheHitHeader))
}

func TestMetricsMiddlewareRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(service.NewMetricsService()))
	router.GET("/catalogs/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/catalogs/cat-1", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
