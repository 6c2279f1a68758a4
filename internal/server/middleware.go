package server

import (
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/utilitybill/internal/ratelimit"
)

type bulkLimiter interface {
	Allow(ctx context.Context, key string) (*ratelimit.RateLimitResult, error)
}

// bulkRateLimit limits one bucket of expensive endpoints per client IP.
func (s *Server) bulkRateLimit(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		res, err := s.limiter.Allow(c.Request.Context(), bucket+":"+c.ClientIP())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
		}
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// spaFallback serves built console assets from dir and falls back to its
// index.html so client side routes resolve. Unknown /api paths stay 404.
func spaFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			AbortWithError(c, ErrNotFound)
			return
		}

		if fileExists(dir, path) {
			c.File(filepath.Join(dir, filepath.Clean(path)))
			return
		}

		index := filepath.Join(dir, "index.html")
		if !fileExists(dir, "/index.html") {
			AbortWithError(c, ErrNotFound)
			return
		}
		c.File(index)
	}
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean("/" + reqPath)

	// prevent path traversal
	if clean == "/" || strings.Contains(clean, "..") {
		return false
	}

	info, err := os.Stat(filepath.Join(publicDir, clean))
	if err != nil {
		return false
	}

	return !info.IsDir()
}
