package middleware

import (
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/IshaNayal/swasth-saathi/internal/throttle"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware caps requests per client IP using counter. Counter
// errors let the request through.
func RateLimitMiddleware(counter throttle.Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait, err := counter.Hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("WARN: rate limiter unavailable: %v", err)
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
