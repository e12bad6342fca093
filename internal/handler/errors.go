package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/IshaNayal/swasth-saathi/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError writes the client-facing shape for err. Credential failures
// collapse to two messages; internal reasons stay in the server log.
func respondError(c *gin.Context, err error, action string) {
	var throttled *service.ThrottleError
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredential.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
	case errors.As(err, &throttled):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(throttled.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": service.ErrThrottled.Error()})
	case errors.Is(err, service.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send code, please try again"})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, please try again"})
	default:
		log.Printf("ERROR: %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
