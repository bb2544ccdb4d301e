package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	CreateOrderMaxRequests    = 10 // par minute et par utilisateur
	ValidateCouponMaxRequests = 20 // anti brute-force des codes
	ConfirmMaxRequests        = 30
	APIMaxRequests            = 100 // par minute et par IP

	RateLimitWindow = 1 * time.Minute
)

// Counter est le compteur partagé (Redis en production)
type Counter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	TTL(ctx context.Context, key string) time.Duration
}

// RateLimit limite un endpoint à max requêtes par fenêtre, par utilisateur
// connecté ou à défaut par IP. Si Redis ne répond pas, la requête passe.
func RateLimit(counter Counter, name string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString("user_id")
		if subject == "" {
			subject = c.ClientIP()
		}
		key := fmt.Sprintf("rate:%s:%s", name, subject)

		count, err := counter.IncrementRateLimit(c.Request.Context(), key, window)
		if err != nil {
			log.WithError(err).Warnf("⚠️ Rate limit %s indisponible", name)
			c.Next()
			return
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > max {
			retry := counter.TTL(c.Request.Context(), key)
			if retry <= 0 {
				retry = window
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Bạn thao tác quá nhanh. Vui lòng thử lại sau %d giây", int(retry.Seconds())),
				"retry_after": int(retry.Seconds()),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CreateOrderRateLimit(counter Counter) gin.HandlerFunc {
	return RateLimit(counter, "create_order", CreateOrderMaxRequests, RateLimitWindow)
}

func ValidateCouponRateLimit(counter Counter) gin.HandlerFunc {
	return RateLimit(counter, "validate_coupon", ValidateCouponMaxRequests, RateLimitWindow)
}

func ConfirmPaymentRateLimit(counter Counter) gin.HandlerFunc {
	return RateLimit(counter, "confirm_payment", ConfirmMaxRequests, RateLimitWindow)
}

// APIRateLimit limite le nombre de requêtes par IP (général, monté avant l'authentification)
func APIRateLimit(counter Counter) gin.HandlerFunc {
	return RateLimit(counter, "api", APIMaxRequests, RateLimitWindow)
}
