package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "purchase_conversion_limiter"

// NewLimiter builds a per-client-IP limiter from a formatted rate such as
// "100-M". A nil client keeps counters in process memory.
func NewLimiter(formatted string, client *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix})
	}

	return limiter.New(store, rate), nil
}

// RateLimitMiddleware rejects clients over their quota with 429.
func RateLimitMiddleware(instance *limiter.Limiter, log logger.Logger) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			log.Warn("Rate limit exceeded", map[string]interface{}{
				"request_id":  requestID,
				"remote_addr": r.RemoteAddr,
			})
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests", requestID)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			requestID := GetRequestID(r.Context())
			log.Error("Rate limit check failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			writeJSONError(w, http.StatusInternalServerError, "Internal server error", requestID)
		}),
	)
	return mw.Handler
}

func writeJSONError(w http.ResponseWriter, status int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      message,
		"status":     status,
		"request_id": requestID,
	})
}
