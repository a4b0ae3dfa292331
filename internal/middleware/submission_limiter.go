package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
	"github.com/noah-isme/civic-complaints-api/pkg/response"
)

const submissionWindow = 24 * time.Hour

// CounterStore is the subset of Redis used for per-user counters.
type CounterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// DeniedRecorder is notified when a submission is rejected.
type DeniedRecorder interface {
	RecordSubmissionDenied()
}

// SubmissionLimiter caps complaint submissions per user within a rolling
// 24 hour window that starts at the user's first submission. A limit of zero
// or a missing store disables the check. Counter errors let the request
// through.
func SubmissionLimiter(store CounterStore, limit int, recorder DeniedRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if store == nil || limit <= 0 {
			c.Next()
			return
		}
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("complaints:daily:%s", claims.UserID)

		count, err := store.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("submission counter unavailable", zap.String("user_id", claims.UserID), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := store.Expire(ctx, key, submissionWindow).Err(); err != nil {
				logger.Warn("failed to set submission window", zap.String("user_id", claims.UserID), zap.Error(err))
			}
		}

		if count > int64(limit) {
			retryAfter, err := store.TTL(ctx, key).Result()
			if err != nil || retryAfter < 0 {
				retryAfter = submissionWindow
			}
			if recorder != nil {
				recorder.RecordSubmissionDenied()
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("daily limit of %d complaints reached", limit)))
			c.Abort()
			return
		}

		c.Next()
	}
}
