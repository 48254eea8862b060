package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator picks the bucket a request counts against
	KeyGenerator func(*fiber.Ctx) string
	Skip         func(*fiber.Ctx) bool
	Logger       *zap.Logger
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:    100,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Skip:   HealthSkipper,
		Logger: zap.NewNop(),
	}
}

// RateLimitMiddleware is a sliding window rate limiter backed by Redis
type RateLimitMiddleware struct {
	redis  redis.Cmdable
	config RateLimitConfig
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(redisClient redis.Cmdable, config ...RateLimitConfig) *RateLimitMiddleware {
	cfg := DefaultRateLimitConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultRateLimitConfig().KeyGenerator
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &RateLimitMiddleware{
		redis:  redisClient,
		config: cfg,
	}
}

// Handler returns the rate limit handler. Requests are let through when
// Redis cannot be reached.
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s", m.config.KeyGenerator(c))
		now := time.Now()
		windowStart := now.Add(-m.config.Window).UnixNano()
		reset := strconv.FormatInt(now.Add(m.config.Window).Unix(), 10)

		ctx := c.UserContext()

		pipe := m.redis.TxPipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
		countCmd := pipe.ZCard(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			m.config.Logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		count := countCmd.Val()

		c.Set("X-RateLimit-Limit", strconv.Itoa(m.config.Max))
		c.Set("X-RateLimit-Reset", reset)

		if count >= int64(m.config.Max) {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64(m.config.Window.Seconds()), 10))
			return apperrors.RateLimited()
		}

		pipe = m.redis.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: fmt.Sprintf("%d:%s", now.UnixNano(), GetRequestID(c)),
		})
		pipe.Expire(ctx, key, m.config.Window*2)
		if _, err := pipe.Exec(ctx); err != nil {
			m.config.Logger.Warn("failed to record request for rate limiting", zap.Error(err))
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(m.config.Max)-count-1, 10))

		return c.Next()
	}
}
