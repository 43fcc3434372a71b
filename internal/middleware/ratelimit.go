package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/metrics"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	LoginLimit  int           `mapstructure:"loginLimit"`
	LoginWindow time.Duration `mapstructure:"loginWindow"`
}

// RateLimiter is a fixed-window limiter on Redis INCR/EXPIRE. Without a reachable Redis it
// lets every request through.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter connects to Redis. An empty address or a failed ping leaves the limiter
// disabled.
func NewRateLimiter(cfg RedisConfig) *RateLimiter {
	if cfg.Addr == "" {
		return &RateLimiter{}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger().Warn("redis unavailable, rate limiting disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		client.Close()
		return &RateLimiter{}
	}

	return &RateLimiter{client: client}
}

func NewRateLimiterWithClient(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (l *RateLimiter) Enabled() bool {
	return l.client != nil
}

func (l *RateLimiter) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// Limit allows maxRequests per client IP and route within window.
// Key format: rl:<route>:<window_seconds>:<ip>
func (l *RateLimiter) Limit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.client == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		key := "rl:" + c.FullPath() + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		ctx := c.Request.Context()

		val, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			logger.Logger().Warn("rate limiter redis error", zap.Error(err))
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			l.client.Expire(ctx, key, window)
		}

		if val > int64(maxRequests) {
			metrics.RateLimitBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
