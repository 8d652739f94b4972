package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taskhive/internal/pkg/metrics"
	"taskhive/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// CredentialRateLimit 对凭证类接口（注册/登录）按客户端 IP 限流。
//
// limiter 为 nil 或未配置速率时直接放行。Redis 出错时同样放行，只记录日志。
func CredentialRateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		allowed, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			metrics.LoginRateLimitedTotal.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
