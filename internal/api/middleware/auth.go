package middleware

import (
	"net/http"
	"strings"

	"taskhive/internal/pkg/metrics"
	"taskhive/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

// UserIDKey 是认证后写入 gin 上下文的用户 ID 键。
const UserIDKey = "userID"

// Auth 校验 Bearer 令牌并将 userID 写入上下文。
//
// 这里只做纯校验：信任令牌内嵌的身份声明，不回查用户表。
// 已删除用户的未过期令牌在到期前仍会被接受，这是有意为之的
// 无状态设计，/api/auth/me 是唯一回查用户行的地方。
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			c.Abort()
			return
		}

		userID, err := tokens.Verify(parts[1])
		if err != nil {
			metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID 读取认证中间件写入的用户 ID。
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
