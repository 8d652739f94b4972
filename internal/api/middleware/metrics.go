package middleware

import (
	"strconv"
	"time"

	"taskhive/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录请求计数与耗时。
//
// 标签使用注册的路由模板（如 /api/tasks/:id）而不是原始路径，
// 避免每个任务 ID 产生一条时间序列。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
