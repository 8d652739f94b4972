package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 全局 Prometheus 指标，由 InitMetrics 注册。
var (
	// HTTPRequestsTotal 统计 HTTP 请求总数（按方法、路由、状态码）。
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration 统计请求耗时分布（按方法、路由）。
	HTTPRequestDuration *prometheus.HistogramVec

	// AuthFailuresTotal 统计认证失败次数（按原因: missing_token / invalid_token / bad_credentials）。
	AuthFailuresTotal *prometheus.CounterVec

	// LoginRateLimitedTotal 统计被限流拒绝的凭证请求数。
	LoginRateLimitedTotal prometheus.Counter

	// TasksCreatedTotal 统计创建成功的任务数。
	TasksCreatedTotal prometheus.Counter

	// TasksDeletedTotal 统计删除成功的任务数。
	TasksDeletedTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 注册所有指标。重复调用只生效一次。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskhive",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"})

		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskhive",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})

		AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskhive",
			Name:      "auth_failures_total",
			Help:      "Authentication failures by reason.",
		}, []string{"reason"})

		LoginRateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskhive",
			Name:      "login_rate_limited_total",
			Help:      "Credential requests rejected by the rate limiter.",
		})

		TasksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskhive",
			Name:      "tasks_created_total",
			Help:      "Tasks created successfully.",
		})

		TasksDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskhive",
			Name:      "tasks_deleted_total",
			Help:      "Tasks deleted successfully.",
		})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthFailuresTotal,
			LoginRateLimitedTotal,
			TasksCreatedTotal,
			TasksDeletedTotal,
		)
	})
}
