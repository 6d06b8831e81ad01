// Package middleware 提供中间件
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/configs"
)

// Stack 按顺序返回全局中间件. 追踪最先执行，使请求 logger 能带上 trace_id；
// 限流在 CORS 之后，预检请求不消耗配额. 熔断按上游主机在中继内部完成.
func Stack(cfg *configs.AppConfig, streamPaths ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		gin.Recovery(),
		TracingMiddleware(),
		RequestIDMiddleware(),
		GinLoggerMiddleware(cfg.Relay.TokenParam),
		PrometheusMiddleware(),
		CORSMiddleware(cfg.Server),
		RateLimitMiddleware(cfg.RateLimit),
		GzipMiddleware(cfg.Server, streamPaths...),
	}
}
