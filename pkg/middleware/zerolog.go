package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// redacted 替换访问日志中的令牌值.
const redacted = "REDACTED"

// GinLoggerMiddleware 使用zerolog记录Gin请求日志的中间件.
// 查询参数中的令牌（sensitive 指定的参数名）不会写入日志.
func GinLoggerMiddleware(sensitive ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		method := c.Request.Method
		clientIP := c.ClientIP()

		// 执行下一个中间件/处理器
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + redactQuery(raw, sensitive)
		}

		logger := zerolog.Ctx(c.Request.Context())

		var event *zerolog.Event

		switch {
		case statusCode >= 500:
			event = logger.Error()
		case statusCode >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event = event.
			Int("status", statusCode).
			Dur("latency", latency).
			Str("method", method).
			Str("path", path).
			Str("client_ip", clientIP).
			Int("bytes", c.Writer.Size())

		if r := c.GetHeader("Range"); r != "" {
			event = event.Str("range", r)
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}

func redactQuery(raw string, sensitive []string) string {
	if len(sensitive) == 0 {
		return raw
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}

	changed := false

	for _, k := range sensitive {
		if _, ok := q[k]; ok {
			q.Set(k, redacted)

			changed = true
		}
	}

	if !changed {
		return raw
	}

	return q.Encode()
}
