package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appctx "github.com/yeisme/mediarelay/pkg/context"
	"github.com/yeisme/mediarelay/pkg/log"
)

// RequestIDHeader 请求 ID 所在的请求头和响应头.
const RequestIDHeader = appctx.RequestIDHeader

// maxRequestIDLen 超过该长度的外部请求 ID 会被替换.
const maxRequestIDLen = 128

// RequestIDMiddleware 为每个请求分配请求 ID，并把带有 request_id 的 logger 注入请求 context.
// 之后的中间件和处理器通过 zerolog.Ctx 获取请求级 logger.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)
		c.Set(string(appctx.RequestIDKey), id)

		ctx := appctx.WithRequestID(c.Request.Context(), id)
		logger := log.Logger().With().Str("request_id", id).Logger()
		logger = appctx.WithTraceContext(ctx, logger)
		c.Request = c.Request.WithContext(appctx.WithLogger(ctx, logger))

		c.Next()
	}
}
