// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/internal/relay"
	"github.com/yeisme/mediarelay/pkg/metrics"
)

// writeError 以纯文本写出中继错误. 只能在响应头写出之前调用.
func writeError(c *gin.Context, err error) {
	rerr := relay.AsError(err)

	for k, vs := range rerr.Header {
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}

	c.Header("Access-Control-Allow-Origin", "*")
	c.String(rerr.Status, rerr.Message)

	if rerr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	metrics.RelayRequests.WithLabelValues(string(rerr.Kind)).Inc()
}
