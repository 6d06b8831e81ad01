package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/configs"
)

// GzipMiddleware 压缩非流式响应. excluded 中的路径原样输出，
// 媒体流的 Content-Length 和 Content-Range 按原始字节计算，不能再压缩.
func GzipMiddleware(cfg configs.ServerConfig, excluded ...string) gin.HandlerFunc {
	if !cfg.Gzip {
		return func(c *gin.Context) { c.Next() }
	}

	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(excluded))
}
