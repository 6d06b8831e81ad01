package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/configs"
)

// CORSMiddleware CORS中间件，处理浏览器播放器的预检请求.
// 媒体元素跨域拉流时需要发送 Range 并读取 Content-Range.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Range", "Content-Type", RequestIDHeader}
	config.ExposeHeaders = []string{"Content-Length", "Content-Range", "Accept-Ranges", RequestIDHeader}
	config.MaxAge = 12 * time.Hour

	if cfg.Debug {
		config.MaxAge = 0
	}

	return cors.New(config)
}
