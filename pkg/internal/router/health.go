package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)
}
