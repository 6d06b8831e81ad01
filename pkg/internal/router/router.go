// Package router 管理路由配置，用于设置HTTP服务的路由规则.
package router

import (
	"github.com/gin-gonic/gin"
)

// StreamPath 媒体流路由相对 /api/v1 的路径.
const StreamPath = "/stream"

// StreamHandlers 定义由应用层注入的媒体流处理器. router 包只负责将路径和处理器绑定到 gin 引擎，
// 处理器的实现由 pkg/internal/handle 提供并注入进来.
type StreamHandlers interface {
	Stream() gin.HandlerFunc
}

// Register 将媒体流路由绑定到传入的 gin 路由组（假定上层会用 v1 := r.Group("/api/v1")）：
//
//	GET /stream?u=<token> -> Stream
func Register(group *gin.RouterGroup, handlers StreamHandlers) {
	group.GET(StreamPath, handlers.Stream())
}
