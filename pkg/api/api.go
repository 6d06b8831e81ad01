// Package api 定义对外的 HTTP 接口分组.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/handle"
	"github.com/yeisme/mediarelay/pkg/internal/relay"
	"github.com/yeisme/mediarelay/pkg/internal/router"
)

// Prefix API 路由前缀.
const Prefix = "/api/v1"

// StreamPath 媒体流路由的完整路径.
const StreamPath = Prefix + router.StreamPath

// RegisterGroup 注册媒体流和健康检查路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine, svc *relay.Service, cfg *configs.AppConfig) *gin.Engine {
	v1 := e.Group(Prefix)

	router.Register(v1, handle.NewStreamHandlers(svc, cfg.Relay.TokenParam))
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSwaggerRoute(e, cfg.Server)

	return e
}
