package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/types"
)

// Health 存活检查. 服务不持有外部依赖，进程可响应即视为健康.
//
//	@Summary		健康检查
//	@Tags			健康检查
//	@Produce		json
//	@Success		200	{object}	types.HealthResponse
//	@Router			/api/v1/health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok", Version: configs.AppVersion})
}
