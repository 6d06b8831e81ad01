// Package types 定义请求和响应的数据结构.
package types

type (
	// StreamRequest 媒体流中继请求.
	StreamRequest struct {
		// Token 访问令牌，来自查询参数 u（参数名可配置）.
		Token string `json:"u"`
		// Range 客户端 Range 请求头，可为空.
		Range string `json:"range,omitempty"`
	}

	// HealthResponse 健康检查响应.
	HealthResponse struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
)
