package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort              = 8080             // 监听端口
	DefaultHost              = "0.0.0.0"        // 监听地址
	DefaultReloadConfig      = false            // 是否启用配置热重载
	DefaultDebug             = false            // 是否启用调试模式
	DefaultReadHeaderTimeout = 10 * time.Second // 读取请求头超时
	DefaultShutdownTimeout   = 15 * time.Second // 优雅关闭等待时间
	DefaultGzip              = true             // 是否压缩非流式响应
)

type (
	// ServerConfig 服务器配置.
	// 流式响应没有整体写超时，写入时长只受客户端连接和上游影响.
	ServerConfig struct {
		Port              int           `mapstructure:"port"                rule:"min=1,max=65535"`
		Host              string        `mapstructure:"host"                rule:"ip"`
		ReloadConfig      bool          `mapstructure:"reload_config"`
		Debug             bool          `mapstructure:"debug"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"gt=0"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    rule:"gt=0"`
		Gzip              bool          `mapstructure:"gzip"`
	}
)

// setDefaults 设置服务器配置的默认值.
func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.gzip", DefaultGzip)
}
