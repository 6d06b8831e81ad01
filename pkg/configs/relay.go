package configs

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTokenParam             = "u"                // 访问令牌所在的查询参数
	DefaultTimestampParam         = "t"                // 资源 URL 上的签发时间参数（毫秒）
	DefaultTokenTTL               = 60 * time.Second   // 令牌有效期
	DefaultTokenCodec             = TokenCodecBase64   // 令牌编码方式
	DefaultContentType            = "undefined"        // 固定返回的 Content-Type
	DefaultPassthroughContentType = false              // 是否透传上游 Content-Type
	DefaultUpstreamTimeout        = 15 * time.Second   // 元数据探测与响应头等待超时
	DefaultDialTimeout            = 10 * time.Second   // 上游建连超时
	DefaultIdleConnTimeout        = 90 * time.Second   // 空闲连接保持时间
	DefaultMaxIdleConnsPerHost    = 16                 // 每个上游主机的最大空闲连接
	DefaultUserAgent              = "mediarelay/1.0.0" // 上游请求的 User-Agent
	DefaultTruncateIgnoredRange   = true               // 上游忽略 Range 时按协商区间截取
	DefaultBufferSize             = 32 * 1024          // 转发缓冲区大小
)

const (
	// TokenCodecBase64 仅做可逆编码，不提供任何完整性保护.
	TokenCodecBase64 = "base64"
	// TokenCodecHMAC 在编码后附加 HMAC-SHA256 签名.
	TokenCodecHMAC = "hmac"
)

// ErrMissingTokenSecret hmac 编码缺少密钥.
var ErrMissingTokenSecret = errors.New("relay.token_secret is required when relay.token_codec is hmac")

// RelayConfig 媒体流中继配置.
type RelayConfig struct {
	TokenParam             string        `mapstructure:"token_param"              rule:"required"`
	TimestampParam         string        `mapstructure:"timestamp_param"          rule:"required"`
	TokenTTL               time.Duration `mapstructure:"token_ttl"                rule:"gt=0"`
	TokenCodec             string        `mapstructure:"token_codec"              rule:"oneof=base64 hmac"`
	TokenSecret            string        `mapstructure:"token_secret"             json:"-"`
	ContentType            string        `mapstructure:"content_type"             rule:"required"`
	PassthroughContentType bool          `mapstructure:"passthrough_content_type"`
	UpstreamTimeout        time.Duration `mapstructure:"upstream_timeout"         rule:"gt=0"`
	DialTimeout            time.Duration `mapstructure:"dial_timeout"             rule:"gt=0"`
	IdleConnTimeout        time.Duration `mapstructure:"idle_conn_timeout"        rule:"gte=0"`
	MaxIdleConnsPerHost    int           `mapstructure:"max_idle_conns_per_host"  rule:"gte=0"`
	UserAgent              string        `mapstructure:"user_agent"`
	TruncateIgnoredRange   bool          `mapstructure:"truncate_ignored_range"`
	BufferSize             int           `mapstructure:"buffer_size"              rule:"min=512"`
}

func (c *RelayConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("relay.token_param", DefaultTokenParam)
	v.SetDefault("relay.timestamp_param", DefaultTimestampParam)
	v.SetDefault("relay.token_ttl", DefaultTokenTTL)
	v.SetDefault("relay.token_codec", DefaultTokenCodec)
	v.SetDefault("relay.token_secret", "")
	v.SetDefault("relay.content_type", DefaultContentType)
	v.SetDefault("relay.passthrough_content_type", DefaultPassthroughContentType)
	v.SetDefault("relay.upstream_timeout", DefaultUpstreamTimeout)
	v.SetDefault("relay.dial_timeout", DefaultDialTimeout)
	v.SetDefault("relay.idle_conn_timeout", DefaultIdleConnTimeout)
	v.SetDefault("relay.max_idle_conns_per_host", DefaultMaxIdleConnsPerHost)
	v.SetDefault("relay.user_agent", DefaultUserAgent)
	v.SetDefault("relay.truncate_ignored_range", DefaultTruncateIgnoredRange)
	v.SetDefault("relay.buffer_size", DefaultBufferSize)
}

func (c *RelayConfig) validate() error {
	if c.TokenCodec == TokenCodecHMAC && strings.TrimSpace(c.TokenSecret) == "" {
		return ErrMissingTokenSecret
	}

	return nil
}

// DefaultRelayConfig 返回全部使用默认值的中继配置，便于测试和嵌入使用.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		TokenParam:             DefaultTokenParam,
		TimestampParam:         DefaultTimestampParam,
		TokenTTL:               DefaultTokenTTL,
		TokenCodec:             DefaultTokenCodec,
		ContentType:            DefaultContentType,
		PassthroughContentType: DefaultPassthroughContentType,
		UpstreamTimeout:        DefaultUpstreamTimeout,
		DialTimeout:            DefaultDialTimeout,
		IdleConnTimeout:        DefaultIdleConnTimeout,
		MaxIdleConnsPerHost:    DefaultMaxIdleConnsPerHost,
		UserAgent:              DefaultUserAgent,
		TruncateIgnoredRange:   DefaultTruncateIgnoredRange,
		BufferSize:             DefaultBufferSize,
	}
}
