// Package token 负责媒体访问令牌的编码与解码.
//
// 令牌是对资源 URL 的可逆编码，URL 自身携带签发时间参数（默认 t，毫秒时间戳）.
// 默认的 Base64Codec 只做混淆，任何人都可以为任意 URL 和时间伪造令牌；
// 需要完整性保护时使用 SignedCodec 配合 Signer（例如 HMACSigner）.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yeisme/mediarelay/pkg/configs"
)

var (
	// ErrEmptyToken 令牌为空.
	ErrEmptyToken = errors.New("token is empty")
	// ErrMalformed 令牌无法解码.
	ErrMalformed = errors.New("token is malformed")
	// ErrBadSignature 令牌签名校验失败.
	ErrBadSignature = errors.New("token signature mismatch")
)

// Codec 在资源 URL 与不透明令牌之间做可逆转换.
type Codec interface {
	Encode(resourceURL string) (string, error)
	Decode(token string) (string, error)
}

// Base64Codec 标准 Base64 编码，与浏览器 btoa/atob 互通. 不是签名.
type Base64Codec struct{}

var _ Codec = Base64Codec{}

// Encode 使用带填充的标准字母表编码.
func (Base64Codec) Encode(resourceURL string) (string, error) {
	if resourceURL == "" {
		return "", ErrEmptyToken
	}

	return base64.StdEncoding.EncodeToString([]byte(resourceURL)), nil
}

// Decode 依次尝试标准、无填充和 URL 安全字母表.
// 查询串中未转义的 '+' 会被还原成空格，解码前先换回.
func (Base64Codec) Decode(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	token = strings.ReplaceAll(token, " ", "+")

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	for _, enc := range encodings {
		raw, err := enc.DecodeString(token)
		if err != nil {
			continue
		}

		if len(raw) == 0 || !utf8.Valid(raw) {
			return "", ErrMalformed
		}

		return string(raw), nil
	}

	return "", ErrMalformed
}

// SignedCodec 在内层编码结果后追加 ".<base64url 签名>".
type SignedCodec struct {
	Inner  Codec
	Signer Signer
}

var _ Codec = (*SignedCodec)(nil)

// Encode 编码并签名.
func (c *SignedCodec) Encode(resourceURL string) (string, error) {
	body, err := c.Inner.Encode(resourceURL)
	if err != nil {
		return "", err
	}

	sig := c.Signer.Sign([]byte(body))

	return body + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Decode 校验签名后再交给内层解码.
func (c *SignedCodec) Decode(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 || idx == len(token)-1 {
		return "", fmt.Errorf("%w: missing signature", ErrMalformed)
	}

	body := strings.ReplaceAll(token[:idx], " ", "+")

	sig, err := base64.RawURLEncoding.DecodeString(token[idx+1:])
	if err != nil {
		return "", fmt.Errorf("%w: signature encoding", ErrMalformed)
	}

	if !c.Signer.Verify([]byte(body), sig) {
		return "", ErrBadSignature
	}

	return c.Inner.Decode(body)
}

// NewCodec 根据中继配置构造令牌编解码器.
func NewCodec(cfg configs.RelayConfig) (Codec, error) {
	switch cfg.TokenCodec {
	case "", configs.TokenCodecBase64:
		return Base64Codec{}, nil
	case configs.TokenCodecHMAC:
		if strings.TrimSpace(cfg.TokenSecret) == "" {
			return nil, configs.ErrMissingTokenSecret
		}

		return &SignedCodec{Inner: Base64Codec{}, Signer: NewHMACSigner([]byte(cfg.TokenSecret))}, nil
	default:
		return nil, fmt.Errorf("unsupported token codec: %s", cfg.TokenCodec)
	}
}
