package token

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Signer 为令牌提供完整性保护的可插拔能力.
type Signer interface {
	Sign(msg []byte) []byte
	Verify(msg, sig []byte) bool
}

// HMACSigner 基于 HMAC-SHA256 的签名器.
type HMACSigner struct {
	key []byte
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner 使用共享密钥创建签名器.
func NewHMACSigner(key []byte) *HMACSigner {
	k := make([]byte, len(key))
	copy(k, key)

	return &HMACSigner{key: k}
}

func (s *HMACSigner) Sign(msg []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(msg)

	return mac.Sum(nil)
}

// Verify 使用常量时间比较.
func (s *HMACSigner) Verify(msg, sig []byte) bool {
	return hmac.Equal(s.Sign(msg), sig)
}
