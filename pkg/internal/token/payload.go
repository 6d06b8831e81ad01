package token

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/rule"
)

var (
	// ErrInvalidURL 解码结果不是绝对的 http(s) URL.
	ErrInvalidURL = errors.New("token does not carry an absolute http(s) url")
	// ErrBadTimestamp 签发时间参数不是非负整数.
	ErrBadTimestamp = errors.New("token timestamp is not a non-negative integer")
	// ErrExpired 令牌已超过有效期.
	ErrExpired = errors.New("token expired")
)

// Payload 令牌解码后的内容.
type Payload struct {
	// ResourceURL 上游资源地址，保留签发时间参数原样.
	ResourceURL string
	// IssuedAtMillis 签发时间（Unix 毫秒），仅在 Timestamped 为 true 时有效.
	IssuedAtMillis int64
	// Timestamped URL 是否携带签发时间参数；不携带时不做过期检查.
	Timestamped bool
}

// IssuedAt 返回签发时间.
func (p Payload) IssuedAt() time.Time {
	return time.UnixMilli(p.IssuedAtMillis)
}

// AgeMillis 返回相对 now 的令牌年龄（毫秒），签发时间在未来时为负数.
func (p Payload) AgeMillis(now time.Time) int64 {
	return now.UnixMilli() - p.IssuedAtMillis
}

// Host 返回上游主机名，用于日志.
func (p Payload) Host() string {
	u, err := url.Parse(p.ResourceURL)
	if err != nil {
		return ""
	}

	return u.Host
}

// Verifier 解码令牌并检查有效期.
type Verifier struct {
	codec Codec
	param string
	ttl   time.Duration
	now   func() time.Time
}

// VerifierOption 自定义 Verifier.
type VerifierOption func(*Verifier)

// WithClock 替换时钟，用于测试.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier 创建令牌校验器. param 为空时使用 configs.DefaultTimestampParam.
func NewVerifier(codec Codec, param string, ttl time.Duration, opts ...VerifierOption) *Verifier {
	if param == "" {
		param = configs.DefaultTimestampParam
	}

	v := &Verifier{codec: codec, param: param, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Decode 将令牌还原为 Payload，不做过期检查.
func (v *Verifier) Decode(tok string) (Payload, error) {
	raw, err := v.codec.Decode(tok)
	if err != nil {
		return Payload{}, err
	}

	return ParsePayload(raw, v.param)
}

// Verify 解码令牌并要求 now - t 不超过有效期；URL 不带时间参数时视为不过期.
func (v *Verifier) Verify(tok string) (Payload, error) {
	p, err := v.Decode(tok)
	if err != nil {
		return Payload{}, err
	}

	if !p.Timestamped {
		return p, nil
	}

	if age := p.AgeMillis(v.now()); age > v.ttl.Milliseconds() {
		return p, fmt.Errorf("%w: age %dms exceeds %s", ErrExpired, age, v.ttl)
	}

	return p, nil
}

// ParsePayload 校验资源 URL 并解析其中的签发时间参数.
func ParsePayload(raw, param string) (Payload, error) {
	if err := rule.ValidateVar(raw, rule.MediaURL); err != nil {
		return Payload{}, ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Payload{}, ErrInvalidURL
	}

	p := Payload{ResourceURL: raw}

	ts := u.Query().Get(param)
	if ts == "" {
		return p, nil
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || millis < 0 {
		return Payload{}, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}

	p.IssuedAtMillis = millis
	p.Timestamped = true

	return p, nil
}

// Issuer 按生产方约定签发令牌：追加签发时间参数后编码.
type Issuer struct {
	codec Codec
	param string
	now   func() time.Time
}

// NewIssuer 创建令牌签发器. now 为 nil 时使用 time.Now.
func NewIssuer(codec Codec, param string, now func() time.Time) *Issuer {
	if param == "" {
		param = configs.DefaultTimestampParam
	}

	if now == nil {
		now = time.Now
	}

	return &Issuer{codec: codec, param: param, now: now}
}

// Issue 为资源 URL 追加当前毫秒时间戳并编码，已有的同名参数会被覆盖.
func (i *Issuer) Issue(resourceURL string) (string, error) {
	stamped, err := Stamp(resourceURL, i.param, i.now())
	if err != nil {
		return "", err
	}

	return i.codec.Encode(stamped)
}

// Stamp 在 URL 上设置签发时间参数.
func Stamp(resourceURL, param string, at time.Time) (string, error) {
	if err := rule.ValidateVar(resourceURL, rule.MediaURL); err != nil {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(resourceURL)
	if err != nil {
		return "", ErrInvalidURL
	}

	stamp := url.QueryEscape(param) + "=" + strconv.FormatInt(at.UnixMilli(), 10)

	switch q := u.Query(); {
	case q.Has(param):
		q.Set(param, strconv.FormatInt(at.UnixMilli(), 10))
		u.RawQuery = q.Encode()
	case u.RawQuery == "":
		u.RawQuery = stamp
	default:
		// 保留原有参数顺序
		u.RawQuery += "&" + stamp
	}

	return u.String(), nil
}
