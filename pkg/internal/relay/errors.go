package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yeisme/mediarelay/pkg/internal/token"
)

// Kind 中继失败的分类，也用作指标标签.
type Kind string

const (
	KindMissingParameter    Kind = "missing_parameter"
	KindDecodeError         Kind = "decode_error"
	KindExpired             Kind = "expired"
	KindRangeNotSatisfiable Kind = "range_not_satisfiable"
	KindUpstreamMetadata    Kind = "upstream_metadata_error"
	KindUpstreamFetch       Kind = "upstream_fetch_error"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUnexpected          Kind = "unexpected_error"
)

// ErrUpstreamTimeout 上游在截止时间内没有返回响应头.
var ErrUpstreamTimeout = errors.New("upstream did not respond in time")

// Error 是中继在写出任何响应字节之前的终止性失败.
// Message 面向客户端，Err 仅用于日志.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Header  http.Header
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, status int, msg string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: msg, Err: err}
}

// MissingParameter 请求缺少令牌参数.
func MissingParameter() *Error {
	return newError(KindMissingParameter, http.StatusBadRequest, "Video URL is required", nil)
}

// tokenError 将令牌错误归类为 DecodeError 或 Expired.
func tokenError(err error) *Error {
	switch {
	case errors.Is(err, token.ErrEmptyToken):
		return MissingParameter()
	case errors.Is(err, token.ErrExpired):
		return newError(KindExpired, http.StatusBadRequest, "Video URL is expired", err)
	default:
		return newError(KindDecodeError, http.StatusBadRequest, "Invalid video token", err)
	}
}

// rangeNotSatisfiable 请求起点超出已知资源大小.
func rangeNotSatisfiable(totalSize int64) *Error {
	e := newError(KindRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable,
		"Requested range not satisfiable", nil)
	e.Header = http.Header{}
	e.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", totalSize))

	return e
}

// upstreamStatusError 透传上游状态码.
func upstreamStatusError(kind Kind, status int, msg string) *Error {
	return newError(kind, status, msg, fmt.Errorf("upstream status %d", status))
}

// upstreamUnavailable 上游主机的熔断器处于打开状态，本次请求未发往上游.
func upstreamUnavailable(host string, err error) *Error {
	return newError(KindUpstreamUnavailable, http.StatusServiceUnavailable,
		"Upstream temporarily unavailable", fmt.Errorf("%s: %w", host, err))
}

// unexpected 归类网络错误与其它未预期的失败.
func unexpected(ctx context.Context, err error) *Error {
	if errors.Is(context.Cause(ctx), ErrUpstreamTimeout) || errors.Is(err, ErrUpstreamTimeout) {
		return newError(KindUpstreamTimeout, http.StatusGatewayTimeout, ErrUpstreamTimeout.Error(), err)
	}

	return newError(KindUnexpected, http.StatusInternalServerError, describe(err), err)
}

// describe 返回错误描述；url.Error 只取内层原因，避免把上游地址回显给客户端.
func describe(err error) string {
	if err == nil {
		return http.StatusText(http.StatusInternalServerError)
	}

	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}

	if msg := err.Error(); msg != "" {
		return msg
	}

	return http.StatusText(http.StatusInternalServerError)
}

// AsError 将任意错误转换为 *Error，未分类的错误视为 UnexpectedError.
func AsError(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}

	return newError(KindUnexpected, http.StatusInternalServerError, describe(err), err)
}

// StatusOf 返回错误对应的 HTTP 状态码.
func StatusOf(err error) int {
	return AsError(err).Status
}

// KindOf 返回错误分类.
func KindOf(err error) Kind {
	return AsError(err).Kind
}
