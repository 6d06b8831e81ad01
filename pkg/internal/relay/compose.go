package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/metrics"
)

// Composer 组装响应头并把上游字节流原样写给客户端.
type Composer struct {
	contentType string
	passthrough bool
	truncate    bool
	buffers     sync.Pool
}

// NewComposer 按中继配置创建 Composer.
func NewComposer(cfg configs.RelayConfig) *Composer {
	size := cfg.BufferSize
	if size <= 0 {
		size = configs.DefaultBufferSize
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = configs.DefaultContentType
	}

	return &Composer{
		contentType: contentType,
		passthrough: cfg.PassthroughContentType,
		truncate:    cfg.TruncateIgnoredRange,
		buffers: sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}},
	}
}

// ContentType 按覆盖策略返回 Content-Type：默认使用固定值，开启透传时优先使用上游类型.
func (c *Composer) ContentType(meta Metadata) string {
	if c.passthrough && meta.ContentType != "" {
		return meta.ContentType
	}

	return c.contentType
}

// StatusCode 客户端请求了区间时为 206，与上游是否返回 206 无关.
func StatusCode(n Negotiation) int {
	if n.Partial {
		return http.StatusPartialContent
	}

	return http.StatusOK
}

// SetHeaders 写入成功响应的头部.
func (c *Composer) SetHeaders(h http.Header, n Negotiation, meta Metadata) {
	h.Set("Content-Type", c.ContentType(meta))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Access-Control-Allow-Origin", "*")

	if !n.SizeKnown() {
		return
	}

	h.Set("Content-Length", strconv.FormatInt(n.ContentLength(), 10))

	if cr := n.ContentRange(); cr != "" {
		h.Set("Content-Range", cr)
	}
}

// Body 返回要写给客户端的字节流. 上游忽略区间返回完整内容时，
// 开启截取则跳过前 Start 字节并限制为区间长度.
func (c *Composer) Body(n Negotiation, up *Upstream) (io.Reader, error) {
	var body io.Reader = up.Body

	if !n.Partial || up.Honored() || !c.truncate {
		return body, nil
	}

	if n.Range.Start > 0 {
		skipped, err := io.CopyN(io.Discard, up.Body, n.Range.Start)
		if err != nil {
			return nil, fmt.Errorf("skip %d bytes of ignored range (got %d): %w", n.Range.Start, skipped, err)
		}
	}

	if n.Range.Bounded() {
		body = io.LimitReader(body, n.Range.Length())
	}

	return body, nil
}

// Send 写出状态行、头部和响应体，返回写给客户端的字节数.
// 状态行写出后的失败只能返回给调用方记录.
func (c *Composer) Send(w http.ResponseWriter, n Negotiation, meta Metadata, up *Upstream) (int64, error) {
	body, err := c.Body(n, up)
	if err != nil {
		return 0, err
	}

	c.SetHeaders(w.Header(), n, meta)
	w.WriteHeader(StatusCode(n))

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	bufp := c.buffers.Get().(*[]byte)
	defer c.buffers.Put(bufp)

	written, err := io.CopyBuffer(w, body, *bufp)
	metrics.RelayBytes.Add(float64(written))

	if err != nil {
		return written, &StreamError{Written: written, Err: err}
	}

	return written, nil
}

// StreamError 响应头已写出后转发中断.
type StreamError struct {
	Written int64
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", e.Written, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsStreamError 判断错误是否发生在响应头写出之后.
func IsStreamError(err error) bool {
	var serr *StreamError

	return errors.As(err, &serr)
}
