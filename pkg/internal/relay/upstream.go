package relay

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/mediarelay/pkg/configs"
	appctx "github.com/yeisme/mediarelay/pkg/context"
	"github.com/yeisme/mediarelay/pkg/metrics"
	"github.com/yeisme/mediarelay/pkg/tracing"
)

// Metadata 元数据探测结果.
type Metadata struct {
	// TotalSize 资源大小，未知时为 -1.
	TotalSize    int64
	ContentType  string
	AcceptRanges string
}

// SizeKnown 上游是否报告了资源大小.
func (m Metadata) SizeKnown() bool {
	return m.TotalSize >= 0
}

// Upstream 区间请求的响应，Body 为未读取的字节流.
type Upstream struct {
	Status int
	Header http.Header
	Body   io.ReadCloser

	cancel context.CancelCauseFunc
}

// Honored 上游是否按区间返回了 206.
func (u *Upstream) Honored() bool {
	return u.Status == http.StatusPartialContent
}

// Close 关闭上游响应体并释放连接.
func (u *Upstream) Close() error {
	if u == nil {
		return nil
	}

	var err error
	if u.Body != nil {
		err = u.Body.Close()
	}

	if u.cancel != nil {
		u.cancel(context.Canceled)
	}

	return err
}

// Fetcher 对上游执行元数据探测和区间请求，每次客户端请求各至多一次，不重试.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	breakers  *breakerSet
}

// NewTransport 按中继配置构建上游 Transport. 关闭透明解压，保证字节偏移与上游一致.
func NewTransport(cfg configs.RelayConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
}

// NewFetcher 创建 Fetcher. client 为 nil 时使用 NewTransport 构建的客户端.
func NewFetcher(cfg configs.RelayConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Transport: NewTransport(cfg)}
	}

	return &Fetcher{
		client:    client,
		timeout:   cfg.UpstreamTimeout,
		userAgent: cfg.UserAgent,
	}
}

func (f *Fetcher) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept-Encoding", "identity")

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	if id := appctx.GetRequestID(ctx); id != "" {
		req.Header.Set(appctx.RequestIDHeader, id)
	}

	tracing.Inject(ctx, req.Header)

	return req, nil
}

// Probe 发送 HEAD 请求获取资源大小. 非 2xx 返回 UpstreamMetadataError 并透传状态码；
// 上游主机熔断时返回 UpstreamUnavailable.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (Metadata, error) {
	var meta Metadata

	err := f.breakers.do(rawURL, func() error {
		var err error
		meta, err = f.head(ctx, rawURL)

		return err
	})

	return meta, err
}

func (f *Fetcher) head(ctx context.Context, rawURL string) (Metadata, error) {
	ctx, span := tracing.StartSpan(ctx, "relay.upstream.probe", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeoutCause(ctx, f.timeout, ErrUpstreamTimeout)
	defer cancel()

	req, err := f.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return Metadata{}, fail(span, unexpected(ctx, err))
	}

	start := time.Now()
	resp, err := f.client.Do(req)

	metrics.UpstreamDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds())

	if err != nil {
		return Metadata{}, fail(span, unexpected(ctx, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if !successful(resp.StatusCode) {
		return Metadata{}, fail(span,
			upstreamStatusError(KindUpstreamMetadata, resp.StatusCode, "Failed to fetch video metadata"))
	}

	meta := Metadata{
		TotalSize:    contentLength(resp),
		ContentType:  resp.Header.Get("Content-Type"),
		AcceptRanges: resp.Header.Get("Accept-Ranges"),
	}
	span.SetAttributes(attribute.Int64("relay.total_size", meta.TotalSize))

	return meta, nil
}

// Fetch 按协商区间发送 GET 请求. 2xx（含忽略区间的 200）视为成功，
// 其它状态返回 UpstreamFetchError. 超时只约束到响应头返回为止，
// 之后响应体的生命周期跟随 ctx（客户端请求）和 Upstream.Close.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, n Negotiation) (*Upstream, error) {
	var up *Upstream

	err := f.breakers.do(rawURL, func() error {
		var err error
		up, err = f.get(ctx, rawURL, n)

		return err
	})

	return up, err
}

func (f *Fetcher) get(ctx context.Context, rawURL string, n Negotiation) (*Upstream, error) {
	ctx, span := tracing.StartSpan(ctx, "relay.upstream.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(f.timeout, func() { cancel(ErrUpstreamTimeout) })

	req, err := f.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		timer.Stop()
		cancel(err)

		return nil, fail(span, unexpected(ctx, err))
	}

	if r := n.UpstreamRange(); r != "" {
		req.Header.Set("Range", r)
		span.SetAttributes(attribute.String("http.range", r))
	}

	start := time.Now()
	resp, err := f.client.Do(req)

	metrics.UpstreamDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())

	if !timer.Stop() && err == nil {
		// 响应头与截止时间同时到达，响应体已不可用
		resp.Body.Close()
		err = ErrUpstreamTimeout
	}

	if err != nil {
		rerr := unexpected(ctx, err)
		cancel(err)

		return nil, fail(span, rerr)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if !successful(resp.StatusCode) {
		resp.Body.Close()
		cancel(context.Canceled)

		return nil, fail(span, upstreamStatusError(KindUpstreamFetch, resp.StatusCode,
			"Failed to fetch video: "+statusText(resp)))
	}

	return &Upstream{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   resp.Body,
		cancel: cancel,
	}, nil
}

func successful(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// contentLength 读取资源大小，缺失或非法时为 -1.
func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}

	v := strings.TrimSpace(resp.Header.Get("Content-Length"))
	if v == "" {
		return -1
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}

	return n
}

// statusText 返回上游的原因短语，例如 "Not Found".
func statusText(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}

	return http.StatusText(resp.StatusCode)
}

func fail(span trace.Span, err *Error) *Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Kind))

	return err
}
