// Package relay 实现限时的字节区间媒体流中继：
// 校验令牌 → 探测上游元数据 → 协商区间 → 区间请求 → 原样转发响应体.
//
// 每个请求独立处理，不在请求之间共享可变状态. 响应体直接从上游流向客户端，
// 内存占用只与缓冲区大小有关.
package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/token"
	"github.com/yeisme/mediarelay/pkg/internal/types"
	"github.com/yeisme/mediarelay/pkg/tracing"
)

// Service 中继服务，可被多个请求并发使用.
type Service struct {
	verifier *token.Verifier
	fetcher  *Fetcher
	composer *Composer
	now      func() time.Time
}

type options struct {
	client  *http.Client
	codec   token.Codec
	now     func() time.Time
	breaker configs.CircuitBreakerConfig
}

// Option 自定义 Service.
type Option func(*options)

// WithHTTPClient 使用指定的上游 HTTP 客户端.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// WithCodec 使用指定的令牌编解码器，覆盖配置中的 token_codec.
func WithCodec(codec token.Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithCircuitBreaker 按上游主机开启熔断，cfg.Enabled 为 false 时不生效.
func WithCircuitBreaker(cfg configs.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithClock 替换时钟，用于测试令牌过期.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewService 按中继配置创建服务.
func NewService(cfg configs.RelayConfig, opts ...Option) (*Service, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if o.codec == nil {
		codec, err := token.NewCodec(cfg)
		if err != nil {
			return nil, err
		}

		o.codec = codec
	}

	fetcher := NewFetcher(cfg, o.client)
	fetcher.breakers = newBreakerSet(o.breaker)

	return &Service{
		verifier: token.NewVerifier(o.codec, cfg.TimestampParam, cfg.TokenTTL, token.WithClock(o.now)),
		fetcher:  fetcher,
		composer: NewComposer(cfg),
		now:      o.now,
	}, nil
}

// Stream 已打开的上游流，调用方负责 Send 和 Close.
type Stream struct {
	Payload     token.Payload
	Metadata    Metadata
	Negotiation Negotiation

	upstream *Upstream
	composer *Composer
}

// Open 依次完成令牌校验、元数据探测、区间协商和区间请求，失败时返回 *Error.
// 返回前不写任何响应字节.
func (s *Service) Open(ctx context.Context, req *types.StreamRequest) (*Stream, error) {
	ctx, span := tracing.StartSpan(ctx, "relay.open")
	defer span.End()

	l := zerolog.Ctx(ctx)

	if req == nil || strings.TrimSpace(req.Token) == "" {
		return nil, fail(span, MissingParameter())
	}

	payload, err := s.verifier.Verify(req.Token)
	if err != nil {
		rerr := tokenError(err)
		l.Warn().Err(err).Str("kind", string(rerr.Kind)).Msg("rejected stream token")

		return nil, fail(span, rerr)
	}

	host := payload.Host()
	span.SetAttributes(attribute.String("relay.upstream_host", host))

	event := l.Info().Str("upstream_host", host)
	if payload.Timestamped {
		event = event.Int64("token_age_ms", payload.AgeMillis(s.now()))
	}

	event.Msg("received stream request")

	meta, err := s.fetcher.Probe(ctx, payload.ResourceURL)
	if err != nil {
		l.Warn().Err(err).Str("upstream_host", host).Msg("upstream metadata probe failed")

		return nil, err
	}

	l.Debug().
		Bool("size_known", meta.SizeKnown()).
		Int64("total_size", meta.TotalSize).
		Str("content_type", meta.ContentType).
		Str("accept_ranges", meta.AcceptRanges).
		Msg("upstream metadata")

	n, err := Negotiate(req.Range, meta.TotalSize)
	if err != nil {
		l.Warn().Str("range", req.Range).Int64("total_size", meta.TotalSize).Msg("range not satisfiable")

		return nil, fail(span, AsError(err))
	}

	l.Debug().
		Str("range", req.Range).
		Int64("start", n.Range.Start).
		Int64("end", n.Range.End).
		Bool("partial", n.Partial).
		Msg("negotiated range")

	up, err := s.fetcher.Fetch(ctx, payload.ResourceURL, n)
	if err != nil {
		l.Warn().Err(err).Str("upstream_host", host).Msg("upstream range fetch failed")

		return nil, err
	}

	if n.Partial && !up.Honored() {
		l.Debug().Int("upstream_status", up.Status).Msg("upstream ignored range request")
	}

	span.SetStatus(codes.Ok, "")

	return &Stream{
		Payload:     payload,
		Metadata:    meta,
		Negotiation: n,
		upstream:    up,
		composer:    s.composer,
	}, nil
}

// Status 将写给客户端的状态码.
func (st *Stream) Status() int {
	return StatusCode(st.Negotiation)
}

// Send 写出响应. 返回 *StreamError 时状态行已写出.
func (st *Stream) Send(ctx context.Context, w http.ResponseWriter) (int64, error) {
	_, span := tracing.StartSpan(ctx, "relay.stream")
	defer span.End()

	written, err := st.composer.Send(w, st.Negotiation, st.Metadata, st.upstream)
	span.SetAttributes(attribute.Int64("relay.bytes", written))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream interrupted")
	}

	return written, err
}

// Close 释放上游连接，可重复调用.
func (st *Stream) Close() error {
	if st == nil {
		return nil
	}

	return st.upstream.Close()
}
