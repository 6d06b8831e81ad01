package handle

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	appctx "github.com/yeisme/mediarelay/pkg/context"
	"github.com/yeisme/mediarelay/pkg/internal/relay"
	"github.com/yeisme/mediarelay/pkg/internal/types"
	"github.com/yeisme/mediarelay/pkg/metrics"
)

const (
	outcomeOK          = "ok"
	outcomeClientGone  = "client_disconnected"
	outcomeInterrupted = "stream_interrupted"
)

// StreamService 打开上游媒体流，由 relay.Service 实现.
type StreamService interface {
	Open(ctx context.Context, req *types.StreamRequest) (*relay.Stream, error)
}

// StreamHandlers 媒体流中继处理器.
type StreamHandlers struct {
	svc        StreamService
	tokenParam string
}

// NewStreamHandlers 创建处理器，tokenParam 为令牌所在的查询参数名.
func NewStreamHandlers(svc StreamService, tokenParam string) *StreamHandlers {
	return &StreamHandlers{svc: svc, tokenParam: tokenParam}
}

// Stream 按字节区间转发限时令牌指向的媒体资源.
//
//	@Summary		媒体流中继
//	@Description	解码令牌 u 得到资源地址，校验有效期后向上游发起区间请求并原样转发响应体.
//	@Description	请求携带 Range 时返回 206，否则返回 200. 错误响应为纯文本.
//	@Tags			媒体流
//	@Produce		application/octet-stream
//	@Param			u		query		string	true	"base64 编码的资源地址（含签发时间 t，毫秒）"
//	@Param			Range	header		string	false	"字节区间，例如 bytes=0-1023"
//	@Success		200		{file}		file	"完整内容"
//	@Success		206		{file}		file	"区间内容"
//	@Failure		400		{string}	string	"令牌缺失、无效或已过期"
//	@Failure		416		{string}	string	"区间起点超出资源大小"
//	@Failure		500		{string}	string	"上游网络错误"
//	@Failure		503		{string}	string	"上游主机已熔断"
//	@Failure		504		{string}	string	"上游超时"
//	@Router			/api/v1/stream [get]
func (h *StreamHandlers) Stream() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		l := appctx.Logger(ctx)

		req := types.StreamRequest{
			Token: c.Query(h.tokenParam),
			Range: c.GetHeader("Range"),
		}

		st, err := h.svc.Open(ctx, &req)
		if err != nil {
			writeError(c, err)
			return
		}
		defer st.Close()

		written, err := st.Send(ctx, c.Writer)
		if err == nil {
			metrics.RelayRequests.WithLabelValues(outcomeOK).Inc()
			l.Debug().Int("status", st.Status()).Int64("bytes", written).Msg("stream completed")

			return
		}

		if !relay.IsStreamError(err) && !c.Writer.Written() {
			l.Error().Err(err).Msg("failed to prepare stream body")
			writeError(c, err)

			return
		}

		// 响应头已写出，只能中断连接并记录
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			metrics.RelayRequests.WithLabelValues(outcomeClientGone).Inc()
			l.Debug().Int64("bytes", written).Msg("client disconnected during stream")

			return
		}

		metrics.RelayRequests.WithLabelValues(outcomeInterrupted).Inc()
		l.Warn().Err(err).Int64("bytes", written).Msg("stream interrupted")
	}
}
