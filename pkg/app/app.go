// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/mediarelay/pkg/api"
	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/relay"
	"github.com/yeisme/mediarelay/pkg/log"
	"github.com/yeisme/mediarelay/pkg/metrics"
	"github.com/yeisme/mediarelay/pkg/middleware"
	"github.com/yeisme/mediarelay/pkg/tracing"
)

type App struct {
	Engine *gin.Engine
	config *configs.AppConfig
}

// NewApp 加载配置并初始化日志、追踪、监控和中继服务.
func NewApp(configPath string) (*App, error) {
	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	log.Init()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return New(config)
}

// New 使用给定配置构建应用，不读取全局配置.
func New(config *configs.AppConfig) (*App, error) {
	svc, err := relay.NewService(config.Relay, relay.WithCircuitBreaker(config.CircuitBreaker))
	if err != nil {
		return nil, fmt.Errorf("init relay: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(middleware.Stack(config, api.StreamPath)...)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	api.RegisterGroup(engine, svc, config)

	return &App{
		Engine: engine,
		config: config,
	}, nil
}

// Addr 监听地址.
func (a *App) Addr() string {
	return net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port))
}

// Run 启动 HTTP 服务，ctx 取消后在 shutdown_timeout 内优雅关闭.
// 流式响应没有写超时，关闭时仍在传输的流会在超时后被强制断开.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()

	srv := &http.Server{
		Addr:              a.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return l.WithContext(context.Background()) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Str("version", configs.AppVersion).Msg("mediarelay listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		l.Info().Msg("shutting down")

		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Warn().Err(err).Msg("graceful shutdown timed out, closing connections")
			_ = srv.Close()
		}

		if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
			l.Warn().Err(err).Msg("failed to flush traces")
		}

		return nil
	})

	return g.Wait()
}
