package relay

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/log"
)

const (
	breakerSweepInterval = 10 * time.Minute
	breakerIdleTTL       = 30 * time.Minute
)

type breakerEntry struct {
	cb       *gobreaker.CircuitBreaker
	lastSeen time.Time
}

// breakerSet 按上游主机维护熔断器，一个上游故障不影响其它上游.
// 只有上游 5xx、超时和网络错误计为失败.
type breakerSet struct {
	cfg configs.CircuitBreakerConfig

	mu        sync.Mutex
	entries   map[string]*breakerEntry
	lastSweep time.Time
}

// newBreakerSet 未开启熔断时返回 nil，nil 集合直接执行请求.
func newBreakerSet(cfg configs.CircuitBreakerConfig) *breakerSet {
	if !cfg.Enabled {
		return nil
	}

	return &breakerSet{
		cfg:       cfg,
		entries:   map[string]*breakerEntry{},
		lastSweep: time.Now(),
	}
}

func (s *breakerSet) settings(host string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        host,
		MaxRequests: s.cfg.MaxRequestsInHalf,
		Interval:    time.Duration(s.cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(s.cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.cfg.MinRequests {
				return false
			}
			// 失败比例
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.cfg.FailureRate
		},
		IsSuccessful: func(err error) bool {
			return !upstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger().Warn().
				Str("upstream_host", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
}

func (s *breakerSet) get(host string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastSweep) >= breakerSweepInterval {
		s.evict(now.Add(-breakerIdleTTL))
		s.lastSweep = now
	}

	e, ok := s.entries[host]
	if !ok {
		e = &breakerEntry{cb: gobreaker.NewCircuitBreaker(s.settings(host))}
		s.entries[host] = e
	}

	e.lastSeen = now

	return e.cb
}

// evict 清理空闲的闭合熔断器，调用方持有锁.
func (s *breakerSet) evict(before time.Time) {
	for host, e := range s.entries {
		if e.lastSeen.Before(before) && e.cb.State() == gobreaker.StateClosed {
			delete(s.entries, host)
		}
	}
}

// do 在 rawURL 所属主机的熔断器内执行 fn. 熔断打开时不调用 fn，返回 UpstreamUnavailable.
func (s *breakerSet) do(rawURL string, fn func() error) error {
	if s == nil {
		return fn()
	}

	host := hostOf(rawURL)

	_, err := s.get(host).Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return upstreamUnavailable(host, err)
	}

	return err
}

// upstreamFailure 上游 5xx、超时和网络错误计入熔断；4xx 和客户端取消不计入.
func upstreamFailure(err error) bool {
	if err == nil {
		return false
	}

	rerr := AsError(err)

	switch rerr.Kind {
	case KindUpstreamTimeout:
		return true
	case KindUpstreamMetadata, KindUpstreamFetch:
		return rerr.Status >= http.StatusInternalServerError
	case KindUnexpected:
		return !errors.Is(err, context.Canceled)
	default:
		return false
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	return u.Host
}
