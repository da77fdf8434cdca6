package info

import (
	"context"
	"sync"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/util"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
)

// ErrNoResult 探测正常结束但没有得出结论.
var ErrNoResult = errors.New("probe produced no result")

// Probe 一种探测手段. Run 应当尊重 ctx, 不尊重者在 ctx 到期时被放弃.
type Probe[T any] struct {
	Name string
	Run  func(ctx context.Context, name string) (T, error)
}

// attempt 在独立 goroutine 中运行一次探测, ctx 结束即返回.
func attempt[T any](ctx context.Context, p Probe[T], iface string) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := p.Run(ctx, iface)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrapf(network.ErrSourceTimeout, "%s(%s): %v", p.Name, iface, ctx.Err())
	}
}

// runProbes 依次尝试, 返回第一个成功的结果和对应探测名.
func runProbes[T any](ctx context.Context, probes []Probe[T], iface string, onFail func(probe string, err error)) (T, string, error) {
	var zero T
	for _, p := range probes {
		if util.Cancelled(ctx) {
			return zero, "", errors.Wrapf(network.ErrSourceTimeout, "%s: %v", iface, ctx.Err())
		}
		v, err := attempt(ctx, p, iface)
		if err == nil {
			return v, p.Name, nil
		}
		if onFail != nil {
			onFail(p.Name, err)
		}
	}
	return zero, "", ErrNoResult
}

// failureKind 把探测错误归类为指标标签.
func failureKind(err error) string {
	switch {
	case errors.Is(err, network.ErrSourceUnavailable):
		return "unavailable"
	case errors.Is(err, network.ErrSourceTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, network.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrNoResult):
		return "no_result"
	default:
		return "error"
	}
}

// onceLogger 同一 key 在一次扫描内只记录一次.
type onceLogger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newOnceLogger() *onceLogger {
	return &onceLogger{seen: make(map[string]struct{})}
}

func (l *onceLogger) Warnf(key, format string, args ...interface{}) {
	l.mu.Lock()
	_, ok := l.seen[key]
	l.seen[key] = struct{}{}
	l.mu.Unlock()
	if ok {
		logger.Debugf(format, args...)
		return
	}
	logger.Warnf(format, args...)
}
