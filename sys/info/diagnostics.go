package info

import (
	"context"
	"sync"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/ioctl"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

// LinkFacts 链路诊断得到的协商参数. Speed 为 0 表示未知.
type LinkFacts struct {
	Speed  int
	Duplex network.Duplex
	Port   string
}

// linkResult 诊断任务的不可变结果, 由编排者统一写回记录.
type linkResult struct {
	name  string
	facts LinkFacts
	probe string
	err   error
}

// EthtoolProbe 执行 ethtool CLI. path 为空时在 PATH 与 sbin 目录中查找.
func EthtoolProbe(path string) Probe[LinkFacts] {
	return Probe[LinkFacts]{
		Name: "ethtool",
		Run: func(ctx context.Context, iface string) (LinkFacts, error) {
			p := path
			if p == "" {
				var err error
				if p, err = ioctl.LookPath("ethtool", ioctl.SbinDirs...); err != nil {
					return LinkFacts{}, err
				}
			}
			info, err := ioctl.Ethtool(ctx, p, iface)
			if err != nil {
				return LinkFacts{}, err
			}
			return LinkFacts{Speed: info.Speed, Duplex: network.ParseDuplex(info.Duplex), Port: info.Port}, nil
		},
	}
}

// SysfsLinkProbe 读取 /sys/class/net/<iface>/speed 与 duplex.
func SysfsLinkProbe(sysfs *ioctl.SysfsNet) Probe[LinkFacts] {
	return Probe[LinkFacts]{
		Name: "sysfs",
		Run: func(_ context.Context, iface string) (LinkFacts, error) {
			speed, err := sysfs.Speed(iface)
			if err != nil {
				return LinkFacts{}, err
			}
			facts := LinkFacts{Speed: speed, Duplex: network.DuplexUnknown}
			if d, e := sysfs.Duplex(iface); e == nil {
				facts.Duplex = network.ParseDuplex(d)
			}
			return facts, nil
		},
	}
}

// diagnose 并发诊断 targets, 每个任务受 DiagnosticTimeout 约束.
// 任务只通过 channel 返回结果, 不触碰共享记录.
func (c *Collector) diagnose(ctx context.Context, targets []string, once *onceLogger) map[string]linkResult {
	results := make(map[string]linkResult, len(targets))
	if len(targets) == 0 || len(c.linkProbes) == 0 {
		return results
	}

	size := len(targets)
	if c.cfg.DiagnosticConcurrency > 0 && c.cfg.DiagnosticConcurrency < size {
		size = c.cfg.DiagnosticConcurrency
	}

	var wg sync.WaitGroup
	resultCh := make(chan linkResult, len(targets))
	task := func(i interface{}) {
		defer wg.Done()
		name := i.(string)
		tctx, cancel := context.WithTimeout(ctx, c.cfg.DiagnosticTimeout)
		defer cancel()
		facts, probe, err := runProbes(tctx, c.linkProbes, name, func(probe string, err error) {
			c.metrics.probeFailures.WithLabelValues(probe, failureKind(err)).Inc()
			if errors.Is(err, network.ErrSourceUnavailable) {
				once.Warnf("link:"+probe, "link probe %s unavailable: %v", probe, err)
				return
			}
			logger.Debugf("link probe %s failed: %v", probe, err)
		})
		resultCh <- linkResult{name: name, facts: facts, probe: probe, err: err}
	}

	pool, err := ants.NewPoolWithFunc(size, task)
	if err != nil {
		logger.Errorf("diagnose can not init pool: %v", err)
		return results
	}
	defer pool.Release()

	for _, name := range targets {
		wg.Add(1)
		if err = pool.Invoke(name); err != nil {
			wg.Done()
			logger.Errorf("diagnose invoke %s err=%v", name, err)
		}
	}
	wg.Wait()
	close(resultCh)

	for r := range resultCh {
		results[r.name] = r
	}
	return results
}
