package info

import (
	"context"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/ioctl"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
)

func bootProtoResult(source, proto string) (network.IPConfigType, error) {
	switch proto {
	case ioctl.BootProtoDHCP:
		return network.IPConfigDHCP, nil
	case ioctl.BootProtoStatic:
		return network.IPConfigStatic, nil
	default:
		return network.IPConfigUnknown, errors.Wrapf(ErrNoResult, "%s: bootproto %q", source, proto)
	}
}

// DHCPProcessProbe 存在作用于该接口的 DHCP 客户端进程即为 DHCP.
func DHCPProcessProbe() Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{
		Name: "dhcp_process",
		Run: func(ctx context.Context, iface string) (network.IPConfigType, error) {
			procs, err := ioctl.ListDHCPClientProcesses(ctx)
			if err != nil {
				return network.IPConfigUnknown, err
			}
			if client, ok := ioctl.MatchDHCPClient(procs, iface); ok {
				logger.Debugf("%s: dhcp client %s running", iface, client)
				return network.IPConfigDHCP, nil
			}
			return network.IPConfigUnknown, ErrNoResult
		},
	}
}

// NetworkManagerProbe 通过 D-Bus 读取设备的 Dhcp4Config / Ip4Config.
func NetworkManagerProbe() Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{
		Name: "networkmanager",
		Run: func(ctx context.Context, iface string) (network.IPConfigType, error) {
			dhcp4, ip4, err := ioctl.NMDeviceIPv4(ctx, iface)
			if err != nil {
				return network.IPConfigUnknown, err
			}
			return bootProtoResult("networkmanager", ioctl.NMBootProto(string(dhcp4), string(ip4)))
		},
	}
}

// NetworkdProbe systemd-networkd 处于运行状态时解析匹配的 .network 文件.
func NetworkdProbe(rootDir string) Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{
		Name: "networkd",
		Run: func(ctx context.Context, iface string) (network.IPConfigType, error) {
			active, err := ioctl.UnitActive(ctx, ioctl.NetworkdUnit)
			if err != nil {
				return network.IPConfigUnknown, err
			}
			if !active {
				return network.IPConfigUnknown, errors.Wrap(ErrNoResult, "systemd-networkd inactive")
			}
			m, err := ioctl.DetectNetworkdConfig(rootDir, iface)
			if err != nil {
				return network.IPConfigUnknown, errors.Wrap(ErrNoResult, err.Error())
			}
			return bootProtoResult(m.ConfigPath(), m.GetIPv4BootProto())
		},
	}
}

// ConfigFileProbe 依次查找 ifcfg、interfaces、nmconnection 静态配置.
func ConfigFileProbe(rootDir string) Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{
		Name: "config_file",
		Run: func(_ context.Context, iface string) (network.IPConfigType, error) {
			m, err := ioctl.DetectIfCfgAndGenerateManager(rootDir, iface)
			if err != nil {
				return network.IPConfigUnknown, errors.Wrap(ErrNoResult, err.Error())
			}
			return bootProtoResult(m.ConfigPath(), m.GetIPv4BootProto())
		},
	}
}

// NmcliProbe 弱启发: nmcli 报告为已连接的以太网设备视为 DHCP.
// 手工配置静态地址的 NetworkManager 连接会被误判.
func NmcliProbe(path string) Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{
		Name: "nmcli",
		Run: func(ctx context.Context, iface string) (network.IPConfigType, error) {
			p := path
			if p == "" {
				var err error
				if p, err = ioctl.LookPath("nmcli"); err != nil {
					return network.IPConfigUnknown, err
				}
			}
			devices, err := ioctl.NmcliDevices(ctx, p)
			if err != nil {
				return network.IPConfigUnknown, err
			}
			for _, d := range devices {
				if d.Device == iface && d.Type == "ethernet" && strings.HasPrefix(d.State, "connected") {
					return network.IPConfigDHCP, nil
				}
			}
			return network.IPConfigUnknown, ErrNoResult
		},
	}
}

func defaultIPConfigProbes(rootDir string) []Probe[network.IPConfigType] {
	return []Probe[network.IPConfigType]{
		DHCPProcessProbe(),
		NetworkManagerProbe(),
		NetworkdProbe(rootDir),
		ConfigFileProbe(rootDir),
		NmcliProbe(""),
	}
}

// DetectIPConfigType 判定接口的 IPv4 地址来源, 结果按接口名缓存.
// 环回与虚拟接口直接返回 Unknown.
func (c *Collector) DetectIPConfigType(ctx context.Context, name string, typ network.InterfaceType) network.IPConfigType {
	return c.detectIPConfig(ctx, name, typ, newOnceLogger())
}

func (c *Collector) detectIPConfig(ctx context.Context, name string, typ network.InterfaceType, once *onceLogger) network.IPConfigType {
	if typ == network.TypeLoopback || typ == network.TypeVirtual {
		return network.IPConfigUnknown
	}

	c.ipMu.Lock()
	if v, ok := c.ipCache[name]; ok {
		c.ipMu.Unlock()
		return v
	}
	c.ipMu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	result, probe, err := runProbes(pctx, c.ipProbes, name, func(probe string, err error) {
		if errors.Is(err, ErrNoResult) {
			return
		}
		c.metrics.probeFailures.WithLabelValues(probe, failureKind(err)).Inc()
		if errors.Is(err, network.ErrSourceUnavailable) {
			once.Warnf("ip:"+probe, "ip config probe %s unavailable: %v", probe, err)
			return
		}
		logger.Debugf("%s: ip config probe %s failed: %v", name, probe, err)
	})
	if err != nil {
		result = network.IPConfigUnknown
	} else {
		logger.Debugf("%s: ip config %s by %s", name, result, probe)
	}

	// 上层 ctx 被取消时结果不可信, 不缓存.
	if ctx.Err() == nil {
		c.ipMu.Lock()
		c.ipCache[name] = result
		c.ipMu.Unlock()
	}
	return result
}

// staticConfigExtra 从静态配置文件读取网关与 DNS, 找不到配置时返回 nil.
func (c *Collector) staticConfigExtra(name string, typ network.InterfaceType) map[string]string {
	if typ == network.TypeLoopback || typ == network.TypeVirtual {
		return nil
	}
	m, err := ioctl.DetectIfCfgAndGenerateManager(c.cfg.ConfigRoot, name)
	if err != nil {
		if m, err = ioctl.DetectNetworkdConfig(c.cfg.ConfigRoot, name); err != nil {
			return nil
		}
	}
	extra := make(map[string]string)
	if gw := m.GetIPv4Gateway(); gw != "" {
		extra[network.ExtraGateway] = gw
	}
	if dns := m.GetIPv4DNS(); len(dns) > 0 {
		extra[network.ExtraDNS] = strings.Join(dns, ",")
	}
	return extra
}
