package info

import (
	"context"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/ioctl"
	"github.com/kisun-bit/netgrid/util"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
	gnet "github.com/shirou/gopsutil/v3/net"
)

// RawInterface 发现阶段得到的未加工事实, 字段缺失即为空值.
type RawInterface struct {
	ioctl.LinkInfo

	HasDevice  bool
	Driver     string
	Carrier    string
	DeviceType string

	// 以下字段由 Authoritative 来源直接给出.
	Type        network.InterfaceType
	Speed       int
	Duplex      network.Duplex
	IPConfig    network.IPConfigType
	Vendor      string
	Description string

	// Authoritative 为 true 时跳过 sysfs 补全, 链路诊断与 IP 配置探测.
	Authoritative bool
}

// DiscoverySource 一种接口发现策略.
type DiscoverySource interface {
	Name() string
	Discover(ctx context.Context) ([]RawInterface, error)
}

func fromLinks(links []ioctl.LinkInfo) []RawInterface {
	raws := make([]RawInterface, 0, len(links))
	for _, l := range links {
		raws = append(raws, RawInterface{LinkInfo: l, HasDevice: l.ParentBus != ""})
	}
	return raws
}

// IPRouteSource 执行一次 `ip -j -d addr show` 取得全部接口.
type IPRouteSource struct {
	IPPath string
}

func (s *IPRouteSource) Name() string {
	return DiscoveryIPRoute
}

func (s *IPRouteSource) Discover(ctx context.Context) ([]RawInterface, error) {
	ipPath := s.IPPath
	if ipPath == "" {
		p, err := ioctl.LookPath("ip", ioctl.SbinDirs...)
		if err != nil {
			return nil, err
		}
		ipPath = p
	}
	links, err := ioctl.IPAddrShow(ctx, ipPath)
	if err != nil {
		return nil, err
	}
	return fromLinks(links), nil
}

type NetlinkSource struct{}

func (NetlinkSource) Name() string {
	return DiscoveryNetlink
}

func (NetlinkSource) Discover(ctx context.Context) ([]RawInterface, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(network.ErrSourceTimeout, err.Error())
	}
	links, err := ioctl.NetlinkLinks()
	if err != nil {
		return nil, err
	}
	return fromLinks(links), nil
}

// SysfsSource 逐个读取 /sys/class/net 下的属性, 地址取自一次 gopsutil 快照.
type SysfsSource struct {
	Sysfs *ioctl.SysfsNet
	// Addresses 返回 名称 -> 地址列表, 为空时使用 gopsutil.
	Addresses func(ctx context.Context) (map[string][]string, error)
}

func NewSysfsSource(root string) *SysfsSource {
	return &SysfsSource{Sysfs: ioctl.NewSysfsNet(root), Addresses: systemAddresses}
}

func (s *SysfsSource) Name() string {
	return DiscoverySysfs
}

func (s *SysfsSource) Discover(ctx context.Context) ([]RawInterface, error) {
	names, err := s.Sysfs.List()
	if err != nil {
		return nil, errors.Wrap(network.ErrSourceUnavailable, err.Error())
	}
	if len(names) == 0 {
		return []RawInterface{}, nil
	}

	addrs := map[string][]string{}
	if s.Addresses != nil {
		if m, e := s.Addresses(ctx); e != nil {
			logger.Warnf("SysfsSource: address snapshot failed: %v", e)
		} else {
			addrs = m
		}
	}

	raws := make([]RawInterface, 0, len(names))
	for _, name := range names {
		raw := RawInterface{
			LinkInfo: ioctl.LinkInfo{
				Name:      name,
				Flags:     make([]string, 0),
				Addresses: append(make([]string, 0), addrs[name]...),
			},
			HasDevice: s.Sysfs.HasDevice(name),
		}
		if v, e := s.Sysfs.ReadAttr(name, "operstate"); e == nil {
			raw.OperState = v
		}
		if v, e := s.Sysfs.ReadAttr(name, "address"); e == nil {
			raw.HardwareAddr = v
		}
		if v, e := s.Sysfs.ReadInt(name, "mtu"); e == nil {
			raw.MTU = int(v)
		}
		if v, e := s.Sysfs.ReadInt(name, "tx_queue_len"); e == nil {
			raw.TxQueueLen = int(v)
		}
		if v, e := s.Sysfs.Flags(name); e == nil {
			raw.Flags = v
		}
		if v, e := s.Sysfs.ReadAttr(name, "carrier"); e == nil {
			raw.Carrier = v
		}
		if v, e := s.Sysfs.ReadAttr(name, "type"); e == nil {
			raw.DeviceType = v
			raw.LinkType = linkTypeFromARPHRD(v)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// linkTypeFromARPHRD 把 sysfs type(ARPHRD_*)映射为与 ip -j link_type 一致的名称.
func linkTypeFromARPHRD(v string) string {
	switch strings.TrimSpace(v) {
	case "1":
		return "ether"
	case "772":
		return "loopback"
	case "768":
		return "ipip"
	case "776":
		return "sit"
	case "778":
		return "gre"
	case "823":
		return "ip6gre"
	case "65534":
		return "none"
	case "":
		return ""
	default:
		return "arphrd_" + strings.TrimSpace(v)
	}
}

func systemAddresses(ctx context.Context) (map[string][]string, error) {
	stats, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(network.ErrSourceUnavailable, err.Error())
	}
	out := make(map[string][]string, len(stats))
	for _, st := range stats {
		for _, a := range st.Addrs {
			ip, _, _ := strings.Cut(a.Addr, "/")
			if ip != "" {
				out[st.Name] = append(out[st.Name], ip)
			}
		}
	}
	return out, nil
}

// ChainSource 依次尝试各来源, 返回第一个成功的结果.
type ChainSource struct {
	Sources []DiscoverySource
}

func (c *ChainSource) Name() string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

func (c *ChainSource) Discover(ctx context.Context) ([]RawInterface, error) {
	var lastErr error
	for _, s := range c.Sources {
		raws, err := s.Discover(ctx)
		if err == nil {
			return raws, nil
		}
		logger.Debugf("ChainSource: %s failed: %v", s.Name(), err)
		lastErr = err
		if util.Cancelled(ctx) {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.Wrap(network.ErrSourceUnavailable, "no discovery source configured")
	}
	return nil, lastErr
}

// sourceFor 按配置选择发现策略.
func sourceFor(cfg Config) DiscoverySource {
	if cfg.Mock.Enabled {
		return NewMockSource(cfg.Mock.IncludeVirtual, cfg.Mock.IncludeFiltered)
	}
	switch cfg.Discovery {
	case DiscoveryIPRoute:
		return &IPRouteSource{}
	case DiscoveryNetlink:
		return NetlinkSource{}
	case DiscoverySysfs:
		return NewSysfsSource(cfg.SysfsRoot)
	default:
		return &ChainSource{Sources: []DiscoverySource{
			&IPRouteSource{},
			NetlinkSource{},
			NewSysfsSource(cfg.SysfsRoot),
		}}
	}
}
