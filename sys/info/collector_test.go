package info

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/ioctl"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type fakeSource struct {
	mu    sync.Mutex
	raws  []RawInterface
	err   error
	calls int
}

func (f *fakeSource) Name() string {
	return "fake"
}

func (f *fakeSource) Discover(context.Context) ([]RawInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.raws, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct {
	mu      sync.Mutex
	vendors map[string]string
	queries [][]string
}

func (f *fakeResolver) ResolveBulk(_ context.Context, addrs []string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, append([]string{}, addrs...))
	out := make(map[string]string, len(addrs))
	for _, a := range addrs {
		out[a] = f.vendors[a]
	}
	return out
}

// countingProbe 记录每个接口被探测的次数.
type countingProbe struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *countingProbe) probe(name string, fn func(ctx context.Context, iface string) (network.IPConfigType, error)) Probe[network.IPConfigType] {
	return Probe[network.IPConfigType]{Name: name, Run: func(ctx context.Context, iface string) (network.IPConfigType, error) {
		p.mu.Lock()
		if p.calls == nil {
			p.calls = make(map[string]int)
		}
		p.calls[iface]++
		p.mu.Unlock()
		return fn(ctx, iface)
	}}
}

func (p *countingProbe) Calls(iface string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[iface]
}

func physical(name, mac string) RawInterface {
	return RawInterface{
		LinkInfo: ioctl.LinkInfo{
			Name:         name,
			HardwareAddr: mac,
			OperState:    "up",
			MTU:          1500,
			Flags:        []string{"UP", "BROADCAST", "RUNNING", "MULTICAST", "LOWER_UP"},
			Addresses:    []string{"10.0.0.1"},
			LinkType:     "ether",
			ParentBus:    "pci",
		},
		HasDevice: true,
	}
}

func staticLinkProbe(speed map[string]int) Probe[LinkFacts] {
	return Probe[LinkFacts]{Name: "static", Run: func(_ context.Context, iface string) (LinkFacts, error) {
		s, ok := speed[iface]
		if !ok {
			return LinkFacts{}, errors.Wrap(network.ErrSourceUnavailable, iface)
		}
		return LinkFacts{Speed: s, Duplex: network.DuplexFull, Port: "Twisted Pair"}, nil
	}}
}

func newTestCollector(t *testing.T, cfg Config, opts ...Option) *Collector {
	t.Helper()
	cfg.SysfsRoot = t.TempDir()
	cfg.ConfigRoot = t.TempDir()
	base := []Option{
		WithRegisterer(prometheus.NewRegistry()),
		WithVendorResolver(nil),
		WithDriverLookup(nil),
		WithLinkProbes(),
		WithIPConfigProbes(),
	}
	c, err := NewCollector(cfg, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestCollectorBuildsRecords(t *testing.T) {
	lo := RawInterface{LinkInfo: ioctl.LinkInfo{
		Name:         "lo",
		HardwareAddr: "00:00:00:00:00:00",
		OperState:    "UNKNOWN",
		MTU:          65536,
		Flags:        []string{"LOOPBACK", "UP", "LOWER_UP"},
		Addresses:    []string{"127.0.0.1", "::1"},
		LinkType:     "loopback",
	}}
	sit := RawInterface{LinkInfo: ioctl.LinkInfo{
		Name:         "sit0",
		HardwareAddr: "0.0.0.0",
		OperState:    "DOWN",
		LinkType:     "sit",
		LinkKind:     "sit",
	}}
	bad := physical("eth9", "zz:zz")
	bad.LinkType = "ether"
	src := &fakeSource{raws: []RawInterface{lo, physical("eth0", "52:54:00:12:34:56"), sit, bad}}

	c := newTestCollector(t, DefaultConfig(),
		WithDiscoverySource(src),
		WithLinkProbes(staticLinkProbe(map[string]int{"eth0": 1000})),
	)
	coll := c.GetAllInterfaces(context.Background())
	require.Equal(t, 3, coll.Len())
	assert.Equal(t, []string{"lo", "eth0", "sit0"}, coll.Names())

	loRec, ok := coll.Get("lo")
	require.True(t, ok)
	assert.Equal(t, network.TypeLoopback, loRec.Type)
	assert.Equal(t, network.LinkStateUp, loRec.LinkState)
	assert.Empty(t, loRec.HardwareAddr)
	assert.Equal(t, 0, loRec.Speed)

	eth0, ok := coll.Get("eth0")
	require.True(t, ok)
	assert.Equal(t, network.TypePhysical, eth0.Type)
	assert.Equal(t, "52:54:00:12:34:56", eth0.HardwareAddr)
	assert.Equal(t, 1000, eth0.Speed)
	assert.Equal(t, network.DuplexFull, eth0.Duplex)
	assert.Equal(t, "Twisted Pair", eth0.ExtraData[network.ExtraPort])

	sit0, ok := coll.Get("sit0")
	require.True(t, ok)
	assert.Empty(t, sit0.HardwareAddr)
	assert.Equal(t, "sit", sit0.ExtraData[network.ExtraLinkKind])

	_, ok = coll.Get("eth9")
	assert.False(t, ok, "record with malformed MAC is dropped")
}

func TestCollectorTunnelLinkAddress(t *testing.T) {
	tests := map[string]struct {
		linkType string
	}{
		"netlink gre":     {linkType: "gre"},
		"link type unset": {linkType: ""},
		"sysfs arphrd":    {linkType: "arphrd_65534"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			gre := RawInterface{LinkInfo: ioctl.LinkInfo{
				Name:         "gre1",
				HardwareAddr: "0a:00:00:01",
				OperState:    "unknown",
				MTU:          1476,
				Flags:        []string{"POINTOPOINT", "NOARP", "UP", "LOWER_UP"},
				Addresses:    []string{"172.16.0.1"},
				LinkType:     tc.linkType,
				LinkKind:     "gre",
			}}
			c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(&fakeSource{raws: []RawInterface{gre}}))
			coll := c.GetAllInterfaces(context.Background())
			require.Equal(t, []string{"gre1"}, coll.Names())
			rec, _ := coll.Get("gre1")
			assert.Empty(t, rec.HardwareAddr)
			assert.Equal(t, network.LinkStateUp, rec.LinkState)
			assert.Equal(t, "gre", rec.ExtraData[network.ExtraLinkKind])
		})
	}
}

func TestCollectorDiagnosticTimeoutIsolated(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	probe := Probe[LinkFacts]{Name: "ethtool", Run: func(_ context.Context, iface string) (LinkFacts, error) {
		if iface == "eth1" {
			<-release
		}
		return LinkFacts{Speed: 1000, Duplex: network.DuplexFull}, nil
	}}

	cfg := DefaultConfig()
	cfg.DiagnosticTimeout = 100 * time.Millisecond
	src := &fakeSource{raws: []RawInterface{
		physical("eth0", "52:54:00:00:00:01"),
		physical("eth1", "52:54:00:00:00:02"),
		physical("eth2", "52:54:00:00:00:03"),
	}}
	c := newTestCollector(t, cfg, WithDiscoverySource(src), WithLinkProbes(probe))

	start := time.Now()
	coll := c.GetAllInterfaces(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, 3, coll.Len())

	for _, name := range []string{"eth0", "eth2"} {
		rec, ok := coll.Get(name)
		require.True(t, ok)
		assert.Equal(t, 1000, rec.Speed, name)
	}
	eth1, ok := coll.Get("eth1")
	require.True(t, ok)
	assert.Equal(t, 0, eth1.Speed)
	assert.Equal(t, network.DuplexUnknown, eth1.Duplex)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.probeFailures.WithLabelValues("ethtool", "timeout")))
}

func TestCollectorDiagnosticConcurrencyLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	probe := Probe[LinkFacts]{Name: "slow", Run: func(context.Context, string) (LinkFacts, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return LinkFacts{Speed: 100}, nil
	}}
	raws := make([]RawInterface, 0)
	for _, n := range []string{"eth0", "eth1", "eth2", "eth3", "eth4", "eth5"} {
		raws = append(raws, physical(n, ""))
	}
	cfg := DefaultConfig()
	cfg.DiagnosticConcurrency = 2
	c := newTestCollector(t, cfg, WithDiscoverySource(&fakeSource{raws: raws}), WithLinkProbes(probe))

	coll := c.GetAllInterfaces(context.Background())
	assert.Equal(t, 6, coll.Len())
	for _, rec := range coll.Interfaces() {
		assert.Equal(t, 100, rec.Speed)
	}
	assert.LessOrEqual(t, peak, 2)
}

func TestCollectorSourceFailures(t *testing.T) {
	tests := map[string]struct {
		src *fakeSource
	}{
		"empty":       {src: &fakeSource{raws: []RawInterface{}}},
		"unavailable": {src: &fakeSource{err: errors.Wrap(network.ErrSourceUnavailable, "no registry")}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(tc.src))
			coll := c.GetAllInterfaces(context.Background())
			require.NotNil(t, coll)
			assert.Equal(t, 0, coll.Len())
			assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.interfaces))
		})
	}
}

func TestCollectorSnapshotAndCaches(t *testing.T) {
	cp := &countingProbe{}
	dhcp := cp.probe("dhcp", func(context.Context, string) (network.IPConfigType, error) {
		return network.IPConfigDHCP, nil
	})
	src := &fakeSource{raws: []RawInterface{physical("eth0", "52:54:00:12:34:56")}}
	c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(src), WithIPConfigProbes(dhcp))
	ctx := context.Background()

	first := c.GetAllInterfaces(ctx)
	second := c.GetAllInterfaces(ctx)
	assert.Same(t, first, second)
	assert.Equal(t, 1, src.Calls())
	rec, ok := c.GetInterfaceDetails(ctx, "eth0")
	require.True(t, ok)
	assert.Equal(t, network.IPConfigDHCP, rec.IPConfigType)
	assert.Equal(t, 1, cp.Calls("eth0"))

	c.Rescan(ctx)
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, 1, cp.Calls("eth0"), "rescan keeps ip config cache")

	c.RefreshInterfaces(ctx)
	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 2, cp.Calls("eth0"), "refresh re-probes ip config")

	_, ok = c.GetInterfaceDetails(ctx, "eth7")
	assert.False(t, ok)
}

func TestDetectIPConfigType(t *testing.T) {
	tests := map[string]struct {
		typ      network.InterfaceType
		probes   func(cp *countingProbe) []Probe[network.IPConfigType]
		want     network.IPConfigType
		wantCall int
	}{
		"loopback short circuit": {
			typ: network.TypeLoopback,
			probes: func(cp *countingProbe) []Probe[network.IPConfigType] {
				return []Probe[network.IPConfigType]{cp.probe("p", func(context.Context, string) (network.IPConfigType, error) {
					return network.IPConfigDHCP, nil
				})}
			},
			want: network.IPConfigUnknown,
		},
		"virtual short circuit": {
			typ: network.TypeVirtual,
			probes: func(cp *countingProbe) []Probe[network.IPConfigType] {
				return []Probe[network.IPConfigType]{cp.probe("p", func(context.Context, string) (network.IPConfigType, error) {
					return network.IPConfigStatic, nil
				})}
			},
			want: network.IPConfigUnknown,
		},
		"falls through to static": {
			typ: network.TypePhysical,
			probes: func(cp *countingProbe) []Probe[network.IPConfigType] {
				return []Probe[network.IPConfigType]{
					cp.probe("dbus", func(context.Context, string) (network.IPConfigType, error) {
						return network.IPConfigUnknown, network.ErrSourceUnavailable
					}),
					cp.probe("file", func(context.Context, string) (network.IPConfigType, error) {
						return network.IPConfigStatic, nil
					}),
				}
			},
			want:     network.IPConfigStatic,
			wantCall: 2,
		},
		"nothing conclusive": {
			typ: network.TypePhysical,
			probes: func(cp *countingProbe) []Probe[network.IPConfigType] {
				return []Probe[network.IPConfigType]{cp.probe("p", func(context.Context, string) (network.IPConfigType, error) {
					return network.IPConfigUnknown, ErrNoResult
				})}
			},
			want:     network.IPConfigUnknown,
			wantCall: 1,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cp := &countingProbe{}
			c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(&fakeSource{}), WithIPConfigProbes(tc.probes(cp)...))
			ctx := context.Background()
			assert.Equal(t, tc.want, c.DetectIPConfigType(ctx, "eth0", tc.typ))
			assert.Equal(t, tc.want, c.DetectIPConfigType(ctx, "eth0", tc.typ))
			assert.Equal(t, tc.wantCall, cp.Calls("eth0"), "result is cached")
		})
	}
}

func TestCollectorUnavailableIPProbeLoggedOnce(t *testing.T) {
	old := logger.Default()
	defer logger.SetupDefaultLogger(old)
	var buf bytes.Buffer
	logger.SetupDefaultLogger(logger.NewLogger("", zapcore.WarnLevel, &buf))

	dbus := Probe[network.IPConfigType]{Name: "dbus", Run: func(context.Context, string) (network.IPConfigType, error) {
		return network.IPConfigUnknown, errors.Wrap(network.ErrSourceUnavailable, "no system bus")
	}}
	src := &fakeSource{raws: []RawInterface{
		physical("eth0", "52:54:00:12:34:56"),
		physical("eth1", "52:54:00:12:34:57"),
		physical("eth2", "52:54:00:12:34:58"),
	}}
	c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(src), WithIPConfigProbes(dbus))

	coll := c.GetAllInterfaces(context.Background())
	require.Equal(t, 3, coll.Len())
	_ = logger.Default().Sync()
	assert.Equal(t, 1, strings.Count(buf.String(), "ip config probe dbus unavailable"))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.metrics.probeFailures.WithLabelValues("dbus", "unavailable")))
}

func TestCollectorStaticConfigExtra(t *testing.T) {
	src := &fakeSource{raws: []RawInterface{
		physical("eth0", "52:54:00:12:34:56"),
		physical("eth1", "52:54:00:12:34:57"),
		physical("eth2", "52:54:00:12:34:58"),
	}}
	c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(src))
	root := c.cfg.ConfigRoot
	writeFile(t, root, "etc/sysconfig/network-scripts/ifcfg-eth0",
		"DEVICE=eth0\nBOOTPROTO=static\nIPADDR=192.168.1.10\nGATEWAY=192.168.1.1\nDNS1=8.8.8.8\nDNS2=1.1.1.1\n")
	writeFile(t, root, "etc/systemd/network/10-eth1.network",
		"[Match]\nName=eth1\n\n[Network]\nAddress=10.0.0.5/24\nGateway=10.0.0.1\n")

	coll := c.GetAllInterfaces(context.Background())

	eth0, ok := coll.Get("eth0")
	require.True(t, ok)
	assert.Equal(t, "192.168.1.1", eth0.ExtraData[network.ExtraGateway])
	assert.Equal(t, "8.8.8.8,1.1.1.1", eth0.ExtraData[network.ExtraDNS])

	eth1, ok := coll.Get("eth1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", eth1.ExtraData[network.ExtraGateway])

	eth2, ok := coll.Get("eth2")
	require.True(t, ok)
	assert.NotContains(t, eth2.ExtraData, network.ExtraGateway)
	assert.NotContains(t, eth2.ExtraData, network.ExtraDNS)
}

func TestConfigFileProbe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "etc/sysconfig/network-scripts/ifcfg-eth0", "DEVICE=eth0\nBOOTPROTO=dhcp\n")
	writeFile(t, root, "etc/sysconfig/network-scripts/ifcfg-eth1", "DEVICE=eth1\nBOOTPROTO=none\nIPADDR=10.0.0.2\n")

	p := ConfigFileProbe(root)
	got, err := p.Run(context.Background(), "eth0")
	require.NoError(t, err)
	assert.Equal(t, network.IPConfigDHCP, got)

	got, err = p.Run(context.Background(), "eth1")
	require.NoError(t, err)
	assert.Equal(t, network.IPConfigStatic, got)

	_, err = p.Run(context.Background(), "eth2")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestCollectorVendorPopulation(t *testing.T) {
	veth := physical("veth12ab", "02:42:ac:11:00:02")
	wifi := physical("wlan0", "24:f5:aa:11:22:33")
	src := &fakeSource{raws: []RawInterface{
		physical("eth0", "52:54:00:12:34:56"),
		physical("eth1", "08:00:27:ab:cd:ef"),
		veth,
		wifi,
	}}
	res := &fakeResolver{vendors: map[string]string{"52:54:00:12:34:56": "QEMU virtual NIC"}}
	c := newTestCollector(t, DefaultConfig(), WithDiscoverySource(src), WithVendorResolver(res))

	coll := c.GetAllInterfaces(context.Background())
	require.Len(t, res.queries, 1, "one bulk call per discovery")
	assert.ElementsMatch(t, []string{"52:54:00:12:34:56", "08:00:27:AB:CD:EF"}, res.queries[0])

	eth0, _ := coll.Get("eth0")
	assert.Equal(t, "QEMU virtual NIC", eth0.Vendor)
	eth1, _ := coll.Get("eth1")
	assert.Empty(t, eth1.Vendor)
	w, _ := coll.Get("wlan0")
	assert.Empty(t, w.Vendor)
}

func TestCollectorMockMode(t *testing.T) {
	tests := map[string]struct {
		mock      MockConfig
		wantLen   int
		wantHas   []string
		wantLacks []string
	}{
		"default": {
			mock:      MockConfig{Enabled: true, IncludeVirtual: true},
			wantLen:   10,
			wantHas:   []string{"eth0", "bond0", "br0", "tun0", "lo"},
			wantLacks: []string{"veth0abc123", "tailscale0"},
		},
		"without virtual": {
			mock:      MockConfig{Enabled: true},
			wantLen:   7,
			wantLacks: []string{"bond0", "br0", "tun0"},
		},
		"with filtered": {
			mock:    MockConfig{Enabled: true, IncludeVirtual: true, IncludeFiltered: true},
			wantLen: 13,
			wantHas: []string{"veth0abc123", "br-docker0", "tailscale0"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mock = tc.mock
			c := newTestCollector(t, cfg)
			coll := c.GetAllInterfaces(context.Background())
			assert.Equal(t, tc.wantLen, coll.Len())
			for _, n := range tc.wantHas {
				_, ok := coll.Get(n)
				assert.True(t, ok, n)
			}
			for _, n := range tc.wantLacks {
				_, ok := coll.Get(n)
				assert.False(t, ok, n)
			}
		})
	}

	c := newTestCollector(t, Config{Mock: MockConfig{Enabled: true, IncludeVirtual: true}})
	eth0, ok := c.GetInterfaceDetails(context.Background(), "eth0")
	require.True(t, ok)
	assert.Equal(t, "Red Hat Inc.", eth0.Vendor)
	assert.Equal(t, 1000, eth0.Speed)
	assert.Equal(t, "1", eth0.ExtraData[network.ExtraCarrier])
	enp0s8, _ := c.GetInterfaceDetails(context.Background(), "enp0s8")
	assert.Equal(t, network.LinkStateDown, enp0s8.LinkState)
}

func TestCollectorSysfsEnrichment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "eth0/device/vendor", "0x8086\n")
	writeFile(t, root, "eth0/device/device", "0x100e\n")
	writeFile(t, root, "eth0/carrier", "1\n")
	writeFile(t, root, "eth0/type", "1\n")
	modDir := filepath.Join(root, "drivers", "module", "e1000")
	require.NoError(t, os.MkdirAll(modDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "eth0", "device", "driver"), 0o755))
	require.NoError(t, os.Symlink(modDir, filepath.Join(root, "eth0", "device", "driver", "module")))

	raw := physical("eth0", "08:00:27:ab:cd:ef")
	raw.HasDevice = false
	raw.ParentBus = ""
	c := newTestCollector(t, DefaultConfig(),
		WithDiscoverySource(&fakeSource{raws: []RawInterface{raw}}),
		WithSysfs(ioctl.NewSysfsNet(root)),
	)

	rec, ok := c.GetInterfaceDetails(context.Background(), "eth0")
	require.True(t, ok)
	assert.Equal(t, network.TypePhysical, rec.Type, "device binding found in sysfs")
	assert.Equal(t, "e1000", rec.Driver)
	assert.Equal(t, "8086:100e", rec.ExtraData[network.ExtraPCIID])
	assert.Equal(t, "1", rec.ExtraData[network.ExtraCarrier])
	assert.Equal(t, "1", rec.ExtraData[network.ExtraDeviceType])
}
