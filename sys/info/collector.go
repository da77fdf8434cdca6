package info

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/info/network/oui"
	"github.com/kisun-bit/netgrid/sys/ioctl"
	"github.com/kisun-bit/netgrid/sys/pci"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/thoas/go-funk"
)

// VendorResolver 批量把硬件地址解析为厂商名, 结果中空串表示未知.
type VendorResolver interface {
	ResolveBulk(ctx context.Context, addrs []string) map[string]string
}

type Option func(*Collector)

// WithDiscoverySource 替换按配置选择的发现策略.
func WithDiscoverySource(s DiscoverySource) Option {
	return func(c *Collector) { c.source = s }
}

// WithLinkProbes 替换链路诊断手段, 不传参数表示不做诊断.
func WithLinkProbes(probes ...Probe[LinkFacts]) Option {
	return func(c *Collector) { c.linkProbes = append(make([]Probe[LinkFacts], 0, len(probes)), probes...) }
}

// WithIPConfigProbes 替换 IP 配置探测链, 不传参数表示一律为 Unknown.
func WithIPConfigProbes(probes ...Probe[network.IPConfigType]) Option {
	return func(c *Collector) { c.ipProbes = append(make([]Probe[network.IPConfigType], 0, len(probes)), probes...) }
}

// WithVendorResolver 传入 nil 表示不做厂商查询.
func WithVendorResolver(r VendorResolver) Option {
	return func(c *Collector) {
		c.resolver = r
		c.resolverSet = true
	}
}

func WithSysfs(s *ioctl.SysfsNet) Option {
	return func(c *Collector) { c.sysfs = s }
}

// WithDriverLookup 替换 sysfs 之后的驱动查询手段, nil 表示不查询.
func WithDriverLookup(fn func(name string) (string, error)) Option {
	return func(c *Collector) {
		c.driverLookup = fn
		c.driverLookupSet = true
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Collector) { c.registerer = reg }
}

// Collector 发现本机网络接口并补全诊断信息.
// 快照与 IP 配置缓存均有锁保护, 可被多个 goroutine 共享.
type Collector struct {
	cfg Config

	source          DiscoverySource
	sysfs           *ioctl.SysfsNet
	linkProbes      []Probe[LinkFacts]
	ipProbes        []Probe[network.IPConfigType]
	resolver        VendorResolver
	resolverSet     bool
	driverLookup    func(name string) (string, error)
	driverLookupSet bool
	registerer      prometheus.Registerer
	metrics         *metrics

	mu       sync.Mutex
	snapshot *network.Collection

	ipMu    sync.Mutex
	ipCache map[string]network.IPConfigType
}

func NewCollector(cfg Config, opts ...Option) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()

	c := &Collector{cfg: cfg, ipCache: make(map[string]network.IPConfigType)}
	for _, opt := range opts {
		opt(c)
	}

	if c.registerer == nil {
		c.registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(c.registerer)
	if err != nil {
		return nil, err
	}
	c.metrics = m

	if c.sysfs == nil {
		c.sysfs = ioctl.NewSysfsNet(cfg.SysfsRoot)
	}
	if c.source == nil {
		c.source = sourceFor(cfg)
	}
	if c.linkProbes == nil {
		c.linkProbes = []Probe[LinkFacts]{EthtoolProbe(""), SysfsLinkProbe(c.sysfs)}
	}
	if c.ipProbes == nil {
		c.ipProbes = defaultIPConfigProbes(cfg.ConfigRoot)
	}
	if !c.driverLookupSet {
		c.driverLookup = ioctl.DriverByIoctl
	}
	if !c.resolverSet && cfg.Vendor.Enabled {
		r, e := oui.NewResolver(
			oui.WithCacheDir(cfg.Vendor.CacheDir),
			oui.WithOffline(cfg.Vendor.Offline),
			oui.WithSourceTimeout(cfg.Vendor.SourceTimeout),
			oui.WithRegisterer(c.registerer),
		)
		if e != nil {
			logger.Warnf("NewCollector: vendor resolver disabled: %v", e)
		} else {
			c.resolver = r
		}
	}
	return c, nil
}

// GetAllInterfaces 返回缓存的快照, 没有快照时执行一次完整发现.
func (c *Collector) GetAllInterfaces(ctx context.Context) *network.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil {
		return c.snapshot
	}
	coll := c.discover(ctx)
	if ctx.Err() == nil {
		c.snapshot = coll
	}
	return coll
}

// RefreshInterfaces 丢弃快照和 IP 配置缓存后重新发现.
func (c *Collector) RefreshInterfaces(ctx context.Context) *network.Collection {
	c.ipMu.Lock()
	c.ipCache = make(map[string]network.IPConfigType)
	c.ipMu.Unlock()
	return c.Rescan(ctx)
}

// Rescan 只丢弃快照, 已探测的 IP 配置继续使用.
func (c *Collector) Rescan(ctx context.Context) *network.Collection {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
	return c.GetAllInterfaces(ctx)
}

func (c *Collector) GetInterfaceDetails(ctx context.Context, name string) (network.Interface, bool) {
	return c.GetAllInterfaces(ctx).Get(name)
}

type discovered struct {
	rec           *network.Interface
	authoritative bool
}

func (c *Collector) discover(ctx context.Context) *network.Collection {
	start := time.Now()
	defer func() { c.metrics.discoveryDuration.Observe(time.Since(start).Seconds()) }()

	raws, err := c.source.Discover(ctx)
	if err != nil {
		logger.Warnf("discover: %s failed: %v", c.source.Name(), err)
		raws = nil
	}

	items := make([]discovered, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		rec, e := c.build(raw)
		if e != nil {
			logger.Warnf("discover: drop interface %q: %v", raw.Name, e)
			continue
		}
		if _, ok := seen[rec.Name]; ok {
			logger.Warnf("discover: duplicate interface %s ignored", rec.Name)
			continue
		}
		seen[rec.Name] = struct{}{}
		items = append(items, discovered{rec: rec, authoritative: raw.Authoritative})
	}

	once := newOnceLogger()
	targets := make([]string, 0)
	for _, it := range items {
		if !it.authoritative && it.rec.Type == network.TypePhysical {
			targets = append(targets, it.rec.Name)
		}
	}
	results := c.diagnose(ctx, targets, once)

	records := make([]*network.Interface, 0, len(items))
	for _, it := range items {
		if r, ok := results[it.rec.Name]; ok && r.err == nil {
			it.rec.Speed = r.facts.Speed
			it.rec.Duplex = r.facts.Duplex
			if r.facts.Port != "" {
				it.rec.ExtraData[network.ExtraPort] = r.facts.Port
			}
		}
		if !it.authoritative {
			it.rec.IPConfigType = c.detectIPConfig(ctx, it.rec.Name, it.rec.Type, once)
			for k, v := range c.staticConfigExtra(it.rec.Name, it.rec.Type) {
				it.rec.ExtraData[k] = v
			}
		}
		records = append(records, it.rec)
	}

	c.populateVendors(ctx, records)

	coll, err := network.NewCollection(records...)
	if err != nil {
		logger.Errorf("discover: build collection: %v", err)
		coll, _ = network.NewCollection()
	}
	c.metrics.interfaces.Set(float64(coll.Len()))
	logger.Debugf("discover: %d interfaces by %s in %v", coll.Len(), c.source.Name(), time.Since(start))
	return coll
}

// build 把原始事实转为记录, 非权威来源的缺失字段从 sysfs 补全.
func (c *Collector) build(raw RawInterface) (*network.Interface, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, errors.Wrap(network.ErrValidation, "interface name is empty")
	}

	hasDevice := raw.HasDevice
	if !raw.Authoritative && !hasDevice {
		hasDevice = c.sysfs.HasDevice(name)
	}
	typ := raw.Type
	if typ == "" {
		typ = ClassifyInterface(name, hasDevice)
	}

	state := network.ParseLinkState(raw.OperState)
	if state == network.LinkStateUnknown && funk.ContainsString(raw.Flags, "UP") &&
		(funk.ContainsString(raw.Flags, "LOWER_UP") || funk.ContainsString(raw.Flags, "RUNNING")) {
		state = network.LinkStateUp
	}

	mac := raw.HardwareAddr
	if network.IsZeroHardwareAddr(mac) {
		mac = ""
	}
	// 隧道等非以太网链路的 address 不是 MAC; 未知链路类型同样处理.
	if mac != "" && raw.LinkType != "ether" {
		if _, err := network.NormalizeHardwareAddr(mac); err != nil {
			logger.Debugf("%s: link address %q (%s) is not a MAC", name, mac, raw.LinkType)
			mac = ""
		}
	}

	driver := raw.Driver
	carrier, devType, pciID := raw.Carrier, raw.DeviceType, ""
	if !raw.Authoritative {
		if hasDevice {
			if h, err := pci.ReadHardwareID(filepath.Join(c.sysfs.Root, name, "device")); err == nil {
				pciID = h.String()
			}
		}
		if driver == "" {
			driver = c.sysfs.Driver(name)
		}
		if driver == "" && hasDevice && c.driverLookup != nil {
			if d, err := c.driverLookup(name); err == nil {
				driver = d
			} else {
				logger.Debugf("%s: driver lookup failed: %v", name, err)
			}
		}
		if carrier == "" {
			carrier, _ = c.sysfs.ReadAttr(name, "carrier")
		}
		if devType == "" {
			devType, _ = c.sysfs.ReadAttr(name, "type")
		}
	}

	opts := []network.Option{
		network.WithHardwareAddr(mac),
		network.WithIPAddresses(raw.Addresses...),
		network.WithLinkState(state),
		network.WithSpeed(raw.Speed),
		network.WithDuplex(raw.Duplex),
		network.WithMTU(raw.MTU),
		network.WithDriver(driver),
		network.WithType(typ),
		network.WithIPConfigType(raw.IPConfig),
		network.WithDescription(raw.Description),
		network.WithFlags(raw.Flags...),
	}
	if typ == network.TypePhysical && mac != "" {
		opts = append(opts, network.WithVendor(raw.Vendor))
	}
	if carrier != "" {
		opts = append(opts, network.WithExtraData(network.ExtraCarrier, carrier))
	}
	if devType != "" {
		opts = append(opts, network.WithExtraData(network.ExtraDeviceType, devType))
	}
	if raw.TxQueueLen > 0 {
		opts = append(opts, network.WithExtraData(network.ExtraTxQueueLen, strconv.Itoa(raw.TxQueueLen)))
	}
	if pciID != "" {
		opts = append(opts, network.WithExtraData(network.ExtraPCIID, pciID))
	}
	if raw.LinkKind != "" {
		opts = append(opts, network.WithExtraData(network.ExtraLinkKind, raw.LinkKind))
	}
	return network.NewInterface(name, opts...)
}

// populateVendors 对物理接口做一次批量厂商查询, 失败时厂商保持为空.
func (c *Collector) populateVendors(ctx context.Context, records []*network.Interface) {
	if c.resolver == nil {
		return
	}
	addrs := make([]string, 0)
	owners := make(map[string][]*network.Interface)
	for _, rec := range records {
		if rec.Type != network.TypePhysical || rec.HardwareAddr == "" || rec.Vendor != "" {
			continue
		}
		if hasAnyPrefix(rec.Name, vendorSkipPrefixes) {
			continue
		}
		if _, ok := owners[rec.HardwareAddr]; !ok {
			addrs = append(addrs, rec.HardwareAddr)
		}
		owners[rec.HardwareAddr] = append(owners[rec.HardwareAddr], rec)
	}
	if len(addrs) == 0 {
		return
	}

	for addr, v := range c.resolver.ResolveBulk(ctx, addrs) {
		if v == "" {
			continue
		}
		for _, rec := range owners[addr] {
			rec.Vendor = v
		}
	}
}
