package oui

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/util"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultCacheDir      = "~/.netgrid/cache"
	DefaultSourceTimeout = 10 * time.Second

	VendorCacheFile = "vendor_cache.json"
	OUICacheFile    = "oui_cache.json"
)

type config struct {
	cacheDir      string
	staticTable   map[string]string
	remote        []Source
	remoteSet     bool
	registry      bool
	offline       bool
	sourceTimeout time.Duration
	client        *http.Client
	registerer    prometheus.Registerer
}

type Option func(*config)

// WithCacheDir 缓存目录, 支持 ~、$VAR 与 %VAR%.
func WithCacheDir(dir string) Option {
	return func(c *config) { c.cacheDir = dir }
}

// WithSources 替换默认的远程数据源链.
func WithSources(sources ...Source) Option {
	return func(c *config) {
		c.remote = sources
		c.remoteSet = true
	}
}

// WithStaticTable 替换内置静态表.
func WithStaticTable(table map[string]string) Option {
	return func(c *config) { c.staticTable = table }
}

// WithRegistry 是否启用编译内置的 IEEE 注册表, 默认启用.
func WithRegistry(enabled bool) Option {
	return func(c *config) { c.registry = enabled }
}

// WithOffline 离线模式下跳过全部远程数据源.
func WithOffline(offline bool) Option {
	return func(c *config) { c.offline = offline }
}

func WithSourceTimeout(d time.Duration) Option {
	return func(c *config) { c.sourceTimeout = d }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// CacheStats 两个持久化缓存的条目数.
type CacheStats struct {
	VendorEntries int `json:"vendor_cache_size"`
	OUIEntries    int `json:"oui_cache_size"`
}

// Resolver 将 MAC 地址解析为厂商名.
// 解析顺序: 结果缓存 -> 静态表/内置注册表 -> 原始数据缓存 -> 远程数据源链.
// 无结果同样写入结果缓存, 避免重复的远程查询.
type Resolver struct {
	mu sync.Mutex

	cacheDir      string
	static        []Source
	remote        []Source
	sourceTimeout time.Duration

	vendors *Store // OUI -> 最终答案.
	ouis    *Store // OUI -> 远程数据源的原始结果.

	metrics *metrics
}

func NewResolver(opts ...Option) (*Resolver, error) {
	cfg := config{
		cacheDir:      DefaultCacheDir,
		staticTable:   DefaultStaticTable(),
		registry:      true,
		sourceTimeout: DefaultSourceTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sourceTimeout <= 0 {
		cfg.sourceTimeout = DefaultSourceTimeout
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: cfg.sourceTimeout}
	}
	if cfg.registerer == nil {
		cfg.registerer = prometheus.NewRegistry()
	}

	cacheDir, err := homedir.Expand(util.ExpandEnv(cfg.cacheDir))
	if err != nil {
		return nil, errors.Wrapf(err, "expand cache dir %s", cfg.cacheDir)
	}
	if err = os.MkdirAll(cacheDir, 0o755); err != nil {
		logger.Warnf("NewResolver: create cache dir %s: %v, results will not persist", cacheDir, err)
	}

	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		cacheDir:      cacheDir,
		static:        []Source{NewStaticSource(cfg.staticTable)},
		sourceTimeout: cfg.sourceTimeout,
		vendors:       OpenStore(filepath.Join(cacheDir, VendorCacheFile)),
		ouis:          OpenStore(filepath.Join(cacheDir, OUICacheFile)),
		metrics:       m,
	}
	if cfg.registry {
		r.static = append(r.static, RegistrySource{})
	}
	switch {
	case cfg.offline:
	case cfg.remoteSet:
		r.remote = cfg.remote
	default:
		r.remote = DefaultRemoteSources(cfg.client)
	}
	return r, nil
}

func (r *Resolver) CacheDir() string {
	return r.cacheDir
}

// Resolve 解析单个地址. 地址非法时返回 ErrValidation, 调用方应视为无结果;
// 其余失败均在内部吸收, 返回 ("", nil).
func (r *Resolver) Resolve(ctx context.Context, addr string) (string, error) {
	oui, err := network.OUI(addr)
	if err != nil {
		logger.Warnf("Resolve: invalid hardware address %q: %v", addr, err)
		r.metrics.observe(resultInvalid)
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.vendors.Get(oui); ok {
		r.metrics.observe(resultCacheHit)
		return v, nil
	}

	vendor, result := r.find(ctx, oui)
	// 调用方已取消时远程来源的失败不代表无匹配, 不写入缓存.
	if vendor == "" && ctx.Err() != nil {
		logger.Debugf("Resolve: %s not cached: %v", oui, ctx.Err())
		r.metrics.observe(resultCanceled)
		return "", nil
	}
	r.metrics.observe(result)

	r.vendors.Set(oui, vendor)
	if e := r.vendors.Save(); e != nil {
		logger.Warnf("Resolve: save %s: %v", r.vendors.Path(), e)
	}
	return vendor, nil
}

func (r *Resolver) find(ctx context.Context, oui string) (vendor, result string) {
	for _, s := range r.static {
		if v, _ := s.Lookup(ctx, oui); v != "" {
			return v, resultStatic
		}
	}
	if v, ok := r.ouis.Get(oui); ok && v != "" {
		return v, resultRawCache
	}
	for _, s := range r.remote {
		v, err := r.lookupWithTimeout(ctx, s, oui)
		if err != nil {
			logger.Debugf("Resolve: source %s failed for %s: %v", s.Name(), oui, err)
			continue
		}
		if v == "" {
			continue
		}
		r.ouis.Set(oui, v)
		if e := r.ouis.Save(); e != nil {
			logger.Warnf("Resolve: save %s: %v", r.ouis.Path(), e)
		}
		return v, resultRemote
	}
	return "", resultMiss
}

func (r *Resolver) lookupWithTimeout(ctx context.Context, s Source, oui string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, r.sourceTimeout)
	defer cancel()

	v, err := s.Lookup(sctx, oui)
	if err != nil && sctx.Err() == context.DeadlineExceeded && !errors.Is(err, network.ErrSourceTimeout) {
		err = errors.Wrapf(network.ErrSourceTimeout, "%s: %v", s.Name(), err)
	}
	return v, err
}

// ResolveBulk 逐个解析, 单个地址失败不影响其他地址. 返回值包含每个输入地址, 空串表示无结果.
func (r *Resolver) ResolveBulk(ctx context.Context, addrs []string) map[string]string {
	results := make(map[string]string, len(addrs))
	for _, addr := range addrs {
		v, err := r.Resolve(ctx, addr)
		if err != nil {
			v = ""
		}
		results[addr] = v
	}
	return results
}

// ClearCache 清空两个缓存并删除其文件.
func (r *Resolver) ClearCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errVendors := r.vendors.Clear()
	errOUIs := r.ouis.Clear()
	if errVendors != nil {
		return errVendors
	}
	if errOUIs != nil {
		return errOUIs
	}
	logger.Infof("ClearCache: vendor lookup cache cleared")
	return nil
}

func (r *Resolver) CacheStats() CacheStats {
	return CacheStats{
		VendorEntries: r.vendors.Len(),
		OUIEntries:    r.ouis.Len(),
	}
}
