package info

import (
	"os"
	"strings"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network/oui"
	"github.com/kisun-bit/netgrid/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// 发现策略.
const (
	DiscoveryAuto    = "auto"
	DiscoveryIPRoute = "iproute"
	DiscoveryNetlink = "netlink"
	DiscoverySysfs   = "sysfs"
)

const (
	DefaultDiagnosticTimeout = 3 * time.Second
	DefaultCommandTimeout    = 5 * time.Second
)

// 环境变量, 仅由 ConfigFromEnv 读取.
const (
	EnvMockMode            = "NETGRID_MOCK_MODE"
	EnvMockIncludeVirtual  = "NETGRID_MOCK_INCLUDE_VIRTUAL"
	EnvMockIncludeFiltered = "NETGRID_MOCK_INCLUDE_FILTERED"
	EnvCacheDir            = "NETGRID_CACHE_DIR"
	EnvDiscovery           = "NETGRID_DISCOVERY"
	EnvOffline             = "NETGRID_OFFLINE"
)

type MockConfig struct {
	Enabled         bool `yaml:"enabled"`
	IncludeVirtual  bool `yaml:"include_virtual"`
	IncludeFiltered bool `yaml:"include_filtered"`
}

type VendorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CacheDir      string        `yaml:"cache_dir"`
	Offline       bool          `yaml:"offline"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
}

// Config Collector 的全部配置. Collector 本身从不读取环境变量.
type Config struct {
	Discovery string     `yaml:"discovery"`
	Mock      MockConfig `yaml:"mock"`

	// 并发诊断的 worker 上限, 0 表示每个接口一个 worker.
	DiagnosticConcurrency int           `yaml:"diagnostic_concurrency"`
	DiagnosticTimeout     time.Duration `yaml:"diagnostic_timeout"`
	CommandTimeout        time.Duration `yaml:"command_timeout"`

	Vendor VendorConfig `yaml:"vendor"`

	SysfsRoot  string `yaml:"sysfs_root"`
	ConfigRoot string `yaml:"config_root"`
}

func DefaultConfig() Config {
	return Config{
		Discovery:         DiscoveryAuto,
		Mock:              MockConfig{IncludeVirtual: true},
		DiagnosticTimeout: DefaultDiagnosticTimeout,
		CommandTimeout:    DefaultCommandTimeout,
		Vendor: VendorConfig{
			Enabled:       true,
			CacheDir:      oui.DefaultCacheDir,
			SourceTimeout: oui.DefaultSourceTimeout,
		},
		SysfsRoot:  "/sys/class/net",
		ConfigRoot: "/",
	}
}

// LoadConfig 读取 YAML, 未出现的字段保持默认值.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config YAML")
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFromEnv 在默认配置上叠加环境变量.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// ApplyEnv 以 getenv 叠加环境变量, 便于测试替换.
func (c *Config) ApplyEnv(getenv func(string) string) {
	getEnv := func(key, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return defaultValue
	}
	c.Mock.Enabled = util.ParseBool(getenv(EnvMockMode), c.Mock.Enabled)
	c.Mock.IncludeVirtual = util.ParseBool(getenv(EnvMockIncludeVirtual), c.Mock.IncludeVirtual)
	c.Mock.IncludeFiltered = util.ParseBool(getenv(EnvMockIncludeFiltered), c.Mock.IncludeFiltered)
	c.Vendor.CacheDir = getEnv(EnvCacheDir, c.Vendor.CacheDir)
	c.Vendor.Offline = util.ParseBool(getenv(EnvOffline), c.Vendor.Offline)
	c.Discovery = strings.ToLower(getEnv(EnvDiscovery, c.Discovery))
}

func (c *Config) Validate() error {
	switch c.Discovery {
	case "", DiscoveryAuto, DiscoveryIPRoute, DiscoveryNetlink, DiscoverySysfs:
	default:
		return errors.Errorf("unknown discovery strategy %q", c.Discovery)
	}
	if c.DiagnosticConcurrency < 0 {
		return errors.Errorf("diagnostic_concurrency must not be negative, got %d", c.DiagnosticConcurrency)
	}
	if c.DiagnosticTimeout < 0 || c.CommandTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (c *Config) normalize() {
	if c.Discovery == "" {
		c.Discovery = DiscoveryAuto
	}
	if c.DiagnosticTimeout == 0 {
		c.DiagnosticTimeout = DefaultDiagnosticTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.SysfsRoot == "" {
		c.SysfsRoot = "/sys/class/net"
	}
	if c.ConfigRoot == "" {
		c.ConfigRoot = "/"
	}
}
