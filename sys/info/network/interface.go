package network

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// 常用的 ExtraData 键.
const (
	ExtraCarrier    = "carrier"
	ExtraDeviceType = "device_type"
	ExtraTxQueueLen = "tx_queue_len"
	ExtraLinkKind   = "link_kind"
	ExtraPort       = "port"
	ExtraPCIID      = "pci_id"
	ExtraGateway    = "ipv4_gateway"
	ExtraDNS        = "ipv4_dns"
)

// Interface 某一时刻的一个网络接口.
// Speed 与 MTU 为 0 表示未知, Driver、Vendor 等字符串为空表示未知.
type Interface struct {
	Name         string            `json:"name"`
	HardwareAddr string            `json:"mac_address,omitempty"`
	IPAddresses  []string          `json:"ip_addresses"`
	LinkState    LinkState         `json:"status"`
	Speed        int               `json:"speed,omitempty"` // Mbps.
	Duplex       Duplex            `json:"duplex"`
	MTU          int               `json:"mtu,omitempty"`
	Driver       string            `json:"driver,omitempty"`
	Type         InterfaceType     `json:"interface_type"`
	Vendor       string            `json:"vendor,omitempty"`
	IPConfigType IPConfigType      `json:"ip_config_type"`
	Description  string            `json:"description,omitempty"`
	Flags        []string          `json:"flags"`
	ExtraData    map[string]string `json:"extra_data"`
}

type Option func(*Interface)

func WithHardwareAddr(addr string) Option {
	return func(i *Interface) { i.HardwareAddr = addr }
}

func WithIPAddresses(addrs ...string) Option {
	return func(i *Interface) { i.IPAddresses = append(i.IPAddresses, addrs...) }
}

func WithLinkState(s LinkState) Option {
	return func(i *Interface) { i.LinkState = s }
}

func WithSpeed(mbps int) Option {
	return func(i *Interface) { i.Speed = mbps }
}

func WithDuplex(d Duplex) Option {
	return func(i *Interface) { i.Duplex = d }
}

func WithMTU(mtu int) Option {
	return func(i *Interface) { i.MTU = mtu }
}

func WithDriver(driver string) Option {
	return func(i *Interface) { i.Driver = driver }
}

func WithType(t InterfaceType) Option {
	return func(i *Interface) { i.Type = t }
}

func WithVendor(vendor string) Option {
	return func(i *Interface) { i.Vendor = vendor }
}

func WithIPConfigType(t IPConfigType) Option {
	return func(i *Interface) { i.IPConfigType = t }
}

func WithDescription(desc string) Option {
	return func(i *Interface) { i.Description = desc }
}

func WithFlags(flags ...string) Option {
	return func(i *Interface) { i.Flags = append(i.Flags, flags...) }
}

func WithExtraData(key, value string) Option {
	return func(i *Interface) {
		if i.ExtraData == nil {
			i.ExtraData = make(map[string]string)
		}
		i.ExtraData[key] = value
	}
}

// NewInterface 构造并校验一条接口记录, 名称为空或 MAC 格式错误时返回 ErrValidation.
func NewInterface(name string, opts ...Option) (*Interface, error) {
	i := &Interface{
		Name:         strings.TrimSpace(name),
		LinkState:    LinkStateUnknown,
		Duplex:       DuplexUnknown,
		Type:         TypeUnknown,
		IPConfigType: IPConfigUnknown,
	}
	for _, opt := range opts {
		opt(i)
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// Validate 校验记录不变量, 同时规范化 MAC 地址并把越界的枚举值归为 Unknown.
func (i *Interface) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.Wrap(ErrValidation, "interface name is empty")
	}
	if i.HardwareAddr != "" {
		canonical, err := NormalizeHardwareAddr(i.HardwareAddr)
		if err != nil {
			return errors.Wrapf(err, "interface %s", i.Name)
		}
		i.HardwareAddr = canonical
	}
	if i.Speed < 0 {
		return errors.Wrapf(ErrValidation, "interface %s: negative speed %d", i.Name, i.Speed)
	}
	if i.MTU < 0 {
		return errors.Wrapf(ErrValidation, "interface %s: negative mtu %d", i.Name, i.MTU)
	}
	i.LinkState = ParseLinkState(string(i.LinkState))
	i.Duplex = ParseDuplex(string(i.Duplex))
	i.Type = ParseInterfaceType(string(i.Type))
	if i.IPConfigType != IPConfigDHCP && i.IPConfigType != IPConfigStatic {
		i.IPConfigType = IPConfigUnknown
	}
	if i.Vendor != "" && (i.HardwareAddr == "" || i.Type != TypePhysical) {
		return errors.Wrapf(ErrValidation, "interface %s: vendor requires a hardware address on a physical interface", i.Name)
	}
	if i.IPAddresses == nil {
		i.IPAddresses = []string{}
	}
	if i.Flags == nil {
		i.Flags = []string{}
	}
	if i.ExtraData == nil {
		i.ExtraData = map[string]string{}
	}
	return nil
}

// Clone 深拷贝.
func (i *Interface) Clone() *Interface {
	c := *i
	c.IPAddresses = append([]string{}, i.IPAddresses...)
	c.Flags = append([]string{}, i.Flags...)
	c.ExtraData = make(map[string]string, len(i.ExtraData))
	for k, v := range i.ExtraData {
		c.ExtraData[k] = v
	}
	return &c
}

func (i Interface) IsUp() bool {
	return i.LinkState == LinkStateUp
}

func (i Interface) IsPhysical() bool {
	return i.Type == TypePhysical
}

func (i Interface) HasIP() bool {
	return len(i.IPAddresses) > 0
}

// HasFlag 大小写不敏感.
func (i Interface) HasFlag(flag string) bool {
	for _, f := range i.Flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// PrimaryAddress 优先返回第一个 IPv4 地址, 否则返回第一个地址.
func (i Interface) PrimaryAddress() (string, bool) {
	for _, a := range i.IPAddresses {
		if a != "" && !strings.Contains(a, ":") {
			return a, true
		}
	}
	if len(i.IPAddresses) > 0 {
		return i.IPAddresses[0], true
	}
	return "", false
}

// SpeedString 如 "1 Gb/s", "100 Mb/s", 速率未知时返回空串.
func (i Interface) SpeedString() string {
	switch {
	case i.Speed <= 0:
		return ""
	case i.Speed >= 1000 && i.Speed%1000 == 0:
		return humanize.Comma(int64(i.Speed/1000)) + " Gb/s"
	default:
		return humanize.Comma(int64(i.Speed)) + " Mb/s"
	}
}

func (i Interface) String() string {
	primary, _ := i.PrimaryAddress()
	return fmt.Sprintf("%s(%s, %s, mac=%s, ip=%s)", i.Name, i.Type, i.LinkState, i.HardwareAddr, primary)
}
