package ioctl

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

// SysfsNet 读取 /sys/class/net 下的接口属性. Root 可替换为测试目录.
type SysfsNet struct {
	Root string
}

func NewSysfsNet(root string) *SysfsNet {
	if root == "" {
		root = SysClassNet
	}
	return &SysfsNet{Root: root}
}

// Exists 注册表目录是否存在(容器或沙箱中可能缺失).
func (s *SysfsNet) Exists() bool {
	fi, err := os.Stat(s.Root)
	return err == nil && fi.IsDir()
}

// List 返回按名称排序的接口列表, 目录不存在时返回空列表.
func (s *SysfsNet) List() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrapf(err, "list %s", s.Root)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || e.Name() == "bonding_masters" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *SysfsNet) path(name string, elem ...string) string {
	return filepath.Join(append([]string{s.Root, name}, elem...)...)
}

// ReadAttr 读取单个属性并去除首尾空白.
func (s *SysfsNet) ReadAttr(name, attr string) (string, error) {
	content, err := os.ReadFile(s.path(name, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func (s *SysfsNet) ReadInt(name, attr string) (int64, error) {
	v, err := s.ReadAttr(name, attr)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(network.ErrMalformedResponse, "%s/%s: %v", name, attr, err)
	}
	return value, nil
}

// HasDevice 存在 device 链接即认为绑定了物理设备.
func (s *SysfsNet) HasDevice(name string) bool {
	_, err := os.Stat(s.path(name, "device"))
	return err == nil
}

// Driver 先取 device/driver/module 的链接目标, 再取 device/driver.
func (s *SysfsNet) Driver(name string) string {
	for _, p := range []string{s.path(name, "device", "driver", "module"), s.path(name, "device", "driver")} {
		target, err := os.Readlink(p)
		if err != nil {
			continue
		}
		if base := filepath.Base(target); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return ""
}

// Flags 解析 flags 文件中的十六进制位图.
func (s *SysfsNet) Flags(name string) ([]string, error) {
	v, err := s.ReadAttr(name, "flags")
	if err != nil {
		return nil, err
	}
	return ParseInterfaceFlags(v)
}

// Speed 返回 Mbps. 链路未协商时内核返回 -1 或读失败, 统一视为无数据.
func (s *SysfsNet) Speed(name string) (int, error) {
	v, err := s.ReadInt(name, "speed")
	if err != nil {
		return 0, err
	}
	if v <= 0 || v == 0xffffffff {
		return 0, errors.Wrapf(network.ErrMalformedResponse, "%s: speed %d", name, v)
	}
	return int(v), nil
}

func (s *SysfsNet) Duplex(name string) (string, error) {
	return s.ReadAttr(name, "duplex")
}

// ParseInterfaceFlags 将 0x1003 之类的位图转换为标志名列表.
func ParseInterfaceFlags(hex string) ([]string, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(hex), "0x"), 16, 64)
	if err != nil {
		return nil, errors.Wrapf(network.ErrMalformedResponse, "flags %q: %v", hex, err)
	}
	return flagsFromBits(v), nil
}

func flagsFromBits(v uint64) []string {
	flags := make([]string, 0)
	for _, f := range InterfaceFlagBits {
		if v&f.Bit != 0 {
			flags = append(flags, f.Name)
		}
	}
	return flags
}
