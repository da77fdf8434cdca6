package oui

import (
	"context"
	"encoding/hex"

	"github.com/google/gopacket/macs"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/util/logger"
)

// Source 一个厂商数据源. oui 为 6 位大写十六进制.
// 返回 ("", nil) 表示该数据源明确没有结果.
type Source interface {
	Name() string
	Lookup(ctx context.Context, oui string) (string, error)
}

// DefaultStaticTable 内置的常见前缀, 离线即可解析.
func DefaultStaticTable() map[string]string {
	return map[string]string{
		"C4:34:6B": "Hewlett Packard",
		"A0:36:9F": "Intel Corporation",
		"40:A8:F0": "Hewlett Packard",
		"26:5E:E1": "Docker Inc",
		"2A:58:2D": "Virtual Interface",
		"00:15:5D": "Microsoft Corporation",
		"00:0C:29": "VMware Inc",
		"00:50:56": "VMware Inc",
		"52:54:00": "QEMU Virtual NIC",
	}
}

type StaticSource struct {
	table map[string]string
}

// NewStaticSource 键可以是任意分隔风格的前缀, 非法键被忽略.
func NewStaticSource(table map[string]string) *StaticSource {
	s := &StaticSource{table: make(map[string]string, len(table))}
	for prefix, name := range table {
		oui, err := network.NormalizeOUI(prefix)
		if err != nil {
			logger.Warnf("NewStaticSource: skip prefix %q, %v", prefix, err)
			continue
		}
		s.table[oui] = name
	}
	return s
}

func (s *StaticSource) Name() string {
	return "static"
}

func (s *StaticSource) Lookup(_ context.Context, oui string) (string, error) {
	return s.table[oui], nil
}

// RegistrySource 使用编译进 gopacket 的 IEEE 注册表.
type RegistrySource struct{}

func (RegistrySource) Name() string {
	return "registry"
}

func (RegistrySource) Lookup(_ context.Context, oui string) (string, error) {
	raw, err := hex.DecodeString(oui)
	if err != nil || len(raw) != 3 {
		return "", nil
	}
	var key [3]byte
	copy(key[:], raw)
	return macs.ValidMACPrefixMap[key], nil
}
