package info

import (
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
)

var (
	virtualPrefixes  = []string{"veth", "docker", "br-", "virbr", "lxcbr", "vnet"}
	wirelessPrefixes = []string{"wlan", "wlp", "wlx", "wifi"}
	// 这些接口不参与厂商查询.
	vendorSkipPrefixes = []string{"veth", "br-", "docker", "virbr"}
)

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ClassifyInterface 按名称规则判定接口类型, 先匹配者优先.
// hasDevice 表示接口绑定了底层设备.
func ClassifyInterface(name string, hasDevice bool) network.InterfaceType {
	switch {
	case name == "lo":
		return network.TypeLoopback
	case hasAnyPrefix(name, virtualPrefixes):
		return network.TypeVirtual
	case hasAnyPrefix(name, wirelessPrefixes):
		return network.TypeWireless
	case strings.HasPrefix(name, "br"):
		return network.TypeBridge
	case strings.HasPrefix(name, "bond"):
		return network.TypeBond
	case isVLANName(name):
		return network.TypeVLAN
	case hasDevice:
		return network.TypePhysical
	default:
		return network.TypeUnknown
	}
}

// isVLANName 匹配 <base>.<digits>.
func isVLANName(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return false
	}
	for _, c := range name[i+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
