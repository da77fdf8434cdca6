package network

import "strings"

type LinkState string

const (
	LinkStateUp      LinkState = "UP"
	LinkStateDown    LinkState = "DOWN"
	LinkStateUnknown LinkState = "UNKNOWN"
)

// ParseLinkState 解析 operstate 等原始值, 无法识别时返回 LinkStateUnknown.
func ParseLinkState(s string) LinkState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP":
		return LinkStateUp
	case "DOWN", "LOWERLAYERDOWN":
		return LinkStateDown
	default:
		return LinkStateUnknown
	}
}

// priority 用于按状态排序: UP < DOWN < UNKNOWN.
func (s LinkState) priority() int {
	switch s {
	case LinkStateUp:
		return 0
	case LinkStateDown:
		return 1
	default:
		return 2
	}
}

type Duplex string

const (
	DuplexFull    Duplex = "FULL"
	DuplexHalf    Duplex = "HALF"
	DuplexUnknown Duplex = "UNKNOWN"
)

func ParseDuplex(s string) Duplex {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FULL":
		return DuplexFull
	case "HALF":
		return DuplexHalf
	default:
		return DuplexUnknown
	}
}

type InterfaceType string

const (
	TypePhysical InterfaceType = "PHYSICAL"
	TypeVirtual  InterfaceType = "VIRTUAL"
	TypeLoopback InterfaceType = "LOOPBACK"
	TypeWireless InterfaceType = "WIRELESS"
	TypeBridge   InterfaceType = "BRIDGE"
	TypeBond     InterfaceType = "BOND"
	TypeVLAN     InterfaceType = "VLAN"
	TypeUnknown  InterfaceType = "UNKNOWN"
)

var interfaceTypes = []InterfaceType{
	TypePhysical, TypeVirtual, TypeLoopback, TypeWireless, TypeBridge, TypeBond, TypeVLAN, TypeUnknown,
}

func ParseInterfaceType(s string) InterfaceType {
	v := InterfaceType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range interfaceTypes {
		if t == v {
			return t
		}
	}
	return TypeUnknown
}

type IPConfigType string

const (
	IPConfigDHCP    IPConfigType = "DHCP"
	IPConfigStatic  IPConfigType = "Static"
	IPConfigUnknown IPConfigType = "Unknown"
)

// ParseIPConfigType 兼容 ifcfg BOOTPROTO、NetworkManager method 等写法.
func ParseIPConfigType(s string) IPConfigType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dhcp", "auto", "bootp":
		return IPConfigDHCP
	case "static", "manual":
		return IPConfigStatic
	default:
		return IPConfigUnknown
	}
}
