package info

import (
	"context"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/ioctl"
)

type mockFixture struct {
	name, mac, state string
	addrs            []string
	speed            int
	duplex           network.Duplex
	mtu              int
	driver           string
	typ              network.InterfaceType
	vendor, desc     string
	flags            []string
	carrier, devType string
	txQueueLen       int
}

var (
	flagsUp      = []string{"UP", "BROADCAST", "RUNNING", "MULTICAST"}
	flagsTunnel  = []string{"UP", "POINTOPOINT", "RUNNING", "NOARP", "MULTICAST"}
	mockFixtures = []mockFixture{
		{"eth0", "52:54:00:12:34:56", "UP", []string{"192.168.1.100", "fe80::5054:ff:fe12:3456"}, 1000, network.DuplexFull, 1500, "virtio_net", network.TypePhysical, "Red Hat Inc.", "Primary network interface", flagsUp, "1", "1", 1000},
		{"eth1", "08:00:27:ab:cd:ef", "UP", []string{"10.0.0.50"}, 100, network.DuplexFull, 1500, "e1000", network.TypePhysical, "Intel Corporation", "Secondary network interface", flagsUp, "1", "1", 1000},
		{"wlan0", "24:f5:aa:11:22:33", "UP", []string{"192.168.0.105", "fe80::26f5:aaff:fe11:2233"}, 54, network.DuplexHalf, 1500, "iwlwifi", network.TypeWireless, "", "Wireless interface", flagsUp, "1", "1", 1000},
		{"enp0s3", "08:00:27:44:55:66", "UP", []string{"172.16.1.20"}, 1000, network.DuplexFull, 1500, "e1000", network.TypePhysical, "Intel Corporation", "Ethernet interface (systemd naming)", flagsUp, "1", "1", 1000},
		{"enp0s8", "08:00:27:77:88:99", "DOWN", nil, 0, network.DuplexUnknown, 1500, "e1000", network.TypePhysical, "Intel Corporation", "Disconnected ethernet interface", []string{"BROADCAST", "MULTICAST"}, "0", "1", 1000},
		{"bond0", "52:54:00:aa:bb:cc", "UP", []string{"10.1.1.10"}, 2000, network.DuplexFull, 1500, "bonding", network.TypeBond, "", "Bond interface", []string{"UP", "BROADCAST", "RUNNING", "MASTER", "MULTICAST"}, "1", "1", 1000},
		{"br0", "52:54:00:dd:ee:ff", "UP", []string{"192.168.100.1"}, 0, network.DuplexUnknown, 1500, "bridge", network.TypeBridge, "", "Bridge interface", flagsUp, "1", "1", 1000},
		{"eth0.100", "52:54:00:12:34:56", "UP", []string{"10.100.1.5"}, 1000, network.DuplexFull, 1500, "virtio_net", network.TypeVLAN, "", "VLAN 100 interface", flagsUp, "1", "1", 1000},
		{"lo", "", "UP", []string{"127.0.0.1", "::1"}, 0, network.DuplexUnknown, 65536, "", network.TypeLoopback, "", "Loopback interface", []string{"UP", "LOOPBACK", "RUNNING"}, "1", "772", 1000},
		{"tun0", "", "UP", []string{"10.8.0.2"}, 0, network.DuplexUnknown, 1500, "tun", network.TypeVirtual, "", "VPN tunnel interface", flagsTunnel, "1", "65534", 500},
	}
	// 通常会被过滤掉的容器与 VPN 接口.
	mockFilteredFixtures = []mockFixture{
		{"veth0abc123", "02:42:ac:11:00:02", "UP", nil, 10000, network.DuplexFull, 1500, "veth", network.TypeVirtual, "", "Docker veth interface", flagsUp, "1", "1", 1000},
		{"br-docker0", "02:42:12:34:56:78", "UP", []string{"172.17.0.1"}, 0, network.DuplexUnknown, 1500, "bridge", network.TypeBridge, "", "Docker bridge", flagsUp, "1", "1", 1000},
		{"tailscale0", "", "UP", []string{"100.64.0.1"}, 0, network.DuplexUnknown, 1280, "tun", network.TypeVirtual, "", "Tailscale VPN interface", flagsTunnel, "1", "65534", 500},
	}
)

// MockSource 内存中的固定接口集合, 用于容器等没有真实网卡的环境.
type MockSource struct {
	IncludeVirtual  bool
	IncludeFiltered bool
}

func NewMockSource(includeVirtual, includeFiltered bool) *MockSource {
	return &MockSource{IncludeVirtual: includeVirtual, IncludeFiltered: includeFiltered}
}

func (m *MockSource) Name() string {
	return "mock"
}

func (m *MockSource) Discover(_ context.Context) ([]RawInterface, error) {
	raws := make([]RawInterface, 0, len(mockFixtures)+len(mockFilteredFixtures))
	for _, f := range mockFixtures {
		if !m.IncludeVirtual {
			switch f.typ {
			case network.TypeVirtual, network.TypeBridge, network.TypeBond:
				continue
			}
		}
		raws = append(raws, f.raw())
	}
	if m.IncludeFiltered {
		for _, f := range mockFilteredFixtures {
			raws = append(raws, f.raw())
		}
	}
	return raws, nil
}

func (f mockFixture) raw() RawInterface {
	return RawInterface{
		LinkInfo: ioctl.LinkInfo{
			Name:         f.name,
			HardwareAddr: f.mac,
			OperState:    f.state,
			MTU:          f.mtu,
			TxQueueLen:   f.txQueueLen,
			Flags:        append([]string{}, f.flags...),
			Addresses:    append([]string{}, f.addrs...),
		},
		HasDevice:     f.typ == network.TypePhysical || f.typ == network.TypeWireless,
		Driver:        f.driver,
		Carrier:       f.carrier,
		DeviceType:    f.devType,
		Type:          f.typ,
		Speed:         f.speed,
		Duplex:        f.duplex,
		IPConfig:      network.IPConfigUnknown,
		Vendor:        f.vendor,
		Description:   f.desc,
		Authoritative: true,
	}
}
