package ioctl

const SysClassNet = "/sys/class/net"

// 网络配置文件位置, 均相对于根目录.
const (
	EtcSysconfigIfCfgPattern = "etc/sysconfig/*/ifcfg-*"
	EtcNetworkInterfaces     = "etc/network/interfaces"
	EtcNetworkInterfacesD    = "etc/network/interfaces.d"
	NMSystemConnections      = "etc/NetworkManager/system-connections"
)

// systemd-networkd 按此顺序查找 .network 文件, 同名文件以靠前目录为准.
var NetworkdConfigDirs = []string{
	"etc/systemd/network",
	"run/systemd/network",
	"usr/lib/systemd/network",
	"lib/systemd/network",
}

// 可执行文件在 PATH 之外的常见位置.
var SbinDirs = []string{"/sbin", "/usr/sbin", "/usr/local/sbin"}

const (
	BootProtoNone   = "none"
	BootProtoDHCP   = "dhcp"
	BootProtoStatic = "static"
)

const (
	TypeIfCfg        = "ifcfg"
	TypeInterface    = "interface"
	TypeNMConnection = "nmconnection"
	TypeNetworkd     = "networkd"
)

// 接口标志位, 见 linux/if.h.
var InterfaceFlagBits = []struct {
	Name string
	Bit  uint64
}{
	{"UP", 0x1},
	{"BROADCAST", 0x2},
	{"DEBUG", 0x4},
	{"LOOPBACK", 0x8},
	{"POINTOPOINT", 0x10},
	{"NOTRAILERS", 0x20},
	{"RUNNING", 0x40},
	{"NOARP", 0x80},
	{"PROMISC", 0x100},
	{"ALLMULTI", 0x200},
	{"MASTER", 0x400},
	{"SLAVE", 0x800},
	{"MULTICAST", 0x1000},
	{"PORTSEL", 0x2000},
	{"AUTOMEDIA", 0x4000},
	{"DYNAMIC", 0x8000},
	{"LOWER_UP", 0x10000},
	{"DORMANT", 0x20000},
	{"ECHO", 0x40000},
}
