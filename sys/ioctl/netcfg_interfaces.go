package ioctl

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// InterfacesManager Debian 系 /etc/network/interfaces 中的一个 iface 段.
type InterfacesManager struct {
	path    string
	method  string
	gateway string
	dns     []string
}

// NewInterfacesManager 依次查找 interfaces 主文件与 interfaces.d 下的文件.
func NewInterfacesManager(rootDir, ifName string) (NetworkCfgManager, error) {
	files := []string{filepath.Join(rootDir, EtcNetworkInterfaces)}
	if extra, err := filepath.Glob(filepath.Join(rootDir, EtcNetworkInterfacesD, "*")); err == nil {
		sort.Strings(extra)
		files = append(files, extra...)
	}
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		if m, ok := ParseInterfaces(string(content), ifName); ok {
			m.path = f
			return m, nil
		}
	}
	return nil, errors.Errorf("no `iface %s inet` stanza under %s", ifName, filepath.Join(rootDir, "etc/network"))
}

// ParseInterfaces 查找 `iface <name> inet <method>` 段并收集其中的 gateway 与 dns-nameservers.
func ParseInterfaces(content, ifName string) (*InterfacesManager, bool) {
	var (
		m       *InterfacesManager
		inBlock bool
	)
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "iface":
			inBlock = false
			if m != nil {
				// 只取第一段 inet 配置.
				continue
			}
			if len(fields) >= 4 && fields[1] == ifName && fields[2] == "inet" {
				m = &InterfacesManager{method: fields[3], dns: make([]string, 0)}
				inBlock = true
			}
		case "auto", "allow-hotplug", "mapping", "source", "source-directory":
			inBlock = false
		default:
			if strings.HasPrefix(fields[0], "allow-") {
				inBlock = false
				continue
			}
			if !inBlock || len(fields) < 2 {
				continue
			}
			switch fields[0] {
			case "gateway":
				m.gateway = fields[1]
			case "dns-nameservers":
				m.dns = append(m.dns, fields[1:]...)
			}
		}
	}
	return m, m != nil
}

func (m *InterfacesManager) Type() string {
	return TypeInterface
}

func (m *InterfacesManager) GetIPv4BootProto() string {
	switch m.method {
	case "dhcp", "bootp":
		return BootProtoDHCP
	case "static":
		return BootProtoStatic
	default:
		return BootProtoNone
	}
}

func (m *InterfacesManager) GetIPv4Gateway() string {
	return m.gateway
}

func (m *InterfacesManager) GetIPv4DNS() []string {
	return m.dns
}

func (m *InterfacesManager) ConfigPath() string {
	return m.path
}
