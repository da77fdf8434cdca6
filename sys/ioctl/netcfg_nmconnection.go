package ioctl

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// NMConnectionManager NetworkManager 的 keyfile 连接配置.
type NMConnectionManager struct {
	path    string
	method  string
	gateway string
	dns     []string
}

// FindNMConnection 查找 interface-name(缺省时为 id)等于 ifName 的 .nmconnection 文件.
func FindNMConnection(rootDir, ifName string) (NetworkCfgManager, error) {
	matches, err := filepath.Glob(filepath.Join(rootDir, NMSystemConnections, "*.nmconnection"))
	if err != nil {
		return nil, errors.Wrap(err, "glob nmconnection")
	}
	sort.Strings(matches)
	for _, p := range matches {
		cfg, e := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, p)
		if e != nil {
			continue
		}
		if m, ok := parseNMConnection(cfg, ifName); ok {
			m.path = p
			return m, nil
		}
	}
	return nil, errors.Errorf("no nmconnection for %s", ifName)
}

// ParseNMConnection 解析单个 keyfile 内容.
func ParseNMConnection(content []byte, ifName string) (*NMConnectionManager, bool) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, content)
	if err != nil {
		return nil, false
	}
	return parseNMConnection(cfg, ifName)
}

func parseNMConnection(cfg *ini.File, ifName string) (*NMConnectionManager, bool) {
	conn := cfg.Section("connection")
	target := conn.Key("interface-name").String()
	if target == "" {
		target = conn.Key("id").String()
	}
	if target != ifName {
		return nil, false
	}

	ipv4 := cfg.Section("ipv4")
	m := &NMConnectionManager{
		method:  ipv4.Key("method").String(),
		gateway: ipv4.Key("gateway").String(),
		dns:     make([]string, 0),
	}
	// address1=192.168.1.10/24,192.168.1.1
	if m.gateway == "" {
		if _, gw, ok := strings.Cut(ipv4.Key("address1").String(), ","); ok {
			m.gateway = strings.TrimSpace(gw)
		}
	}
	for _, d := range strings.Split(ipv4.Key("dns").String(), ";") {
		if d = strings.TrimSpace(d); d != "" {
			m.dns = append(m.dns, d)
		}
	}
	return m, true
}

func (m *NMConnectionManager) Type() string {
	return TypeNMConnection
}

func (m *NMConnectionManager) GetIPv4BootProto() string {
	switch m.method {
	case "auto":
		return BootProtoDHCP
	case "manual":
		return BootProtoStatic
	default:
		return BootProtoNone
	}
}

func (m *NMConnectionManager) GetIPv4Gateway() string {
	return m.gateway
}

func (m *NMConnectionManager) GetIPv4DNS() []string {
	return m.dns
}

func (m *NMConnectionManager) ConfigPath() string {
	return m.path
}
