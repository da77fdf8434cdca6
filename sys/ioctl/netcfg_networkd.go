package ioctl

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// NetworkdManager systemd-networkd 的 .network 文件.
type NetworkdManager struct {
	path      string
	dhcp      string
	addresses []string
	gateway   string
	dns       []string
}

var networkdLoadOptions = ini.LoadOptions{
	AllowShadows:           true,
	AllowNonUniqueSections: true,
	IgnoreInlineComment:    true,
}

// DetectNetworkdConfig 按 networkd 的规则收集 .network 文件: 同名文件以靠前目录为准,
// 再按文件名排序, 第一个 [Match] Name= 命中 ifName 的文件生效.
func DetectNetworkdConfig(rootDir, ifName string) (NetworkCfgManager, error) {
	byName := make(map[string]string)
	for _, dir := range NetworkdConfigDirs {
		matches, _ := filepath.Glob(filepath.Join(rootDir, dir, "*.network"))
		for _, p := range matches {
			if _, ok := byName[filepath.Base(p)]; !ok {
				byName[filepath.Base(p)] = p
			}
		}
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		p := byName[n]
		cfg, err := ini.LoadSources(networkdLoadOptions, p)
		if err != nil {
			continue
		}
		if m, ok := parseNetworkd(cfg, ifName); ok {
			m.path = p
			return m, nil
		}
	}
	return nil, errors.Errorf("no networkd config matches %s", ifName)
}

func ParseNetworkd(content []byte, ifName string) (*NetworkdManager, bool) {
	cfg, err := ini.LoadSources(networkdLoadOptions, content)
	if err != nil {
		return nil, false
	}
	return parseNetworkd(cfg, ifName)
}

func parseNetworkd(cfg *ini.File, ifName string) (*NetworkdManager, bool) {
	if !networkdNameMatches(cfg.Section("Match").Key("Name").ValueWithShadows(), ifName) {
		return nil, false
	}
	netSec := cfg.Section("Network")
	m := &NetworkdManager{
		dhcp:      strings.ToLower(netSec.Key("DHCP").String()),
		gateway:   netSec.Key("Gateway").String(),
		addresses: make([]string, 0),
		dns:       make([]string, 0),
	}
	for _, a := range netSec.Key("Address").ValueWithShadows() {
		if a = strings.TrimSpace(a); a != "" {
			m.addresses = append(m.addresses, a)
		}
	}
	if sections, err := cfg.SectionsByName("Address"); err == nil {
		for _, s := range sections {
			if a := s.Key("Address").String(); a != "" {
				m.addresses = append(m.addresses, a)
			}
		}
	}
	if m.gateway == "" {
		if sections, err := cfg.SectionsByName("Route"); err == nil {
			for _, s := range sections {
				if gw := s.Key("Gateway").String(); gw != "" {
					m.gateway = gw
					break
				}
			}
		}
	}
	for _, d := range netSec.Key("DNS").ValueWithShadows() {
		m.dns = append(m.dns, strings.Fields(d)...)
	}
	return m, true
}

// Name= 为空格分隔的 glob 列表, 以 ! 开头表示取反.
func networkdNameMatches(values []string, ifName string) bool {
	var patterns []string
	for _, v := range values {
		patterns = append(patterns, strings.Fields(v)...)
	}
	if len(patterns) == 0 {
		return false
	}
	invert := false
	if strings.HasPrefix(patterns[0], "!") {
		invert = true
		patterns[0] = strings.TrimPrefix(patterns[0], "!")
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, ifName); ok {
			return !invert
		}
	}
	return invert
}

func (m *NetworkdManager) Type() string {
	return TypeNetworkd
}

// GetIPv4BootProto DHCP=yes|ipv4|true|both 视为 dhcp, 否则有 Address= 视为静态.
func (m *NetworkdManager) GetIPv4BootProto() string {
	switch m.dhcp {
	case "yes", "ipv4", "true", "both", "on", "1":
		return BootProtoDHCP
	}
	if len(m.addresses) > 0 {
		return BootProtoStatic
	}
	return BootProtoNone
}

func (m *NetworkdManager) GetIPv4Gateway() string {
	return m.gateway
}

func (m *NetworkdManager) GetIPv4DNS() []string {
	return m.dns
}

func (m *NetworkdManager) ConfigPath() string {
	return m.path
}
