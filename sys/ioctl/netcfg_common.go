package ioctl

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// NetworkCfgManager 只读访问某个接口的静态网络配置.
type NetworkCfgManager interface {
	Type() string
	// GetIPv4BootProto 返回 BootProtoDHCP、BootProtoStatic 或 BootProtoNone.
	GetIPv4BootProto() string
	GetIPv4Gateway() string
	GetIPv4DNS() []string
	ConfigPath() string
}

// DetectIfCfgAndGenerateManager 检测可能的网络配置路径.
// 疑似路径集合(按顺序):
// 1. $ROOT/etc/sysconfig/*/ifcfg-*
// 2. $ROOT/etc/network/inter[f]aces 及 $ROOT/etc/network/interfaces.d/*
// 3. $ROOT/etc/NetworkManager/system-connections/*.nmconnection
// systemd-networkd 的配置见 DetectNetworkdConfig.
func DetectIfCfgAndGenerateManager(rootDir, ifName string) (ifManager NetworkCfgManager, err error) {
	ifcfgPattern := filepath.Join(rootDir, EtcSysconfigIfCfgPattern)
	ifCfgMatches, err := filepath.Glob(ifcfgPattern)
	if err == nil && len(ifCfgMatches) > 0 {
		for _, ifCfgPath := range ifCfgMatches {
			if filepath.Base(ifCfgPath) != fmt.Sprintf("ifcfg-%s", ifName) {
				continue
			}
			fi, e := os.Lstat(ifCfgPath)
			if e != nil {
				return nil, errors.Wrapf(e, "ifcfg is %s", ifCfgPath)
			}
			if fi.IsDir() {
				continue
			}
			// TODO 兼容链接配置文件.
			if fi.Mode()&fs.ModeSymlink != 0 {
				continue
			}
			return NewIfCfgManager(ifCfgPath)
		}
	}

	if m, e := NewInterfacesManager(rootDir, ifName); e == nil {
		return m, nil
	}

	if m, e := FindNMConnection(rootDir, ifName); e == nil {
		return m, nil
	}

	return nil, errors.Errorf("unable to find network card(%s) configuration file", ifName)
}

// NMBootProto 由 NetworkManager 设备的配置对象路径推断: 有 Dhcp4Config 为 dhcp,
// 仅有 Ip4Config 为 static, "/" 表示未分配.
func NMBootProto(dhcp4Path, ip4Path string) string {
	assigned := func(p string) bool { return p != "" && p != "/" }
	switch {
	case assigned(dhcp4Path):
		return BootProtoDHCP
	case assigned(ip4Path):
		return BootProtoStatic
	default:
		return BootProtoNone
	}
}
