package ioctl

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/thoas/go-funk"
)

// DHCPClients 常见的 DHCP 客户端进程名.
var DHCPClients = []string{"dhclient", "dhcpcd", "udhcpc", "dhcpcd5", "pump"}

// ProcessInfo 进程名与命令行参数.
type ProcessInfo struct {
	Name string
	Args []string
}

// ListDHCPClientProcesses 枚举名称属于 DHCPClients 的进程, 单个进程信息读取失败时跳过.
func ListDHCPClientProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(network.ErrSourceUnavailable, "list processes: %v", err)
	}
	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, e := p.NameWithContext(ctx)
		if e != nil {
			continue
		}
		if !funk.InStrings(DHCPClients, name) {
			continue
		}
		args, _ := p.CmdlineSliceWithContext(ctx)
		infos = append(infos, ProcessInfo{Name: name, Args: args})
	}
	return infos, nil
}

// MatchDHCPClient 返回作用于 iface 的 DHCP 客户端进程名.
// 参数中出现接口名本身, 或以 .<iface>.leases / -<iface>.lease 之类结尾的租约文件时视为命中.
func MatchDHCPClient(procs []ProcessInfo, iface string) (string, bool) {
	for _, p := range procs {
		if !funk.InStrings(DHCPClients, p.Name) {
			continue
		}
		for _, arg := range p.Args {
			if argMentionsInterface(arg, iface) {
				return p.Name, true
			}
		}
	}
	return "", false
}

func argMentionsInterface(arg, iface string) bool {
	if arg == iface {
		return true
	}
	// -ieth0
	if strings.HasPrefix(arg, "-i") && strings.TrimPrefix(arg, "-i") == iface {
		return true
	}
	if v, ok := strings.CutPrefix(arg, "--interface="); ok && v == iface {
		return true
	}
	base := filepath.Base(arg)
	for _, sep := range []string{".", "-"} {
		for _, suffix := range []string{".leases", ".lease", ".pid"} {
			if strings.HasSuffix(base, sep+iface+suffix) {
				return true
			}
		}
	}
	return false
}
