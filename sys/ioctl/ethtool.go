package ioctl

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

// EthtoolInfo `ethtool <iface>` 输出中关心的字段. Speed 为 0 表示未知.
type EthtoolInfo struct {
	Speed        int
	Duplex       string
	Port         string
	LinkDetected bool
}

// Ethtool 执行 ethtool 并解析.
func Ethtool(ctx context.Context, ethtoolPath, iface string) (EthtoolInfo, error) {
	out, err := ExecContext(ctx, ethtoolPath, iface)
	if err != nil {
		return EthtoolInfo{}, err
	}
	return ParseEthtool(out)
}

// ParseEthtool 解析 "Key: value" 形式的输出:
//
//	Settings for eth0:
//		Speed: 1000Mb/s
//		Duplex: Full
//		Port: Twisted Pair
//		Link detected: yes
func ParseEthtool(output string) (EthtoolInfo, error) {
	var (
		info  EthtoolInfo
		found bool
	)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Speed":
			found = true
			info.Speed = parseEthtoolSpeed(value)
		case "Duplex":
			found = true
			info.Duplex = value
		case "Port":
			found = true
			info.Port = value
		case "Link detected":
			info.LinkDetected = value == "yes"
		}
	}
	if !found {
		return info, errors.Wrap(network.ErrMalformedResponse, "ethtool: no link settings in output")
	}
	return info, nil
}

func parseEthtoolSpeed(v string) int {
	v = strings.TrimSuffix(v, "Mb/s")
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
