//go:build linux

package ioctl

import (
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// NetlinkLinks 通过 rtnetlink 一次性取得全部接口及地址.
func NetlinkLinks() ([]LinkInfo, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.Wrapf(network.ErrSourceUnavailable, "netlink LinkList: %v", err)
	}
	out := make([]LinkInfo, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		if attrs == nil {
			continue
		}
		info := LinkInfo{
			Name:       attrs.Name,
			OperState:  attrs.OperState.String(),
			LinkType:   attrs.EncapType,
			MTU:        attrs.MTU,
			TxQueueLen: attrs.TxQLen,
			ParentBus:  attrs.ParentDevBus,
			ParentDev:  attrs.ParentDev,
			Flags:      flagsFromBits(uint64(attrs.RawFlags)),
			Addresses:  make([]string, 0),
		}
		if len(attrs.HardwareAddr) > 0 {
			info.HardwareAddr = attrs.HardwareAddr.String()
		}
		if kind := l.Type(); kind != "device" {
			info.LinkKind = kind
		}
		addrs, e := netlink.AddrList(l, netlink.FAMILY_ALL)
		if e == nil {
			for _, a := range addrs {
				if a.IP != nil {
					info.Addresses = append(info.Addresses, a.IP.String())
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}
