package ioctl

import (
	"context"
	"strings"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// LinkInfo 一次批量查询得到的单个接口原始数据.
type LinkInfo struct {
	Name         string
	HardwareAddr string
	OperState    string
	MTU          int
	TxQueueLen   int
	Flags        []string
	Addresses    []string
	LinkType     string // ether, loopback, none...
	LinkKind     string // veth, bridge, bond, vlan..., 普通设备为空.
	ParentBus    string // pci, usb... 为空表示未绑定设备.
	ParentDev    string
}

// IPAddrShow 执行 `ip -j -d addr show`.
func IPAddrShow(ctx context.Context, ipPath string) ([]LinkInfo, error) {
	out, err := ExecContext(ctx, ipPath, "-j", "-d", "addr", "show")
	if err != nil {
		return nil, err
	}
	return ParseIPAddrJSON([]byte(out))
}

// ParseIPAddrJSON 解析 `ip -j -d addr show` 的 JSON 数组输出.
func ParseIPAddrJSON(data []byte) ([]LinkInfo, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(network.ErrMalformedResponse, "ip -j: invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.Wrap(network.ErrMalformedResponse, "ip -j: not a json array")
	}

	links := make([]LinkInfo, 0)
	for _, item := range root.Array() {
		name := item.Get("ifname").String()
		if name == "" {
			continue
		}
		link := LinkInfo{
			Name:         name,
			HardwareAddr: item.Get("address").String(),
			OperState:    item.Get("operstate").String(),
			MTU:          int(item.Get("mtu").Int()),
			TxQueueLen:   int(item.Get("txqlen").Int()),
			LinkType:     item.Get("link_type").String(),
			LinkKind:     item.Get("linkinfo.info_kind").String(),
			ParentBus:    item.Get("parentbus").String(),
			ParentDev:    item.Get("parentdev").String(),
			Flags:        make([]string, 0),
			Addresses:    make([]string, 0),
		}
		for _, f := range item.Get("flags").Array() {
			link.Flags = append(link.Flags, strings.ToUpper(f.String()))
		}
		for _, a := range item.Get("addr_info").Array() {
			if local := a.Get("local").String(); local != "" {
				link.Addresses = append(link.Addresses, local)
			}
		}
		links = append(links, link)
	}
	return links, nil
}
