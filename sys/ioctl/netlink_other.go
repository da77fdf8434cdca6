//go:build !linux

package ioctl

import (
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

func NetlinkLinks() ([]LinkInfo, error) {
	return nil, errors.Wrap(network.ErrSourceUnavailable, "netlink: unsupported platform")
}
