//go:build !linux

package ioctl

import (
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

func DriverByIoctl(name string) (string, error) {
	return "", errors.Wrapf(network.ErrSourceUnavailable, "driver ioctl for %s: unsupported platform", name)
}
