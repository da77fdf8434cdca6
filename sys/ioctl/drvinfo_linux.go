//go:build linux

package ioctl

import (
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DriverByIoctl 通过 SIOCETHTOOL/ETHTOOL_GDRVINFO 查询驱动名.
func DriverByIoctl(name string) (string, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return "", errors.Wrapf(network.ErrSourceUnavailable, "socket: %v", err)
	}
	defer unix.Close(fd)

	info, err := unix.IoctlGetEthtoolDrvinfo(fd, name)
	if err != nil {
		return "", errors.Wrapf(network.ErrSourceUnavailable, "ETHTOOL_GDRVINFO %s: %v", name, err)
	}
	return unix.ByteSliceToString(info.Driver[:]), nil
}
