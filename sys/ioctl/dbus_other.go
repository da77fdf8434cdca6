//go:build !linux

package ioctl

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

const NetworkdUnit = "systemd-networkd.service"

func NMDeviceIPv4(_ context.Context, iface string) (dhcp4, ip4 dbus.ObjectPath, err error) {
	return "", "", errors.Wrapf(network.ErrSourceUnavailable, "NetworkManager for %s: unsupported platform", iface)
}

func UnitActive(_ context.Context, unit string) (bool, error) {
	return false, errors.Wrapf(network.ErrSourceUnavailable, "systemd unit %s: unsupported platform", unit)
}
