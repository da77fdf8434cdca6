//go:build linux

package ioctl

import (
	"context"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

const (
	nmBusName    = "org.freedesktop.NetworkManager"
	nmObjectPath = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmDevice     = "org.freedesktop.NetworkManager.Device"

	NetworkdUnit = "systemd-networkd.service"
)

// NMDeviceIPv4 查询 NetworkManager 管理的设备当前的 IPv4 配置对象路径.
// 未分配时路径为 "/".
func NMDeviceIPv4(ctx context.Context, iface string) (dhcp4, ip4 dbus.ObjectPath, err error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return "", "", errors.Wrapf(network.ErrSourceUnavailable, "system bus: %v", err)
	}
	defer conn.Close()

	var devPath dbus.ObjectPath
	if err = conn.Object(nmBusName, nmObjectPath).
		CallWithContext(ctx, nmBusName+".GetDeviceByIpIface", 0, iface).
		Store(&devPath); err != nil {
		return "", "", errors.Wrapf(network.ErrSourceUnavailable, "NetworkManager GetDeviceByIpIface(%s): %v", iface, err)
	}

	dev := conn.Object(nmBusName, devPath)
	dhcp4, err = objectPathProperty(dev, nmDevice+".Dhcp4Config")
	if err != nil {
		return "", "", err
	}
	ip4, err = objectPathProperty(dev, nmDevice+".Ip4Config")
	if err != nil {
		return "", "", err
	}
	return dhcp4, ip4, nil
}

func objectPathProperty(obj dbus.BusObject, name string) (dbus.ObjectPath, error) {
	v, err := obj.GetProperty(name)
	if err != nil {
		return "", errors.Wrapf(network.ErrSourceUnavailable, "get %s: %v", name, err)
	}
	p, ok := v.Value().(dbus.ObjectPath)
	if !ok {
		return "", errors.Wrapf(network.ErrMalformedResponse, "%s is %T", name, v.Value())
	}
	return p, nil
}

// UnitActive 通过 systemd D-Bus 查询单元是否处于 active 状态.
func UnitActive(ctx context.Context, unit string) (bool, error) {
	conn, err := sddbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, errors.Wrapf(network.ErrSourceUnavailable, "systemd bus: %v", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return false, errors.Wrapf(network.ErrSourceUnavailable, "ListUnitsByNames(%s): %v", unit, err)
	}
	for _, u := range units {
		if u.Name == unit {
			return u.ActiveState == "active", nil
		}
	}
	return false, nil
}
