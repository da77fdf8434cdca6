package pci

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// HardwareID 即 PCI\VEN_xxxx&DEV_xxxx&SUBSYS_xxxxxxxx 中的各段, 均为小写十六进制.
type HardwareID struct {
	Vendor          string
	Device          string
	SubsystemVendor string
	SubsystemDevice string
}

// String 形如 8086:100e, 与 lspci -n 一致.
func (h HardwareID) String() string {
	if h.Vendor == "" || h.Device == "" {
		return ""
	}
	return h.Vendor + ":" + h.Device
}

// ReadHardwareID 读取 sysfs 设备目录(如 /sys/class/net/eth0/device)下的 ID 文件.
// 非 PCI 设备(usb、virtio 总线以外的平台设备等)没有 vendor 文件时返回错误.
func ReadHardwareID(deviceDir string) (HardwareID, error) {
	var (
		h   HardwareID
		err error
	)
	if h.Vendor, err = readHex(filepath.Join(deviceDir, "vendor")); err != nil {
		return h, err
	}
	if h.Device, err = readHex(filepath.Join(deviceDir, "device")); err != nil {
		return h, err
	}
	h.SubsystemVendor, _ = readHex(filepath.Join(deviceDir, "subsystem_vendor"))
	h.SubsystemDevice, _ = readHex(filepath.Join(deviceDir, "subsystem_device"))
	return h, nil
}

func readHex(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	v := strings.ToLower(strings.TrimSpace(string(content)))
	v = strings.TrimPrefix(v, "0x")
	if v == "" {
		return "", errors.Errorf("%s is empty", path)
	}
	for _, c := range v {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return "", errors.Errorf("%s: invalid id %q", path, v)
		}
	}
	return v, nil
}
