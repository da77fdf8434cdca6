package ioctl

import (
	"context"
	"strings"
)

// NmcliDevice `nmcli -t -f DEVICE,TYPE,STATE device` 的一行.
type NmcliDevice struct {
	Device string
	Type   string
	State  string
}

func NmcliDevices(ctx context.Context, nmcliPath string) ([]NmcliDevice, error) {
	out, err := ExecContext(ctx, nmcliPath, "-t", "-f", "DEVICE,TYPE,STATE", "device")
	if err != nil {
		return nil, err
	}
	return ParseNmcliDevices(out), nil
}

// ParseNmcliDevices terse 模式以冒号分隔, 字段内的冒号被转义为 \:.
func ParseNmcliDevices(out string) []NmcliDevice {
	devices := make([]NmcliDevice, 0)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitTerse(line)
		if len(fields) < 3 {
			continue
		}
		devices = append(devices, NmcliDevice{Device: fields[0], Type: fields[1], State: fields[2]})
	}
	return devices
}

func splitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case line[i] == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	return append(fields, cur.String())
}
