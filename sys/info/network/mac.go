package network

import (
	"strings"

	"github.com/pkg/errors"
)

const hexDigits = "0123456789ABCDEF"

// NormalizeHardwareAddr 将任意分隔风格(冒号、短横线、点或无分隔)的 MAC 地址
// 规范化为 AA:BB:CC:DD:EE:FF. 对已规范化的地址重复调用结果不变.
func NormalizeHardwareAddr(addr string) (string, error) {
	raw := strings.ToUpper(strings.TrimSpace(addr))
	raw = strings.NewReplacer(":", "", "-", "", ".", "").Replace(raw)
	if len(raw) != 12 {
		return "", errors.Wrapf(ErrValidation, "hardware address %q: want 12 hex digits, got %d", addr, len(raw))
	}
	for _, c := range raw {
		if !strings.ContainsRune(hexDigits, c) {
			return "", errors.Wrapf(ErrValidation, "hardware address %q: non-hex character %q", addr, c)
		}
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(raw[i : i+2])
	}
	return b.String(), nil
}

// OUI 返回地址前三个字节, 即 6 个大写十六进制字符(无分隔符).
func OUI(addr string) (string, error) {
	canonical, err := NormalizeHardwareAddr(addr)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(canonical[:8], ":", ""), nil
}

// NormalizeOUI 规范化一个前缀(如 52:54:00 或 525400), 返回 6 位大写十六进制.
func NormalizeOUI(prefix string) (string, error) {
	raw := strings.ToUpper(strings.TrimSpace(prefix))
	raw = strings.NewReplacer(":", "", "-", "", ".", "").Replace(raw)
	if len(raw) < 6 {
		return "", errors.Wrapf(ErrValidation, "oui %q: want at least 6 hex digits", prefix)
	}
	raw = raw[:6]
	for _, c := range raw {
		if !strings.ContainsRune(hexDigits, c) {
			return "", errors.Wrapf(ErrValidation, "oui %q: non-hex character %q", prefix, c)
		}
	}
	return raw, nil
}

// IsZeroHardwareAddr 全零地址(如 loopback、部分隧道设备)视为无地址.
func IsZeroHardwareAddr(addr string) bool {
	raw := strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(addr))
	if raw == "" {
		return false
	}
	return strings.Trim(raw, "0") == ""
}
