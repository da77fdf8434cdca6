package ioctl

import (
	"os"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"
)

// IfCfgManager RHEL 系 ifcfg-<name> 文件.
type IfCfgManager struct {
	path string
	dict *orderedmap.OrderedMap[string, string]
}

func NewIfCfgManager(ifcfgFile string) (NetworkCfgManager, error) {
	if fi, err := os.Stat(ifcfgFile); err != nil {
		return nil, err
	} else {
		if fi.Size() == 0 {
			return nil, errors.Errorf("%s is empty, can not initialize network manager", ifcfgFile)
		}
	}
	content, err := os.ReadFile(ifcfgFile)
	if err != nil {
		return nil, err
	}
	ifMgr := ParseIfCfg(string(content))
	ifMgr.path = ifcfgFile
	return ifMgr, nil
}

// ParseIfCfg 解析 KEY=VALUE 行, 忽略注释, 去掉成对引号.
func ParseIfCfg(content string) *IfCfgManager {
	im := &IfCfgManager{dict: orderedmap.NewOrderedMap[string, string]()}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if key == "" || val == "" {
			continue
		}
		im.dict.Set(key, val)
	}
	return im
}

func (im *IfCfgManager) Type() string {
	return TypeIfCfg
}

// GetIPv4BootProto BOOTPROTO=none 但配置了 IPADDR 时视为静态地址.
func (im *IfCfgManager) GetIPv4BootProto() string {
	val, _ := im.dict.Get("BOOTPROTO")
	switch strings.ToLower(val) {
	case BootProtoDHCP, "bootp":
		return BootProtoDHCP
	case BootProtoStatic:
		return BootProtoStatic
	}
	for el := im.dict.Front(); el != nil; el = el.Next() {
		if strings.HasPrefix(el.Key, "IPADDR") {
			return BootProtoStatic
		}
	}
	return BootProtoNone
}

func (im *IfCfgManager) GetIPv4Gateway() string {
	ip, ok := im.dict.Get("GATEWAY")
	if !ok {
		return ""
	}
	return ip
}

func (im *IfCfgManager) GetIPv4DNS() []string {
	dnsList := make([]string, 0)
	for el := im.dict.Front(); el != nil; el = el.Next() {
		if strings.HasPrefix(el.Key, "DNS") {
			dnsList = append(dnsList, el.Value)
		}
	}
	return dnsList
}

func (im *IfCfgManager) ConfigPath() string {
	return im.path
}
