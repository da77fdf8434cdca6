package util

import (
	"os"
	"regexp"
	"strings"
)

var (
	expandRegex = regexp.MustCompile("%([a-zA-Z_0-9]+)%")
)

// ExpandEnv 展开路径中的环境变量, 同时支持 $VAR/${VAR} 与 Windows 风格的 %VAR%.
func ExpandEnv(v string) string {
	v = expandRegex.ReplaceAllString(v, "$${$1}")
	return os.Expand(v, getenv)
}

func getenv(v string) string {
	switch v {
	case "$":
		return "$"
	}
	return os.Getenv(v)
}

// ParseBool 宽松解析布尔开关(1/true/yes/on), 空值返回 fallback.
func ParseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
