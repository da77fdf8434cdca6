package ioctl

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-cmd/cmd"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
)

// LookPath 先查 PATH, 再查 extraDirs. 找不到时返回 ErrSourceUnavailable.
func LookPath(name string, extraDirs ...string) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	for _, dir := range extraDirs {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0 {
			return p, nil
		}
	}
	return "", errors.Wrapf(network.ErrSourceUnavailable, "executable %s not found", name)
}

// ExecContext 执行外部命令并返回标准输出.
// ctx 到期时终止进程并返回 ErrSourceTimeout; 命令无法启动时返回 ErrSourceUnavailable.
func ExecContext(ctx context.Context, name string, args ...string) (out string, err error) {
	c := cmd.NewCmd(name, args...)
	statusChan := c.Start()

	var status cmd.Status
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		_ = c.Stop()
		return "", errors.Wrapf(network.ErrSourceTimeout, "`%s %s`: %v", name, strings.Join(args, " "), ctx.Err())
	}

	if status.Error != nil {
		return "", errors.Wrapf(network.ErrSourceUnavailable, "`%s %s`: %v", name, strings.Join(args, " "), status.Error)
	}
	out = strings.Join(status.Stdout, "\n")
	if status.Exit != 0 {
		return out, errors.Errorf("`%s %s` exited with %d: %s",
			name, strings.Join(args, " "), status.Exit, strings.Join(status.Stderr, "\n"))
	}
	return out, nil
}
