package util

import (
	"context"
	"github.com/pkg/errors"
	"time"
)

var (
	ErrRetryTimeout = errors.New("retry timeout")
)

// Retry 最多执行 number 次 cb, 每次失败后等待 sleep.
// 仅当 retryable 为空或返回 true 时继续重试, 最后一次失败不再等待.
func Retry(ctx context.Context, cb func() error, number int, sleep time.Duration, retryable func(error) bool) error {
	var err error
	for i := 0; i < number; i++ {
		err = cb()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == number-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrRetryTimeout, "after %d attempt(s), last error: %v", i+1, err)
		case <-time.After(sleep):
		}
	}
	return err
}
