package util

import "context"

// Cancelled 非阻塞地检查 ctx 是否已结束.
func Cancelled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	return ctx.Err() != nil
}
