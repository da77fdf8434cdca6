package network

import "github.com/pkg/errors"

// 错误分类. 除 ErrValidation 外, 其余错误都在发生处被吸收并降级输出, 不会抛给调用方.
var (
	ErrValidation        = errors.New("validation error")
	ErrDuplicate         = errors.New("duplicate interface name")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceTimeout     = errors.New("source timeout")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCacheCorruption   = errors.New("cache corruption")
)
