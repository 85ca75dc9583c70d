package request

import "github.com/infigaming-com/go-fxconvert/errors"

const (
	ErrCodeInvalidSlowRequestThreshold int64 = 10000 + iota
	ErrCodeFailedToCreateRequest
	ErrCodeFailedToSendRequest
	ErrCodeFailedToReadResponseBody
	ErrCodeRequestTimeout
)

var ErrInvalidSlowRequestThreshold = errors.NewError(ErrCodeInvalidSlowRequestThreshold, "invalid slow request threshold", nil)
