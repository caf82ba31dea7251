package app

import "errors"

var (
	ErrSendFailed          = errors.New("app: transmit failed")
	ErrCanceled            = errors.New("app: exchange canceled")
	ErrConfirmTimeout      = errors.New("app: confirm timeout")
	ErrBadResponseSequence = errors.New("app: bad response sequence")
)
