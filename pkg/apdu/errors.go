package apdu

import "errors"

var (
	ErrTooShort             = errors.New("apdu: buffer too short")
	ErrUnsupportedQualifier = errors.New("apdu: unsupported qualifier")
	ErrUnsupportedObject    = errors.New("apdu: unsupported group/variation")
)
