package measurement

import "errors"

var (
	errShort       = errors.New("measurement: point data too short")
	errNoCTO       = errors.New("measurement: relative-time variant received before any CTO")
	errUnsupported = errors.New("measurement: unsupported group/variation")
)
