package link

import "errors"

// Framing errors, absorbed by the receiver: a bad frame is dropped and the
// receive loop continues without surfacing anything upward.
var (
	ErrBadStart     = errors.New("link: bad start bytes")
	ErrBadLength    = errors.New("link: length out of range")
	ErrBadHeaderCRC = errors.New("link: header CRC mismatch")
	ErrBadBodyCrc   = errors.New("link: body block CRC mismatch")
	ErrShortBuffer  = errors.New("link: buffer too short for declared length")
)

// Link-layer errors that surface above the frame codec.
var (
	ErrRetryExhausted     = errors.New("link: retry budget exhausted")
	ErrUnexpectedFunction = errors.New("link: unexpected function code for current state")
)
