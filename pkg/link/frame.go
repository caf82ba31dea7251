// Package link implements the DNP3 link layer: the 10-byte header + CRC'd
// 16-byte data block framing codec (this file), and the reset/confirm/ack
// state machine that drives it (fsm.go). The codec shape is grounded on
// the teacher's bus.go/bus_manager.go split between wire framing and the
// stateful layer that owns retries.
package link

import (
	"encoding/binary"

	"github.com/dnp3core/godnp3/internal/crc"
)

// StartBytes are the two fixed bytes that open every link frame.
const (
	StartByte0 = 0x05
	StartByte1 = 0x64
)

// HeaderSize is the length in bytes of the fixed link header.
const HeaderSize = 10

// MaxUserDataSize is the largest payload a single link frame can carry.
const MaxUserDataSize = 250

// blockSize is the number of user-data bytes per CRC'd data block.
const blockSize = 16

// Primary-to-secondary function codes.
const (
	FuncResetLinkStates     uint8 = 0x00
	FuncTestLinkStates      uint8 = 0x02
	FuncConfirmedUserData   uint8 = 0x03
	FuncUnconfirmedUserData uint8 = 0x04
	FuncRequestLinkStatus   uint8 = 0x09
)

// Secondary-to-primary function codes.
const (
	FuncAck          uint8 = 0x00
	FuncNack         uint8 = 0x01
	FuncLinkStatus   uint8 = 0x0B
	FuncNotSupported uint8 = 0x0F
)

// Control bit positions within the control byte.
const (
	ctrlDir uint8 = 1 << 7
	ctrlPrm uint8 = 1 << 6
	ctrlFcb uint8 = 1 << 5
	ctrlFcv uint8 = 1 << 4
	ctrlFuncMask uint8 = 0x0F
)

// NewControl packs the DIR/PRM/FCB/FCV bits and a 4-bit function code into
// a control byte.
func NewControl(dir, prm, fcb, fcvDfc bool, function uint8) uint8 {
	var c uint8
	if dir {
		c |= ctrlDir
	}
	if prm {
		c |= ctrlPrm
	}
	if fcb {
		c |= ctrlFcb
	}
	if fcvDfc {
		c |= ctrlFcv
	}
	c |= function & ctrlFuncMask
	return c
}

// LinkHeader is the 10-byte DNP3 link header.
type LinkHeader struct {
	Length      uint8
	Control     uint8
	Destination uint16
	Source      uint16
	HeaderCRC   uint16
}

func (h LinkHeader) Dir() bool      { return h.Control&ctrlDir != 0 }
func (h LinkHeader) Prm() bool      { return h.Control&ctrlPrm != 0 }
func (h LinkHeader) Fcb() bool      { return h.Control&ctrlFcb != 0 }
func (h LinkHeader) FcvDfc() bool   { return h.Control&ctrlFcv != 0 }
func (h LinkHeader) Function() uint8 { return h.Control & ctrlFuncMask }

// UserDataLen returns the number of user-data bytes the header declares,
// per the invariant length = user_data_len + 5.
func (h LinkHeader) UserDataLen() int {
	return int(h.Length) - 5
}

func numBlocks(userLen int) int {
	if userLen <= 0 {
		return 0
	}
	return (userLen + blockSize - 1) / blockSize
}

// FrameSize returns the total wire size of a frame carrying userLen bytes
// of payload: 10 + ceil(userLen/16)*2 + userLen.
func FrameSize(userLen int) int {
	return HeaderSize + numBlocks(userLen)*2 + userLen
}

func headerBytes(destination, source uint16, length, control uint8) [8]byte {
	var b [8]byte
	b[0] = StartByte0
	b[1] = StartByte1
	b[2] = length
	b[3] = control
	binary.LittleEndian.PutUint16(b[4:6], destination)
	binary.LittleEndian.PutUint16(b[6:8], source)
	return b
}

// WriteFrame emits header + header-CRC, then each 16-byte user-data block
// followed by its own CRC.
func WriteFrame(control uint8, destination, source uint16, payload []byte) []byte {
	if len(payload) > MaxUserDataSize {
		payload = payload[:MaxUserDataSize]
	}
	length := uint8(len(payload) + 5)
	hdr := headerBytes(destination, source, length, control)
	hdrCRC := crc.Calc(hdr[:])

	out := make([]byte, 0, FrameSize(len(payload)))
	out = append(out, hdr[:]...)
	out = binary.LittleEndian.AppendUint16(out, hdrCRC)

	for off := 0; off < len(payload); off += blockSize {
		end := off + blockSize
		if end > len(payload) {
			end = len(payload)
		}
		block := payload[off:end]
		out = append(out, block...)
		out = binary.LittleEndian.AppendUint16(out, crc.Calc(block))
	}
	return out
}

// ParseFrame validates and decodes a link frame from the front of data. It
// returns the header, the reassembled user-data payload, and the total
// number of bytes consumed from data.
func ParseFrame(data []byte) (LinkHeader, []byte, int, error) {
	if len(data) < HeaderSize {
		return LinkHeader{}, nil, 0, ErrShortBuffer
	}
	if data[0] != StartByte0 || data[1] != StartByte1 {
		return LinkHeader{}, nil, 0, ErrBadStart
	}
	length := data[2]
	if length < 5 {
		return LinkHeader{}, nil, 0, ErrBadLength
	}
	control := data[3]
	destination := binary.LittleEndian.Uint16(data[4:6])
	source := binary.LittleEndian.Uint16(data[6:8])
	wantHdrCRC := binary.LittleEndian.Uint16(data[8:10])
	if !crc.Verify(data[0:8], wantHdrCRC) {
		return LinkHeader{}, nil, 0, ErrBadHeaderCRC
	}

	userLen := int(length) - 5
	total := FrameSize(userLen)
	if len(data) < total {
		return LinkHeader{}, nil, 0, ErrShortBuffer
	}

	payload := make([]byte, 0, userLen)
	pos := HeaderSize
	remaining := userLen
	for remaining > 0 {
		n := remaining
		if n > blockSize {
			n = blockSize
		}
		block := data[pos : pos+n]
		wantCRC := binary.LittleEndian.Uint16(data[pos+n : pos+n+2])
		if !crc.Verify(block, wantCRC) {
			return LinkHeader{}, nil, 0, ErrBadBodyCrc
		}
		payload = append(payload, block...)
		pos += n + 2
		remaining -= n
	}

	header := LinkHeader{
		Length:      length,
		Control:     control,
		Destination: destination,
		Source:      source,
		HeaderCRC:   wantHdrCRC,
	}
	return header, payload, pos, nil
}
