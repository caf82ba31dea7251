package apdu

import "encoding/binary"

// Qualifier codes supported by this core.
const (
	QualUint8StartStop       uint8 = 0x00
	QualUint16StartStop      uint8 = 0x01
	QualUint8Cnt             uint8 = 0x07
	QualUint16Cnt            uint8 = 0x08
	QualUint8CntUint8Index   uint8 = 0x17
	QualUint16CntUint16Index uint8 = 0x28
)

// RangeKind tags which shape a Range takes.
type RangeKind uint8

const (
	RangeStartStop RangeKind = iota
	RangeCount
	RangeIndexed
)

// Range is the decoded range/count field of an object header.
type Range struct {
	Kind       RangeKind
	Qualifier  uint8
	Start      uint32
	Stop       uint32
	Count      uint32
	IndexWidth int // 1 or 2, only meaningful for RangeIndexed
}

// NPoints returns how many objects this range addresses.
func (r Range) NPoints() int {
	switch r.Kind {
	case RangeStartStop:
		if r.Stop < r.Start {
			return 0
		}
		return int(r.Stop-r.Start) + 1
	default:
		return int(r.Count)
	}
}

// ObjectBytesLen returns how many raw object-data bytes follow the header
// for a point count of r.NPoints() objects of the given group/variation,
// when the enclosing function code carries object values at all.
func (r Range) ObjectBytesLen(group, variation uint8) (int, error) {
	bits, err := pointSizeBits(group, variation)
	if err != nil {
		return 0, err
	}
	n := r.NPoints()
	if bits == 0 || n == 0 {
		return 0, nil
	}
	perPoint := (bits + 7) / 8
	if r.Kind == RangeIndexed {
		return n * (r.IndexWidth + perPoint), nil
	}
	if bits < 8 {
		// Bitfield-packed group: total bits, not per-point rounding.
		return (n*bits + 7) / 8, nil
	}
	return n * perPoint, nil
}

func encodeRangeUint8StartStop(r Range) []byte {
	return []byte{byte(r.Start), byte(r.Stop)}
}

func encodeRangeUint16StartStop(r Range) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Start))
	binary.LittleEndian.PutUint16(b[2:4], uint16(r.Stop))
	return b
}

// EncodeRange serializes the range/count portion of a header for the given
// qualifier.
func EncodeRange(r Range) []byte {
	switch r.Qualifier {
	case QualUint8StartStop:
		return encodeRangeUint8StartStop(r)
	case QualUint16StartStop:
		return encodeRangeUint16StartStop(r)
	case QualUint8Cnt:
		return []byte{byte(r.Count)}
	case QualUint16Cnt:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(r.Count))
		return b
	case QualUint8CntUint8Index:
		return []byte{byte(r.Count)}
	case QualUint16CntUint16Index:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(r.Count))
		return b
	default:
		return nil
	}
}

// DecodeRange parses the range/count field for qualifier from data,
// returning the Range and the number of bytes consumed.
func DecodeRange(qualifier uint8, data []byte) (Range, int, error) {
	switch qualifier {
	case QualUint8StartStop:
		if len(data) < 2 {
			return Range{}, 0, ErrTooShort
		}
		return Range{Kind: RangeStartStop, Qualifier: qualifier, Start: uint32(data[0]), Stop: uint32(data[1])}, 2, nil
	case QualUint16StartStop:
		if len(data) < 4 {
			return Range{}, 0, ErrTooShort
		}
		start := uint32(binary.LittleEndian.Uint16(data[0:2]))
		stop := uint32(binary.LittleEndian.Uint16(data[2:4]))
		return Range{Kind: RangeStartStop, Qualifier: qualifier, Start: start, Stop: stop}, 4, nil
	case QualUint8Cnt:
		if len(data) < 1 {
			return Range{}, 0, ErrTooShort
		}
		return Range{Kind: RangeCount, Qualifier: qualifier, Count: uint32(data[0])}, 1, nil
	case QualUint16Cnt:
		if len(data) < 2 {
			return Range{}, 0, ErrTooShort
		}
		return Range{Kind: RangeCount, Qualifier: qualifier, Count: uint32(binary.LittleEndian.Uint16(data[0:2]))}, 2, nil
	case QualUint8CntUint8Index:
		if len(data) < 1 {
			return Range{}, 0, ErrTooShort
		}
		return Range{Kind: RangeIndexed, Qualifier: qualifier, Count: uint32(data[0]), IndexWidth: 1}, 1, nil
	case QualUint16CntUint16Index:
		if len(data) < 2 {
			return Range{}, 0, ErrTooShort
		}
		return Range{Kind: RangeIndexed, Qualifier: qualifier, Count: uint32(binary.LittleEndian.Uint16(data[0:2])), IndexWidth: 2}, 2, nil
	default:
		return Range{}, 0, ErrUnsupportedQualifier
	}
}
