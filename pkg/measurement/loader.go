package measurement

import (
	"encoding/binary"
	"math"

	"github.com/dnp3core/godnp3/pkg/apdu"
	log "github.com/sirupsen/logrus"
)

// Loader decodes the object blocks of one or more response fragments
// into Points, batching them until Flush publishes the whole group
// atomically. A loader is scoped to a single multi-fragment response: a
// relative-time variant decoded before any CTO has been seen in that
// scope is dropped.
type Loader struct {
	cto   CTOHistory
	batch []Point
	log   *log.Entry
}

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{log: log.WithField("component", "measurement-loader")}
}

// LoadFragment walks every object block of frag and appends decoded
// points to the pending batch.
func (l *Loader) LoadFragment(frag apdu.Fragment) {
	for _, block := range frag.Objects {
		l.loadBlock(block)
	}
}

// Flush returns the accumulated batch and clears it, publishing the
// points decoded so far as one atomic update.
func (l *Loader) Flush() []Point {
	out := l.batch
	l.batch = nil
	return out
}

func (l *Loader) loadBlock(block apdu.ObjectBlock) {
	h := block.Header
	n := h.Range.NPoints()
	if n == 0 {
		return
	}

	if h.Group == 51 {
		l.loadCTO(h, block.Data)
		return
	}
	if h.Group == 60 {
		return
	}

	indices, values, ok := splitPoints(h, block.Data, n)
	if !ok {
		l.log.Warnf("group %d var %d: malformed object data, dropping block", h.Group, h.Variation)
		return
	}

	for i := 0; i < n; i++ {
		p, err := decodeValue(h.Group, h.Variation, indices[i], values[i], &l.cto)
		if err != nil {
			l.log.Warnf("group %d var %d index %d: %v", h.Group, h.Variation, indices[i], err)
			continue
		}
		l.batch = append(l.batch, p)
	}
}

// splitPoints partitions a block's raw object bytes into per-point index
// and value slices, honoring the three range shapes. It reports false if
// the raw byte count does not divide evenly, which only legitimately
// happens on a malformed or truncated fragment.
func splitPoints(h apdu.Header, data []byte, n int) ([]uint32, [][]byte, bool) {
	indices := make([]uint32, n)
	values := make([][]byte, n)

	if h.Range.Kind == apdu.RangeIndexed {
		if n == 0 {
			return indices, values, true
		}
		perPoint := len(data) / n
		if perPoint < h.Range.IndexWidth || len(data)%n != 0 {
			return nil, nil, false
		}
		valueLen := perPoint - h.Range.IndexWidth
		pos := 0
		for i := 0; i < n; i++ {
			idxBytes := data[pos : pos+h.Range.IndexWidth]
			if h.Range.IndexWidth == 1 {
				indices[i] = uint32(idxBytes[0])
			} else {
				indices[i] = uint32(binary.LittleEndian.Uint16(idxBytes))
			}
			pos += h.Range.IndexWidth
			values[i] = data[pos : pos+valueLen]
			pos += valueLen
		}
		return indices, values, true
	}

	if isPacked(h.Group, h.Variation) {
		width := 1
		if h.Group == 3 {
			width = 2 // double-bit input: four points per byte
		}
		start := h.Range.Start
		for i := 0; i < n; i++ {
			indices[i] = start + uint32(i)
			bitPos := i * width
			byteIdx := bitPos / 8
			bitIdx := uint(bitPos % 8)
			if byteIdx >= len(data) {
				return nil, nil, false
			}
			bit := (data[byteIdx] >> bitIdx) & byte(1<<width-1)
			values[i] = []byte{bit}
		}
		return indices, values, true
	}

	if len(data) == 0 {
		// Range-only request echoed with no value bytes: nothing to decode.
		return nil, nil, true
	}
	if n == 0 || len(data)%n != 0 {
		return nil, nil, false
	}
	perPoint := len(data) / n
	start := h.Range.Start
	pos := 0
	for i := 0; i < n; i++ {
		indices[i] = start + uint32(i)
		values[i] = data[pos : pos+perPoint]
		pos += perPoint
	}
	return indices, values, true
}

func isPacked(group, variation uint8) bool {
	switch {
	case group == 1 && variation == 1:
		return true
	case group == 3 && variation == 1:
		return true
	case group == 10 && variation == 1:
		return true
	default:
		return false
	}
}

func (l *Loader) loadCTO(h apdu.Header, data []byte) {
	if len(data) < 6 {
		l.log.Warn("group 51: short CTO object")
		return
	}
	ms := decodeUint48(data[0:6])
	l.cto.SetBase(ms)
}

func decodeUint48(b []byte) uint64 {
	var v uint64
	for i := 5; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// decodeValue turns one point's raw bytes into a typed Point. raw is
// exactly the bytes belonging to this point, already sliced out by
// splitPoints.
func decodeValue(group, variation uint8, index uint32, raw []byte, cto *CTOHistory) (Point, error) {
	p := Point{Index: uint16(index), Quality: DefaultQuality}

	switch group {
	case 1: // binary input, static
		p.Kind = KindBinary
		if variation == 1 {
			p.Int = int64(raw[0])
			return p, nil
		}
		p.Quality = Quality(raw[0] & 0x7F)
		p.Int = int64(raw[0] & 0x80 >> 7)
		return p, nil

	case 2: // binary input, event
		p.Kind = KindBinary
		if len(raw) < 1 {
			return p, errShort
		}
		p.Quality = Quality(raw[0] & 0x7F)
		p.Int = int64(raw[0] & 0x80 >> 7)
		switch variation {
		case 2:
			if len(raw) < 7 {
				return p, errShort
			}
			p.HasTime = true
			p.TimeMs = decodeUint48(raw[1:7])
		case 3:
			if len(raw) < 3 {
				return p, errShort
			}
			offset := uint64(binary.LittleEndian.Uint16(raw[1:3]))
			ms, ok := cto.Resolve(offset)
			if !ok {
				return p, errNoCTO
			}
			p.HasTime = true
			p.TimeMs = ms
		}
		return p, nil

	case 3: // double-bit binary input, static
		p.Kind = KindDoubleBitBinary
		if variation == 1 {
			p.Int = int64(raw[0])
			return p, nil
		}
		p.Quality = Quality(raw[0] & 0x3F)
		p.Int = int64((raw[0] >> 6) & 0x03)
		return p, nil

	case 4: // double-bit binary input, event
		p.Kind = KindDoubleBitBinary
		if len(raw) < 1 {
			return p, errShort
		}
		p.Quality = Quality(raw[0] & 0x3F)
		p.Int = int64((raw[0] >> 6) & 0x03)
		switch variation {
		case 2:
			if len(raw) < 7 {
				return p, errShort
			}
			p.HasTime = true
			p.TimeMs = decodeUint48(raw[1:7])
		case 3:
			if len(raw) < 3 {
				return p, errShort
			}
			ms, ok := cto.Resolve(uint64(binary.LittleEndian.Uint16(raw[1:3])))
			if !ok {
				return p, errNoCTO
			}
			p.HasTime = true
			p.TimeMs = ms
		}
		return p, nil

	case 10: // binary output, static
		p.Kind = KindBinaryOutputStatus
		if variation == 1 {
			p.Int = int64(raw[0])
			return p, nil
		}
		p.Quality = Quality(raw[0] & 0x7F)
		p.Int = int64(raw[0] & 0x80 >> 7)
		return p, nil

	case 11: // binary output, event
		p.Kind = KindBinaryOutputStatus
		if len(raw) < 1 {
			return p, errShort
		}
		p.Quality = Quality(raw[0] & 0x7F)
		p.Int = int64(raw[0] & 0x80 >> 7)
		if variation == 2 {
			if len(raw) < 7 {
				return p, errShort
			}
			p.HasTime = true
			p.TimeMs = decodeUint48(raw[1:7])
		}
		return p, nil

	case 20, 21, 22, 23: // counters, frozen counters (static + event)
		p.Kind = KindCounter
		return decodeCounterLike(p, group, variation, raw, cto)

	case 30, 31, 32, 33: // analog input (static, frozen, event, frozen event)
		p.Kind = KindAnalog
		return decodeAnalogLike(p, group, variation, raw, cto)

	case 40, 41, 42, 43: // analog output status/command (static + event)
		p.Kind = KindAnalogOutputStatus
		return decodeAnalogLike(p, group, variation, raw, cto)

	case 50: // time and date
		if len(raw) < 6 {
			return p, errShort
		}
		p.Kind = KindCounter
		p.HasTime = true
		p.TimeMs = decodeUint48(raw[0:6])
		return p, nil

	case 110, 111: // octet string static/event
		p.Kind = KindOctetString
		p.Bytes = append([]byte(nil), raw...)
		return p, nil

	default:
		return p, errUnsupported
	}
}

// decodeCounterLike handles groups 20/21/22/23: 32 or 16 bit value,
// optionally preceded by a flags byte, optionally followed by a 48-bit
// absolute timestamp (variations 5 and 6 of groups 21, 22 and 23).
func decodeCounterLike(p Point, group, variation uint8, raw []byte, cto *CTOHistory) (Point, error) {
	hasFlags, width, hasTime := counterLayout(group, variation)
	pos := 0
	if hasFlags {
		if len(raw) < 1 {
			return p, errShort
		}
		p.Quality = Quality(raw[0])
		pos = 1
	}
	if len(raw) < pos+width {
		return p, errShort
	}
	if width == 4 {
		p.Int = int64(binary.LittleEndian.Uint32(raw[pos : pos+4]))
	} else {
		p.Int = int64(binary.LittleEndian.Uint16(raw[pos : pos+2]))
	}
	pos += width
	if hasTime {
		if len(raw) < pos+6 {
			return p, errShort
		}
		p.HasTime = true
		p.TimeMs = decodeUint48(raw[pos : pos+6])
	}
	_ = cto
	return p, nil
}

func counterLayout(group, variation uint8) (hasFlags bool, width int, hasTime bool) {
	switch variation {
	case 1:
		return true, 4, false
	case 2:
		return true, 2, false
	case 5:
		if group == 20 {
			return false, 4, false
		}
		return true, 4, true
	case 6:
		if group == 20 {
			return false, 2, false
		}
		return true, 2, true
	case 9:
		return false, 4, false
	case 10:
		return false, 2, false
	default:
		return true, 4, false
	}
}

// decodeAnalogLike handles groups 30/31/32/33/40/41/42/43: 32-bit int,
// 16-bit int, float32 or float64, with the same flags/time permutations
// as counters plus the two floating variants. The variation-to-layout
// mapping differs between the static group (30/40, no time variant) and
// the frozen/event groups (31/32/33/41/42/43), so group selects the table.
func decodeAnalogLike(p Point, group, variation uint8, raw []byte, cto *CTOHistory) (Point, error) {
	hasFlags, kind, hasTime := analogLayout(group, variation)
	pos := 0
	if hasFlags {
		if len(raw) < 1 {
			return p, errShort
		}
		p.Quality = Quality(raw[0])
		pos = 1
	}
	switch kind {
	case "i32":
		if len(raw) < pos+4 {
			return p, errShort
		}
		p.Int = int64(int32(binary.LittleEndian.Uint32(raw[pos : pos+4])))
		pos += 4
	case "i16":
		if len(raw) < pos+2 {
			return p, errShort
		}
		p.Int = int64(int16(binary.LittleEndian.Uint16(raw[pos : pos+2])))
		pos += 2
	case "f32":
		if len(raw) < pos+4 {
			return p, errShort
		}
		p.Float = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[pos : pos+4])))
		pos += 4
	case "f64":
		if len(raw) < pos+8 {
			return p, errShort
		}
		p.Float = math.Float64frombits(binary.LittleEndian.Uint64(raw[pos : pos+8]))
		pos += 8
	}
	if hasTime {
		if len(raw) < pos+6 {
			return p, errShort
		}
		p.HasTime = true
		p.TimeMs = decodeUint48(raw[pos : pos+6])
	}
	_ = cto
	return p, nil
}

func analogLayout(group, variation uint8) (hasFlags bool, kind string, hasTime bool) {
	switch group {
	case 30, 40: // static: no time variant exists
		switch variation {
		case 1:
			return true, "i32", false
		case 2:
			return true, "i16", false
		case 3:
			if group == 30 {
				return false, "i32", false
			}
			return true, "f32", false
		case 4:
			if group == 30 {
				return false, "i16", false
			}
			return true, "f64", false
		case 5:
			return true, "f32", false
		case 6:
			return true, "f64", false
		}
	case 41: // command block: value+status, never time
		switch variation {
		case 1:
			return true, "i32", false
		case 2:
			return true, "i16", false
		case 3:
			return true, "f32", false
		case 4:
			return true, "f64", false
		}
	default: // 31, 32, 33, 42, 43
		switch variation {
		case 1:
			return true, "i32", false
		case 2:
			return true, "i16", false
		case 3:
			return true, "i32", true
		case 4:
			return true, "i16", true
		case 5:
			if group == 31 {
				return false, "i32", false
			}
			return true, "f32", false
		case 6:
			if group == 31 {
				return false, "i16", false
			}
			return true, "f64", false
		case 7:
			if group == 31 {
				return true, "f32", false
			}
			return true, "f32", true
		case 8:
			if group == 31 {
				return true, "f64", false
			}
			return true, "f64", true
		}
	}
	return true, "i32", false
}
