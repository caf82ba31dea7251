package outstation

import (
	"encoding/binary"
	"math"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
)

// encodeEvent renders one buffered event record as a single-point object
// block addressed by an indexed qualifier, the form every event group
// uses on the wire.
func encodeEvent(r *eventbuffer.Record) apdu.ObjectBlock {
	data := encodeEventValue(r.Value)
	header := apdu.Header{
		Group:     r.Value.Group,
		Variation: r.Value.Variation,
		Qualifier: apdu.QualUint8CntUint8Index,
		Range: apdu.Range{
			Kind:       apdu.RangeIndexed,
			Qualifier:  apdu.QualUint8CntUint8Index,
			Count:      1,
			IndexWidth: 1,
		},
	}
	indexed := append([]byte{byte(r.Index)}, data...)
	return apdu.ObjectBlock{Header: header, Data: indexed}
}

func encodeEventValue(v eventbuffer.Value) []byte {
	var out []byte
	out = append(out, v.Flags)
	switch {
	case v.Group == 32 || v.Group == 33 || v.Group == 42 || v.Group == 43:
		out = appendAnalogValue(out, v)
	case v.Group == 22 || v.Group == 23:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v.Int))
		out = append(out, b...)
	default: // binary-family events: flags byte only
	}
	if v.HasTime {
		out = append(out, encodeUint48(v.TimeMs)...)
	}
	return out
}

func appendAnalogValue(out []byte, v eventbuffer.Value) []byte {
	switch v.Variation {
	case 5, 7:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.Float)))
		return append(out, b...)
	case 6, 8:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.Float))
		return append(out, b...)
	case 2, 4:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(int16(v.Int)))
		return append(out, b...)
	default:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(v.Int)))
		return append(out, b...)
	}
}

func encodeUint48(ms uint64) []byte {
	b := make([]byte, 6)
	for i := 0; i < 6; i++ {
		b[i] = byte(ms >> (8 * i))
	}
	return b
}

const fragmentOverhead = 4 // control + function + 2-byte IIN

// buildResponseFragments packs objects into one or more application
// fragments no larger than maxBytes, setting FIR on the first, FIN on
// the last, and giving every fragment the same sequence number seq.
// This is the response engine's pagination: a read spanning more static
// points or events than fit in one APDU comes back as a run of RESPONSE
// fragments instead of one oversized one.
func buildResponseFragments(objects []apdu.ObjectBlock, fc apdu.FunctionCode, iin apdu.IINField, seq uint8, maxBytes int) []apdu.Fragment {
	if len(objects) == 0 {
		return []apdu.Fragment{{
			Control:  apdu.Control{Fir: true, Fin: true, Con: fc == apdu.FuncUnsolicitedResponse, Uns: fc == apdu.FuncUnsolicitedResponse, Seq: seq},
			Function: fc,
			IIN:      iin,
		}}
	}

	var fragments []apdu.Fragment
	var current []apdu.ObjectBlock
	size := fragmentOverhead

	// Every fragment of one multi-fragment response carries the same
	// SEQ as the request it answers — pkg/app's receiving Channel checks
	// SEQ against the request's pendingSeq on every fragment, not just
	// the first.
	flush := func() {
		if len(current) == 0 {
			return
		}
		fragments = append(fragments, apdu.Fragment{
			Control:  apdu.Control{Seq: seq},
			Function: fc,
			IIN:      iin,
			Objects:  current,
		})
		current = nil
		size = fragmentOverhead
	}

	for _, obj := range objects {
		objSize := 3 + rangeEncodedSize(obj.Header.Range) + len(obj.Data)
		if size+objSize > maxBytes && len(current) > 0 {
			flush()
		}
		current = append(current, obj)
		size += objSize
	}
	flush()

	if len(fragments) == 0 {
		return fragments
	}
	fragments[0].Control.Fir = true
	last := len(fragments) - 1
	fragments[last].Control.Fin = true
	if fc == apdu.FuncUnsolicitedResponse {
		for i := range fragments {
			fragments[i].Control.Uns = true
			if i == last {
				fragments[i].Control.Con = true
			}
		}
	}
	return fragments
}

func rangeEncodedSize(r apdu.Range) int {
	switch r.Qualifier {
	case apdu.QualUint8StartStop, apdu.QualUint8Cnt, apdu.QualUint8CntUint8Index:
		if r.Qualifier == apdu.QualUint8StartStop {
			return 2
		}
		return 1
	case apdu.QualUint16StartStop:
		return 4
	case apdu.QualUint16Cnt, apdu.QualUint16CntUint16Index:
		return 2
	default:
		return 2
	}
}
