// Package transport implements the DNP3 transport function: segmenting an
// outgoing APDU into TPDU segments carried one per link frame, and
// reassembling incoming segments back into an APDU. The sequencing logic
// mirrors the teacher's SDO block-transfer sequence-number bookkeeping
// (pkg/sdo/client.go's blockSequenceNb tracking) adapted to DNP3's
// FIR/FIN/SEQ single-byte transport header instead of CANopen's 7-byte
// block segments.
package transport

import "github.com/dnp3core/godnp3/internal/fifo"

// MaxSegmentPayload is the largest number of APDU bytes one TPDU segment
// can carry, leaving room for the 1-byte transport header within a
// 250-byte link frame payload.
const MaxSegmentPayload = 249

// MaxAPDUSize is the largest reassembled application fragment accepted.
const MaxAPDUSize = 2048

const (
	headerFirMask uint8 = 1 << 7
	headerFinMask uint8 = 1 << 6
	headerSeqMask uint8 = 0x3F
)

// Header is the one-byte transport segment header.
type Header struct {
	Fir bool
	Fin bool
	Seq uint8 // 6 bits
}

// Encode packs the header into its wire byte.
func (h Header) Encode() byte {
	var b uint8
	if h.Fir {
		b |= headerFirMask
	}
	if h.Fin {
		b |= headerFinMask
	}
	b |= h.Seq & headerSeqMask
	return b
}

// DecodeHeader unpacks the wire byte into a Header.
func DecodeHeader(b byte) Header {
	return Header{
		Fir: b&headerFirMask != 0,
		Fin: b&headerFinMask != 0,
		Seq: b & headerSeqMask,
	}
}

// Segment is one outgoing TPDU: header + payload slice ready for framing.
type Segment struct {
	Header  Header
	Payload []byte
}

// SegmentAPDU splits apdu into ceil(len(apdu)/249) TPDU segments starting
// at sequence number seq0 (mod 64). An empty apdu yields one empty
// FIR+FIN segment.
func SegmentAPDU(apdu []byte, seq0 uint8) []Segment {
	if len(apdu) == 0 {
		return []Segment{{Header: Header{Fir: true, Fin: true, Seq: seq0 & headerSeqMask}}}
	}
	n := (len(apdu) + MaxSegmentPayload - 1) / MaxSegmentPayload
	segments := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		start := i * MaxSegmentPayload
		end := start + MaxSegmentPayload
		if end > len(apdu) {
			end = len(apdu)
		}
		segments = append(segments, Segment{
			Header: Header{
				Fir: i == 0,
				Fin: i == n-1,
				Seq: (seq0 + uint8(i)) & headerSeqMask,
			},
			Payload: apdu[start:end],
		})
	}
	return segments
}

// Reassembler accumulates incoming TPDU segments into a complete APDU.
type Reassembler struct {
	buf         *fifo.Fifo
	expectedSeq uint8
	inFrame     bool
}

// NewReassembler creates a Reassembler with room for maxAPDU bytes.
func NewReassembler(maxAPDU int) *Reassembler {
	if maxAPDU <= 0 {
		maxAPDU = MaxAPDUSize
	}
	return &Reassembler{buf: fifo.New(maxAPDU + 1)}
}

// Reset discards any in-progress reassembly.
func (r *Reassembler) Reset() {
	r.buf.Reset()
	r.inFrame = false
}

// Accept feeds one received segment. It returns the reassembled APDU and
// true once a FIN segment completes a valid run; otherwise it returns
// (nil, false), having silently dropped and reset on any sequencing
// violation per the component design.
func (r *Reassembler) Accept(header Header, payload []byte) ([]byte, bool) {
	if header.Fir {
		r.buf.Reset()
		r.expectedSeq = header.Seq
		r.inFrame = true
	} else if !r.inFrame {
		return nil, false
	} else if header.Seq != r.expectedSeq {
		r.Reset()
		return nil, false
	}

	if r.buf.Write(payload) != len(payload) {
		// Buffer would overflow the max APDU size.
		r.Reset()
		return nil, false
	}

	if header.Fin {
		out := make([]byte, r.buf.Occupied())
		r.buf.Read(out)
		r.Reset()
		return out, true
	}

	r.expectedSeq = (header.Seq + 1) & headerSeqMask
	return nil, false
}
