package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAPDU(n int) []byte {
	apdu := make([]byte, n)
	for i := range apdu {
		apdu[i] = byte(i)
	}
	return apdu
}

func TestSegmentAPDU500Bytes(t *testing.T) {
	apdu := makeAPDU(500)
	segments := SegmentAPDU(apdu, 0)
	require.Len(t, segments, 3)

	assert.True(t, segments[0].Header.Fir)
	assert.False(t, segments[0].Header.Fin)
	assert.EqualValues(t, 0, segments[0].Header.Seq)
	assert.Len(t, segments[0].Payload, 249)

	assert.False(t, segments[1].Header.Fir)
	assert.False(t, segments[1].Header.Fin)
	assert.EqualValues(t, 1, segments[1].Header.Seq)
	assert.Len(t, segments[1].Payload, 249)

	assert.False(t, segments[2].Header.Fir)
	assert.True(t, segments[2].Header.Fin)
	assert.EqualValues(t, 2, segments[2].Header.Seq)
	assert.Len(t, segments[2].Payload, 2)
}

func TestReassembleInOrderDeliversAPDU(t *testing.T) {
	apdu := makeAPDU(500)
	segments := SegmentAPDU(apdu, 0)
	r := NewReassembler(MaxAPDUSize)

	var got []byte
	var done bool
	for _, seg := range segments {
		got, done = r.Accept(seg.Header, seg.Payload)
	}
	require.True(t, done)
	assert.Equal(t, apdu, got)
}

func TestReassembleOutOfOrderDropsAndResets(t *testing.T) {
	apdu := makeAPDU(500)
	segments := SegmentAPDU(apdu, 0)
	r := NewReassembler(MaxAPDUSize)

	_, done := r.Accept(segments[0].Header, segments[0].Payload)
	assert.False(t, done)

	// Feed segment 2 instead of segment 1: sequence gap must drop and reset.
	_, done = r.Accept(segments[2].Header, segments[2].Payload)
	assert.False(t, done)
	assert.False(t, r.inFrame)
}

func TestReassembleRoundTripArbitrarySizes(t *testing.T) {
	for _, n := range []int{0, 1, 249, 250, 2048} {
		apdu := makeAPDU(n)
		segments := SegmentAPDU(apdu, 5)
		r := NewReassembler(MaxAPDUSize)
		var got []byte
		var done bool
		for _, seg := range segments {
			got, done = r.Accept(seg.Header, seg.Payload)
		}
		require.True(t, done, "n=%d", n)
		assert.Equal(t, apdu, got, "n=%d", n)
	}
}

func TestReassembleOversizeDropsAndResets(t *testing.T) {
	r := NewReassembler(100)
	apdu := makeAPDU(500)
	segments := SegmentAPDU(apdu, 0)
	var done bool
	for _, seg := range segments {
		_, done = r.Accept(seg.Header, seg.Payload)
		if !done && !r.inFrame {
			break
		}
	}
	assert.False(t, done)
	assert.False(t, r.inFrame)
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Fir: true, Fin: false, Seq: 37}
	assert.Equal(t, h, DecodeHeader(h.Encode()))
}
