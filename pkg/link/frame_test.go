package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTripUnconfirmedUserData(t *testing.T) {
	control := NewControl(true, true, false, false, FuncUnconfirmedUserData)
	payload := []byte{0x01, 0x02, 0x03}

	wire := WriteFrame(control, 1, 1024, payload)

	require.GreaterOrEqual(t, len(wire), 8)
	assert.Equal(t, []byte{0x05, 0x64, 0x08, 0xC4, 0x01, 0x00, 0x00, 0x04}, wire[:8])

	header, decoded, consumed, err := ParseFrame(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), consumed)
	assert.Equal(t, payload, decoded)
	assert.EqualValues(t, 1, header.Destination)
	assert.EqualValues(t, 1024, header.Source)
	assert.True(t, header.Dir())
	assert.True(t, header.Prm())
	assert.False(t, header.Fcb())
	assert.False(t, header.FcvDfc())
	assert.Equal(t, FuncUnconfirmedUserData, header.Function())
}

func TestFrameSizeFormula(t *testing.T) {
	cases := []struct {
		userLen int
		want    int
	}{
		{0, 10},
		{3, 15},
		{16, 28},
		{17, 31},
		{250, 10 + 16*2 + 250},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FrameSize(c.userLen), "userLen=%d", c.userLen)
	}
}

func TestParseFrameMultiBlock(t *testing.T) {
	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i)
	}
	control := NewControl(true, true, false, true, FuncConfirmedUserData)
	wire := WriteFrame(control, 2, 3, payload)

	header, decoded, consumed, err := ParseFrame(wire)
	require.NoError(t, err)
	assert.Equal(t, FrameSize(len(payload)), consumed)
	assert.Equal(t, payload, decoded)
	assert.Equal(t, FuncConfirmedUserData, header.Function())
}

func TestParseFrameRejectsBadStart(t *testing.T) {
	wire := WriteFrame(NewControl(true, true, false, false, FuncUnconfirmedUserData), 1, 1, []byte{0x01})
	wire[0] = 0x00
	_, _, _, err := ParseFrame(wire)
	assert.ErrorIs(t, err, ErrBadStart)
}

func TestParseFrameRejectsBadHeaderCRC(t *testing.T) {
	wire := WriteFrame(NewControl(true, true, false, false, FuncUnconfirmedUserData), 1, 1, []byte{0x01})
	wire[8] ^= 0xFF
	_, _, _, err := ParseFrame(wire)
	assert.ErrorIs(t, err, ErrBadHeaderCRC)
}

func TestParseFrameRejectsBadBodyCRC(t *testing.T) {
	wire := WriteFrame(NewControl(true, true, false, false, FuncUnconfirmedUserData), 1, 1, []byte{0x01, 0x02, 0x03})
	wire[len(wire)-1] ^= 0xFF
	_, _, _, err := ParseFrame(wire)
	assert.ErrorIs(t, err, ErrBadBodyCrc)
}

func TestParseFrameShortBuffer(t *testing.T) {
	_, _, _, err := ParseFrame([]byte{0x05, 0x64, 0x08})
	assert.ErrorIs(t, err, ErrShortBuffer)
}
