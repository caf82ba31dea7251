package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		Group:     30,
		Variation: 1,
		Qualifier: QualUint16StartStop,
		Range:     Range{Kind: RangeStartStop, Qualifier: QualUint16StartStop, Start: 0, Stop: 5},
	}
	encoded := EncodeHeader(h)
	decoded, n, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, h.Group, decoded.Group)
	assert.Equal(t, h.Variation, decoded.Variation)
	assert.Equal(t, h.Range.NPoints(), decoded.Range.NPoints())
}

func TestHeaderDecodeTooShort(t *testing.T) {
	_, _, err := DecodeHeader([]byte{1, 2})
	assert.ErrorIs(t, err, ErrTooShort)
}
