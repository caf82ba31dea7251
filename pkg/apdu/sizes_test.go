package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointSizeBitsKnownObjects(t *testing.T) {
	cases := []struct {
		group, variation uint8
		bits             int
	}{
		{1, 1, 1},
		{1, 2, 8},
		{30, 1, 40},
		{30, 6, 72},
		{20, 1, 40},
		{12, 1, 88},
		{80, 1, 1},
		{60, 1, 0},
	}
	for _, c := range cases {
		bits, err := pointSizeBits(c.group, c.variation)
		assert.NoError(t, err, "group %d var %d", c.group, c.variation)
		assert.Equal(t, c.bits, bits, "group %d var %d", c.group, c.variation)
	}
}

func TestPointSizeBitsOctetStringUsesVariationAsLength(t *testing.T) {
	bits, err := pointSizeBits(110, 8)
	assert.NoError(t, err)
	assert.Equal(t, 64, bits)
}

func TestPointSizeBitsUnsupported(t *testing.T) {
	_, err := pointSizeBits(200, 1)
	assert.ErrorIs(t, err, ErrUnsupportedObject)

	_, err = pointSizeBits(1, 99)
	assert.ErrorIs(t, err, ErrUnsupportedObject)
}
