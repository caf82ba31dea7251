package measurement

import (
	"encoding/binary"
	"testing"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func block(group, variation uint8, start, stop uint32, data []byte) apdu.ObjectBlock {
	return apdu.ObjectBlock{
		Header: apdu.Header{
			Group:     group,
			Variation: variation,
			Qualifier: apdu.QualUint8StartStop,
			Range:     apdu.Range{Kind: apdu.RangeStartStop, Qualifier: apdu.QualUint8StartStop, Start: start, Stop: stop},
		},
		Data: data,
	}
}

func TestLoadBinaryInputWithFlags(t *testing.T) {
	l := NewLoader()
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{
		block(1, 2, 0, 1, []byte{0x81, 0x01}), // online+on, online+off
	}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 2)
	assert.EqualValues(t, 0, points[0].Index)
	assert.EqualValues(t, 1, points[0].Int)
	assert.True(t, points[0].Quality.Online())
	assert.EqualValues(t, 1, points[1].Index)
	assert.EqualValues(t, 0, points[1].Int)
}

func TestLoadPackedBinaryInput(t *testing.T) {
	l := NewLoader()
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{
		block(1, 1, 0, 9, []byte{0b10101010, 0b00000010}), // 10 points packed
	}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 10)
	assert.EqualValues(t, 0, points[0].Int)
	assert.EqualValues(t, 1, points[1].Int)
	assert.EqualValues(t, 1, points[9].Int)
}

func TestLoadAnalogInput32WithFlags(t *testing.T) {
	l := NewLoader()
	data := make([]byte, 5)
	data[0] = 0x01 // online
	binary.LittleEndian.PutUint32(data[1:], uint32(int32(-42)))
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{block(30, 1, 3, 3, data)}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 1)
	assert.EqualValues(t, 3, points[0].Index)
	assert.EqualValues(t, -42, points[0].Int)
}

func TestLoadAnalogInputStaticNoFlagVariant(t *testing.T) {
	l := NewLoader()
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 100)
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{block(30, 3, 0, 0, data)}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 1)
	assert.EqualValues(t, 100, points[0].Int)
}

func TestLoadCounterNoFlagVariant(t *testing.T) {
	l := NewLoader()
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 7)
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{block(20, 5, 0, 0, data)}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 1)
	assert.EqualValues(t, 7, points[0].Int)
}

func TestLoadRelativeTimeEventWithoutCTOIsDropped(t *testing.T) {
	l := NewLoader()
	data := []byte{0x01, 0x10, 0x00}
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{block(2, 3, 0, 0, data)}}
	l.LoadFragment(frag)
	assert.Empty(t, l.Flush())
}

func TestLoadRelativeTimeEventWithCTOResolves(t *testing.T) {
	l := NewLoader()
	ctoData := make([]byte, 6)
	ctoData[0] = 0x10 // base = 16ms (low byte)
	cto := apdu.ObjectBlock{
		Header: apdu.Header{Group: 51, Variation: 1, Qualifier: apdu.QualUint8Cnt,
			Range: apdu.Range{Kind: apdu.RangeCount, Qualifier: apdu.QualUint8Cnt, Count: 1}},
		Data: ctoData,
	}
	eventData := []byte{0x01, 0x05, 0x00} // offset = 5ms
	event := block(2, 3, 0, 0, eventData)

	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{cto, event}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 1)
	assert.True(t, points[0].HasTime)
	assert.EqualValues(t, 21, points[0].TimeMs)
}

func TestLoadOctetString(t *testing.T) {
	l := NewLoader()
	frag := apdu.Fragment{Objects: []apdu.ObjectBlock{block(110, 4, 0, 0, []byte("abcd"))}}
	l.LoadFragment(frag)
	points := l.Flush()
	require.Len(t, points, 1)
	assert.Equal(t, KindOctetString, points[0].Kind)
	assert.Equal(t, []byte("abcd"), points[0].Bytes)
}

func TestFlushClearsBatch(t *testing.T) {
	l := NewLoader()
	l.LoadFragment(apdu.Fragment{Objects: []apdu.ObjectBlock{block(1, 2, 0, 0, []byte{0x01})}})
	require.Len(t, l.Flush(), 1)
	assert.Empty(t, l.Flush())
}
