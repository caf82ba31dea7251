// Package measurement holds the master-side typed point model and the
// response loader that turns decoded object headers into it. The split
// mirrors the teacher's pkg/od: Variable is the typed cell, the parser
// is the thing that walks a raw section and fills Variables in; here
// Point is the typed cell and Loader is the thing that walks a raw
// application fragment and fills Points in.
package measurement

import "github.com/dnp3core/godnp3/pkg/eventbuffer"

// Kind tags which DNP3 point type a Point carries: the six measurement
// types plus octet strings.
type Kind uint8

const (
	KindBinary Kind = iota
	KindDoubleBitBinary
	KindAnalog
	KindCounter
	KindBinaryOutputStatus
	KindAnalogOutputStatus
	KindOctetString
)

// Quality is the per-point flags byte DNP3 carries alongside most values.
// Bit meanings shift slightly between binary and analog groups but bit 0
// (ONLINE) and bit 4 (LOCAL_FORCED) are common across all of them.
type Quality uint8

const (
	QualOnline        Quality = 1 << 0
	QualRestart       Quality = 1 << 1
	QualCommLost      Quality = 1 << 2
	QualRemoteForced  Quality = 1 << 3
	QualLocalForced   Quality = 1 << 4
	QualChatterFilter Quality = 1 << 5 // also ROLLOVER on counters
	QualOverrange     Quality = 1 << 5 // analog reuses bit 5 for OVER_RANGE
	QualReferenceErr  Quality = 1 << 6
	QualReserved      Quality = 1 << 7
)

func (q Quality) Online() bool { return q&QualOnline != 0 }

// DefaultQuality is substituted whenever a variant carries no flags byte
// of its own (for example a without-flags analog/counter variation).
const DefaultQuality Quality = QualOnline

// Point is one decoded measurement: a typed value at an index, with
// quality and an optional timestamp.
type Point struct {
	Index      uint16
	Kind       Kind
	Quality    Quality
	Int        int64
	Float      float64
	Bytes      []byte
	HasTime    bool
	TimeMs     uint64
	EventClass eventbuffer.Class
}
