// Package eventbuffer implements the bounded per-class event ring that
// backs the outstation's class 1/2/3 event reporting. It plays the role
// the teacher's internal/fifo ring plays for raw SDO block bytes, but
// instead of a flat byte window it holds typed, selectable records and
// understands overflow eviction, selection and write-confirmation.
package eventbuffer

// Class identifies which of the three event classes a record belongs to.
type Class uint8

const (
	ClassNone Class = iota
	Class1
	Class2
	Class3
)

// Value is the typed payload of an event, opaque to the buffer itself.
// The outstation response builder knows how to render it into a group 2
// 11 22 30-series object; the buffer only needs equality to dedupe.
type Value struct {
	Group     uint8
	Variation uint8
	Flags     uint8
	Int       int64
	Float     float64
	TimeMs    uint64
	HasTime   bool
}

// Equal reports whether two values are identical for dedup purposes.
func (v Value) Equal(o Value) bool {
	return v.Group == o.Group && v.Variation == o.Variation && v.Flags == o.Flags &&
		v.Int == o.Int && v.Float == o.Float && v.TimeMs == o.TimeMs && v.HasTime == o.HasTime
}

// Record is one buffered event.
type Record struct {
	Index    uint16
	Class    Class
	Value    Value
	Selected bool
	Written  bool
}
