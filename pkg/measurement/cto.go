package measurement

// CTOHistory tracks the most recent Common Time Of Occurrence delivered
// by a group 51 object. Relative-time event variants (group 2 var 3,
// group 4 var 3, ...) carry only a 16-bit millisecond offset from this
// base; decoding one without a preceding CTO in the same loader pass
// fails so the caller can drop the measurement with a warning rather
// than fabricate a timestamp.
type CTOHistory struct {
	base  uint64
	valid bool
}

// SetBase records a new CTO base time, in milliseconds.
func (h *CTOHistory) SetBase(ms uint64) {
	h.base = ms
	h.valid = true
}

// Resolve adds offsetMs to the current base. The second return is false
// if no CTO has been set yet in this pass.
func (h *CTOHistory) Resolve(offsetMs uint64) (uint64, bool) {
	if !h.valid {
		return 0, false
	}
	return h.base + offsetMs, true
}
