package eventbuffer

// Buffer holds one bounded ring per event class. Capacity and eviction
// are tracked independently per class; selection and write-confirmation
// operate across whichever classes a caller names, mirroring how an
// outstation response bundles events from more than one class into a
// single confirmed exchange.
type Buffer struct {
	capacity map[Class]int
	records  map[Class][]*Record
	overflow map[Class]bool
}

// New builds a Buffer with the given per-class capacities. A class
// absent from capacities accepts no events.
func New(capacities map[Class]int) *Buffer {
	b := &Buffer{
		capacity: make(map[Class]int, len(capacities)),
		records:  make(map[Class][]*Record, len(capacities)),
		overflow: make(map[Class]bool, len(capacities)),
	}
	for c, n := range capacities {
		b.capacity[c] = n
		b.records[c] = nil
	}
	return b
}

// Size returns the current number of buffered records in class.
func (b *Buffer) Size(class Class) int {
	return len(b.records[class])
}

// Overflow reports whether class has dropped an unselected event since
// its last drain below capacity.
func (b *Buffer) Overflow(class Class) bool {
	return b.overflow[class]
}

// OverflowAny reports whether any class currently carries the overflow
// condition, the signal the outstation mirrors into IIN2.3.
func (b *Buffer) OverflowAny() bool {
	for _, v := range b.overflow {
		if v {
			return true
		}
	}
	return false
}

// HasPending reports whether class holds any unselected record, the
// condition that keeps the corresponding class-event IIN bit set.
func (b *Buffer) HasPending(class Class) bool {
	for _, r := range b.records[class] {
		if !r.Selected && !r.Written {
			return true
		}
	}
	return false
}

// Update inserts a new event at index in class, or coalesces it into an
// existing unselected, unwritten record at the same index carrying an
// equal value. Returns true if the buffer's visible state changed.
func (b *Buffer) Update(index uint16, class Class, value Value) bool {
	if _, ok := b.capacity[class]; !ok {
		return false
	}
	for _, r := range b.records[class] {
		if r.Index == index && !r.Selected && !r.Written && r.Value.Equal(value) {
			return false
		}
	}
	rec := &Record{Index: index, Class: class, Value: value}
	b.records[class] = append(b.records[class], rec)
	b.evictIfNeeded(class)
	return true
}

// evictIfNeeded drops oldest unselected records until the unselected
// count is back at or under capacity. Selected records don't count
// against capacity at all — they're already committed to an in-flight
// response and waiting on confirmation, not sitting in the backlog a
// full buffer is supposed to bound.
func (b *Buffer) evictIfNeeded(class Class) {
	cap := b.capacity[class]
	recs := b.records[class]
	unselected := 0
	for _, r := range recs {
		if !r.Selected {
			unselected++
		}
	}
	for unselected > cap {
		victim := -1
		for i, r := range recs {
			if !r.Selected {
				victim = i
				break
			}
		}
		if victim == -1 {
			break
		}
		recs = append(recs[:victim], recs[victim+1:]...)
		unselected--
		b.overflow[class] = true
	}
	b.records[class] = recs
}

// Select marks up to maxCount oldest unselected, unwritten records in
// class as selected and returns how many were marked.
func (b *Buffer) Select(class Class, maxCount int) int {
	n := 0
	for _, r := range b.records[class] {
		if n >= maxCount {
			break
		}
		if !r.Selected && !r.Written {
			r.Selected = true
			n++
		}
	}
	return n
}

// Selected returns the currently selected, not-yet-written records
// across the given classes, in insertion order within each class.
func (b *Buffer) Selected(classes ...Class) []*Record {
	var out []*Record
	for _, c := range classes {
		for _, r := range b.records[c] {
			if r.Selected && !r.Written {
				out = append(out, r)
			}
		}
	}
	return out
}

// Deselect returns every selected record across all classes to pending
// state. Used when a confirmed transmit attempt fails or times out so
// the events are offered again on the next poll.
func (b *Buffer) Deselect() {
	for _, recs := range b.records {
		for _, r := range recs {
			if r.Selected {
				r.Selected = false
			}
		}
	}
}

// MarkSelectedWritten transitions every currently selected record to
// written, called once a response carrying them has been confirmed.
func (b *Buffer) MarkSelectedWritten() {
	for _, recs := range b.records {
		for _, r := range recs {
			if r.Selected {
				r.Selected = false
				r.Written = true
			}
		}
	}
}

// ClearWritten removes every record flagged written across all classes
// and returns the count removed. Clearing can pull a class back under
// capacity, which is the only way its overflow flag resets.
func (b *Buffer) ClearWritten() int {
	total := 0
	for class, recs := range b.records {
		kept := recs[:0]
		for _, r := range recs {
			if r.Written {
				total++
				continue
			}
			kept = append(kept, r)
		}
		b.records[class] = kept
		unselected := 0
		for _, r := range kept {
			if !r.Selected {
				unselected++
			}
		}
		if unselected < b.capacity[class] {
			b.overflow[class] = false
		}
	}
	return total
}
