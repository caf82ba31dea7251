package outstation

import "bytes"

type sboKey struct {
	group uint8
	index uint16
}

// SelectEntry is one pending select, keyed by (command group, index).
type SelectEntry struct {
	Seq         uint8
	Qualifier   uint8
	Payload     []byte
	TimestampUs uint64
	Operated    bool
	Status      CommandStatus
}

// SBOHandler implements Select-Before-Operate arbitration across all
// command points. A select's application sequence number fences the
// whole table: a select arriving under a different sequence than the
// one currently tracked invalidates every outstanding select, since it
// means a new master transaction has begun.
type SBOHandler struct {
	handler         CommandHandler
	entries         map[sboKey]*SelectEntry
	currentSeq      uint8
	haveSeq         bool
	selectTimeoutUs uint64
	nowUs           uint64
}

// NewSBOHandler creates an SBOHandler backed by handler, expiring selects
// not operated within selectTimeoutUs microseconds.
func NewSBOHandler(handler CommandHandler, selectTimeoutUs uint64) *SBOHandler {
	return &SBOHandler{
		handler:         handler,
		entries:         make(map[sboKey]*SelectEntry),
		selectTimeoutUs: selectTimeoutUs,
	}
}

// Poll advances the handler's clock, used to judge select expiry.
func (s *SBOHandler) Poll(elapsedUs uint64) {
	s.nowUs += elapsedUs
}

// Select processes one SELECT request object.
func (s *SBOHandler) Select(group uint8, index uint16, seq uint8, qualifier uint8, payload []byte) CommandStatus {
	if !s.haveSeq || seq != s.currentSeq {
		s.entries = make(map[sboKey]*SelectEntry)
		s.currentSeq = seq
		s.haveSeq = true
	}
	status := s.handler.Select(group, index, payload)
	if status == StatusSuccess {
		s.entries[sboKey{group, index}] = &SelectEntry{
			Seq:         seq,
			Qualifier:   qualifier,
			Payload:     append([]byte(nil), payload...),
			TimestampUs: s.nowUs,
		}
	}
	return status
}

// Operate processes one OPERATE request object against a prior select.
func (s *SBOHandler) Operate(group uint8, index uint16, seq uint8, qualifier uint8, payload []byte) CommandStatus {
	key := sboKey{group, index}
	entry, ok := s.entries[key]
	if !ok {
		return StatusNoSelect
	}

	expectedSeq := (entry.Seq + 1) % 16
	if seq != expectedSeq || qualifier != entry.Qualifier || !bytes.Equal(payload, entry.Payload) {
		s.entries = make(map[sboKey]*SelectEntry)
		return StatusNoSelect
	}

	if s.nowUs-entry.TimestampUs >= s.selectTimeoutUs {
		delete(s.entries, key)
		return StatusTimeout
	}

	if entry.Operated {
		return entry.Status
	}

	status := s.handler.Operate(group, index, payload)
	entry.Operated = true
	entry.Status = status
	return status
}

// DirectOperate bypasses select/operate arbitration entirely.
func (s *SBOHandler) DirectOperate(group uint8, index uint16, payload []byte) CommandStatus {
	return s.handler.DirectOperate(group, index, payload)
}
