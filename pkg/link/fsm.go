package link

import (
	log "github.com/sirupsen/logrus"
)

// PriState is the primary (transmitting) role's state, one of the four
// Pri* tags from the design.
type PriState uint8

const (
	PriNotReset PriState = iota
	PriReset
	PriWaitAck
	PriWaitLinkStatus
)

func (s PriState) String() string {
	switch s {
	case PriNotReset:
		return "PriNotReset"
	case PriReset:
		return "PriReset"
	case PriWaitAck:
		return "PriWaitAck"
	case PriWaitLinkStatus:
		return "PriWaitLinkStatus"
	default:
		return "PriUnknown"
	}
}

// SecState is the secondary (receiving) role's state: whether this link
// has seen a RESET_LINK_STATES from the remote primary yet.
type SecState uint8

const (
	SecNotReset SecState = iota
	SecReset
)

func (s SecState) String() string {
	if s == SecReset {
		return "SecReset"
	}
	return "SecNotReset"
}

// pendingKind tags what a PriWaitAck/PriWaitLinkStatus is waiting for, so
// a retry resends the right frame and a timeout reports the right failure.
type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingReset
	pendingData
	pendingLinkStatus
)

// ActionKind tags the single enum of side effects a Link transition can
// request of its owner, per the "transition function returns actions"
// design: the FSM holds no transport or delivery pointers itself.
type ActionKind uint8

const (
	ActionSendFrame ActionKind = iota
	ActionDeliverPayload
	ActionNotifySuccess
	ActionNotifyFailure
	ActionStartAckTimer
	ActionCancelAckTimer
)

// Action is one requested side effect.
type Action struct {
	Kind    ActionKind
	Frame   []byte
	Payload []byte
	Err     error
}

// Config configures a Link instance for one physical connection.
type Config struct {
	LocalAddress  uint16
	RemoteAddress uint16
	IsMaster      bool
	NumRetry      int
	AckTimeoutUs  uint32
}

// Link drives the reset/confirm/ack link-layer state machine described in
// the component design. It is purely synchronous: every method returns
// the actions its owner must perform (send bytes, deliver a payload
// upward, start/cancel the ack timer, report success/failure) instead of
// performing I/O itself, following the teacher's pattern of keeping state
// objects free of back-references by passing context as parameters.
type Link struct {
	cfg Config

	pri            PriState
	sec            SecState
	fcb            bool // next outbound FCB to use once PriReset
	secExpectedFcb bool

	pending        pendingKind
	pendingFrame   []byte
	pendingPayload []byte // user payload awaiting confirmed send, for the post-reset data frame
	retriesLeft    int
	ackTimer       uint32

	log *log.Entry
}

// New creates a Link in the initial SecNotReset/PriNotReset state.
func New(cfg Config) *Link {
	if cfg.NumRetry < 0 {
		cfg.NumRetry = 0
	}
	return &Link{
		cfg: cfg,
		pri: PriNotReset,
		sec: SecNotReset,
		log: log.WithFields(log.Fields{"component": "link", "local": cfg.LocalAddress}),
	}
}

func (l *Link) control(prm, fcb, fcvDfc bool, function uint8) uint8 {
	return NewControl(l.cfg.IsMaster, prm, fcb, fcvDfc, function)
}

func (l *Link) frame(control uint8, payload []byte) []byte {
	return WriteFrame(control, l.cfg.RemoteAddress, l.cfg.LocalAddress, payload)
}

// Transmit starts sending payload. If confirmed is false it is fire-and-forget
// and resolves with ActionNotifySuccess immediately.
func (l *Link) Transmit(payload []byte, confirmed bool) []Action {
	if !confirmed {
		frame := l.frame(l.control(true, false, false, FuncUnconfirmedUserData), payload)
		return []Action{
			{Kind: ActionSendFrame, Frame: frame},
			{Kind: ActionNotifySuccess},
		}
	}

	if l.pri == PriWaitAck || l.pri == PriWaitLinkStatus {
		l.log.Warn("transmit requested while a transaction is already pending")
		return []Action{{Kind: ActionNotifyFailure, Err: ErrRetryExhausted}}
	}

	l.retriesLeft = l.cfg.NumRetry
	l.pendingPayload = payload

	if l.pri != PriReset {
		return l.sendReset()
	}
	return l.sendData()
}

func (l *Link) sendReset() []Action {
	l.pending = pendingReset
	frame := l.frame(l.control(true, false, true, FuncResetLinkStates), nil)
	l.pendingFrame = frame
	l.pri = PriWaitAck
	return []Action{
		{Kind: ActionSendFrame, Frame: frame},
		{Kind: ActionStartAckTimer},
	}
}

func (l *Link) sendData() []Action {
	l.pending = pendingData
	frame := l.frame(l.control(true, l.fcb, true, FuncConfirmedUserData), l.pendingPayload)
	l.pendingFrame = frame
	l.pri = PriWaitAck
	return []Action{
		{Kind: ActionSendFrame, Frame: frame},
		{Kind: ActionStartAckTimer},
	}
}

// HandleFrame processes one received, already-validated link frame.
func (l *Link) HandleFrame(header LinkHeader, payload []byte) []Action {
	if header.Prm() {
		return l.handleAsSecondary(header, payload)
	}
	return l.handleAsPrimary(header)
}

func (l *Link) handleAsSecondary(header LinkHeader, payload []byte) []Action {
	switch header.Function() {
	case FuncResetLinkStates:
		l.sec = SecReset
		l.secExpectedFcb = false
		return []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncAck), nil)}}

	case FuncTestLinkStates:
		return []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncAck), nil)}}

	case FuncRequestLinkStatus:
		return []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncLinkStatus), nil)}}

	case FuncUnconfirmedUserData:
		return []Action{{Kind: ActionDeliverPayload, Payload: payload}}

	case FuncConfirmedUserData:
		if l.sec != SecReset {
			l.log.Warn("confirmed user data received before reset-link-states, naking")
			return []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncNack), nil)}}
		}
		ack := []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncAck), nil)}}
		if header.Fcb() == l.secExpectedFcb {
			l.secExpectedFcb = !l.secExpectedFcb
			return append([]Action{{Kind: ActionDeliverPayload, Payload: payload}}, ack...)
		}
		if header.FcvDfc() {
			// Duplicate retransmit of the last frame: re-ACK, don't redeliver.
			return ack
		}
		return ack

	default:
		l.log.Warnf("unsupported primary function code 0x%02x", header.Function())
		return []Action{{Kind: ActionSendFrame, Frame: l.frame(l.control(false, false, false, FuncNotSupported), nil)}}
	}
}

func (l *Link) handleAsPrimary(header LinkHeader) []Action {
	if l.pri != PriWaitAck && l.pri != PriWaitLinkStatus {
		return nil
	}

	switch header.Function() {
	case FuncAck:
		return l.onAck()
	case FuncNack:
		return l.onNack()
	case FuncLinkStatus:
		if l.pending == pendingLinkStatus {
			l.pri = PriReset
			l.pending = pendingNone
			return []Action{{Kind: ActionCancelAckTimer}, {Kind: ActionNotifySuccess}}
		}
		return nil
	default:
		return nil
	}
}

func (l *Link) onAck() []Action {
	switch l.pending {
	case pendingReset:
		l.pri = PriReset
		l.pending = pendingNone
		cancel := Action{Kind: ActionCancelAckTimer}
		return append([]Action{cancel}, l.sendData()...)
	case pendingData:
		l.fcb = !l.fcb
		l.pri = PriReset
		l.pending = pendingNone
		l.pendingPayload = nil
		l.pendingFrame = nil
		return []Action{{Kind: ActionCancelAckTimer}, {Kind: ActionNotifySuccess}}
	default:
		return nil
	}
}

func (l *Link) onNack() []Action {
	l.log.Warn("nack received, failing transmit")
	l.pri = PriNotReset
	l.pending = pendingNone
	l.pendingFrame = nil
	l.pendingPayload = nil
	return []Action{{Kind: ActionCancelAckTimer}, {Kind: ActionNotifyFailure, Err: ErrUnexpectedFunction}}
}

// Poll advances the ack timer by elapsedUs microseconds. When it expires,
// the pending frame is retried up to NumRetry times before the
// transmission is reported as failed.
func (l *Link) Poll(elapsedUs uint32) []Action {
	if l.pending == pendingNone {
		return nil
	}
	l.ackTimer += elapsedUs
	if l.ackTimer < l.cfg.AckTimeoutUs {
		return nil
	}
	l.ackTimer = 0

	if l.retriesLeft <= 0 {
		l.log.Warn("ack timeout, retries exhausted")
		l.pri = PriNotReset
		l.pending = pendingNone
		l.pendingFrame = nil
		l.pendingPayload = nil
		return []Action{{Kind: ActionNotifyFailure, Err: ErrRetryExhausted}}
	}
	l.retriesLeft--
	l.log.Debugf("ack timeout, retrying (%d left)", l.retriesLeft)
	return []Action{
		{Kind: ActionSendFrame, Frame: l.pendingFrame},
		{Kind: ActionStartAckTimer},
	}
}

// TestLink sends a TEST_LINK_STATES keepalive frame and waits for an ACK.
func (l *Link) TestLink() []Action {
	l.pending = pendingReset
	frame := l.frame(l.control(true, false, true, FuncTestLinkStates), nil)
	l.pendingFrame = frame
	l.pri = PriWaitAck
	l.retriesLeft = l.cfg.NumRetry
	return []Action{
		{Kind: ActionSendFrame, Frame: frame},
		{Kind: ActionStartAckTimer},
	}
}

// RequestLinkStatus sends REQUEST_LINK_STATUS and waits for LINK_STATUS.
func (l *Link) RequestLinkStatus() []Action {
	l.pending = pendingLinkStatus
	frame := l.frame(l.control(true, false, false, FuncRequestLinkStatus), nil)
	l.pendingFrame = frame
	l.pri = PriWaitLinkStatus
	l.retriesLeft = l.cfg.NumRetry
	return []Action{
		{Kind: ActionSendFrame, Frame: frame},
		{Kind: ActionStartAckTimer},
	}
}

// PrimaryState and SecondaryState expose the current tags for tests and
// diagnostics.
func (l *Link) PrimaryState() PriState  { return l.pri }
func (l *Link) SecondaryState() SecState { return l.sec }
