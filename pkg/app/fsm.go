// Package app implements the application-layer send/receive state machine
// shared by master and outstation directions. It is a tagged-variant FSM
// in the same shape as pkg/link.Link: every transition returns the
// []Action its owner must perform instead of reaching out through a
// back-reference, so the same type drives both a master's request
// channel and an outstation's response channel.
package app

import (
	"github.com/dnp3core/godnp3/pkg/apdu"
	log "github.com/sirupsen/logrus"
)

// State is one of the application channel's named states.
type State uint8

const (
	Idle State = iota
	Send
	SendConfirmed
	SendExpectResponse
	SendCanceled
	WaitForConfirm
	WaitForFirstResponse
	WaitForFinalResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Send:
		return "Send"
	case SendConfirmed:
		return "SendConfirmed"
	case SendExpectResponse:
		return "SendExpectResponse"
	case SendCanceled:
		return "SendCanceled"
	case WaitForConfirm:
		return "WaitForConfirm"
	case WaitForFirstResponse:
		return "WaitForFirstResponse"
	case WaitForFinalResponse:
		return "WaitForFinalResponse"
	default:
		return "Unknown"
	}
}

// Classification tags how a fragment about to be sent should be tracked.
type Classification uint8

const (
	// ClassNoResponse is a fragment with nothing further expected: a
	// CONFIRM, or an unsolicited response sent with CON cleared.
	ClassNoResponse Classification = iota
	// ClassConfirmedResponse is a response sent with CON set; it waits
	// for the matching CONFIRM.
	ClassConfirmedResponse
	// ClassExpectResponse is a request that expects an application
	// response fragment (READ, WRITE, SELECT, OPERATE, ...).
	ClassExpectResponse
)

// ActionKind enumerates the side effects a transition can request.
type ActionKind uint8

const (
	ActionTransmit ActionKind = iota
	ActionDeliverFragment
	ActionNotifySuccess
	ActionNotifyFailure
	ActionStartConfirmTimer
	ActionCancelConfirmTimer
)

// Action is one requested side effect.
type Action struct {
	Kind     ActionKind
	Fragment apdu.Fragment
	Raw      []byte
	Err      error
}

// Config configures a Channel's confirm timeout.
type Config struct {
	ConfirmTimeoutUs uint32
}

// Channel drives one direction (outbound request/response tracking plus
// inbound response/confirm correlation) of the application layer.
type Channel struct {
	cfg Config

	state          State
	classification Classification
	pendingSeq     uint8
	firReceived    bool

	confirmTimer uint32

	log *log.Entry
}

// New creates a Channel in Idle.
func New(cfg Config) *Channel {
	return &Channel{cfg: cfg, state: Idle, log: log.WithField("component", "app")}
}

// State returns the current state tag.
func (c *Channel) State() State { return c.state }

// Send starts transmitting a fragment already encoded by the caller,
// classifying it so the channel knows what it should wait for next.
func (c *Channel) Send(seq uint8, raw []byte, classification Classification) []Action {
	if c.state != Idle && !isSendState(c.state) {
		c.log.Warnf("send requested from state %s, ignoring", c.state)
		return nil
	}
	c.pendingSeq = seq
	c.classification = classification
	c.firReceived = false

	switch classification {
	case ClassNoResponse:
		c.state = Send
	case ClassConfirmedResponse:
		c.state = SendConfirmed
	case ClassExpectResponse:
		c.state = SendExpectResponse
	}
	return []Action{{Kind: ActionTransmit, Raw: raw}}
}

func isSendState(s State) bool {
	return s == Send || s == SendConfirmed || s == SendExpectResponse || s == SendCanceled
}

// OnSendResult reports the outcome of the underlying transmit (link/transport
// layer delivery, not an application response).
func (c *Channel) OnSendResult(ok bool) []Action {
	switch c.state {
	case SendCanceled:
		c.state = Idle
		return []Action{{Kind: ActionNotifyFailure, Err: ErrCanceled}}
	case Send:
		c.state = Idle
		if ok {
			return []Action{{Kind: ActionNotifySuccess}}
		}
		return []Action{{Kind: ActionNotifyFailure, Err: ErrSendFailed}}
	case SendConfirmed:
		if !ok {
			c.state = Idle
			return []Action{{Kind: ActionNotifyFailure, Err: ErrSendFailed}}
		}
		c.state = WaitForConfirm
		c.confirmTimer = 0
		return []Action{{Kind: ActionStartConfirmTimer}}
	case SendExpectResponse:
		if !ok {
			c.state = Idle
			return []Action{{Kind: ActionNotifyFailure, Err: ErrSendFailed}}
		}
		c.state = WaitForFirstResponse
		return nil
	default:
		return nil
	}
}

// OnFragmentReceived processes an inbound fragment addressed to this
// channel: a CONFIRM while WaitForConfirm, or a response while
// WaitForFirstResponse/WaitForFinalResponse.
func (c *Channel) OnFragmentReceived(frag apdu.Fragment) []Action {
	switch c.state {
	case WaitForConfirm:
		if frag.Function != apdu.FuncConfirm {
			return nil
		}
		if frag.Control.Seq != c.pendingSeq {
			c.log.Warn("confirm sequence mismatch")
			return nil
		}
		c.state = Idle
		return []Action{{Kind: ActionCancelConfirmTimer}, {Kind: ActionNotifySuccess}}

	case WaitForFirstResponse, WaitForFinalResponse:
		if frag.Control.Seq != c.pendingSeq {
			c.state = Idle
			return []Action{{Kind: ActionNotifyFailure, Err: ErrBadResponseSequence}}
		}
		if c.state == WaitForFirstResponse && !frag.Control.Fir {
			c.state = Idle
			return []Action{{Kind: ActionNotifyFailure, Err: ErrBadResponseSequence}}
		}
		c.firReceived = true

		actions := []Action{{Kind: ActionDeliverFragment, Fragment: frag}}
		if frag.Control.Fin {
			c.state = Idle
			return append(actions, Action{Kind: ActionNotifySuccess})
		}
		c.state = WaitForFinalResponse
		return actions

	default:
		return nil
	}
}

// Cancel moves any active Send* state to SendCanceled; the next
// send-result event reports ErrCanceled and returns the channel to Idle.
func (c *Channel) Cancel() []Action {
	switch c.state {
	case Send, SendConfirmed, SendExpectResponse:
		c.state = SendCanceled
	case WaitForConfirm, WaitForFirstResponse, WaitForFinalResponse:
		c.state = Idle
		return []Action{{Kind: ActionCancelConfirmTimer}, {Kind: ActionNotifyFailure, Err: ErrCanceled}}
	}
	return nil
}

// Poll advances the confirm timer; expiry in WaitForConfirm reports failure.
func (c *Channel) Poll(elapsedUs uint32) []Action {
	if c.state != WaitForConfirm {
		return nil
	}
	c.confirmTimer += elapsedUs
	if c.confirmTimer < c.cfg.ConfirmTimeoutUs {
		return nil
	}
	c.state = Idle
	c.log.Warn("confirm timeout")
	return []Action{{Kind: ActionNotifyFailure, Err: ErrConfirmTimeout}}
}
