// Package channelmonitor implements the physical-channel lifecycle FSM
// sitting above the link layer: it decides when to open, retry, suspend
// and close the underlying byte transport. It is grounded in the same
// shape as the teacher's pkg/nmt.NMT state machine — a small state enum
// advanced by named events, with timers driven by an external poll
// rather than goroutines.
package channelmonitor

import log "github.com/sirupsen/logrus"

// State is one of the channel monitor's lifecycle states.
type State uint8

const (
	Init State = iota
	Opening
	Open
	Closing
	Suspending
	Waiting
	Suspended
	ShuttingDown
	Shutdown
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Opening:
		return "Opening"
	case Open:
		return "Open"
	case Closing:
		return "Closing"
	case Suspending:
		return "Suspending"
	case Waiting:
		return "Waiting"
	case Suspended:
		return "Suspended"
	case ShuttingDown:
		return "ShuttingDown"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// ActionKind enumerates side effects a transition can request.
type ActionKind uint8

const (
	ActionOpenChannel ActionKind = iota
	ActionCloseChannel
	ActionStartOpenTimer
	ActionStartWaitTimer
	ActionCancelTimers
	ActionNotifyLinkUp
	ActionNotifyLinkDown
)

// Action is one requested side effect.
type Action struct {
	Kind ActionKind
}

// Config configures retry behavior.
type Config struct {
	WaitTimeUs    uint32
	OpenTimeoutUs uint32
}

// Monitor drives one physical channel's lifecycle.
type Monitor struct {
	cfg Config

	state State
	// restartOnFailure is true when started via Start (retry forever)
	// and false via StartOne (terminate on the first open failure).
	restartOnFailure bool

	openTimer uint32
	waitTimer uint32

	log *log.Entry
}

// New creates a Monitor in Init.
func New(cfg Config) *Monitor {
	return &Monitor{cfg: cfg, state: Init, log: log.WithField("component", "channelmonitor")}
}

// State returns the current state tag.
func (m *Monitor) State() State { return m.state }

// Start begins opening the channel, retrying on failure until closed.
func (m *Monitor) Start() []Action {
	if m.state != Init && m.state != Waiting && m.state != Suspended {
		return nil
	}
	m.restartOnFailure = true
	m.state = Opening
	return []Action{{Kind: ActionOpenChannel}, {Kind: ActionStartOpenTimer}}
}

// StartOne begins opening the channel once, terminating on failure.
func (m *Monitor) StartOne() []Action {
	if m.state != Init {
		return nil
	}
	m.restartOnFailure = false
	m.state = Opening
	return []Action{{Kind: ActionOpenChannel}, {Kind: ActionStartOpenTimer}}
}

// OpenSuccess reports that the channel finished opening.
func (m *Monitor) OpenSuccess() []Action {
	if m.state != Opening {
		return nil
	}
	m.state = Open
	return []Action{{Kind: ActionCancelTimers}, {Kind: ActionNotifyLinkUp}}
}

// OpenFailure reports that opening the channel failed.
func (m *Monitor) OpenFailure() []Action {
	if m.state != Opening {
		return nil
	}
	if !m.restartOnFailure {
		m.state = Shutdown
		return []Action{{Kind: ActionCancelTimers}}
	}
	m.state = Waiting
	m.waitTimer = 0
	return []Action{{Kind: ActionStartWaitTimer}}
}

// OpenTimeout reports that the open attempt itself timed out; treated as
// an open failure that always retries back through Opening.
func (m *Monitor) OpenTimeout() []Action {
	if m.state != Opening {
		return nil
	}
	m.state = Opening
	return []Action{{Kind: ActionCloseChannel}, {Kind: ActionOpenChannel}, {Kind: ActionStartOpenTimer}}
}

// LayerClose reports that an already-open channel dropped underneath the
// monitor. From Open it auto-restarts back into Opening; from Suspending
// it settles in Suspended; from ShuttingDown it completes the shutdown.
func (m *Monitor) LayerClose() []Action {
	switch m.state {
	case Open:
		m.state = Opening
		return []Action{{Kind: ActionNotifyLinkDown}, {Kind: ActionOpenChannel}, {Kind: ActionStartOpenTimer}}
	case Suspending:
		m.state = Suspended
		return nil
	case ShuttingDown:
		m.state = Shutdown
		return []Action{{Kind: ActionNotifyLinkDown}}
	default:
		return nil
	}
}

// Close moves an open channel toward Closing.
func (m *Monitor) Close() []Action {
	if m.state != Open {
		return nil
	}
	m.state = Closing
	return []Action{{Kind: ActionCloseChannel}, {Kind: ActionNotifyLinkDown}}
}

// Suspend moves an open channel toward Suspending, preserving state for
// a later Start.
func (m *Monitor) Suspend() []Action {
	if m.state != Open {
		return nil
	}
	m.state = Suspending
	return []Action{{Kind: ActionCloseChannel}, {Kind: ActionNotifyLinkDown}}
}

// Shutdown moves an Open, Opening, Waiting or Suspended channel to
// ShuttingDown, which LayerClose completes; from any other state it
// moves straight to the terminal Shutdown state.
func (m *Monitor) Shutdown() []Action {
	switch m.state {
	case Shutdown:
		return nil
	case Open, Opening, Waiting, Suspended:
		m.state = ShuttingDown
		return []Action{{Kind: ActionCloseChannel}, {Kind: ActionCancelTimers}}
	default:
		m.state = Shutdown
		return nil
	}
}

// Poll advances timers. A Waiting channel retries opening once its wait
// timer expires.
func (m *Monitor) Poll(elapsedUs uint32) []Action {
	switch m.state {
	case Waiting:
		m.waitTimer += elapsedUs
		if m.waitTimer < m.cfg.WaitTimeUs {
			return nil
		}
		m.state = Opening
		return []Action{{Kind: ActionOpenChannel}, {Kind: ActionStartOpenTimer}}
	case Opening:
		m.openTimer += elapsedUs
		if m.openTimer < m.cfg.OpenTimeoutUs {
			return nil
		}
		m.openTimer = 0
		return m.OpenTimeout()
	default:
		return nil
	}
}
