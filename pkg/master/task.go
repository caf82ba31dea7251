package master

import "github.com/rs/xid"

// TaskState tracks where a task sits in the scheduler's executor loop.
type TaskState uint8

const (
	TaskIdle TaskState = iota
	TaskPending
	TaskRunning
	TaskDisabled
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "Idle"
	case TaskPending:
		return "Pending"
	case TaskRunning:
		return "Running"
	case TaskDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// TaskFlags modify how a task is scheduled around link state.
type TaskFlags uint8

const (
	// FlagStartUp tasks run once per link-up, scheduled at next_run=0.
	FlagStartUp TaskFlags = 1 << iota
	// FlagOnlineOnly tasks are enabled on link-up and disabled (state
	// preserved) on link-down.
	FlagOnlineOnly
)

func (f TaskFlags) has(bit TaskFlags) bool { return f&bit != 0 }

// Handler performs a task's work synchronously and reports success. The
// executor calls it on the cooperative executor; long-running I/O must
// be modeled as request/response pairs that report back through
// Scheduler.Complete rather than blocking here.
type Handler func() bool

// Task is one schedulable unit of master work: an integrity poll, a
// class scan, a time-sync exchange, a command, or an unsolicited
// enable/disable step.
type Task struct {
	ID            xid.ID
	Name          string
	Priority      int
	PeriodUs      uint64
	RetryPeriodUs uint64
	Flags         TaskFlags
	Dependencies  []xid.ID
	Handler       Handler

	state     TaskState
	nextRunUs uint64
	everRun   bool
	succeeded bool
	seq       int
}

// State returns the task's current scheduler state.
func (t *Task) State() TaskState { return t.state }
