package master

import (
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// Config configures a Master's startup sequence and polling rates.
type Config struct {
	IntegrityRateUs uint64
	TaskRetryRateUs uint64
	EnableUnsol     bool
	UnsolClassMask  uint8 // bit0=class1, bit1=class2, bit2=class3
	UnsolOnStartup  bool
}

// RequestSender performs the actual application-layer exchanges a
// task needs; Master never touches the wire itself, matching the
// scheduler's return-a-task-to-run shape used throughout this core.
type RequestSender interface {
	SendDisableUnsolicited(classMask uint8) bool
	SendEnableUnsolicited(classMask uint8) bool
	RunIntegrityPoll() bool
	RunClassScan(class eventbuffer.Class) bool
}

// Master owns the task scheduler and wires the fixed start-up
// sequence: disable unsolicited for all classes, run an integrity
// poll, then enable unsolicited with the configured mask. Each step
// depends on the previous one's last run having succeeded, so a
// failure anywhere retries in place without the chain advancing.
type Master struct {
	cfg    Config
	sched  *Scheduler
	sender RequestSender

	integrityID xid.ID

	log *log.Entry
}

// NewMaster builds a Master and registers its fixed tasks.
func NewMaster(cfg Config, sender RequestSender) *Master {
	m := &Master{
		cfg:    cfg,
		sched:  NewScheduler(),
		sender: sender,
		log:    log.WithField("component", "master"),
	}

	integrity := &Task{
		Name:          "integrity-poll",
		Priority:      10,
		PeriodUs:      cfg.IntegrityRateUs,
		RetryPeriodUs: cfg.TaskRetryRateUs,
		Flags:         FlagStartUp,
		Handler:       sender.RunIntegrityPoll,
	}

	if cfg.EnableUnsol {
		disable := &Task{
			Name:          "disable-unsolicited",
			Priority:      0,
			RetryPeriodUs: cfg.TaskRetryRateUs,
			Flags:         FlagStartUp,
			Handler:       func() bool { return sender.SendDisableUnsolicited(0x07) },
		}
		disableID := m.sched.AddTask(disable)
		integrity.Dependencies = append(integrity.Dependencies, disableID)

		m.integrityID = m.sched.AddTask(integrity)

		enable := &Task{
			Name:          "enable-unsolicited",
			Priority:      5,
			RetryPeriodUs: cfg.TaskRetryRateUs,
			Flags:         FlagStartUp,
			Dependencies:  []xid.ID{m.integrityID},
			Handler:       func() bool { return sender.SendEnableUnsolicited(cfg.UnsolClassMask) },
		}
		m.sched.AddTask(enable)
	} else {
		m.integrityID = m.sched.AddTask(integrity)
	}

	return m
}

// AddClassScan registers an explicit class-scan task that only
// becomes eligible once the integrity poll has completed successfully
// at least once.
func (m *Master) AddClassScan(class eventbuffer.Class, periodUs uint64, priority int) xid.ID {
	t := &Task{
		Name:          "class-scan",
		Priority:      priority,
		PeriodUs:      periodUs,
		RetryPeriodUs: m.cfg.TaskRetryRateUs,
		Dependencies:  []xid.ID{m.integrityID},
		Handler:       func() bool { return m.sender.RunClassScan(class) },
	}
	return m.sched.AddTask(t)
}

// AddTask registers an arbitrary task (time-sync, command, IIN clear)
// directly on the underlying scheduler.
func (m *Master) AddTask(t *Task) xid.ID { return m.sched.AddTask(t) }

// Trigger marks a continuous task runnable now.
func (m *Master) Trigger(id xid.ID) { m.sched.Trigger(id) }

// LinkUp schedules the start-up sequence and enables online tasks.
func (m *Master) LinkUp() { m.sched.LinkUp() }

// LinkDown disables online-only tasks.
func (m *Master) LinkDown() { m.sched.LinkDown() }

// Poll advances the scheduler by elapsedUs, running at most one task.
// Returns true if a task ran.
func (m *Master) Poll(elapsedUs uint64) bool { return m.sched.RunNext(elapsedUs) }

// Scheduler exposes the underlying scheduler for inspection in tests
// and for callers that need finer control than RunNext gives.
func (m *Master) Scheduler() *Scheduler { return m.sched }
