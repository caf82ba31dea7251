package master

import (
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// Scheduler is the dependency-graph task executor: a single ordered
// pool of tasks advanced by an external Poll, picking the next
// runnable task by priority then earliest next_run then insertion
// order, mirroring the teacher's Network as the thing that owns and
// steps every managed unit from one call site.
type Scheduler struct {
	tasks   []*Task
	byID    map[xid.ID]*Task
	nowUs   uint64
	nextSeq int
	linkUp  bool
	log     *log.Entry
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		byID: make(map[xid.ID]*Task),
		log:  log.WithField("component", "master.scheduler"),
	}
}

// AddTask registers a task, assigning it an ID if it doesn't already
// have one. Online-only tasks start Disabled until the first LinkUp.
func (s *Scheduler) AddTask(t *Task) xid.ID {
	if t.ID.IsNil() {
		t.ID = xid.New()
	}
	t.seq = s.nextSeq
	s.nextSeq++
	if t.Flags.has(FlagOnlineOnly) && !s.linkUp {
		t.state = TaskDisabled
	} else {
		t.state = TaskIdle
	}
	s.tasks = append(s.tasks, t)
	s.byID[t.ID] = t
	return t.ID
}

// Task looks up a registered task by ID.
func (s *Scheduler) Task(id xid.ID) (*Task, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// Tasks returns every registered task, for inspection by metrics
// collectors and diagnostics.
func (s *Scheduler) Tasks() []*Task { return s.tasks }

// LinkUp enables online-only tasks and schedules every start-up task
// to run once at next_run=0, dropping any prior completion record so
// dependents gate on this cycle's run, not the previous link-up's.
func (s *Scheduler) LinkUp() {
	s.linkUp = true
	for _, t := range s.tasks {
		if t.Flags.has(FlagOnlineOnly) {
			t.state = TaskPending
		}
		if t.Flags.has(FlagStartUp) {
			t.nextRunUs = s.nowUs
			t.everRun = false
			t.succeeded = false
			t.state = TaskPending
		}
	}
}

// LinkDown disables online-only tasks, preserving their run history
// and schedule for the next link-up.
func (s *Scheduler) LinkDown() {
	s.linkUp = false
	for _, t := range s.tasks {
		if t.Flags.has(FlagOnlineOnly) {
			t.state = TaskDisabled
		}
	}
}

// Trigger marks a continuous task (command, time-sync, IIN clear) as
// runnable immediately. No-op for a disabled task.
func (s *Scheduler) Trigger(id xid.ID) {
	t, ok := s.byID[id]
	if !ok || t.state == TaskDisabled {
		return
	}
	t.nextRunUs = s.nowUs
	t.state = TaskPending
}

func (s *Scheduler) dependenciesSatisfied(t *Task) bool {
	for _, depID := range t.Dependencies {
		dep, ok := s.byID[depID]
		if !ok || !dep.everRun || !dep.succeeded {
			return false
		}
	}
	return true
}

// next picks the highest-priority (lowest number) runnable task among
// those whose next_run has elapsed and whose dependencies all last
// succeeded, tie-breaking on earliest next_run then insertion order.
func (s *Scheduler) next() *Task {
	var best *Task
	for _, t := range s.tasks {
		if t.state != TaskPending {
			continue // Idle tasks wait for Trigger; Running/Disabled aren't eligible
		}
		if t.nextRunUs > s.nowUs {
			continue
		}
		if !s.dependenciesSatisfied(t) {
			continue
		}
		if best == nil || betterTask(t, best) {
			best = t
		}
	}
	return best
}

func betterTask(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.nextRunUs != b.nextRunUs {
		return a.nextRunUs < b.nextRunUs
	}
	return a.seq < b.seq
}

// Poll advances the scheduler's clock and returns the next runnable
// task, marking it Running. Returns nil if nothing is runnable yet.
func (s *Scheduler) Poll(elapsedUs uint64) *Task {
	s.nowUs += elapsedUs
	t := s.next()
	if t == nil {
		return nil
	}
	t.state = TaskRunning
	return t
}

// RunNext polls and, if a task is runnable, invokes its handler
// synchronously and reports the result. Returns false if nothing ran.
func (s *Scheduler) RunNext(elapsedUs uint64) bool {
	t := s.Poll(elapsedUs)
	if t == nil {
		return false
	}
	ok := true
	if t.Handler != nil {
		ok = t.Handler()
	}
	s.Complete(t.ID, ok)
	return true
}

// Complete reports a running task's outcome. On success, periodic
// tasks are rescheduled PeriodUs ahead; one-shot tasks go Idle,
// awaiting an external Trigger. On failure, the task retries after
// RetryPeriodUs without advancing its dependents.
func (s *Scheduler) Complete(id xid.ID, success bool) {
	t, ok := s.byID[id]
	if !ok {
		return
	}
	t.everRun = true
	t.succeeded = success
	if success {
		if t.PeriodUs > 0 {
			t.nextRunUs = s.nowUs + t.PeriodUs
			t.state = TaskPending
			return
		}
		t.state = TaskIdle
		return
	}
	if t.RetryPeriodUs > 0 {
		t.nextRunUs = s.nowUs + t.RetryPeriodUs
	} else {
		t.nextRunUs = s.nowUs
	}
	t.state = TaskPending
	s.log.Warnf("task %s failed, retrying at t=%d", t.Name, t.nextRunUs)
}
