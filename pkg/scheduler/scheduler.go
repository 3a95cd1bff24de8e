// Package scheduler implements the cooperative call protocol the host
// boundary runs Thread.start through: tasks are enqueued, not started,
// and a single run loop drains and executes them one at a time to
// completion, so only one logical frame ever progresses at a time.
// Grounded on KTStephano-GVM's goroutine-and-channel device model
// (vm/devices.go's nonBlockingChan/TrySend), generalized from a fixed
// hardware-device request/response bus into a general work queue of
// interpreter entry points.
package scheduler

import (
	"github.com/pkg/errors"
)

// Task is one unit of cooperative work: typically a top-level method
// Invoke. A Task runs to completion once started — it does not suspend
// mid-bytecode, since this module's interpreter has no mid-instruction
// suspension points; suspension happens only between tasks, at
// Spawn/Run boundaries.
type Task func() error

// Scheduler is the single logical executor: the goroutine that calls Run
// drains queue and runs each Task to completion before the next, matching the
// teacher's nonBlockingChan send/receive discipline (one sender many
// receivers is irrelevant here — tasks are always consumed by the
// single Run loop).
type Scheduler struct {
	queue    chan Task
	capacity int32
}

// New creates a scheduler whose pending-task queue holds at most
// capacity un-run tasks before Spawn starts reporting backpressure.
func New(capacity int) *Scheduler {
	return &Scheduler{queue: make(chan Task, capacity), capacity: int32(capacity)}
}

// Spawn enqueues t for later execution by Run. It reports false
// (backpressure) rather than blocking when the queue is full,
// mirroring the teacher's nonBlockingChan.send.
func (s *Scheduler) Spawn(t Task) bool {
	select {
	case s.queue <- t:
		return true
	default:
		return false
	}
}

// Run drains the queue, executing each Task in the order it was
// spawned, until the queue is empty or a Task returns a fatal error. A
// Task spawning further Tasks during Run is executed in turn, so Run
// only returns once the whole transitive closure of spawned work has
// completed or failed.
func (s *Scheduler) Run() error {
	for {
		select {
		case t := <-s.queue:
			if err := t(); err != nil {
				return errors.Wrap(err, "scheduler task")
			}
		default:
			return nil
		}
	}
}

// Close shuts the queue down; Spawn after Close panics, matching
// sending on a closed channel — callers must not Spawn once a
// scheduler's Run has returned for good.
func (s *Scheduler) Close() { close(s.queue) }

// Pending reports how many tasks are currently queued, awaiting Run.
func (s *Scheduler) Pending() int { return len(s.queue) }
