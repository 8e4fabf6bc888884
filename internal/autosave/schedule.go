package autosave

import (
	"sync/atomic"
	"time"

	"github.com/rpggio/panotour/internal/clock"
)

// Task is a scheduled call that can be cancelled before it runs.
type Task struct {
	timer     *clock.Timer
	cancelled atomic.Bool
}

// ScheduleAfter arranges for fn to run once d has elapsed on clk.
func ScheduleAfter(clk clock.Clock, d time.Duration, fn func()) *Task {
	task := &Task{}
	task.timer = clk.AfterFunc(d, func() {
		if task.cancelled.Load() {
			return
		}
		fn()
	})
	return task
}

// Cancel prevents the task from running. It reports whether the task
// was still pending.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	wasPending := !t.cancelled.Swap(true)
	if t.timer != nil && !t.timer.Stop() {
		return false
	}
	return wasPending
}
