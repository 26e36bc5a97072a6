package pool

import (
	"time"

	"github.com/mandelsoft/goutils/general"
)

// Status is the result of an action for a queue entry.
//
//	Completed  Error
//	true       nil   done, the entry is forgotten
//	true       err   not ready, the entry is requeued rate limited
//	false      nil   redo immediately
//	false      err   failed, wait for the next enqueue
type Status struct {
	Completed bool
	Error     error

	// Interval requests a reschedule of the entry, -1 keeps the
	// period of the pool, 0 disables the reschedule. The minimum
	// positive interval of all actions of an entry is used.
	Interval time.Duration
}

func (s Status) RescheduleAfter(d time.Duration) Status {
	if s.Interval < 0 || d < s.Interval {
		s.Interval = d
	}
	return s
}

func (s Status) Stop() Status {
	s.Interval = 0
	return s
}

func StatusCompleted(err ...error) Status {
	return Status{Completed: true, Error: general.Optional(err...), Interval: -1}
}

func StatusFailed(err error) Status {
	return Status{Error: err, Interval: -1}
}
