package schedule

import (
	"sync"
	"time"

	"github.com/eleven-am/shelfscan/internal/detection"
)

const DefaultInterval = 7 * time.Second

// IsDue reports whether a capture should run at now. A zero last capture is
// always due.
func IsDue(now, last time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= interval
}

// Remaining is the time until the next capture, clamped to [0, interval] so
// clock skew never yields a negative or inflated value.
func Remaining(now, last time.Time, interval time.Duration) time.Duration {
	if last.IsZero() {
		return 0
	}
	remaining := interval - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	if remaining > interval {
		return interval
	}
	return remaining
}

type Timer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewTimer(interval time.Duration) *Timer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Timer{interval: interval}
}

func (t *Timer) Interval() time.Duration {
	return t.interval
}

// TryBegin claims the capture slot at now. It returns false when the previous
// capture is still inside the interval; on true the timer has already moved.
func (t *Timer) TryBegin(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !IsDue(now, t.last, t.interval) {
		return false
	}
	t.last = now
	return true
}

func (t *Timer) Remaining(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Remaining(now, t.last, t.interval)
}

type Timers map[detection.Domain]*Timer

func NewTimers(intervals map[detection.Domain]time.Duration) Timers {
	timers := make(Timers, len(intervals))
	for domain, interval := range intervals {
		timers[domain] = NewTimer(interval)
	}
	return timers
}
