package attempt

import (
	"context"
	"sync"
	"time"
)

// TickFunc observes the countdown of the question on screen.
type TickFunc func(questionID string, remaining int)

// Timer is the per-question countdown. Only one question is armed at a time;
// arming a new one cancels the previous tick loop. Reaching zero stops the
// loop and does nothing else.
type Timer struct {
	mu         sync.Mutex
	interval   time.Duration
	now        func() time.Time
	onTick     TickFunc
	questionID string
	remaining  int
	startedAt  time.Time
	cancel     context.CancelFunc
	gen        uint64
}

// NewTimer creates a stopped timer ticking every interval (one second in production).
func NewTimer(interval time.Duration, onTick TickFunc) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{interval: interval, now: time.Now, onTick: onTick}
}

// Arm starts the countdown for a question from seconds.
func (t *Timer) Arm(questionID string, seconds int) {
	if seconds < 0 {
		seconds = 0
	}

	t.mu.Lock()
	t.stopLocked()
	t.gen++
	t.questionID = questionID
	t.remaining = seconds
	t.startedAt = t.now()
	if seconds > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		go t.run(ctx, t.gen)
	}
	t.mu.Unlock()

	t.notify(questionID, seconds)
}

// Stop cancels the running tick loop, if any.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

func (t *Timer) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Tick decrements the remaining seconds by one, floored at zero.
func (t *Timer) Tick() int {
	t.mu.Lock()
	remaining, questionID := t.decrementLocked()
	t.mu.Unlock()

	t.notify(questionID, remaining)
	return remaining
}

func (t *Timer) run(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			if gen != t.gen {
				t.mu.Unlock()
				return
			}
			remaining, questionID := t.decrementLocked()
			if remaining == 0 {
				t.stopLocked()
			}
			t.mu.Unlock()

			t.notify(questionID, remaining)
			if remaining == 0 {
				return
			}
		}
	}
}

func (t *Timer) decrementLocked() (int, string) {
	if t.remaining > 0 {
		t.remaining--
	}
	return t.remaining, t.questionID
}

func (t *Timer) notify(questionID string, remaining int) {
	if t.onTick != nil {
		t.onTick(questionID, remaining)
	}
}

// Remaining returns the seconds left on the armed question.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// QuestionID returns the armed question.
func (t *Timer) QuestionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.questionID
}

// Elapsed is wall-clock time since the question was armed, truncated to whole
// seconds. It is measured independently of the countdown, so a throttled
// ticker does not shorten the reported answer time.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	d := t.now().Sub(t.startedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
