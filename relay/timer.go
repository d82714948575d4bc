package relay

import (
	"sync"
	"time"
)

// Timer is a pausable countdown for one bout or overtime period. Ticks and
// expiry are delivered through callbacks; after Stop, Pause, Reset or Set returns
// no callback from the previous run fires again.
type Timer struct {
	mu       sync.Mutex
	limit    time.Duration
	elapsed  time.Duration
	interval time.Duration
	running  bool
	gen      uint64
	stop     chan struct{}

	onTick   func(elapsed time.Duration)
	onExpire func(elapsed time.Duration)
}

func NewTimer(limit, interval time.Duration, onTick, onExpire func(time.Duration)) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{
		limit:    limit,
		interval: interval,
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start begins or resumes the countdown. Starting a running timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.elapsed >= t.limit {
		return
	}
	t.running = true
	t.gen++
	t.stop = make(chan struct{})
	go t.loop(t.gen, t.stop)
}

func (t *Timer) loop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.advance(gen, t.interval) {
				return
			}
		}
	}
}

// Advance moves the clock forward by d as if the ticker had fired. It reports
// whether the countdown is still running afterwards.
func (t *Timer) Advance(d time.Duration) bool {
	t.mu.Lock()
	gen := t.gen
	running := t.running
	t.mu.Unlock()
	if !running {
		return false
	}
	return t.advance(gen, d)
}

func (t *Timer) advance(gen uint64, d time.Duration) bool {
	t.mu.Lock()
	if !t.running || t.gen != gen {
		t.mu.Unlock()
		return false
	}
	t.elapsed += d
	if t.elapsed > t.limit {
		t.elapsed = t.limit
	}
	elapsed := t.elapsed
	expired := elapsed >= t.limit
	if expired {
		t.haltLocked()
	}
	onTick, onExpire := t.onTick, t.onExpire
	t.mu.Unlock()

	if onTick != nil {
		onTick(elapsed)
	}
	if expired && onExpire != nil {
		onExpire(elapsed)
	}
	return !expired
}

func (t *Timer) haltLocked() {
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	close(t.stop)
	t.stop = nil
}

// Pause stops the countdown and keeps the elapsed time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
}

// Stop is Pause under the name used on teardown paths; it is safe to call
// any number of times.
func (t *Timer) Stop() { t.Pause() }

// Reset stops the countdown and rewinds it for a new period.
func (t *Timer) Reset(limit time.Duration) { t.Set(limit, 0) }

// Set stops the countdown and places it at elapsed within limit.
func (t *Timer) Set(limit, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
	if elapsed > limit {
		elapsed = limit
	}
	if elapsed < 0 {
		elapsed = 0
	}
	t.elapsed = elapsed
	t.limit = limit
}

func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit - t.elapsed
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
