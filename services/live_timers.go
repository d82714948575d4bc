package services

import (
	"sync"
	"time"

	"github.com/Dosada05/fencing-club/relay"
)

// LiveTimers owns this process's countdown of every relay being fenced, one
// per team match. Each countdown belongs to one clock period; its expiry
// callback names that period so a countdown that outlived its period can be
// told apart from the current one. The stored clock stays authoritative.
type LiveTimers struct {
	mu       sync.Mutex
	timers   map[int]*liveTimer
	interval time.Duration
	onTick   func(teamMatchID int, elapsed time.Duration)
	onExpire func(teamMatchID, period int)
}

type liveTimer struct {
	period int
	timer  *relay.Timer
}

func NewLiveTimers(interval time.Duration) *LiveTimers {
	return &LiveTimers{timers: make(map[int]*liveTimer), interval: interval}
}

func (l *LiveTimers) bind(onTick func(int, time.Duration), onExpire func(int, int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTick = onTick
	l.onExpire = onExpire
}

// Arm returns the match's stopped timer for period, placed at elapsed. A
// timer left over from another period is stopped and replaced.
func (l *LiveTimers) Arm(teamMatchID, period int, limit, elapsed time.Duration) *relay.Timer {
	l.mu.Lock()
	lt, ok := l.timers[teamMatchID]
	if ok && lt.period == period {
		l.mu.Unlock()
		lt.timer.Set(limit, elapsed)
		return lt.timer
	}
	fresh := &liveTimer{period: period, timer: l.newTimerLocked(teamMatchID, period, limit)}
	l.timers[teamMatchID] = fresh
	l.mu.Unlock()

	if ok {
		lt.timer.Stop()
	}
	fresh.timer.Set(limit, elapsed)
	return fresh.timer
}

func (l *LiveTimers) newTimerLocked(teamMatchID, period int, limit time.Duration) *relay.Timer {
	onTick, onExpire := l.onTick, l.onExpire
	var tick, expire func(time.Duration)
	if onTick != nil {
		tick = func(elapsed time.Duration) { onTick(teamMatchID, elapsed) }
	}
	if onExpire != nil {
		expire = func(time.Duration) { onExpire(teamMatchID, period) }
	}
	return relay.NewTimer(limit, l.interval, tick, expire)
}

func (l *LiveTimers) Get(teamMatchID int) (*relay.Timer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lt, ok := l.timers[teamMatchID]
	if !ok {
		return nil, false
	}
	return lt.timer, true
}

// Period is zero when the match has no timer.
func (l *LiveTimers) Period(teamMatchID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lt, ok := l.timers[teamMatchID]; ok {
		return lt.period
	}
	return 0
}

// Drop stops and forgets the match's timer.
func (l *LiveTimers) Drop(teamMatchID int) {
	l.mu.Lock()
	lt, ok := l.timers[teamMatchID]
	delete(l.timers, teamMatchID)
	l.mu.Unlock()
	if ok {
		lt.timer.Stop()
	}
}

// StopAll is called on shutdown.
func (l *LiveTimers) StopAll() {
	l.mu.Lock()
	timers := l.timers
	l.timers = make(map[int]*liveTimer)
	l.mu.Unlock()
	for _, lt := range timers {
		lt.timer.Stop()
	}
}

func (l *LiveTimers) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}
