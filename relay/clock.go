package relay

import (
	"fmt"
	"time"

	"github.com/Dosada05/fencing-club/models"
)

// OvertimePeriod numbers the sudden-death period after the nine legs.
const OvertimePeriod = BoutCount + 1

// ClockPeriod names the period the match clock is measuring: the leg in
// progress, OvertimePeriod during overtime, zero when nothing is fenced.
func ClockPeriod(m *models.TeamMatch) int {
	switch m.Status {
	case models.TeamMatchInProgress:
		return m.CurrentBout
	case models.TeamMatchOvertime:
		return OvertimePeriod
	}
	return 0
}

func PeriodLimit(m *models.TeamMatch) time.Duration {
	if m.Status == models.TeamMatchOvertime {
		return OvertimeLimit
	}
	return BoutTimeLimit
}

// ClockElapsed derives the period's elapsed time from the stored anchor. It
// never exceeds the period limit.
func ClockElapsed(m *models.TeamMatch, now time.Time) time.Duration {
	elapsed := time.Duration(m.ClockElapsedMs) * time.Millisecond
	if m.TimerRunning && m.ClockStartedAt != nil {
		if since := now.Sub(*m.ClockStartedAt); since > 0 {
			elapsed += since
		}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if limit := PeriodLimit(m); elapsed > limit {
		elapsed = limit
	}
	return elapsed
}

// ClockExpired reports whether the stored clock has used up its period.
func ClockExpired(m *models.TeamMatch, now time.Time) bool {
	return ClockElapsed(m, now) >= PeriodLimit(m)
}

func runClock(m *models.TeamMatch, now time.Time) {
	started := now
	m.ClockStartedAt = &started
	m.TimerRunning = true
}

func holdClock(m *models.TeamMatch, now time.Time) {
	m.ClockElapsedMs = ClockElapsed(m, now).Milliseconds()
	m.ClockStartedAt = nil
	m.TimerRunning = false
}

func clearClock(m *models.TeamMatch) {
	m.ClockElapsedMs = 0
	m.ClockStartedAt = nil
	m.TimerRunning = false
}

// SyncClock moves a running clock forward to a client-reported elapsed time.
// It never moves the clock back and reports whether anything changed.
func SyncClock(m *models.TeamMatch, elapsed time.Duration, now time.Time) (bool, error) {
	if m.Status != models.TeamMatchInProgress && m.Status != models.TeamMatchOvertime {
		return false, fmt.Errorf("%w: clock sync in %s", ErrWrongState, m.Status)
	}
	if !m.TimerRunning {
		return false, ErrNotRunning
	}
	if limit := PeriodLimit(m); elapsed > limit {
		elapsed = limit
	}
	if elapsed <= ClockElapsed(m, now) {
		return false, nil
	}
	m.ClockElapsedMs = elapsed.Milliseconds()
	runClock(m, now)
	return true, nil
}

// ExpireOvertime stops an overtime clock that ran out without a touch. The
// match then waits for DecideOvertime.
func ExpireOvertime(m *models.TeamMatch) error {
	if m.Status != models.TeamMatchOvertime {
		return fmt.Errorf("%w: expire overtime in %s", ErrWrongState, m.Status)
	}
	m.ClockElapsedMs = OvertimeLimit.Milliseconds()
	m.ClockStartedAt = nil
	m.TimerRunning = false
	return nil
}
