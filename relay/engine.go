package relay

import (
	"fmt"
	"time"

	"github.com/Dosada05/fencing-club/models"
)

// BoutByNumber returns the leg with the given number, nil when absent.
func BoutByNumber(bouts []*models.TeamMatchBout, n int) *models.TeamMatchBout {
	for _, b := range bouts {
		if b != nil && b.BoutNumber == n {
			return b
		}
	}
	return nil
}

// ActiveBout returns the leg currently being fenced. A current leg that is
// already closed, as during overtime, yields ErrBoutAlreadyEnded.
func ActiveBout(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*models.TeamMatchBout, error) {
	b := BoutByNumber(bouts, m.CurrentBout)
	if b != nil && b.Status == models.BoutCompleted {
		return nil, fmt.Errorf("%w: bout %d", ErrBoutAlreadyEnded, b.BoutNumber)
	}
	if b == nil || b.Status != models.BoutInProgress {
		return nil, ErrNoActiveBout
	}
	return b, nil
}

func beginBout(m *models.TeamMatch, b *models.TeamMatchBout, now time.Time) {
	started := now
	b.StartScoreA = m.TotalScoreA
	b.StartScoreB = m.TotalScoreB
	b.BoutTouchesA = 0
	b.BoutTouchesB = 0
	b.EndScoreA = nil
	b.EndScoreB = nil
	b.EndReason = nil
	b.ElapsedSeconds = 0
	b.Status = models.BoutInProgress
	b.StartedAt = &started
}

// Start opens bout 1 and starts the clock.
func Start(m *models.TeamMatch, bouts []*models.TeamMatchBout, now time.Time) error {
	if m.Status != models.TeamMatchSetup {
		return fmt.Errorf("%w: start from %s", ErrWrongState, m.Status)
	}
	first := BoutByNumber(bouts, 1)
	if first == nil {
		return fmt.Errorf("%w: bout 1 missing", ErrNoActiveBout)
	}
	m.Status = models.TeamMatchInProgress
	m.CurrentBout = 1
	m.TotalScoreA, m.TotalScoreB = 0, 0
	beginBout(m, first, now)
	clearClock(m)
	runClock(m, now)
	return nil
}

// Pause stops the clock and banks the elapsed time. Pausing a stopped clock
// is a no-op.
func Pause(m *models.TeamMatch, now time.Time) error {
	if m.Status != models.TeamMatchInProgress && m.Status != models.TeamMatchOvertime {
		return fmt.Errorf("%w: pause from %s", ErrWrongState, m.Status)
	}
	if m.TimerRunning {
		holdClock(m, now)
	}
	return nil
}

// Resume restarts the clock from the banked time. An overtime whose minute
// is used up cannot be resumed; it needs DecideOvertime.
func Resume(m *models.TeamMatch, now time.Time) error {
	if m.Status != models.TeamMatchInProgress && m.Status != models.TeamMatchOvertime {
		return fmt.Errorf("%w: resume from %s", ErrWrongState, m.Status)
	}
	if m.Status == models.TeamMatchOvertime && ClockExpired(m, now) {
		return ErrOvertimeUndecided
	}
	if !m.TimerRunning {
		runClock(m, now)
	}
	return nil
}

// AdjustScore applies a touch delta to a team's cumulative total and to the
// leg's touch counter together. The clock must be running.
func AdjustScore(m *models.TeamMatch, b *models.TeamMatchBout, team models.Team, delta int) error {
	if !team.Valid() {
		return ErrInvalidTeam
	}
	if m.Status != models.TeamMatchInProgress {
		return fmt.Errorf("%w: adjust score in %s", ErrWrongState, m.Status)
	}
	if b == nil || b.Status != models.BoutInProgress {
		return ErrNoActiveBout
	}
	if !m.TimerRunning {
		return ErrNotRunning
	}
	if delta == 0 {
		return ErrZeroDelta
	}

	total := m.Total(team) + delta
	if total < b.StartScore(team) {
		return fmt.Errorf("%w: team %s would drop to %d, bout started at %d", ErrBelowBoutStart, team, total, b.StartScore(team))
	}
	touches := b.Touches(team) + delta
	if touches > TouchCap {
		return fmt.Errorf("%w: team %s would reach %d touches", ErrTouchCapExceeded, team, touches)
	}

	if team == models.TeamA {
		m.TotalScoreA = total
		b.BoutTouchesA = touches
	} else {
		m.TotalScoreB = total
		b.BoutTouchesB = touches
	}
	return nil
}

// FinishBout closes the active leg with the given reason and applies the
// match-end rule. On advance the next leg starts with a stopped, rewound
// clock. Closing a leg twice fails with ErrBoutAlreadyEnded.
func FinishBout(m *models.TeamMatch, bouts []*models.TeamMatchBout, reason BoutEndReason, elapsed time.Duration, now time.Time) (Outcome, error) {
	b, err := ActiveBout(m, bouts)
	if err != nil {
		return Outcome{}, err
	}
	if m.Status != models.TeamMatchInProgress {
		return Outcome{}, fmt.Errorf("%w: finish bout in %s", ErrWrongState, m.Status)
	}

	endA, endB := m.TotalScoreA, m.TotalScoreB
	msg := reason.Message
	b.EndScoreA = &endA
	b.EndScoreB = &endB
	b.EndReason = &msg
	b.ElapsedSeconds = int(elapsed / time.Second)
	b.Status = models.BoutCompleted
	clearClock(m)

	out := MatchEnd(m, b.BoutNumber)
	switch out.Kind {
	case OutcomeCompleted:
		m.Status = models.TeamMatchCompleted
		m.Winner = out.Winner
	case OutcomeOvertime:
		zeroA, zeroB := 0, 0
		m.Status = models.TeamMatchOvertime
		m.OvertimeScoreA = &zeroA
		m.OvertimeScoreB = &zeroB
	case OutcomeAdvance:
		next := BoutByNumber(bouts, b.BoutNumber+1)
		if next == nil {
			return Outcome{}, fmt.Errorf("%w: bout %d missing", ErrNoActiveBout, b.BoutNumber+1)
		}
		m.CurrentBout = next.BoutNumber
		beginBout(m, next, now)
	}
	return out, nil
}

// EndBout closes the leg when a bout-end condition holds. With force set a
// referee may close it early.
func EndBout(m *models.TeamMatch, bouts []*models.TeamMatchBout, elapsed time.Duration, force bool, now time.Time) (BoutEndReason, Outcome, error) {
	b, err := ActiveBout(m, bouts)
	if err != nil {
		return BoutEndReason{}, Outcome{}, err
	}
	reason, ended := BoutEnd(m, b, elapsed)
	if !ended {
		if !force {
			return BoutEndReason{}, Outcome{}, ErrBoutNotOver
		}
		reason = BoutEndReason{Kind: EndManual, Message: "Ended by referee"}
	}
	out, err := FinishBout(m, bouts, reason, elapsed, now)
	return reason, out, err
}

// OvertimeTouch awards the sudden-death touch and ends the match.
func OvertimeTouch(m *models.TeamMatch, team models.Team, now time.Time) error {
	if !team.Valid() {
		return ErrInvalidTeam
	}
	if m.Status != models.TeamMatchOvertime {
		return fmt.Errorf("%w: overtime touch in %s", ErrWrongState, m.Status)
	}
	if !m.TimerRunning {
		return ErrNotRunning
	}
	if ClockExpired(m, now) {
		return ErrOvertimeUndecided
	}
	a, b := 0, 0
	if team == models.TeamA {
		a = 1
	} else {
		b = 1
	}
	m.OvertimeScoreA = &a
	m.OvertimeScoreB = &b
	holdClock(m, now)
	m.Winner = teamPtr(team)
	m.Status = models.TeamMatchCompleted
	return nil
}

// DecideOvertime settles an overtime whose period expired without a touch.
func DecideOvertime(m *models.TeamMatch, team models.Team, now time.Time) error {
	if !team.Valid() {
		return ErrInvalidTeam
	}
	if m.Status != models.TeamMatchOvertime {
		return fmt.Errorf("%w: decide overtime in %s", ErrWrongState, m.Status)
	}
	if m.TimerRunning && !ClockExpired(m, now) {
		return fmt.Errorf("%w: overtime clock still running", ErrWrongState)
	}
	holdClock(m, now)
	m.Winner = teamPtr(team)
	m.Status = models.TeamMatchCompleted
	return nil
}

// Cancel aborts a non-terminal match and returns the leg whose progress was
// discarded, if any.
func Cancel(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*models.TeamMatchBout, error) {
	if m.Status.Terminal() {
		return nil, fmt.Errorf("%w: cancel from %s", ErrWrongState, m.Status)
	}
	m.Status = models.TeamMatchCancelled
	clearClock(m)

	b := BoutByNumber(bouts, m.CurrentBout)
	if b == nil || b.Status != models.BoutInProgress {
		return nil, nil
	}
	m.TotalScoreA, m.TotalScoreB = b.StartScoreA, b.StartScoreB
	b.Status = models.BoutPending
	b.BoutTouchesA, b.BoutTouchesB = 0, 0
	b.ElapsedSeconds = 0
	b.StartedAt = nil
	return b, nil
}
