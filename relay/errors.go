package relay

import "errors"

var (
	ErrInvalidRoster     = errors.New("invalid relay roster")
	ErrInvalidTeam       = errors.New("team must be A or B")
	ErrNotRunning        = errors.New("timer is not running")
	ErrWrongState        = errors.New("team match is not in a state that allows this action")
	ErrNoActiveBout      = errors.New("no bout in progress")
	ErrZeroDelta         = errors.New("score delta must be non-zero")
	ErrBelowBoutStart    = errors.New("score cannot drop below the bout's starting score")
	ErrTouchCapExceeded  = errors.New("bout touch cap exceeded")
	ErrBoutAlreadyEnded  = errors.New("bout has already ended")
	ErrOvertimeUndecided = errors.New("overtime expired without a touch")
)

var ErrBoutNotOver = errors.New("no bout-end condition holds yet")
