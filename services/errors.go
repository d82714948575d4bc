package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/fencing-club/relay"
	"github.com/Dosada05/fencing-club/repositories"
)

// Error classes. Every error a service returns wraps exactly one of them so
// callers can decide between "fix your input", "refresh and retry", "not
// yours" and "try again later".
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("state changed, please refresh")
	ErrForbidden  = errors.New("operation not allowed for the current user")
	ErrNotFound   = errors.New("requested resource not found")
)

type classedError struct {
	class error
	msg   string
}

func (e *classedError) Error() string { return e.msg }
func (e *classedError) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classedError{class: class, msg: msg}
}

var (
	ErrConfirmationRequired  = newError(ErrValidation, "cancelling a tournament requires explicit confirmation")
	ErrTournamentNameMissing = newError(ErrValidation, "tournament name is required")
	ErrAthleteNotInGym       = newError(ErrValidation, "athlete is not a member of this gym")
	ErrInvalidScore          = newError(ErrValidation, "scores must be non-negative")
	ErrInvalidWeapon         = newError(ErrValidation, "weapon must be foil, epee or sabre")
	ErrScoresMissing         = newError(ErrValidation, "match has no recorded score")
	ErrSelfBout              = newError(ErrValidation, "an athlete cannot fence themselves")

	ErrMatchAlreadyApproved = newError(ErrConflict, "match is already approved; reset it first")
	ErrMatchCancelled       = newError(ErrConflict, "match was cancelled")
	ErrMatchNotApproved     = newError(ErrConflict, "only approved matches can be reset")
	ErrTournamentClosed     = newError(ErrConflict, "tournament is no longer in progress")

	ErrNotOrganizer   = newError(ErrForbidden, "only the tournament organizer can do this")
	ErrNotParticipant = newError(ErrForbidden, "only a participant of this match can do this")
	ErrOwnResult      = newError(ErrForbidden, "a standalone result must be recorded by one of its athletes")

	ErrTournamentNotFound = newError(ErrNotFound, "tournament not found")
	ErrMatchNotFound      = newError(ErrNotFound, "match not found")
	ErrTeamMatchNotFound  = newError(ErrNotFound, "team match not found")
	ErrMemberNotFound     = newError(ErrNotFound, "member not found")
)

// translateRepoError maps store sentinels into service classes and leaves
// infrastructure failures unclassified.
func translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamMatchNotFound),
		errors.Is(err, repositories.ErrTeamMatchBoutNotFound):
		return ErrTeamMatchNotFound
	case errors.Is(err, repositories.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, repositories.ErrNotificationNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repositories.ErrTournamentStatusChanged):
		return ErrTournamentClosed
	case errors.Is(err, repositories.ErrMatchSelfPair):
		return ErrSelfBout
	case errors.Is(err, repositories.ErrMatchAthleteInvalid),
		errors.Is(err, repositories.ErrMatchTournamentInvalid),
		errors.Is(err, repositories.ErrTournamentInvalidGym),
		errors.Is(err, repositories.ErrTournamentInvalidCreator),
		errors.Is(err, repositories.ErrTeamMatchGymInvalid):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

// translateRelayError classifies rule violations reported by the relay engine.
func translateRelayError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, relay.ErrInvalidRoster),
		errors.Is(err, relay.ErrInvalidTeam),
		errors.Is(err, relay.ErrZeroDelta),
		errors.Is(err, relay.ErrBelowBoutStart),
		errors.Is(err, relay.ErrTouchCapExceeded):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case errors.Is(err, relay.ErrNotRunning),
		errors.Is(err, relay.ErrWrongState),
		errors.Is(err, relay.ErrNoActiveBout),
		errors.Is(err, relay.ErrBoutAlreadyEnded),
		errors.Is(err, relay.ErrOvertimeUndecided),
		errors.Is(err, relay.ErrBoutNotOver):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
