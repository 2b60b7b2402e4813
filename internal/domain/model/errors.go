package model

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrMissingField marks a raw event lacking a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrUnknownEventType marks an event type outside the closed vocabulary.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrBadTeamID marks a team identifier that could not be coerced.
	ErrBadTeamID = errors.New("malformed team id")

	// ErrNonMonotonicClock marks a clock that fails to decrease within a period.
	ErrNonMonotonicClock = errors.New("non-monotonic clock")

	// ErrScoreRegression marks a score snapshot lower than its predecessor.
	ErrScoreRegression = errors.New("score regression")

	// ErrUnstableTeams marks home/away team ids changing mid-game.
	ErrUnstableTeams = errors.New("unstable home/away team ids")

	// ErrSealed marks an attempt to mutate or re-seal a sealed possession.
	ErrSealed = errors.New("possession already sealed")

	// ErrPointsConservation marks a points delta outside what a single
	// possession can produce.
	ErrPointsConservation = errors.New("points conservation violated")
)
