// Package model contains the validated domain types passed between layers.
//
// All coercion from loosely-typed upstream rows happens here, once, at the
// parse boundary. Downstream packages never see raw strings or sentinel
// zeroes for absent values.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType enumerates the closed vocabulary of game events.
// Any type outside this set is a hard parse error.
type EventType int

const (
	EventUnknown EventType = iota
	EventMadeShot
	EventMissedShot
	EventRebound
	EventTurnover
	EventSteal
	EventPersonalFoul
	EventTechnicalFoul
	EventFlagrantFoul
	EventFreeThrow
	EventPeriodStart
	EventPeriodEnd
	EventGameEnd
	EventSubstitution
	EventTimeout
)

var eventTypeNames = map[EventType]string{
	EventMadeShot:      "made_shot",
	EventMissedShot:    "missed_shot",
	EventRebound:       "rebound",
	EventTurnover:      "turnover",
	EventSteal:         "steal",
	EventPersonalFoul:  "personal_foul",
	EventTechnicalFoul: "technical_foul",
	EventFlagrantFoul:  "flagrant_foul",
	EventFreeThrow:     "free_throw",
	EventPeriodStart:   "period_start",
	EventPeriodEnd:     "period_end",
	EventGameEnd:       "game_end",
	EventSubstitution:  "substitution",
	EventTimeout:       "timeout",
}

var eventTypeValues = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeNames))
	for t, name := range eventTypeNames {
		m[name] = t
	}
	return m
}()

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseEventType maps an upstream type string onto the closed enum.
func ParseEventType(s string) (EventType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if t, ok := eventTypeValues[key]; ok {
		return t, nil
	}
	return EventUnknown, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

// TeamID identifies a team. Upstream feeds use large numeric ids.
type TeamID int64

// TeamRef is an explicitly optional team attribution. The zero value is
// absent; absence is never encoded as team 0.
type TeamRef struct {
	ID    TeamID
	Valid bool
}

// Team returns a present TeamRef.
func Team(id TeamID) TeamRef { return TeamRef{ID: id, Valid: true} }

// AbsentTeam returns the explicit absent variant.
func AbsentTeam() TeamRef { return TeamRef{} }

// Is reports whether r is present and refers to id.
func (r TeamRef) Is(id TeamID) bool { return r.Valid && r.ID == id }

func (r TeamRef) String() string {
	if !r.Valid {
		return "absent"
	}
	return strconv.FormatInt(int64(r.ID), 10)
}

// ParseTeamRef coerces an upstream team identifier. It is total: the empty
// string maps to the absent variant, decimal-string forms such as
// "1610612760.0" are accepted, and anything else returns ErrBadTeamID.
func ParseTeamRef(s string) (TeamRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AbsentTeam(), nil
	}
	// Some feeds serialize integer ids through floats.
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		if frac := strings.TrimRight(s[dot+1:], "0"); frac != "" {
			return AbsentTeam(), fmt.Errorf("%w: %q has a fractional part", ErrBadTeamID, s)
		}
		s = s[:dot]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return AbsentTeam(), fmt.Errorf("%w: %q", ErrBadTeamID, s)
	}
	if id <= 0 {
		return AbsentTeam(), fmt.Errorf("%w: non-positive id %d", ErrBadTeamID, id)
	}
	return Team(TeamID(id)), nil
}

// RawEvent is one upstream play-by-play row before validation. String and
// pointer fields model the loose typing of the source feeds.
type RawEvent struct {
	EventID      string
	GameID       string
	EventType    string
	Period       int
	ClockSeconds float64 // seconds remaining in the period
	Sequence     int
	TeamID       string // optional, possibly a decimal string
	HomeScore    *int
	AwayScore    *int
	HomeTeamID   string
	AwayTeamID   string
	WallClock    *time.Time
	FTMade       bool // free throws only: the attempt scored
	FTLast       bool // free throws only: last attempt of the trip
}

// Event is one validated game event.
type Event struct {
	ID       string
	GameID   string
	Type     EventType
	Period   int     // 1..4 regulation, >4 overtime
	Clock    float64 // seconds remaining in the period
	Sequence int
	Team     TeamRef

	// Score snapshot at the moment of the event.
	HomeScore int
	AwayScore int

	// Per-game constants carried on every event.
	HomeTeam TeamID
	AwayTeam TeamID

	// WallClock is zero when the feed carries no real-time timestamp.
	WallClock time.Time

	FTMade bool
	FTLast bool
}

// ParseEvent validates one raw row into an Event, or rejects it with a typed
// error. It is pure and never panics.
func ParseEvent(raw RawEvent) (Event, error) {
	var e Event

	if raw.EventID == "" {
		return e, fmt.Errorf("%w: event_id", ErrMissingField)
	}
	if raw.GameID == "" {
		return e, fmt.Errorf("%w: game_id (event %s)", ErrMissingField, raw.EventID)
	}

	typ, err := ParseEventType(raw.EventType)
	if err != nil {
		return e, fmt.Errorf("event %s: %w", raw.EventID, err)
	}

	if raw.Period < 1 {
		return e, fmt.Errorf("%w: period (event %s)", ErrMissingField, raw.EventID)
	}
	if raw.ClockSeconds < 0 {
		return e, fmt.Errorf("event %s: %w: negative clock %.2f", raw.EventID, ErrNonMonotonicClock, raw.ClockSeconds)
	}
	if raw.HomeScore == nil || raw.AwayScore == nil {
		return e, fmt.Errorf("%w: score snapshot (event %s)", ErrMissingField, raw.EventID)
	}
	if *raw.HomeScore < 0 || *raw.AwayScore < 0 {
		return e, fmt.Errorf("event %s: %w: negative score", raw.EventID, ErrScoreRegression)
	}

	team, err := ParseTeamRef(raw.TeamID)
	if err != nil {
		return e, fmt.Errorf("event %s: %w", raw.EventID, err)
	}

	home, err := ParseTeamRef(raw.HomeTeamID)
	if err != nil || !home.Valid {
		return e, fmt.Errorf("event %s: home_team_id: %w", raw.EventID, firstErr(err, ErrMissingField))
	}
	away, err := ParseTeamRef(raw.AwayTeamID)
	if err != nil || !away.Valid {
		return e, fmt.Errorf("event %s: away_team_id: %w", raw.EventID, firstErr(err, ErrMissingField))
	}

	e = Event{
		ID:        raw.EventID,
		GameID:    raw.GameID,
		Type:      typ,
		Period:    raw.Period,
		Clock:     raw.ClockSeconds,
		Sequence:  raw.Sequence,
		Team:      team,
		HomeScore: *raw.HomeScore,
		AwayScore: *raw.AwayScore,
		HomeTeam:  home.ID,
		AwayTeam:  away.ID,
		FTMade:    raw.FTMade,
		FTLast:    raw.FTLast,
	}
	if raw.WallClock != nil {
		e.WallClock = *raw.WallClock
	}
	return e, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Opponent returns the other team of the game for a present ref, or absent
// when r itself is absent or belongs to neither team.
func (e Event) Opponent(r TeamRef) TeamRef {
	switch {
	case !r.Valid:
		return AbsentTeam()
	case r.ID == e.HomeTeam:
		return Team(e.AwayTeam)
	case r.ID == e.AwayTeam:
		return Team(e.HomeTeam)
	default:
		return AbsentTeam()
	}
}

// Before reports whether a precedes b under the total order
// (period, -clock, sequence).
func Before(a, b Event) bool {
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	if a.Clock != b.Clock {
		return a.Clock > b.Clock
	}
	return a.Sequence < b.Sequence
}

// ValidateSequence checks stream-level invariants over an ordered event
// slice: strict total order, non-decreasing scores, and stable home/away
// ids. Violations are returned, never repaired.
func ValidateSequence(events []Event) error {
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if !Before(prev, cur) {
			return fmt.Errorf("%w: event %s does not follow %s", ErrNonMonotonicClock, cur.ID, prev.ID)
		}
		if cur.HomeScore < prev.HomeScore || cur.AwayScore < prev.AwayScore {
			return fmt.Errorf("%w: event %s (%d-%d after %d-%d)", ErrScoreRegression,
				cur.ID, cur.HomeScore, cur.AwayScore, prev.HomeScore, prev.AwayScore)
		}
		if cur.HomeTeam != prev.HomeTeam || cur.AwayTeam != prev.AwayTeam {
			return fmt.Errorf("%w: event %s", ErrUnstableTeams, cur.ID)
		}
	}
	return nil
}
