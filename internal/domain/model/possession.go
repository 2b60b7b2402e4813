package model

import (
	"fmt"
	"time"
)

// Result classifies how a possession ended.
type Result int

const (
	ResultUnknown Result = iota
	ResultMadeShot
	ResultMissedShot
	ResultTurnover
	ResultEndOfPeriod
)

func (r Result) String() string {
	switch r {
	case ResultMadeShot:
		return "made_shot"
	case ResultMissedShot:
		return "missed_shot"
	case ResultTurnover:
		return "turnover"
	case ResultEndOfPeriod:
		return "end_of_period"
	default:
		return "unknown"
	}
}

// ValidationStatus grades a sealed possession so consumers can filter by
// confidence instead of trusting every row.
type ValidationStatus int

const (
	StatusValid ValidationStatus = iota
	StatusWarning
	StatusRejected
)

func (s ValidationStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusWarning:
		return "warning"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Possession is one team's uninterrupted span of ball control. Instances are
// produced sealed by Builder.Seal and never mutated afterwards; derivation
// layers return enriched copies.
type Possession struct {
	ID            string // game id + zero-padded sequence
	GameID        string
	Seq           int
	OffensiveTeam TeamID
	DefensiveTeam TeamID

	StartEventID string
	EndEventID   string
	Period       int
	ClockStart   float64
	ClockEnd     float64
	EndPeriod    int // differs from Period only on detection bugs; flagged downstream

	Result       Result
	PointsScored int

	// Derived by the derivation layer.
	DurationSeconds  float64
	ScoreDiffAtStart int // offense minus defense
	Clutch           bool
	Garbage          bool
	Fastbreak        bool
	TempoEfficiency  float64
	TempoKnown       bool

	// OpenedBy records the transfer that started this possession; the
	// derivation layer uses it for fastbreak classification.
	OpenedBy EventType

	Status     ValidationStatus
	Diagnostic string

	// Wall-clock span, zero when the feed has no timestamps.
	WallStart time.Time
	WallEnd   time.Time

	EventCount int
}

// maxPossessionPoints bounds a single possession's score delta: 4 covers a
// made three plus a bonus free throw.
const maxPossessionPoints = 4

// Builder accumulates one open possession and seals it exactly once.
type Builder struct {
	sealed bool
	p      Possession
	start  Event
}

// NewBuilder opens a possession for offense, anchored at the start event.
// The start event's score snapshot is the baseline for points conservation.
func NewBuilder(seq int, offense, defense TeamID, start Event, openedBy EventType) *Builder {
	b := &Builder{
		start: start,
		p: Possession{
			ID:            fmt.Sprintf("%s-%04d", start.GameID, seq),
			GameID:        start.GameID,
			Seq:           seq,
			OffensiveTeam: offense,
			DefensiveTeam: defense,
			StartEventID:  start.ID,
			Period:        start.Period,
			ClockStart:    start.Clock,
			OpenedBy:      openedBy,
			Status:        StatusValid,
			WallStart:     start.WallClock,
			EventCount:    1,
		},
	}
	return b
}

// Append records one more constituent event.
func (b *Builder) Append(e Event) error {
	if b.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, b.p.ID)
	}
	b.p.EventCount++
	return nil
}

// Warn downgrades the possession to warning status, keeping the first
// diagnostic and appending later ones.
func (b *Builder) Warn(diag string) {
	if b.sealed {
		return
	}
	b.p.Status = StatusWarning
	if b.p.Diagnostic == "" {
		b.p.Diagnostic = diag
		return
	}
	b.p.Diagnostic += "; " + diag
}

// Offense returns the team the builder was opened for.
func (b *Builder) Offense() TeamID { return b.p.OffensiveTeam }

// StartClock returns the clock value at the start event.
func (b *Builder) StartClock() float64 { return b.p.ClockStart }

// StartPeriod returns the period of the start event.
func (b *Builder) StartPeriod() int { return b.p.Period }

// Seal closes the possession at the end event with the given result. Points
// are taken from the score snapshots, never accumulated independently, so
// points conservation holds by construction; a delta outside [0, 4] means the
// builder was driven wrongly and is a construction error.
func (b *Builder) Seal(end Event, result Result) (Possession, error) {
	if b.sealed {
		return Possession{}, fmt.Errorf("%w: %s", ErrSealed, b.p.ID)
	}
	b.sealed = true

	p := b.p
	p.EndEventID = end.ID
	p.ClockEnd = end.Clock
	p.EndPeriod = end.Period
	p.Result = result
	p.WallEnd = end.WallClock

	var points int
	if p.OffensiveTeam == end.HomeTeam {
		points = end.HomeScore - b.start.HomeScore
	} else {
		points = end.AwayScore - b.start.AwayScore
	}
	if points < 0 || points > maxPossessionPoints {
		return Possession{}, fmt.Errorf("%w: possession %s scored %d", ErrPointsConservation, p.ID, points)
	}
	p.PointsScored = points

	return p, nil
}
