// Package derive computes temporal and situational statistics for sealed
// possessions. Arithmetic on optional inputs short-circuits to an explicit
// undetermined result, never to zero.
package derive

import (
	"fmt"

	"github.com/okian/tempo/internal/domain/model"
)

// Default thresholds. All are adjustable through options.
const (
	defaultRegulationPeriodSeconds = 720.0 // 12-minute quarters
	defaultOvertimePeriodSeconds   = 300.0
	defaultShotClockSeconds        = 35.0 // shot clock plus sealing slack
	defaultClutchWindowSeconds     = 300.0
	defaultClutchMaxMargin         = 5
	defaultGarbageMinMargin        = 20
	defaultFastbreakMaxSeconds     = 4.0
	regulationPeriods              = 4
)

// Deriver enriches sealed possessions with duration, tempo efficiency, and
// situational flags.
type Deriver struct {
	regulationSeconds float64
	overtimeSeconds   float64
	shotClockSeconds  float64
	clutchWindow      float64
	clutchMargin      int
	garbageMargin     int
	fastbreakSeconds  float64
	wallClockTempo    bool
}

// New creates a Deriver.
func New(opts ...Option) *Deriver {
	d := &Deriver{
		regulationSeconds: defaultRegulationPeriodSeconds,
		overtimeSeconds:   defaultOvertimePeriodSeconds,
		shotClockSeconds:  defaultShotClockSeconds,
		clutchWindow:      defaultClutchWindowSeconds,
		clutchMargin:      defaultClutchMaxMargin,
		garbageMargin:     defaultGarbageMinMargin,
		fastbreakSeconds:  defaultFastbreakMaxSeconds,
		wallClockTempo:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// periodLength returns the game-clock length of a period in seconds.
func (d *Deriver) periodLength(period int) float64 {
	if period > regulationPeriods {
		return d.overtimeSeconds
	}
	return d.regulationSeconds
}

// Enrich returns a copy of p with derived fields populated. start is the
// possession's start event, needed for the score/time context at the moment
// the possession opened.
func (d *Deriver) Enrich(p model.Possession, start model.Event) model.Possession {
	p = d.duration(p)
	p = d.tempo(p)
	p = d.flags(p, start)
	return p
}

// duration computes the game-clock duration. A possession whose span crosses
// a period boundary is a detection defect; it is computed boundary-safely
// (remaining time in the start period plus elapsed time in the end period,
// never a naive cross-period clock subtraction) and downgraded to warning.
func (d *Deriver) duration(p model.Possession) model.Possession {
	switch {
	case p.EndPeriod == p.Period:
		p.DurationSeconds = p.ClockStart - p.ClockEnd
	case p.EndPeriod > p.Period:
		p.DurationSeconds = p.ClockStart + (d.periodLength(p.EndPeriod) - p.ClockEnd)
		p = warn(p, fmt.Sprintf("possession spans periods %d-%d", p.Period, p.EndPeriod))
	default:
		p.DurationSeconds = 0
		p = warn(p, "end period precedes start period")
	}

	if p.DurationSeconds < 0 {
		p.DurationSeconds = 0
		p = warn(p, "negative duration clamped to zero")
	}
	if p.DurationSeconds > d.shotClockSeconds && p.EndPeriod == p.Period {
		p = warn(p, fmt.Sprintf("duration %.1fs exceeds shot-clock bound", p.DurationSeconds))
	}
	return p
}

// tempo computes game-clock over wall-clock efficiency, bounded to [0, 1].
// Missing timestamps or out-of-band ratios leave the value undetermined;
// a ratio above 1 means bad data, not a fast game.
func (d *Deriver) tempo(p model.Possession) model.Possession {
	p.TempoKnown = false
	p.TempoEfficiency = 0
	if !d.wallClockTempo {
		return p
	}
	if p.WallStart.IsZero() || p.WallEnd.IsZero() {
		return p
	}
	wall := p.WallEnd.Sub(p.WallStart).Seconds()
	if wall <= 0 {
		return p
	}
	ratio := p.DurationSeconds / wall
	if ratio < 0 || ratio > 1 {
		return warn(p, fmt.Sprintf("tempo efficiency %.2f outside [0,1]", ratio))
	}
	p.TempoEfficiency = ratio
	p.TempoKnown = true
	return p
}

// flags computes the situational context at possession start.
func (d *Deriver) flags(p model.Possession, start model.Event) model.Possession {
	var offScore, defScore int
	if p.OffensiveTeam == start.HomeTeam {
		offScore, defScore = start.HomeScore, start.AwayScore
	} else {
		offScore, defScore = start.AwayScore, start.HomeScore
	}
	p.ScoreDiffAtStart = offScore - defScore

	margin := p.ScoreDiffAtStart
	if margin < 0 {
		margin = -margin
	}

	lateGame := start.Period >= regulationPeriods
	p.Clutch = lateGame && start.Clock <= d.clutchWindow && margin <= d.clutchMargin
	p.Garbage = lateGame && margin >= d.garbageMargin

	liveBallChange := p.OpenedBy == model.EventSteal || p.OpenedBy == model.EventRebound
	p.Fastbreak = liveBallChange && p.DurationSeconds <= d.fastbreakSeconds

	return p
}

func warn(p model.Possession, diag string) model.Possession {
	p.Status = model.StatusWarning
	if p.Diagnostic == "" {
		p.Diagnostic = diag
	} else {
		p.Diagnostic += "; " + diag
	}
	return p
}
