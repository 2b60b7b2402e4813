// Package validate checks detected possession counts against Oliver's
// formula and basketball-realism bounds. The formula estimate is computed
// from box-score aggregates only, independent of the state machine, so the
// two can disagree — that disagreement is the signal.
package validate

import (
	"fmt"
	"math"
)

// Default thresholds.
const (
	defaultTolerancePct   = 5.0
	defaultMaxImbalance   = 2
	ftaPossessionWeight   = 0.44
	realismBandLow        = 190.0
	realismBandHigh       = 215.0
	realismImbalanceShare = 0.95
)

// Verdict is a structured validation outcome; callers choose their own
// strictness, so a boolean would not do.
type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictWarn
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictWarn:
		return "warn"
	case VerdictFail:
		return "fail"
	default:
		return "unknown"
	}
}

// BoxScore carries one team's aggregate totals for a game.
type BoxScore struct {
	FieldGoalAttempts int
	FreeThrowAttempts int
	OffensiveRebounds int
	Turnovers         int
}

// Estimate applies Oliver's possession formula: FGA + 0.44*FTA - ORB + TOV.
func (b BoxScore) Estimate() float64 {
	return float64(b.FieldGoalAttempts) +
		ftaPossessionWeight*float64(b.FreeThrowAttempts) -
		float64(b.OffensiveRebounds) +
		float64(b.Turnovers)
}

// GameBox is both teams' box aggregates.
type GameBox struct {
	Home BoxScore
	Away BoxScore
}

// Counts is the detected per-team possession count for a game.
type Counts struct {
	Home int
	Away int
}

// TeamCheck is one team's formula comparison.
type TeamCheck struct {
	Detected     int
	Estimated    float64
	DeviationPct float64
}

// Report is the per-game validation result.
type Report struct {
	Verdict   Verdict
	Home      TeamCheck
	Away      TeamCheck
	Imbalance int
	Notes     []string
}

// GameSummary is the per-game input to the batch-level regression guard.
type GameSummary struct {
	GameID           string
	TotalPossessions int
	Imbalance        int
}

// BatchVerdict is the batch-level realism result. It guards the algorithm,
// not any single game: a systematic undercount shifts the mean out of the
// basketball-realistic band even when every game validates individually.
type BatchVerdict struct {
	Verdict         Verdict
	Games           int
	MeanPossessions float64
	BalancedShare   float64
	Notes           []string
}

// Validator applies formula and balance checks.
type Validator struct {
	tolerancePct float64
	maxImbalance int
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		tolerancePct: defaultTolerancePct,
		maxImbalance: defaultMaxImbalance,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Game compares detected counts against the Oliver estimate and checks
// per-team balance. Deviation within tolerance passes, within twice the
// tolerance warns, beyond that fails; imbalance above the bound warns and
// above twice the bound fails.
func (v *Validator) Game(box GameBox, counts Counts) Report {
	r := Report{
		Home: teamCheck(box.Home, counts.Home),
		Away: teamCheck(box.Away, counts.Away),
	}

	r.Imbalance = counts.Home - counts.Away
	if r.Imbalance < 0 {
		r.Imbalance = -r.Imbalance
	}

	r.Verdict = v.deviationVerdict(r.Home.DeviationPct)
	if away := v.deviationVerdict(r.Away.DeviationPct); away > r.Verdict {
		r.Verdict = away
	}
	if r.Verdict != VerdictPass {
		r.Notes = append(r.Notes, fmt.Sprintf("formula deviation home %.1f%% away %.1f%% (tolerance %.1f%%)",
			r.Home.DeviationPct, r.Away.DeviationPct, v.tolerancePct))
	}

	switch {
	case r.Imbalance > 2*v.maxImbalance:
		r.Verdict = VerdictFail
		r.Notes = append(r.Notes, fmt.Sprintf("per-team imbalance %d far exceeds bound %d; transfers are being mis-attributed", r.Imbalance, v.maxImbalance))
	case r.Imbalance > v.maxImbalance:
		if r.Verdict < VerdictWarn {
			r.Verdict = VerdictWarn
		}
		r.Notes = append(r.Notes, fmt.Sprintf("per-team imbalance %d exceeds bound %d", r.Imbalance, v.maxImbalance))
	}

	return r
}

func teamCheck(box BoxScore, detected int) TeamCheck {
	c := TeamCheck{
		Detected:  detected,
		Estimated: box.Estimate(),
	}
	if c.Estimated > 0 {
		c.DeviationPct = math.Abs(float64(detected)-c.Estimated) / c.Estimated * 100
	} else if detected > 0 {
		c.DeviationPct = 100
	}
	return c
}

func (v *Validator) deviationVerdict(deviationPct float64) Verdict {
	switch {
	case deviationPct <= v.tolerancePct:
		return VerdictPass
	case deviationPct <= 2*v.tolerancePct:
		return VerdictWarn
	default:
		return VerdictFail
	}
}

// Batch runs the realism regression guard over a sample of sealed games:
// mean total possessions per game must sit in the modern-era band and the
// vast majority of games must be within the per-team imbalance bound.
func (v *Validator) Batch(games []GameSummary) BatchVerdict {
	b := BatchVerdict{Verdict: VerdictPass, Games: len(games)}
	if len(games) == 0 {
		b.Notes = append(b.Notes, "no sealed games in sample")
		return b
	}

	var total, balanced int
	for _, g := range games {
		total += g.TotalPossessions
		if g.Imbalance <= v.maxImbalance {
			balanced++
		}
	}
	b.MeanPossessions = float64(total) / float64(len(games))
	b.BalancedShare = float64(balanced) / float64(len(games))

	if b.MeanPossessions < realismBandLow || b.MeanPossessions > realismBandHigh {
		b.Verdict = VerdictFail
		b.Notes = append(b.Notes, fmt.Sprintf("mean possessions per game %.1f outside realistic band [%.0f, %.0f]",
			b.MeanPossessions, realismBandLow, realismBandHigh))
	}
	if b.BalancedShare < realismImbalanceShare {
		if b.Verdict < VerdictFail {
			b.Verdict = VerdictFail
		}
		b.Notes = append(b.Notes, fmt.Sprintf("only %.0f%% of games within imbalance bound %d",
			b.BalancedShare*100, v.maxImbalance))
	}
	return b
}
