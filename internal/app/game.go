package app

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/tempo/internal/domain/detect"
	"github.com/okian/tempo/internal/domain/derive"
	"github.com/okian/tempo/internal/domain/model"
	"github.com/okian/tempo/internal/domain/validate"
	"github.com/okian/tempo/pkg/logger"
	"github.com/okian/tempo/pkg/metrics"
)

// Phase tracks a game through the pipeline.
type Phase int

const (
	PhasePending Phase = iota
	PhaseDetecting
	PhaseDeriving
	PhaseValidating
	PhaseSealed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseDetecting:
		return "detecting"
	case PhaseDeriving:
		return "deriving"
	case PhaseValidating:
		return "validating"
	case PhaseSealed:
		return "sealed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GameResult is one game's complete pipeline outcome. A failed game carries
// no possessions: partial output is discarded, never repaired in place.
type GameResult struct {
	GameID      string
	Phase       Phase
	Possessions []model.Possession
	Report      validate.Report
	EventCount  int
	// ParseRejected counts raw rows rejected at the parse boundary;
	// Rejected holds events the state machine could not classify.
	ParseRejected int
	Rejected      []detect.RejectedEvent
	Warnings      []string
	Diagnostic    string
	Elapsed       time.Duration
}

// Sealed reports whether the game completed the pipeline.
func (r GameResult) Sealed() bool { return r.Phase == PhaseSealed }

// TotalRejected is the number of input rows that produced no possession data.
func (r GameResult) TotalRejected() int { return r.ParseRejected + len(r.Rejected) }

// Orchestrator drives one game at a time through detection, derivation, and
// validation. It holds no per-game state and is safe for concurrent use by
// independent workers.
type Orchestrator struct {
	detector  *detect.Detector
	deriver   *derive.Deriver
	validator *validate.Validator

	rejectedRatio float64
	gameTimeout   time.Duration

	log logger.Logger
}

// NewOrchestrator wires the three pipeline stages.
func NewOrchestrator(detector *detect.Detector, deriver *derive.Deriver, validator *validate.Validator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		detector:      detector,
		deriver:       deriver,
		validator:     validator,
		rejectedRatio: 0.05,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessGame runs one game end to end. The game is the transactional unit:
// any unrecoverable error, invariant violation, or panic discards the game's
// partial output and returns a Failed result, leaving other games unaffected.
func (o *Orchestrator) ProcessGame(ctx context.Context, gameID string, raws []model.RawEvent) (result GameResult) {
	start := time.Now()
	result = GameResult{GameID: gameID, Phase: PhasePending, EventCount: len(raws)}

	defer func() {
		result.Elapsed = time.Since(start)
		metrics.ObserveGameDuration(result.Elapsed.Seconds())
		if result.Sealed() {
			metrics.RecordGameSealed()
		} else {
			metrics.RecordGameFailed()
		}
	}()

	// A panic-class bug inside the pipeline fails this game only.
	defer func() {
		if rec := recover(); rec != nil {
			result = o.failed(ctx, result, fmt.Sprintf("internal panic: %v", rec))
		}
	}()

	if o.gameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.gameTimeout)
		defer cancel()
	}

	// Parse boundary: coerce every raw row exactly once.
	events := make([]model.Event, 0, len(raws))
	for _, raw := range raws {
		e, err := model.ParseEvent(raw)
		if err != nil {
			result.ParseRejected++
			result.Warnings = append(result.Warnings, fmt.Sprintf("parse: %v", err))
			continue
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return o.failed(ctx, result, "no parseable events")
	}
	if err := model.ValidateSequence(events); err != nil {
		return o.failed(ctx, result, fmt.Sprintf("sequence invariant: %v", err))
	}

	result.Phase = PhaseDetecting
	detectStart := time.Now()
	outcome, err := o.detector.Detect(ctx, events)
	metrics.ObserveDetectionDuration(time.Since(detectStart).Seconds())
	if err != nil {
		return o.failed(ctx, result, fmt.Sprintf("detection: %v", err))
	}
	result.Rejected = outcome.Rejected
	result.Warnings = append(result.Warnings, outcome.Warnings...)

	if ratio := float64(result.TotalRejected()) / float64(len(raws)); ratio > o.rejectedRatio {
		return o.failed(ctx, result, fmt.Sprintf("rejected-event ratio %.1f%% exceeds %.1f%%",
			ratio*100, o.rejectedRatio*100))
	}
	if err := ctx.Err(); err != nil {
		return o.failed(ctx, result, fmt.Sprintf("game budget exceeded: %v", err))
	}

	result.Phase = PhaseDeriving
	startEvents := make(map[string]model.Event, len(events))
	for _, e := range events {
		startEvents[e.ID] = e
	}
	possessions := make([]model.Possession, 0, len(outcome.Possessions))
	flagged := 0
	for _, p := range outcome.Possessions {
		anchor, ok := startEvents[p.StartEventID]
		if !ok {
			return o.failed(ctx, result, fmt.Sprintf("possession %s references unknown start event %s", p.ID, p.StartEventID))
		}
		p = o.deriver.Enrich(p, anchor)
		if p.Status != model.StatusValid {
			flagged++
		}
		possessions = append(possessions, p)
	}
	metrics.RecordPossessions(len(possessions), flagged)
	metrics.RecordRejectedEvents(result.TotalRejected())

	result.Phase = PhaseValidating
	box, counts := aggregate(events, possessions)
	result.Report = o.validator.Game(box, counts)
	metrics.RecordVerdict(result.Report.Verdict.String())

	result.Possessions = possessions
	result.Phase = PhaseSealed
	o.log.Info(ctx, "game sealed",
		logger.String("gameID", gameID),
		logger.Int("possessions", len(possessions)),
		logger.Int("rejected", result.TotalRejected()),
		logger.String("verdict", result.Report.Verdict.String()),
	)
	return result
}

func (o *Orchestrator) failed(ctx context.Context, result GameResult, diagnostic string) GameResult {
	o.log.Warn(ctx, "game failed",
		logger.String("gameID", result.GameID),
		logger.String("diagnostic", diagnostic),
	)
	return GameResult{
		GameID:        result.GameID,
		Phase:         PhaseFailed,
		EventCount:    result.EventCount,
		ParseRejected: result.ParseRejected,
		Rejected:      result.Rejected,
		Warnings:      result.Warnings,
		Diagnostic:    diagnostic,
	}
}

// aggregate computes box-score totals from the raw event scan, independent
// of the state machine's output, so the formula validator cannot inherit a
// detection bug. An offensive rebound is a rebound by the team whose missed
// attempt immediately precedes it.
func aggregate(events []model.Event, possessions []model.Possession) (validate.GameBox, validate.Counts) {
	var box validate.GameBox
	var home, away model.TeamID
	if len(events) > 0 {
		home, away = events[0].HomeTeam, events[0].AwayTeam
	}

	team := func(id model.TeamID) *validate.BoxScore {
		switch id {
		case home:
			return &box.Home
		case away:
			return &box.Away
		default:
			return nil
		}
	}

	lastMiss := model.AbsentTeam()
	for _, e := range events {
		if !e.Team.Valid {
			continue
		}
		t := team(e.Team.ID)
		if t == nil {
			continue
		}
		switch e.Type {
		case model.EventMadeShot:
			t.FieldGoalAttempts++
			lastMiss = model.AbsentTeam()
		case model.EventMissedShot:
			t.FieldGoalAttempts++
			lastMiss = e.Team
		case model.EventFreeThrow:
			t.FreeThrowAttempts++
			if e.FTLast && !e.FTMade {
				lastMiss = e.Team
			}
		case model.EventRebound:
			if lastMiss.Valid && lastMiss.ID == e.Team.ID {
				t.OffensiveRebounds++
			}
			lastMiss = model.AbsentTeam()
		case model.EventTurnover:
			t.Turnovers++
			lastMiss = model.AbsentTeam()
		}
	}

	var counts validate.Counts
	for _, p := range possessions {
		switch p.OffensiveTeam {
		case home:
			counts.Home++
		case away:
			counts.Away++
		}
	}
	return box, counts
}
