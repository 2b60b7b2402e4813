// Package detect implements the possession-boundary state machine.
//
// Possession transfer is basketball semantics, not configuration: every event
// type gets an explicit case in the transition switch. The machine is a pure
// function of the ordered event sequence; re-running it on identical input
// yields identical output.
package detect

import (
	"context"
	"fmt"

	"github.com/okian/tempo/internal/domain/model"
	"github.com/okian/tempo/pkg/logger"
)

// ctxCheckInterval bounds how often Detect polls ctx between events.
const ctxCheckInterval = 256

// RejectedEvent is an event the machine could not classify, kept for
// diagnostics instead of being silently dropped.
type RejectedEvent struct {
	Event  model.Event
	Reason string
}

// Outcome is the complete result of detection over one game.
type Outcome struct {
	Possessions []model.Possession
	Rejected    []RejectedEvent
	Warnings    []string
}

// Detector converts one game's ordered events into sealed possessions.
type Detector struct {
	log logger.Logger
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs the state machine over one game's events. Events must already
// be in (period, -clock, sequence) order; out-of-order input returns
// ErrOutOfOrder rather than being reordered. Individual unclassifiable
// events land in Outcome.Rejected and processing continues.
func (d *Detector) Detect(ctx context.Context, events []model.Event) (Outcome, error) {
	r := &run{d: d}

	for i := range events {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}
		e := events[i]

		if r.prev != nil {
			if !model.Before(*r.prev, e) {
				return Outcome{}, fmt.Errorf("%w: event %s does not follow %s", ErrOutOfOrder, e.ID, r.prev.ID)
			}
			if e.HomeScore < r.prev.HomeScore || e.AwayScore < r.prev.AwayScore {
				r.reject(e, "score regression")
				continue
			}
			// A period change without a period_end event would otherwise
			// produce a period-spanning possession, which is a detection
			// bug, not a valid state.
			if e.Period > r.prev.Period && r.open != nil {
				if err := r.seal(*r.prev, model.ResultEndOfPeriod); err != nil {
					return Outcome{}, err
				}
				r.resetPeriod()
				r.warnf("period boundary without period_end before event %s", e.ID)
			}
		}

		if err := r.step(e); err != nil {
			return Outcome{}, err
		}
		r.prev = &events[i]
	}

	// Input ended without a game_end event; close out rather than leaking
	// an open possession.
	if r.open != nil && r.prev != nil {
		if err := r.seal(*r.prev, model.ResultEndOfPeriod); err != nil {
			return Outcome{}, err
		}
		r.warnf("input ended with an open possession; sealed at event %s", r.prev.ID)
	}

	d.log.Debug(ctx, "detection finished",
		logger.Int("events", len(events)),
		logger.Int("possessions", len(r.out.Possessions)),
		logger.Int("rejected", len(r.out.Rejected)),
	)
	return r.out, nil
}

// run holds the per-game detection state. It lives for exactly one Detect
// call and is never shared.
type run struct {
	d   *Detector
	out Outcome

	offense model.TeamRef
	open    *model.Builder
	seq     int

	// anchor is the period-start event waiting for first attribution, so the
	// opening possession's score baseline predates any scoring.
	anchor *model.Event

	// prev is the last event accepted by Detect; with no anchor it is the
	// only usable score baseline for an opening possession.
	prev *model.Event

	// justScored suppresses the data-source quirk of a rebound event
	// recorded immediately after a made shot.
	justScored bool

	// techTrip marks that technical/flagrant free throws are pending; the
	// shooting does not transfer possession.
	techTrip bool
}

// step applies one event to the state machine. The switch is exhaustive over
// the closed event vocabulary.
func (r *run) step(e model.Event) error {
	scored := false

	switch e.Type {
	case model.EventPeriodStart:
		r.anchor = &e
		if e.Team.Valid {
			r.startFor(e.Team.ID, e, model.EventPeriodStart)
		}

	case model.EventMadeShot:
		if !e.Team.Valid {
			r.reject(e, "made shot without team attribution")
			break
		}
		if err := r.ensureOpenFor(e); err != nil {
			return err
		}
		if r.open == nil {
			break // ensureOpenFor rejected the event
		}
		if err := r.append(e); err != nil {
			return err
		}
		if err := r.seal(e, model.ResultMadeShot); err != nil {
			return err
		}
		r.transferTo(e.Opponent(e.Team), e, model.EventMadeShot)
		scored = true

	case model.EventMissedShot:
		if e.Team.Valid {
			if err := r.ensureOpenFor(e); err != nil {
				return err
			}
		} else if r.open == nil {
			r.reject(e, "missed shot without team attribution or open possession")
			break
		}
		if err := r.append(e); err != nil {
			return err
		}

	case model.EventRebound:
		if r.justScored {
			// A made shot already transferred possession; a trailing
			// rebound row is a known feed quirk.
			r.reject(e, "rebound after made shot")
			break
		}
		if !e.Team.Valid {
			// Cannot classify offensive vs defensive; seal as unknown and
			// restart rather than guess.
			if r.open != nil {
				r.open.Warn("unattributed rebound ends possession")
				if err := r.seal(e, model.ResultUnknown); err != nil {
					return err
				}
				r.offense = model.AbsentTeam()
			}
			r.reject(e, "rebound without team attribution")
			break
		}
		if r.open == nil {
			r.startFor(e.Team.ID, e, model.EventRebound)
			break
		}
		if r.offense.Is(e.Team.ID) {
			// An offensive rebound continues the possession.
			if err := r.append(e); err != nil {
				return err
			}
			break
		}
		if err := r.append(e); err != nil {
			return err
		}
		if err := r.seal(e, model.ResultMissedShot); err != nil {
			return err
		}
		r.transferTo(e.Team, e, model.EventRebound)

	case model.EventTurnover:
		if r.open == nil {
			if !e.Team.Valid {
				r.reject(e, "turnover without team attribution or open possession")
				break
			}
			if err := r.ensureOpenFor(e); err != nil {
				return err
			}
			if r.open == nil {
				break
			}
		}
		if err := r.append(e); err != nil {
			return err
		}
		committing := e.Team
		if !committing.Valid {
			committing = r.offense
		}
		if err := r.seal(e, model.ResultTurnover); err != nil {
			return err
		}
		r.transferTo(e.Opponent(committing), e, model.EventTurnover)

	case model.EventSteal:
		if !e.Team.Valid {
			if r.open != nil {
				r.open.Warn("unattributed steal ends possession")
				if err := r.seal(e, model.ResultUnknown); err != nil {
					return err
				}
				r.offense = model.AbsentTeam()
			}
			r.reject(e, "steal without team attribution")
			break
		}
		if r.offense.Is(e.Team.ID) {
			// The paired turnover event already transferred possession.
			if err := r.append(e); err != nil {
				return err
			}
			break
		}
		if r.open == nil {
			r.startFor(e.Team.ID, e, model.EventSteal)
			break
		}
		if err := r.append(e); err != nil {
			return err
		}
		if err := r.seal(e, model.ResultTurnover); err != nil {
			return err
		}
		r.transferTo(e.Team, e, model.EventSteal)

	case model.EventFreeThrow:
		if r.open == nil {
			if !e.Team.Valid {
				r.reject(e, "free throw without team attribution or open possession")
				break
			}
			if err := r.ensureOpenFor(e); err != nil {
				return err
			}
			if r.open == nil {
				break
			}
		}
		if err := r.append(e); err != nil {
			return err
		}
		if r.techTrip {
			r.open.Warn("compound possession: technical free throws with retained ball")
			if e.FTLast {
				r.techTrip = false
			}
			break
		}
		if e.FTLast && e.FTMade {
			// Last made free throw of a normal trip ends the possession.
			if err := r.seal(e, model.ResultMadeShot); err != nil {
				return err
			}
			r.transferTo(e.Opponent(r.offense), e, model.EventFreeThrow)
			scored = true
		}
		// A missed last free throw leaves the possession open; the rebound
		// decides it.

	case model.EventPersonalFoul:
		if r.open != nil {
			if err := r.append(e); err != nil {
				return err
			}
			break
		}
		if !e.Team.Valid {
			r.reject(e, "unattributed foul with no open possession")
		}

	case model.EventTechnicalFoul, model.EventFlagrantFoul:
		r.techTrip = true
		if r.open != nil {
			r.open.Warn(e.Type.String() + " during possession; ball retained")
			if err := r.append(e); err != nil {
				return err
			}
		}

	case model.EventPeriodEnd, model.EventGameEnd:
		if r.open != nil {
			if err := r.seal(e, model.ResultEndOfPeriod); err != nil {
				return err
			}
		}
		r.resetPeriod()

	case model.EventSubstitution, model.EventTimeout:
		if r.open != nil {
			if err := r.append(e); err != nil {
				return err
			}
		}

	case model.EventUnknown:
		r.reject(e, "unclassifiable event type")

	default:
		r.reject(e, "unclassifiable event type")
	}

	r.justScored = scored
	return nil
}

// ensureOpenFor makes sure a possession is open before an action event by
// the attributed team. When the machine has no offense yet (start of period,
// jump ball not attributed), the period-start anchor becomes the start event
// so the score baseline predates the action; with no anchor the previous
// event's snapshot is the baseline instead.
func (r *run) ensureOpenFor(e model.Event) error {
	if r.open != nil {
		if r.offense.Valid && e.Team.Valid && !r.offense.Is(e.Team.ID) {
			// The ball changed hands without a transfer event in the feed.
			r.open.Warn("ball changed hands without a transfer event")
			if err := r.seal(e, model.ResultUnknown); err != nil {
				return err
			}
			r.transferTo(e.Team, e, model.EventUnknown)
			if r.open != nil {
				r.open.Warn("possession inferred mid-stream; points may be undercounted")
			}
		}
		return nil
	}
	start := e
	openedBy := model.EventUnknown
	var unattributedStart, blindStart bool
	switch {
	case r.anchor != nil && r.anchor.Period == e.Period:
		start = *r.anchor
		openedBy = model.EventPeriodStart
		unattributedStart = !r.anchor.Team.Valid
	case r.prev != nil && r.prev.Period == e.Period:
		// No anchor, but the previous event's snapshot still predates this
		// action, so the opener's own points stay countable.
		start = *r.prev
	default:
		blindStart = true
	}
	r.startAt(e.Team.ID, start, openedBy)
	if r.open == nil {
		return nil
	}
	if unattributedStart {
		r.open.Warn("unattributed jump ball; offense inferred from first action")
	}
	if blindStart {
		r.open.Warn("no score baseline before opening action; points may be undercounted")
	}
	return nil
}

// startFor opens a possession for team anchored at e.
func (r *run) startFor(team model.TeamID, e model.Event, openedBy model.EventType) {
	r.startAt(team, e, openedBy)
}

// startAt opens a possession for team with the given start event.
func (r *run) startAt(team model.TeamID, start model.Event, openedBy model.EventType) {
	opp := start.Opponent(model.Team(team))
	if !opp.Valid {
		r.reject(start, fmt.Sprintf("team %d is neither home nor away", team))
		r.offense = model.AbsentTeam()
		r.open = nil
		return
	}
	r.offense = model.Team(team)
	r.open = model.NewBuilder(r.seq, team, opp.ID, start, openedBy)
	r.seq++
	r.anchor = nil
}

// transferTo hands the ball to the given team after a seal, opening the next
// possession at the sealing event. An absent ref leaves the machine without
// an offense until the next attributed event.
func (r *run) transferTo(to model.TeamRef, e model.Event, openedBy model.EventType) {
	if !to.Valid {
		r.offense = model.AbsentTeam()
		r.open = nil
		r.warnf("possession transfer with unknown recipient after event %s", e.ID)
		return
	}
	r.startAt(to.ID, e, openedBy)
}

// seal closes the open possession at end. Zero-duration possessions are
// legitimate (shot-clock violations, goaltending) but flagged for review.
func (r *run) seal(end model.Event, result model.Result) error {
	if r.open == nil {
		return nil
	}
	if r.open.StartClock() == end.Clock && r.open.StartPeriod() == end.Period {
		r.open.Warn("zero-duration possession")
	}
	p, err := r.open.Seal(end, result)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConstruction, err)
	}
	r.out.Possessions = append(r.out.Possessions, p)
	r.open = nil
	return nil
}

// append adds e to the open possession, if any. An event with absent
// attribution inside an open possession is appended without changing the
// offense.
func (r *run) append(e model.Event) error {
	if r.open == nil {
		return nil
	}
	if err := r.open.Append(e); err != nil {
		return fmt.Errorf("%w: %v", ErrConstruction, err)
	}
	return nil
}

func (r *run) reject(e model.Event, reason string) {
	r.out.Rejected = append(r.out.Rejected, RejectedEvent{Event: e, Reason: reason})
}

func (r *run) warnf(format string, args ...any) {
	r.out.Warnings = append(r.out.Warnings, fmt.Sprintf(format, args...))
}

func (r *run) resetPeriod() {
	r.offense = model.AbsentTeam()
	r.open = nil
	r.anchor = nil
	r.techTrip = false
	r.justScored = false
}
