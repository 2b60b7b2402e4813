package derive_test

import (
	"testing"
	"time"

	"github.com/okian/tempo/internal/domain/derive"
	"github.com/okian/tempo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	teamA = model.TeamID(1610612737)
	teamB = model.TeamID(1610612738)
)

func possession(period int, clockStart, clockEnd float64) model.Possession {
	return model.Possession{
		ID: "g1-0001", GameID: "g1",
		OffensiveTeam: teamA, DefensiveTeam: teamB,
		Period: period, EndPeriod: period,
		ClockStart: clockStart, ClockEnd: clockEnd,
		Status: model.StatusValid,
	}
}

func startEvent(period int, clock float64, home, away int) model.Event {
	return model.Event{
		ID: "e1", GameID: "g1", Period: period, Clock: clock,
		HomeScore: home, AwayScore: away,
		HomeTeam: teamA, AwayTeam: teamB,
	}
}

func TestDuration(t *testing.T) {
	Convey("Given a possession within one period", t, func() {
		d := derive.New()

		Convey("Duration is the clock delta", func() {
			p := d.Enrich(possession(1, 700, 682), startEvent(1, 700, 0, 0))
			So(p.DurationSeconds, ShouldEqual, 18)
			So(p.Status, ShouldEqual, model.StatusValid)
		})

		Convey("A duration past the shot-clock bound is flagged", func() {
			p := d.Enrich(possession(1, 700, 650), startEvent(1, 700, 0, 0))
			So(p.DurationSeconds, ShouldEqual, 50)
			So(p.Status, ShouldEqual, model.StatusWarning)
			So(p.Diagnostic, ShouldContainSubstring, "shot-clock")
		})

		Convey("A negative clock delta is clamped and flagged", func() {
			p := d.Enrich(possession(1, 650, 700), startEvent(1, 650, 0, 0))
			So(p.DurationSeconds, ShouldEqual, 0)
			So(p.Status, ShouldEqual, model.StatusWarning)
		})
	})

	Convey("Given a possession spanning a period boundary", t, func() {
		d := derive.New()
		p := possession(1, 5, 715)
		p.EndPeriod = 2

		Convey("Duration counts both sides of the boundary", func() {
			got := d.Enrich(p, startEvent(1, 5, 0, 0))
			So(got.DurationSeconds, ShouldEqual, 10)
			So(got.Status, ShouldEqual, model.StatusWarning)
			So(got.Diagnostic, ShouldContainSubstring, "spans periods")
		})

		Convey("Overtime periods use the overtime length", func() {
			ot := possession(4, 5, 295)
			ot.EndPeriod = 5
			got := d.Enrich(ot, startEvent(4, 5, 0, 0))
			So(got.DurationSeconds, ShouldEqual, 10)
		})
	})
}

func TestTempoEfficiency(t *testing.T) {
	Convey("Given wall-clock timestamps on a possession", t, func() {
		d := derive.New()
		base := time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC)

		Convey("Efficiency is game clock over wall clock", func() {
			p := possession(1, 700, 680)
			p.WallStart = base
			p.WallEnd = base.Add(40 * time.Second)
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.TempoKnown, ShouldBeTrue)
			So(got.TempoEfficiency, ShouldAlmostEqual, 0.5, 0.0001)
		})

		Convey("Missing timestamps leave tempo undetermined, not zero", func() {
			p := possession(1, 700, 680)
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.TempoKnown, ShouldBeFalse)
		})

		Convey("A ratio above one is bad data and stays undetermined", func() {
			p := possession(1, 700, 680)
			p.WallStart = base
			p.WallEnd = base.Add(10 * time.Second)
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.TempoKnown, ShouldBeFalse)
			So(got.Status, ShouldEqual, model.StatusWarning)
		})

		Convey("Tempo derivation can be disabled", func() {
			p := possession(1, 700, 680)
			p.WallStart = base
			p.WallEnd = base.Add(40 * time.Second)
			got := derive.New(derive.WithWallClockTempo(false)).Enrich(p, startEvent(1, 700, 0, 0))
			So(got.TempoKnown, ShouldBeFalse)
		})
	})
}

func TestSituationalFlags(t *testing.T) {
	Convey("Given possessions in different game situations", t, func() {
		d := derive.New()

		Convey("Score differential is from the offense's perspective", func() {
			p := possession(1, 700, 690)
			p.OffensiveTeam, p.DefensiveTeam = teamB, teamA
			got := d.Enrich(p, startEvent(1, 700, 10, 4))
			So(got.ScoreDiffAtStart, ShouldEqual, -6)
		})

		Convey("Late, close games are clutch", func() {
			p := possession(4, 120, 105)
			got := d.Enrich(p, startEvent(4, 120, 98, 95))
			So(got.Clutch, ShouldBeTrue)
			So(got.Garbage, ShouldBeFalse)
		})

		Convey("A close second quarter is not clutch", func() {
			p := possession(2, 120, 105)
			got := d.Enrich(p, startEvent(2, 120, 48, 45))
			So(got.Clutch, ShouldBeFalse)
		})

		Convey("A wide margin past the window is not clutch", func() {
			p := possession(4, 120, 105)
			got := d.Enrich(p, startEvent(4, 120, 110, 90))
			So(got.Clutch, ShouldBeFalse)
			So(got.Garbage, ShouldBeTrue)
		})

		Convey("Overtime counts as late game", func() {
			p := possession(5, 60, 50)
			got := d.Enrich(p, startEvent(5, 60, 100, 99))
			So(got.Clutch, ShouldBeTrue)
		})

		Convey("Short possessions off a steal are fastbreaks", func() {
			p := possession(1, 700, 697)
			p.OpenedBy = model.EventSteal
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.Fastbreak, ShouldBeTrue)
		})

		Convey("Short possessions off an inbound are not fastbreaks", func() {
			p := possession(1, 700, 697)
			p.OpenedBy = model.EventMadeShot
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.Fastbreak, ShouldBeFalse)
		})

		Convey("Slow possessions off a rebound are not fastbreaks", func() {
			p := possession(1, 700, 680)
			p.OpenedBy = model.EventRebound
			got := d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.Fastbreak, ShouldBeFalse)
		})
	})

	Convey("Given overridden thresholds", t, func() {
		d := derive.New(
			derive.WithClutchThresholds(60, 3),
			derive.WithGarbageMargin(30),
			derive.WithFastbreakBound(8),
		)

		Convey("The overrides drive classification", func() {
			p := possession(4, 90, 85)
			got := d.Enrich(p, startEvent(4, 90, 100, 96))
			So(got.Clutch, ShouldBeFalse) // margin 4 > 3, clock 90 > 60

			p = possession(4, 50, 45)
			got = d.Enrich(p, startEvent(4, 50, 100, 98))
			So(got.Clutch, ShouldBeTrue)

			p = possession(4, 500, 480)
			got = d.Enrich(p, startEvent(4, 500, 120, 95))
			So(got.Garbage, ShouldBeFalse) // margin 25 < 30

			p = possession(1, 700, 693)
			p.OpenedBy = model.EventSteal
			got = d.Enrich(p, startEvent(1, 700, 0, 0))
			So(got.Fastbreak, ShouldBeTrue) // 7s within widened bound
		})
	})
}
