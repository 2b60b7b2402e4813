package testgames_test

import (
	"testing"

	"github.com/okian/tempo/internal/domain/model"
	"github.com/okian/tempo/internal/testgames"
	. "github.com/smartystreets/goconvey/convey"
)

func flatten(g testgames.Game) string {
	var out string
	for _, raw := range g.Raw {
		out += raw.EventType + ":" + raw.TeamID + ";"
	}
	return out
}

func TestGeneratorDeterminism(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := testgames.New(42).Game("game-0001")
		b := testgames.New(42).Game("game-0001")

		Convey("They produce identical games", func() {
			So(len(a.Raw), ShouldEqual, len(b.Raw))
			So(a.ExpectedPossessions, ShouldEqual, b.ExpectedPossessions)
			for i := range a.Raw {
				So(a.Raw[i].EventID, ShouldEqual, b.Raw[i].EventID)
				So(a.Raw[i].EventType, ShouldEqual, b.Raw[i].EventType)
				So(a.Raw[i].TeamID, ShouldEqual, b.Raw[i].TeamID)
			}
		})
	})

	Convey("Given two generators with different seeds", t, func() {
		a := testgames.New(1).Game("game-0001")
		b := testgames.New(2).Game("game-0001")

		Convey("The games differ", func() {
			So(flatten(a), ShouldNotEqual, flatten(b))
		})
	})
}

func TestGeneratorRealism(t *testing.T) {
	Convey("Given a sample of generated games", t, func() {
		games := testgames.New(9).Games(10)

		Convey("Possession totals sit in the modern-era band", func() {
			total := 0
			for _, g := range games {
				total += g.ExpectedPossessions
			}
			mean := float64(total) / float64(len(games))
			So(mean, ShouldBeBetween, 190, 215)
		})
	})
}

func TestGeneratorStreamShape(t *testing.T) {
	Convey("Given one generated game", t, func() {
		g := testgames.New(13).Game("game-0001")

		Convey("Raw rows parse and satisfy the ordering invariant", func() {
			events := make([]model.Event, 0, len(g.Raw))
			parseFailures := 0
			for _, raw := range g.Raw {
				e, err := model.ParseEvent(raw)
				if err != nil {
					parseFailures++
					continue
				}
				events = append(events, e)
			}
			So(parseFailures, ShouldEqual, 0)
			So(model.ValidateSequence(events), ShouldBeNil)
		})

		Convey("Score snapshots end at the final score", func() {
			last := g.Raw[len(g.Raw)-1]
			So(*last.HomeScore+*last.AwayScore, ShouldBeGreaterThan, 100)
		})

		Convey("Some team ids exercise the decimal-string coercion", func() {
			decimal := 0
			for _, raw := range g.Raw {
				if len(raw.TeamID) > 2 && raw.TeamID[len(raw.TeamID)-2:] == ".0" {
					decimal++
				}
			}
			So(decimal, ShouldBeGreaterThan, 0)
		})

		Convey("Each period opens and closes explicitly", func() {
			starts, ends := 0, 0
			for _, raw := range g.Raw {
				switch raw.EventType {
				case "period_start":
					starts++
				case "period_end":
					ends++
				}
			}
			So(starts, ShouldEqual, 4)
			So(ends, ShouldEqual, 4)
		})
	})
}
