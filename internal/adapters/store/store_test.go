package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/tempo/internal/adapters/store"
	"github.com/okian/tempo/internal/app"
	"github.com/okian/tempo/internal/domain/model"
	"github.com/okian/tempo/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "tempo.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func rawEvent(gameID, eventID string, seq int, clock float64) model.RawEvent {
	wall := time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC).Add(time.Duration(seq) * 10 * time.Second)
	return model.RawEvent{
		GameID: gameID, EventID: eventID, EventType: "made_shot",
		Period: 1, ClockSeconds: clock, Sequence: seq,
		TeamID:    "1610612737",
		HomeScore: intPtr(2 * seq), AwayScore: intPtr(0),
		HomeTeamID: "1610612737", AwayTeamID: "1610612738",
		WallClock: &wall,
	}
}

func TestRawEventRoundtrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given raw events persisted for two games", t, func() {
		s := openStore(t)
		events := []model.RawEvent{
			rawEvent("g1", "e2", 2, 680),
			rawEvent("g1", "e1", 1, 700),
			rawEvent("g2", "e1", 1, 710),
		}
		So(s.InsertRawEvents(ctx, events), ShouldBeNil)

		Convey("Game ids come back distinct and ordered", func() {
			ids, err := s.GameIDs(ctx)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"g1", "g2"})
		})

		Convey("Events come back in play order regardless of insert order", func() {
			got, err := s.EventsForGame(ctx, "g1")
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].EventID, ShouldEqual, "e1")
			So(got[1].EventID, ShouldEqual, "e2")
		})

		Convey("Optional fields survive the roundtrip", func() {
			got, err := s.EventsForGame(ctx, "g1")
			So(err, ShouldBeNil)
			So(got[0].HomeScore, ShouldNotBeNil)
			So(*got[0].HomeScore, ShouldEqual, 2)
			So(got[0].WallClock, ShouldNotBeNil)
			So(got[0].WallClock.Equal(time.Date(2026, 1, 15, 19, 30, 10, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Reinserting the same rows is idempotent", func() {
			So(s.InsertRawEvents(ctx, events), ShouldBeNil)
			got, err := s.EventsForGame(ctx, "g1")
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
		})

		Convey("Absent optional fields come back nil", func() {
			bare := model.RawEvent{
				GameID: "g3", EventID: "e1", EventType: "period_start",
				Period: 1, ClockSeconds: 720, Sequence: 1,
				HomeTeamID: "1610612737", AwayTeamID: "1610612738",
			}
			So(s.InsertRawEvents(ctx, []model.RawEvent{bare}), ShouldBeNil)
			got, err := s.EventsForGame(ctx, "g3")
			So(err, ShouldBeNil)
			So(got[0].HomeScore, ShouldBeNil)
			So(got[0].WallClock, ShouldBeNil)
		})
	})
}

func TestSavePossessions(t *testing.T) {
	ctx := context.Background()

	possessions := func(n int) []model.Possession {
		out := make([]model.Possession, n)
		for i := range out {
			out[i] = model.Possession{
				ID: "g1-000" + string(rune('0'+i)), GameID: "g1", Seq: i,
				OffensiveTeam: 1610612737, DefensiveTeam: 1610612738,
				StartEventID: "s", EndEventID: "e",
				Period: 1, ClockStart: 700, ClockEnd: 680,
				DurationSeconds: 20, Result: model.ResultMadeShot,
				PointsScored: 2, Status: model.StatusValid,
			}
		}
		return out
	}

	Convey("Given sealed possessions for a game", t, func() {
		s := openStore(t)
		So(s.SavePossessions(ctx, "g1", possessions(3)), ShouldBeNil)

		Convey("The count reflects the write", func() {
			n, err := s.PossessionCount(ctx, "g1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("A re-run replaces instead of accumulating", func() {
			So(s.SavePossessions(ctx, "g1", possessions(2)), ShouldBeNil)
			n, err := s.PossessionCount(ctx, "g1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})
	})
}

func TestSaveReport(t *testing.T) {
	ctx := context.Background()

	Convey("Given a finished game result", t, func() {
		s := openStore(t)
		result := app.GameResult{
			GameID: "g1",
			Phase:  app.PhaseSealed,
			Report: validate.Report{
				Verdict:   validate.VerdictPass,
				Home:      validate.TeamCheck{Detected: 100, Estimated: 101.4, DeviationPct: 1.4},
				Away:      validate.TeamCheck{Detected: 99, Estimated: 100.2, DeviationPct: 1.2},
				Imbalance: 1,
			},
		}

		Convey("Saving and re-saving the report succeeds", func() {
			So(s.SaveReport(ctx, result), ShouldBeNil)
			result.Phase = app.PhaseFailed
			So(s.SaveReport(ctx, result), ShouldBeNil)
		})
	})
}
