// Package store provides the sqlite-backed event source and possession sink.
//
// SQLite in WAL mode is the batch medium: upstream acquisition loads raw
// play-by-play rows into it, the pipeline reads them per game, and writes
// sealed possessions plus per-game reports back. One game's writes are one
// transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/tempo/internal/app"
	"github.com/okian/tempo/internal/domain/model"
)

// Store manages all sqlite persistence for the pipeline.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the sqlite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_events (
		game_id       TEXT NOT NULL,
		event_id      TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		period        INTEGER NOT NULL,
		clock_seconds REAL NOT NULL,
		seq           INTEGER NOT NULL,
		team_id       TEXT NOT NULL DEFAULT '',
		home_score    INTEGER,
		away_score    INTEGER,
		home_team_id  TEXT NOT NULL,
		away_team_id  TEXT NOT NULL,
		wall_clock    TEXT,
		ft_made       INTEGER NOT NULL DEFAULT 0,
		ft_last       INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (game_id, event_id)
	);

	CREATE INDEX IF NOT EXISTS raw_events_order
		ON raw_events(game_id, period, clock_seconds DESC, seq);

	CREATE TABLE IF NOT EXISTS possessions (
		id                  TEXT PRIMARY KEY,
		game_id             TEXT NOT NULL,
		seq                 INTEGER NOT NULL,
		offensive_team      INTEGER NOT NULL,
		defensive_team      INTEGER NOT NULL,
		start_event_id      TEXT NOT NULL,
		end_event_id        TEXT NOT NULL,
		period              INTEGER NOT NULL,
		clock_start         REAL NOT NULL,
		clock_end           REAL NOT NULL,
		duration_seconds    REAL NOT NULL,
		result              TEXT NOT NULL,
		points              INTEGER NOT NULL,
		score_diff_at_start INTEGER NOT NULL,
		clutch              INTEGER NOT NULL,
		garbage             INTEGER NOT NULL,
		fastbreak           INTEGER NOT NULL,
		tempo_efficiency    REAL,
		status              TEXT NOT NULL,
		diagnostic          TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS possessions_game ON possessions(game_id, seq);

	CREATE TABLE IF NOT EXISTS game_reports (
		game_id            TEXT PRIMARY KEY,
		phase              TEXT NOT NULL,
		verdict            TEXT NOT NULL,
		home_detected      INTEGER NOT NULL DEFAULT 0,
		home_estimated     REAL NOT NULL DEFAULT 0,
		home_deviation_pct REAL NOT NULL DEFAULT 0,
		away_detected      INTEGER NOT NULL DEFAULT 0,
		away_estimated     REAL NOT NULL DEFAULT 0,
		away_deviation_pct REAL NOT NULL DEFAULT 0,
		imbalance          INTEGER NOT NULL DEFAULT 0,
		rejected_events    INTEGER NOT NULL DEFAULT 0,
		diagnostic         TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertRawEvents loads raw rows, typically from an acquisition job or the
// synthetic generator. Rows are written in one transaction.
func (s *Store) InsertRawEvents(ctx context.Context, events []model.RawEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO raw_events
		(game_id, event_id, event_type, period, clock_seconds, seq, team_id,
		 home_score, away_score, home_team_id, away_team_id, wall_clock, ft_made, ft_last)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		var home, away any
		if e.HomeScore != nil {
			home = *e.HomeScore
		}
		if e.AwayScore != nil {
			away = *e.AwayScore
		}
		var wall any
		if e.WallClock != nil {
			wall = e.WallClock.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			e.GameID, e.EventID, e.EventType, e.Period, e.ClockSeconds, e.Sequence, e.TeamID,
			home, away, e.HomeTeamID, e.AwayTeamID, wall, boolInt(e.FTMade), boolInt(e.FTLast),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", e.EventID, err)
		}
	}
	return tx.Commit()
}

// GameIDs lists games that have raw events, in stable order.
func (s *Store) GameIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT game_id FROM raw_events ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EventsForGame reads one game's raw rows in (period, -clock, seq) order.
func (s *Store) EventsForGame(ctx context.Context, gameID string) ([]model.RawEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, period, clock_seconds, seq, team_id,
		       home_score, away_score, home_team_id, away_team_id, wall_clock, ft_made, ft_last
		FROM raw_events
		WHERE game_id = ?
		ORDER BY period, clock_seconds DESC, seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("read events for %s: %w", gameID, err)
	}
	defer rows.Close()

	var events []model.RawEvent
	for rows.Next() {
		e := model.RawEvent{GameID: gameID}
		var home, away sql.NullInt64
		var wall sql.NullString
		var ftMade, ftLast int
		if err := rows.Scan(&e.EventID, &e.EventType, &e.Period, &e.ClockSeconds, &e.Sequence, &e.TeamID,
			&home, &away, &e.HomeTeamID, &e.AwayTeamID, &wall, &ftMade, &ftLast); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if home.Valid {
			v := int(home.Int64)
			e.HomeScore = &v
		}
		if away.Valid {
			v := int(away.Int64)
			e.AwayScore = &v
		}
		if wall.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, wall.String); err == nil {
				e.WallClock = &ts
			}
		}
		e.FTMade = ftMade != 0
		e.FTLast = ftLast != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// SavePossessions replaces a game's possessions in one transaction. Re-runs
// always rewrite from scratch; partial in-place repair is not supported.
func (s *Store) SavePossessions(ctx context.Context, gameID string, possessions []model.Possession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM possessions WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("clear possessions for %s: %w", gameID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO possessions
		(id, game_id, seq, offensive_team, defensive_team, start_event_id, end_event_id,
		 period, clock_start, clock_end, duration_seconds, result, points,
		 score_diff_at_start, clutch, garbage, fastbreak, tempo_efficiency, status, diagnostic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range possessions {
		var tempo any
		if p.TempoKnown {
			tempo = p.TempoEfficiency
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.GameID, p.Seq, int64(p.OffensiveTeam), int64(p.DefensiveTeam),
			p.StartEventID, p.EndEventID, p.Period, p.ClockStart, p.ClockEnd,
			p.DurationSeconds, p.Result.String(), p.PointsScored, p.ScoreDiffAtStart,
			boolInt(p.Clutch), boolInt(p.Garbage), boolInt(p.Fastbreak),
			tempo, p.Status.String(), p.Diagnostic,
		); err != nil {
			return fmt.Errorf("insert possession %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// SaveReport upserts the per-game pipeline report.
func (s *Store) SaveReport(ctx context.Context, result app.GameResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO game_reports
		(game_id, phase, verdict, home_detected, home_estimated, home_deviation_pct,
		 away_detected, away_estimated, away_deviation_pct, imbalance,
		 rejected_events, diagnostic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.GameID, result.Phase.String(), result.Report.Verdict.String(),
		result.Report.Home.Detected, result.Report.Home.Estimated, result.Report.Home.DeviationPct,
		result.Report.Away.Detected, result.Report.Away.Estimated, result.Report.Away.DeviationPct,
		result.Report.Imbalance, result.TotalRejected(), result.Diagnostic,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save report for %s: %w", result.GameID, err)
	}
	return nil
}

// PossessionCount returns the stored possession count for a game.
func (s *Store) PossessionCount(ctx context.Context, gameID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM possessions WHERE game_id = ?`, gameID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count possessions for %s: %w", gameID, err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
