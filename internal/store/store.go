// Package store persists finished runs in SQLite: the run header, the tick
// series, the final review population, and the run log.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/platform"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	label         TEXT NOT NULL,
	experiment    TEXT,
	config_json   TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	ticks         INTEGER NOT NULL,
	status        TEXT NOT NULL,
	error         TEXT,
	population    INTEGER NOT NULL,
	rng_state     BLOB,
	rng_draws     INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	summary_json  TEXT
);

CREATE TABLE IF NOT EXISTS tick_metrics (
	run_id         TEXT NOT NULL,
	tick           INTEGER NOT NULL,
	population     INTEGER NOT NULL,
	event          TEXT NOT NULL,
	sample_size    INTEGER NOT NULL,
	quality        REAL NOT NULL,
	fitness        REAL NOT NULL,
	rating         REAL NOT NULL,
	votes_positive INTEGER NOT NULL,
	votes_negative INTEGER NOT NULL,
	PRIMARY KEY (run_id, tick),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reviews (
	run_id            TEXT NOT NULL,
	review_id         INTEGER NOT NULL,
	interaction_time  REAL NOT NULL,
	feature_use       REAL NOT NULL,
	validated         INTEGER NOT NULL,
	author_position   REAL NOT NULL,
	votes_positive    INTEGER NOT NULL,
	votes_negative    INTEGER NOT NULL,
	votes_net         INTEGER NOT NULL,
	quality           REAL,
	rating            INTEGER NOT NULL,
	support_balance   REAL,
	vote_balance      REAL,
	interaction_force REAL,
	fitness           REAL,
	PRIMARY KEY (run_id, review_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	label       TEXT,
	event       TEXT NOT NULL,
	tick        INTEGER NOT NULL DEFAULT 0,
	detail_json TEXT,
	reason      TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_log_run ON run_log(run_id);
`

// #endregion schema

// timeFormat is RFC 3339 with fixed-width nanoseconds so started_at sorts
// lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("run not found")

// #region store-struct
// Store manages persisted runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the run log.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-run
// SaveRun writes the run header, its tick series and its review population
// in one transaction.
func (s *Store) SaveRun(rec RunRecord, ticks []experiment.TickRecord, reviews []review.Snapshot) error {
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, label, experiment, config_json, seed, ticks, status, error, population,
		                   rng_state, rng_draws, started_at, duration_ms, summary_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Label, nullIfEmpty(rec.Experiment), string(cfgJSON), rec.Config.Seed, rec.Ticks,
		rec.Status, nullIfEmpty(rec.Error), rec.Population, rec.RNG.PCG, int64(rec.RNG.Draws),
		rec.StartedAt.UTC().Format(timeFormat), rec.Duration.Milliseconds(), nullIfEmpty(rec.SummaryJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	tickStmt, err := tx.Prepare(
		`INSERT INTO tick_metrics (run_id, tick, population, event, sample_size, quality, fitness, rating, votes_positive, votes_negative)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tick insert: %w", err)
	}
	defer tickStmt.Close()
	for _, t := range ticks {
		if _, err := tickStmt.Exec(rec.RunID, t.Tick, t.Population, string(t.Event), t.SampleSize,
			t.Quality, t.Fitness, t.Rating, t.VotesPositive, t.VotesNegative); err != nil {
			return fmt.Errorf("insert tick %d: %w", t.Tick, err)
		}
	}

	reviewStmt, err := tx.Prepare(
		`INSERT INTO reviews (run_id, review_id, interaction_time, feature_use, validated, author_position,
		                      votes_positive, votes_negative, votes_net, quality, rating,
		                      support_balance, vote_balance, interaction_force, fitness)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare review insert: %w", err)
	}
	defer reviewStmt.Close()
	for _, r := range reviews {
		if _, err := reviewStmt.Exec(rec.RunID, r.ID, r.InteractionTime, r.FeatureUse, r.Validated, r.AuthorPosition,
			r.VotesPositive, r.VotesNegative, r.VotesNet, r.Quality, r.Rating,
			r.SupportBalance, r.VoteBalance, r.InteractionForce, r.Fitness); err != nil {
			return fmt.Errorf("insert review %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save-run

// #region get-run
const runColumns = `run_id, label, experiment, config_json, ticks, status, error, population,
	rng_state, rng_draws, started_at, duration_ms, summary_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec                          RunRecord
		experimentName, errText, sum sql.NullString
		cfgJSON, startedStr          string
		rngState                     []byte
		draws, durationMS            int64
	)
	if err := row.Scan(&rec.RunID, &rec.Label, &experimentName, &cfgJSON, &rec.Ticks, &rec.Status, &errText,
		&rec.Population, &rngState, &draws, &startedStr, &durationMS, &sum); err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal config of %s: %w", rec.RunID, err)
	}
	rec.Experiment, rec.Error, rec.SummaryJSON = experimentName.String, errText.String, sum.String
	rec.RNG.PCG, rec.RNG.Draws = rngState, uint64(draws)
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// GetRun retrieves one run header by id.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recently started runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-runs

// #region tick-series
// TickSeries returns the stored tick records of a run in tick order.
func (s *Store) TickSeries(runID string) ([]experiment.TickRecord, error) {
	rows, err := s.db.Query(
		`SELECT tick, population, event, sample_size, quality, fitness, rating, votes_positive, votes_negative
		 FROM tick_metrics WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, fmt.Errorf("tick series %s: %w", runID, err)
	}
	defer rows.Close()

	var out []experiment.TickRecord
	for rows.Next() {
		var t experiment.TickRecord
		var event string
		if err := rows.Scan(&t.Tick, &t.Population, &event, &t.SampleSize, &t.Quality, &t.Fitness, &t.Rating,
			&t.VotesPositive, &t.VotesNegative); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Event = platform.Event(event)
		out = append(out, t)
	}
	return out, rows.Err()
}

// #endregion tick-series

// #region reviews
// Reviews returns the final review population of a run in creation order.
func (s *Store) Reviews(runID string) ([]review.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT review_id, interaction_time, feature_use, validated, author_position,
		        votes_positive, votes_negative, votes_net, quality, rating,
		        support_balance, vote_balance, interaction_force, fitness
		 FROM reviews WHERE run_id = ? ORDER BY review_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("reviews %s: %w", runID, err)
	}
	defer rows.Close()

	var out []review.Snapshot
	for rows.Next() {
		var r review.Snapshot
		var q, zeta, rho, g, pi sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.InteractionTime, &r.FeatureUse, &r.Validated, &r.AuthorPosition,
			&r.VotesPositive, &r.VotesNegative, &r.VotesNet, &q, &r.Rating,
			&zeta, &rho, &g, &pi); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Quality, r.SupportBalance, r.VoteBalance = floatPtr(q), floatPtr(zeta), floatPtr(rho)
		r.InteractionForce, r.Fitness = floatPtr(g), floatPtr(pi)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion reviews

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// #endregion helpers
