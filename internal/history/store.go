// Package history persists pricing runs and the state carried between them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/guarzo/autopricing/internal/batch"
	"github.com/guarzo/autopricing/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	records     INTEGER NOT NULL,
	increases   INTEGER NOT NULL,
	decreases   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	style           TEXT NOT NULL,
	country_code    TEXT NOT NULL,
	category        TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	change          TEXT NOT NULL,
	price           REAL,
	base_price      REAL,
	recom_price     REAL,
	sell_power_week REAL,
	path            TEXT NOT NULL,
	PRIMARY KEY (run_id, style, country_code)
);

CREATE TABLE IF NOT EXISTS change_counters (
	style        TEXT NOT NULL,
	country_code TEXT NOT NULL,
	days_ago     INTEGER NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (style, country_code)
);
`

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store wraps the history database
type Store struct {
	conn *sql.DB
	path string
}

// Open creates the database file and schema if needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// one writer at a time
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Run summarizes one stored run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Increases  int
	Decreases  int
}

// Entry is one stored recommendation.
type Entry struct {
	RunID      string
	FinishedAt time.Time
	Strategy   string
	Change     model.Change
	Price      float64
	RecomPrice float64
	Path       string
}

func nullable(x float64) sql.NullFloat64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: x, Valid: true}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return model.Undefined
	}
	return n.Float64
}

// SaveRun stores the run, its recommendations and the advanced change
// counters in one transaction.
func (s *Store) SaveRun(ctx context.Context, res *batch.Result) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, records, increases, decreases) VALUES (?, ?, ?, ?, ?, ?)`,
		res.RunID,
		formatTime(res.StartedAt),
		formatTime(res.FinishedAt),
		len(res.Recommendations),
		res.Counts[model.ChangeIncrease],
		res.Counts[model.ChangeDecrease],
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	recStmt, err := tx.PrepareContext(ctx, `INSERT INTO recommendations
		(run_id, style, country_code, category, strategy, change, price, base_price, recom_price, sell_power_week, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare recommendations: %w", err)
	}
	defer recStmt.Close()

	counterStmt, err := tx.PrepareContext(ctx, `INSERT INTO change_counters (style, country_code, days_ago, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (style, country_code) DO UPDATE SET days_ago = excluded.days_ago, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare counters: %w", err)
	}
	defer counterStmt.Close()

	updatedAt := formatTime(res.FinishedAt)
	for _, rec := range res.Recommendations {
		c := rec.Context
		d := rec.Decision
		if _, err := recStmt.ExecContext(ctx,
			res.RunID, c.Style, c.CountryCode, string(c.Category), d.Strategy, string(d.Change),
			nullable(c.Price), nullable(c.BasePrice), nullable(d.Price), nullable(c.SellPowerWeek),
			d.Path.String(),
		); err != nil {
			return fmt.Errorf("insert recommendation %s/%s: %w", c.Style, c.CountryCode, err)
		}
		if _, err := counterStmt.ExecContext(ctx, c.Style, c.CountryCode, rec.LastChangedDaysAgo, updatedAt); err != nil {
			return fmt.Errorf("update counter %s/%s: %w", c.Style, c.CountryCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", res.RunID, err)
	}
	return nil
}

// LastChangedDaysAgo returns the change counters stored by the last run
// that saw each (style, country).
func (s *Store) LastChangedDaysAgo(ctx context.Context) (map[model.Key]int, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT style, country_code, days_ago FROM change_counters`)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Key]int)
	for rows.Next() {
		var k model.Key
		var days int
		if err := rows.Scan(&k.Style, &k.CountryCode, &days); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		out[k] = days
	}
	return out, rows.Err()
}

// LastSellPowerWeek returns the weekly sell power recorded by the most
// recent run. Undefined values are left out.
func (s *Store) LastSellPowerWeek(ctx context.Context) (map[model.Key]float64, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT r.style, r.country_code, r.sell_power_week
		FROM recommendations r
		WHERE r.run_id = (SELECT id FROM runs ORDER BY finished_at DESC LIMIT 1)
		  AND r.sell_power_week IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query sell power: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Key]float64)
	for rows.Next() {
		var k model.Key
		var power float64
		if err := rows.Scan(&k.Style, &k.CountryCode, &power); err != nil {
			return nil, fmt.Errorf("scan sell power: %w", err)
		}
		out[k] = power
	}
	return out, rows.Err()
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, started_at, finished_at, records, increases, decreases FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Records, &r.Increases, &r.Decreases); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// History returns the stored recommendations of one (style, country), most
// recent first.
func (s *Store) History(ctx context.Context, key model.Key, limit int) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT r.run_id, runs.finished_at, r.strategy, r.change, r.price, r.recom_price, r.path
		FROM recommendations r JOIN runs ON runs.id = r.run_id
		WHERE r.style = ? AND r.country_code = ?
		ORDER BY runs.finished_at DESC LIMIT ?`, key.Style, key.CountryCode, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var finished, change string
		var price, recom sql.NullFloat64
		if err := rows.Scan(&e.RunID, &finished, &e.Strategy, &change, &price, &recom, &e.Path); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("history %s finished_at: %w", e.RunID, err)
		}
		e.Change = model.Change(change)
		e.Price = fromNullable(price)
		e.RecomPrice = fromNullable(recom)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
