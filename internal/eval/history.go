package eval

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// historyTimeFormat sorts lexically in time order.
const historyTimeFormat = "2006-01-02T15:04:05.000000000Z"

// History keeps past run outcomes in a SQLite database.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at dir/history.db.
func OpenHistory(dir string) (*History, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS scenario_runs (
		run_id      TEXT NOT NULL,
		scenario_id TEXT NOT NULL,
		category    TEXT NOT NULL,
		passed      INTEGER NOT NULL,
		elapsed_ms  INTEGER NOT NULL,
		error       TEXT,
		started_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, scenario_id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}

	return &History{db: db}, nil
}

// Record stores every result of a run.
func (h *History) Record(rep Report) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rep.Results {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO scenario_runs (run_id, scenario_id, category, passed, elapsed_ms, error, started_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, r.ScenarioID, string(r.Category), r.Passed, r.ElapsedMS, r.Error, rep.StartedAt.UTC().Format(historyTimeFormat),
		)
		if err != nil {
			return fmt.Errorf("recording %s: %w", r.ScenarioID, err)
		}
	}
	return tx.Commit()
}

// LastOutcomes returns the most recent recorded outcome per scenario.
func (h *History) LastOutcomes() (map[string]bool, error) {
	rows, err := h.db.Query(`
		SELECT r.scenario_id, r.passed FROM scenario_runs r
		WHERE r.started_at = (SELECT MAX(started_at) FROM scenario_runs WHERE scenario_id = r.scenario_id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		var passed bool
		if err := rows.Scan(&id, &passed); err != nil {
			return nil, err
		}
		out[id] = passed
	}
	return out, rows.Err()
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}
