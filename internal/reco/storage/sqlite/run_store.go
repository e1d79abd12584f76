package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hzz.report/internal/reco/registry"
	"github.com/banshee-data/hzz.report/internal/reco/replay"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted replay run.
type Run struct {
	RunID         string          `json:"run_id"`
	CreatedAt     int64           `json:"created_at"`
	Source        string          `json:"source"`
	ParamsJSON    json.RawMessage `json:"params_json,omitempty"`
	Events        int             `json:"events"`
	Processed     int             `json:"processed"`
	Failed        int             `json:"failed"`
	FSRMatches    int             `json:"fsr_matches"`
	MatchesMean   float64         `json:"matches_mean"`
	MatchesStdDev float64         `json:"matches_stddev"`
}

// RunStore persists replay runs, their cutflow and their failed events.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// RecordRun stores a replay summary under a new run ID and returns the
// run. params is the tuning configuration used, stored verbatim.
func (s *RunStore) RecordRun(source string, params json.RawMessage, sum *replay.Summary) (*Run, error) {
	run := &Run{
		RunID:         uuid.New().String(),
		CreatedAt:     time.Now().UnixNano(),
		Source:        source,
		ParamsJSON:    params,
		Events:        sum.Events,
		Processed:     sum.Processed,
		Failed:        len(sum.Failures),
		FSRMatches:    len(sum.FSRDeltaR),
		MatchesMean:   sum.MatchesMean,
		MatchesStdDev: sum.MatchesStdDev,
	}

	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := insertRun(tx, run); err != nil {
			return err
		}
		for i, row := range sum.Cutflow {
			if _, err := tx.Exec(`
				INSERT INTO reco_run_cutflow (run_id, position, stage, role, n_in, n_out)
				VALUES (?, ?, ?, ?, ?, ?)`,
				run.RunID, i, row.Stage, string(row.Role), row.In, row.Out,
			); err != nil {
				return fmt.Errorf("insert cutflow row %d: %w", i, err)
			}
		}
		for _, f := range sum.Failures {
			if _, err := tx.Exec(`
				INSERT INTO reco_run_failures (run_id, event_id, stage, error)
				VALUES (?, ?, ?, ?)`,
				run.RunID, f.EventID, f.Stage, f.Error,
			); err != nil {
				return fmt.Errorf("insert failure %s: %w", f.EventID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

func insertRun(tx *sql.Tx, run *Run) error {
	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}
	_, err := tx.Exec(`
		INSERT INTO reco_runs (
			run_id, created_at, source, params_json, events, processed,
			failed, fsr_matches, matches_mean, matches_stddev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt, run.Source, params, run.Events, run.Processed,
		run.Failed, run.FSRMatches, run.MatchesMean, run.MatchesStdDev,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `run_id, created_at, source, params_json, events, processed,
	failed, fsr_matches, matches_mean, matches_stddev`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var params sql.NullString
	if err := row.Scan(
		&r.RunID, &r.CreatedAt, &r.Source, &params, &r.Events, &r.Processed,
		&r.Failed, &r.FSRMatches, &r.MatchesMean, &r.MatchesStdDev,
	); err != nil {
		return nil, err
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	return &r, nil
}

// GetRun returns a single run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM reco_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs ordered by creation time, newest first.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM reco_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListCutflow returns the cutflow of a run in stage order.
func (s *RunStore) ListCutflow(runID string) ([]replay.CutflowRow, error) {
	rows, err := s.db.Query(`
		SELECT stage, role, n_in, n_out
		FROM reco_run_cutflow
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cutflow: %w", err)
	}
	defer rows.Close()

	var out []replay.CutflowRow
	for rows.Next() {
		var row replay.CutflowRow
		var role string
		if err := rows.Scan(&row.Stage, &role, &row.In, &row.Out); err != nil {
			return nil, fmt.Errorf("scan cutflow: %w", err)
		}
		row.Role = registry.Role(role)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListFailures returns the failed events of a run in insertion order.
func (s *RunStore) ListFailures(runID string) ([]replay.Failure, error) {
	rows, err := s.db.Query(`
		SELECT event_id, stage, error
		FROM reco_run_failures
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []replay.Failure
	for rows.Next() {
		var f replay.Failure
		if err := rows.Scan(&f.EventID, &f.Stage, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteRun removes a run together with its cutflow and failures.
func (s *RunStore) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM reco_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil
	})
}
