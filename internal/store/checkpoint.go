package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"overseer/internal/agent"
	"overseer/internal/task"
	"overseer/internal/vfs"
)

// CheckpointStore persists run state to sqlite after every control
// loop iteration, so an interrupted run can be inspected or resumed.
type CheckpointStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	objective       TEXT NOT NULL,
	status          TEXT NOT NULL,
	failure_reason  TEXT NOT NULL DEFAULT '',
	iteration_count INTEGER NOT NULL DEFAULT 0,
	max_iterations  INTEGER NOT NULL DEFAULT 0,
	final_result    TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS run_tasks (
	run_id         TEXT NOT NULL,
	id             INTEGER NOT NULL,
	description    TEXT NOT NULL,
	status         TEXT NOT NULL,
	assigned_tools TEXT NOT NULL DEFAULT '[]',
	result_summary TEXT NOT NULL DEFAULT '',
	produced_paths TEXT NOT NULL DEFAULT '[]',
	failure_reason TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS run_artifacts (
	run_id     TEXT NOT NULL,
	path       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_by INTEGER NOT NULL,
	version    INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	PRIMARY KEY (run_id, path)
);
`

func Open(path string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return &CheckpointStore{db: db}, nil
}

func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Save writes the full run snapshot in one transaction. Tasks and
// artifacts are replaced wholesale; the tables stay small enough that
// diffing is not worth the bookkeeping.
func (s *CheckpointStore) Save(state *agent.RunState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, objective, status, failure_reason, iteration_count, max_iterations, final_result, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			iteration_count = excluded.iteration_count,
			final_result = excluded.final_result,
			updated_at = excluded.updated_at`,
		state.ID, state.Objective, string(state.Status), state.FailureReason,
		state.IterationCount, state.MaxIterations, state.FinalResult, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM run_tasks WHERE run_id = ?`, state.ID); err != nil {
		return err
	}
	for _, rec := range state.Tasks.All() {
		toolsJSON, _ := json.Marshal(rec.AssignedTools)
		pathsJSON, _ := json.Marshal(rec.ProducedPaths)
		_, err := tx.Exec(`
			INSERT INTO run_tasks (run_id, id, description, status, assigned_tools, result_summary, produced_paths, failure_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			state.ID, rec.ID, rec.Description, string(rec.Status),
			string(toolsJSON), rec.ResultSummary, string(pathsJSON), rec.FailureReason)
		if err != nil {
			return fmt.Errorf("failed to save task %d: %w", rec.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM run_artifacts WHERE run_id = ?`, state.ID); err != nil {
		return err
	}
	for _, art := range state.Store.List() {
		_, err := tx.Exec(`
			INSERT INTO run_artifacts (run_id, path, content, created_by, version, seq)
			VALUES (?, ?, ?, ?, ?, ?)`,
			state.ID, art.Path, art.Content, art.CreatedBy, art.Version, art.Seq)
		if err != nil {
			return fmt.Errorf("failed to save artifact %s: %w", art.Path, err)
		}
	}

	return tx.Commit()
}

// Load rebuilds a run from its latest checkpoint. Version history
// inside the artifact store is not checkpointed; the restored store
// resumes versioning from each artifact's last saved version.
func (s *CheckpointStore) Load(runID string) (*agent.RunState, error) {
	state := &agent.RunState{ID: runID}
	var status string
	err := s.db.QueryRow(`
		SELECT objective, status, failure_reason, iteration_count, max_iterations, final_result
		FROM runs WHERE id = ?`, runID).
		Scan(&state.Objective, &status, &state.FailureReason,
			&state.IterationCount, &state.MaxIterations, &state.FinalResult)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	state.Status = agent.RunStatus(status)

	rows, err := s.db.Query(`
		SELECT id, description, status, assigned_tools, result_summary, produced_paths, failure_reason
		FROM run_tasks WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []task.Record
	for rows.Next() {
		var rec task.Record
		var st, toolsJSON, pathsJSON string
		if err := rows.Scan(&rec.ID, &rec.Description, &st, &toolsJSON, &rec.ResultSummary, &pathsJSON, &rec.FailureReason); err != nil {
			return nil, err
		}
		rec.Status = task.Status(st)
		_ = json.Unmarshal([]byte(toolsJSON), &rec.AssignedTools)
		_ = json.Unmarshal([]byte(pathsJSON), &rec.ProducedPaths)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	state.Tasks = task.Restore(records)

	artRows, err := s.db.Query(`
		SELECT path, content, created_by, version, seq
		FROM run_artifacts WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer artRows.Close()

	var artifacts []vfs.Artifact
	for artRows.Next() {
		var art vfs.Artifact
		if err := artRows.Scan(&art.Path, &art.Content, &art.CreatedBy, &art.Version, &art.Seq); err != nil {
			return nil, err
		}
		art.Size = len(art.Content)
		artifacts = append(artifacts, art)
	}
	if err := artRows.Err(); err != nil {
		return nil, err
	}
	state.Store = vfs.Restore(artifacts)

	return state, nil
}

// ListRuns returns run IDs with status, most recently updated first.
func (s *CheckpointStore) ListRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, objective, status, iteration_count, updated_at
		FROM runs ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Objective, &info.Status, &info.Iterations, &info.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// RunInfo is one row of the run index.
type RunInfo struct {
	ID         string    `json:"id"`
	Objective  string    `json:"objective"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	UpdatedAt  time.Time `json:"updated_at"`
}
