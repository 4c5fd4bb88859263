package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTask opens the single processing task for a call record. The call
// record owns at most one task for its whole life; a second attempt returns
// ErrTaskExists.
func (s *Store) CreateTask(ctx context.Context, callMetadataID, projectID string) (*Task, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(callMetadataID) == "" {
		return nil, errors.New("call metadata id is required")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("project id is required")
	}

	now := time.Now().UTC()
	task := &Task{
		ID:             uuid.NewString(),
		CallMetadataID: callMetadataID,
		ProjectID:      projectID,
		Status:         StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO task (id, call_metadata_id, project_id, status, failed_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
		task.ID, task.CallMetadataID, task.ProjectID, task.Status,
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTaskExists
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// GetTask fetches a task by identifier.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, call_metadata_id, project_id, status, failed_reason, created_at, updated_at
		 FROM task WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks for a project, newest first. An empty status list
// means all statuses.
func (s *Store) ListTasks(ctx context.Context, projectID string, statuses ...Status) ([]Task, error) {
	ctx = ensureContext(ctx)

	query := `SELECT id, call_metadata_id, project_id, status, failed_reason, created_at, updated_at
		 FROM task WHERE project_id = ?`
	args := []any{projectID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// TaskStats counts tasks per status for one project.
func (s *Store) TaskStats(ctx context.Context, projectID string) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM task WHERE project_id = ? GROUP BY status`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// FailTask flips a processing task to failed with a reason. The flip is
// conditional on the current status: a task that already left processing is
// reported as ErrTaskConflict, a missing task as ErrNotFound. Terminal states
// are never overwritten.
func (s *Store) FailTask(ctx context.Context, taskID, reason string) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fail tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE task SET status = ?, failed_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		StatusFailed, nullableString(reason), formatTime(time.Now()),
		taskID, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	if err := requireTransition(ctx, tx, taskID, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fail: %w", err)
	}
	return nil
}

// CompleteTask writes the final scores into the staged metrics row and flips
// the task to ready, all in one transaction with the flip as the last write.
// A reader that observes ready therefore always sees the finished scores.
// The staged metrics row must already exist; otherwise ErrIncompleteInputs.
func (s *Store) CompleteTask(ctx context.Context, taskID string, scriptScore, qualityScore *int) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get task status: %w", err)
	}
	if status != StatusProcessing {
		return ErrTaskConflict
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE task_call_metrics SET script_score = ?, employee_quality_score = ?
		 WHERE task_id = ?`,
		nullableInt(scriptScore), nullableInt(qualityScore), taskID,
	)
	if err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrIncompleteInputs
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE task SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusReady, formatTime(time.Now()), taskID, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if err := requireTransition(ctx, tx, taskID, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete: %w", err)
	}
	return nil
}

// requireTransition maps a zero-row conditional status update to the right
// sentinel: the task either does not exist or already left processing.
func requireTransition(ctx context.Context, tx *sql.Tx, taskID string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM task WHERE id = ?`, taskID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrTaskConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var failedReason sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&task.ID, &task.CallMetadataID, &task.ProjectID, &task.Status,
		&failedReason, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	task.FailedReason = failedReason.String

	var err error
	if task.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &task, nil
}
