package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertDictionaryMatch records whether a dictionary's phrases were found in a
// task's transcript. The write is idempotent per (task, dictionary): a repeat
// for the same pair replaces the previous flag. Matches can only be staged
// while the task is still processing.
func (s *Store) UpsertDictionaryMatch(ctx context.Context, taskID string, dictionaryID int64, found bool) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireProcessing(ctx, tx, taskID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_to_dict (task_id, dictionary_id, found) VALUES (?, ?, ?)
		 ON CONFLICT(task_id, dictionary_id) DO UPDATE SET found = excluded.found`,
		taskID, dictionaryID, boolToInt(found),
	); err != nil {
		return fmt.Errorf("upsert dictionary match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match: %w", err)
	}
	return nil
}

// ListMatches returns all dictionary match results staged for a task.
func (s *Store) ListMatches(ctx context.Context, taskID string) ([]DictionaryMatch, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, dictionary_id, found FROM task_to_dict
		 WHERE task_id = ? ORDER BY dictionary_id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []DictionaryMatch
	for rows.Next() {
		var match DictionaryMatch
		var found int
		if err := rows.Scan(&match.TaskID, &match.DictionaryID, &found); err != nil {
			return nil, err
		}
		match.Found = found != 0
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func requireProcessing(ctx context.Context, tx *sql.Tx, taskID string) error {
	var status Status
	err := tx.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get task status: %w", err)
	}
	if status != StatusProcessing {
		return ErrTaskConflict
	}
	return nil
}
