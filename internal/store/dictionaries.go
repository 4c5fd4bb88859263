package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateDictionary inserts a named phrase set for one participant.
func (s *Store) CreateDictionary(ctx context.Context, name string, participant Participant) (*Dictionary, error) {
	ctx = ensureContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("dictionary name is required")
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO dictionary (name, participant) VALUES (?, ?)`,
		name, participant,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dictionary: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Dictionary{ID: id, Name: name, Participant: participant}, nil
}

// GetDictionary fetches a dictionary by identifier.
func (s *Store) GetDictionary(ctx context.Context, id int64) (*Dictionary, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, participant FROM dictionary WHERE id = ?`, id)

	var dict Dictionary
	if err := row.Scan(&dict.ID, &dict.Name, &dict.Participant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dictionary: %w", err)
	}
	return &dict, nil
}

// ListDictionaries returns all dictionaries ordered by identifier.
func (s *Store) ListDictionaries(ctx context.Context) ([]Dictionary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, participant FROM dictionary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	defer rows.Close()

	var dicts []Dictionary
	for rows.Next() {
		var dict Dictionary
		if err := rows.Scan(&dict.ID, &dict.Name, &dict.Participant); err != nil {
			return nil, err
		}
		dicts = append(dicts, dict)
	}
	return dicts, rows.Err()
}

// DeleteDictionary removes a dictionary. Phrases, settings bindings, and
// task match rows referencing it cascade away.
func (s *Store) DeleteDictionary(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM dictionary WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dictionary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPhrases appends phrases to a dictionary, lower-casing the text so that
// matching stays case-insensitive regardless of the matcher in use.
func (s *Store) AddPhrases(ctx context.Context, dictionaryID int64, texts []string) error {
	ctx = ensureContext(ctx)
	if len(texts) == 0 {
		return nil
	}
	if _, err := s.GetDictionary(ctx, dictionaryID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin phrases tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, text := range texts {
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO phrase (dictionary_id, text) VALUES (?, ?)`,
			dictionaryID, text,
		); err != nil {
			return fmt.Errorf("insert phrase: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit phrases: %w", err)
	}
	return nil
}

// ListPhrases returns the phrases of one dictionary ordered by insertion.
func (s *Store) ListPhrases(ctx context.Context, dictionaryID int64) ([]Phrase, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dictionary_id, text FROM phrase WHERE dictionary_id = ? ORDER BY id`,
		dictionaryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	defer rows.Close()

	var phrases []Phrase
	for rows.Next() {
		var phrase Phrase
		if err := rows.Scan(&phrase.ID, &phrase.DictionaryID, &phrase.Text); err != nil {
			return nil, err
		}
		phrases = append(phrases, phrase)
	}
	return phrases, rows.Err()
}

// ListAllPhrases returns every phrase grouped by dictionary, for the matcher.
func (s *Store) ListAllPhrases(ctx context.Context) (map[int64][]Phrase, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dictionary_id, text FROM phrase ORDER BY dictionary_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list all phrases: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]Phrase)
	for rows.Next() {
		var phrase Phrase
		if err := rows.Scan(&phrase.ID, &phrase.DictionaryID, &phrase.Text); err != nil {
			return nil, err
		}
		grouped[phrase.DictionaryID] = append(grouped[phrase.DictionaryID], phrase)
	}
	return grouped, rows.Err()
}

// DeletePhrases removes individual phrases by identifier.
func (s *Store) DeletePhrases(ctx context.Context, ids []int64) error {
	ctx = ensureContext(ctx)
	if len(ids) == 0 {
		return nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM phrase WHERE id IN (`+placeholders+`)`, args...,
	); err != nil {
		return fmt.Errorf("delete phrases: %w", err)
	}
	return nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
