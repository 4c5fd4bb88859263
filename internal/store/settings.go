package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewSettingsItem describes an item to create inside a container.
type NewSettingsItem struct {
	Immutable   bool
	Kind        ItemKind
	Name        string
	ScoreWeight int
	Bindings    []NewDictionaryBinding
}

// NewDictionaryBinding describes a dictionary binding for a new or updated item.
type NewDictionaryBinding struct {
	DictionaryID int64
	Contains     bool
}

// CreateSettings creates a scoring container for a project. At most one
// container per (project, kind) may exist; a second attempt returns
// ErrSettingsExists.
func (s *Store) CreateSettings(ctx context.Context, projectID string, kind SettingsKind) (*Settings, error) {
	ctx = ensureContext(ctx)
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("project id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM settings WHERE project_id = ? AND type = ?`,
		projectID, kind,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("check settings: %w", err)
	}
	if existing > 0 {
		return nil, ErrSettingsExists
	}

	settings := &Settings{ID: uuid.NewString(), ProjectID: projectID, Kind: kind}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (id, project_id, type) VALUES (?, ?, ?)`,
		settings.ID, settings.ProjectID, settings.Kind,
	); err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settings: %w", err)
	}
	return settings, nil
}

// GetSettings resolves the container of one kind for a project together with
// all items and their dictionary bindings. ErrConfigurationMissing is returned
// when the project has no container of that kind; callers treat that as "skip
// this score", not as a failure.
func (s *Store) GetSettings(ctx context.Context, projectID string, kind SettingsKind) (*ResolvedSettings, error) {
	ctx = ensureContext(ctx)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, type FROM settings WHERE project_id = ? AND type = ?`,
		projectID, kind,
	)
	var settings Settings
	if err := row.Scan(&settings.ID, &settings.ProjectID, &settings.Kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigurationMissing
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	items, err := s.listResolvedItems(ctx, settings.ID)
	if err != nil {
		return nil, err
	}
	return &ResolvedSettings{Settings: settings, Items: items}, nil
}

// DeleteSettings removes a container and cascades its items and bindings.
func (s *Store) DeleteSettings(ctx context.Context, settingsID string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM settings WHERE id = ?`, settingsID)
	if err != nil {
		return fmt.Errorf("delete settings: %w", err)
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

// AddSettingsItem creates one weighted criterion inside a container. Script
// containers accept only mutable dictionary items; quality containers accept
// any known kind.
func (s *Store) AddSettingsItem(ctx context.Context, settingsID string, item NewSettingsItem) (*ResolvedItem, error) {
	ctx = ensureContext(ctx)
	if item.Name = strings.TrimSpace(item.Name); item.Name == "" {
		return nil, errors.New("item name is required")
	}
	if item.ScoreWeight < 0 {
		return nil, errors.New("score weight must not be negative")
	}
	if _, ok := ParseItemKind(string(item.Kind)); !ok {
		return nil, fmt.Errorf("unknown item kind %q", item.Kind)
	}
	if !item.Kind.DictionaryDriven() && len(item.Bindings) > 0 {
		return nil, fmt.Errorf("item kind %q does not take dictionary bindings", item.Kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin item tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var kind SettingsKind
	err = tx.QueryRowContext(ctx, `SELECT type FROM settings WHERE id = ?`, settingsID).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings kind: %w", err)
	}
	if kind == SettingsScript && (item.Kind != ItemDictionary || item.Immutable) {
		return nil, fmt.Errorf("script containers accept only mutable %q items", ItemDictionary)
	}

	resolved := &ResolvedItem{SettingsItem: SettingsItem{
		ID:          uuid.NewString(),
		SettingsID:  settingsID,
		Immutable:   item.Immutable,
		Kind:        item.Kind,
		Name:        item.Name,
		ScoreWeight: item.ScoreWeight,
	}}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings_item (id, settings_id, settings_immutable, type, name, score_weight)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		resolved.ID, resolved.SettingsID, boolToInt(resolved.Immutable),
		resolved.Kind, resolved.Name, resolved.ScoreWeight,
	); err != nil {
		return nil, fmt.Errorf("insert settings item: %w", err)
	}

	for _, binding := range item.Bindings {
		b := DictionaryBinding{
			ID:             uuid.NewString(),
			SettingsItemID: resolved.ID,
			DictionaryID:   binding.DictionaryID,
			Contains:       binding.Contains,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings_dict_item (id, settings_item_id, dictionary_id, contains)
			 VALUES (?, ?, ?, ?)`,
			b.ID, b.SettingsItemID, b.DictionaryID, boolToInt(b.Contains),
		); err != nil {
			return nil, fmt.Errorf("insert dictionary binding: %w", err)
		}
		resolved.Bindings = append(resolved.Bindings, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item: %w", err)
	}
	return resolved, nil
}

// UpdateSettingsItem renames or reweights an item. Bindings are replaced only
// when the item is mutable; passing bindings for an immutable item returns
// ErrImmutableItem. Nil bindings leave the existing set untouched.
func (s *Store) UpdateSettingsItem(ctx context.Context, itemID, name string, scoreWeight int, bindings []NewDictionaryBinding) error {
	ctx = ensureContext(ctx)
	if name = strings.TrimSpace(name); name == "" {
		return errors.New("item name is required")
	}
	if scoreWeight < 0 {
		return errors.New("score weight must not be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin item tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var immutable int
	var kind ItemKind
	err = tx.QueryRowContext(ctx,
		`SELECT settings_immutable, type FROM settings_item WHERE id = ?`, itemID,
	).Scan(&immutable, &kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get settings item: %w", err)
	}
	if bindings != nil && immutable != 0 {
		return ErrImmutableItem
	}
	if bindings != nil && !kind.DictionaryDriven() {
		return fmt.Errorf("item kind %q does not take dictionary bindings", kind)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE settings_item SET name = ?, score_weight = ? WHERE id = ?`,
		name, scoreWeight, itemID,
	); err != nil {
		return fmt.Errorf("update settings item: %w", err)
	}

	if bindings != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM settings_dict_item WHERE settings_item_id = ?`, itemID,
		); err != nil {
			return fmt.Errorf("clear bindings: %w", err)
		}
		for _, binding := range bindings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings_dict_item (id, settings_item_id, dictionary_id, contains)
				 VALUES (?, ?, ?, ?)`,
				uuid.NewString(), itemID, binding.DictionaryID, boolToInt(binding.Contains),
			); err != nil {
				return fmt.Errorf("insert dictionary binding: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit item update: %w", err)
	}
	return nil
}

// DeleteSettingsItem removes a mutable item and its bindings. Immutable items
// return ErrImmutableItem.
func (s *Store) DeleteSettingsItem(ctx context.Context, itemID string) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin item tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var immutable int
	err = tx.QueryRowContext(ctx,
		`SELECT settings_immutable FROM settings_item WHERE id = ?`, itemID,
	).Scan(&immutable)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get settings item: %w", err)
	}
	if immutable != 0 {
		return ErrImmutableItem
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings_item WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete settings item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit item delete: %w", err)
	}
	return nil
}

func (s *Store) listResolvedItems(ctx context.Context, settingsID string) ([]ResolvedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, settings_id, settings_immutable, type, name, score_weight
		 FROM settings_item WHERE settings_id = ? ORDER BY rowid`,
		settingsID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings items: %w", err)
	}
	defer rows.Close()

	var items []ResolvedItem
	index := make(map[string]int)
	for rows.Next() {
		var item ResolvedItem
		var immutable int
		if err := rows.Scan(&item.ID, &item.SettingsID, &immutable, &item.Kind, &item.Name, &item.ScoreWeight); err != nil {
			return nil, err
		}
		item.Immutable = immutable != 0
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	bindingRows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.settings_item_id, d.dictionary_id, d.contains
		 FROM settings_dict_item d
		 JOIN settings_item i ON i.id = d.settings_item_id
		 WHERE i.settings_id = ? ORDER BY d.rowid`,
		settingsID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dictionary bindings: %w", err)
	}
	defer bindingRows.Close()

	for bindingRows.Next() {
		var binding DictionaryBinding
		var contains int
		if err := bindingRows.Scan(&binding.ID, &binding.SettingsItemID, &binding.DictionaryID, &contains); err != nil {
			return nil, err
		}
		binding.Contains = contains != 0
		if i, ok := index[binding.SettingsItemID]; ok {
			items[i].Bindings = append(items[i].Bindings, binding)
		}
	}
	return items, bindingRows.Err()
}
