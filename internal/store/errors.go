package store

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateCall indicates a call with the same file hash already
	// exists. Callers should look up and reuse the existing record instead
	// of retrying the write.
	ErrDuplicateCall = errors.New("call with identical file hash already exists")

	// ErrTaskExists indicates the call record already owns a task.
	ErrTaskExists = errors.New("task already exists for call record")

	// ErrConfigurationMissing indicates a project has no settings container
	// of the requested kind. Scoring for that dimension is skipped, not
	// failed.
	ErrConfigurationMissing = errors.New("no settings container for project and kind")

	// ErrSettingsExists indicates the project already has a container of
	// that kind. One active container per (project, kind) is an
	// application-level invariant; the schema does not enforce it.
	ErrSettingsExists = errors.New("settings container already exists for project and kind")

	// ErrImmutableItem indicates an attempt to delete or rebind a
	// system-defined settings item.
	ErrImmutableItem = errors.New("settings item is system-defined and immutable")

	// ErrTaskConflict indicates a status transition or input write was
	// attempted on a task that already left the processing state.
	ErrTaskConflict = errors.New("task is not in processing state")

	// ErrIncompleteInputs indicates finalize was attempted before the
	// staged metrics row exists.
	ErrIncompleteInputs = errors.New("task inputs incomplete")
)
