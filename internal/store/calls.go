package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewCall carries the caller-supplied fields of a call record.
type NewCall struct {
	CallID       int64
	PerformedAt  string
	UploadedAt   string
	FileHash     string
	FileURL      string
	FileName     string
	Duration     float64
	LeftChannel  Participant
	RightChannel Participant
	ClientName   string
	EmployeeName string
	Inbound      bool
}

// CreateCall registers an uploaded recording. The file hash is the dedup key:
// a second call with the same hash returns ErrDuplicateCall and writes nothing.
func (s *Store) CreateCall(ctx context.Context, call NewCall) (*CallMetadata, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(call.FileHash) == "" {
		return nil, errors.New("file hash is required")
	}

	performedAt, err := parseTimeString(call.PerformedAt)
	if err != nil {
		return nil, fmt.Errorf("parse performed_at: %w", err)
	}
	uploadedAt, err := parseTimeString(call.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}

	meta := &CallMetadata{
		ID:           uuid.NewString(),
		CallID:       call.CallID,
		PerformedAt:  performedAt,
		UploadedAt:   uploadedAt,
		FileHash:     call.FileHash,
		FileURL:      call.FileURL,
		FileName:     call.FileName,
		Duration:     call.Duration,
		LeftChannel:  call.LeftChannel,
		RightChannel: call.RightChannel,
		ClientName:   call.ClientName,
		EmployeeName: call.EmployeeName,
		Inbound:      call.Inbound,
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO call_metadata (
			id, call_id, performed_at, uploaded_at, file_hash, file_url, file_name,
			duration, left_channel, right_channel, client_name, employee_name, inbound
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.CallID, formatTime(meta.PerformedAt), formatTime(meta.UploadedAt),
		meta.FileHash, meta.FileURL, meta.FileName, meta.Duration,
		meta.LeftChannel, meta.RightChannel, meta.ClientName, meta.EmployeeName,
		boolToInt(meta.Inbound),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCall
		}
		return nil, fmt.Errorf("insert call metadata: %w", err)
	}
	return meta, nil
}

// GetCall fetches a call record by identifier.
func (s *Store) GetCall(ctx context.Context, id string) (*CallMetadata, error) {
	return s.getCallWhere(ctx, "id = ?", id)
}

// FindCallByHash fetches a call record by its content hash.
func (s *Store) FindCallByHash(ctx context.Context, fileHash string) (*CallMetadata, error) {
	return s.getCallWhere(ctx, "file_hash = ?", fileHash)
}

func (s *Store) getCallWhere(ctx context.Context, where string, arg any) (*CallMetadata, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, call_id, performed_at, uploaded_at, file_hash, file_url, file_name,
			duration, left_channel, right_channel, client_name, employee_name, inbound
		 FROM call_metadata WHERE `+where, arg)

	var meta CallMetadata
	var performedAt, uploadedAt string
	var inbound int
	err := row.Scan(
		&meta.ID, &meta.CallID, &performedAt, &uploadedAt, &meta.FileHash,
		&meta.FileURL, &meta.FileName, &meta.Duration, &meta.LeftChannel,
		&meta.RightChannel, &meta.ClientName, &meta.EmployeeName, &inbound,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call metadata: %w", err)
	}

	if meta.PerformedAt, err = parseTimeString(performedAt); err != nil {
		return nil, fmt.Errorf("parse performed_at: %w", err)
	}
	if meta.UploadedAt, err = parseTimeString(uploadedAt); err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}
	meta.Inbound = inbound != 0
	return &meta, nil
}
