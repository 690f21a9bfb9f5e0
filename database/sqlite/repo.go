package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/pinvault"
)

// Fixed-width UTC so that text order is time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

type fileRepo struct {
	db        *sql.DB
	tableName string // quoted
}

func (r *fileRepo) Create(ctx context.Context, rec pinvault.FileRecord) (pinvault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, display_name, storage_key, size_bytes, mime_type, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`, r.tableName)

	uploadedAt := formatTime(rec.UploadedAt)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID.String(), rec.DisplayName, rec.StorageKey, rec.SizeBytes, rec.MimeType, uploadedAt,
	)
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("create: %w", err)
	}

	rec.UploadedAt, _ = parseTime(uploadedAt)
	return rec, nil
}

func (r *fileRepo) Get(ctx context.Context, id uuid.UUID) (pinvault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, display_name, storage_key, size_bytes, mime_type, uploaded_at
		FROM %s
		WHERE id = ?`, r.tableName)

	rec, err := scanFile(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pinvault.FileRecord{}, pinvault.ErrNotFound
		}
		return pinvault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) List(ctx context.Context) ([]pinvault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, display_name, storage_key, size_bytes, mime_type, uploaded_at
		FROM %s
		ORDER BY uploaded_at DESC, id`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []pinvault.FileRecord{}
	for rows.Next() {
		rec, scanErr := scanFile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list: %w", scanErr)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return records, nil
}

func (r *fileRepo) Rename(ctx context.Context, id uuid.UUID, displayName string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET display_name = ? WHERE id = ?`, r.tableName)

	return execOne(ctx, r.db, "rename", query, displayName, id.String())
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ?`, r.tableName)

	return execOne(ctx, r.db, "delete", query, id.String())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (pinvault.FileRecord, error) {
	var rec pinvault.FileRecord
	var idStr, uploadedAt string

	if err := row.Scan(&idStr, &rec.DisplayName, &rec.StorageKey, &rec.SizeBytes, &rec.MimeType, &uploadedAt); err != nil {
		return pinvault.FileRecord{}, err
	}

	var err error
	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("parse uuid: %w", err)
	}

	rec.UploadedAt, err = parseTime(uploadedAt)
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("parse uploaded_at: %w", err)
	}

	return rec, nil
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, op, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, pinvault.ErrNotFound)
	}

	return nil
}

type credentialRepo struct {
	db        *sql.DB
	tableName string // quoted
}

func (r *credentialRepo) Get(ctx context.Context) (pinvault.Credential, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT kind, secret, updated_at FROM %s WHERE id = 1`, r.tableName)

	var kind, secret, updatedAt string
	err := r.db.QueryRowContext(ctx, query).Scan(&kind, &secret, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pinvault.Credential{}, pinvault.ErrNotFound
		}
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	cred := pinvault.Credential{Secret: secret}

	cred.Kind, err = pinvault.ParseCredentialKind(kind)
	if err != nil {
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return pinvault.Credential{}, fmt.Errorf("get credential: parse updated_at: %w", err)
	}

	return cred, nil
}

func (r *credentialRepo) Put(ctx context.Context, cred pinvault.Credential) error {
	if !cred.Kind.IsValid() {
		return fmt.Errorf("put credential: invalid kind %q", cred.Kind)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, kind, secret, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET kind = excluded.kind, secret = excluded.secret, updated_at = excluded.updated_at`, r.tableName)

	if _, err := r.db.ExecContext(ctx, query, string(cred.Kind), cred.Secret, formatTime(cred.UpdatedAt)); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}
