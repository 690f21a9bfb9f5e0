package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/pinvault"
)

// TIMESTAMPTZ keeps microseconds.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type fileRepo struct {
	pool      *pgxpool.Pool
	tableName string // sanitized
}

func (r *fileRepo) Create(ctx context.Context, rec pinvault.FileRecord) (pinvault.FileRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, display_name, storage_key, size_bytes, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tableName)

	rec.UploadedAt = normalizeTime(rec.UploadedAt)
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.DisplayName, rec.StorageKey, rec.SizeBytes, rec.MimeType, rec.UploadedAt,
	)
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("create: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) Get(ctx context.Context, id uuid.UUID) (pinvault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, display_name, storage_key, size_bytes, mime_type, uploaded_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	rec, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pinvault.FileRecord{}, pinvault.ErrNotFound
		}
		return pinvault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) List(ctx context.Context) ([]pinvault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, display_name, storage_key, size_bytes, mime_type, uploaded_at
		FROM %s
		ORDER BY uploaded_at DESC, id
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

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
	query := fmt.Sprintf(`UPDATE %s SET display_name = $1 WHERE id = $2`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, displayName, id)
	return checkOne("rename", tag, err)
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, id)
	return checkOne("delete", tag, err)
}

func scanFile(row pgx.Row) (pinvault.FileRecord, error) {
	var rec pinvault.FileRecord
	if err := row.Scan(&rec.ID, &rec.DisplayName, &rec.StorageKey, &rec.SizeBytes, &rec.MimeType, &rec.UploadedAt); err != nil {
		return pinvault.FileRecord{}, err
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	return rec, nil
}

func checkOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, pinvault.ErrNotFound)
	}
	return nil
}

type credentialRepo struct {
	pool      *pgxpool.Pool
	tableName string // sanitized
}

func (r *credentialRepo) Get(ctx context.Context) (pinvault.Credential, error) {
	query := fmt.Sprintf(`SELECT kind, secret, updated_at FROM %s WHERE id = 1`, r.tableName)

	var kind string
	var cred pinvault.Credential
	err := r.pool.QueryRow(ctx, query).Scan(&kind, &cred.Secret, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pinvault.Credential{}, pinvault.ErrNotFound
		}
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	cred.Kind, err = pinvault.ParseCredentialKind(kind)
	if err != nil {
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	cred.UpdatedAt = cred.UpdatedAt.UTC()

	return cred, nil
}

func (r *credentialRepo) Put(ctx context.Context, cred pinvault.Credential) error {
	if !cred.Kind.IsValid() {
		return fmt.Errorf("put credential: invalid kind %q", cred.Kind)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, secret, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind, secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at
	`, r.tableName)

	if _, err := r.pool.Exec(ctx, query, string(cred.Kind), cred.Secret, normalizeTime(cred.UpdatedAt)); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}
