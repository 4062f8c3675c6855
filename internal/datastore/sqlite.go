package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

const tokenColumns = `id, qr_type, reference_id, issuing_business_id, issued_by_id, issued_by_role,
	payload, issued_at, expires_at, is_used, used_at, used_by_id, used_by_role, revoked_at,
	signature, created_at, updated_at`

// SQLiteStore keeps QR tokens in an embedded SQLite database. Timestamps are
// stored as UTC unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}
	// A single connection serializes writers so concurrent claims queue in
	// the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set busy_timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS qr_tokens (
		id                  TEXT    PRIMARY KEY,
		qr_type             TEXT    NOT NULL,
		reference_id        TEXT    NOT NULL,
		issuing_business_id TEXT,
		issued_by_id        TEXT    NOT NULL,
		issued_by_role      TEXT    NOT NULL,
		payload             TEXT,
		issued_at           INTEGER NOT NULL,
		expires_at          INTEGER NOT NULL CHECK(expires_at > issued_at),
		is_used             INTEGER NOT NULL DEFAULT 0,
		used_at             INTEGER,
		used_by_id          TEXT,
		used_by_role        TEXT,
		revoked_at          INTEGER,
		signature           TEXT    NOT NULL,
		created_at          INTEGER NOT NULL,
		updated_at          INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_qr_tokens_reference ON qr_tokens(qr_type, reference_id);
	CREATE INDEX IF NOT EXISTS idx_qr_tokens_expires_at ON qr_tokens(expires_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, token *models.QRToken) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO qr_tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		token.ID, token.QRType, token.ReferenceID, nullString(token.IssuingBusinessID),
		token.IssuedByID, token.IssuedByRole, token.Payload,
		unixNano(token.IssuedAt), unixNano(token.ExpiresAt), token.IsUsed,
		nullTime(token.UsedAt), nullString(token.UsedByID), nullString(token.UsedByRole),
		nullTime(token.RevokedAt), token.Signature, unixNano(now), unixNano(now),
	)
	if err != nil {
		return fmt.Errorf("datastore: create token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("datastore: create token: %w", err)
	}
	if n == 0 {
		return domainErrors.ErrTokenConflict.WithDetail("id %s", token.ID)
	}
	token.CreatedAt, token.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.QRToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM qr_tokens WHERE id = ?`, id)
	rec, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get token: %w", err)
	}
	return rec, nil
}

// Claim is one conditional UPDATE ... RETURNING. Only the caller whose
// statement matches the unused, unrevoked, unexpired row gets it back.
func (s *SQLiteStore) Claim(ctx context.Context, id string, actor domainQR.Actor, now time.Time) (*models.QRToken, error) {
	at := unixNano(now)
	row := s.db.QueryRowContext(ctx, `
		UPDATE qr_tokens
		SET is_used = 1, used_at = ?, used_by_id = ?, used_by_role = ?, updated_at = ?
		WHERE id = ? AND is_used = 0 AND revoked_at IS NULL AND expires_at > ?
		RETURNING `+tokenColumns,
		at, actor.ID, string(actor.Role), at, id, at,
	)
	rec, err := scanToken(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("datastore: claim token: %w", err)
	}
	return nil, s.classify(ctx, id, func(cur *models.QRToken) error {
		return domainQR.ClaimFailure(cur, now)
	})
}

func (s *SQLiteStore) Revoke(ctx context.Context, id string, now time.Time) (*models.QRToken, error) {
	at := unixNano(now)
	row := s.db.QueryRowContext(ctx, `
		UPDATE qr_tokens
		SET revoked_at = ?, updated_at = ?
		WHERE id = ? AND is_used = 0 AND revoked_at IS NULL
		RETURNING `+tokenColumns,
		at, at, id,
	)
	rec, err := scanToken(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("datastore: revoke token: %w", err)
	}
	return nil, s.classify(ctx, id, domainQR.RevokeFailure)
}

// classify re-reads the row after a conditional write matched nothing.
func (s *SQLiteStore) classify(ctx context.Context, id string, failure func(*models.QRToken) error) error {
	cur, err := s.Get(ctx, id)
	if errors.Is(err, domainErrors.ErrTokenNotFound) {
		return failure(nil)
	}
	if err != nil {
		return err
	}
	return failure(cur)
}

func (s *SQLiteStore) ListByReference(ctx context.Context, q domainQR.ReferenceQuery) ([]models.QRToken, int64, error) {
	where := `WHERE qr_type = ? AND reference_id = ?`
	args := []any{string(q.Type), q.ReferenceID}
	if q.BusinessID != nil {
		where += ` AND issuing_business_id = ?`
		args = append(args, *q.BusinessID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_tokens `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("datastore: count tokens: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM qr_tokens `+where+` ORDER BY issued_at DESC, id ASC LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("datastore: list tokens: %w", err)
	}
	defer rows.Close()

	out := []models.QRToken{}
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("datastore: scan token: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("datastore: list tokens: %w", err)
	}
	return out, total, nil
}

func (s *SQLiteStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qr_tokens WHERE expires_at < ?`, unixNano(cutoff))
	if err != nil {
		return 0, fmt.Errorf("datastore: purge tokens: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (*models.QRToken, error) {
	var (
		rec                              models.QRToken
		businessID, usedByID, usedByRole sql.NullString
		issuedAt, expiresAt, createdAt   int64
		updatedAt                        int64
		usedAt, revokedAt                sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.QRType, &rec.ReferenceID, &businessID, &rec.IssuedByID, &rec.IssuedByRole,
		&rec.Payload, &issuedAt, &expiresAt, &rec.IsUsed, &usedAt, &usedByID, &usedByRole, &revokedAt,
		&rec.Signature, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.IssuingBusinessID = stringPtr(businessID)
	rec.UsedByID = stringPtr(usedByID)
	rec.UsedByRole = stringPtr(usedByRole)
	rec.IssuedAt = fromUnixNano(issuedAt)
	rec.ExpiresAt = fromUnixNano(expiresAt)
	rec.CreatedAt = fromUnixNano(createdAt)
	rec.UpdatedAt = fromUnixNano(updatedAt)
	rec.UsedAt = timePtr(usedAt)
	rec.RevokedAt = timePtr(revokedAt)
	return &rec, nil
}

func unixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unixNano(*t), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnixNano(n.Int64)
	return &t
}
