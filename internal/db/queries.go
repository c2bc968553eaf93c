package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/learnflow/pystudio/internal/account"
	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/errors"
)

// Keys used in the kv table. They match the browser storage keys of the web client.
const (
	KeyToken       = "learnflow_token"
	KeyUser        = "learnflow_user"
	KeyCurrentUser = "learnflow_current_user"
)

// KVGet returns the value stored under key, or a NOT_FOUND error.
func KVGet(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", errors.NewNotFound(key)
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return value, nil
}

// KVSet stores value under key, replacing any existing value.
func KVSet(ctx context.Context, db *sql.DB, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// KVDelete removes key. Returns true if a value was removed.
func KVDelete(ctx context.Context, db *sql.DB, key string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// InsertUser stores a local account under its normalized email.
// Returns CONFLICT when the email is already registered.
func InsertUser(ctx context.Context, db *sql.DB, u *account.User, passwordHash string) error {
	query := `
		INSERT INTO users (email, id, name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`
	res, err := db.ExecContext(ctx, query,
		account.NormalizeEmail(u.Email), u.ID, u.Name, string(u.Role), passwordHash, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewConflict("an account with this email already exists")
	}
	return nil
}

// GetUserByEmail returns a local account and its password hash, or NOT_FOUND.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*account.User, string, error) {
	var (
		u     account.User
		role  string
		hash  string
		query = `SELECT id, name, email, role, password_hash FROM users WHERE email = ?`
	)
	err := db.QueryRowContext(ctx, query, account.NormalizeEmail(email)).Scan(&u.ID, &u.Name, &u.Email, &role, &hash)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, "", errors.NewNotFound(email)
	}
	if err != nil {
		return nil, "", errors.NewInternal(err)
	}
	u.Role = account.Role(role)
	return &u, hash, nil
}

// InsertRun stores an activity record.
func InsertRun(ctx context.Context, db *sql.DB, r *activity.Record) error {
	query := `
		INSERT INTO runs (id, kind, source, reason, topic, input_chars, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		r.ID, string(r.Kind), r.Source, toNullString(&r.Reason), toNullString(r.Topic),
		r.InputChars, r.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListRuns returns records newest first. An empty kind lists every kind.
func ListRuns(ctx context.Context, db *sql.DB, kind activity.Kind, limit, offset int) ([]activity.Record, error) {
	query := `
		SELECT id, kind, source, reason, topic, input_chars, created_at
		FROM runs
	`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := make([]activity.Record, 0)
	for rows.Next() {
		var (
			r      activity.Record
			kindS  string
			reason sql.NullString
			topic  sql.NullString
		)
		if err := rows.Scan(&r.ID, &kindS, &r.Source, &reason, &topic, &r.InputChars, &r.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Kind = activity.Kind(kindS)
		r.Reason = reason.String
		r.Topic = fromNullString(topic)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// CountRuns returns the number of records of kind (all kinds when empty).
func CountRuns(ctx context.Context, db *sql.DB, kind activity.Kind) (int, error) {
	query := `SELECT COUNT(*) FROM runs`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// PurgeAllRuns deletes every activity record. Returns the number removed.
func PurgeAllRuns(ctx context.Context, db *sql.DB) (int, error) {
	return purgeRuns(ctx, db, `DELETE FROM runs`)
}

// PurgeRunsBefore deletes records created before the given Unix time.
// A non-positive cutoff matches nothing. Returns the number removed.
func PurgeRunsBefore(ctx context.Context, db *sql.DB, before int64) (int, error) {
	if before <= 0 {
		return 0, nil
	}
	return purgeRuns(ctx, db, `DELETE FROM runs WHERE created_at < ?`, before)
}

func purgeRuns(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// toNullString converts an optional string to sql.NullString; empty strings are stored as NULL.
func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
