package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteKV is a relational Store holding pairs in a two-column table.
// The PRIMARY KEY constraint gives Create its no-duplicate-window
// guarantee; Update distinguishes itself from upsert by checking the
// affected row count.
type SQLiteKV struct {
	dsn string
	db  *sql.DB
}

func NewSQLite(dsn string) *SQLiteKV {
	return &SQLiteKV{dsn: dsn}
}

func (kv *SQLiteKV) Connect(ctx context.Context) error {
	if kv.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite3", kv.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	kv.db = db
	return nil
}

func (kv *SQLiteKV) Disconnect(ctx context.Context) error {
	if kv.db == nil {
		return nil
	}
	err := kv.db.Close()
	kv.db = nil
	return err
}

func (kv *SQLiteKV) Create(ctx context.Context, key string, value []byte) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	_, err := kv.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)`, key, normalizeValue(value))
	if err != nil {
		// only a duplicate key means AlreadyExists, not any constraint
		var serr sqlite3.Error
		if errors.As(err, &serr) &&
			(serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				serr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// normalizeValue keeps a nil value from binding as NULL, which the
// NOT NULL column would reject. A nil value is an empty value.
func normalizeValue(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}

func (kv *SQLiteKV) Read(ctx context.Context, key string) ([]byte, error) {
	if kv.db == nil {
		return nil, ErrNotConnected
	}
	var value []byte
	err := kv.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		// Scan yields nil for an empty BLOB; an empty value is still a value.
		value = []byte{}
	}
	return value, nil
}

func (kv *SQLiteKV) Update(ctx context.Context, key string, value []byte) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	res, err := kv.db.ExecContext(ctx,
		`UPDATE kv SET value = ? WHERE key = ?`, normalizeValue(value), key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (kv *SQLiteKV) Delete(ctx context.Context, key string) error {
	if kv.db == nil {
		return ErrNotConnected
	}
	_, err := kv.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (kv *SQLiteKV) Keys(ctx context.Context) ([]string, error) {
	if kv.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := kv.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
