package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"fisbd/internal/product"
)

// SQLite is the reference MSG/LEGEND implementation, backed by the pure-Go
// modernc.org/sqlite driver (no cgo), matching the teacher's
// internal/storage/sqlite.go choice of driver.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite-backed Store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS msg (
	type TEXT NOT NULL,
	unique_name TEXT NOT NULL,
	insert_time TEXT NOT NULL,
	expiration_time TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (type, unique_name)
);
CREATE INDEX IF NOT EXISTS msg_type_idx ON msg(type);
CREATE INDEX IF NOT EXISTS msg_insert_idx ON msg(insert_time);
CREATE INDEX IF NOT EXISTS msg_expire_idx ON msg(expiration_time);

CREATE TABLE IF NOT EXISTS legend (
	product TEXT NOT NULL,
	scale TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (product, scale)
);
`)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, p *product.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO msg (type, unique_name, insert_time, expiration_time, body)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(type, unique_name) DO UPDATE SET
	insert_time = excluded.insert_time,
	expiration_time = excluded.expiration_time,
	body = excluded.body
`, string(p.Type), p.UniqueName, p.InsertTime.UTC().Format(sortableTime), p.ExpirationTime.UTC().Format(sortableTime), body)
	if err != nil {
		return fmt.Errorf("store: upsert: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, typ product.Type, uniqueName string) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM msg WHERE type = ? AND unique_name = ?`, string(typ), uniqueName)
	var body string
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get: %w", err)
	}
	var p product.Product
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("store: unmarshal: %w", err)
	}
	return &p, nil
}

func (s *SQLite) ListByType(ctx context.Context, typ product.Type) ([]*product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM msg WHERE type = ?`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("store: list by type: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *SQLite) All(ctx context.Context) ([]*product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM msg`)
	if err != nil {
		return nil, fmt.Errorf("store: all: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]*product.Product, error) {
	var out []*product.Product
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var p product.Product
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("store: unmarshal: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// sortableTime is a fixed-width UTC layout, so the TEXT columns compare in
// time order (RFC3339Nano drops trailing zeros and does not).
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

func (s *SQLite) ExpireBefore(ctx context.Context, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM msg WHERE expiration_time <= ?`, at.UTC().Format(sortableTime))
	if err != nil {
		return 0, fmt.Errorf("store: expire: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Delete(ctx context.Context, typ product.Type, uniqueName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM msg WHERE type = ? AND unique_name = ?`, string(typ), uniqueName)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (s *SQLite) PutLegend(ctx context.Context, l Legend) error {
	body, err := json.Marshal(l.Thresholds)
	if err != nil {
		return fmt.Errorf("store: marshal legend: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO legend (product, scale, updated_at, body) VALUES (?, ?, ?, ?)
ON CONFLICT(product, scale) DO UPDATE SET updated_at = excluded.updated_at, body = excluded.body
`, string(l.Product), l.Scale, l.UpdatedAt.UTC().Format(time.RFC3339Nano), body)
	if err != nil {
		return fmt.Errorf("store: put legend: %w", err)
	}
	return nil
}

func (s *SQLite) GetLegend(ctx context.Context, typ product.Type, scale string) (*Legend, error) {
	row := s.db.QueryRowContext(ctx, `SELECT updated_at, body FROM legend WHERE product = ? AND scale = ?`, string(typ), scale)
	var updatedAt, body string
	if err := row.Scan(&updatedAt, &body); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get legend: %w", err)
	}
	var entries []LegendEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("store: unmarshal legend: %w", err)
	}
	t, _ := time.Parse(time.RFC3339Nano, updatedAt)
	return &Legend{Product: typ, Scale: scale, Thresholds: entries, UpdatedAt: t}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
