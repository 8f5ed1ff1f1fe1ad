package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fisbd/internal/product"
)

// PostgresConfig holds connection settings for the production backend
// (spec §6 Datastore schema; the teacher's internal/storage/postgres.go
// supplies the pgxpool wiring pattern this adapts).
type PostgresConfig struct {
	Host, Database, User, Password string
	Port                           int
	SSLMode                        string
}

// Postgres is the production MSG/LEGEND implementation.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) createSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS msg (
	type TEXT NOT NULL,
	unique_name TEXT NOT NULL,
	insert_time TIMESTAMPTZ NOT NULL,
	expiration_time TIMESTAMPTZ NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY (type, unique_name)
);
CREATE INDEX IF NOT EXISTS msg_type_idx ON msg(type);
CREATE INDEX IF NOT EXISTS msg_insert_idx ON msg(insert_time);
CREATE INDEX IF NOT EXISTS msg_expire_idx ON msg(expiration_time);

CREATE TABLE IF NOT EXISTS legend (
	product TEXT NOT NULL,
	scale TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY (product, scale)
);
`)
	if err != nil {
		return fmt.Errorf("store: create postgres schema: %w", err)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, prod *product.Product) error {
	body, err := json.Marshal(prod)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO msg (type, unique_name, insert_time, expiration_time, body)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (type, unique_name) DO UPDATE SET
	insert_time = excluded.insert_time,
	expiration_time = excluded.expiration_time,
	body = excluded.body
`, string(prod.Type), prod.UniqueName, prod.InsertTime.UTC(), prod.ExpirationTime.UTC(), body)
	if err != nil {
		return fmt.Errorf("store: upsert: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, typ product.Type, uniqueName string) (*product.Product, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM msg WHERE type = $1 AND unique_name = $2`, string(typ), uniqueName).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get: %w", err)
	}
	var out product.Product
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("store: unmarshal: %w", err)
	}
	return &out, nil
}

func (p *Postgres) ListByType(ctx context.Context, typ product.Type) ([]*product.Product, error) {
	rows, err := p.pool.Query(ctx, `SELECT body FROM msg WHERE type = $1`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("store: list by type: %w", err)
	}
	defer rows.Close()
	return p.scanRows(rows)
}

func (p *Postgres) All(ctx context.Context) ([]*product.Product, error) {
	rows, err := p.pool.Query(ctx, `SELECT body FROM msg`)
	if err != nil {
		return nil, fmt.Errorf("store: all: %w", err)
	}
	defer rows.Close()
	return p.scanRows(rows)
}

func (p *Postgres) scanRows(rows pgx.Rows) ([]*product.Product, error) {
	var out []*product.Product
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var prod product.Product
		if err := json.Unmarshal(body, &prod); err != nil {
			return nil, fmt.Errorf("store: unmarshal: %w", err)
		}
		out = append(out, &prod)
	}
	return out, rows.Err()
}

func (p *Postgres) ExpireBefore(ctx context.Context, at time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM msg WHERE expiration_time <= $1`, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("store: expire: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Delete(ctx context.Context, typ product.Type, uniqueName string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM msg WHERE type = $1 AND unique_name = $2`, string(typ), uniqueName)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (p *Postgres) PutLegend(ctx context.Context, l Legend) error {
	body, err := json.Marshal(l.Thresholds)
	if err != nil {
		return fmt.Errorf("store: marshal legend: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO legend (product, scale, updated_at, body) VALUES ($1, $2, $3, $4)
ON CONFLICT (product, scale) DO UPDATE SET updated_at = excluded.updated_at, body = excluded.body
`, string(l.Product), l.Scale, l.UpdatedAt.UTC(), body)
	if err != nil {
		return fmt.Errorf("store: put legend: %w", err)
	}
	return nil
}

func (p *Postgres) GetLegend(ctx context.Context, typ product.Type, scale string) (*Legend, error) {
	var updatedAt time.Time
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT updated_at, body FROM legend WHERE product = $1 AND scale = $2`, string(typ), scale).Scan(&updatedAt, &body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get legend: %w", err)
	}
	var entries []LegendEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("store: unmarshal legend: %w", err)
	}
	return &Legend{Product: typ, Scale: scale, Thresholds: entries, UpdatedAt: updatedAt}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
