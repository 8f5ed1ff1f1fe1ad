// Package store is the datastore abstraction the Curator writes through:
// the MSG collection keyed by (type, unique_name), plus LEGEND for image
// legends (spec §6 Datastore schema). Two implementations are provided —
// sqlite (the reference/test backend) and postgres (the production
// backend) — matching the teacher's swappable-backend pattern
// (internal/storage/{sqlite,postgres}.go).
package store

import (
	"context"
	"time"

	"fisbd/internal/product"
)

// Store is the single-writer datastore the Curator mutates (spec §4.5,
// §5 "The datastore is the only shared mutable resource and only the
// Curator writes to it.").
type Store interface {
	// Upsert replaces any existing record with the same (type, unique_name)
	// key (spec §4.5 Upsert semantics).
	Upsert(ctx context.Context, p *product.Product) error

	// Get fetches one record by key, or (nil, nil) if absent.
	Get(ctx context.Context, typ product.Type, uniqueName string) (*product.Product, error)

	// ListByType returns every current record of one type.
	ListByType(ctx context.Context, typ product.Type) ([]*product.Product, error)

	// ExpireBefore deletes every record with expiration_time <= at, and
	// returns how many were removed (spec §4.5 Expiration engine).
	ExpireBefore(ctx context.Context, at time.Time) (int, error)

	// Delete removes one record by key (used for CRL-triggered immediate
	// local deletion, spec §4.5).
	Delete(ctx context.Context, typ product.Type, uniqueName string) error

	// All returns every current record, for trigger dumps and dump-vectors.
	All(ctx context.Context) ([]*product.Product, error)

	Close() error
}

// Legend is one entry of the LEGEND collection: the palette/threshold
// metadata accompanying a rendered image product (spec §6 "Collection
// LEGEND for image legends").
type Legend struct {
	Product   product.Type
	Scale     string
	Thresholds []LegendEntry
	UpdatedAt time.Time
}

// LegendEntry is one threshold/color row within a Legend.
type LegendEntry struct {
	Label string
	RGBA  [4]uint8
}

// LegendStore persists LEGEND documents.
type LegendStore interface {
	PutLegend(ctx context.Context, l Legend) error
	GetLegend(ctx context.Context, typ product.Type, scale string) (*Legend, error)
}
