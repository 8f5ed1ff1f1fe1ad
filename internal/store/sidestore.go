package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/paulmach/orb"
)

// Airport is one row of the read-only AIRPORTS side store.
type Airport struct {
	Ident string
	Name  string
	Point orb.Point
}

// Navaid is one row of the read-only NAVAIDS side store.
type Navaid struct {
	Ident string
	Point orb.Point
}

// DesignatedPoint is one row of the read-only DESIGNATED_POINTS side store
// (five-letter fixes, etc).
type DesignatedPoint struct {
	Ident string
	Point orb.Point
}

// SUAZone is one row of the read-only SUA side store: a named special use
// airspace polygon.
type SUAZone struct {
	Name    string
	Polygon orb.Polygon
}

// SideStore is the read-only location-lookup interface spec §6 names:
// "A separate read-only side store AIRPORTS, NAVAIDS, DESIGNATED_POINTS,
// SUA for location enrichment." Out of scope per spec §1 is *populating*
// these; this package only consumes a pre-populated database.
type SideStore interface {
	FindAirport(ctx context.Context, ident string) (*Airport, error)
	FindNavaid(ctx context.Context, ident string) (*Navaid, error)
	FindDesignatedPoint(ctx context.Context, ident string) (*DesignatedPoint, error)
	SUAContaining(ctx context.Context, p orb.Point) ([]SUAZone, error)
	// Declination returns the magnetic declination in degrees (east
	// positive) at p, or ok=false if no WMM table entry covers it (spec §8
	// Open Question (b): "behavior when no declination is available is to
	// emit the product without geojson rather than guessing").
	Declination(ctx context.Context, p orb.Point) (deg float64, ok bool)
}

// SQLiteSideStore reads AIRPORTS/NAVAIDS/DESIGNATED_POINTS/SUA/WMM from a
// pre-populated SQLite database, the reference implementation of SideStore.
type SQLiteSideStore struct {
	db *sql.DB
}

// OpenSQLiteSideStore opens an existing side-data SQLite file read-only.
func OpenSQLiteSideStore(path string) (*SQLiteSideStore, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("store: open side store: %w", err)
	}
	return &SQLiteSideStore{db: db}, nil
}

func (s *SQLiteSideStore) FindAirport(ctx context.Context, ident string) (*Airport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ident, name, lon, lat FROM airports WHERE ident = ?`, ident)
	var a Airport
	var lon, lat float64
	if err := row.Scan(&a.Ident, &a.Name, &lon, &lat); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find airport: %w", err)
	}
	a.Point = orb.Point{lon, lat}
	return &a, nil
}

func (s *SQLiteSideStore) FindNavaid(ctx context.Context, ident string) (*Navaid, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ident, lon, lat FROM navaids WHERE ident = ?`, ident)
	var n Navaid
	var lon, lat float64
	if err := row.Scan(&n.Ident, &lon, &lat); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find navaid: %w", err)
	}
	n.Point = orb.Point{lon, lat}
	return &n, nil
}

func (s *SQLiteSideStore) FindDesignatedPoint(ctx context.Context, ident string) (*DesignatedPoint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ident, lon, lat FROM designated_points WHERE ident = ?`, ident)
	var d DesignatedPoint
	var lon, lat float64
	if err := row.Scan(&d.Ident, &lon, &lat); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find designated point: %w", err)
	}
	d.Point = orb.Point{lon, lat}
	return &d, nil
}

func (s *SQLiteSideStore) SUAContaining(ctx context.Context, p orb.Point) ([]SUAZone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, wkt FROM sua`)
	if err != nil {
		return nil, fmt.Errorf("store: sua query: %w", err)
	}
	defer rows.Close()

	var out []SUAZone
	for rows.Next() {
		var name, wktStr string
		if err := rows.Scan(&name, &wktStr); err != nil {
			return nil, fmt.Errorf("store: sua scan: %w", err)
		}
		poly, err := parseWKTPolygon(wktStr)
		if err != nil {
			continue
		}
		if planarContains(poly, p) {
			out = append(out, SUAZone{Name: name, Polygon: poly})
		}
	}
	return out, rows.Err()
}

func (s *SQLiteSideStore) Declination(ctx context.Context, p orb.Point) (float64, bool) {
	row := s.db.QueryRowContext(ctx, `
SELECT declination FROM wmm
WHERE lon_cell = ? AND lat_cell = ?`, wmmCell(p.Lon()), wmmCell(p.Lat()))
	var deg float64
	if err := row.Scan(&deg); err != nil {
		return 0, false
	}
	return deg, true
}

func (s *SQLiteSideStore) Close() error { return s.db.Close() }

// wmmCell buckets a coordinate into the WMM table's 5-degree grid.
func wmmCell(v float64) int {
	return int(v/5) * 5
}
