// Package enrichment joins curated products against the read-only
// AIRPORTS/NAVAIDS/DESIGNATED_POINTS/SUA side store, attaching geometry the
// wire frame itself never carries (spec §4.5 "Location enrichment").
package enrichment

import (
	"context"
	"strings"

	"github.com/paulmach/orb"

	"fisbd/internal/geo"
	"fisbd/internal/product"
	"fisbd/internal/store"
)

// Enricher attaches geo.Element geometry to products whose wire form only
// names a station, fix, or airport identifier.
type Enricher struct {
	side store.SideStore
}

// New builds an Enricher over a side store. side may be nil, in which case
// Enrich is a no-op that passes every product through unchanged — this
// keeps the side store strictly optional, matching spec §8's framing of
// location enrichment as best-effort rather than load-bearing.
func New(side store.SideStore) *Enricher {
	return &Enricher{side: side}
}

// Enrich attaches geometry to p in place and returns it, for chaining in a
// pipeline stage. It never fails the product: a missing lookup just leaves
// p.Geometry untouched, matching spec §8 Open Question (b) ("absent
// declination data, emit the product without geojson rather than guess").
func (e *Enricher) Enrich(ctx context.Context, p *product.Product) *product.Product {
	if e == nil || e.side == nil || p == nil {
		return p
	}

	switch p.Type {
	case product.TypeMETAR, product.TypeTAF,
		product.TypeWinds06, product.TypeWinds12, product.TypeWinds24:
		e.enrichStation(ctx, p)
	case product.TypePIREP:
		e.enrichPIREP(ctx, p)
	}
	return p
}

// enrichStation resolves p.UniqueName (an ICAO/station ident) against
// AIRPORTS, falling back to NAVAIDS, and attaches a POINT element.
func (e *Enricher) enrichStation(ctx context.Context, p *product.Product) {
	ident := stationIdent(p.UniqueName)
	if ident == "" {
		return
	}
	if a, err := e.side.FindAirport(ctx, ident); err == nil && a != nil {
		p.Geometry = append(p.Geometry, geo.Pt(a.Point))
		return
	}
	if n, err := e.side.FindNavaid(ctx, ident); err == nil && n != nil {
		p.Geometry = append(p.Geometry, geo.Pt(n.Point))
	}
}

// enrichPIREP resolves the PIREP's /OV fix (p.FixIdent) against
// DESIGNATED_POINTS, NAVAIDS, or AIRPORTS, attaches a POINT element, and
// rotates any magnetic radial to true using the WMM declination table, per
// spec §4.5 "Magnetic-to-true correction using a WMM table for any bearing
// fields".
func (e *Enricher) enrichPIREP(ctx context.Context, p *product.Product) {
	if p.FixIdent == "" {
		return
	}

	var pt orb.Point
	found := false
	if dp, err := e.side.FindDesignatedPoint(ctx, p.FixIdent); err == nil && dp != nil {
		pt, found = dp.Point, true
	} else if n, err := e.side.FindNavaid(ctx, p.FixIdent); err == nil && n != nil {
		pt, found = n.Point, true
	} else if a, err := e.side.FindAirport(ctx, p.FixIdent); err == nil && a != nil {
		pt, found = a.Point, true
	}
	if !found {
		return
	}
	p.Geometry = append(p.Geometry, geo.Pt(pt))

	dec, ok := e.side.Declination(ctx, pt)
	if !ok {
		// No WMM coverage at this fix: leave the radial in magnetic terms
		// rather than guess a correction (spec §8 Open Question (b)).
		return
	}
	p.MagneticDeclination = &dec
	p.TrueBearing = applyDeclination(p.MagneticBearing, dec)
}

// applyDeclination converts a magnetic bearing to true, wrapping into
// [0, 360). Returns nil if bearing is unset.
func applyDeclination(bearing *float64, declinationEast float64) *float64 {
	if bearing == nil {
		return nil
	}
	t := *bearing + declinationEast
	for t < 0 {
		t += 360
	}
	for t >= 360 {
		t -= 360
	}
	return &t
}

// stationIdent strips common non-identifier suffixes a unique_name may
// carry (report numbers, TAF amendment markers) down to the bare ICAO/
// station code used by the side store's primary key.
func stationIdent(uniqueName string) string {
	ident := strings.SplitN(uniqueName, ":", 2)[0]
	ident = strings.TrimSpace(ident)
	return strings.ToUpper(ident)
}
