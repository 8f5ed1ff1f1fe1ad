package enrichment

import (
	"context"
	"testing"

	"github.com/paulmach/orb"

	"fisbd/internal/product"
	"fisbd/internal/store"
)

type fakeSide struct {
	airports map[string]store.Airport
	points   map[string]store.DesignatedPoint
	decl     map[string]float64
}

func (f *fakeSide) FindAirport(ctx context.Context, ident string) (*store.Airport, error) {
	if a, ok := f.airports[ident]; ok {
		return &a, nil
	}
	return nil, nil
}

func (f *fakeSide) FindNavaid(ctx context.Context, ident string) (*store.Navaid, error) {
	return nil, nil
}

func (f *fakeSide) FindDesignatedPoint(ctx context.Context, ident string) (*store.DesignatedPoint, error) {
	if p, ok := f.points[ident]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeSide) SUAContaining(ctx context.Context, p orb.Point) ([]store.SUAZone, error) {
	return nil, nil
}

func (f *fakeSide) Declination(ctx context.Context, p orb.Point) (float64, bool) {
	return 0, false
}

func TestEnrichStation(t *testing.T) {
	side := &fakeSide{airports: map[string]store.Airport{
		"KPIT": {Ident: "KPIT", Name: "Pittsburgh Intl", Point: orb.Point{-80.233, 40.491}},
	}}
	e := New(side)
	p := &product.Product{Type: product.TypeMETAR, UniqueName: "KPIT"}
	e.Enrich(context.Background(), p)

	if len(p.Geometry) != 1 {
		t.Fatalf("expected 1 geometry element, got %d", len(p.Geometry))
	}
	if p.Geometry[0].Center != (orb.Point{-80.233, 40.491}) {
		t.Fatalf("unexpected center: %v", p.Geometry[0].Center)
	}
}

func TestEnrichPIREPNoDeclination(t *testing.T) {
	side := &fakeSide{points: map[string]store.DesignatedPoint{
		"ABC": {Ident: "ABC", Point: orb.Point{-80.0, 40.0}},
	}}
	e := New(side)
	bearing := 270.0
	p := &product.Product{Type: product.TypePIREP, FixIdent: "ABC", MagneticBearing: &bearing}
	e.Enrich(context.Background(), p)

	if len(p.Geometry) != 1 {
		t.Fatalf("expected fix geometry attached even without declination")
	}
	if p.TrueBearing != nil {
		t.Fatalf("expected no true bearing without WMM coverage, got %v", *p.TrueBearing)
	}
}

func TestEnrichNilSideStore(t *testing.T) {
	e := New(nil)
	p := &product.Product{Type: product.TypeMETAR, UniqueName: "KPIT"}
	out := e.Enrich(context.Background(), p)
	if out != p {
		t.Fatalf("expected pass-through product")
	}
	if len(p.Geometry) != 0 {
		t.Fatalf("expected no geometry attached with nil side store")
	}
}
