package product

import (
	"testing"
	"time"

	"fisbd/internal/geo"

	"github.com/paulmach/orb"
)

func TestComputeExpirationMETAR(t *testing.T) {
	obs := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	p := &Product{Type: TypeMETAR, ObservationTime: obs}
	got := ComputeExpiration(p, ExpirationParams{})
	want := obs.Add(2 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestComputeExpirationTWGOSmart(t *testing.T) {
	stop := time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
	p := &Product{Type: TypeSIGMET, EndOfValidity: stop}
	got := ComputeExpiration(p, ExpirationParams{})
	want := stop.Add(time.Hour)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestComputeExpirationTWGOBypassSmart(t *testing.T) {
	stop := time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
	p := &Product{Type: TypeSIGMET, EndOfValidity: stop}
	got := ComputeExpiration(p, ExpirationParams{BypassSmartExpiration: true})
	if !got.Equal(stop) {
		t.Fatalf("got %v, want %v", got, stop)
	}
}

func TestComputeExpirationTWGOUsesLatestGeometryElement(t *testing.T) {
	stop := time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
	later := stop.Add(3 * time.Hour)
	elem := geo.Pt(orb.Point{-97.5, 35.2})
	elem.ValidTo = later
	p := &Product{
		Type:          TypeAIRMET,
		EndOfValidity: stop,
		Geometry:      []geo.Element{elem},
	}
	got := ComputeExpiration(p, ExpirationParams{BypassSmartExpiration: true})
	if !got.Equal(later) {
		t.Fatalf("got %v, want %v", got, later)
	}
}

func TestComputeExpirationRSR(t *testing.T) {
	rcvd := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	p := &Product{Type: TypeRSR, RcvdTime: rcvd}
	got := ComputeExpiration(p, ExpirationParams{RSRWindow: 30 * time.Second})
	want := rcvd.Add(40 * time.Second)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
