package decode

import (
	"testing"
	"time"

	"fisbd/internal/registry"
)

func TestMETARDecoderSynthesizesObservation(t *testing.T) {
	rcvd := time.Date(2021, 5, 14, 7, 18, 0, 0, time.UTC)
	f := registry.Frame{
		ProductID: idMETAR,
		Station:   "KOCQ-ground",
		RcvdTime:  rcvd,
		Payload:   []byte("METAR KOCQ 140715Z AUTO 00000KT 10SM OVC120 03/02 A3025 RMK AO1 T00310016="),
	}

	d := &METARDecoder{}
	products, err := d.Decode(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	p := products[0]
	if p.UniqueName != "KOCQ" {
		t.Fatalf("got unique_name %q, want KOCQ", p.UniqueName)
	}
	wantObs := time.Date(2021, 5, 14, 7, 15, 0, 0, time.UTC)
	if !p.ObservationTime.Equal(wantObs) {
		t.Fatalf("got observation_time %v, want %v", p.ObservationTime, wantObs)
	}
	wantExp := time.Date(2021, 5, 14, 9, 15, 0, 0, time.UTC)
	if !p.ExpirationTime.Equal(wantExp) {
		t.Fatalf("got expiration_time %v, want %v", p.ExpirationTime, wantExp)
	}
}
