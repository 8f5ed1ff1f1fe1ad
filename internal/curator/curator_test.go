package curator

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"fisbd/internal/clock"
	"fisbd/internal/config"
	"fisbd/internal/errsink"
	"fisbd/internal/logging"
	"fisbd/internal/product"
	"fisbd/internal/spool"
	"fisbd/internal/store"
)

func newTestCurator(t *testing.T) (*Curator, *clock.Offset) {
	t.Helper()
	dir := t.TempDir()

	db, err := store.OpenSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.SpoolDir = filepath.Join(dir, "spool")
	cfg.ImageDir = filepath.Join(dir, "images")

	clk := clock.NewOffset(0)
	sink := errsink.New(logging.New("curator-test", io.Discard), 100)
	c := New(cfg, db, clk, sink, logging.New("curator-test", io.Discard), nil)
	return c, clk
}

func TestCuratorUpsertAndGet(t *testing.T) {
	c, clk := newTestCurator(t)
	ctx := context.Background()

	p := &product.Product{
		Type:           product.TypeMETAR,
		UniqueName:     "KPIT",
		Contents:       "METAR KPIT 311200Z",
		ExpirationTime: clk.Now().Add(2 * time.Hour),
	}
	if err := c.Apply(ctx, p); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := c.db.Get(ctx, product.TypeMETAR, "KPIT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Contents != p.Contents {
		t.Fatalf("expected stored METAR, got %+v", got)
	}
	if got.InsertTime.IsZero() {
		t.Fatalf("expected insert_time to be set on upsert")
	}
}

func TestCuratorMaintenanceTickExpires(t *testing.T) {
	c, clk := newTestCurator(t)
	ctx := context.Background()

	p := &product.Product{
		Type:           product.TypeMETAR,
		UniqueName:     "KPIT",
		ExpirationTime: clk.Now().Add(1 * time.Second),
	}
	if err := c.Apply(ctx, p); err != nil {
		t.Fatalf("apply: %v", err)
	}

	clk.Delta = func() time.Duration { return 2 * time.Second }
	if err := c.MaintenanceTick(ctx); err != nil {
		t.Fatalf("maintenance tick: %v", err)
	}

	got, err := c.db.Get(ctx, product.TypeMETAR, "KPIT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected product to be expired and removed, got %+v", got)
	}
}

func TestCuratorCRLReconciliationComplete(t *testing.T) {
	c, clk := newTestCurator(t)
	ctx := context.Background()

	airmet := &product.Product{
		Type:           product.TypeAIRMET,
		UniqueName:     "KC-AIRMET-7",
		Station:        "KC",
		Contents:       "AIRMET TANGO",
		ReportNumber:   7,
		ExpirationTime: clk.Now().Add(time.Hour),
	}
	if err := c.Apply(ctx, airmet); err != nil {
		t.Fatalf("apply airmet: %v", err)
	}

	crl := &product.Product{
		Type:           product.TypeCRL11,
		UniqueName:     "KC",
		Station:        "KC",
		ExpirationTime: clk.Now().Add(time.Hour),
		CRL: &product.CRLList{
			Station: "KC",
			Entries: []product.CRLEntry{{ReportNumber: 7, HasText: true}},
		},
	}
	if err := c.Apply(ctx, crl); err != nil {
		t.Fatalf("apply crl: %v", err)
	}

	got, err := c.db.Get(ctx, product.TypeCRL11, "KC")
	if err != nil {
		t.Fatalf("get crl: %v", err)
	}
	if got == nil || got.CRL == nil {
		t.Fatalf("expected stored crl")
	}
	if got.CRL.Status != "complete" {
		t.Fatalf("expected complete status, got %q", got.CRL.Status)
	}
}

func TestCuratorCRLOverflowIsIncomplete(t *testing.T) {
	c, clk := newTestCurator(t)
	ctx := context.Background()

	crl := &product.Product{
		Type:           product.TypeCRL12,
		UniqueName:     "KC",
		Station:        "KC",
		ExpirationTime: clk.Now().Add(time.Hour),
		CRL: &product.CRLList{
			Station:  "KC",
			Overflow: true,
		},
	}
	if err := c.Apply(ctx, crl); err != nil {
		t.Fatalf("apply crl: %v", err)
	}

	got, err := c.db.Get(ctx, product.TypeCRL12, "KC")
	if err != nil {
		t.Fatalf("get crl: %v", err)
	}
	if got.CRL.Status != "incomplete" {
		t.Fatalf("expected incomplete status on overflow, got %q", got.CRL.Status)
	}
}

func TestCuratorRunDrainsSpool(t *testing.T) {
	c, clk := newTestCurator(t)
	ctx := context.Background()

	w, err := spool.NewWriter(c.cfg.SpoolDir)
	if err != nil {
		t.Fatalf("new spool writer: %v", err)
	}
	p := &product.Product{
		Type:           product.TypeMETAR,
		UniqueName:     "KPIT",
		ExpirationTime: clk.Now().Add(time.Hour),
	}
	if err := w.Write(p); err != nil {
		t.Fatalf("spool write: %v", err)
	}

	if err := c.Run(ctx); err != nil {
		t.Fatalf("curator run: %v", err)
	}

	entries, err := spool.List(c.cfg.SpoolDir)
	if err != nil {
		t.Fatalf("list spool: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected spool drained, got %d entries", len(entries))
	}

	got, err := c.db.Get(ctx, product.TypeMETAR, "KPIT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected spooled product to be applied")
	}
}
