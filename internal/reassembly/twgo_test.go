package reassembly

import (
	"testing"
	"time"

	"fisbd/internal/clock"
	"fisbd/internal/product"
)

func TestPairTrackerPairsTextThenGraphics(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Hour, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 42, ReportYear: 26}

	text := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-42-26", Contents: "SIGMET TEXT"}
	bare, emitted := pt.AddText(key, text)
	if !emitted || bare != text {
		t.Fatalf("expected text to be emitted immediately")
	}
	if pt.Open() != 1 {
		t.Fatalf("expected text retained for matching")
	}

	gfx := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-42-26"}
	merged, paired := pt.AddGraphics(key, gfx)
	if !paired {
		t.Fatalf("expected pairing to complete once graphics arrive")
	}
	if merged.Contents != "SIGMET TEXT" {
		t.Fatalf("expected merged product to carry text contents")
	}
	if pt.Open() != 1 {
		t.Fatalf("expected paired entry retained for replacement")
	}
}

func TestPairTrackerGraphicsWaitsForText(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Hour, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 43, ReportYear: 26}

	gfx := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-43-26"}
	if _, paired := pt.AddGraphics(key, gfx); paired {
		t.Fatalf("expected graphics to buffer until text is active")
	}

	text := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-43-26", Contents: "SIGMET TEXT"}
	merged, paired := pt.AddText(key, text)
	if !paired {
		t.Fatalf("expected pairing to complete once text arrives")
	}
	if merged.Contents != "SIGMET TEXT" {
		t.Fatalf("expected merged product to carry text contents")
	}
}

func TestPairTrackerRepairsOnGraphicsRetransmission(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Hour, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 44, ReportYear: 26}

	text := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-44-26", Contents: "SIGMET TEXT"}
	pt.AddText(key, text)

	gfx1 := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-44-26"}
	if _, paired := pt.AddGraphics(key, gfx1); !paired {
		t.Fatalf("expected first graphics to pair with the active text")
	}

	// A graphics retransmission for the same report must still find the
	// active text and re-pair, instead of the entry having been deleted.
	gfx2 := &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-44-26"}
	merged, paired := pt.AddGraphics(key, gfx2)
	if !paired {
		t.Fatalf("expected graphics retransmission to re-pair against retained text")
	}
	if merged.Contents != "SIGMET TEXT" {
		t.Fatalf("expected re-merged product to still carry text contents")
	}
}

func TestPairTrackerCancelRemovesEntry(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Hour, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 99, ReportYear: 26}

	pt.AddText(key, &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-99-26"})
	cancel := pt.Cancel(key, product.TypeSIGMET, "SIGMET-99-26")
	if cancel == nil || !cancel.Cancelled {
		t.Fatalf("expected cancellation marker product")
	}
	if pt.Open() != 0 {
		t.Fatalf("expected pairing removed after cancel")
	}
}

func TestPairTrackerSweepOrphansStaleGraphicsOnly(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Second, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 7, ReportYear: 26}

	pt.AddGraphics(key, &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-7-26"})

	c.Delta = func() time.Duration { return 2 * time.Second }
	orphans := pt.Sweep()
	if len(orphans) != 1 {
		t.Fatalf("expected 1 orphan, got %d", len(orphans))
	}
	if pt.Open() != 0 {
		t.Fatalf("expected no open pairings after sweep")
	}
}

func TestPairTrackerSweepDoesNotReemitActiveText(t *testing.T) {
	c := clock.NewOffset(0)
	pt := NewPairTracker(time.Second, c, newTestSink())
	key := TWGOKey{ProductID: 6, ReportNumber: 8, ReportYear: 26}

	pt.AddText(key, &product.Product{Type: product.TypeSIGMET, UniqueName: "SIGMET-8-26"})

	c.Delta = func() time.Duration { return 2 * time.Second }
	orphans := pt.Sweep()
	if len(orphans) != 0 {
		t.Fatalf("expected text already emitted on arrival, got %d orphans", len(orphans))
	}
	if pt.Open() != 0 {
		t.Fatalf("expected stale text entry discarded after sweep")
	}
}
