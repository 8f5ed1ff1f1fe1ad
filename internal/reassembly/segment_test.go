package reassembly

import (
	"testing"
	"time"

	"fisbd/internal/clock"
	"fisbd/internal/errsink"
	"fisbd/internal/logging"
)

func newTestSink() *errsink.Sink {
	return errsink.New(logging.New("test", nil), 100)
}

func TestTrackerAssemblesInOrder(t *testing.T) {
	c := clock.NewOffset(0)
	tr := NewTracker(time.Minute, c, newTestSink())
	key := SegmentKey{Station: "KXYZ", ProductID: 413, ReportID: 7}

	if _, done := tr.AddFrame(key, 1, 3, []byte("BC")); done {
		t.Fatalf("expected incomplete after 1 of 3 frames")
	}
	if _, done := tr.AddFrame(key, 0, 3, []byte("A")); done {
		t.Fatalf("expected incomplete after 2 of 3 frames")
	}
	got, done := tr.AddFrame(key, 2, 3, []byte("D"))
	if !done {
		t.Fatalf("expected completion on final frame")
	}
	if string(got) != "ABCD" {
		t.Fatalf("got %q, want %q", got, "ABCD")
	}
	if tr.Open() != 0 {
		t.Fatalf("expected no open segments after completion")
	}
}

func TestTrackerSweepEvictsStale(t *testing.T) {
	c := clock.NewOffset(0)
	tr := NewTracker(time.Second, c, newTestSink())
	key := SegmentKey{Station: "KXYZ", ProductID: 413, ReportID: 8}

	tr.AddFrame(key, 0, 2, []byte("A"))
	if tr.Open() != 1 {
		t.Fatalf("expected 1 open segment")
	}

	c.Delta = func() time.Duration { return 2 * time.Second }
	if n := tr.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if tr.Open() != 0 {
		t.Fatalf("expected no open segments after sweep")
	}
}
