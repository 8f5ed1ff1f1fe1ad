package reassembly

import (
	"sync"
	"time"

	"fisbd/internal/clock"
	"fisbd/internal/errsink"
	"fisbd/internal/product"
)

// TWGOKey identifies one text/graphics pair (spec §4.2: "keyed by
// (product-id, report-number, report-year)").
type TWGOKey struct {
	ProductID    int
	ReportNumber int
	ReportYear   int
}

// TWGOState is the pairing state machine's current state (spec §4.2:
// TextOnly -> GraphicsPending -> Paired, or -> Cancelled at any point).
type TWGOState int

const (
	TWGOTextOnly TWGOState = iota
	TWGOGraphicsPending
	TWGOPaired
	TWGOCancelled
)

// twgoEntry is one in-progress pairing.
type twgoEntry struct {
	state    TWGOState
	text     *product.Product
	graphics *product.Product
	touched  time.Time
}

// PairTracker holds in-progress TWGO pairings.
type PairTracker struct {
	mu      sync.Mutex
	entries map[TWGOKey]*twgoEntry
	ttl     time.Duration
	clock   clock.Clock
	sink    *errsink.Sink
}

// NewPairTracker builds a TWGO PairTracker with the given TTL for orphaned
// halves (spec §4.2 TWGO-TTL).
func NewPairTracker(ttl time.Duration, c clock.Clock, sink *errsink.Sink) *PairTracker {
	return &PairTracker{
		entries: make(map[TWGOKey]*twgoEntry),
		ttl:     ttl,
		clock:   c,
		sink:    sink,
	}
}

// AddText registers the text half of a TWGO product. Text records are
// emitted immediately and retained for matching (spec §4.2): the return is
// always (product, true), either the bare text or, if a graphics half is
// already active, the freshly re-merged pair.
func (pt *PairTracker) AddText(key TWGOKey, p *product.Product) (*product.Product, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.add(key, p, true)
}

// AddGraphics registers the graphics half of a TWGO product. A graphics
// record is buffered until its matching text is active (spec §4.2): returns
// (nil, false) until a text half is present, then the merged pair.
func (pt *PairTracker) AddGraphics(key TWGOKey, p *product.Product) (*product.Product, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.add(key, p, false)
}

// add implements the TWGO pairing state machine. The entry is never deleted
// on pairing: "Paired is emitted downstream and also retained for
// replacement" (spec §4.2 state machine), so a later graphics retransmission
// re-pairs against the active text instead of finding no entry at all.
func (pt *PairTracker) add(key TWGOKey, p *product.Product, isText bool) (*product.Product, bool) {
	now := pt.clock.Now()
	e, ok := pt.entries[key]
	if !ok {
		e = &twgoEntry{state: TWGOTextOnly, touched: now}
		pt.entries[key] = e
	}
	e.touched = now

	if isText {
		e.text = p
		if e.graphics != nil {
			e.state = TWGOPaired
			return mergePaired(e.text, e.graphics), true
		}
		e.state = TWGOTextOnly
		return p, true
	}

	e.graphics = p
	if e.text != nil {
		e.state = TWGOPaired
		return mergePaired(e.text, e.graphics), true
	}
	e.state = TWGOGraphicsPending
	return nil, false
}

// Cancel marks a pairing cancelled (report-status=0, spec §4.2) and removes
// both halves, returning a cancellation marker product if either half had
// already arrived.
func (pt *PairTracker) Cancel(key TWGOKey, typ product.Type, uniqueName string) *product.Product {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	_, existed := pt.entries[key]
	delete(pt.entries, key)
	if !existed {
		return nil
	}
	return &product.Product{
		Type:       typ,
		UniqueName: uniqueName,
		Cancelled:  true,
		RcvdTime:   pt.clock.Now(),
	}
}

// mergePaired combines a text and graphics half into one Product: the text
// half's contents carry the narrative, the graphics half's geometry carries
// the vector overlay, and timestamps follow the later-arriving half.
func mergePaired(text, graphics *product.Product) *product.Product {
	out := *text
	out.Geometry = graphics.Geometry
	if graphics.RcvdTime.After(out.RcvdTime) {
		out.RcvdTime = graphics.RcvdTime
	}
	return &out
}

// Sweep discards pairings that have sat inactive longer than the TWGO TTL,
// logging each as an orphan (spec §7 error taxonomy item 5). A text half is
// already emitted the moment it arrives (AddText), so discarding an active
// or paired entry here is just bookkeeping, not a forward; only a graphics
// half that never found its matching text is genuinely orphaned and is
// forwarded on its own as a best-effort degraded product, per spec §4.2's
// forwarding note.
func (pt *PairTracker) Sweep() []*product.Product {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	now := pt.clock.Now()
	var orphans []*product.Product
	for key, e := range pt.entries {
		if now.Sub(e.touched) <= pt.ttl {
			continue
		}
		delete(pt.entries, key)

		kind := "text"
		if e.text == nil {
			kind = "graphics"
			if e.graphics != nil {
				orphans = append(orphans, e.graphics)
			}
		}
		if pt.sink != nil {
			pt.sink.Append(errsink.KindTWGOOrphan, "TWGO pairing orphaned before completion", map[string]any{
				"product_id":    key.ProductID,
				"report_number": key.ReportNumber,
				"report_year":   key.ReportYear,
				"have":          kind,
			})
		}
	}
	return orphans
}

// Open reports how many pairings are currently in progress, for diagnostics.
func (pt *PairTracker) Open() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.entries)
}
