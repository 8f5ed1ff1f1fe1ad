// Package reassembly implements L1: multi-frame segment reassembly and
// TWGO text/graphics pairing (spec §4.2).
package reassembly

import (
	"sync"
	"time"

	"fisbd/internal/clock"
	"fisbd/internal/errsink"
)

// SegmentKey identifies one in-progress multi-frame product (spec §4.2:
// "keyed by (station, product-id, report-id)").
type SegmentKey struct {
	Station   string
	ProductID int
	ReportID  int
}

// SegmentStatus is the lifecycle state of a segment (spec §4.2 state
// machine: Open -> Completed | Expired).
type SegmentStatus int

const (
	SegmentOpen SegmentStatus = iota
	SegmentCompleted
	SegmentExpired
)

// Segment accumulates frames for one multi-frame product until every frame
// index from 0..Total-1 has been seen.
type Segment struct {
	Key     SegmentKey
	Status  SegmentStatus
	Total   int
	frames  map[int][]byte
	opened  time.Time
	touched time.Time
}

func newSegment(key SegmentKey, total int, now time.Time) *Segment {
	return &Segment{
		Key:     key,
		Status:  SegmentOpen,
		Total:   total,
		frames:  make(map[int][]byte, total),
		opened:  now,
		touched: now,
	}
}

// complete reports whether every frame 0..Total-1 has arrived.
func (s *Segment) complete() bool {
	if len(s.frames) != s.Total {
		return false
	}
	for i := 0; i < s.Total; i++ {
		if _, ok := s.frames[i]; !ok {
			return false
		}
	}
	return true
}

// Assemble concatenates the frames in order. Only valid once complete()
// is true.
func (s *Segment) Assemble() []byte {
	var out []byte
	for i := 0; i < s.Total; i++ {
		out = append(out, s.frames[i]...)
	}
	return out
}

// Tracker holds all open segments and evicts ones that time out before
// completion (spec §4.2, segment TTL).
type Tracker struct {
	mu       sync.Mutex
	segments map[SegmentKey]*Segment
	ttl      time.Duration
	clock    clock.Clock
	sink     *errsink.Sink
}

// NewTracker builds a segment Tracker with the given TTL and clock source.
func NewTracker(ttl time.Duration, c clock.Clock, sink *errsink.Sink) *Tracker {
	return &Tracker{
		segments: make(map[SegmentKey]*Segment),
		ttl:      ttl,
		clock:    c,
		sink:     sink,
	}
}

// AddFrame adds one frame of a multi-frame product. When the frame
// completes the segment, AddFrame returns the assembled payload and true;
// otherwise it returns (nil, false) while the segment stays open.
func (tr *Tracker) AddFrame(key SegmentKey, frameIndex, total int, payload []byte) ([]byte, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := tr.clock.Now()
	seg, ok := tr.segments[key]
	if !ok {
		seg = newSegment(key, total, now)
		tr.segments[key] = seg
	}
	seg.frames[frameIndex] = payload
	seg.touched = now

	if seg.complete() {
		seg.Status = SegmentCompleted
		delete(tr.segments, key)
		return seg.Assemble(), true
	}
	return nil, false
}

// Sweep evicts segments that have sat open longer than the TTL, logging
// each to the error sink as a segment-timeout (spec §7 error taxonomy
// item 4). Returns the number of segments evicted.
func (tr *Tracker) Sweep() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := tr.clock.Now()
	evicted := 0
	for key, seg := range tr.segments {
		if now.Sub(seg.touched) <= tr.ttl {
			continue
		}
		seg.Status = SegmentExpired
		delete(tr.segments, key)
		evicted++
		if tr.sink != nil {
			tr.sink.Append(errsink.KindSegmentTimeout, "segment expired before completion", map[string]any{
				"station":    key.Station,
				"product_id": key.ProductID,
				"report_id":  key.ReportID,
				"have":       len(seg.frames),
				"want":       seg.Total,
			})
		}
	}
	return evicted
}

// Open reports how many segments are currently open, for diagnostics.
func (tr *Tracker) Open() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.segments)
}
