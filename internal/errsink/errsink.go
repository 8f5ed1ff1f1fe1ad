// Package errsink implements the per-stage error sink described in spec §7:
// an append-only record of dropped input, truncated at each stage start, and
// the sole failure-visibility surface for L0-L3 (which never fatal on a
// single bad packet).
package errsink

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind enumerates the error taxonomy from spec §7.
type Kind string

const (
	KindLineFormat       Kind = "line_format"
	KindDecode           Kind = "decode"
	KindTimeReconstruct  Kind = "time_reconstruct"
	KindSegmentTimeout   Kind = "segment_timeout"
	KindTWGOOrphan       Kind = "twgo_orphan"
	KindStore            Kind = "store"
	KindImageBlock       Kind = "image_block"
	KindTestAssertion    Kind = "test_assertion"
)

// Entry is one recorded failure.
type Entry struct {
	Time    time.Time      `json:"time"`
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Sink is a bounded, append-only ring of Entry, one per pipeline stage.
// Truncated (emptied) at stage start per spec §7 propagation policy.
type Sink struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	log     zerolog.Logger
}

// New creates a Sink bounded to cap entries (oldest evicted on overflow).
func New(log zerolog.Logger, cap int) *Sink {
	if cap <= 0 {
		cap = 10000
	}
	return &Sink{cap: cap, log: log}
}

// Append records one failure and logs it at Warn.
func (s *Sink) Append(kind Kind, msg string, context map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Time: time.Now().UTC(), Kind: kind, Message: msg, Context: context}
	s.entries = append(s.entries, e)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}

	ev := s.log.Warn().Str("kind", string(kind))
	for k, v := range context {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Truncate clears the sink. Called once at stage start.
func (s *Sink) Truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Entries returns a snapshot of currently recorded failures, newest last.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Empty reports whether the sink currently holds no entries — the sole
// success signal per spec §7 ("non-empty error files... are the sole
// failure signal").
func (s *Sink) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) == 0
}
