// Package changefilter implements L3: suppression of retransmitted
// duplicate products via a canonicalizing content digest (spec §4.4).
package changefilter

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"fisbd/internal/clock"
	"fisbd/internal/product"
)

// entry is the last-seen state for one (type, unique_name) key.
type entry struct {
	digest uint64
	seenAt time.Time
}

// Filter is the bounded cache L3 keys by (type, unique_name), deciding
// whether to forward each arriving product (spec §4.4 Rule).
type Filter struct {
	mu           sync.Mutex
	cache        map[string]entry
	refreshFloor time.Duration
	clock        clock.Clock
	alwaysPirep  bool
	cap          int
}

// New builds a Filter. refreshFloor is the heartbeat interval beyond which
// an unchanged product is re-forwarded anyway (spec §4.4: "to heartbeat the
// Curator against silent store loss"). alwaysForwardPireps implements the
// config switch for PIREP's lossy-dedup carve-out.
func New(refreshFloor time.Duration, c clock.Clock, alwaysForwardPireps bool, cap int) *Filter {
	if cap <= 0 {
		cap = 50000
	}
	return &Filter{
		cache:        make(map[string]entry),
		refreshFloor: refreshFloor,
		clock:        c,
		alwaysPirep:  alwaysForwardPireps,
		cap:          cap,
	}
}

// Allow reports whether p should be forwarded to the Curator, and updates
// the cache as a side effect when it does (spec §4.4 Rule a/b/c).
func (f *Filter) Allow(p *product.Product) bool {
	if f.alwaysPirep && p.Type == product.TypePIREP {
		return true
	}

	digest := Digest(p)
	key := p.Key()
	now := f.clock.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.cache[key]
	forward := !ok || prev.digest != digest || now.Sub(prev.seenAt) > f.refreshFloor
	if forward {
		f.cache[key] = entry{digest: digest, seenAt: now}
		if len(f.cache) > f.cap {
			f.evictOldest()
		}
	}
	return forward
}

func (f *Filter) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range f.cache {
		if first || e.seenAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.seenAt, false
		}
	}
	if !first {
		delete(f.cache, oldestKey)
	}
}

// Size reports the number of keys currently tracked, for diagnostics.
func (f *Filter) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

// Digest computes the canonicalizing content digest over p's
// content-significant fields, excluding rcvd_time/insert_time and other
// purely receive-side metadata (spec §4.4).
func Digest(p *product.Product) uint64 {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	writeTime := func(t time.Time) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(t.UTC().Unix()))
		_, _ = h.Write(buf[:])
	}

	write(string(p.Type))
	write(p.UniqueName)
	write(p.Contents)
	writeTime(p.IssuedTime)
	writeTime(p.ObservationTime)
	writeTime(p.ValidPeriodBegin)
	writeTime(p.ValidPeriodEnd)
	writeTime(p.ModelRunTime)
	writeTime(p.StartOfActivity)
	writeTime(p.EndOfValidity)
	writeTime(p.ExpirationTime)
	for _, g := range p.Geometry {
		wkt, _ := g.WKT()
		write(wkt)
	}
	if p.Block != nil {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(p.Block.BlockNumber))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(p.Block.Bins)
	}
	if p.CRL != nil {
		for _, e := range p.CRL.Entries {
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], uint32(e.ReportNumber))
			_, _ = h.Write(buf[:])
			if e.HasText {
				write("T")
			}
			if e.HasGraphics {
				write("G")
			}
		}
		if p.CRL.Overflow {
			write("OVF")
		}
	}
	if p.Cancelled {
		write("CANCELLED")
	}
	return h.Sum64()
}
