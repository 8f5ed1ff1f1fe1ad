package acdu

import (
	"math"
	"sync"
	"time"
)

// Station is the per-ground-station record spec §3 "Station Registry"
// requires: identity, last-heard time, and rolling packet counters for RSR.
type Station struct {
	ID           string
	LastHeard    time.Time
	ExpectedRate float64 // packets/sec, from calibration table or schedule
}

// Registry tracks every ground station observed and maintains each one's
// sliding reception-rate window for RSR synthesis (spec §4.1 "RSR").
type Registry struct {
	mu       sync.Mutex
	stations map[string]*Station
	window   time.Duration
	calib    map[string]float64 // per-station expected-packets-per-second override
	received map[string][]time.Time
}

// NewRegistry builds a Registry with the given RSR sliding-window width.
func NewRegistry(window time.Duration, calibration map[string]float64) *Registry {
	return &Registry{
		stations: make(map[string]*Station),
		window:   window,
		calib:    calibration,
		received: make(map[string][]time.Time),
	}
}

// Observe records one received packet from a station at t, updating
// last-heard and the rolling reception window.
func (reg *Registry) Observe(id string, lat, lon float64, t time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	st, ok := reg.stations[id]
	if !ok {
		st = &Station{ID: id, ExpectedRate: reg.expectedRate(id)}
		reg.stations[id] = st
	}
	st.LastHeard = t

	ts := append(reg.received[id], t)
	cutoff := t.Add(-reg.window)
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	reg.received[id] = ts[i:]
}

func (reg *Registry) expectedRate(id string) float64 {
	if r, ok := reg.calib[id]; ok {
		return r
	}
	// Default calibration: FIS-B ground stations typically broadcast one
	// uplink per MSO slot cluster; absent a per-station entry this module
	// assumes one packet per second.
	return 1.0
}

// RSRReport is the synthetic product spec §4.1 describes:
// `{station: [received, expected_per_sec, percent]}`.
type RSRReport struct {
	Station        string
	Received       int
	ExpectedPerSec float64
	Percent        int
}

// Snapshot computes one RSRReport per known station as of now, using the
// current W-second window (spec §4.1 RSR formula).
func (reg *Registry) Snapshot(now time.Time) []RSRReport {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	windowSecs := reg.window.Seconds()
	out := make([]RSRReport, 0, len(reg.stations))
	for id, st := range reg.stations {
		ts := reg.received[id]
		cutoff := now.Add(-reg.window)
		received := 0
		for _, t := range ts {
			if !t.Before(cutoff) {
				received++
			}
		}
		expected := st.ExpectedRate * windowSecs
		pct := 100
		if expected > 0 {
			pct = int(math.Round(100.0 * float64(received) / expected))
			if pct > 100 {
				pct = 100
			}
		}
		out = append(out, RSRReport{
			Station:        id,
			Received:       received,
			ExpectedPerSec: st.ExpectedRate,
			Percent:        pct,
		})
	}
	return out
}

// Stations returns a snapshot of every known station, for diagnostics.
func (reg *Registry) Stations() []Station {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]Station, 0, len(reg.stations))
	for _, st := range reg.stations {
		out = append(out, *st)
	}
	return out
}
