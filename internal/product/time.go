// Time reconstruction: lifting the FAA wire format's partial timestamps
// (month+day+hour+minute, day+hour+minute, or hour+minute+second) to
// absolute ISO-8601 UTC instants, anchored on packet receive time (spec §4.3).
package product

import "time"

// Field enumerates which calendar fields a partial timestamp carries.
type Field int

const (
	FieldMonth Field = iota
	FieldDay
	FieldHour
	FieldMinute
	FieldSecond
)

// Partial is a partially-specified timestamp as decoded from the wire; only
// the fields listed in Present are meaningful.
type Partial struct {
	Month, Day, Hour, Minute, Second int
	Present                          map[Field]bool
}

// Horizon gives the allowed past/future window for one product's anchor,
// per the table in spec §4.3.
type Horizon struct {
	Past   time.Duration
	Future time.Duration
}

// Anchor pairs a reference instant ("now" for most products, "issued" for
// TAF valid_begin) with the horizon to apply against it.
type Anchor struct {
	At      time.Time
	Horizon Horizon
}

// Reconstruct lifts a Partial timestamp to an absolute UTC instant using
// anchor.At to fill missing high-order fields, then corrects wraparound by
// adding/subtracting one unit of the next-missing-higher field so the result
// falls within [anchor.At - Horizon.Past, anchor.At + Horizon.Future],
// breaking ties by minimizing |candidate - anchor.At| (spec §4.3).
//
// Returns ok=false if no candidate (original, +1 unit, -1 unit) falls inside
// the allowed window — spec §7 error taxonomy item 3, Time-reconstruction error.
func Reconstruct(p Partial, anchor Anchor) (t time.Time, ok bool) {
	now := anchor.At.UTC()

	month := now.Month()
	day := now.Day()
	hour := now.Hour()
	minute := now.Minute()
	second := 0

	if p.Present[FieldMonth] {
		month = time.Month(p.Month)
	}
	if p.Present[FieldDay] {
		day = p.Day
	}
	if p.Present[FieldHour] {
		hour = p.Hour
	}
	if p.Present[FieldMinute] {
		minute = p.Minute
	}
	if p.Present[FieldSecond] {
		second = p.Second
	}

	base := time.Date(now.Year(), month, day, hour, minute, second, 0, time.UTC)

	// The "next-missing-higher field" correction: the field one level above
	// the highest-order field present in the wire message is the one we
	// adjust by one unit when the naive candidate falls outside the window
	// (months for day+hour+minute, days for hour+minute+second).
	var candidates []time.Time
	candidates = append(candidates, base)

	switch highestPresent(p.Present) {
	case FieldMonth:
		candidates = append(candidates, base.AddDate(1, 0, 0), base.AddDate(-1, 0, 0))
	case FieldDay:
		candidates = append(candidates, base.AddDate(0, 1, 0), base.AddDate(0, -1, 0))
	case FieldHour:
		candidates = append(candidates, base.AddDate(0, 0, 1), base.AddDate(0, 0, -1))
	case FieldMinute:
		candidates = append(candidates, base.Add(time.Hour), base.Add(-time.Hour))
	default:
		candidates = append(candidates, base.Add(time.Minute), base.Add(-time.Minute))
	}

	lo := now.Add(-anchor.Horizon.Past)
	hi := now.Add(anchor.Horizon.Future)

	var best time.Time
	var bestDelta time.Duration
	found := false
	for _, c := range candidates {
		if c.Before(lo) || c.After(hi) {
			continue
		}
		d := absDuration(c.Sub(now))
		if !found || d < bestDelta {
			best, bestDelta, found = c, d, true
		}
	}

	return best, found
}

// highestPresent returns the highest-order (earliest in the list) field
// in present, defaulting to FieldSecond (i.e. "adjust by a minute") when
// none of month through minute was supplied.
func highestPresent(present map[Field]bool) Field {
	for _, f := range []Field{FieldMonth, FieldDay, FieldHour, FieldMinute} {
		if present[f] {
			return f
		}
	}
	return FieldSecond
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Per-product horizons, spec §4.3 table. Anchor is supplied by the caller
// (rcvd time for most, issued time for TAF valid_begin).
var (
	HorizonMETARObservation = Horizon{Past: 3 * time.Hour, Future: 30 * time.Minute}
	HorizonTAFIssued        = Horizon{Past: 6 * time.Hour, Future: time.Hour}
	HorizonTAFValidBegin    = Horizon{Past: 0, Future: 30 * time.Hour}
	HorizonWindsValid       = Horizon{Past: 6 * time.Hour, Future: 30 * time.Hour}
	HorizonTWGOBegin        = Horizon{Past: 6 * time.Hour, Future: 24 * time.Hour}
	HorizonNOTAMStart       = Horizon{Past: 30 * 24 * time.Hour, Future: 365 * 24 * time.Hour}
)
