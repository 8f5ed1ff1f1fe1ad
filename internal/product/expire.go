// Expiration rules: when a record is no longer current and the Curator
// should drop it from the MSG collection (spec §4.3 Expiration rules,
// spec §4.5 step 2 "smart expiration" for TWGO products).
package product

import "time"

// ExpirationParams carries the inputs ComputeExpiration needs beyond the
// Product itself: the current RSR window width (for RSR's own TTL) and
// whether the Curator's smart-expiration override is in effect.
type ExpirationParams struct {
	RSRWindow             time.Duration
	BypassSmartExpiration bool
}

// ComputeExpiration sets p.ExpirationTime per the spec §4.3 table. It
// mutates p in place and returns the computed time for convenience.
func ComputeExpiration(p *Product, params ExpirationParams) time.Time {
	var exp time.Time

	switch {
	case p.Type == TypeMETAR:
		exp = p.ObservationTime.Add(2 * time.Hour)

	case p.Type == TypeTAF:
		exp = p.ValidPeriodEnd

	case p.Type == TypeWinds06 || p.Type == TypeWinds12 || p.Type == TypeWinds24:
		exp = p.ValidPeriodEnd

	case p.Type == TypePIREP:
		// PIREPs carry no validity window of their own; they age out on the
		// same 2-hour horizon as a METAR observation.
		exp = p.ObservationTime.Add(2 * time.Hour)

	case p.IsTWGO():
		exp = twgoExpiration(p, params)

	case p.Type == TypeNOTAMTFR || p.Type == TypeNOTAMFDC || p.Type == TypeNOTAMD:
		exp = p.EndOfValidity

	case p.Type == TypeSUA:
		exp = p.EndOfValidity

	case p.Type == TypeServiceStatus:
		exp = p.RcvdTime.Add(40 * time.Second)

	case p.Type == TypeRSR:
		exp = p.RcvdTime.Add(params.RSRWindow + 10*time.Second)

	case p.Type == TypeFISBUnavailable:
		exp = p.RcvdTime.Add(40 * time.Second)

	case isCRL(p.Type):
		// CRLs describe "what should be present right now"; they stay
		// current only until superseded, which the Curator enforces via
		// upsert-by-key rather than a timed expiration. Use a generous
		// safety-net TTL so a station that goes silent doesn't leave a
		// stale CRL in MSG forever.
		exp = p.RcvdTime.Add(time.Hour)

	case RadarLikeTypes[p.Type]:
		// Evicted by the image assembler's 10-minute staleness rule
		// (spec §4.5 step 4); ExpirationTime mirrors that so MSG-level
		// queries agree with the raster store.
		exp = p.RcvdTime.Add(10 * time.Minute)

	case p.Type == TypeImageCloudTops || p.Type == TypeImageIcing || p.Type == TypeImageTurbulence:
		exp = p.RcvdTime.Add(2 * time.Hour)

	case p.Type == TypeSIGWX:
		exp = p.ValidPeriodEnd

	default:
		exp = p.RcvdTime.Add(2 * time.Hour)
	}

	p.ExpirationTime = exp
	return exp
}

// twgoExpiration implements the "smart expiration" policy: a TWGO product's
// standard stop time is the latest ValidTo among its geometry elements (or
// the product's own EndOfValidity/ValidPeriodEnd if no element carries one),
// and the Curator keeps it live for one extra hour past that stop time
// unless BypassSmartExpiration is set. Bypass only removes that extra hour
// of look-ahead grace; it still derives stop from the record's own declared
// fields, so two replays of the same trigger sequence always compute the
// same expiration_time (spec §4.5 step 2, "fixed TTL for test determinism").
func twgoExpiration(p *Product, params ExpirationParams) time.Time {
	stop := p.EndOfValidity
	if stop.IsZero() {
		stop = p.ValidPeriodEnd
	}
	for _, g := range p.Geometry {
		if !g.ValidTo.IsZero() && g.ValidTo.After(stop) {
			stop = g.ValidTo
		}
	}
	if stop.IsZero() {
		// No stop time could be determined at all; fall back to the
		// standard 2-hour horizon from receipt.
		stop = p.RcvdTime.Add(2 * time.Hour)
	}
	if params.BypassSmartExpiration {
		return stop
	}
	return stop.Add(time.Hour)
}

func isCRL(t Type) bool {
	switch t {
	case TypeCRL8, TypeCRL11, TypeCRL12, TypeCRL14, TypeCRL15, TypeCRL16, TypeCRL17:
		return true
	}
	return false
}
