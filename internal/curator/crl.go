package curator

import (
	"context"
	"fmt"

	"fisbd/internal/product"
)

// reconcileCRL recomputes the `status` annotation on a just-stored CRL
// (spec §4.5 "CRL reconciliation. On each update to a CRL-bearing product,
// or to the CRL itself, the Curator recomputes the CRL status annotation:
// complete if overflow=false and, for every listed report-number, the
// corresponding record exists with all parts... and is not expired; else
// incomplete.").
//
// A listed report-number is resolved against any currently-stored
// TWGO-paired product at the same station carrying that report number —
// this module's own convention, since no CRL class in this build names a
// single target product type 1:1 (a CRL can list reports spanning several
// TWGO-bearing types, e.g. both AIRMET and G-AIRMET share report-number
// space at a station in this implementation).
func (c *Curator) reconcileCRL(ctx context.Context, crl *product.Product) error {
	list := crl.CRL
	if list == nil {
		return nil
	}

	if list.Overflow {
		list.Status = "incomplete"
		return c.db.Upsert(ctx, crl)
	}

	candidates, err := c.twgoCandidates(ctx, list.Station)
	if err != nil {
		return fmt.Errorf("curator: load twgo candidates: %w", err)
	}

	now := c.clk.Now()
	complete := true
	for _, entry := range list.Entries {
		rec, ok := candidates[entry.ReportNumber]
		if !ok {
			complete = false
			break
		}
		if !rec.ExpirationTime.IsZero() && !rec.ExpirationTime.After(now) {
			complete = false
			break
		}
		if entry.HasText && rec.Contents == "" {
			complete = false
			break
		}
		if entry.HasGraphics && len(rec.Geometry) == 0 {
			complete = false
			break
		}
	}

	if complete {
		list.Status = "complete"
	} else {
		list.Status = "incomplete"
	}
	return c.db.Upsert(ctx, crl)
}

// twgoCandidates indexes every currently-stored TWGO-bearing product at
// station by report number.
func (c *Curator) twgoCandidates(ctx context.Context, station string) (map[int]*product.Product, error) {
	out := make(map[int]*product.Product)
	for typ := range product.TWGOTypes {
		recs, err := c.db.ListByType(ctx, typ)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if r.Station != station {
				continue
			}
			out[r.ReportNumber] = r
		}
	}
	return out, nil
}

// ImmediateCRLDelete implements the optional "immediate-crl-update" policy
// (spec §4.5 "Optionally, a CRL entry can trigger immediate removal of
// locally-stored reports that the station no longer lists."): any stored
// TWGO record at this CRL's station whose report number is absent from the
// CRL's entry list is deleted.
func (c *Curator) ImmediateCRLDelete(ctx context.Context, crl *product.Product) error {
	if !c.cfg.ImmediateCRLUpdate || crl.CRL == nil {
		return nil
	}
	listed := make(map[int]bool, len(crl.CRL.Entries))
	for _, e := range crl.CRL.Entries {
		listed[e.ReportNumber] = true
	}

	candidates, err := c.twgoCandidates(ctx, crl.CRL.Station)
	if err != nil {
		return err
	}
	for num, rec := range candidates {
		if !listed[num] {
			if err := c.db.Delete(ctx, rec.Type, rec.UniqueName); err != nil {
				return fmt.Errorf("curator: immediate crl delete: %w", err)
			}
		}
	}
	return nil
}
