package decode

import (
	"time"

	"fisbd/internal/acdu"
	"fisbd/internal/product"
)

// BuildRSRProducts converts one Registry.Snapshot into RSR products (spec
// §4.1 "every E seconds emits a synthetic RSR product"). RSR is synthesized
// by L0 on a timer rather than decoded from any wire frame, so it has no
// registry.Decoder; the pipeline glue calls this directly on its RSR
// emission tick.
func BuildRSRProducts(reports []acdu.RSRReport, now time.Time, params product.ExpirationParams) []*product.Product {
	out := make([]*product.Product, 0, len(reports))
	for _, r := range reports {
		p := &product.Product{
			Type:       product.TypeRSR,
			UniqueName: r.Station,
			Station:    r.Station,
			RcvdTime:   now,
			RSR: &product.RSRData{
				Received:       r.Received,
				ExpectedPerSec: r.ExpectedPerSec,
				Percent:        r.Percent,
			},
		}
		product.ComputeExpiration(p, params)
		out = append(out, p)
	}
	return out
}
