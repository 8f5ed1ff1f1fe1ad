package decode

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// windsRe matches one station's winds-aloft line: ICAO DDHH valid, then a
// sequence of altitude/wind/temp groups, terminated by a newline.
var windsRe = regexp.MustCompile(`(?m)^([A-Z0-9]{3,4})\s+(\d{2})(\d{2})\s+(.+)$`)

// WindsDecoder splits a winds-aloft text block into per-station products,
// one decoder instance per forecast period (06/12/24 hr), selected by the
// product id it is registered against (spec §4.3 "Products split").
type WindsDecoder struct {
	ProductID int
	Type      product.Type
}

func (d *WindsDecoder) Name() string      { return "winds" }
func (d *WindsDecoder) ProductIDs() []int { return []int{d.ProductID} }

func (d *WindsDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	matches := windsRe.FindAllStringSubmatch(string(f.Payload), -1)

	var out []*product.Product
	for _, m := range matches {
		station := m[1]
		day, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])

		valid, ok := product.Reconstruct(product.Partial{
			Day: day, Hour: hour,
			Present: map[product.Field]bool{product.FieldDay: true, product.FieldHour: true},
		}, product.Anchor{At: f.RcvdTime, Horizon: product.HorizonWindsValid})
		if !ok {
			if f.Sink != nil {
				f.Sink.Append(errsink.KindTimeReconstruct, "winds valid time outside horizon", map[string]any{"station": station})
			}
			continue
		}

		p := &product.Product{
			Type:             d.Type,
			UniqueName:       station,
			Contents:         strings.TrimSpace(m[0]),
			Station:          f.Station,
			RcvdTime:         f.RcvdTime,
			ValidPeriodBegin: valid,
			ValidPeriodEnd:   valid.Add(windowFor(d.Type)),
		}
		product.ComputeExpiration(p, f.Expiration)
		out = append(out, p)
	}
	return out, nil
}

// windowFor gives each winds-aloft forecast period its nominal validity
// span, used to compute valid_period_end_time (and thus expiration_time)
// from the reconstructed begin time.
func windowFor(t product.Type) time.Duration {
	switch t {
	case product.TypeWinds06:
		return 6 * time.Hour
	case product.TypeWinds12:
		return 12 * time.Hour
	case product.TypeWinds24:
		return 24 * time.Hour
	default:
		return 6 * time.Hour
	}
}
