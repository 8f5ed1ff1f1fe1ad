package decode

import (
	"regexp"
	"strconv"
	"strings"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// pirepRe matches one PIREP/AIREP report: a UA or UUA prefix, a
// location reference optionally suffixed with a 3-digit magnetic radial and
// 3-digit NM distance from that fix, and a body ending at '=' or end of
// block.
var pirepRe = regexp.MustCompile(`(?m)(U[AU]A?)\s*/OV\s*([A-Z0-9]{3,6})(?:(\d{3})(\d{3}))?\s*/TM\s*(\d{2})(\d{2})\s*(.+?)(?:\s*=|$)`)

// PIREPDecoder splits a text block into individual PIREP products. PIREPs
// carry no self-describing unique key on the wire, so the decoder mints one
// from fix and report time, matching spec §3's "unique_name uniquely
// identifies this product instance within its type".
type PIREPDecoder struct{}

func (d *PIREPDecoder) Name() string      { return "pirep" }
func (d *PIREPDecoder) ProductIDs() []int { return []int{idPIREPText} }

func (d *PIREPDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	matches := pirepRe.FindAllStringSubmatch(string(f.Payload), -1)

	var out []*product.Product
	for _, m := range matches {
		urgent := m[1] == "UUA"
		fix := m[2]
		hour, _ := strconv.Atoi(m[5])
		minute, _ := strconv.Atoi(m[6])

		obs, ok := product.Reconstruct(product.Partial{
			Hour: hour, Minute: minute,
			Present: map[product.Field]bool{product.FieldHour: true, product.FieldMinute: true},
		}, product.Anchor{At: f.RcvdTime, Horizon: product.HorizonMETARObservation})
		if !ok {
			if f.Sink != nil {
				f.Sink.Append(errsink.KindTimeReconstruct, "PIREP observation time outside horizon", map[string]any{"fix": fix})
			}
			continue
		}

		p := &product.Product{
			Type:            product.TypePIREP,
			UniqueName:      fix + "-" + obs.Format("20060102T150405Z"),
			Contents:        strings.TrimSpace(m[0]),
			Station:         f.Station,
			RcvdTime:        f.RcvdTime,
			ObservationTime: obs,
			FixIdent:        fix,
		}
		if m[3] != "" && m[4] != "" {
			if bearing, err := strconv.Atoi(m[3]); err == nil {
				if dist, err := strconv.Atoi(m[4]); err == nil {
					b, d := float64(bearing), float64(dist)
					p.MagneticBearing = &b
					p.RadialDistanceNM = &d
				}
			}
		}
		_ = urgent // urgency (UUA) is surfaced via Contents; no dedicated field needed downstream
		product.ComputeExpiration(p, f.Expiration)
		out = append(out, p)
	}
	return out, nil
}
