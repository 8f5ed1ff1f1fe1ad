package decode

import (
	"regexp"
	"strconv"
	"strings"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// metarRe matches one METAR/SPECI report within a text block: ICAO DDHHMMZ
// body, terminated by '=' or end of block. Adapted from the teacher's
// weather parser's metarRe.
var metarRe = regexp.MustCompile(`(?m)(?:METAR|SPECI)\s+(?:COR\s+)?([A-Z0-9]{4})\s+(\d{2})(\d{2})(\d{2})Z\s+(.+?)(?:\s*=|$)`)

// METARDecoder splits a text block into individual METAR/SPECI products
// (spec §4.3 "Products split").
type METARDecoder struct{}

func (d *METARDecoder) Name() string       { return "metar" }
func (d *METARDecoder) ProductIDs() []int  { return []int{idMETAR} }

func (d *METARDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	text := string(f.Payload)
	matches := metarRe.FindAllStringSubmatch(text, -1)

	var out []*product.Product
	for _, m := range matches {
		station := m[1]
		day, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		minute, _ := strconv.Atoi(m[4])

		partial := product.Partial{
			Day: day, Hour: hour, Minute: minute,
			Present: map[product.Field]bool{
				product.FieldDay: true, product.FieldHour: true, product.FieldMinute: true,
			},
		}
		obsTime, ok := product.Reconstruct(partial, product.Anchor{At: f.RcvdTime, Horizon: product.HorizonMETARObservation})
		if !ok {
			if f.Sink != nil {
				f.Sink.Append(errsink.KindTimeReconstruct, "METAR observation time outside horizon", map[string]any{
					"station": station, "day": day, "hour": hour, "minute": minute,
				})
			}
			continue
		}

		p := &product.Product{
			Type:            product.TypeMETAR,
			UniqueName:      station,
			Contents:        strings.TrimSpace(m[0]),
			Station:         f.Station,
			RcvdTime:        f.RcvdTime,
			ObservationTime: obsTime,
		}
		product.ComputeExpiration(p, f.Expiration)
		out = append(out, p)
	}
	return out, nil
}
