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

// tafRe matches one TAF report: ICAO DDHHMMZ issued, DDHH/DDHH valid period,
// body terminated by '='. Adapted from the teacher's weather parser's tafRe.
var tafRe = regexp.MustCompile(`(?m)TAF\s+(?:AMD\s+)?(?:COR\s+)?([A-Z0-9]{4})\s+(\d{2})(\d{2})(\d{2})Z\s+(\d{2})(\d{2})/(\d{2})(\d{2})\s+(.+?)(?:\s*=|$)`)

// TAFDecoder splits a text block into individual TAF products.
type TAFDecoder struct{}

func (d *TAFDecoder) Name() string      { return "taf" }
func (d *TAFDecoder) ProductIDs() []int { return []int{idTAF} }

func (d *TAFDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	matches := tafRe.FindAllStringSubmatch(string(f.Payload), -1)

	var out []*product.Product
	for _, m := range matches {
		station := m[1]
		issueDay, _ := strconv.Atoi(m[2])
		issueHour, _ := strconv.Atoi(m[3])
		issueMinute, _ := strconv.Atoi(m[4])
		beginDay, _ := strconv.Atoi(m[5])
		beginHour, _ := strconv.Atoi(m[6])
		endDay, _ := strconv.Atoi(m[7])
		endHour, _ := strconv.Atoi(m[8])

		issued, ok := product.Reconstruct(product.Partial{
			Day: issueDay, Hour: issueHour, Minute: issueMinute,
			Present: map[product.Field]bool{product.FieldDay: true, product.FieldHour: true, product.FieldMinute: true},
		}, product.Anchor{At: f.RcvdTime, Horizon: product.HorizonTAFIssued})
		if !ok {
			if f.Sink != nil {
				f.Sink.Append(errsink.KindTimeReconstruct, "TAF issued time outside horizon", map[string]any{"station": station})
			}
			continue
		}

		begin, ok := product.Reconstruct(product.Partial{
			Day: beginDay, Hour: beginHour,
			Present: map[product.Field]bool{product.FieldDay: true, product.FieldHour: true},
		}, product.Anchor{At: issued, Horizon: product.HorizonTAFValidBegin})
		if !ok {
			if f.Sink != nil {
				f.Sink.Append(errsink.KindTimeReconstruct, "TAF valid_begin time outside horizon", map[string]any{"station": station})
			}
			continue
		}

		end, ok := product.Reconstruct(product.Partial{
			Day: endDay, Hour: endHour,
			Present: map[product.Field]bool{product.FieldDay: true, product.FieldHour: true},
		}, product.Anchor{At: begin, Horizon: product.HorizonTAFValidBegin})
		if !ok {
			end = begin.Add(24 * time.Hour)
		}

		p := &product.Product{
			Type:             product.TypeTAF,
			UniqueName:       station,
			Contents:         strings.TrimSpace(m[0]),
			Station:          f.Station,
			RcvdTime:         f.RcvdTime,
			IssuedTime:       issued,
			ValidPeriodBegin: begin,
			ValidPeriodEnd:   end,
		}
		product.ComputeExpiration(p, f.Expiration)
		out = append(out, p)
	}
	return out, nil
}
