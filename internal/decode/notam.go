package decode

import (
	"strconv"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// NOTAMDecoder handles the single-frame (non-TWGO) NOTAM classes: NOTAM-D
// always, and NOTAM-FDC in this implementation (which broadcasts on one
// frame id with no separate graphics frame to pair against; NOTAM-TFR does
// split text/graphics and is handled by TWGODecoder instead).
type NOTAMDecoder struct{}

func (d *NOTAMDecoder) Name() string      { return "notam" }
func (d *NOTAMDecoder) ProductIDs() []int { return []int{idNOTAMD, idNOTAMFDC} }

func (d *NOTAMDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	typ := product.TypeNOTAMD
	if f.ProductID == idNOTAMFDC {
		typ = product.TypeNOTAMFDC
	}

	fields := parseFields(string(f.Payload))
	rpt := fields["RPT"]
	if rpt == "" {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindDecode, "NOTAM record missing RPT field", map[string]any{"type": typ})
		}
		return nil, nil
	}

	start, ok := parseDDHHMM(fields["START"], f.RcvdTime, product.HorizonNOTAMStart)
	if !ok {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindTimeReconstruct, "NOTAM start_of_activity outside horizon", map[string]any{"rpt": rpt})
		}
		return nil, nil
	}
	end, ok := parseDDHHMM(fields["END"], start, product.Horizon{Past: 0, Future: 365 * 24 * time.Hour})
	if !ok {
		end = start.Add(30 * 24 * time.Hour)
	}

	rptNum, _ := strconv.Atoi(rpt)
	p := &product.Product{
		Type:            typ,
		UniqueName:      rpt,
		Contents:        fields["TEXT"],
		Station:         f.Station,
		RcvdTime:        f.RcvdTime,
		StartOfActivity: start,
		EndOfValidity:   end,
		ReportNumber:    rptNum,
	}
	product.ComputeExpiration(p, f.Expiration)
	return []*product.Product{p}, nil
}
