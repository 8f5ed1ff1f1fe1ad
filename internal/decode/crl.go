package decode

import (
	"strconv"
	"strings"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// CRLDecoder decodes a station's Current Report List for one CRL-bearing
// product class (spec §3 CRL). Wire convention: `ENTRIES=<num>:<flags>;...`
// where flags is any combination of 'T' (text available) and 'G' (graphics
// available), plus `OVERFLOW=0|1` (spec §3 "Overflow flag").
type CRLDecoder struct{}

func (d *CRLDecoder) Name() string { return "crl" }

func (d *CRLDecoder) ProductIDs() []int {
	ids := make([]int, 0, len(crlIDToType))
	for id := range crlIDToType {
		ids = append(ids, id)
	}
	return ids
}

func (d *CRLDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	typ, ok := crlIDToType[f.ProductID]
	if !ok {
		return nil, nil
	}
	fields := parseFields(string(f.Payload))

	overflow := fields["OVERFLOW"] == "1"
	var entries []product.CRLEntry
	if raw := fields["ENTRIES"]; raw != "" {
		for _, tok := range strings.Split(raw, ";") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			kv := strings.SplitN(tok, ":", 2)
			num, err := strconv.Atoi(kv[0])
			if err != nil {
				if f.Sink != nil {
					f.Sink.Append(errsink.KindDecode, "CRL entry with non-numeric report number", map[string]any{"token": tok})
				}
				continue
			}
			flags := ""
			if len(kv) == 2 {
				flags = kv[1]
			}
			entries = append(entries, product.CRLEntry{
				ReportNumber: num,
				HasText:      strings.Contains(flags, "T"),
				HasGraphics:  strings.Contains(flags, "G"),
			})
		}
	}

	if len(entries) > 138 {
		overflow = true
	}

	p := &product.Product{
		Type:       typ,
		UniqueName: f.Station,
		Station:    f.Station,
		RcvdTime:   f.RcvdTime,
		CRL: &product.CRLList{
			Station:  f.Station,
			Entries:  entries,
			Overflow: overflow,
		},
	}
	product.ComputeExpiration(p, f.Expiration)
	return []*product.Product{p}, nil
}
