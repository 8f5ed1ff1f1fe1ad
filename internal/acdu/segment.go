package acdu

// SegmentHeader is this implementation's own wire convention for one
// fragment of a multi-frame payload (spec §3 Segment: "an ordered sequence
// of fragments sharing (station, product-id, report-id)"). It is present
// only on frames whose AGP flag is set; a frame with AGP clear already
// carries a complete payload and needs no reassembly.
type SegmentHeader struct {
	ReportID int
	Index    int
	Total    int
}

// ParseSegmentHeader extracts the leading 4-byte fragment header
// (report-id: 2 bytes big-endian, index: 1 byte, total: 1 byte) from a
// frame payload and returns the remaining fragment bytes. This 4-byte
// layout is this module's own internal convention, not a claim about the
// published standard's exact segment framing (spec §8 Open Question (a)).
func ParseSegmentHeader(payload []byte) (SegmentHeader, []byte, bool) {
	if len(payload) < 4 {
		return SegmentHeader{}, nil, false
	}
	h := SegmentHeader{
		ReportID: int(payload[0])<<8 | int(payload[1]),
		Index:    int(payload[2]),
		Total:    int(payload[3]),
	}
	if h.Total <= 0 || h.Index < 0 || h.Index >= h.Total {
		return SegmentHeader{}, nil, false
	}
	return h, payload[4:], true
}
