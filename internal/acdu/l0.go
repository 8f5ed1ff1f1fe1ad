package acdu

import (
	"fmt"
	"time"

	"fisbd/internal/crc"
	"fisbd/internal/errsink"
)

// Packet is L0's output record (spec §4.1 "Output record (per packet)"):
// rcvd_time, station identity/coordinates, MSO, timeslot, site id,
// validity flags, and the frames carried inside.
type Packet struct {
	RcvdTime    time.Time `json:"rcvd_time"`
	Station     string    `json:"station"`
	LatDeg      float64   `json:"lat"`
	LonDeg      float64   `json:"lon"`
	MSO         int       `json:"mso"`
	Timeslot    int       `json:"timeslot"`
	SiteID      int       `json:"site_id"`
	Validity    uint8     `json:"validity"`
	RSSI        float64   `json:"rssi"`
	Frames      []Frame   `json:"frames"`
	ReservedRaw []byte    `json:"reserved_raw,omitempty"` // only set in detailed mode
}

// Stage is L0: it turns capture-protocol lines into Packets, dispatching
// decode failures to an error sink rather than ever panicking the pipeline
// on one bad line (spec §4.1 "L0 never panics the pipeline on a single
// malformed packet").
type Stage struct {
	Sink         *errsink.Sink
	Stations     *Registry
	LegacyDLAC   bool
	DetailedMode bool
}

// NewStage builds an L0 Stage.
func NewStage(sink *errsink.Sink, stations *Registry, legacyDLAC, detailed bool) *Stage {
	return &Stage{Sink: sink, Stations: stations, LegacyDLAC: legacyDLAC, DetailedMode: detailed}
}

// Process parses one capture line into a Packet. It returns (nil, nil) for
// UAT lines and any other input that is intentionally dropped rather than
// erroneous; a non-nil error means the line was recorded to the error sink.
func (s *Stage) Process(line string) (*Packet, error) {
	l, err := ParseLine(line)
	if err != nil {
		s.fail(errsink.KindLineFormat, "malformed capture line", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !l.FISB {
		return nil, nil // UAT line, dropped per spec §4.1
	}

	raw, err := l.Bytes()
	if err != nil {
		s.fail(errsink.KindLineFormat, "malformed hex payload", map[string]any{"error": err.Error()})
		return nil, err
	}

	if !crc.VerifyAPDU(raw) {
		s.fail(errsink.KindDecode, "CRC mismatch", nil)
		return nil, fmt.Errorf("acdu: CRC mismatch")
	}
	apdu := raw[:len(raw)-2] // trailing 2-byte checksum, verified above

	header, body, err := ParseHeader(apdu)
	if err != nil {
		s.fail(errsink.KindDecode, "malformed APDU header", map[string]any{"error": err.Error()})
		return nil, err
	}

	rcvd := unixFractional(l.T)

	frames, err := ExtractFrames(body)
	if err != nil {
		s.fail(errsink.KindDecode, "malformed frame header", map[string]any{"error": err.Error()})
		return nil, err
	}

	stationID := header.StationID()
	if s.Stations != nil {
		s.Stations.Observe(stationID, header.LatDeg, header.LonDeg, rcvd)
	}

	pkt := &Packet{
		RcvdTime: rcvd,
		Station:  stationID,
		LatDeg:   header.LatDeg,
		LonDeg:   header.LonDeg,
		MSO:      header.MSO,
		Timeslot: header.Timeslot,
		SiteID:   header.SiteID,
		Validity: header.ValidityBits,
		RSSI:     l.RSSI,
		Frames:   frames,
	}
	if s.DetailedMode {
		pkt.ReservedRaw = append([]byte(nil), body...)
	}
	return pkt, nil
}

func (s *Stage) fail(kind errsink.Kind, msg string, ctx map[string]any) {
	if s.Sink != nil {
		s.Sink.Append(kind, msg, ctx)
	}
}

func unixFractional(t float64) time.Time {
	sec := int64(t)
	nsec := int64((t - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
