package acdu

import (
	"fmt"

	"fisbd/internal/product"
)

// TOpt selects which subset of {month, day, hour, minute, second} a frame's
// optional timestamp field carries (spec §3 frame header field "t-opt").
type TOpt int

const (
	TOptNone              TOpt = 0
	TOptMonthDayHourMin   TOpt = 1
	TOptDayHourMin        TOpt = 2
	TOptHourMinSec        TOpt = 3
)

// timestampBytes is the byte-aligned on-wire size of the timestamp field
// for each TOpt.
var timestampBytes = map[TOpt]int{
	TOptNone:            0,
	TOptMonthDayHourMin: 3,
	TOptDayHourMin:      2,
	TOptHourMinSec:      3,
}

// FrameHeader is one frame's 4-byte header (spec §3 "Frame header fields:
// frame-type, product-id, AGP flag, t-opt ..., and an s-flag").
type FrameHeader struct {
	FrameLength int // total bytes following the header: timestamp + payload
	FrameType   int
	ProductID   int
	AGPFlag     bool
	TOpt        TOpt
	SFlag       bool
}

// Frame is one fully extracted frame: its header, reconstructed partial
// timestamp (if any), and payload bytes.
type Frame struct {
	Header  FrameHeader
	Partial product.Partial // zero value (Present empty) when TOpt is None
	Payload []byte
}

// ExtractFrames walks the APDU body (the bytes remaining after ParseHeader)
// and returns every frame it contains. ExtractFrames is pure: it never
// blocks or mutates shared state (spec §4.1 "Frame decoders are pure").
func ExtractFrames(body []byte) ([]Frame, error) {
	var frames []Frame
	for len(body) > 0 {
		if len(body) < 4 {
			return frames, fmt.Errorf("acdu: %d trailing bytes too short for a frame header", len(body))
		}
		r := newBitReader(body[:4])
		fh := FrameHeader{
			FrameLength: int(r.read(12)),
			FrameType:   int(r.read(4)),
			ProductID:   int(r.read(9)),
			AGPFlag:     r.read(1) != 0,
			TOpt:        TOpt(r.read(2)),
			SFlag:       r.read(1) != 0,
		}
		body = body[4:]

		tsBytes, ok := timestampBytes[fh.TOpt]
		if !ok {
			return frames, fmt.Errorf("acdu: unknown t-opt %d", fh.TOpt)
		}
		if fh.FrameLength < tsBytes || fh.FrameLength > len(body) {
			return frames, fmt.Errorf("acdu: frame length %d inconsistent with %d bytes remaining", fh.FrameLength, len(body))
		}

		partial := product.Partial{}
		if tsBytes > 0 {
			partial = parseTimestamp(fh.TOpt, body[:tsBytes])
		}

		payload := body[tsBytes:fh.FrameLength]
		body = body[fh.FrameLength:]

		frames = append(frames, Frame{Header: fh, Partial: partial, Payload: payload})
	}
	return frames, nil
}

func parseTimestamp(opt TOpt, data []byte) product.Partial {
	r := newBitReader(data)
	p := product.Partial{Present: map[product.Field]bool{}}
	switch opt {
	case TOptMonthDayHourMin:
		p.Month = int(r.read(4))
		p.Day = int(r.read(5))
		p.Hour = int(r.read(5))
		p.Minute = int(r.read(6))
		p.Present[product.FieldMonth] = true
		p.Present[product.FieldDay] = true
		p.Present[product.FieldHour] = true
		p.Present[product.FieldMinute] = true
	case TOptDayHourMin:
		p.Day = int(r.read(5))
		p.Hour = int(r.read(5))
		p.Minute = int(r.read(6))
		p.Present[product.FieldDay] = true
		p.Present[product.FieldHour] = true
		p.Present[product.FieldMinute] = true
	case TOptHourMinSec:
		p.Hour = int(r.read(5))
		p.Minute = int(r.read(6))
		p.Second = int(r.read(6))
		p.Present[product.FieldHour] = true
		p.Present[product.FieldMinute] = true
		p.Present[product.FieldSecond] = true
	}
	return p
}
