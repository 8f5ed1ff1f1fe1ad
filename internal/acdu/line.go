// Package acdu implements L0, the frame parser: binary APDU to structured
// frame records (spec §4.1). It parses the capture line protocol, verifies
// APDU integrity, extracts the 8-byte station header and per-frame headers,
// unpacks DLAC text, and maintains the station registry + RSR synthesis.
//
// Decoders are pure: bytes in, a structured Record out. Nothing here writes
// to the datastore or blocks on anything but the input reader, per spec §5
// suspension-point (a).
package acdu

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is one parsed capture-protocol line (spec §6 Capture input):
// `+<hex>;rs=<int>;rssi=<float>;t=<unix-seconds-fractional>;`
type Line struct {
	FISB     bool // true for '+' (FIS-B); '-' (UAT) lines are dropped by L0.
	HexUpper string
	RS       int
	RSSI     float64
	T        float64
}

// ParseLine parses one capture line. UAT lines (leading '-') parse
// successfully with FISB=false so the caller can drop them without treating
// the line as malformed (spec §4.1 "UAT; dropped").
func ParseLine(line string) (Line, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Line{}, fmt.Errorf("acdu: empty line")
	}

	fisb := false
	switch line[0] {
	case '+':
		fisb = true
	case '-':
		fisb = false
	default:
		return Line{}, fmt.Errorf("acdu: line does not begin with '+' or '-'")
	}

	rest := line[1:]
	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return Line{}, fmt.Errorf("acdu: missing field separator")
	}
	hexPart := rest[:semi]
	fields := strings.Split(strings.Trim(rest[semi:], ";"), ";")

	l := Line{FISB: fisb, HexUpper: strings.ToUpper(hexPart)}
	for _, f := range fields {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := kv[0], kv[1]
		var err error
		switch key {
		case "rs":
			l.RS, err = strconv.Atoi(val)
		case "rssi":
			l.RSSI, err = strconv.ParseFloat(val, 64)
		case "t":
			l.T, err = strconv.ParseFloat(val, 64)
		}
		if err != nil {
			return Line{}, fmt.Errorf("acdu: field %q: %w", key, err)
		}
	}
	return l, nil
}

// Bytes decodes the hex payload into raw APDU bytes. Returns an error if the
// hex has odd length or a non-hex digit; the byte count is not checked (the
// upstream radio/capture program strips FEC and always emits exactly 216
// bytes for FIS-B, per spec §4.1, but L0 tolerates shorter test fixtures
// rather than hard-coding the production length).
func (l Line) Bytes() ([]byte, error) {
	h := l.HexUpper
	if len(h)%2 != 0 {
		return nil, fmt.Errorf("acdu: odd-length hex payload")
	}
	out := make([]byte, len(h)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexNibble(h[2*i])
		lo, ok2 := hexNibble(h[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("acdu: invalid hex digit at offset %d", 2*i)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
