package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// parseWKTPolygon parses a "POLYGON((lon lat, lon lat, ...))" string, the
// format the side store's sua.wkt column carries. This package's own small
// reader, not a general WKT parser: the side store is a closed, pre-built
// SQLite file and only ever emits this one geometry shape for SUA rows.
func parseWKTPolygon(s string) (orb.Polygon, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "POLYGON") {
		return nil, fmt.Errorf("store: not a polygon: %q", s)
	}
	open := strings.Index(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close <= open {
		return nil, fmt.Errorf("store: malformed polygon: %q", s)
	}
	inner := strings.TrimSpace(s[open+1 : close])
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")

	var ring orb.Ring
	for _, pair := range strings.Split(inner, ",") {
		pair = strings.TrimSpace(pair)
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			return nil, fmt.Errorf("store: malformed coordinate: %q", pair)
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("store: bad lon %q: %w", fields[0], err)
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("store: bad lat %q: %w", fields[1], err)
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("store: ring too short: %q", s)
	}
	return orb.Polygon{ring}, nil
}

// planarContains is a standard even-odd ray-casting point-in-polygon test
// against the outer ring only; SUA zones in this side store never carry
// holes.
func planarContains(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 {
		return false
	}
	ring := poly[0]
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p.Lat()) != (yj > p.Lat()) &&
			p.Lon() < (xj-xi)*(p.Lat()-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
