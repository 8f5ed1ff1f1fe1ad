package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

func point(lon, lat float64) orb.Point {
	return orb.Point{lon, lat}
}

func parseRing(s string) ([]orb.Point, error) {
	var pts []orb.Point
	for _, pair := range strings.Split(s, "|") {
		nums := strings.Split(pair, ",")
		if len(nums) != 2 {
			return nil, errBadGeometry(s)
		}
		lat, err1 := strconv.ParseFloat(nums[0], 64)
		lon, err2 := strconv.ParseFloat(nums[1], 64)
		if err1 != nil || err2 != nil {
			return nil, errBadGeometry(s)
		}
		pts = append(pts, point(lon, lat))
	}
	if len(pts) < 2 {
		return nil, errBadGeometry(s)
	}
	return pts, nil
}

func errBadGeometry(part string) error {
	return fmt.Errorf("decode: bad geometry element %q", part)
}
