package image

import (
	"image/color"

	"github.com/shopspring/decimal"
)

// MapConfiguration selects how not-included/no-data bins render (spec §4.5
// step 6, config surface "image-map-configuration").
type MapConfiguration int

const (
	MapBothTransparent MapConfiguration = 0
	MapBothDistinct    MapConfiguration = 1
	MapBothIdentical   MapConfiguration = 2
)

// Threshold is one palette entry: bin values >= From map to Color. Using
// decimal rather than float64 keeps the palette's dBZ/ft thresholds exact
// across config (de)serialization, matching how thresholds are typically
// published (e.g. "18.0 dBZ", "35.0 dBZ") without float rounding drift.
type Threshold struct {
	From  decimal.Decimal
	Color color.NRGBA
}

// Palette maps raw bin values to colors for one product's rendering.
type Palette struct {
	Thresholds []Threshold
	NotIncluded color.NRGBA
	NoData      color.NRGBA
}

// Color resolves a bin value to its display color per the configured
// not-included/no-data policy (spec §4.5 step 6).
func (p Palette) Color(bin byte, cfg MapConfiguration) color.NRGBA {
	switch bin {
	case BinNotIncluded:
		if cfg == MapBothTransparent {
			return color.NRGBA{0, 0, 0, 0}
		}
		return p.NotIncluded
	case BinNoData:
		if cfg == MapBothTransparent {
			return color.NRGBA{0, 0, 0, 0}
		}
		if cfg == MapBothIdentical {
			return p.NotIncluded
		}
		return p.NoData
	default:
		v := decimal.NewFromInt(int64(bin))
		best := color.NRGBA{0, 0, 0, 0}
		for _, t := range p.Thresholds {
			if v.GreaterThanOrEqual(t.From) {
				best = t.Color
			}
		}
		return best
	}
}

// DefaultPalettes returns a minimal built-in palette per image product type,
// enough to exercise rendering end to end; operators override via the
// image-palette config selections (spec §6 Config surface).
func DefaultPalettes() map[string]Palette {
	grayscale := func(steps int) []Threshold {
		out := make([]Threshold, 0, steps)
		for i := 0; i < steps; i++ {
			v := byte(i * 255 / steps)
			out = append(out, Threshold{
				From:  decimal.NewFromInt(int64(i * int(BinPaletteMax) / steps)),
				Color: color.NRGBA{v, v, v, 255},
			})
		}
		return out
	}
	return map[string]Palette{
		"radar": {
			Thresholds: []Threshold{
				{From: decimal.NewFromInt(0), Color: color.NRGBA{0, 0, 0, 0}},
				{From: decimal.NewFromInt(18), Color: color.NRGBA{0, 236, 236, 255}},
				{From: decimal.NewFromInt(30), Color: color.NRGBA{0, 160, 0, 255}},
				{From: decimal.NewFromInt(40), Color: color.NRGBA{255, 255, 0, 255}},
				{From: decimal.NewFromInt(50), Color: color.NRGBA{255, 0, 0, 255}},
				{From: decimal.NewFromInt(60), Color: color.NRGBA{255, 0, 255, 255}},
			},
			NotIncluded: color.NRGBA{0, 0, 0, 0},
			NoData:      color.NRGBA{128, 128, 128, 64},
		},
		"default": {
			Thresholds:  grayscale(8),
			NotIncluded: color.NRGBA{0, 0, 0, 0},
			NoData:      color.NRGBA{64, 64, 64, 64},
		},
	}
}
