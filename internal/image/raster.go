// Package image implements the Curator's dense-byte-matrix raster store,
// PNG + world-file rendering, and the radar staleness eviction rule (spec
// §3 Image Product, §4.5 Image assembly, Design Note "Image rasters").
package image

import (
	"time"

	"fisbd/internal/product"
)

// Sentinel bin values, spec §3 Image Product invariants (b), (c).
const (
	BinNotIncluded byte = 0xFF
	BinNoData      byte = 0xFE
	// BinPaletteMax is the highest valid palette index a data bin may carry.
	BinPaletteMax byte = 0xFD
)

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether other lies fully within b.
func (b BBox) Contains(other BBox) bool {
	return other.MinLon >= b.MinLon && other.MaxLon <= b.MaxLon &&
		other.MinLat >= b.MinLat && other.MaxLat <= b.MaxLat
}

// Union returns the smallest BBox containing both b and other.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		MinLon: min(b.MinLon, other.MinLon),
		MinLat: min(b.MinLat, other.MinLat),
		MaxLon: max(b.MaxLon, other.MaxLon),
		MaxLat: max(b.MaxLat, other.MaxLat),
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// blockGeo is one live block's geographic placement plus its bins, kept so
// the raster can be rebuilt from scratch whenever the bounding box grows
// (spec §4.5 step 2 "Enlarge the raster... newly-covered bins initialized
// to not-included").
type blockGeo struct {
	bbox      BBox
	bins      []byte
	width     int
	height    int
	validTime time.Time
}

// Raster is the live per-(product, scale) image store (spec §4.5 Image
// assembly). One Raster instance exists per (product type, scale) key,
// owned exclusively by the Curator.
type Raster struct {
	Product product.Type
	Scale   string

	bbox   BBox
	width  int
	height int
	bins   []byte // row-major, len == width*height

	blocks map[int]*blockGeo

	binDegW, binDegH float64 // bin resolution in degrees, fixed at construction
}

// New creates an empty Raster at the given bin resolution in degrees.
func New(productType product.Type, scale string, binDegW, binDegH float64) *Raster {
	return &Raster{
		Product: productType,
		Scale:   scale,
		blocks:  make(map[int]*blockGeo),
		binDegW: binDegW,
		binDegH: binDegH,
	}
}

// BlockBounds computes a block's geographic bounds from its block number,
// per spec §4.5 step 1. Blocks tile the globe in binDegW x binDegH degree
// cells in row-major order starting at (-180, -90); block numbering is this
// module's own scheme since the published tiling isn't reproduced here bit
// for bit.
func (r *Raster) BlockBounds(blockNumber, blockWidthBins, blockHeightBins int) BBox {
	cols := int(360.0/r.binDegW/float64(blockWidthBins)) + 1
	row := blockNumber / cols
	col := blockNumber % cols
	minLon := -180.0 + float64(col)*float64(blockWidthBins)*r.binDegW
	minLat := -90.0 + float64(row)*float64(blockHeightBins)*r.binDegH
	return BBox{
		MinLon: minLon,
		MinLat: minLat,
		MaxLon: minLon + float64(blockWidthBins)*r.binDegW,
		MaxLat: minLat + float64(blockHeightBins)*r.binDegH,
	}
}

// PutBlock writes one block's bins into the raster, enlarging the bounding
// box if needed (spec §4.5 steps 1-3).
func (r *Raster) PutBlock(blockNumber int, bbox BBox, width, height int, bins []byte, validTime time.Time) {
	r.blocks[blockNumber] = &blockGeo{bbox: bbox, bins: bins, width: width, height: height, validTime: validTime}
	r.rebuild()
}

// EvictStale removes blocks whose validity lags the newest live block by
// more than maxAge; a block exactly maxAge behind stays live (spec §4.5
// step 4; Open Question (c) resolves the boundary as inclusive). Returns the
// number of blocks evicted.
func (r *Raster) EvictStale(maxAge time.Duration) int {
	var newest time.Time
	for _, b := range r.blocks {
		if b.validTime.After(newest) {
			newest = b.validTime
		}
	}
	if newest.IsZero() {
		return 0
	}
	evicted := 0
	for num, b := range r.blocks {
		if newest.Sub(b.validTime) > maxAge {
			delete(r.blocks, num)
			evicted++
		}
	}
	if evicted > 0 {
		r.rebuild()
	}
	return evicted
}

// NewestValidTime returns the validity time of the most recently valid live
// block, for the radar 10-minute eviction invariant.
func (r *Raster) NewestValidTime() time.Time {
	var newest time.Time
	for _, b := range r.blocks {
		if b.validTime.After(newest) {
			newest = b.validTime
		}
	}
	return newest
}

// rebuild recomputes the bounding box as the union of all live blocks and
// repaints the dense bin matrix (spec §4.5 step 2: "Enlargement is a
// copy-and-pad operation").
func (r *Raster) rebuild() {
	if len(r.blocks) == 0 {
		r.bbox = BBox{}
		r.width, r.height = 0, 0
		r.bins = nil
		return
	}

	first := true
	var bbox BBox
	for _, b := range r.blocks {
		if first {
			bbox = b.bbox
			first = false
			continue
		}
		bbox = bbox.Union(b.bbox)
	}

	width := int(round((bbox.MaxLon - bbox.MinLon) / r.binDegW))
	height := int(round((bbox.MaxLat - bbox.MinLat) / r.binDegH))
	if width <= 0 || height <= 0 {
		return
	}

	bins := make([]byte, width*height)
	for i := range bins {
		bins[i] = BinNotIncluded
	}

	for _, b := range r.blocks {
		offX := int(round((b.bbox.MinLon - bbox.MinLon) / r.binDegW))
		offY := int(round((b.bbox.MinLat - bbox.MinLat) / r.binDegH))
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				dstX, dstY := offX+x, offY+y
				if dstX < 0 || dstX >= width || dstY < 0 || dstY >= height {
					continue
				}
				bins[dstY*width+dstX] = b.bins[y*b.width+x]
			}
		}
	}

	r.bbox = bbox
	r.width = width
	r.height = height
	r.bins = bins
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}

// Bounds returns the current bounding box and dimensions.
func (r *Raster) Bounds() (BBox, int, int) {
	return r.bbox, r.width, r.height
}

// At returns the bin value at (x, y), or BinNotIncluded if out of range.
func (r *Raster) At(x, y int) byte {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return BinNotIncluded
	}
	return r.bins[y*r.width+x]
}

// BlockCount reports how many live blocks the raster currently holds.
func (r *Raster) BlockCount() int {
	return len(r.blocks)
}
