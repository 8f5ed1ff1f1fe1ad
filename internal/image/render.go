package image

import (
	"fmt"
	goimage "image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"
)

// QuietGate implements the Image block set state machine (spec §3 State
// machines: Empty -> PartiallyFilled -> Renderable, gated by the quiet
// timer) and the render quiet-period rule (spec §4.5 step 5): a raster is
// not re-rendered until quiet has elapsed since its most recent block
// write, to avoid publishing partial frames mid-burst.
type QuietGate struct {
	quiet       time.Duration
	lastWrite   time.Time
	lastRender  time.Time
	everWritten bool
}

// NewQuietGate builds a gate with the configured IMAGE_QUIET_SECONDS.
func NewQuietGate(quiet time.Duration) *QuietGate {
	return &QuietGate{quiet: quiet}
}

// Touch records a block write at t.
func (g *QuietGate) Touch(t time.Time) {
	g.lastWrite = t
	g.everWritten = true
}

// ReadyToRender reports whether quiet has elapsed since the last write and
// the raster has changed since it was last rendered.
func (g *QuietGate) ReadyToRender(now time.Time) bool {
	if !g.everWritten {
		return false
	}
	if now.Sub(g.lastWrite) < g.quiet {
		return false
	}
	return g.lastRender.Before(g.lastWrite)
}

// MarkRendered records that a render happened at t.
func (g *QuietGate) MarkRendered(t time.Time) {
	g.lastRender = t
}

// Render encodes the raster to a PNG at dir/name.png and writes a sidecar
// world-file (dir/name.pgw or .wld) giving the geographic bounding box
// (spec §4.5 step 6, §6 "Image output").
func Render(r *Raster, pal Palette, cfg MapConfiguration, dir, name string) error {
	bbox, w, h := r.Bounds()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image: raster %s/%s has no live blocks to render", r.Product, r.Scale)
	}

	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Raster row 0 is the southernmost row; PNG row 0 is the top, so
		// flip vertically on write.
		pngY := h - 1 - y
		for x := 0; x < w; x++ {
			c := pal.Color(r.At(x, y), cfg)
			img.SetNRGBA(x, pngY, c)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("image: mkdir: %w", err)
	}

	pngPath := filepath.Join(dir, name+".png")
	if err := writeAtomic(pngPath, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
		return fmt.Errorf("image: encode png: %w", err)
	}

	worldPath := filepath.Join(dir, name+".pgw")
	pixelW := (bbox.MaxLon - bbox.MinLon) / float64(w)
	pixelH := (bbox.MaxLat - bbox.MinLat) / float64(h)
	worldContent := fmt.Sprintf("%.10f\n0.0\n0.0\n%.10f\n%.10f\n%.10f\n",
		pixelW, -pixelH, bbox.MinLon, bbox.MaxLat)
	if err := writeAtomic(worldPath, func(w io.Writer) error {
		_, err := io.WriteString(w, worldContent)
		return err
	}); err != nil {
		return fmt.Errorf("image: write world file: %w", err)
	}

	return nil
}

// writeAtomic writes via a temp file + rename so readers never observe a
// partially-written PNG or world file (spec §3 Image Product ownership:
// "on update it atomically replaces the persistent rendering").
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
