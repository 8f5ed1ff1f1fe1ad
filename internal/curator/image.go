package curator

import (
	"context"
	"fmt"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/image"
	"fisbd/internal/product"
)

// rasterBinDeg is this module's fixed bin resolution in degrees, applied to
// every image product's raster (spec §8 Open Question notes no published
// per-product resolution is reproduced here; one fixed value keeps block
// placement self-consistent).
const rasterBinDeg = 0.25

// applyImageBlock merges one image block into its product's raster (spec
// §4.5 steps 1-6, State machine "Image block set"). With a zero quiet period
// it renders the PNG + world file at once; otherwise MaintenanceTick renders
// the raster once the quiet period has elapsed. For radar-like products the
// >10min staleness evict (step 4) runs here, on every block arrival, right
// after the block is written -- not just on the periodic maintenance tick --
// so a tile that is stale against the newest live block (the arriving one
// included) never stays live.
func (c *Curator) applyImageBlock(ctx context.Context, p *product.Product) error {
	b := p.Block
	if b == nil {
		return nil
	}
	if len(b.Bins) != b.Width*b.Height {
		c.sink.Append(errsink.KindImageBlock, "block bin count mismatch", map[string]any{
			"product": string(p.Type), "block": b.BlockNumber, "want": b.Width * b.Height, "got": len(b.Bins),
		})
		return nil
	}

	key := string(p.Type) + "/" + b.Scale

	c.mu.Lock()
	r, ok := c.rasters[key]
	if !ok {
		r = image.New(p.Type, b.Scale, rasterBinDeg, rasterBinDeg)
		c.rasters[key] = r
	}
	gate, ok := c.gates[key]
	if !ok {
		gate = image.NewQuietGate(time.Duration(c.cfg.ImageQuietSeconds) * time.Second)
		c.gates[key] = gate
	}
	bbox := r.BlockBounds(b.BlockNumber, b.Width, b.Height)
	r.PutBlock(b.BlockNumber, bbox, b.Width, b.Height, b.Bins, b.ValidTime)
	if product.RadarLikeTypes[p.Type] {
		r.EvictStale(10 * time.Minute)
	}

	now := c.clk.Now()
	gate.Touch(now)
	ready := gate.ReadyToRender(now)
	c.mu.Unlock()

	if !ready {
		return nil
	}
	return c.renderRaster(key, r, gate)
}

// renderRaster renders one raster, marking the gate regardless of outcome
// so a failed render doesn't retry on every subsequent block write.
func (c *Curator) renderRaster(key string, r *image.Raster, gate *image.QuietGate) error {
	c.mu.Lock()
	pal, ok := c.palettes[paletteNameFor(r.Product)]
	if !ok {
		pal = c.palettes["default"]
	}
	renderFn := c.renderFn
	mapCfg := image.MapConfiguration(c.cfg.ImageMapConfiguration)
	dir := c.cfg.ImageDir
	c.mu.Unlock()

	name := string(r.Product)
	if r.Scale != "" {
		name += "_" + r.Scale
	}
	start := time.Now()
	err := renderFn(r, pal, mapCfg, dir, name)
	if c.metrics != nil {
		c.metrics.ImageRenderLatency.WithLabelValues(string(r.Product)).Observe(time.Since(start).Seconds())
	}

	c.mu.Lock()
	gate.MarkRendered(c.clk.Now())
	c.mu.Unlock()

	if err != nil {
		c.sink.Append(errsink.KindImageBlock, "render failed", map[string]any{"raster": key, "err": err.Error()})
		return fmt.Errorf("curator: render %s: %w", key, err)
	}
	return nil
}

// paletteNameFor picks the built-in palette keyed by product family; the
// radar-like products (NEXRAD, lightning) get the "radar" dBZ palette,
// everything else gets the grayscale default.
func paletteNameFor(t product.Type) string {
	if product.RadarLikeTypes[t] {
		return "radar"
	}
	return "default"
}
