// Package curator implements the "Harvest" stage: the single writer against
// the authoritative current-state store (spec §4.5). It drains the spool
// directory L3 feeds, upserts by key, runs the periodic expiration engine,
// reconciles CRL completeness, assembles image blocks into rasters, and
// (optionally) enriches products with location geometry before storing
// them. Single-writer discipline mirrors the teacher's Tracker: all mutable
// state lives behind one struct with a mutex, no in-stage locking needed
// because the spool drain loop is itself single-threaded.
package curator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fisbd/internal/clock"
	"fisbd/internal/config"
	"fisbd/internal/enrichment"
	"fisbd/internal/errsink"
	"fisbd/internal/image"
	"fisbd/internal/metrics"
	"fisbd/internal/product"
	"fisbd/internal/spool"
	"fisbd/internal/store"
)

// Curator owns the datastore, the image rasters, and the maintenance loop.
type Curator struct {
	cfg   config.Config
	db    store.Store
	clk   clock.Clock
	sink  *errsink.Sink
	log   zerolog.Logger
	enr   *enrichment.Enricher

	mu      sync.Mutex
	rasters map[string]*image.Raster // keyed by product type + "/" + scale
	gates   map[string]*image.QuietGate
	palettes map[string]image.Palette

	renderFn func(r *image.Raster, pal image.Palette, cfg image.MapConfiguration, dir, name string) error

	metrics *metrics.Metrics
}

// SetMetrics attaches a metrics.Metrics instance; nil (the default)
// disables metric recording.
func (c *Curator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// New builds a Curator. enr may be nil to disable location enrichment.
func New(cfg config.Config, db store.Store, clk clock.Clock, sink *errsink.Sink, log zerolog.Logger, enr *enrichment.Enricher) *Curator {
	return &Curator{
		cfg:      cfg,
		db:       db,
		clk:      clk,
		sink:     sink,
		log:      log,
		enr:      enr,
		rasters:  make(map[string]*image.Raster),
		gates:    make(map[string]*image.QuietGate),
		palettes: image.DefaultPalettes(),
		renderFn: image.Render,
	}
}

// Run drains the spool directory once, applying each pending product and
// deleting its spool file on success (spec §4.5 Upsert semantics, §5
// Cancellation: "the Curator drains the spool before exiting, so the spool
// is always empty after a clean stop").
func (c *Curator) Run(ctx context.Context) error {
	c.sink.Truncate()

	entries, err := spool.List(c.cfg.SpoolDir)
	if err != nil {
		return fmt.Errorf("curator: list spool: %w", err)
	}
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, err := spool.Read(e)
		if err != nil {
			c.sink.Append(errsink.KindStore, "unreadable spool entry", map[string]any{"entry": e.Name, "err": err.Error()})
			continue
		}
		if err := c.Apply(ctx, p); err != nil {
			c.sink.Append(errsink.KindStore, "apply failed", map[string]any{"entry": e.Name, "err": err.Error()})
			continue
		}
		if err := spool.Delete(e); err != nil {
			c.sink.Append(errsink.KindStore, "spool delete failed", map[string]any{"entry": e.Name, "err": err.Error()})
		}
	}
	return nil
}

// Apply upserts one product, routing image products to raster assembly and
// CRL products to reconciliation, and running location enrichment first
// when enabled (spec §4.5).
func (c *Curator) Apply(ctx context.Context, p *product.Product) error {
	if p.Block != nil {
		return c.applyImageBlock(ctx, p)
	}

	if c.enr != nil && c.enrichEnabled(p.Type) {
		c.enr.Enrich(ctx, p)
	}

	p.InsertTime = c.clk.Now()
	if err := c.db.Upsert(ctx, p); err != nil {
		return c.retryableUpsert(ctx, p, err)
	}

	if p.CRL != nil {
		if c.cfg.AnnotateCRL {
			if err := c.reconcileCRL(ctx, p); err != nil {
				return fmt.Errorf("curator: reconcile crl: %w", err)
			}
		}
		if err := c.ImmediateCRLDelete(ctx, p); err != nil {
			return fmt.Errorf("curator: immediate crl delete: %w", err)
		}
	}
	return nil
}

// enrichEnabled applies the per-domain location-enrichment toggles (spec §6
// Config surface: "location-enrichment flags (wx/pirep/sua)").
func (c *Curator) enrichEnabled(t product.Type) bool {
	switch t {
	case product.TypePIREP:
		return c.cfg.LocationEnrichPirep
	case product.TypeSUA:
		return c.cfg.LocationEnrichSUA
	case product.TypeMETAR, product.TypeTAF, product.TypeWinds06, product.TypeWinds12, product.TypeWinds24:
		return c.cfg.LocationEnrichWx
	default:
		return false
	}
}

// retryableUpsert implements spec §7 taxonomy (6): transient store errors
// retry with exponential backoff bounded by RetryDBConnSecs; anything left
// failing after the bound is fatal for the Curator (returned to the caller,
// which exits the process — per spec §7 "permanent: fatal for the Curator
// only").
func (c *Curator) retryableUpsert(ctx context.Context, p *product.Product, firstErr error) error {
	backoff := 100 * time.Millisecond
	deadline := c.clk.Now().Add(time.Duration(c.cfg.RetryDBConnSecs) * time.Second)
	lastErr := firstErr
	for c.clk.Now().Before(deadline) {
		if c.metrics != nil {
			c.metrics.StoreRetries.Inc()
		}
		c.sink.Append(errsink.KindStore, "upsert retry", map[string]any{"key": p.Key(), "err": lastErr.Error()})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err := c.db.Upsert(ctx, p); err == nil {
			return nil
		} else {
			lastErr = err
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
	if c.metrics != nil {
		c.metrics.StorePermanentErr.Inc()
	}
	return fmt.Errorf("curator: permanent store failure: %w", lastErr)
}
