// Package pipeline wires L0 (internal/acdu) through L1 reassembly and L2
// decode dispatch to L3's change filter, spooling survivors for the
// Curator to drain (spec §2 "Data flows strictly forward: Capture -> L0 ->
// L1 -> L2 -> L3 -> Curator"). This is the in-process equivalent of the
// newline-delimited-JSON handoff spec §6 describes between standalone
// stage processes: cmd/fisbd's "run" and "decode" subcommands both build
// one Pipeline and differ only in what consumes its output.
package pipeline

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"fisbd/internal/acdu"
	"fisbd/internal/changefilter"
	"fisbd/internal/clock"
	"fisbd/internal/config"
	"fisbd/internal/decode"
	"fisbd/internal/errsink"
	"fisbd/internal/metrics"
	"fisbd/internal/product"
	"fisbd/internal/reassembly"
	"fisbd/internal/registry"
	"fisbd/internal/spool"
)

// Sink is the destination for a product that survives L3 dedup: normally
// a spool.Writer in production, or a plain JSON-lines encoder for the
// "decode" CLI subcommand's teacher-style extract output.
type Sink interface {
	Write(p *product.Product) error
}

// Pipeline holds every piece of per-stage state a capture stream is routed
// through: the station registry + RSR clock (L0), segment and TWGO
// trackers (L1), the decoder registry (L2), and the change filter (L3).
type Pipeline struct {
	cfg      config.Config
	reg      *registry.Registry
	stations *acdu.Registry
	l0       *acdu.Stage
	segments *reassembly.Tracker
	twgo     *reassembly.PairTracker
	filter   *changefilter.Filter
	sink     Sink
	clk      clock.Clock
	errs     *errsink.Sink
	log      zerolog.Logger
	metrics  *metrics.Metrics

	expParams product.ExpirationParams
}

// SetMetrics attaches a metrics.Metrics instance; nil (the default) simply
// disables metric recording, so production and test callers that don't
// pass a registerer still run correctly.
func (p *Pipeline) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// New builds a Pipeline. reg should already have every decode package's
// decoders registered (decode.Register); out receives every product that
// survives L3.
func New(cfg config.Config, reg *registry.Registry, out Sink, clk clock.Clock, errs *errsink.Sink, log zerolog.Logger) *Pipeline {
	stations := acdu.NewRegistry(cfg.RSRWindow(), nil)
	return &Pipeline{
		cfg:      cfg,
		reg:      reg,
		stations: stations,
		l0:       acdu.NewStage(errs, stations, cfg.LegacyDLAC4Bit, cfg.DetailedMode),
		segments: reassembly.NewTracker(cfg.SegmentTTL, clk, errs),
		twgo:     reassembly.NewPairTracker(cfg.TWGOTTL, clk, errs),
		filter:   changefilter.New(cfg.RefreshFloor, clk, cfg.AlwaysForwardPireps, 0),
		sink:     out,
		clk:      clk,
		errs:     errs,
		log:      log,
		expParams: product.ExpirationParams{
			RSRWindow:             cfg.RSRWindow(),
			BypassSmartExpiration: cfg.BypassSmartExpiration,
		},
	}
}

// Run reads capture-protocol lines from r until EOF or ctx cancellation,
// driving every packet through L0-L3 (spec §5 suspension point (a)).
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	p.errs.Truncate()
	p.log.Debug().Msg("pipeline run starting")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.ProcessLine(scanner.Text())
	}
	return scanner.Err()
}

// RunSource drains a capture.Source instead of a plain io.Reader, for the
// NATS fan-in transport (spec §B "Ground-station fan-in transport").
func (p *Pipeline) RunSource(ctx context.Context, src interface {
	Lines(ctx context.Context) (<-chan string, <-chan error)
}) error {
	p.errs.Truncate()
	lines, errc := src.Lines(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			p.ProcessLine(line)
		}
	}
}

// ProcessLine runs one capture line through L0 and, on success, every
// frame it carries through L1-L3. Exported so a capture.Source that
// delivers lines over a channel (e.g. NATS) can drive the same pipeline
// Run uses for a plain io.Reader.
func (p *Pipeline) ProcessLine(line string) {
	pkt, err := p.l0.Process(line)
	if err != nil || pkt == nil {
		return
	}
	for _, fr := range pkt.Frames {
		p.handleFrame(pkt, fr)
	}
}

func (p *Pipeline) handleFrame(pkt *acdu.Packet, fr acdu.Frame) {
	payload := fr.Payload
	if fr.Header.AGPFlag {
		hdr, rest, ok := acdu.ParseSegmentHeader(fr.Payload)
		if !ok {
			p.errs.Append(errsink.KindDecode, "malformed segment header", map[string]any{
				"station": pkt.Station, "product_id": fr.Header.ProductID,
			})
			return
		}
		key := reassembly.SegmentKey{Station: pkt.Station, ProductID: fr.Header.ProductID, ReportID: hdr.ReportID}
		assembled, complete := p.segments.AddFrame(key, hdr.Index, hdr.Total, rest)
		if !complete {
			return
		}
		payload = assembled
	}

	text := acdu.Unpack(payload, p.cfg.LegacyDLAC4Bit)

	rf := registry.Frame{
		ProductID:  fr.Header.ProductID,
		Station:    pkt.Station,
		RcvdTime:   pkt.RcvdTime,
		Payload:    []byte(text),
		Sink:       p.errs,
		Expiration: p.expParams,
	}

	products, err := p.reg.Dispatch(rf)
	if err != nil {
		p.errs.Append(errsink.KindDecode, "decode failed", map[string]any{
			"product_id": fr.Header.ProductID, "err": err.Error(),
		})
		return
	}
	for _, prod := range products {
		p.emit(prod)
	}
}

// emit routes a freshly decoded product through TWGO pairing (if its type
// requires it) before forwarding survivors to L3 (spec §4.2 pairing rule,
// §4.2 cancellation semantics).
func (p *Pipeline) emit(prod *product.Product) {
	if !prod.IsTWGO() {
		p.forward(prod)
		return
	}

	key := reassembly.TWGOKey{ProductID: prod.ProductID, ReportNumber: prod.ReportNumber, ReportYear: prod.ReportYear}

	if prod.Cancelled {
		if cancelled := p.twgo.Cancel(key, prod.Type, prod.UniqueName); cancelled != nil {
			p.forward(cancelled)
		}
		return
	}

	var paired *product.Product
	var ok bool
	if prod.IsGraphicsHalf {
		paired, ok = p.twgo.AddGraphics(key, prod)
	} else {
		paired, ok = p.twgo.AddText(key, prod)
	}
	if ok {
		p.forward(paired)
	}
}

// forward runs a product through L3's change filter and, on survival,
// hands it to the configured Sink (spec §4.4 Rule).
func (p *Pipeline) forward(prod *product.Product) {
	if !p.filter.Allow(prod) {
		return
	}
	if p.metrics != nil {
		p.metrics.ProductsEmitted.WithLabelValues(string(prod.Type)).Inc()
	}
	if err := p.sink.Write(prod); err != nil {
		p.errs.Append(errsink.KindStore, "sink write failed", map[string]any{"key": prod.Key(), "err": err.Error()})
	}
}

// RSRTick synthesizes and forwards one RSR product per known ground
// station (spec §4.1 "every E seconds emits a synthetic RSR product").
func (p *Pipeline) RSRTick() {
	now := p.clk.Now()
	reports := p.stations.Snapshot(now)
	for _, rp := range decode.BuildRSRProducts(reports, now, p.expParams) {
		if p.metrics != nil && rp.RSR != nil {
			p.metrics.RSRPercent.WithLabelValues(rp.Station).Set(float64(rp.RSR.Percent))
		}
		p.forward(rp)
	}
}

// SweepTick evicts timed-out segment buffers and orphaned TWGO halves
// (spec §4.2 TTL eviction, §5 "oldest evicted on pressure"). A graphics
// half that times out without its text is still forwarded as a best-effort
// degraded product rather than silently dropped, matching PairTracker.Sweep.
func (p *Pipeline) SweepTick() {
	expired := p.segments.Sweep()
	orphans := p.twgo.Sweep()
	if p.metrics != nil {
		if expired > 0 {
			p.metrics.SegmentsExpired.Add(float64(expired))
		}
		if len(orphans) > 0 {
			p.metrics.TWGOOrphans.Add(float64(len(orphans)))
		}
	}
	for _, orphan := range orphans {
		p.forward(orphan)
	}
}

// RunTicks drives RSR synthesis and TTL sweeps off the virtual clock until
// ctx is cancelled (spec §5 suspension points (a)/(d), Design Note
// "Virtual clock": "all expiration logic must go through this
// capability" — RSR and TWGO/segment TTLs are the L0/L1 analog).
func (p *Pipeline) RunTicks(ctx context.Context) {
	rsrInterval := p.cfg.RSREmitInterval()
	if rsrInterval <= 0 {
		rsrInterval = 10 * time.Second
	}
	sweepInterval := p.cfg.SegmentTTL
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}

	lastRSR := p.clk.Now()
	lastSweep := lastRSR
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		next := lastRSR.Add(rsrInterval)
		if sw := lastSweep.Add(sweepInterval); sw.Before(next) {
			next = sw
		}
		p.clk.SleepUntil(next)

		now := p.clk.Now()
		if !now.Before(lastRSR.Add(rsrInterval)) {
			p.RSRTick()
			lastRSR = now
		}
		if !now.Before(lastSweep.Add(sweepInterval)) {
			p.SweepTick()
			lastSweep = now
		}
	}
}

// SpoolSink adapts a spool.Writer to the Sink interface for production use.
type SpoolSink struct {
	Writer *spool.Writer
}

func (s SpoolSink) Write(p *product.Product) error { return s.Writer.Write(p) }
