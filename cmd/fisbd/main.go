// Command fisbd is the FIS-B decode-and-curate daemon. It has three
// subcommands: run drives capture through the Curator end to end, decode
// stops at L3 and emits JSONL (the teacher-style "extract" path, useful for
// offline inspection), and curate exposes the Curator's own CLI surface
// (run, run -test N, dump-vectors, expire-sweep) against an existing spool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fisbd/internal/clock"
	"fisbd/internal/config"
	"fisbd/internal/curator"
	"fisbd/internal/decode"
	"fisbd/internal/enrichment"
	"fisbd/internal/errsink"
	"fisbd/internal/httpapi"
	"fisbd/internal/logging"
	"fisbd/internal/metrics"
	"fisbd/internal/pipeline"
	"fisbd/internal/product"
	"fisbd/internal/registry"
	"fisbd/internal/spool"
	"fisbd/internal/store"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "fisbd - commands:")
	fmt.Fprintln(w, "  run      - capture -> L0-L3 -> spool -> Curator, end to end")
	fmt.Fprintln(w, "  decode   - run L0-L3 only, emit decoded products as JSONL")
	fmt.Fprintln(w, "  curate   - run the Curator against an existing spool directory")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fisbd run [-config file] [-input path] [-spool-dir dir] [-store sqlite|postgres]")
	fmt.Fprintln(w, "  fisbd decode [-input path] [-output path] [-pretty]")
	fmt.Fprintln(w, "  fisbd curate run [-config file]")
	fmt.Fprintln(w, "  fisbd curate run -test N [-config file]")
	fmt.Fprintln(w, "  fisbd curate dump-vectors [-config file] [-output dir]")
	fmt.Fprintln(w, "  fisbd curate expire-sweep [-config file]")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "run":
		err = runDaemon(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "curate":
		err = runCurate(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fisbd: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// baseConfig registers the config, spool-dir, sync-file and detailed flags
// every subcommand accepts and returns pointers to their values.
func baseConfig(fs *flag.FlagSet) (*string, *string, *string, *bool) {
	configFile := fs.String("config", envOrDefault("FISB_CONFIG", ""), "Path to a YAML/TOML/JSON config file")
	spoolDir := fs.String("spool-dir", envOrDefault("FISB_SPOOL_DIR", ""), "Spool directory override")
	syncFile := fs.String("sync-file", envOrDefault("FISB_SYNC_FILE", ""), "Trickle virtual-clock sync file (enables test-mode clock)")
	detailed := fs.Bool("detailed", false, "Retain reserved APDU bytes on each packet")
	return configFile, spoolDir, syncFile, detailed
}

func buildClock(syncFile string) (clock.Clock, func(), error) {
	if syncFile == "" {
		return clock.Wall{}, func() {}, nil
	}
	fp, err := clock.NewFilePolled(syncFile, 500*time.Millisecond)
	if err != nil {
		return nil, nil, fmt.Errorf("open sync file: %w", err)
	}
	return fp, fp.Close, nil
}

// runDaemon implements `fisbd run`: capture -> L0-L3 -> spool, with the
// Curator draining the same spool on its maintenance interval, both stages
// supervised by one errgroup (spec §5 suspension points run concurrently,
// each stage failing independently).
func runDaemon(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile, spoolDirFlag, syncFileFlag, detailed := baseConfig(fs)
	inputPath := fs.String("input", "", "Capture input file (default: stdin)")
	storeKind := fs.String("store", envOrDefault("FISB_STORE", "sqlite"), "Datastore backend: sqlite or postgres")
	sqlitePath := fs.String("sqlite-path", envOrDefault("FISB_SQLITE_PATH", "./fisbd.db"), "SQLite datastore path")
	pgHost := fs.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := fs.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := fs.String("pg-user", envOrDefault("POSTGRES_USER", "fisbd"), "PostgreSQL user")
	pgPassword := fs.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "fisbd"), "PostgreSQL password")
	pgDB := fs.String("pg-database", envOrDefault("POSTGRES_DATABASE", "fisbd"), "PostgreSQL database")
	sideStorePath := fs.String("sidestore-path", envOrDefault("FISB_SIDESTORE_PATH", ""), "SQLite side-store path (airports/navaids/SUA/WMM); enrichment disabled if empty")
	httpAddr := fs.String("http-addr", envOrDefault("FISB_HTTP_ADDR", ""), "Bind address for the read-only HTTP API (disabled if empty)")
	metricsAddr := fs.String("metrics-addr", envOrDefault("FISB_METRICS_ADDR", ""), "Bind address for Prometheus /metrics (disabled if empty)")
	natsURL := fs.String("nats-url", envOrDefault("FISB_NATS_URL", ""), "NATS URL for the alternate ground-station fan-in transport (disabled if empty)")
	natsSubject := fs.String("nats-subject", envOrDefault("FISB_NATS_SUBJECT", "fisb.capture"), "NATS subject to subscribe to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile, *spoolDirFlag, *syncFileFlag, *detailed)
	if err != nil {
		return err
	}

	log := logging.NewConsole("fisbd")
	clk, closeClock, err := buildClock(cfg.SyncFile)
	if err != nil {
		return err
	}
	defer closeClock()

	if err := os.MkdirAll(cfg.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}
	writer, err := spool.NewWriter(cfg.SpoolDir)
	if err != nil {
		return fmt.Errorf("open spool writer: %w", err)
	}

	reg := registry.New()
	decode.Register(reg)

	pipelineSink := errsink.New(log.With().Str("stage", "pipeline").Logger(), 10000)
	curatorSink := errsink.New(log.With().Str("stage", "curator").Logger(), 10000)

	pl := pipeline.New(cfg, reg, pipeline.SpoolSink{Writer: writer}, clk, pipelineSink, log)

	db, closeDB, err := openStore(*storeKind, *sqlitePath, store.PostgresConfig{
		Host: *pgHost, Port: *pgPort, User: *pgUser, Password: *pgPassword, Database: *pgDB,
	})
	if err != nil {
		return err
	}
	defer closeDB()

	var enr *enrichment.Enricher
	if *sideStorePath != "" {
		side, err := store.OpenSQLiteSideStore(*sideStorePath)
		if err != nil {
			return fmt.Errorf("open side store: %w", err)
		}
		defer side.Close()
		enr = enrichment.New(side)
	}

	cur := curator.New(cfg, db, clk, curatorSink, log.With().Str("stage", "curator").Logger(), enr)

	var natsSrc interface {
		Lines(ctx context.Context) (<-chan string, <-chan error)
	}
	var closeNATS func()
	if *natsURL != "" {
		src, err := dialNATSSource(*natsURL, *natsSubject)
		if err != nil {
			return fmt.Errorf("dial nats: %w", err)
		}
		natsSrc = src
		closeNATS = func() { _ = src.Close() }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if natsSrc != nil {
			defer closeNATS()
			return pl.RunSource(gctx, natsSrc)
		}
		r, closeIn, err := openInput(*inputPath)
		if err != nil {
			return err
		}
		defer closeIn()
		return pl.Run(gctx, r)
	})

	g.Go(func() error {
		pl.RunTicks(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.MaintInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := cur.Run(gctx); err != nil {
					return err
				}
				if err := cur.MaintenanceTick(gctx); err != nil {
					return err
				}
			}
		}
	})

	if *httpAddr != "" {
		addr := *httpAddr
		g.Go(func() error {
			srv := httpapi.New(db, map[string]*errsink.Sink{
				"pipeline": pipelineSink,
				"curator":  curatorSink,
			}, httpapi.Config{Port: parsePort(addr)})
			return srv.Run()
		})
	}

	if *metricsAddr != "" {
		m := metrics.New()
		pl.SetMetrics(m)
		cur.SetMetrics(m)
		addr := *metricsAddr
		g.Go(func() error {
			return serveMetrics(addr)
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

// runDecode implements `fisbd decode`: L0-L3 only, emitting every surviving
// product as one JSON object per line (the teacher's extract-to-JSON
// idiom, with the Curator's spool-and-store step skipped entirely).
func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	configFile, _, syncFileFlag, detailed := baseConfig(fs)
	inputPath := fs.String("input", "", "Capture input file (default: stdin)")
	outputPath := fs.String("output", "", "Output JSONL file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print each JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile, "", *syncFileFlag, *detailed)
	if err != nil {
		return err
	}

	log := logging.NewConsole("fisbd-decode")
	clk, closeClock, err := buildClock(cfg.SyncFile)
	if err != nil {
		return err
	}
	defer closeClock()

	r, closeIn, err := openInput(*inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	w, closeOut, err := openOutput(*outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	reg := registry.New()
	decode.Register(reg)
	sink := errsink.New(log, 10000)

	enc := json.NewEncoder(w)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	pl := pipeline.New(cfg, reg, jsonSink{enc: enc}, clk, sink, log)
	return pl.Run(context.Background(), r)
}

type jsonSink struct{ enc *json.Encoder }

func (s jsonSink) Write(p *product.Product) error { return s.enc.Encode(p) }

// runCurate implements the Curator's own CLI surface (spec §6 "CLI surface
// (minimal, Curator)"): run, run -test N, dump-vectors, expire-sweep.
func runCurate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("curate: missing subcommand (run, dump-vectors, expire-sweep)")
	}
	sub := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("curate "+sub, flag.ExitOnError)
	configFile, spoolDirFlag, syncFileFlag, _ := baseConfig(fs)
	storeKind := fs.String("store", envOrDefault("FISB_STORE", "sqlite"), "Datastore backend: sqlite or postgres")
	sqlitePath := fs.String("sqlite-path", envOrDefault("FISB_SQLITE_PATH", "./fisbd.db"), "SQLite datastore path")
	pgHost := fs.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := fs.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := fs.String("pg-user", envOrDefault("POSTGRES_USER", "fisbd"), "PostgreSQL user")
	pgPassword := fs.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "fisbd"), "PostgreSQL password")
	pgDB := fs.String("pg-database", envOrDefault("POSTGRES_DATABASE", "fisbd"), "PostgreSQL database")
	testN := fs.Int("test", 0, "Test mode: drain the spool this many times, firing scheduled triggers")
	outputDir := fs.String("output", "./vectors", "Output directory for dump-vectors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile, *spoolDirFlag, *syncFileFlag, false)
	if err != nil {
		return err
	}

	log := logging.NewConsole("fisbd-curate")
	clk, closeClock, err := buildClock(cfg.SyncFile)
	if err != nil {
		return err
	}
	defer closeClock()

	db, closeDB, err := openStore(*storeKind, *sqlitePath, store.PostgresConfig{
		Host: *pgHost, Port: *pgPort, User: *pgUser, Password: *pgPassword, Database: *pgDB,
	})
	if err != nil {
		return err
	}
	defer closeDB()

	sink := errsink.New(log, 10000)
	cur := curator.New(cfg, db, clk, sink, log, nil)

	ctx := context.Background()
	switch sub {
	case "run":
		if *testN > 0 {
			return cur.RunTest(ctx, *testN, nil)
		}
		if err := cur.Run(ctx); err != nil {
			return err
		}
		return cur.MaintenanceTick(ctx)
	case "dump-vectors":
		if err := os.MkdirAll(*outputDir, 0o755); err != nil {
			return err
		}
		f, err := os.Create(*outputDir + "/vectors.csv")
		if err != nil {
			return err
		}
		defer f.Close()
		return cur.DumpVectors(ctx, f)
	case "expire-sweep":
		return cur.MaintenanceTick(ctx)
	default:
		return fmt.Errorf("curate: unknown subcommand %q", sub)
	}
}

func loadConfig(configFile, spoolDir, syncFile string, detailed bool) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if spoolDir != "" {
		cfg.SpoolDir = spoolDir
	}
	if syncFile != "" {
		cfg.SyncFile = syncFile
	}
	if detailed {
		cfg.DetailedMode = true
	}
	return cfg, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openStore(kind, sqlitePath string, pgCfg store.PostgresConfig) (store.Store, func(), error) {
	switch strings.ToLower(kind) {
	case "postgres":
		db, err := store.OpenPostgres(context.Background(), pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	case "sqlite", "":
		db, err := store.OpenSQLite(sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

func parsePort(addr string) int {
	parts := strings.Split(addr, ":")
	if len(parts) == 0 {
		return 0
	}
	p, _ := strconv.Atoi(parts[len(parts)-1])
	return p
}
