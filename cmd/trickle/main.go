// Command trickle is the deterministic test-replay driver (spec §6 "Trigger
// file format"). It reads one or more trigger CSVs plus a start-dates.csv
// anchor table, replays each row's capture line in schedule order, and
// advances the virtual clock sync file fisbd's Curator polls in test mode
// (spec §4.5 "Virtual time... the Curator reads a sync file written by the
// Trickle driver containing an offset Delta").
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"fisbd/internal/acdu"
	"fisbd/internal/clock"
)

// trigger is one scheduled replay event: at virtual time anchor +
// SecondsAfterMidnight, set the clock offset to OffsetSeconds and emit
// Message as a capture line.
type trigger struct {
	secondsAfterMidnight float64
	offsetSeconds        float64
	sequenceNumber       int
	message              string
	at                   time.Time
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "trickle - commands:")
	fmt.Fprintln(w, "  replay  - replay trigger CSVs against a sync file and capture output")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  trickle replay -start-dates start-dates.csv [-sync-file path] [-speed N] trigger1.csv [trigger2.csv ...]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Each trigger CSV's base filename (without extension) is its group name,")
	fmt.Fprintln(w, "    looked up in start-dates.csv for its anchor date.")
	fmt.Fprintln(w, "  - -speed 0 (the default) replays as fast as possible with no real-time wait.")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	switch strings.ToLower(os.Args[1]) {
	case "replay":
		if err := runReplay(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "trickle: %v\n", err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	startDatesPath := fs.String("start-dates", "", "start-dates.csv: group,anchor_date rows")
	syncFilePath := fs.String("sync-file", "./sync.json", "Virtual clock sync file to write")
	outputPath := fs.String("output", "", "Capture-line output (default: stdout)")
	speed := fs.Float64("speed", 0, "Real-time replay speed multiplier (0 = fast-forward, no wait)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *startDatesPath == "" {
		return fmt.Errorf("replay: -start-dates is required")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("replay: at least one trigger CSV is required")
	}

	anchors, err := loadStartDates(*startDatesPath)
	if err != nil {
		return fmt.Errorf("load start-dates: %w", err)
	}

	var triggers []trigger
	for _, path := range fs.Args() {
		group := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		anchor, ok := anchors[group]
		if !ok {
			return fmt.Errorf("no anchor date for group %q (from %s)", group, path)
		}
		rows, err := loadTriggers(path, anchor)
		if err != nil {
			return fmt.Errorf("load triggers %s: %w", path, err)
		}
		triggers = append(triggers, rows...)
	}

	sort.Slice(triggers, func(i, j int) bool {
		if !triggers[i].at.Equal(triggers[j].at) {
			return triggers[i].at.Before(triggers[j].at)
		}
		return triggers[i].sequenceNumber < triggers[j].sequenceNumber
	})

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	var prev time.Time
	for i, tr := range triggers {
		if *speed > 0 && i > 0 {
			wait := time.Duration(float64(tr.at.Sub(prev)) / *speed)
			if wait > 0 {
				time.Sleep(wait)
			}
		}
		prev = tr.at

		if err := clock.WriteSyncFile(*syncFilePath, time.Duration(tr.offsetSeconds*float64(time.Second))); err != nil {
			return fmt.Errorf("write sync file: %w", err)
		}
		if _, err := fmt.Fprintln(w, tr.message); err != nil {
			return fmt.Errorf("write capture line: %w", err)
		}
	}
	return w.Flush()
}

// loadStartDates parses start-dates.csv: one "group,anchor_date" row per
// test group, anchor_date as YYYY-MM-DD.
func loadStartDates(path string) (map[string]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		group := strings.TrimSpace(row[0])
		if group == "" || strings.EqualFold(group, "group") {
			continue // header row
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", group, err)
		}
		out[group] = d
	}
	return out, nil
}

// loadTriggers parses one trigger CSV: seconds_after_midnight,
// offset_seconds, sequence_number, message rows, anchored to anchor's date.
// Each message is validated as a capture line via internal/acdu's own
// parser rather than trickle re-implementing the line grammar.
func loadTriggers(path string, anchor time.Time) ([]trigger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]trigger, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row[0]), "seconds_after_midnight") {
			continue // header row
		}
		sam, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("seconds_after_midnight: %w", err)
		}
		off, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("offset_seconds: %w", err)
		}
		seq, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("sequence_number: %w", err)
		}
		msg := row[3]

		if _, err := acdu.ParseLine(msg); err != nil {
			return nil, fmt.Errorf("row %d: %w", seq, err)
		}

		out = append(out, trigger{
			secondsAfterMidnight: sam,
			offsetSeconds:        off,
			sequenceNumber:       seq,
			message:              msg,
			at:                   anchor.Add(time.Duration(sam * float64(time.Second))),
		})
	}
	return out, nil
}
