// Package archive implements the peripheral raw-packet archive writer
// (spec §2 "An archive writer persists every raw packet, reusing L0's
// framing, to a separate analytics store; out of scope for the core
// pipeline's correctness but present for completeness"). It fans every
// decoded internal/acdu.Packet out to a ClickHouse analytics sink when
// configured, and always writes a local zstd-compressed fallback file so
// archival never blocks on analytics-store availability.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"fisbd/internal/acdu"
)

// Writer fans out archived packets to an optional ClickHouse sink and a
// local zstd fallback file, matching the teacher's ClickHouseDB as the
// analytics sink and the pack's klauspost/compress zstd usage
// (mmp-vice wx/metar.go) for the local file.
type Writer struct {
	ch *ClickHouseSink // nil disables the analytics sink

	mu  sync.Mutex
	f   *os.File
	zw  *zstd.Encoder
	enc *json.Encoder
}

// NewWriter opens (creating if needed, appending otherwise) a zstd-compressed local fallback
// file at path, and wires an optional ClickHouse sink.
func NewWriter(path string, ch *ClickHouseSink) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: new zstd writer: %w", err)
	}
	return &Writer{ch: ch, f: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Archive records one raw packet. The local fallback write is best-effort
// synchronous; the ClickHouse sink (if wired) is attempted but its failure
// never blocks or drops the local copy, since the analytics store is
// explicitly peripheral (spec §2).
func (w *Writer) Archive(ctx context.Context, p *acdu.Packet) error {
	w.mu.Lock()
	err := w.enc.Encode(p)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("archive: local write: %w", err)
	}

	if w.ch != nil {
		if err := w.ch.Insert(ctx, p); err != nil {
			return fmt.Errorf("archive: clickhouse insert: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the local archive file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: close zstd writer: %w", err)
	}
	return w.f.Close()
}
