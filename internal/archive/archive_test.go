package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"fisbd/internal/acdu"
)

func TestWriterArchivesLocallyWithoutClickHouse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packets.jsonl.zst")

	w, err := NewWriter(path, nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	p := &acdu.Packet{
		RcvdTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Station:  "KXYZ",
		LatDeg:   40.0,
		LonDeg:   -80.0,
	}
	if err := w.Archive(context.Background(), p); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive file: %v", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("new zstd reader: %v", err)
	}
	defer zr.Close()

	buf := make([]byte, 4096)
	n, _ := zr.Read(buf)
	if n == 0 {
		t.Fatalf("expected decompressed archive content, got none")
	}
}
