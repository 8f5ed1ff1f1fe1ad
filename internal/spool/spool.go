// Package spool implements the ordered, crash-tolerant handoff directory
// between L3 and the Curator: filenames sort lexicographically by arrival
// timestamp, so a simple directory listing replays in temporal order even
// after a crash (spec §2, §6 "Inter-stage stream").
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"fisbd/internal/product"
)

// Writer appends products to a spool directory, one file per product.
type Writer struct {
	dir string
	seq uint64
}

// NewWriter builds a Writer rooted at dir, creating it if necessary.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spool: mkdir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write serializes p to a new spool file. Filenames are
// `YYYYMMDDTHHMMSS.nnnnnn-seq-uuid8.json` (spec §6) so lexicographic order equals
// arrival order; seq breaks ties within the same microsecond and the
// trailing uuid keeps concurrent writers from colliding on name reuse.
func (w *Writer) Write(p *product.Product) error {
	now := time.Now().UTC()
	w.seq++
	name := fmt.Sprintf("%s-%06d-%s.json", now.Format("20060102T150405.000000"), w.seq, uuid.NewString()[:8])
	path := filepath.Join(w.dir, name)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("spool: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("spool: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("spool: rename: %w", err)
	}
	return nil
}

// Entry is one pending spool file.
type Entry struct {
	Path string
	Name string
}

// List returns every pending spool file in name order (== arrival order),
// per spec §4.5 "Reads product files from the spool directory in name
// order".
func List(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("spool: read dir: %w", err)
	}
	var out []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		out = append(out, Entry{Path: filepath.Join(dir, name), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read loads and deserializes one spool entry.
func Read(e Entry) (*product.Product, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("spool: read %s: %w", e.Name, err)
	}
	var p product.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("spool: unmarshal %s: %w", e.Name, err)
	}
	return &p, nil
}

// Delete removes a spool entry after successful application (spec §4.5
// "applies them, and deletes each after successful application").
func Delete(e Entry) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spool: delete %s: %w", e.Name, err)
	}
	return nil
}
