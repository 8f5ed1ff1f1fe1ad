package clock

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// syncFilePayload is the JSON body Trickle writes to the sync file (spec
// §4.5 "Virtual time... the Curator reads a sync file written by the
// Trickle driver containing an offset Delta").
type syncFilePayload struct {
	OffsetSeconds float64 `json:"offset_seconds"`
}

// WriteSyncFile atomically writes offset to path, for Trickle to call on
// every virtual-clock advance.
func WriteSyncFile(path string, offset time.Duration) error {
	data, err := json.Marshal(syncFilePayload{OffsetSeconds: offset.Seconds()})
	if err != nil {
		return fmt.Errorf("clock: marshal sync file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("clock: write sync file: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadSyncFile reads the offset currently recorded in path.
func ReadSyncFile(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("clock: read sync file: %w", err)
	}
	var p syncFilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("clock: unmarshal sync file: %w", err)
	}
	return time.Duration(p.OffsetSeconds * float64(time.Second)), nil
}

// FilePolled is a test-mode Clock whose Delta is refreshed from a sync
// file every poll interval rather than held fixed, so the Curator's
// virtual_now tracks Trickle's replay progress without the two processes
// sharing memory (spec §4.5 Virtual time).
type FilePolled struct {
	*Offset
	delta atomic.Int64 // nanoseconds
	stop  chan struct{}
}

// NewFilePolled builds a FilePolled clock reading path every interval. The
// initial offset is read synchronously so Now() is correct immediately;
// call Close to stop the background poll.
func NewFilePolled(path string, interval time.Duration) (*FilePolled, error) {
	initial, err := ReadSyncFile(path)
	if err != nil {
		return nil, err
	}
	fp := &FilePolled{stop: make(chan struct{})}
	fp.delta.Store(int64(initial))
	fp.Offset = &Offset{Delta: func() time.Duration { return time.Duration(fp.delta.Load()) }}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-fp.stop:
				return
			case <-ticker.C:
				if d, err := ReadSyncFile(path); err == nil {
					fp.delta.Store(int64(d))
				}
			}
		}
	}()
	return fp, nil
}

// Close stops the background poll goroutine.
func (fp *FilePolled) Close() {
	close(fp.stop)
}
