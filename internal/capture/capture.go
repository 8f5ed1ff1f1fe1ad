// Package capture abstracts how raw capture-protocol lines (spec §6
// "Capture input") reach the pipeline: a plain file/stdin reader in the
// common case, or a NATS subject when a ground-station fan-in process
// publishes lines instead of writing them to disk. This is the out-of-
// scope "radio/capture program" collaborator's interface (spec §1), not
// its implementation.
package capture

import (
	"bufio"
	"context"
	"io"
)

// Source yields capture-protocol lines for the pipeline to consume. Lines
// returns a channel that is closed when the source is exhausted or ctx is
// cancelled; a non-nil error channel value signals the source failed.
type Source interface {
	Lines(ctx context.Context) (<-chan string, <-chan error)
}

// Reader adapts any io.Reader (a file or os.Stdin) to a Source, the
// default capture path (spec §2 "Capture" collaborator feeding L0 over a
// line-delimited stream).
type Reader struct {
	R io.Reader
}

func (s Reader) Lines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string, 256)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		defer close(errc)

		scanner := bufio.NewScanner(s.R)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case lines <- scanner.Text():
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- err
		}
	}()

	return lines, errc
}
