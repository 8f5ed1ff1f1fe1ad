package capture

import (
	"context"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures the alternate ground-station fan-in transport
// (spec §B domain stack: "Ground-station fan-in transport"). URL follows
// the standard nats.go connection string; Subject is the capture-line
// topic a station-side publisher writes to.
type NATSConfig struct {
	URL     string
	Subject string
}

// NATSSource subscribes to a NATS subject and republishes each message's
// payload as one capture line, so multiple ground-station processes can
// fan in to one Curator pipeline without sharing a filesystem.
type NATSSource struct {
	cfg NATSConfig
	nc  *nats.Conn
}

// DialNATS connects to cfg.URL and returns a Source subscribed to
// cfg.Subject. Close must be called to release the subscription and
// connection.
func DialNATS(cfg NATSConfig) (*NATSSource, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	return &NATSSource{cfg: cfg, nc: nc}, nil
}

func (s *NATSSource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string, 256)
	errc := make(chan error, 1)

	sub, err := s.nc.Subscribe(s.cfg.Subject, func(m *nats.Msg) {
		select {
		case lines <- string(m.Data):
		case <-ctx.Done():
		}
	})
	if err != nil {
		errc <- err
		close(lines)
		close(errc)
		return lines, errc
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		close(lines)
		close(errc)
	}()

	return lines, errc
}

// Close releases the NATS connection.
func (s *NATSSource) Close() error {
	s.nc.Close()
	return nil
}
