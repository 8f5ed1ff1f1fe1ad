// Package registry dispatches decoded APDUs to the L2 decoder registered
// for their product id, generalizing the teacher's per-ACARS-label parser
// registry to FIS-B's per-product-id decode dispatch (spec §4.4 "Decode
// dispatch table").
package registry

import (
	"sort"
	"sync"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
)

// Frame is the L0/L1 output handed to a Decoder: a reassembled, CRC-verified
// APDU payload for one product id, plus the station and receive time that
// travel alongside it through L2.
type Frame struct {
	ProductID int
	Station   string
	RcvdTime  time.Time
	Payload   []byte

	// Sink records decode-time failures (spec §7 error taxonomy); nil is
	// valid and simply disables structured error reporting.
	Sink *errsink.Sink

	// Expiration carries the Curator-configured parameters (RSR window
	// width, bypass-smart-expiration flag) each decoder needs to compute
	// its product's expiration_time before returning (spec §4.3
	// "Expiration. Every product leaves L2 with an expiration_time.").
	Expiration product.ExpirationParams
}

// Decoder is implemented by each product-id decoder package.
type Decoder interface {
	// Name returns the decoder's unique identifier, e.g. "metar", "taf".
	Name() string

	// ProductIDs returns the FIS-B product ids this decoder handles.
	ProductIDs() []int

	// Decode attempts to parse payload into one or more Products. A single
	// APDU occasionally yields more than one product (e.g. a CRL frame
	// enumerating several report entries).
	Decode(f Frame) ([]*product.Product, error)
}

// Registry holds every registered decoder, keyed by product id.
type Registry struct {
	mu      sync.RWMutex
	byID    map[int][]Decoder
	sorted  bool
	ordered []int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[int][]Decoder)}
}

var defaultRegistry = New()

// Default returns the process-wide registry instance.
func Default() *Registry { return defaultRegistry }

// Register adds a decoder to the default registry. decode.Register fills
// an explicit *Registry instead, so this module's decoders are not here.
func Register(d Decoder) { defaultRegistry.Register(d) }

// Register adds a decoder for every product id it declares.
func (r *Registry) Register(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range d.ProductIDs() {
		r.byID[id] = append(r.byID[id], d)
	}
	r.sorted = false
}

// Dispatch routes a Frame to the decoder(s) registered for its product id.
// Returns nil, nil if no decoder is registered (spec §4.4: unknown product
// ids are dropped, not an error).
func (r *Registry) Dispatch(f Frame) ([]*product.Product, error) {
	r.mu.RLock()
	decoders := r.byID[f.ProductID]
	r.mu.RUnlock()

	if len(decoders) == 0 {
		return nil, nil
	}

	var out []*product.Product
	for _, d := range decoders {
		products, err := d.Decode(f)
		if err != nil {
			return nil, err
		}
		out = append(out, products...)
	}
	return out, nil
}

// RegisteredIDs returns every product id that has at least one decoder,
// sorted ascending.
func (r *Registry) RegisteredIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
