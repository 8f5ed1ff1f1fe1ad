package decode

import (
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// ServiceStatusDecoder decodes the ground station's service-status frame:
// a short-lived heartbeat with no station-scoped key beyond the station
// itself (spec §3 Product types, §4.3 expiration table: rcvd + 40s).
type ServiceStatusDecoder struct{}

func (d *ServiceStatusDecoder) Name() string      { return "service_status" }
func (d *ServiceStatusDecoder) ProductIDs() []int { return []int{idServiceStatus} }

func (d *ServiceStatusDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	fields := parseFields(string(f.Payload))
	p := &product.Product{
		Type:       product.TypeServiceStatus,
		UniqueName: f.Station,
		Contents:   fields["TEXT"],
		Station:    f.Station,
		RcvdTime:   f.RcvdTime,
	}
	product.ComputeExpiration(p, f.Expiration)
	return []*product.Product{p}, nil
}

// FISBUnavailableDecoder decodes the "service unavailable for this
// product/area" marker frame.
type FISBUnavailableDecoder struct{}

func (d *FISBUnavailableDecoder) Name() string      { return "fisb_unavailable" }
func (d *FISBUnavailableDecoder) ProductIDs() []int { return []int{idFISBUnavailable} }

func (d *FISBUnavailableDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	fields := parseFields(string(f.Payload))
	p := &product.Product{
		Type:       product.TypeFISBUnavailable,
		UniqueName: f.Station + ":" + fields["PID"],
		Contents:   fields["TEXT"],
		Station:    f.Station,
		RcvdTime:   f.RcvdTime,
	}
	product.ComputeExpiration(p, f.Expiration)
	return []*product.Product{p}, nil
}
