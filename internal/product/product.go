// Package product defines the typed product model emitted by L2 and
// consumed by L3 and the Curator (spec §3 "Product").
package product

import (
	"time"

	"fisbd/internal/geo"
)

// Type enumerates every product type named in spec §3.
type Type string

const (
	TypeMETAR             Type = "METAR"
	TypeTAF               Type = "TAF"
	TypeWinds06           Type = "WINDS_06_HR"
	TypeWinds12           Type = "WINDS_12_HR"
	TypeWinds24           Type = "WINDS_24_HR"
	TypePIREP             Type = "PIREP"
	TypeAIRMET            Type = "AIRMET"
	TypeGAIRMET00         Type = "G_AIRMET_00_HR"
	TypeGAIRMET03         Type = "G_AIRMET_03_HR"
	TypeGAIRMET06         Type = "G_AIRMET_06_HR"
	TypeSIGMET            Type = "SIGMET"
	TypeWST               Type = "WST"
	TypeCWA               Type = "CWA"
	TypeNOTAMD            Type = "NOTAM_D"
	TypeNOTAMFDC          Type = "NOTAM_FDC"
	TypeNOTAMTFR          Type = "NOTAM_TFR"
	TypeSUA               Type = "SUA"
	TypeFISBUnavailable   Type = "FIS_B_UNAVAILABLE"
	TypeServiceStatus     Type = "SERVICE_STATUS"
	TypeCRL8              Type = "CRL_8"
	TypeCRL11             Type = "CRL_11"
	TypeCRL12             Type = "CRL_12"
	TypeCRL14             Type = "CRL_14"
	TypeCRL15             Type = "CRL_15"
	TypeCRL16             Type = "CRL_16"
	TypeCRL17             Type = "CRL_17"
	TypeRSR               Type = "RSR"
	TypeSIGWX             Type = "SIGWX"
	TypeImageNEXRADConus  Type = "IMAGE_NEXRAD_CONUS"
	TypeImageNEXRADRegion Type = "IMAGE_NEXRAD_REGIONAL"
	TypeImageCloudTops    Type = "IMAGE_CLOUD_TOPS"
	TypeImageIcing        Type = "IMAGE_ICING"
	TypeImageTurbulence   Type = "IMAGE_TURBULENCE"
	TypeImageLightning    Type = "IMAGE_LIGHTNING"
)

// TWGOTypes is the set of product classes that split text and graphics
// halves and require L1 pairing (spec §4.2).
var TWGOTypes = map[Type]bool{
	TypeAIRMET:    true,
	TypeGAIRMET00: true,
	TypeGAIRMET03: true,
	TypeGAIRMET06: true,
	TypeSIGMET:    true,
	TypeWST:       true,
	TypeCWA:       true,
	TypeNOTAMTFR:  true,
	TypeSUA:       true,
}

// NOTAM-FDC is broadcast on a single frame id in this implementation (no
// dedicated graphics frame id exists alongside idNOTAMFDC), so it is decoded
// like NOTAM-D rather than routed through L1's TWGO pairing state machine.

// RadarLikeTypes are image products subject to the 10-minute staleness
// eviction rule in spec §4.5 step 4.
var RadarLikeTypes = map[Type]bool{
	TypeImageNEXRADConus:  true,
	TypeImageNEXRADRegion: true,
	TypeImageLightning:    true,
}

// Product is the minimum envelope spec §3 requires for every emitted record.
type Product struct {
	Type       Type   `json:"type"`
	UniqueName string `json:"unique_name"`
	Contents   string `json:"contents,omitempty"`

	Geometry []geo.Element `json:"geometry,omitempty"`

	IssuedTime         time.Time `json:"issued_time,omitempty"`
	ObservationTime    time.Time `json:"observation_time,omitempty"`
	ValidPeriodBegin   time.Time `json:"valid_period_begin_time,omitempty"`
	ValidPeriodEnd     time.Time `json:"valid_period_end_time,omitempty"`
	ModelRunTime       time.Time `json:"model_run_time,omitempty"`
	StartOfActivity    time.Time `json:"start_of_activity_time,omitempty"`
	EndOfValidity      time.Time `json:"end_of_validity_time,omitempty"`

	ExpirationTime time.Time `json:"expiration_time"`

	// Station/station-scoped metadata, carried through from L0/L1 but
	// excluded from L3's content digest.
	Station  string    `json:"station,omitempty"`
	RcvdTime time.Time `json:"rcvd_time"`

	// InsertTime is set by the Curator on ingest (spec §4.5 Upsert semantics);
	// L0-L3 never populate it.
	InsertTime time.Time `json:"insert_time,omitzero"`

	// GeoJSON is attached by the Curator's location enrichment (spec §4.5);
	// absent when enrichment found no match.
	GeoJSON string `json:"geojson,omitempty"`

	// Cancelled marks a TWGO cancellation product (report-status=0, spec §4.2).
	Cancelled bool `json:"cancelled,omitempty"`

	// ReportNumber/ReportYear identify a TWGO half for L1 pairing (spec §3
	// TWGO Pair: "Identified by (product-id, report-number, report-year)").
	// ProductID carries the decoder's own wire product id for the same key.
	ReportNumber int `json:"report_number,omitempty"`
	ReportYear   int `json:"report_year,omitempty"`
	ProductID    int `json:"product_id,omitempty"`

	// TextRef is populated on a graphics half: the report number it must
	// resolve against an active text record before pairing (spec §3).
	TextRef int `json:"text_ref,omitempty"`
	// IsGraphicsHalf distinguishes a graphics-only TWGO half awaiting its
	// text half from a text-only half awaiting graphics.
	IsGraphicsHalf bool `json:"-"`

	// Block carries one image raster tile when Type is an image product
	// (spec §3 Image Product, §4.5 Image assembly).
	Block *ImageBlock `json:"block,omitempty"`

	// CRL carries the station's Current Report List when Type is a CRL_*
	// product (spec §3 CRL).
	CRL *CRLList `json:"crl,omitempty"`

	// RSR carries the reception-quality snapshot when Type is RSR (spec
	// §4.1 "{station: [received, expected_per_sec, percent]}").
	RSR *RSRData `json:"rsr,omitempty"`

	// FixIdent, MagneticBearing and RadialDistanceNM carry a PIREP's raw
	// /OV radial-fix reference (e.g. "ABC270015" = 270 degrees magnetic,
	// 15 NM from fix ABC) ahead of location enrichment resolving FixIdent
	// to a coordinate and rotating MagneticBearing to TrueBearing via the
	// WMM side table (spec §4.5 "Magnetic-to-true correction ... for any
	// bearing fields").
	FixIdent            string   `json:"fix_ident,omitempty"`
	MagneticBearing     *float64 `json:"magnetic_bearing,omitempty"`
	RadialDistanceNM    *float64 `json:"radial_distance_nm,omitempty"`
	TrueBearing         *float64 `json:"true_bearing,omitempty"`
	MagneticDeclination *float64 `json:"magnetic_declination,omitempty"`
}

// RSRData is the synthetic reception-quality payload of an RSR product.
type RSRData struct {
	Received       int     `json:"received"`
	ExpectedPerSec float64 `json:"expected_per_sec"`
	Percent        int     `json:"percent"`
}

// ImageBlock is one per-block raster tile received for an image product
// (spec §3 Image Product: "each block carrying (block-number, bin-value
// grid, validity time)").
type ImageBlock struct {
	BlockNumber int       `json:"block_number"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Bins        []byte    `json:"bins"` // row-major, len == Width*Height
	ValidTime   time.Time `json:"valid_time"`
	Scale       string    `json:"scale,omitempty"`
}

// CRLEntry describes one station-listed report within a CRL (spec §3 CRL).
type CRLEntry struct {
	ReportNumber int  `json:"report_number"`
	HasText      bool `json:"has_text"`
	HasGraphics  bool `json:"has_graphics"`
}

// CRLList is a station-scoped Current Report List for one CRL-bearing
// product class (spec §3 CRL).
type CRLList struct {
	Station  string     `json:"station"`
	Entries  []CRLEntry `json:"entries"`
	Overflow bool       `json:"overflow"`
	// Status is computed and annotated by the Curator, not L2 (spec §4.5
	// CRL reconciliation); L2 always leaves it empty.
	Status string `json:"status,omitempty"`
}

// Key returns the (type, unique_name) composite key the datastore and L3
// digest cache both index on (spec §6 Datastore schema).
func (p *Product) Key() string {
	return string(p.Type) + "\x00" + p.UniqueName
}

// IsTWGO reports whether this product type requires L1 text/graphics pairing.
func (p *Product) IsTWGO() bool {
	return TWGOTypes[p.Type]
}
