package decode

import (
	"encoding/hex"
	"strconv"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// imageIDToType maps each image product's wire id to its Product type.
var imageIDToType = map[int]product.Type{
	idNEXRADConus:    product.TypeImageNEXRADConus,
	idNEXRADRegional: product.TypeImageNEXRADRegion,
	idCloudTops:      product.TypeImageCloudTops,
	idIcing:          product.TypeImageIcing,
	idTurbulence:     product.TypeImageTurbulence,
	idLightning:      product.TypeImageLightning,
}

// ImageDecoder decodes one raster tile per frame (spec §3 Image Product:
// "each block carrying (block-number, bin-value grid, validity time)").
// Wire convention: `BLOCK=<n> W=<n> H=<n> VALID=<DDHHMM> BINS=<hex>`.
type ImageDecoder struct{}

func (d *ImageDecoder) Name() string { return "image" }

func (d *ImageDecoder) ProductIDs() []int {
	ids := make([]int, 0, len(imageIDToType))
	for id := range imageIDToType {
		ids = append(ids, id)
	}
	return ids
}

func (d *ImageDecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	typ, ok := imageIDToType[f.ProductID]
	if !ok {
		return nil, nil
	}
	fields := parseFields(string(f.Payload))

	blockNum, err1 := strconv.Atoi(fields["BLOCK"])
	w, err2 := strconv.Atoi(fields["W"])
	h, err3 := strconv.Atoi(fields["H"])
	if err1 != nil || err2 != nil || err3 != nil {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindImageBlock, "image block header fields malformed", map[string]any{"product_id": f.ProductID})
		}
		return nil, nil
	}

	bins, err := hex.DecodeString(fields["BINS"])
	if err != nil || len(bins) != w*h {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindImageBlock, "image block bin payload size mismatch", map[string]any{
				"product_id": f.ProductID, "want": w * h, "have": len(bins),
			})
		}
		return nil, nil
	}

	validTime := f.RcvdTime
	if v := fields["VALID"]; v != "" {
		if t, ok := parseDDHHMM(v, f.RcvdTime, product.Horizon{Past: 30 * time.Minute, Future: 30 * time.Minute}); ok {
			validTime = t
		}
	}

	p := &product.Product{
		Type:       typ,
		UniqueName: f.Station + ":" + strconv.Itoa(blockNum),
		Station:    f.Station,
		RcvdTime:   f.RcvdTime,
		Block: &product.ImageBlock{
			BlockNumber: blockNum,
			Width:       w,
			Height:      h,
			Bins:        bins,
			ValidTime:   validTime,
		},
	}
	product.ComputeExpiration(p, f.Expiration)
	return []*product.Product{p}, nil
}
