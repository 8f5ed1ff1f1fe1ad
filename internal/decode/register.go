package decode

import (
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// Register wires every product-id decoder in this package into r. Called
// once from cmd/fisbd at startup, rather than via
// package-level init() side effects, so the decode dispatch table is built
// against an explicit, test-visible registry instance (spec §4.4).
func Register(r *registry.Registry) {
	r.Register(&METARDecoder{})
	r.Register(&TAFDecoder{})
	r.Register(&WindsDecoder{ProductID: idWinds06, Type: product.TypeWinds06})
	r.Register(&WindsDecoder{ProductID: idWinds12, Type: product.TypeWinds12})
	r.Register(&WindsDecoder{ProductID: idWinds24, Type: product.TypeWinds24})
	r.Register(&PIREPDecoder{})
	r.Register(&NOTAMDecoder{})
	r.Register(&CRLDecoder{})
	r.Register(&ServiceStatusDecoder{})
	r.Register(&FISBUnavailableDecoder{})
	r.Register(&ImageDecoder{})

	for _, pair := range twgoPairs {
		r.Register(&TWGODecoder{ProductID: pair.text, Type: pair.typ, Graphics: false})
		r.Register(&TWGODecoder{ProductID: pair.graphics, Type: pair.typ, Graphics: true})
	}
}

var twgoPairs = []struct {
	text, graphics int
	typ            product.Type
}{
	{idAIRMETText, idAIRMETGraphics, product.TypeAIRMET},
	{idGAIRMET00Text, idGAIRMET00Graphic, product.TypeGAIRMET00},
	{idGAIRMET03Text, idGAIRMET03Graphic, product.TypeGAIRMET03},
	{idGAIRMET06Text, idGAIRMET06Graphic, product.TypeGAIRMET06},
	{idSIGMETText, idSIGMETGraphics, product.TypeSIGMET},
	{idWSTText, idWSTGraphics, product.TypeWST},
	{idCWAText, idCWAGraphics, product.TypeCWA},
	{idNOTAMTFRText, idNOTAMTFRGraphics, product.TypeNOTAMTFR},
	{idSUAText, idSUAGraphics, product.TypeSUA},
}
