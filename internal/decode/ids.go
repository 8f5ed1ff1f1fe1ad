// Package decode holds the L2 product-specific frame decoders (spec §4.3,
// "Responsibilities. Reassembled per-product payloads in; structured
// Products out."). Each file implements registry.Decoder for one product
// family; Register (register.go) adds them all to an explicit registry.
package decode

import "fisbd/internal/product"

// Product ids assigned to each decoder's frame, in the order this
// implementation lays them out on the wire. Spec §8 Open Question (a)
// notes the true DO-358B assignments need confirmation against the
// implementer's target revision; these ids are this module's own stable
// internal assignment, not a claim about the published standard.
const (
	idMETAR            = 8
	idTAF              = 11
	idWinds06          = 12
	idWinds12          = 13
	idWinds24          = 14
	idPIREPText        = 15
	idAIRMETText       = 16
	idAIRMETGraphics   = 17
	idGAIRMET00Text    = 18
	idGAIRMET00Graphic = 19
	idGAIRMET03Text    = 20
	idGAIRMET03Graphic = 21
	idGAIRMET06Text    = 22
	idGAIRMET06Graphic = 23
	idSIGMETText       = 24
	idSIGMETGraphics   = 25
	idWSTText          = 26
	idWSTGraphics      = 27
	idCWAText          = 28
	idCWAGraphics      = 29
	idNOTAMD           = 30
	idNOTAMFDC         = 31
	idNOTAMTFRText     = 32
	idNOTAMTFRGraphics = 33
	idSUAText          = 34
	idSUAGraphics      = 35
	idFISBUnavailable  = 40
	idServiceStatus    = 41
	idCRL8             = 51
	idCRL11            = 52
	idCRL12            = 53
	idCRL14            = 54
	idCRL15            = 55
	idCRL16            = 56
	idCRL17            = 57
	idSIGWX            = 60
	idNEXRADConus      = 63
	idNEXRADRegional   = 64
	idCloudTops        = 65
	idIcing            = 66
	idTurbulence       = 67
	idLightning        = 68
)

// crlIDToType maps a CRL frame's product id to the Product type it annotates.
var crlIDToType = map[int]product.Type{
	idCRL8:  product.TypeCRL8,
	idCRL11: product.TypeCRL11,
	idCRL12: product.TypeCRL12,
	idCRL14: product.TypeCRL14,
	idCRL15: product.TypeCRL15,
	idCRL16: product.TypeCRL16,
	idCRL17: product.TypeCRL17,
}
