package crc

import "testing"

func TestCalculateThenVerify(t *testing.T) {
	msg := []byte("FISB TEST APDU PAYLOAD")
	sum := Calculate(msg)

	apdu := append(append([]byte{}, msg...), sum...)
	if !VerifyAPDU(apdu) {
		t.Fatalf("expected generated checksum to verify")
	}
}

func TestVerifyAPDUDetectsCorruption(t *testing.T) {
	msg := []byte("FISB TEST APDU PAYLOAD")
	sum := Calculate(msg)
	apdu := append(append([]byte{}, msg...), sum...)

	apdu[3] ^= 0xFF
	if VerifyAPDU(apdu) {
		t.Fatalf("expected corrupted APDU to fail verification")
	}
}

func TestVerifyAPDUTooShort(t *testing.T) {
	if VerifyAPDU([]byte{0x01}) {
		t.Fatalf("expected too-short APDU to fail verification")
	}
}
