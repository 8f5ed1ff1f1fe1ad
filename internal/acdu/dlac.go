package acdu

import "strings"

// dlacAlpha is the primary (alphabetic) half of the 6-bit DLAC character
// table: 0 is a fill/NUL character, 1-26 are A-Z, 27 is space, and 28-31
// escape into the secondary (numeric/punctuation) table for the following
// character (spec §4.1 "DLAC 6-bit character unpacking").
var dlacAlpha = [32]byte{
	0:  0, // NUL / fill
	27: ' ',
}

// dlacSecondary is the numeric/punctuation half, selected by one of the
// escape codes in dlacAlpha's 28-31 range.
var dlacSecondary = [64]byte{
	0: ' ', 1: '0', 2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9',
	11: '.', 12: ',', 13: ':', 14: ';', 15: '\'', 16: '"', 17: '-', 18: '/', 19: '\\',
	20: '(', 21: ')', 22: '_', 23: '+', 24: '=', 25: '?', 26: '!', 27: '*',
}

func init() {
	for i := 1; i <= 26; i++ {
		dlacAlpha[i] = byte('A' + i - 1)
	}
}

// Unpack6Bit unpacks a DLAC-encoded byte string into text, honoring the
// 28-31 escape-to-secondary-table codes.
func Unpack6Bit(data []byte) string {
	r := newBitReader(data)
	var sb strings.Builder
	escaped := false
	for r.remaining() >= 6 {
		v := r.read(6)
		if escaped {
			if int(v) < len(dlacSecondary) && dlacSecondary[v] != 0 {
				sb.WriteByte(dlacSecondary[v])
			}
			escaped = false
			continue
		}
		if v >= 28 {
			escaped = true
			continue
		}
		if c := dlacAlpha[v]; c != 0 {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// dlac4Legacy is the reduced character set used by the legacy 4-bit DLAC
// compatibility mode (spec §4.1 "optional legacy '4-bit DLAC' compatibility
// mode (configurable)"): digits and a handful of punctuation marks, enough
// for the older numeric-heavy product classes that mode supports.
var dlac4Legacy = [16]byte{
	0: '0', 1: '1', 2: '2', 3: '3', 4: '4', 5: '5', 6: '6', 7: '7',
	8: '8', 9: '9', 10: '-', 11: '/', 12: '.', 13: ' ', 14: ':', 15: 0,
}

// Unpack4BitLegacy unpacks the legacy 4-bit-per-character compatibility
// encoding. Selected by config.Config.LegacyDLAC4Bit.
func Unpack4BitLegacy(data []byte) string {
	r := newBitReader(data)
	var sb strings.Builder
	for r.remaining() >= 4 {
		v := r.read(4)
		if c := dlac4Legacy[v]; c != 0 {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Unpack dispatches to the 6-bit or legacy 4-bit table depending on legacy.
func Unpack(data []byte, legacy bool) string {
	if legacy {
		return Unpack4BitLegacy(data)
	}
	return Unpack6Bit(data)
}
