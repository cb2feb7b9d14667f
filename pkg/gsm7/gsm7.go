// Package gsm7 classifies text against the GSM 7-bit default alphabet.
// The alphabet and its extension table are defined in 3GPP TS 23.038
// section 6.2.1.
package gsm7

// basic holds the characters of the default alphabet, each costing one
// septet.
var basic = runeSet(
	"@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ" +
		" !\"#¤%&'()*+,-./0123456789:;<=>?" +
		"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§" +
		"¿abcdefghijklmnopqrstuvwxyzäöñüà",
)

// extension holds the characters reachable via the escape mechanism,
// each costing two septets.
var extension = runeSet("\f^{}\\[~]|€")

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// IsBasic reports whether the rune is in the default alphabet proper.
func IsBasic(r rune) bool {
	_, ok := basic[r]
	return ok
}

// IsExtended reports whether the rune is in the extension table.
func IsExtended(r rune) bool {
	_, ok := extension[r]
	return ok
}

// Compatible reports whether every rune of s can be encoded in GSM-7.
// Incompatible text falls back to UCS-2 on the air interface, halving
// the usable message length.
func Compatible(s string) bool {
	for _, r := range s {
		if !IsBasic(r) && !IsExtended(r) {
			return false
		}
	}
	return true
}

// Length returns the septet count of s when encoded in GSM-7.
// Extension characters cost two septets. The result is meaningless
// when Compatible(s) is false; incompatible runes are counted as one.
func Length(s string) int {
	var n int
	for _, r := range s {
		if IsExtended(r) {
			n += 2
			continue
		}
		n++
	}
	return n
}
