// Package normalize produces canonical comparison forms of facility
// names, addresses, and phone numbers. Matching never operates on raw
// source strings; both sides of every comparison go through this package
// first.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are dropped from the end of facility names before
// comparison. "Sunshine Academy LLC" and "Sunshine Academy" should
// match.
var legalSuffixes = []string{
	"llc",
	"llp",
	"lp",
	"inc",
	"incorporated",
	"corp",
	"corporation",
	"co",
	"ltd",
}

// streetAbbreviations maps common street-type abbreviations to their
// long forms so "123 Main St" and "123 Main Street" compare equal.
var streetAbbreviations = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"av":   "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"ter":  "terrace",
	"hwy":  "highway",
	"pkwy": "parkway",
	"cir":  "circle",
	"sq":   "square",
	"ste":  "suite",
	"apt":  "apartment",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
}

// stripDiacritics removes combining marks after NFD decomposition, so
// "Crèche" folds to "Creche".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Signature is the canonical comparison form of a record. Two records
// are compared by their signatures, never by their raw fields.
type Signature struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Name canonicalizes a facility name: diacritics folded, lowercased,
// punctuation removed, whitespace collapsed, trailing legal suffixes
// dropped.
func Name(s string) string {
	s = fold(s)
	words := strings.Fields(s)
	for len(words) > 0 && isLegalSuffix(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// Address canonicalizes a street address. Street-type abbreviations are
// expanded so the same address written two ways compares equal.
func Address(s string) string {
	s = fold(s)
	words := strings.Fields(s)
	for i, w := range words {
		if long, ok := streetAbbreviations[w]; ok {
			words[i] = long
		}
	}
	return strings.Join(words, " ")
}

// Phone reduces a phone number to its digits. A leading US country
// code is dropped so "+1 (415) 555-0100" and "415-555-0100" compare
// equal.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// NewSignature builds the comparison signature for a name, address, and
// phone triple.
func NewSignature(name, address, phone string) Signature {
	return Signature{
		Name:    Name(name),
		Address: Address(address),
		Phone:   Phone(phone),
	}
}

// fold lowercases, strips diacritics, removes punctuation, and
// collapses whitespace.
func fold(s string) string {
	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/' || r == '&':
			// Separators become spaces so "day-care" splits like "day care".
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isLegalSuffix(w string) bool {
	for _, s := range legalSuffixes {
		if w == s {
			return true
		}
	}
	return false
}
