// Package phone canonicalizes phone numbers into the +<country><subscriber>
// form used for every routing lookup.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical is a normalized phone number such as "+972501234567".
// The zero value is the invalid sentinel.
type Canonical string

// Invalid is returned for input that cannot be normalized.
const Invalid Canonical = ""

// IsValid reports whether p holds a normalized number.
func (p Canonical) IsValid() bool {
	return p != Invalid
}

// Digits returns the number without the leading "+".
func (p Canonical) Digits() string {
	return strings.TrimPrefix(string(p), "+")
}

func (p Canonical) String() string {
	return string(p)
}

// Region holds the country-specific rewriting rules.
type Region struct {
	CountryCode string
	shape       *regexp.Regexp
}

// NewRegion builds a region whose subscriber numbers have between minDigits
// and maxDigits digits after the country code.
func NewRegion(countryCode string, minDigits, maxDigits int) Region {
	return Region{
		CountryCode: countryCode,
		shape:       regexp.MustCompile(fmt.Sprintf(`^\+%s\d{%d,%d}$`, regexp.QuoteMeta(countryCode), minDigits, maxDigits)),
	}
}

// Israel is the default region: 972 followed by 8 (landline) or 9 (mobile) digits.
var Israel = NewRegion("972", 8, 9)

// Normalize canonicalizes raw using the default region.
func Normalize(raw string) Canonical {
	return Israel.Normalize(raw)
}

// Normalize canonicalizes raw. It never fails: anything that does not fit the
// region's shape maps to Invalid.
func (r Region) Normalize(raw string) Canonical {
	digits := Digits(raw)
	if len(digits) < 9 {
		return Invalid
	}

	switch {
	case strings.HasPrefix(digits, r.CountryCode):
	case strings.HasPrefix(digits, "0"):
		digits = r.CountryCode + digits[1:]
	case len(digits) == 9:
		digits = r.CountryCode + digits
	}
	// Country code followed by the trunk prefix, e.g. 9720501234567
	for strings.HasPrefix(digits, r.CountryCode+"0") {
		digits = r.CountryCode + digits[len(r.CountryCode)+1:]
	}

	canonical := "+" + digits
	if r.shape == nil || !r.shape.MatchString(canonical) {
		return Invalid
	}
	return Canonical(canonical)
}

// Digits strips everything but the digits from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Variants returns the "+"-prefixed and bare-digit forms of a number, since the
// transport may deliver either on inbound.
func Variants(p Canonical) []string {
	if !p.IsValid() {
		return nil
	}
	return []string{string(p), p.Digits()}
}

// SuffixOverlap reports whether one digit string ends with the other. It
// matches numbers written with and without the country code.
func SuffixOverlap(a, b string) bool {
	a, b = Digits(a), Digits(b)
	if len(a) < 9 || len(b) < 9 {
		return false
	}
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}
