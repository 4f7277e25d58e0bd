package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize turns a raw phone string into its identity key: "+", spaces and
// hyphens are stripped first, then every remaining non-digit. Two raw values
// are the same recipient iff their normalized forms are equal.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Plausible reports whether a normalized identity could be a dialable
// international number. Identities are stored without the leading "+".
func Plausible(identity string) bool {
	if identity == "" {
		return false
	}
	num, err := phonenumbers.Parse("+"+identity, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}
