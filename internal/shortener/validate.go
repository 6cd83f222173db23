package shortener

import (
	"strings"

	"github.com/samber/lo"
)

// MaxShortLength bounds custom short codes
const MaxShortLength = 32

// reservedShorts collide with fixed routes on the redirect server
var reservedShorts = []string{"api", "shorten", "metrics", "healthz"}

// ValidShort reports whether a caller-chosen short code is acceptable:
// 1 to MaxShortLength characters from [A-Za-z0-9_-], not a reserved route.
func ValidShort(short string) bool {
	if short == "" || len(short) > MaxShortLength {
		return false
	}

	for i := 0; i < len(short); i++ {
		c := short[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-', c == '_':
		default:
			return false
		}
	}

	return !lo.Contains(reservedShorts, strings.ToLower(short))
}
