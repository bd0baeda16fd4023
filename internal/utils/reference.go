package utils

import (
	"crypto/rand"
	"strings"

	"github.com/gosimple/slug"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode returns a random 8-character referral code drawn
// from an unambiguous uppercase alphabet.
func GenerateReferralCode() string {
	return randomCode(8)
}

// GenerateHandle derives a URL-safe handle from a display name with a short
// random suffix to avoid collisions.
func GenerateHandle(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "user"
	}
	return base + "-" + strings.ToLower(randomCode(6))
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process is in serious trouble
		panic(err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
