package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode()
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 100 draws from a 32^8 space should never collide
	assert.Len(t, seen, 100)
}

func TestGenerateHandle(t *testing.T) {
	handle := GenerateHandle("Alice Example")
	assert.True(t, strings.HasPrefix(handle, "alice-example-"))
	assert.Len(t, handle, len("alice-example-")+6)
	assert.Equal(t, strings.ToLower(handle), handle)

	// Names that slug away entirely fall back to a generic base
	fallback := GenerateHandle("???")
	assert.True(t, strings.HasPrefix(fallback, "user-"))
}
