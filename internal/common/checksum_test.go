package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentChecksum_Deterministic(t *testing.T) {
	md := "# Ocean View\n\nRooms from $199."
	first := ContentChecksum(md)
	second := ContentChecksum(md)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Equal(t, strings.ToLower(first), first, "digest must be lowercase hex")
}

func TestContentChecksum_NFCEquivalence(t *testing.T) {
	// "é" as a single codepoint vs "e" + combining acute accent.
	composed := "café"
	decomposed := "café"
	assert.Equal(t, ContentChecksum(composed), ContentChecksum(decomposed))
}

func TestContentChecksum_DistinctInputs(t *testing.T) {
	assert.NotEqual(t, ContentChecksum("Rooms from $199."), ContentChecksum("Rooms from $229."))
}

func TestContentChecksum_KnownVector(t *testing.T) {
	// SHA-256 of the empty string.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ContentChecksum(""))
}
