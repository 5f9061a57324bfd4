package shortcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	code, err := Generate()
	require.NoError(t, err)
	assert.Len(t, code, Length)
	assert.Regexp(t, "^[a-zA-Z0-9]{7}$", code)
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.False(t, seen[code], "generated duplicate code: %s", code)
		seen[code] = true
	}
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Generate()
	}
}
