package household

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balangay/internal/geo"
)

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "042114014-0001", FormatCode("042114014", 1))
	assert.Equal(t, "042114014-0002", FormatCode("042114014", 2))
	assert.Equal(t, "042114014-9999", FormatCode("042114014", 9999))

	// Padding widens past four digits instead of truncating.
	assert.Equal(t, "042114014-10000", FormatCode("042114014", 10000))
}

func TestIsHierarchical(t *testing.T) {
	barangay := geo.Code("042114014")

	t.Run("generated codes match", func(t *testing.T) {
		assert.True(t, IsHierarchical("042114014-0001", barangay))
		assert.True(t, IsHierarchical("042114014-12345", barangay))
	})

	t.Run("legacy forms do not", func(t *testing.T) {
		assert.False(t, IsHierarchical("HH-7F3K9Q", barangay))
		assert.False(t, IsHierarchical("042114014-ABC", barangay))
		assert.False(t, IsHierarchical("042114014-001", barangay))
		assert.False(t, IsHierarchical("", barangay))
	})

	t.Run("another barangay's code does not", func(t *testing.T) {
		assert.False(t, IsHierarchical("042114015-0001", barangay))
	})
}

func TestParseCode(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		barangay, seq, ok := ParseCode(FormatCode("042114014", 42))
		require.True(t, ok)
		assert.Equal(t, geo.Code("042114014"), barangay)
		assert.Equal(t, int64(42), seq)
	})

	t.Run("legacy code does not parse", func(t *testing.T) {
		_, _, ok := ParseCode("HH-7F3K9Q")
		assert.False(t, ok)
	})
}
