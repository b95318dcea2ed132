package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	t.Run("verifies against the original password", func(t *testing.T) {
		hash, err := HashPassword("abc12345")
		require.NoError(t, err)
		require.True(t, CheckPassword("abc12345", hash))
	})

	t.Run("rejects a different password", func(t *testing.T) {
		hash, err := HashPassword("abc12345")
		require.NoError(t, err)
		require.False(t, CheckPassword("abc12346", hash))
	})

	t.Run("salted hashes differ between calls", func(t *testing.T) {
		first, err := HashPassword("abc12345")
		require.NoError(t, err)
		second, err := HashPassword("abc12345")
		require.NoError(t, err)
		require.NotEqual(t, first, second)
	})

	t.Run("malformed hash is a mismatch, not a panic", func(t *testing.T) {
		require.False(t, CheckPassword("abc12345", "not-a-bcrypt-hash"))
		require.False(t, CheckPassword("abc12345", ""))
	})
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	t.Run("strips separators", func(t *testing.T) {
		n, ok := NormalizePhone("138-0000-0000")
		require.True(t, ok)
		require.Equal(t, int64(13800000000), n)
	})

	t.Run("empty input is absent", func(t *testing.T) {
		_, ok := NormalizePhone("")
		require.False(t, ok)
	})

	t.Run("whitespace only is absent", func(t *testing.T) {
		_, ok := NormalizePhone("   ")
		require.False(t, ok)
	})

	t.Run("no digits is absent", func(t *testing.T) {
		_, ok := NormalizePhone("ext.")
		require.False(t, ok)
	})

	t.Run("mixed input keeps digits only", func(t *testing.T) {
		n, ok := NormalizePhone("+86 (138) 0000 0000")
		require.True(t, ok)
		require.Equal(t, int64(8613800000000), n)
	})
}
