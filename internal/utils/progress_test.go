package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressBar(t *testing.T) {
	t.Run("determinate progress bar with known total", func(t *testing.T) {
		bar := NewProgressBar(3, DescBatch)
		require.NotNil(t, bar)

		assert.NoError(t, bar.Add(3))
	})

	t.Run("indeterminate progress bar with unknown total", func(t *testing.T) {
		bar := NewProgressBar(-1, DescBatch)
		require.NotNil(t, bar)
		assert.NoError(t, bar.Add(1))
	})
}

func TestNewBytesProgressBar(t *testing.T) {
	t.Run("known length", func(t *testing.T) {
		bar := NewBytesProgressBar(10, DescDownloading)
		require.NotNil(t, bar)

		n, err := bar.Write([]byte("0123456789"))
		require.NoError(t, err)
		assert.Equal(t, 10, n)
	})

	t.Run("unknown length", func(t *testing.T) {
		bar := NewBytesProgressBar(-1, DescDownloading)
		require.NotNil(t, bar)

		n, err := bar.Write([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.NoError(t, bar.Finish())
	})
}
