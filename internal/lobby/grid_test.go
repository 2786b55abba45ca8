package lobby

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGrid(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantMsg string
	}{
		{"valid", Grid{{1, 2, 3}, {4, 5, 6}, {7, 8, 20}}, ""},
		{"too few rows", Grid{{1, 2, 3}, {4, 5, 6}}, "grid must be 3x3"},
		{"short row", Grid{{1, 2, 3}, {4, 5}, {7, 8, 9}}, "grid must be 3x3"},
		{"long row", Grid{{1, 2, 3, 10}, {4, 5, 6}, {7, 8, 9}}, "grid must be 3x3"},
		{"duplicate", Grid{{1, 2, 3}, {4, 5, 6}, {7, 8, 1}}, "grid must contain 9 unique numbers"},
		{"zero", Grid{{0, 2, 3}, {4, 5, 6}, {7, 8, 9}}, "numbers must be between 1 and 20"},
		{"above range", Grid{{1, 2, 3}, {4, 5, 6}, {7, 8, 21}}, "numbers must be between 1 and 20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGrid(tt.grid, 20)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestRandomGridIsAlwaysValid(t *testing.T) {
	for i := 0; i < 200; i++ {
		g := RandomGrid(20)
		require.NoError(t, ValidateGrid(g, 20))
	}
}

func TestShuffledPoolCoversEveryNumberOnce(t *testing.T) {
	pool := shuffledPool(20)
	require.Len(t, pool, 20)
	seen := make(map[int]bool)
	for _, n := range pool {
		assert.False(t, seen[n], "duplicate %d", n)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 20)
		seen[n] = true
	}
}
