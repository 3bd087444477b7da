package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTo7(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  int64
	}{
		{"already ends in 7", 57, 57},
		{"fraction above 7", 57.9, 57},
		{"digit above 7", 59, 57},
		{"digit 8", 48, 47},
		{"digit below 7 goes to previous decade", 52, 47},
		{"round decade", 50, 47},
		{"digit 6", 46, 37},
		{"sale price from catalog", 39.8, 37},
		{"exactly 7", 7, 7},
		{"between 7 and 10", 9.99, 7},
		{"ten", 10, 7},
		{"three digits", 1234.5, 1227},
		{"hundreds boundary", 100, 97},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoundTo7(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTo7Law(t *testing.T) {
	for cents := 700; cents <= 250000; cents += 37 {
		v := float64(cents) / 100
		got, err := RoundTo7(v)
		require.NoError(t, err, "value %v", v)

		floor := int64(math.Floor(v))
		assert.Equal(t, int64(7), got%10, "value %v", v)
		assert.LessOrEqual(t, got, floor, "value %v", v)
		assert.Greater(t, got, floor-10, "value %v", v)
	}
}

func TestRoundTo7BelowSeven(t *testing.T) {
	for _, v := range []float64{0, 0.5, 3, 6.99} {
		_, err := RoundTo7(v)
		require.ErrorIs(t, err, ErrPriceTooLow, "value %v", v)
	}
}

func TestRoundTo7InvalidInput(t *testing.T) {
	for _, v := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := RoundTo7(v)
		require.ErrorIs(t, err, ErrInvalidPrice, "value %v", v)
	}
}
