package pricing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidPrice = errors.New("price must be a finite non-negative number")
	ErrPriceTooLow  = errors.New("price has no lower value ending in 7")
)

// maxRoundable keeps the truncated value inside int64.
const maxRoundable = float64(math.MaxInt64 / 2)

// RoundTo7 maps a sale price to the published price: the largest integer
// ending in 7 that is not above the truncated price.
//
//	57.9 -> 57, 59 -> 57, 52 -> 47, 50 -> 47
//
// Prices below 7 have no such value and return ErrPriceTooLow.
func RoundTo7(v float64) (int64, error) {
	if math.IsNaN(v) || v < 0 || v > maxRoundable {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, v)
	}

	t := int64(math.Floor(v))
	d := t % 10
	var r int64
	switch {
	case d == 7:
		r = t
	case d > 7:
		r = t - (d - 7)
	default:
		r = t - d - 3
	}

	if r < 0 {
		return 0, fmt.Errorf("%w: %v", ErrPriceTooLow, v)
	}
	return r, nil
}
