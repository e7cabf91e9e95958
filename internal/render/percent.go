package render

import (
	"math"
	"strconv"
)

// Fraction is a score on the 0..1 scale, as returned by the submit call.
type Fraction float64

// Percentage is a score already scaled 0..100, as returned by the result and
// report calls.
type Percentage float64

// String renders the fraction as a whole percent: 0.85 -> "85%".
func (f Fraction) String() string {
	return formatWhole(float64(f) * 100)
}

// String renders the percentage as a whole percent: 85 -> "85%".
func (p Percentage) String() string {
	return formatWhole(float64(p))
}

func formatWhole(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.Itoa(int(math.Round(v))) + "%"
}
