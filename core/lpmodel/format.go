package lpmodel

import (
	"math"
	"strconv"
)

func round12(v float64) float64 {
	r := math.Round(v*1e12) / 1e12
	if r == 0 {
		return 0 // drops negative zero
	}
	return r
}

// formatNum renders v rounded to 12 decimals without scientific notation.
func formatNum(v float64) string {
	return strconv.FormatFloat(round12(v), 'f', -1, 64)
}
