package fusion

import (
	"fmt"
	"math"
)

// formatInt renders v rounded to the nearest integer, matching the
// original's '{:.0f}'.format Python formatting.
func formatInt(v float64) string {
	return fmt.Sprintf("%.0f", math.Round(v))
}

// formatDecimal1 renders v to one decimal place, matching
// '{:.1f}'.format.
func formatDecimal1(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
