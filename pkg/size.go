package pkg

import (
	"math"
	"strconv"
	"strings"
)

const SizeUnavailable = "N/A"

// FormatSize renders a byte count as KB, or MB from 1024 KB on. Each step is floored to two
// decimals.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return SizeUnavailable
	}
	kb := floor2(float64(bytes) / 1024)
	if kb >= 1024 {
		return formatDecimal(floor2(kb/1024)) + " MB"
	}
	return formatDecimal(kb) + " KB"
}

func floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}

func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
