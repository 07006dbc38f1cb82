package capacity

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a numeric cell value. Plain decimal notation wins;
// when that fails, the Spanish export format with dot thousand separators
// and a comma decimal separator is tried. Empty, placeholder and
// unparseable values return NaN, the missing marker, never zero.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return math.NaN()
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	if strings.Contains(s, ",") {
		normalized := strings.ReplaceAll(s, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
		if f, err := strconv.ParseFloat(normalized, 64); err == nil {
			return f
		}
	}

	return math.NaN()
}

// parseOptional returns a pointer for fields that stay absent when the
// cell has no usable number.
func parseOptional(raw string) *float64 {
	v := ParseNumber(raw)
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
