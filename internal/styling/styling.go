// Package styling maps transmission line voltage attributes to the render
// style of their segments.
package styling

import (
	"strconv"
	"strings"
)

// Tier names ordered from heaviest emphasis to neutral.
const (
	TierExtraHigh = "extra-high"
	TierHigh      = "high"
	TierMedium    = "medium"
	TierUnknown   = "unknown"
)

// Voltage thresholds in volts, inclusive lower bounds.
const (
	extraHighVolts = 380000
	highVolts      = 220000
	mediumVolts    = 110000
)

// StyleTier describes how a line segment is drawn.
type StyleTier struct {
	Tier    string  `json:"tier"`
	Color   string  `json:"color"`
	Weight  float64 `json:"weight"`
	Opacity float64 `json:"opacity"`
}

// StyleFor selects the style for a raw voltage attribute. Compound values
// list the circuit voltages sharing one segment separated by semicolons and
// only the first listed value determines the style. Unparseable voltages
// fall back to the neutral tier.
func StyleFor(voltage string) StyleTier {
	style := StyleTier{Tier: TierUnknown, Color: "#666666", Weight: 2, Opacity: 0.9}

	first, _, _ := strings.Cut(voltage, ";")
	v, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return style
	}

	switch {
	case v >= extraHighVolts:
		style.Tier, style.Color, style.Weight = TierExtraHigh, "#d73027", 3
	case v >= highVolts:
		style.Tier, style.Color, style.Weight = TierHigh, "#fc8d59", 2.5
	case v >= mediumVolts:
		style.Tier, style.Color, style.Weight = TierMedium, "#4575b4", 2
	}

	return style
}
