package pkg

import (
	"fmt"
	"math"
)

type DimensionUnit string

const (
	UnitPixel      DimensionUnit = "pixel"
	UnitPercent    DimensionUnit = "percent"
	UnitInch       DimensionUnit = "inch"
	UnitCentimeter DimensionUnit = "centimeter"
)

const centimetersPerInch = 2.54

var Units = []DimensionUnit{UnitPixel, UnitPercent, UnitInch, UnitCentimeter}

func ParseUnit(s string) (DimensionUnit, error) {
	for _, u := range Units {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown dimension unit %q", s)
}

// Convert maps value expressed in from into the to unit. referencePx is the pixel size that
// 100 percent stands for. Non-finite input is returned unchanged.
func Convert(value float64, from, to DimensionUnit, referencePx float64, dpi int) float64 {
	if !isFinite(value) || !isFinite(referencePx) {
		return value
	}
	d := float64(dpi)

	var px float64
	switch from {
	case UnitPercent:
		px = value / 100 * referencePx
	case UnitInch:
		px = value * d
	case UnitCentimeter:
		px = value / centimetersPerInch * d
	default:
		px = value
	}

	var out float64
	switch to {
	case UnitPercent:
		out = px / referencePx * 100
	case UnitInch:
		out = px / d
	case UnitCentimeter:
		out = px / d * centimetersPerInch
	default:
		out = px
	}
	if !isFinite(out) {
		return value
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
