package pkg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToPixels(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		from  DimensionUnit
		want  float64
	}{
		{"pixel identity", 640, UnitPixel, 640},
		{"percent of reference", 50, UnitPercent, 640},
		{"inch at dpi", 2, UnitInch, 144},
		{"centimeter at dpi", 2.54, UnitCentimeter, 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.value, tt.from, UnitPixel, 1280, 72)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvertFromPixels(t *testing.T) {
	assert.InDelta(t, 25.0, Convert(320, UnitPixel, UnitPercent, 1280, 72), 1e-9)
	assert.InDelta(t, 1.0, Convert(300, UnitPixel, UnitInch, 1280, 300), 1e-9)
	assert.InDelta(t, 2.54, Convert(300, UnitPixel, UnitCentimeter, 1280, 300), 1e-9)
}

func TestConvertRoundTrip(t *testing.T) {
	values := []float64{0.01, 1, 3.3, 72, 413, 1280.5, 9999}
	refs := []float64{1, 825, 1280, 4096}
	dpis := []int{30, 72, 96, 300, 1200}

	for _, u1 := range Units {
		for _, u2 := range Units {
			for _, v := range values {
				for _, r := range refs {
					for _, d := range dpis {
						there := Convert(v, u1, u2, r, d)
						back := Convert(there, u2, u1, r, d)
						require.InEpsilonf(t, v, back, 1e-6, "%v %s->%s->%s ref=%v dpi=%d", v, u1, u2, u1, r, d)
					}
				}
			}
		}
	}
}

func TestConvertNonFiniteReturnsInput(t *testing.T) {
	assert.True(t, math.IsNaN(Convert(math.NaN(), UnitInch, UnitPixel, 100, 72)))
	assert.True(t, math.IsInf(Convert(math.Inf(1), UnitPixel, UnitInch, 100, 72), 1))
	assert.Equal(t, 12.0, Convert(12, UnitPercent, UnitPixel, math.Inf(1), 72))
	assert.Equal(t, 12.0, Convert(12, UnitPixel, UnitPercent, 0, 72))
	assert.Equal(t, 12.0, Convert(12, UnitPixel, UnitInch, 100, 0))
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("centimeter")
	require.NoError(t, err)
	assert.Equal(t, UnitCentimeter, u)

	_, err = ParseUnit("furlong")
	assert.Error(t, err)
}
