package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturnecity/image-formatter/pkg"
)

func newTestState(t *testing.T, w, h int) *DimensionState {
	t.Helper()
	s, err := NewDimensionState(w, h)
	require.NoError(t, err)
	return s
}

func TestDimensionStateInitial(t *testing.T) {
	s := newTestState(t, 1280, 825)
	cfg := s.Config()

	assert.Equal(t, 1280, cfg.WidthPx)
	assert.Equal(t, 825, cfg.HeightPx)
	assert.Equal(t, 1280.0, cfg.Width)
	assert.Equal(t, 825.0, cfg.Height)
	assert.Equal(t, pkg.UnitPixel, cfg.Unit)
	assert.Equal(t, 72, cfg.DPI)
	assert.Equal(t, 90, cfg.Quality)
	assert.Equal(t, pkg.FormatJPG, cfg.Format)
	assert.Equal(t, pkg.BackgroundWhite, cfg.Background)
	assert.True(t, cfg.AspectLock)
	assert.Equal(t, pkg.AspectRatio{Num: 1280, Den: 825}, s.AspectRatio())
}

func TestNewDimensionStateRejectsEmptySource(t *testing.T) {
	_, err := NewDimensionState(0, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewDimensionStateRejectsOversizedSource(t *testing.T) {
	_, err := NewDimensionState(DefaultMaxPixelDimension+1, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewDimensionState(50, 101, WithMaxPixelDimension(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	s, err := NewDimensionState(DefaultMaxPixelDimension, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPixelDimension, s.Config().WidthPx)
}

func TestSetWidthLockedDerivesHeight(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetDPI(72))
	require.NoError(t, s.SetUnit(pkg.UnitPixel))
	require.NoError(t, s.SetWidth(640))

	cfg := s.Config()
	assert.Equal(t, 640, cfg.WidthPx)
	assert.Equal(t, 413, cfg.HeightPx)
	assert.Equal(t, 413.0, cfg.Height)
}

func TestSetHeightLockedDerivesWidth(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetHeight(413))

	cfg := s.Config()
	assert.Equal(t, 413, cfg.HeightPx)
	assert.Equal(t, 641, cfg.WidthPx)
}

func TestSetWidthUnlockedKeepsHeight(t *testing.T) {
	s := newTestState(t, 1280, 825)
	s.ToggleAspectLock()
	require.NoError(t, s.SetWidth(300))

	cfg := s.Config()
	assert.False(t, cfg.AspectLock)
	assert.Equal(t, 300, cfg.WidthPx)
	assert.Equal(t, 825, cfg.HeightPx)
}

func TestLockedRatioStaysWithinRounding(t *testing.T) {
	s := newTestState(t, 1280, 825)
	ratio := s.AspectRatio().Float()
	for w := 1; w <= 4000; w += 7 {
		err := s.SetWidth(float64(w))
		if err != nil {
			// Very narrow widths derive a zero height.
			assert.ErrorIs(t, err, ErrInvalidInput)
			continue
		}
		cfg := s.Config()
		assert.LessOrEqual(t, math.Abs(float64(cfg.HeightPx)-float64(cfg.WidthPx)/ratio), 0.5+1e-9, "width %d", w)
	}
}

func TestUnitChangeKeepsCanonicalPixels(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetUnit(pkg.UnitInch))

	cfg := s.Config()
	assert.Equal(t, 1280, cfg.WidthPx)
	assert.Equal(t, 825, cfg.HeightPx)
	assert.InDelta(t, 1280.0/72, cfg.Width, 1e-9)
	assert.InDelta(t, 825.0/72, cfg.Height, 1e-9)

	require.NoError(t, s.SetDPI(300))
	cfg = s.Config()
	assert.Equal(t, 1280, cfg.WidthPx)
	assert.InDelta(t, 1280.0/300, cfg.Width, 1e-9)
}

func TestPercentEdit(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetUnit(pkg.UnitPercent))
	require.NoError(t, s.SetWidth(50))

	cfg := s.Config()
	assert.Equal(t, 640, cfg.WidthPx)
	assert.Equal(t, 413, cfg.HeightPx)
	assert.InDelta(t, 50.0, cfg.Width, 1e-9)
	assert.InDelta(t, 413.0/825*100, cfg.Height, 1e-9)
}

func TestCentimeterEdit(t *testing.T) {
	s := newTestState(t, 1000, 1000)
	require.NoError(t, s.SetDPI(300))
	require.NoError(t, s.SetUnit(pkg.UnitCentimeter))
	require.NoError(t, s.EditWidth("2.54"))

	cfg := s.Config()
	assert.Equal(t, 300, cfg.WidthPx)
	assert.Equal(t, 300, cfg.HeightPx)
	assert.InDelta(t, 2.54, cfg.Height, 1e-9)
}

func TestDisplayMatchesCanonicalAfterEveryEdit(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetUnit(pkg.UnitCentimeter))
	require.NoError(t, s.SetDPI(96))
	require.NoError(t, s.EditWidth("3.3"))
	require.NoError(t, s.EditHeight("2"))

	cfg := s.Config()
	assert.Equal(t, pkg.Convert(float64(cfg.WidthPx), pkg.UnitPixel, cfg.Unit, 1280, cfg.DPI), cfg.Width)
	assert.Equal(t, pkg.Convert(float64(cfg.HeightPx), pkg.UnitPixel, cfg.Unit, 825, cfg.DPI), cfg.Height)
}

func TestInvalidEditsKeepPreviousValue(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetWidth(640))
	before := s.Config()

	for _, text := range []string{"", "abc", "NaN", "+Inf", "0", "-5", "20000"} {
		err := s.EditWidth(text)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", text)
		assert.Equal(t, before, s.Config(), "input %q", text)
	}

	assert.ErrorIs(t, s.SetDPI(29), ErrInvalidInput)
	assert.ErrorIs(t, s.SetDPI(1201), ErrInvalidInput)
	assert.ErrorIs(t, s.SetQuality(0), ErrInvalidInput)
	assert.ErrorIs(t, s.SetQuality(101), ErrInvalidInput)
	assert.ErrorIs(t, s.SetUnit("furlong"), ErrInvalidInput)
	assert.ErrorIs(t, s.SetFormat("jxl"), ErrInvalidInput)
	assert.ErrorIs(t, s.SetBackground("red"), ErrInvalidInput)
	assert.Equal(t, before, s.Config())
}

func TestDerivedSideOutOfRangeIsRejected(t *testing.T) {
	s, err := NewDimensionState(100, 1, WithMaxPixelDimension(1000))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetHeight(20), ErrInvalidInput)
	assert.Equal(t, 100, s.Config().WidthPx)
	assert.Equal(t, 1, s.Config().HeightPx)
}

func TestQualityCapFollowsFormat(t *testing.T) {
	s := newTestState(t, 10, 10)
	require.NoError(t, s.SetFormat(pkg.FormatPNG))
	require.NoError(t, s.SetQuality(150))
	assert.Equal(t, 150, s.Config().Quality)

	require.NoError(t, s.SetFormat(pkg.FormatJPG))
	assert.Equal(t, 100, s.Config().Quality)
}

func TestResetRestoresLoadState(t *testing.T) {
	s := newTestState(t, 1280, 825)
	initial := s.Config()

	require.NoError(t, s.SetUnit(pkg.UnitCentimeter))
	require.NoError(t, s.SetDPI(300))
	require.NoError(t, s.EditWidth("7.77"))
	s.ToggleAspectLock()
	require.NoError(t, s.EditHeight("1.1"))
	require.NoError(t, s.SetFormat(pkg.FormatWebP))
	require.NoError(t, s.SetQuality(42))
	require.NoError(t, s.SetBackground(pkg.BackgroundBlack))

	s.Reset()
	assert.Equal(t, initial, s.Config())
	assert.Equal(t, s.Initial(), s.Config())
}

func TestApplyPresetBypassesRatio(t *testing.T) {
	s := newTestState(t, 1280, 825)
	require.NoError(t, s.SetUnit(pkg.UnitInch))
	s.ToggleAspectLock()

	p := pkg.Preset{Name: "SSC PHOTO", Property: pkg.PresetProperty{
		Width: 200, Height: 230, DPI: 72, Quality: 90, Format: pkg.FormatJPG, Background: pkg.BackgroundWhite,
	}}
	require.NoError(t, s.ApplyPreset(p))

	cfg := s.Config()
	assert.Equal(t, 200, cfg.WidthPx)
	assert.Equal(t, 230, cfg.HeightPx)
	assert.Equal(t, pkg.UnitPixel, cfg.Unit)
	assert.True(t, cfg.AspectLock)
	assert.Equal(t, 200.0, cfg.Width)

	bad := p
	bad.Property.DPI = 5
	assert.ErrorIs(t, s.ApplyPreset(bad), ErrInvalidInput)
	assert.Equal(t, cfg, s.Config())
}

func TestLoadExternalConfigRecomputesDisplay(t *testing.T) {
	s := newTestState(t, 1280, 825)
	err := s.LoadExternalConfig(pkg.FormatConfig{
		Width:      999,
		Height:     999,
		WidthPx:    144,
		HeightPx:   72,
		AspectLock: false,
		Unit:       pkg.UnitInch,
		DPI:        72,
		Quality:    80,
		Format:     pkg.FormatPNG,
		Background: pkg.BackgroundBlack,
	})
	require.NoError(t, err)

	cfg := s.Config()
	assert.Equal(t, 2.0, cfg.Width)
	assert.Equal(t, 1.0, cfg.Height)
	assert.False(t, cfg.AspectLock)
	assert.Equal(t, pkg.BackgroundBlack, cfg.Background)

	assert.ErrorIs(t, s.LoadExternalConfig(pkg.FormatConfig{WidthPx: 10, HeightPx: 10, Unit: "em"}), ErrInvalidInput)
}

func TestObserverOnlySeesChanges(t *testing.T) {
	s := newTestState(t, 1280, 825)
	var seen []pkg.FormatConfig
	s.OnChange(func(cfg pkg.FormatConfig) { seen = append(seen, cfg) })

	require.NoError(t, s.SetUnit(pkg.UnitPixel))
	require.NoError(t, s.SetDPI(72))
	assert.Empty(t, seen)

	require.NoError(t, s.SetWidth(640))
	require.Len(t, seen, 1)
	assert.Equal(t, 413, seen[0].HeightPx)

	require.NoError(t, s.SetWidth(640))
	assert.Len(t, seen, 1)

	_ = s.EditWidth("nope")
	assert.Len(t, seen, 1)

	s.ToggleAspectLock()
	s.ToggleAspectLock()
	assert.Len(t, seen, 3)

	s.Reset()
	s.Reset()
	assert.Len(t, seen, 4)
	assert.Equal(t, s.Initial(), seen[3])
}
