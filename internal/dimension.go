package internal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/nocturnecity/image-formatter/pkg"
)

const DefaultMaxPixelDimension = 16384

var ErrInvalidInput = errors.New("invalid input")

type DimensionOption func(s *DimensionState)

func WithMaxPixelDimension(n int) DimensionOption {
	return func(s *DimensionState) {
		if n > 0 {
			s.maxPx = n
		}
	}
}

// DimensionState keeps width, height, unit, DPI and the aspect lock of one source image
// consistent. WidthPx and HeightPx are authoritative; Width and Height are derived from
// them after every transition.
type DimensionState struct {
	mu        sync.Mutex
	cfg       pkg.FormatConfig
	initial   pkg.FormatConfig
	notified  pkg.FormatConfig
	originalW int
	originalH int
	ratio     pkg.AspectRatio
	maxPx     int
	observer  func(pkg.FormatConfig)
}

func NewDimensionState(originalWidthPx, originalHeightPx int, opts ...DimensionOption) (*DimensionState, error) {
	s := &DimensionState{
		originalW: originalWidthPx,
		originalH: originalHeightPx,
		ratio:     pkg.AspectRatio{Num: originalWidthPx, Den: originalHeightPx},
		maxPx:     DefaultMaxPixelDimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.inRange(originalWidthPx) || !s.inRange(originalHeightPx) {
		return nil, fmt.Errorf("%w: original size %dx%d out of range [1, %d]", ErrInvalidInput, originalWidthPx, originalHeightPx, s.maxPx)
	}
	s.initial = s.withDisplay(pkg.FormatConfig{
		WidthPx:    originalWidthPx,
		HeightPx:   originalHeightPx,
		AspectLock: true,
		Unit:       pkg.UnitPixel,
		DPI:        pkg.DefaultDPI,
		Quality:    pkg.DefaultQuality,
		Format:     pkg.FormatJPG,
		Background: pkg.BackgroundWhite,
	})
	s.cfg = s.initial
	s.notified = s.initial
	return s, nil
}

// OnChange registers the observer. It is called after a transition whose snapshot differs
// from the last one delivered, outside the state lock.
func (s *DimensionState) OnChange(fn func(pkg.FormatConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

func (s *DimensionState) Config() pkg.FormatConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *DimensionState) Initial() pkg.FormatConfig { return s.initial }

func (s *DimensionState) AspectRatio() pkg.AspectRatio { return s.ratio }

func (s *DimensionState) Original() (int, int) { return s.originalW, s.originalH }

func (s *DimensionState) EditWidth(text string) error {
	v, err := parseDisplayValue(text)
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	return s.SetWidth(v)
}

func (s *DimensionState) EditHeight(text string) error {
	v, err := parseDisplayValue(text)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}
	return s.SetHeight(v)
}

func (s *DimensionState) SetWidth(display float64) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		w, err := s.toPixels(display, cfg, float64(s.originalW))
		if err != nil {
			return cfg, fmt.Errorf("width: %w", err)
		}
		cfg.WidthPx = w
		if cfg.AspectLock {
			h := roundedRatio(w, s.ratio.Den, s.ratio.Num)
			if !s.inRange(h) {
				return cfg, fmt.Errorf("%w: derived height %d out of range", ErrInvalidInput, h)
			}
			cfg.HeightPx = h
		}
		return cfg, nil
	})
}

func (s *DimensionState) SetHeight(display float64) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		h, err := s.toPixels(display, cfg, float64(s.originalH))
		if err != nil {
			return cfg, fmt.Errorf("height: %w", err)
		}
		cfg.HeightPx = h
		if cfg.AspectLock {
			w := roundedRatio(h, s.ratio.Num, s.ratio.Den)
			if !s.inRange(w) {
				return cfg, fmt.Errorf("%w: derived width %d out of range", ErrInvalidInput, w)
			}
			cfg.WidthPx = w
		}
		return cfg, nil
	})
}

func (s *DimensionState) SetUnit(u pkg.DimensionUnit) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if _, err := pkg.ParseUnit(string(u)); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cfg.Unit = u
		return cfg, nil
	})
}

func (s *DimensionState) SetDPI(dpi int) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if err := validateDPI(dpi); err != nil {
			return cfg, err
		}
		cfg.DPI = dpi
		return cfg, nil
	})
}

func (s *DimensionState) SetQuality(quality int) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if err := validateQuality(quality, cfg.Format); err != nil {
			return cfg, err
		}
		cfg.Quality = quality
		return cfg, nil
	})
}

// SetFormat switches the output encoding. Quality above the new format's cap is clamped.
func (s *DimensionState) SetFormat(f pkg.OutputFormat) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if _, err := pkg.ParseOutputFormat(string(f)); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cfg.Format = f
		if cfg.Quality > f.MaxQuality() {
			cfg.Quality = f.MaxQuality()
		}
		return cfg, nil
	})
}

func (s *DimensionState) SetBackground(b pkg.Background) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if _, err := pkg.ParseBackground(string(b)); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cfg.Background = b
		return cfg, nil
	})
}

func (s *DimensionState) ToggleAspectLock() {
	_ = s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		cfg.AspectLock = !cfg.AspectLock
		return cfg, nil
	})
}

func (s *DimensionState) Reset() {
	_ = s.transition(func(pkg.FormatConfig) (pkg.FormatConfig, error) {
		return s.initial, nil
	})
}

// ApplyPreset takes the preset's pixels as they are, without ratio derivation, and forces
// pixel unit and the aspect lock on.
func (s *DimensionState) ApplyPreset(p pkg.Preset) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		next := pkg.FormatConfig{
			WidthPx:    p.Property.Width,
			HeightPx:   p.Property.Height,
			AspectLock: true,
			Unit:       pkg.UnitPixel,
			DPI:        p.Property.DPI,
			Quality:    p.Property.Quality,
			Format:     p.Property.Format,
			Background: p.Property.Background,
		}
		if err := s.validateCanonical(next); err != nil {
			return cfg, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		return next, nil
	})
}

// LoadExternalConfig installs a complete configuration pushed from outside. Display values
// in cfg are ignored and recomputed from its pixels.
func (s *DimensionState) LoadExternalConfig(next pkg.FormatConfig) error {
	return s.transition(func(cfg pkg.FormatConfig) (pkg.FormatConfig, error) {
		if _, err := pkg.ParseUnit(string(next.Unit)); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err := s.validateCanonical(next); err != nil {
			return cfg, err
		}
		return next, nil
	})
}

func (s *DimensionState) transition(fn func(pkg.FormatConfig) (pkg.FormatConfig, error)) error {
	s.mu.Lock()
	next, err := fn(s.cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next = s.withDisplay(next)
	s.cfg = next
	observer := s.observer
	changed := next != s.notified
	if changed {
		s.notified = next
	}
	s.mu.Unlock()

	if changed && observer != nil {
		observer(next)
	}
	return nil
}

func (s *DimensionState) withDisplay(cfg pkg.FormatConfig) pkg.FormatConfig {
	cfg.Width = pkg.Convert(float64(cfg.WidthPx), pkg.UnitPixel, cfg.Unit, float64(s.originalW), cfg.DPI)
	cfg.Height = pkg.Convert(float64(cfg.HeightPx), pkg.UnitPixel, cfg.Unit, float64(s.originalH), cfg.DPI)
	return cfg
}

func (s *DimensionState) toPixels(display float64, cfg pkg.FormatConfig, reference float64) (int, error) {
	if math.IsNaN(display) || math.IsInf(display, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite number", ErrInvalidInput, display)
	}
	px := math.Round(pkg.Convert(display, cfg.Unit, pkg.UnitPixel, reference, cfg.DPI))
	if px < 1 || px > float64(s.maxPx) {
		return 0, fmt.Errorf("%w: %v %s resolves to %v px, allowed [1, %d]", ErrInvalidInput, display, cfg.Unit, px, s.maxPx)
	}
	return int(px), nil
}

func (s *DimensionState) inRange(px int) bool {
	return px >= 1 && px <= s.maxPx
}

func (s *DimensionState) validateCanonical(cfg pkg.FormatConfig) error {
	if !s.inRange(cfg.WidthPx) || !s.inRange(cfg.HeightPx) {
		return fmt.Errorf("%w: size %dx%d out of range [1, %d]", ErrInvalidInput, cfg.WidthPx, cfg.HeightPx, s.maxPx)
	}
	if err := validateDPI(cfg.DPI); err != nil {
		return err
	}
	if _, err := pkg.ParseOutputFormat(string(cfg.Format)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateQuality(cfg.Quality, cfg.Format); err != nil {
		return err
	}
	if _, err := pkg.ParseBackground(string(cfg.Background)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func validateDPI(dpi int) error {
	if dpi < pkg.MinDPI || dpi > pkg.MaxDPI {
		return fmt.Errorf("%w: dpi %d out of range [%d, %d]", ErrInvalidInput, dpi, pkg.MinDPI, pkg.MaxDPI)
	}
	return nil
}

func validateQuality(q int, f pkg.OutputFormat) error {
	if q < pkg.MinQuality || q > f.MaxQuality() {
		return fmt.Errorf("%w: quality %d out of range [%d, %d] for %s", ErrInvalidInput, q, pkg.MinQuality, f.MaxQuality(), f)
	}
	return nil
}

func parseDisplayValue(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, text)
	}
	return v, nil
}

// roundedRatio returns round(px * num / den) from the exact integer product.
func roundedRatio(px, num, den int) int {
	return int(math.Round(float64(px) * float64(num) / float64(den)))
}
