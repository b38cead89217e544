package pkg

import (
	"fmt"
	"strings"
)

type OutputFormat string

const (
	FormatJPG  OutputFormat = "jpg"
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
	FormatWebP OutputFormat = "webp"
	FormatGIF  OutputFormat = "gif"
	FormatAVIF OutputFormat = "avif"
	FormatTIFF OutputFormat = "tiff"
	FormatBMP  OutputFormat = "bmp"
	FormatHEIC OutputFormat = "heic"
)

var OutputFormats = []OutputFormat{
	FormatJPG, FormatJPEG, FormatPNG, FormatWebP, FormatGIF, FormatAVIF, FormatTIFF, FormatBMP, FormatHEIC,
}

const (
	MinQuality            = 1
	MaxQuality            = 100
	MaxIgnoredQuality     = 200
	DefaultQuality        = 90
	MinDPI                = 30
	MaxDPI                = 1200
	DefaultDPI            = 72
	DefaultDownloadFormat = FormatPNG
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range OutputFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// IgnoresQuality reports formats whose encoders are lossless.
func (f OutputFormat) IgnoresQuality() bool {
	switch f {
	case FormatPNG, FormatGIF, FormatBMP, FormatTIFF:
		return true
	}
	return false
}

// MaxQuality is 100 for lossy formats. Formats that ignore quality keep accepting the
// legacy 200 cap.
func (f OutputFormat) MaxQuality() int {
	if f.IgnoresQuality() {
		return MaxIgnoredQuality
	}
	return MaxQuality
}

func (f OutputFormat) MIME() string {
	switch f {
	case FormatJPG, FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatAVIF:
		return "image/avif"
	case FormatTIFF:
		return "image/tiff"
	case FormatBMP:
		return "image/bmp"
	case FormatHEIC:
		return "image/heic"
	}
	return "application/octet-stream"
}

func (f OutputFormat) Extension() string {
	if f == "" {
		return string(DefaultDownloadFormat)
	}
	return string(f)
}

type Background string

const (
	BackgroundWhite Background = "white"
	BackgroundBlack Background = "black"
)

func ParseBackground(s string) (Background, error) {
	switch Background(strings.ToLower(strings.TrimSpace(s))) {
	case BackgroundWhite:
		return BackgroundWhite, nil
	case BackgroundBlack:
		return BackgroundBlack, nil
	}
	return "", fmt.Errorf("unknown background %q", s)
}

// Fit controls how the source is placed in the target box.
type Fit string

const (
	// FitStretch scales the source to cover the whole box.
	FitStretch Fit = "stretch"
	// FitContain keeps the source ratio and fills the rest with the background.
	FitContain Fit = "contain"
)

func ParseFit(s string) (Fit, error) {
	switch Fit(s) {
	case "", FitStretch:
		return FitStretch, nil
	case FitContain:
		return FitContain, nil
	}
	return "", fmt.Errorf("unknown fit %q", s)
}

// QualityFraction normalizes a percent quality for encoders expecting [0,1].
func QualityFraction(quality int) float64 {
	if quality < MinQuality {
		quality = MinQuality
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}
	return float64(quality) / 100
}
