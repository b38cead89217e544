package pkg

import (
	"fmt"
	"strings"
)

const CDNImagePrefix = "cdn/img"

// TransformOptions renders the option segment understood by the remote transform API.
// Order is fixed; zero or empty parameters are left out.
func TransformOptions(img ProcessedImage) string {
	parts := make([]string, 0, 6)
	if img.HeightPx > 0 {
		parts = append(parts, fmt.Sprintf("height=%d", img.HeightPx))
	}
	if img.WidthPx > 0 {
		parts = append(parts, fmt.Sprintf("width=%d", img.WidthPx))
	}
	if img.DPI > 0 {
		parts = append(parts, fmt.Sprintf("dpi=%d", img.DPI))
	}
	if img.Quality > 0 {
		parts = append(parts, fmt.Sprintf("quality=%d", img.Quality))
	}
	if img.Format != "" {
		parts = append(parts, "format="+string(img.Format))
	}
	if img.Background != "" {
		parts = append(parts, "background="+string(img.Background))
	}
	return strings.Join(parts, ",")
}

// TransformPath joins base, the CDN prefix, the option segment and the stored path.
func TransformPath(base string, img ProcessedImage) string {
	segments := []string{strings.TrimRight(base, "/"), CDNImagePrefix}
	if opts := TransformOptions(img); opts != "" {
		segments = append(segments, opts)
	}
	segments = append(segments, strings.TrimLeft(img.SourcePath, "/"))
	return strings.Join(segments, "/")
}

// DownloadFileName builds <base>_<width>x<height>.<ext>, base being the name up to its
// first dot.
func DownloadFileName(name string, width, height int, format OutputFormat) string {
	base, _, _ := strings.Cut(name, ".")
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s_%dx%d.%s", base, width, height, format.Extension())
}
