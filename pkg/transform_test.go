package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 KB"},
		{512, "0.5 KB"},
		{1023, "0.99 KB"},
		{10 * 1024, "10 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1 MB"},
		{1572864, "1.5 MB"},
		// 1500 KB, then 1.4648 MB floored.
		{1536000, "1.46 MB"},
		{1048575, "1023.99 KB"},
		{-1, SizeUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestTransformOptions(t *testing.T) {
	img := ProcessedImage{
		SourcePath: "uploads/a.png",
		WidthPx:    200,
		HeightPx:   230,
		DPI:        72,
		Quality:    90,
		Format:     FormatJPG,
		Background: BackgroundWhite,
	}
	assert.Equal(t, "height=230,width=200,dpi=72,quality=90,format=jpg,background=white", TransformOptions(img))
	assert.Equal(t, "/cdn/img/height=230,width=200,dpi=72,quality=90,format=jpg,background=white/uploads/a.png", TransformPath("", img))
	assert.Equal(t, "https://cdn.example.com/cdn/img/height=230,width=200,dpi=72,quality=90,format=jpg,background=white/uploads/a.png",
		TransformPath("https://cdn.example.com/", img))
}

func TestTransformOptionsOmitsMissing(t *testing.T) {
	img := ProcessedImage{SourcePath: "a.png", WidthPx: 200, Format: FormatPNG}
	assert.Equal(t, "width=200,format=png", TransformOptions(img))
	assert.Equal(t, "/cdn/img/a.png", TransformPath("", ProcessedImage{SourcePath: "a.png"}))
}

func TestDownloadFileName(t *testing.T) {
	assert.Equal(t, "photo_200x230.jpg", DownloadFileName("photo.final.png", 200, 230, FormatJPG))
	assert.Equal(t, "scan_10x20.png", DownloadFileName("scan", 10, 20, ""))
	assert.Equal(t, "image_1x1.webp", DownloadFileName(".hidden", 1, 1, FormatWebP))
}

func TestOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat(" JPG ")
	assert.NoError(t, err)
	assert.Equal(t, FormatJPG, f)
	assert.Equal(t, "image/jpeg", f.MIME())
	assert.Equal(t, MaxQuality, f.MaxQuality())
	assert.Equal(t, MaxIgnoredQuality, FormatPNG.MaxQuality())
	assert.True(t, FormatBMP.IgnoresQuality())
	assert.False(t, FormatWebP.IgnoresQuality())

	_, err = ParseOutputFormat("jxl")
	assert.Error(t, err)
}

func TestQualityFraction(t *testing.T) {
	assert.InDelta(t, 0.9, QualityFraction(90), 1e-9)
	assert.InDelta(t, 1.0, QualityFraction(200), 1e-9)
	assert.InDelta(t, 0.01, QualityFraction(0), 1e-9)
}
