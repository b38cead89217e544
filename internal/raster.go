package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nocturnecity/image-formatter/pkg"
)

var (
	ErrEncodeFailed      = errors.New("encode failed")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrDecodeFailed      = errors.New("decode failed")
)

type EncodedResult struct {
	Bytes  []byte
	Size   int64
	MIME   string
	Format pkg.OutputFormat
	Width  int
	Height int
}

// Renderer turns a source raster into an encoded variant.
type Renderer interface {
	ResizeAndEncode(ctx context.Context, src image.Image, opts pkg.EncodeOptions) (*EncodedResult, error)
}

// SourceImage is what the upload side hands over: the decoded raster with its natural size
// and the byte size of the uploaded file.
type SourceImage struct {
	Name   string
	Path   string
	Raster image.Image
	Width  int
	Height int
	Size   int64
}

const DefaultMaxSourcePixels int64 = 50_000_000

// SourceLimits bounds what DecodeSource accepts. Zero fields take the defaults.
type SourceLimits struct {
	MaxDimension int
	MaxPixels    int64
}

func (l SourceLimits) withDefaults() SourceLimits {
	if l.MaxDimension <= 0 {
		l.MaxDimension = DefaultMaxPixelDimension
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = DefaultMaxSourcePixels
	}
	return l
}

// check rejects sizes outside the editable range before any pixel buffer is allocated.
func (l SourceLimits) check(w, h int) error {
	l = l.withDefaults()
	if w < 1 || h < 1 || w > l.MaxDimension || h > l.MaxDimension {
		return fmt.Errorf("%w: source size %dx%d out of range [1, %d]", ErrInvalidInput, w, h, l.MaxDimension)
	}
	if int64(w)*int64(h) > l.MaxPixels {
		return fmt.Errorf("%w: source has %d pixels, limit is %d", ErrInvalidInput, int64(w)*int64(h), l.MaxPixels)
	}
	return nil
}

// DecodeSource decodes an uploaded file, applying its EXIF orientation. The header is
// read first and sources beyond limits are refused without decoding.
func DecodeSource(name, path string, data []byte, limits SourceLimits) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecodeFailed)
	}
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if err := limits.check(header.Width, header.Height); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	b := img.Bounds()
	if err := limits.check(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	return &SourceImage{
		Name:   name,
		Path:   path,
		Raster: img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Size:   int64(len(data)),
	}, nil
}

type RasterPipeline struct {
	log *StdLog
}

func NewRasterPipeline(log *StdLog) *RasterPipeline {
	return &RasterPipeline{log: log}
}

func (p *RasterPipeline) ResizeAndEncode(ctx context.Context, src image.Image, opts pkg.EncodeOptions) (*EncodedResult, error) {
	start := time.Now()
	if src == nil || src.Bounds().Empty() {
		return nil, p.failed(opts, fmt.Errorf("%w: no source raster", ErrEncodeFailed))
	}
	if opts.WidthPx < 1 || opts.HeightPx < 1 {
		return nil, p.failed(opts, fmt.Errorf("%w: target size %dx%d", ErrEncodeFailed, opts.WidthPx, opts.HeightPx))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := compose(src, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := encode(&buf, canvas, opts); err != nil {
		return nil, p.failed(opts, err)
	}
	if buf.Len() == 0 {
		return nil, p.failed(opts, fmt.Errorf("%w: encoder returned no data", ErrEncodeFailed))
	}

	encodeDuration.WithLabelValues(string(opts.Format)).Observe(float64(time.Since(start).Milliseconds()))
	p.log.Debug("encoded %dx%d %s q=%d: %s", opts.WidthPx, opts.HeightPx, opts.Format, opts.Quality, pkg.FormatSize(int64(buf.Len())))
	return &EncodedResult{
		Bytes:  buf.Bytes(),
		Size:   int64(buf.Len()),
		MIME:   opts.Format.MIME(),
		Format: opts.Format,
		Width:  opts.WidthPx,
		Height: opts.HeightPx,
	}, nil
}

func (p *RasterPipeline) failed(opts pkg.EncodeOptions, err error) error {
	encodeFailures.WithLabelValues(string(opts.Format)).Inc()
	p.log.Error("encode %dx%d %s: %v", opts.WidthPx, opts.HeightPx, opts.Format, err)
	return err
}

// compose draws src into an exact WidthPx x HeightPx canvas over the background colour.
func compose(src image.Image, opts pkg.EncodeOptions) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, opts.WidthPx, opts.HeightPx))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor(opts.Background)), image.Point{}, draw.Src)

	target := dst.Bounds()
	if opts.Fit == pkg.FitContain {
		target = containRect(src.Bounds(), opts.WidthPx, opts.HeightPx)
	}
	draw.CatmullRom.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
	return dst
}

// containRect is the largest centred rectangle inside w x h with the ratio of src.
func containRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	scale := math.Min(float64(w)/sw, float64(h)/sh)
	dw := int(math.Max(1, math.Round(sw*scale)))
	dh := int(math.Max(1, math.Round(sh*scale)))
	x := (w - dw) / 2
	y := (h - dh) / 2
	return image.Rect(x, y, x+dw, y+dh)
}

func backgroundColor(b pkg.Background) color.Color {
	if b == pkg.BackgroundBlack {
		return color.Black
	}
	return color.White
}

func encode(buf *bytes.Buffer, img image.Image, opts pkg.EncodeOptions) error {
	var err error
	switch opts.Format {
	case pkg.FormatJPG, pkg.FormatJPEG:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(opts.Quality)))
	case pkg.FormatPNG:
		err = imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case pkg.FormatGIF:
		err = imaging.Encode(buf, img, imaging.GIF, imaging.GIFNumColors(256))
	case pkg.FormatBMP:
		err = bmp.Encode(buf, img)
	case pkg.FormatTIFF:
		err = tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate})
	case pkg.FormatWebP:
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(pkg.QualityFraction(opts.Quality) * 100)})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, opts.Format, err)
	}
	return nil
}

func clampQuality(q int) int {
	if q < pkg.MinQuality {
		return pkg.MinQuality
	}
	if q > pkg.MaxQuality {
		return pkg.MaxQuality
	}
	return q
}
