package fileconvert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode is returned by ImageRecoder implementations when the source
// bytes are not a decodable image.
var ErrImageDecode = errors.New("decode image")

// ImageEncoding selects the target codec of a recode.
type ImageEncoding string

const (
	EncodingPNG  ImageEncoding = "png"
	EncodingJPEG ImageEncoding = "jpeg"
)

// ImageFormat is a target codec plus its fixed settings.
type ImageFormat struct {
	Encoding ImageEncoding
	// Quality is the JPEG quality, 1-100. It is ignored for PNG.
	Quality int
}

// ImageRecoder re-encodes an image into another format.
type ImageRecoder interface {
	Recode(ctx context.Context, data []byte, format ImageFormat) ([]byte, error)
}

// StdImageRecoder decodes PNG, JPEG, GIF, BMP, TIFF and WebP and encodes PNG
// or JPEG.
type StdImageRecoder struct{}

// NewImageRecoder creates the default ImageRecoder.
func NewImageRecoder() *StdImageRecoder {
	return &StdImageRecoder{}
}

func (r *StdImageRecoder) Recode(_ context.Context, data []byte, format ImageFormat) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	var buf bytes.Buffer
	switch format.Encoding {
	case EncodingPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	case EncodingJPEG:
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: format.Quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown image encoding %q", format.Encoding)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque white background. JPEG has no alpha
// channel, and encoding transparent pixels directly turns them black.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
