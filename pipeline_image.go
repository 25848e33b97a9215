package fileconvert

import (
	"context"
	"errors"
	"fmt"
)

// Fixed recode settings per target: PNG is lossless, JPEG a high-quality
// lossy setting.
var (
	pngTarget  = ImageFormat{Encoding: EncodingPNG}
	jpegTarget = ImageFormat{Encoding: EncodingJPEG, Quality: 90}
)

// ImagePipeline re-encodes images to PNG or JPEG.
type ImagePipeline struct {
	recoder ImageRecoder
}

// NewImagePipeline creates a new ImagePipeline.
func NewImagePipeline(r ImageRecoder) *ImagePipeline {
	return &ImagePipeline{recoder: r}
}

func (p *ImagePipeline) Name() string { return "image-recode" }

func (p *ImagePipeline) Convert(ctx context.Context, c *Conversion) (*Result, error) {
	target, contentType := pngTarget, contentTypePNG
	switch c.Output {
	case OutputPNG:
	case OutputJPG, OutputJPEG:
		target, contentType = jpegTarget, contentTypeJPEG
	default:
		return nil, fmt.Errorf("image pipeline cannot produce %s", c.Output)
	}

	out, err := p.recoder.Recode(ctx, c.Data, target)
	if errors.Is(err, ErrImageDecode) {
		return nil, malformedInput("image", err)
	}
	if err != nil {
		return nil, fmt.Errorf("recode image: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("recode image: empty output")
	}

	return &Result{
		Payload:     out,
		ContentType: contentType,
	}, nil
}
