package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

var (
	imageDecoders = map[string]func(io.Reader) (image.Image, error){
		MIMETypeJPEG: jpeg.Decode,
		MIMETypePNG:  png.Decode,
	}

	imageEncoders = map[string]func(io.Writer, image.Image) error{
		MIMETypeJPEG: func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, &jpeg.Options{Quality: 90}) },
		MIMETypePNG:  png.Encode,
	}
)

// downscale shrinks images wider than maxWidth, keeping the aspect ratio.
// It reports whether the image was changed.
func downscale(data []byte, ctype string, maxWidth int) ([]byte, bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= maxWidth {
		return data, false, nil
	}

	decode, ok := imageDecoders[ctype]
	if !ok {
		return nil, false, fmt.Errorf("no decoder for %q", ctype)
	}
	original, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	ratio := float64(maxWidth) / float64(original.Bounds().Dx())
	height := int(float64(original.Bounds().Dy()) * ratio)
	if height < 1 {
		height = 1
	}

	bitmap := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(bitmap, bitmap.Bounds(), original, original.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := imageEncoders[ctype](&buf, bitmap); err != nil {
		return nil, false, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), true, nil
}
