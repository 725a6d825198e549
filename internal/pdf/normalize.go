package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	// decoders for embedded image formats
	_ "image/gif"
	_ "image/jpeg"
)

// needsRGB reports whether an embedded image has to be re-encoded before downstream consumers can read it.
func needsRGB(img RawImage) bool {
	if img.Channels > 4 {
		return true
	}
	if img.Channels == 4 && (img.Format == "jpg" || img.Format == "jpeg") {
		return true
	}
	return false
}

// toRGB decodes data and re-encodes it as an opaque PNG. Transparent areas are flattened onto white.
// It returns ok=false when the source is already in a plain colour space.
func toRGB(img RawImage) ([]byte, bool, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Channels <= 4 {
		if _, cmyk := src.(*image.CMYK); !cmyk {
			return nil, false, nil
		}
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, false, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), true, nil
}
