// Package imagecodec turns raw screen pixels into persisted and transport encodings.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/GriffinCanCode/framecap/internal/config"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
)

// Encoder converts captured images to PNG bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// PNG encodes images as PNG, optionally downscaling wide frames first.
type PNG struct {
	maxWidth int
	level    png.CompressionLevel
}

// NewPNG creates a PNG encoder. maxWidth <= 0 keeps native resolution;
// compression is one of the config.Compression* presets.
func NewPNG(maxWidth int, compression string) *PNG {
	return &PNG{maxWidth: maxWidth, level: compressionLevel(compression)}
}

func compressionLevel(preset string) png.CompressionLevel {
	switch preset {
	case config.CompressionSpeed:
		return png.BestSpeed
	case config.CompressionBest:
		return png.BestCompression
	case config.CompressionNone:
		return png.NoCompression
	default:
		return png.DefaultCompression
	}
}

// Encode implements Encoder.
func (p *PNG) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.CodeEncodeFailed, "nil image")
	}
	if p.maxWidth > 0 && img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(p.level)); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEncodeFailed, "encode png")
	}
	return buf.Bytes(), nil
}

// Base64 returns the transport form of encoded image bytes.
func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ValidPNG reports whether data starts with a decodable PNG header.
func ValidPNG(data []byte) bool {
	_, err := png.DecodeConfig(bytes.NewReader(data))
	return err == nil
}
