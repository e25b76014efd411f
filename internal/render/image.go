package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/raster"
)

// MIMEType of every rendered image.
const MIMEType = "image/png"

// renderQuality is the canvas quality used for rendered output.
const renderQuality = 0.92

// RenderedImage is an immutable rendered QR code.
type RenderedImage struct {
	// Data holds the PNG encoding.
	Data []byte
	// PixelWidth is the side of the image in pixels.
	PixelWidth int
	// Level is the error-correction level the symbol was encoded with.
	Level encoder.Level
	// Digest is the hex SHA-256 of Data and identifies the image.
	Digest string

	img image.Image
}

// NewRenderedImage encodes img and wraps it with its identity.
func NewRenderedImage(img image.Image, level encoder.Level) (*RenderedImage, error) {
	data, err := raster.EncodePNG(img, renderQuality)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &RenderedImage{
		Data:       data,
		PixelWidth: img.Bounds().Dx(),
		Level:      level,
		Digest:     hex.EncodeToString(sum[:]),
		img:        img,
	}, nil
}

// URI returns the image as a data URI suitable for an <img> src.
func (r *RenderedImage) URI() string {
	return imageload.DataURI(MIMEType, r.Data)
}

// Image returns the decoded pixels.
func (r *RenderedImage) Image() (image.Image, error) {
	if r.img != nil {
		return r.img, nil
	}
	img, err := png.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered image: %w", err)
	}
	return img, nil
}
