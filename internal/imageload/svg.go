package imageload

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// svgFallbackSize is used when an SVG has no usable viewBox.
const svgFallbackSize = 512

// svgMaxSize caps the rasterised side of an SVG.
const svgMaxSize = 2048

func isSVG(data []byte, mediaType string) bool {
	if strings.HasPrefix(strings.ToLower(mediaType), "image/svg") {
		return true
	}
	return mimetype.Detect(data).Is("image/svg+xml")
}

// decodeSVG rasterises an SVG document at its intrinsic size.
func decodeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = svgFallbackSize, svgFallbackSize
	}
	if w > svgMaxSize || h > svgMaxSize {
		if w >= h {
			h = h * svgMaxSize / w
			w = svgMaxSize
		} else {
			w = w * svgMaxSize / h
			h = svgMaxSize
		}
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}
