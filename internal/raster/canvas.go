// Package raster is the in-memory drawing surface used to build QR images:
// alpha-blended rectangles, scaled image layers and PNG serialisation.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// Canvas is a square RGBA surface.
type Canvas struct {
	img *image.RGBA
	dc  *gg.Context
}

// NewCanvas allocates a transparent width×width canvas.
func NewCanvas(width int) (*Canvas, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid canvas width %d", width)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, width))
	return &Canvas{img: img, dc: gg.NewContextForRGBA(img)}, nil
}

// Width returns the side of the canvas in pixels.
func (c *Canvas) Width() int { return c.img.Bounds().Dx() }

// Image returns the backing image.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Fill paints the whole canvas with col, replacing what was there.
func (c *Canvas) Fill(col color.Color) {
	xdraw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, xdraw.Src)
}

// FillRect blends a rectangle of col at the given alpha over the canvas.
func (c *Canvas) FillRect(x, y, w, h float64, col color.RGBA, alpha float64) {
	r, g, b, a := unit(col)
	c.dc.SetRGBA(r, g, b, a*clamp01(alpha))
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

// Rect is a rectangle in canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// FillRects fills all rects with col in a single path so adjacent squares
// share edges without seams.
func (c *Canvas) FillRects(rects []Rect, col color.RGBA) {
	if len(rects) == 0 {
		return
	}
	r, g, b, a := unit(col)
	c.dc.SetRGBA(r, g, b, a)
	for _, rc := range rects {
		c.dc.DrawRectangle(rc.X, rc.Y, rc.W, rc.H)
	}
	c.dc.Fill()
}

// DrawImage scales src into dst (in canvas pixels) and blends it over the
// canvas at the given alpha.
func (c *Canvas) DrawImage(src image.Image, dst image.Rectangle, alpha float64) {
	dst = dst.Intersect(c.img.Bounds())
	if dst.Empty() || src == nil || src.Bounds().Empty() {
		return
	}
	a := clamp01(alpha)
	if a == 0 {
		return
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	mask := image.NewUniform(color.Alpha{A: uint8(a*255 + 0.5)})
	xdraw.DrawMask(c.img, dst, scaled, image.Point{}, mask, image.Point{}, xdraw.Over)
}

// PNG encodes the canvas. Quality is in (0,1]; values below 0.9 trade
// encoding time for smaller output.
func (c *Canvas) PNG(quality float64) ([]byte, error) {
	return EncodePNG(c.img, quality)
}

// EncodePNG encodes img as PNG using the compression level implied by quality.
func EncodePNG(img image.Image, quality float64) ([]byte, error) {
	enc := png.Encoder{CompressionLevel: compressionFor(quality)}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// compressionFor maps a canvas-style quality onto a PNG compression level.
// PNG is lossless, so quality only selects how hard the encoder works.
func compressionFor(quality float64) png.CompressionLevel {
	switch {
	case quality <= 0:
		return png.DefaultCompression
	case quality < 0.9:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// Scale resizes src to a size×size image with nearest-neighbour sampling,
// which keeps QR module edges sharp.
func Scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func unit(c color.RGBA) (r, g, b, a float64) {
	// gg wants straight alpha in [0,1]; color.RGBA is premultiplied.
	if c.A == 0 {
		return 0, 0, 0, 0
	}
	a = float64(c.A) / 255
	return clamp01(float64(c.R) / 255 / a), clamp01(float64(c.G) / 255 / a), clamp01(float64(c.B) / 255 / a), a
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
