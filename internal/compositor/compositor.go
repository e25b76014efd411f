// Package compositor turns a QR module matrix into a layered raster image:
// background (image or flat fill), optional full-size logo, the modules, and
// optional centred logo.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/raster"
)

const (
	// LogoFraction is the side of the centred logo relative to the canvas.
	LogoFraction = 0.25
	// LogoPadding is the white border around the centred logo, in pixels.
	LogoPadding = 5
)

var white = color.RGBA{255, 255, 255, 255}

// Options are fully resolved drawing parameters; no field is optional here.
type Options struct {
	Width           int
	Margin          int
	Foreground      color.RGBA
	Background      color.RGBA
	Logo            imageload.Ref
	LogoOpacity     float64
	LogoFullSize    bool
	BackgroundImage imageload.Ref
	OverlayOpacity  float64
}

// ImageLoader resolves overlay references.
type ImageLoader interface {
	Load(ctx context.Context, ref imageload.Ref) (image.Image, error)
}

// Compositor draws overlay-carrying QR images.
type Compositor struct {
	loader ImageLoader
}

// New returns a Compositor that fetches overlays through loader.
func New(loader ImageLoader) *Compositor {
	return &Compositor{loader: loader}
}

// Compose draws m with every layer requested by opts. It fails as soon as an
// overlay cannot be loaded; degrading is left to the caller.
func (c *Compositor) Compose(ctx context.Context, m *encoder.Matrix, opts Options) (*raster.Canvas, error) {
	canvas, err := raster.NewCanvas(opts.Width)
	if err != nil {
		return nil, err
	}
	w := float64(opts.Width)

	if opts.BackgroundImage != "" {
		bg, err := c.loader.Load(ctx, opts.BackgroundImage)
		if err != nil {
			return nil, fmt.Errorf("background layer: %w", err)
		}
		canvas.Fill(opts.Background)
		canvas.DrawImage(bg, canvas.Image().Bounds(), 1)
		// The overlay washes the picture out so dark modules stay readable.
		canvas.FillRect(0, 0, w, w, opts.Background, opts.OverlayOpacity)
	} else {
		canvas.Fill(opts.Background)
	}

	if opts.Logo != "" && opts.LogoFullSize {
		logo, err := c.loader.Load(ctx, opts.Logo)
		if err != nil {
			return nil, fmt.Errorf("full-size logo layer: %w", err)
		}
		canvas.DrawImage(logo, canvas.Image().Bounds(), opts.LogoOpacity)
	}

	if err := DrawModules(canvas, m, opts.Margin, opts.Foreground); err != nil {
		return nil, err
	}

	if opts.Logo != "" && !opts.LogoFullSize {
		logo, err := c.loader.Load(ctx, opts.Logo)
		if err != nil {
			return nil, fmt.Errorf("logo layer: %w", err)
		}
		region := LogoRegion(opts.Width)
		canvas.FillRect(
			float64(region.Min.X-LogoPadding), float64(region.Min.Y-LogoPadding),
			float64(region.Dx()+2*LogoPadding), float64(region.Dy()+2*LogoPadding),
			white, 1,
		)
		canvas.DrawImage(logo, region, opts.LogoOpacity)
	}

	return canvas, nil
}

// Plain draws m over a flat background with no overlays. Unlike Compose,
// Margin counts modules here: the quiet zone is Margin modules wide and the
// symbol scales to fill the rest of the canvas.
func Plain(m *encoder.Matrix, opts Options) (*raster.Canvas, error) {
	canvas, err := raster.NewCanvas(opts.Width)
	if err != nil {
		return nil, err
	}
	n := m.Size()
	size := float64(opts.Width) / float64(n+2*opts.Margin)
	if size < 1 {
		return nil, fmt.Errorf("canvas of %dpx with a %d module margin cannot hold %d modules", opts.Width, opts.Margin, n)
	}
	canvas.Fill(opts.Background)
	drawModules(canvas, m, float64(opts.Margin)*size, size, opts.Foreground)
	return canvas, nil
}

// DrawModules paints every dark module of m at full opacity. The symbol
// spans the canvas minus margin pixels on each side.
func DrawModules(canvas *raster.Canvas, m *encoder.Matrix, margin int, fg color.RGBA) error {
	n := m.Size()
	inner := canvas.Width() - 2*margin
	if inner < n {
		return fmt.Errorf("canvas of %dpx with %dpx margin cannot hold %d modules", canvas.Width(), margin, n)
	}
	drawModules(canvas, m, float64(margin), float64(inner)/float64(n), fg)
	return nil
}

func drawModules(canvas *raster.Canvas, m *encoder.Matrix, offset, size float64, fg color.RGBA) {
	n := m.Size()
	rects := make([]raster.Rect, 0, m.DarkCount())
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if m.Dark(col, row) {
				rects = append(rects, raster.Rect{
					X: offset + float64(col)*size,
					Y: offset + float64(row)*size,
					W: size,
					H: size,
				})
			}
		}
	}
	canvas.FillRects(rects, fg)
}

// LogoRegion is the centred square reserved for a small logo.
func LogoRegion(width int) image.Rectangle {
	side := int(math.Round(float64(width) * LogoFraction))
	x := (width - side) / 2
	return image.Rect(x, x, x+side, x+side)
}
