// Package export produces downloadable artifacts from rendered QR images at
// the sizes and formats offered to users.
package export

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cristianadrielbraun/qrstudio/internal/cache"
	"github.com/cristianadrielbraun/qrstudio/internal/metrics"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/raster"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

// Format is an artifact file format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts png or svg in any case; empty means png.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", qrerr.Validation("Unsupported download format", fmt.Errorf("format %q", s))
}

// Sizes are the pixel sizes offered for download.
var Sizes = []int{400, 800, 1200, 2000}

// DefaultCacheSize is the number of resized rasters kept in memory.
const DefaultCacheSize = 10

// AlertMessage is shown to the user when a download fails.
const AlertMessage = "There was an error downloading the QR code. Please try again."

// Artifact is a complete file ready to hand to the user.
type Artifact struct {
	Filename string
	MIMEType string
	Size     int
	Format   Format
	Data     []byte
}

type resizeKey struct {
	digest string
	size   int
}

// Service exports rendered images. It owns a resize cache keyed by source
// image and target size.
type Service struct {
	cache     *cache.FIFO[resizeKey, []byte]
	log       zerolog.Logger
	metrics   *metrics.Metrics
	cacheSize int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithCacheSize overrides the resize cache capacity.
func WithCacheSize(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

// WithMetrics records export and cache metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service.
func New(opts ...Option) (*Service, error) {
	s := &Service{log: zerolog.Nop(), cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(s)
	}
	c, err := cache.New[resizeKey, []byte](metrics.CacheResize, s.cacheSize, s.log)
	if err != nil {
		return nil, err
	}
	s.cache = c
	return s, nil
}

// Export builds the artifact for img at size in format. A size of 0 means
// the image's native size; any other size must be one of Sizes.
func (s *Service) Export(ctx context.Context, img *render.RenderedImage, size int, format Format) (*Artifact, error) {
	a, err := s.export(ctx, img, size, format)
	s.metrics.RecordExport(string(format), err)
	if err != nil {
		s.log.Error().Err(err).Int("size", size).Str("format", string(format)).Msg("export failed")
		return nil, err
	}
	return a, nil
}

func (s *Service) export(ctx context.Context, img *render.RenderedImage, size int, format Format) (*Artifact, error) {
	if img == nil {
		return nil, qrerr.Validation("Nothing to download yet", fmt.Errorf("no rendered image"))
	}
	if size != 0 && !slices.Contains(Sizes, size) {
		return nil, qrerr.Validation("Unsupported download size", fmt.Errorf("size %d", size))
	}
	if err := ctx.Err(); err != nil {
		return nil, qrerr.Export("Download was cancelled", err)
	}

	switch format {
	case FormatPNG:
		return s.png(img, size)
	case FormatSVG:
		if size == 0 {
			size = img.PixelWidth
		}
		return &Artifact{
			Filename: "qrcode.svg",
			MIMEType: "image/svg+xml",
			Size:     size,
			Format:   FormatSVG,
			Data:     wrapSVG(img.URI(), size),
		}, nil
	}
	return nil, qrerr.Validation("Unsupported download format", fmt.Errorf("format %q", format))
}

func (s *Service) png(img *render.RenderedImage, size int) (*Artifact, error) {
	if size == 0 || size == img.PixelWidth {
		return &Artifact{
			Filename: "qrcode.png",
			MIMEType: render.MIMEType,
			Size:     img.PixelWidth,
			Format:   FormatPNG,
			Data:     img.Data,
		}, nil
	}

	data, err := s.resize(img, size)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Filename: fmt.Sprintf("qrcode_%dx%d.png", size, size),
		MIMEType: render.MIMEType,
		Size:     size,
		Format:   FormatPNG,
		Data:     data,
	}, nil
}

func (s *Service) resize(img *render.RenderedImage, size int) ([]byte, error) {
	key := resizeKey{digest: img.Digest, size: size}
	if data, ok := s.cache.Get(key); ok {
		s.metrics.RecordCache(metrics.CacheResize, true)
		return data, nil
	}
	s.metrics.RecordCache(metrics.CacheResize, false)

	src, err := img.Image()
	if err != nil {
		return nil, qrerr.Export("Could not resize QR code", err)
	}
	data, err := raster.EncodePNG(raster.Scale(src, size), Quality(size))
	if err != nil {
		return nil, qrerr.Export("Could not resize QR code", err)
	}
	s.cache.Put(key, data)
	return data, nil
}

// ExportAll exports img at every size concurrently. It fails if any size
// fails and then returns no artifacts.
func (s *Service) ExportAll(ctx context.Context, img *render.RenderedImage, sizes []int, format Format) ([]*Artifact, error) {
	out := make([]*Artifact, len(sizes))
	g, ctx := errgroup.WithContext(ctx)
	for i, size := range sizes {
		i, size := i, size
		g.Go(func() error {
			a, err := s.Export(ctx, img, size, format)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearCache drops every resized raster.
func (s *Service) ClearCache() { s.cache.Clear() }

// CacheLen reports how many resized rasters are cached.
func (s *Service) CacheLen() int { return s.cache.Len() }

// Quality is the encoder quality used for a raster of the given size.
func Quality(size int) float64 {
	if size > 1000 {
		return 0.85
	}
	return 0.92
}

// wrapSVG embeds a raster data URI in a minimal SVG document. It is not a
// vector trace of the modules.
func wrapSVG(href string, size int) []byte {
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">`+
			`<image href="%[2]s" width="%[1]d" height="%[1]d"/></svg>`,
		size, href,
	))
}
