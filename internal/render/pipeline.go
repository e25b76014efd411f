// Package render turns content plus options into a QR image. It picks the
// plain or compositing path, memoises results and coalesces bursts of option
// changes coming from an interactive editor.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cristianadrielbraun/qrstudio/internal/cache"
	"github.com/cristianadrielbraun/qrstudio/internal/compositor"
	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/metrics"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/raster"
)

// DefaultCacheSize is the number of rendered images kept in memory.
const DefaultCacheSize = 20

const encodeFailedMessage = "Could not generate QR code"

// Pipeline renders QR images. It is safe for concurrent use; each Pipeline
// owns its own result cache.
type Pipeline struct {
	enc       encoder.Encoder
	comp      *compositor.Compositor
	cache     *cache.FIFO[string, *RenderedImage]
	group     singleflight.Group
	log       zerolog.Logger
	metrics   *metrics.Metrics
	cacheSize int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithCacheSize overrides the result cache capacity.
func WithCacheSize(n int) Option {
	return func(p *Pipeline) { p.cacheSize = n }
}

// WithMetrics records cache and render metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New builds a Pipeline that encodes with enc and loads overlays with loader.
func New(enc encoder.Encoder, loader compositor.ImageLoader, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		enc:       enc,
		comp:      compositor.New(loader),
		log:       zerolog.Nop(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	c, err := cache.New[string, *RenderedImage](metrics.CacheRender, p.cacheSize, p.log)
	if err != nil {
		return nil, err
	}
	p.cache = c
	return p, nil
}

// Render returns the image for content. Empty content yields (nil, nil)
// without rendering. Overlay failures degrade to a plain image; only when
// the plain path fails too is an ErrEncodingFailed error returned.
func (p *Pipeline) Render(ctx context.Context, content string, opts Options) (*RenderedImage, error) {
	if content == "" {
		return nil, nil
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key, err := opts.Key(content)
	if err != nil {
		return nil, qrerr.Validation("Invalid render options", err)
	}
	if img, ok := p.cache.Get(key); ok {
		p.metrics.RecordCache(metrics.CacheRender, true)
		return img, nil
	}
	p.metrics.RecordCache(metrics.CacheRender, false)

	// The shared render outlives any single caller; image loads stay bounded
	// by the loader timeout.
	ch := p.group.DoChan(key, func() (interface{}, error) {
		if img, ok := p.cache.Get(key); ok {
			return img, nil
		}
		img, err := p.render(context.WithoutCancel(ctx), content, opts)
		if err != nil {
			return nil, err
		}
		p.cache.Put(key, img)
		return img, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RenderedImage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ClearCache drops every memoised image.
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
}

// CacheLen reports how many images are memoised.
func (p *Pipeline) CacheLen() int {
	return p.cache.Len()
}

func (p *Pipeline) render(ctx context.Context, content string, opts Options) (*RenderedImage, error) {
	start := time.Now()
	if !opts.HasOverlays() {
		img, err := p.plain(content, plainLevel(opts), nil, opts)
		if err != nil {
			return nil, err
		}
		p.metrics.ObserveRender(metrics.PathFast, time.Since(start))
		return img, nil
	}

	// Overlays always cover modules, so compositing encodes at H.
	level := encoder.LevelH
	m, err := p.enc.Encode(content, level)
	if err == nil {
		var canvas *raster.Canvas
		canvas, err = p.comp.Compose(ctx, m, opts.drawing())
		if err == nil {
			p.metrics.ObserveRender(metrics.PathCompose, time.Since(start))
			return NewRenderedImage(canvas.Image(), level)
		}
	}

	p.metrics.RecordFallback()
	p.log.Warn().Err(err).Str("level", string(level)).Msg("compositing failed, rendering plain QR code")

	// An overlay failure keeps the matrix already encoded. An encoder failure
	// retries at the plain-path level, which is still H when forced.
	fallbackLevel := level
	if m == nil {
		fallbackLevel = plainLevel(opts)
	}
	img, ferr := p.plain(content, fallbackLevel, m, opts)
	if ferr != nil {
		return nil, qrerr.Encoding(encodeFailedMessage, errors.Join(err, ferr))
	}
	p.metrics.ObserveRender(metrics.PathFallback, time.Since(start))
	return img, nil
}

// plain renders without overlays. A nil m is encoded first.
func (p *Pipeline) plain(content string, level encoder.Level, m *encoder.Matrix, opts Options) (*RenderedImage, error) {
	if m == nil {
		var err error
		m, err = p.enc.Encode(content, level)
		if err != nil {
			p.log.Error().Err(err).Str("level", string(level)).Msg("failed to encode QR code")
			return nil, qrerr.Encoding(encodeFailedMessage, err)
		}
	}
	canvas, err := compositor.Plain(m, opts.drawing())
	if err != nil {
		return nil, qrerr.Encoding(encodeFailedMessage, err)
	}
	return NewRenderedImage(canvas.Image(), level)
}

func plainLevel(opts Options) encoder.Level {
	if opts.ForcesHighLevel() {
		return encoder.LevelH
	}
	if opts.Level == encoder.LevelUnset {
		return encoder.LevelM
	}
	return opts.Level
}
