// Package optimizer validates user-uploaded logo and background images and
// shrinks them before they are used as overlays.
package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

// DefaultMaxBytes is the largest accepted upload.
const DefaultMaxBytes = 2 << 20

// Kind selects the optimisation profile.
type Kind string

const (
	KindLogo       Kind = "logo"
	KindBackground Kind = "background"
)

// ParseKind accepts "logo" or "background".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindLogo, KindBackground:
		return k, nil
	}
	return "", qrerr.Validation("Unknown upload type", fmt.Errorf("kind %q", s))
}

// Profile is the output bound and encoding for one Kind.
type Profile struct {
	MaxDimension int
	Format       imaging.Format
	Quality      float64
}

// Profiles per Kind. Logos keep transparency as PNG; backgrounds are
// photographs and go out as JPEG.
var Profiles = map[Kind]Profile{
	KindLogo:       {MaxDimension: 800, Format: imaging.PNG, Quality: 0.9},
	KindBackground: {MaxDimension: 1200, Format: imaging.JPEG, Quality: 0.85},
}

// Result is an ingested image ready to use as an overlay reference.
type Result struct {
	Ref       imageload.Ref
	MIMEType  string
	Width     int
	Height    int
	Optimized bool
}

// Optimizer validates and re-encodes uploads.
type Optimizer struct {
	maxBytes int64
	log      zerolog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithMaxBytes overrides the upload size ceiling.
func WithMaxBytes(n int64) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Optimizer) { o.log = log }
}

// New returns an Optimizer with a 2 MiB ceiling.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{maxBytes: DefaultMaxBytes, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest reads an upload, validates it and optimises it for kind. Rejections
// are ErrValidationFailed with a user-facing message. If optimisation fails
// the original bytes are passed through unchanged.
func (o *Optimizer) Ingest(ctx context.Context, r io.Reader, kind Kind) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return nil, qrerr.Validation("Could not read the uploaded file", err)
	}
	mediaType, err := o.Validate(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := o.Optimize(data, mediaType, kind)
	if errors.Is(err, imageload.ErrTooManyPixels) {
		return nil, qrerr.Validation("The image dimensions are too large", err)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("kind", string(kind)).Str("mime", mediaType).Msg("optimization failed, using original image")
		return &Result{
			Ref:      imageload.Ref(imageload.DataURI(mediaType, data)),
			MIMEType: mediaType,
		}, nil
	}
	return res, nil
}

// Validate checks the size ceiling and that data sniffs as an image. It
// returns the detected MIME type.
func (o *Optimizer) Validate(data []byte) (string, error) {
	if int64(len(data)) > o.maxBytes {
		return "", qrerr.Validation(
			fmt.Sprintf("The image is too large. Maximum size is %s.", humanBytes(o.maxBytes)),
			fmt.Errorf("upload of %d bytes", len(data)),
		)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", qrerr.Validation("Please select an image", fmt.Errorf("detected %s", mt.String()))
	}
	return strings.SplitN(mt.String(), ";", 2)[0], nil
}

// Optimize decodes data, fits it inside the profile's bounds preserving the
// aspect ratio and re-encodes it. Images already within bounds are not
// enlarged.
func (o *Optimizer) Optimize(data []byte, mediaType string, kind Kind) (*Result, error) {
	profile, ok := Profiles[kind]
	if !ok {
		return nil, fmt.Errorf("no optimization profile for %q", kind)
	}
	src, err := imageload.Decode(data, mediaType)
	if err != nil {
		return nil, err
	}

	var img image.Image = src
	b := src.Bounds()
	if b.Dx() > profile.MaxDimension || b.Dy() > profile.MaxDimension {
		img = imaging.Fit(src, profile.MaxDimension, profile.MaxDimension, imaging.Lanczos)
	}

	var (
		buf    bytes.Buffer
		outMT  string
		encErr error
	)
	switch profile.Format {
	case imaging.JPEG:
		// JPEG has no alpha; flatten onto white so transparent areas do not
		// turn black.
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		img = imaging.Overlay(bg, img, image.Point{}, 1)
		encErr = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(int(profile.Quality*100+0.5)))
		outMT = "image/jpeg"
	default:
		encErr = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompression(profile.Quality)))
		outMT = "image/png"
	}
	if encErr != nil {
		return nil, fmt.Errorf("failed to encode optimized image: %w", encErr)
	}

	return &Result{
		Ref:       imageload.Ref(imageload.DataURI(outMT, buf.Bytes())),
		MIMEType:  outMT,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Optimized: true,
	}, nil
}

func pngCompression(quality float64) png.CompressionLevel {
	if quality < 0.9 {
		return png.BestCompression
	}
	return png.DefaultCompression
}

func humanBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
