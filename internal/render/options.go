package render

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"

	"github.com/cristianadrielbraun/qrstudio/internal/compositor"
	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

// Defaults applied to unset option fields.
const (
	DefaultWidth          = 400
	DefaultMargin         = 2
	DefaultLogoOpacity    = 1.0
	DefaultOverlayOpacity = 0.5

	// MaxWidth is the largest image side rendered, matching the largest
	// download size.
	MaxWidth = 2000
)

var (
	DefaultForeground = color.RGBA{0, 0, 0, 255}
	DefaultBackground = color.RGBA{255, 255, 255, 255}
)

// Options control how content is rendered. Zero values mean "use the
// default": a zero Width or Margin, a zero color, a nil opacity and an unset
// Level. A fully transparent color is expressed with A=0 and any non-zero
// channel.
type Options struct {
	Foreground      color.RGBA
	Background      color.RGBA
	Level           encoder.Level
	Width           int
	// Margin is counted in modules on the plain path and in pixels when
	// overlays are composited.
	Margin          int
	Logo            imageload.Ref
	LogoOpacity     *float64
	LogoFullSize    bool
	BackgroundImage imageload.Ref
	OverlayOpacity  *float64
}

// Opacity returns a pointer to v for the opacity fields of Options.
func Opacity(v float64) *float64 { return &v }

// WithDefaults returns a copy of o with every unset field filled in.
// Level is left unset because its default depends on the render path.
func (o Options) WithDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.Foreground == (color.RGBA{}) {
		o.Foreground = DefaultForeground
	}
	if o.Background == (color.RGBA{}) {
		o.Background = DefaultBackground
	}
	if o.LogoOpacity == nil {
		o.LogoOpacity = Opacity(DefaultLogoOpacity)
	}
	if o.OverlayOpacity == nil {
		o.OverlayOpacity = Opacity(DefaultOverlayOpacity)
	}
	return o
}

// Validate checks an option set that already went through WithDefaults.
func (o Options) Validate() error {
	if o.Width <= 0 {
		return qrerr.Validation("Image width must be positive", fmt.Errorf("width %d", o.Width))
	}
	if o.Width > MaxWidth {
		return qrerr.Validation(fmt.Sprintf("Image width must be at most %d", MaxWidth), fmt.Errorf("width %d", o.Width))
	}
	if o.Margin < 0 || 2*o.Margin >= o.Width {
		return qrerr.Validation("Margin does not fit the image width", fmt.Errorf("margin %d for width %d", o.Margin, o.Width))
	}
	if o.Level != encoder.LevelUnset && !o.Level.Valid() {
		return qrerr.Validation("Unknown error correction level", fmt.Errorf("level %q", o.Level))
	}
	if err := checkOpacity("logo opacity", o.LogoOpacity); err != nil {
		return err
	}
	return checkOpacity("overlay opacity", o.OverlayOpacity)
}

func checkOpacity(name string, v *float64) error {
	if v != nil && !ValidOpacity(*v) {
		return qrerr.Validation("Opacity must be between 0 and 1", fmt.Errorf("%s %v", name, *v))
	}
	return nil
}

// ValidOpacity reports whether v is a finite value in [0,1].
func ValidOpacity(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// HasOverlays reports whether rendering needs the compositing path.
func (o Options) HasOverlays() bool {
	return o.Logo != "" || o.BackgroundImage != ""
}

// ForcesHighLevel reports whether the overlays cover enough of the symbol
// that only level H stays scannable.
func (o Options) ForcesHighLevel() bool {
	return o.BackgroundImage != "" || (o.Logo != "" && o.LogoFullSize)
}

// cacheKey is the serialised form of a render request. Field order is fixed
// by the struct, so equal requests always produce equal keys.
type cacheKey struct {
	Content         string  `json:"content"`
	Foreground      string  `json:"fg"`
	Background      string  `json:"bg"`
	Level           string  `json:"level"`
	Width           int     `json:"width"`
	Margin          int     `json:"margin"`
	Logo            string  `json:"logo"`
	LogoOpacity     float64 `json:"logoOpacity"`
	LogoFullSize    bool    `json:"logoFullSize"`
	BackgroundImage string  `json:"backgroundImage"`
	OverlayOpacity  float64 `json:"overlayOpacity"`
}

// Key serialises content and every option field. Call it on defaulted
// options so that an explicit default and an unset field share a key.
func (o Options) Key(content string) (string, error) {
	k := cacheKey{
		Content:         content,
		Foreground:      hexColor(o.Foreground),
		Background:      hexColor(o.Background),
		Level:           string(o.Level),
		Width:           o.Width,
		Margin:          o.Margin,
		Logo:            string(o.Logo),
		LogoFullSize:    o.LogoFullSize,
		BackgroundImage: string(o.BackgroundImage),
	}
	if o.LogoOpacity != nil {
		k.LogoOpacity = *o.LogoOpacity
	}
	if o.OverlayOpacity != nil {
		k.OverlayOpacity = *o.OverlayOpacity
	}
	b, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("failed to build cache key: %w", err)
	}
	return string(b), nil
}

// drawing converts defaulted options into compositor parameters.
func (o Options) drawing() compositor.Options {
	d := compositor.Options{
		Width:           o.Width,
		Margin:          o.Margin,
		Foreground:      o.Foreground,
		Background:      o.Background,
		Logo:            o.Logo,
		LogoFullSize:    o.LogoFullSize,
		BackgroundImage: o.BackgroundImage,
		LogoOpacity:     DefaultLogoOpacity,
		OverlayOpacity:  DefaultOverlayOpacity,
	}
	if o.LogoOpacity != nil {
		d.LogoOpacity = *o.LogoOpacity
	}
	if o.OverlayOpacity != nil {
		d.OverlayOpacity = *o.OverlayOpacity
	}
	return d
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
