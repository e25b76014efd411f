package render

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
)

// Template is a named colour scheme for the editor.
type Template struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Foreground string        `json:"foreground"`
	Background string        `json:"background"`
	Level      encoder.Level `json:"errorCorrectionLevel"`
}

// Templates lists the built-in presets in display order.
var Templates = []Template{
	{ID: "standard", Name: "Standard", Foreground: "#000000", Background: "#FFFFFF", Level: encoder.LevelM},
	{ID: "business", Name: "Business", Foreground: "#0056b3", Background: "#FFFFFF", Level: encoder.LevelH},
	{ID: "social-media", Name: "Social Media", Foreground: "#e91e63", Background: "#FFFFFF", Level: encoder.LevelQ},
	{ID: "eco", Name: "Eco-friendly", Foreground: "#4CAF50", Background: "#F1F8E9", Level: encoder.LevelM},
	{ID: "dark-mode", Name: "Dark Mode", Foreground: "#FFFFFF", Background: "#121212", Level: encoder.LevelH},
	{ID: "high-contrast", Name: "High Contrast", Foreground: "#000000", Background: "#FFFFFF", Level: encoder.LevelH},
	{ID: "modern", Name: "Modern", Foreground: "#673AB7", Background: "#FFFFFF", Level: encoder.LevelQ},
	{ID: "vintage", Name: "Vintage", Foreground: "#795548", Background: "#EFEBE9", Level: encoder.LevelM},
}

// TemplateByID finds a preset.
func TemplateByID(id string) (Template, bool) {
	for _, t := range Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Apply copies the preset's colours and level onto opts.
func (t Template) Apply(opts Options) Options {
	opts.Foreground = mustHex(t.Foreground)
	opts.Background = mustHex(t.Background)
	opts.Level = t.Level
	return opts
}

// ParseHexColor parses #rrggbb or #rgb, with or without the '#'.
func ParseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}

	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}, true
}

func mustHex(s string) color.RGBA {
	c, ok := ParseHexColor(s)
	if !ok {
		panic("render: bad template colour " + s)
	}
	return c
}
