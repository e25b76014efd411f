package components

import "github.com/cristianadrielbraun/qrstudio/internal/render"

// PreviewData is used by the editor page to build its controls.
type PreviewData struct {
	DefaultContent string
	Templates      []render.Template
	Sizes          []int
	MaxUploadBytes int64
}
