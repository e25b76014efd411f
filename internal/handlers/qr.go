package handlers

import (
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

// maxContentLength caps the content accepted from a request.
const maxContentLength = 4096

// normalizeHTTPURL validates and normalizes a URL string for QR generation.
// It ensures an http/https scheme, a non-empty hostname, and returns a cleaned absolute URL.
func normalizeHTTPURL(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("URL is required")
	}
	// If missing scheme, default to https
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("only http and https URLs are supported")
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a valid host")
	}
	return u.String(), nil
}

// param reads key from the query string, falling back to the form body.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return v
	}
	return c.PostForm(key)
}

// parseColorParam parses a hex colour, keeping the zero value (meaning
// "default") when the parameter is missing or malformed.
func parseColorParam(p string) color.RGBA {
	if p == "" {
		return color.RGBA{}
	}
	c, ok := render.ParseHexColor(p)
	if !ok {
		return color.RGBA{}
	}
	return c
}

// parseOpacityParam parses an opacity in [0,1]; empty means default.
func parseOpacityParam(p string) (*float64, error) {
	if p == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return nil, qrerr.Validation("Opacity must be a number", err)
	}
	if !render.ValidOpacity(v) {
		return nil, qrerr.Validation("Opacity must be between 0 and 1", fmt.Errorf("opacity %v", v))
	}
	return render.Opacity(v), nil
}

func parseIntParam(p, name string) (int, error) {
	if p == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return 0, qrerr.Validation(fmt.Sprintf("Invalid %s", name), err)
	}
	return v, nil
}

// parseRenderRequest reads the content string and render options shared by
// preview and export requests.
func parseRenderRequest(c *gin.Context) (string, render.Options, error) {
	var opts render.Options

	content := param(c, "content")
	if len(content) > maxContentLength {
		return "", opts, qrerr.Validation("Content is too long", fmt.Errorf("%d bytes", len(content)))
	}
	if strings.EqualFold(param(c, "type"), "url") && content != "" {
		normalized, err := normalizeHTTPURL(content)
		if err != nil {
			return "", opts, qrerr.Validation("Please enter a valid URL", err)
		}
		content = normalized
	}

	if id := param(c, "template"); id != "" {
		tpl, ok := render.TemplateByID(id)
		if !ok {
			return "", opts, qrerr.Validation("Unknown template", fmt.Errorf("template %q", id))
		}
		opts = tpl.Apply(opts)
	}
	if fg := parseColorParam(param(c, "fg")); fg != (color.RGBA{}) {
		opts.Foreground = fg
	}
	if bg := parseColorParam(param(c, "bg")); bg != (color.RGBA{}) {
		opts.Background = bg
	}
	if lv := param(c, "level"); lv != "" {
		level, err := encoder.ParseLevel(lv)
		if err != nil {
			return "", opts, qrerr.Validation("Unknown error correction level", err)
		}
		opts.Level = level
	}

	var err error
	if opts.Width, err = parseIntParam(param(c, "width"), "width"); err != nil {
		return "", opts, err
	}
	if opts.Margin, err = parseIntParam(param(c, "margin"), "margin"); err != nil {
		return "", opts, err
	}
	if opts.LogoOpacity, err = parseOpacityParam(param(c, "logoOpacity")); err != nil {
		return "", opts, err
	}
	if opts.OverlayOpacity, err = parseOpacityParam(param(c, "overlayOpacity")); err != nil {
		return "", opts, err
	}
	opts.Logo = imageload.Ref(param(c, "logo"))
	opts.BackgroundImage = imageload.Ref(param(c, "background"))
	opts.LogoFullSize = param(c, "logoFullSize") == "true" || param(c, "logoFullSize") == "on"

	return content, opts, nil
}

// QRCodeHandler renders the preview image as PNG.
func (h *Handler) QRCodeHandler(c *gin.Context) {
	content, opts, err := parseRenderRequest(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	img, err := h.pipeline.Render(c.Request.Context(), content, opts)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if img == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("X-QR-Level", string(img.Level))
	c.Data(http.StatusOK, render.MIMEType, img.Data)
}

// ExportHandler renders and returns the requested download as an attachment.
// Failures answer with the toast fragment for HTMX clients and the JSON
// error envelope otherwise.
func (h *Handler) ExportHandler(c *gin.Context) {
	content, opts, err := parseRenderRequest(c)
	if err != nil {
		h.exportFailed(c, err, "")
		return
	}
	size, err := parseIntParam(param(c, "size"), "size")
	if err != nil {
		h.exportFailed(c, err, "")
		return
	}
	format, err := export.ParseFormat(param(c, "format"))
	if err != nil {
		h.exportFailed(c, err, "")
		return
	}

	img, err := h.pipeline.Render(c.Request.Context(), content, opts)
	if err != nil {
		h.exportFailed(c, err, "")
		return
	}

	var notice string
	alert := export.AlertFunc(func(msg string) { notice = msg })
	if err := h.exporter.Download(c.Request.Context(), img, size, format, attachment{c}, alert); err != nil {
		h.exportFailed(c, err, notice)
	}
}

// attachment delivers an artifact as the HTTP response body.
type attachment struct {
	c *gin.Context
}

func (a attachment) Deliver(_ context.Context, art *export.Artifact) error {
	a.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	a.c.Data(http.StatusOK, art.MIMEType, art.Data)
	return nil
}
