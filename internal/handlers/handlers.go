package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/metrics"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
	"github.com/cristianadrielbraun/qrstudio/web/components"
	"github.com/cristianadrielbraun/qrstudio/web/pages"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	pipeline  *render.Pipeline
	exporter  *export.Service
	optimizer *optimizer.Optimizer
	metrics   *metrics.Metrics
	log       zerolog.Logger
	maxUpload int64
}

// Deps are the services a Handler needs. Metrics may be nil.
type Deps struct {
	Pipeline  *render.Pipeline
	Exporter  *export.Service
	Optimizer *optimizer.Optimizer
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	MaxUpload int64
}

// New returns a new Handler instance.
func New(d Deps) *Handler {
	if d.MaxUpload <= 0 {
		d.MaxUpload = optimizer.DefaultMaxBytes
	}
	return &Handler{
		pipeline:  d.Pipeline,
		exporter:  d.Exporter,
		optimizer: d.Optimizer,
		metrics:   d.Metrics,
		log:       d.Logger,
		maxUpload: d.MaxUpload,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(h.RequestID())

	api := r.Group("/api")
	{
		api.GET("/qr", h.QRCodeHandler)
		api.POST("/qr/export", h.ExportHandler)
		api.POST("/uploads/:kind", h.UploadHandler)
		api.GET("/templates", h.TemplatesHandler)
		api.POST("/htmx/toast", h.GenericToast)
	}
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.GET("/", h.HomePage)
}

// RequestID tags each request with an id and a request-scoped logger.
func (h *Handler) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		log := h.log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context()))
		c.Next()
	}
}

// HomePage serves the editor.
func (h *Handler) HomePage(c *gin.Context) {
	data := components.PreviewData{
		DefaultContent: "https://example.com",
		Templates:      render.Templates,
		Sizes:          export.Sizes,
		MaxUploadBytes: h.maxUpload,
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pages.HomePage(data).Render(c.Request.Context(), c.Writer); err != nil {
		h.logger(c).Error().Err(err).Msg("failed to render home page")
	}
}

// TemplatesHandler lists the colour presets.
func (h *Handler) TemplatesHandler(c *gin.Context) {
	c.JSON(200, gin.H{"templates": render.Templates})
}

// logger returns the request-scoped logger.
func (h *Handler) logger(c *gin.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request.Context())
}

// abortWithError writes the JSON error envelope for err.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	status, body := qrerr.NewResponse(err)
	if status >= 500 {
		h.logger(c).Error().Err(err).Msg("request failed")
	} else {
		h.logger(c).Debug().Err(err).Msg("request rejected")
	}
	c.AbortWithStatusJSON(status, body)
}
