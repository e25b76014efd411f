package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/web/components/toast"
)

// GenericToast returns a Toast component rendered as HTML for HTMX swaps.
func (h *Handler) GenericToast(c *gin.Context) {
	h.writeToast(c, http.StatusOK, toast.Props{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Variant:     toast.ParseVariant(c.PostForm("variant")),
		Duration:    2000,
		Dismissible: c.PostForm("dismissible") == "on",
	})
}

// exportFailed reports a failed download. notice, when set, is the alert
// raised by the export service.
func (h *Handler) exportFailed(c *gin.Context, err error, notice string) {
	if c.GetHeader("HX-Request") != "true" {
		h.abortWithError(c, err)
		return
	}

	description := qrerr.Message(err)
	if notice != "" && !errors.Is(err, qrerr.ErrValidationFailed) {
		description = notice
	}
	h.logger(c).Warn().Err(err).Msg("export failed")
	h.writeToast(c, qrerr.Status(err), toast.Props{
		Title:       "Download failed",
		Description: description,
		Variant:     toast.VariantError,
		Dismissible: true,
	})
	c.Abort()
}

func (h *Handler) writeToast(c *gin.Context, status int, p toast.Props) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := toast.Toast(p).Render(c.Request.Context(), c.Writer); err != nil {
		h.logger(c).Error().Err(err).Msg("failed to render toast")
	}
}
