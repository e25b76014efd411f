package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

// UploadHandler ingests a logo or background image and returns a reference
// usable as the logo or background parameter of later requests.
func (h *Handler) UploadHandler(c *gin.Context) {
	kind, err := optimizer.ParseKind(c.Param("kind"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.abortWithError(c, qrerr.Validation("Please select an image", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.abortWithError(c, qrerr.Validation("Could not read the uploaded file", err))
		return
	}
	defer f.Close()

	res, err := h.optimizer.Ingest(c.Request.Context(), f, kind)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ref":       res.Ref,
		"mimeType":  res.MIMEType,
		"width":     res.Width,
		"height":    res.Height,
		"optimized": res.Optimized,
	})
}
