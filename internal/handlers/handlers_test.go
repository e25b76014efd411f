package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/metrics"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	p, err := render.New(encoder.Yeqown{}, imageload.New(), render.WithMetrics(m))
	require.NoError(t, err)
	ex, err := export.New(export.WithMetrics(m))
	require.NoError(t, err)

	r := gin.New()
	New(Deps{
		Pipeline:  p,
		Exporter:  ex,
		Optimizer: optimizer.New(),
		Metrics:   m,
		Logger:    zerolog.Nop(),
	}).Register(r)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) qrerr.Response {
	t.Helper()
	var body qrerr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func exportRequest(form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/qr/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func TestQRCodeHandlerReturnsPNG(t *testing.T) {
	r := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/qr?content=hello&fg=%23112233", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "M", w.Header().Get("X-QR-Level"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, render.DefaultWidth, img.Bounds().Dx())
}

func TestQRCodeHandlerEmptyContent(t *testing.T) {
	r := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/qr?content=", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestQRCodeHandlerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"unknown level", "content=x&level=Z", "Unknown error correction level"},
		{"bad width", "content=x&width=wide", "Invalid width"},
		{"opacity out of range", "content=x&logoOpacity=1.5", "Opacity must be between 0 and 1"},
		{"opacity not a number", "content=x&logoOpacity=NaN", "Opacity must be between 0 and 1"},
		{"opacity infinite", "content=x&overlayOpacity=Inf", "Opacity must be between 0 and 1"},
		{"width too large", "content=x&width=200000", "Image width must be at most 2000"},
		{"unknown template", "content=x&template=nope", "Unknown template"},
		{"invalid url", "content=ftp://example.com&type=url", "Please enter a valid URL"},
	}

	r := newRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, httptest.NewRequest(http.MethodGet, "/api/qr?"+tt.query, nil))

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, qrerr.CodeValidationFailed, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	w := do(r, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestExportHandlerReturnsAttachment(t *testing.T) {
	r := newRouter(t)

	w := do(r, exportRequest(url.Values{"content": {"hello"}, "size": {"800"}, "format": {"png"}}, false))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="qrcode_800x800.png"`)

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestExportHandlerSVG(t *testing.T) {
	r := newRouter(t)

	w := do(r, exportRequest(url.Values{"content": {"hello"}, "format": {"svg"}}, false))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="qrcode.svg"`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))
}

func TestExportHandlerFailures(t *testing.T) {
	r := newRouter(t)
	form := url.Values{"content": {"hello"}, "size": {"640"}, "format": {"png"}}

	t.Run("json", func(t *testing.T) {
		w := do(r, exportRequest(form, false))

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "Unsupported download size", body.Message)
	})

	t.Run("htmx toast", func(t *testing.T) {
		w := do(r, exportRequest(form, true))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), `role="alert"`)
		assert.Contains(t, w.Body.String(), "Unsupported download size")
	})

	t.Run("nothing rendered", func(t *testing.T) {
		w := do(r, exportRequest(url.Values{"content": {""}}, true))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Nothing to download yet")
	})
}

func multipartUpload(t *testing.T, target string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadHandlerReturnsReference(t *testing.T) {
	r := newRouter(t)

	w := do(r, multipartUpload(t, "/api/uploads/logo", pngBytes(t, 1000, 500)))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Ref      string `json:"ref"`
		MIMEType string `json:"mimeType"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Ref, "data:image/png;base64,"))
	assert.Equal(t, "image/png", body.MIMEType)
	assert.Equal(t, 800, body.Width)
	assert.Equal(t, 400, body.Height)

	// The reference is accepted straight back as a logo.
	q := url.Values{"content": {"hello"}, "logo": {body.Ref}}
	w = do(r, httptest.NewRequest(http.MethodGet, "/api/qr?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "H", w.Header().Get("X-QR-Level"))
}

func TestUploadHandlerRejections(t *testing.T) {
	r := newRouter(t)

	t.Run("not an image", func(t *testing.T) {
		w := do(r, multipartUpload(t, "/api/uploads/logo", []byte("just some text")))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Please select an image", decodeError(t, w).Message)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w := do(r, multipartUpload(t, "/api/uploads/avatar", pngBytes(t, 4, 4)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodPost, "/api/uploads/logo", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Please select an image", decodeError(t, w).Message)
	})
}

func TestTemplatesHandler(t *testing.T) {
	r := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Templates []render.Template `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Templates, len(render.Templates))
}

func TestGenericToast(t *testing.T) {
	r := newRouter(t)
	form := url.Values{"title": {"Saved"}, "description": {"<b>done</b>"}, "variant": {"info"}}
	req := httptest.NewRequest(http.MethodPost, "/api/htmx/toast", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := do(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Saved")
	assert.Contains(t, w.Body.String(), "&lt;b&gt;done&lt;/b&gt;")
	assert.Contains(t, w.Body.String(), `data-variant="info"`)
}

func TestHomePageAndMetrics(t *testing.T) {
	r := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>QR Studio</title>")

	do(r, httptest.NewRequest(http.MethodGet, "/api/qr?content=metrics", nil))
	w = do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qrstudio_cache_requests_total")
}

func TestNormalizeHTTPURL(t *testing.T) {
	got, err := normalizeHTTPURL("  example.com/path ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path", got)

	_, err = normalizeHTTPURL("ftp://example.com/file")
	assert.Error(t, err)
}
