package pages

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/cristianadrielbraun/qrstudio/web/components"
)

// HomePage renders the editor: content and style controls on the left, the
// live preview and download buttons on the right.
func HomePage(data components.PreviewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		esc := templ.EscapeString
		preview := "/api/qr?content=" + url.QueryEscape(data.DefaultContent)

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Studio</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head>
<body class="min-h-screen bg-gray-50">
<main class="mx-auto grid max-w-5xl gap-8 p-8 md:grid-cols-2">
<form id="qr-form">
<label>Content <textarea name="content">%s</textarea></label>
<label>Foreground <input type="color" name="fg" value="#000000"></label>
<label>Background <input type="color" name="bg" value="#ffffff"></label>
<label>Error correction
<select name="level"><option value="L">L</option><option value="M" selected>M</option><option value="Q">Q</option><option value="H">H</option></select>
</label>
<fieldset><legend>Templates</legend>
`, esc(data.DefaultContent)); err != nil {
			return err
		}

		for _, t := range data.Templates {
			if _, err := fmt.Fprintf(w,
				`<button type="button" data-template="%s" data-fg="%s" data-bg="%s" data-level="%s">%s</button>
`,
				esc(t.ID), esc(t.Foreground), esc(t.Background), esc(string(t.Level)), esc(t.Name),
			); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, `</fieldset>
<input type="hidden" name="logo">
<input type="hidden" name="background">
<label><input type="checkbox" name="logoFullSize" value="true"> Full-size logo</label>
<label>Logo opacity <input type="range" name="logoOpacity" min="0" max="1" step="0.05" value="1"></label>
<label>Overlay opacity <input type="range" name="overlayOpacity" min="0" max="1" step="0.05" value="0.5"></label>
</form>
<label>Logo <input type="file" name="file" accept="image/*" hx-post="/api/uploads/logo" hx-encoding="multipart/form-data" hx-swap="none" data-target="logo" data-max-bytes="%d"></label>
<label>Background image <input type="file" name="file" accept="image/*" hx-post="/api/uploads/background" hx-encoding="multipart/form-data" hx-swap="none" data-target="background" data-max-bytes="%d"></label>
<section>
<img id="preview" src="%s" width="400" height="400" alt="QR code preview">
<form hx-post="/api/qr/export" hx-include="#qr-form" hx-target="#toasts">
<select name="size">
`, data.MaxUploadBytes, data.MaxUploadBytes, esc(preview)); err != nil {
			return err
		}

		for _, size := range data.Sizes {
			if _, err := fmt.Fprintf(w, `<option value="%[1]d">%[1]dx%[1]d</option>
`, size); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</select>
<button type="submit" name="format" value="png">Download PNG</button>
<button type="submit" name="format" value="svg">Download SVG</button>
</form>
<div id="toasts"></div>
</section>
</main>
<script>
(function () {
  var form = document.getElementById("qr-form");
  var preview = document.getElementById("preview");
  var timer;
  function refresh() {
    clearTimeout(timer);
    timer = setTimeout(function () {
      preview.src = "/api/qr?" + new URLSearchParams(new FormData(form));
    }, 300);
  }
  form.addEventListener("input", refresh);
  document.querySelectorAll("[data-template]").forEach(function (b) {
    b.addEventListener("click", function () {
      form.fg.value = b.dataset.fg;
      form.bg.value = b.dataset.bg;
      form.level.value = b.dataset.level;
      refresh();
    });
  });
  document.body.addEventListener("htmx:afterRequest", function (e) {
    var target = e.detail.elt.dataset && e.detail.elt.dataset.target;
    if (!target || !e.detail.successful) return;
    form[target].value = JSON.parse(e.detail.xhr.responseText).ref;
    refresh();
  });
})();
</script>
</body>
</html>
`)
		return err
	})
}
