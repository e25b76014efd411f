// Package toast renders the notification fragment swapped in by HTMX when
// an action needs the user's attention.
package toast

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

// ParseVariant maps form values onto a Variant, defaulting to success.
func ParseVariant(s string) Variant {
	switch s {
	case "error", "destructive":
		return VariantError
	case "warning":
		return VariantWarning
	case "info":
		return VariantInfo
	default:
		return VariantSuccess
	}
}

type Props struct {
	Title       string
	Description string
	Variant     Variant
	// Duration in milliseconds before the toast hides itself; 0 keeps it
	// until dismissed.
	Duration    int
	Dismissible bool
	Class       string
}

var variantClasses = map[Variant]string{
	VariantSuccess: "border-green-500 bg-green-50 text-green-900",
	VariantError:   "border-red-500 bg-red-50 text-red-900",
	VariantWarning: "border-yellow-500 bg-yellow-50 text-yellow-900",
	VariantInfo:    "border-blue-500 bg-blue-50 text-blue-900",
}

const baseClass = "fixed bottom-4 right-4 z-50 w-80 rounded-md border p-4 shadow-lg"

// Toast renders p.
func Toast(p Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		v := p.Variant
		if _, ok := variantClasses[v]; !ok {
			v = VariantSuccess
		}
		class := twmerge.Merge(baseClass, variantClasses[v], p.Class)

		if _, err := fmt.Fprintf(w,
			`<div role="alert" class="%s" data-variant="%s" data-duration="%d">`,
			templ.EscapeString(class), v, p.Duration,
		); err != nil {
			return err
		}
		if p.Title != "" {
			if _, err := fmt.Fprintf(w, `<p class="font-semibold">%s</p>`, templ.EscapeString(p.Title)); err != nil {
				return err
			}
		}
		if p.Description != "" {
			if _, err := fmt.Fprintf(w, `<p class="text-sm">%s</p>`, templ.EscapeString(p.Description)); err != nil {
				return err
			}
		}
		if p.Dismissible {
			if _, err := io.WriteString(w, `<button type="button" aria-label="Close" onclick="this.parentElement.remove()">&times;</button>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
