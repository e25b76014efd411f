package cmd

import (
	"context"
	"fmt"
	"image/color"
	"os"

	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

var renderFlags struct {
	out            string
	size           int
	format         string
	template       string
	fg             string
	bg             string
	level          string
	width          int
	margin         int
	logo           string
	logoFile       string
	logoOpacity    float64
	logoFullSize   bool
	background     string
	backgroundFile string
	overlayOpacity float64
}

var renderCmd = &cobra.Command{
	Use:   "render <content>",
	Short: "Render a QR code to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cfg, log)
		if err != nil {
			return err
		}
		defer svc.close()

		opts, err := renderOptions(cmd, svc.optimizer)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(renderFlags.format)
		if err != nil {
			return err
		}

		img, err := svc.pipeline.Render(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		if img == nil {
			return fmt.Errorf("nothing to render")
		}

		written, err := save(cmd, svc, img, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (level %s)\n", written, img.Level)
		return nil
	},
}

func init() {
	addRenderFlags(renderCmd)
}

// addRenderFlags binds the option flags shared by render and watch.
func addRenderFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&renderFlags.out, "out", "o", ".", "output directory")
	f.IntVar(&renderFlags.size, "size", 0, "output size in pixels (400, 800, 1200 or 2000; default native)")
	f.StringVar(&renderFlags.format, "format", "png", "output format: png or svg")
	f.StringVar(&renderFlags.template, "template", "", "colour preset id")
	f.StringVar(&renderFlags.fg, "fg", "", "foreground colour (#rrggbb)")
	f.StringVar(&renderFlags.bg, "bg", "", "background colour (#rrggbb)")
	f.StringVar(&renderFlags.level, "level", "", "error correction level: L, M, Q or H")
	f.IntVar(&renderFlags.width, "width", render.DefaultWidth, "rendered width in pixels")
	f.IntVar(&renderFlags.margin, "margin", render.DefaultMargin, "margin in pixels")
	f.StringVar(&renderFlags.logo, "logo", "", "logo image URL or data URI")
	f.StringVar(&renderFlags.logoFile, "logo-file", "", "logo image file, optimized before use")
	f.Float64Var(&renderFlags.logoOpacity, "logo-opacity", render.DefaultLogoOpacity, "logo opacity 0..1")
	f.BoolVar(&renderFlags.logoFullSize, "logo-full-size", false, "stretch the logo over the whole code")
	f.StringVar(&renderFlags.background, "background", "", "background image URL or data URI")
	f.StringVar(&renderFlags.backgroundFile, "background-file", "", "background image file, optimized before use")
	f.Float64Var(&renderFlags.overlayOpacity, "overlay-opacity", render.DefaultOverlayOpacity, "background overlay opacity 0..1")
}

// save exports img into the output directory and returns the written path.
func save(cmd *cobra.Command, svc *services, img *render.RenderedImage, format export.Format) (string, error) {
	dl := export.DirDownloader{Dir: renderFlags.out}
	var written string
	deliver := export.DownloaderFunc(func(ctx context.Context, a *export.Artifact) error {
		written = dl.Path(a)
		return dl.Deliver(ctx, a)
	})
	alert := export.AlertFunc(func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) })
	if err := svc.exporter.Download(cmd.Context(), img, renderFlags.size, format, deliver, alert); err != nil {
		return "", err
	}
	return written, nil
}

func renderOptions(cmd *cobra.Command, opt *optimizer.Optimizer) (render.Options, error) {
	var opts render.Options
	if renderFlags.template != "" {
		tpl, ok := render.TemplateByID(renderFlags.template)
		if !ok {
			return opts, fmt.Errorf("unknown template %q", renderFlags.template)
		}
		opts = tpl.Apply(opts)
	}
	var err error
	if renderFlags.fg != "" {
		if opts.Foreground, err = hexFlag("fg", renderFlags.fg); err != nil {
			return opts, err
		}
	}
	if renderFlags.bg != "" {
		if opts.Background, err = hexFlag("bg", renderFlags.bg); err != nil {
			return opts, err
		}
	}
	if renderFlags.level != "" {
		level, err := encoder.ParseLevel(renderFlags.level)
		if err != nil {
			return opts, err
		}
		opts.Level = level
	}

	opts.Width = renderFlags.width
	opts.Margin = renderFlags.margin
	opts.LogoOpacity = render.Opacity(renderFlags.logoOpacity)
	opts.OverlayOpacity = render.Opacity(renderFlags.overlayOpacity)
	opts.LogoFullSize = renderFlags.logoFullSize
	opts.Logo = imageload.Ref(renderFlags.logo)
	opts.BackgroundImage = imageload.Ref(renderFlags.background)

	if renderFlags.logoFile != "" {
		if opts.Logo, err = ingestFile(cmd, opt, renderFlags.logoFile, optimizer.KindLogo); err != nil {
			return opts, err
		}
	}
	if renderFlags.backgroundFile != "" {
		if opts.BackgroundImage, err = ingestFile(cmd, opt, renderFlags.backgroundFile, optimizer.KindBackground); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func ingestFile(cmd *cobra.Command, opt *optimizer.Optimizer, path string, kind optimizer.Kind) (imageload.Ref, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	res, err := opt.Ingest(cmd.Context(), f, kind)
	if err != nil {
		return "", err
	}
	return res.Ref, nil
}

func hexFlag(name, v string) (color.RGBA, error) {
	c, ok := render.ParseHexColor(v)
	if !ok {
		return color.RGBA{}, fmt.Errorf("invalid --%s colour %q", name, v)
	}
	return c, nil
}
