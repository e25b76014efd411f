package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

// Downloader hands a finished artifact to the user.
type Downloader interface {
	Deliver(ctx context.Context, a *Artifact) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, a *Artifact) error

// Deliver calls f.
func (f DownloaderFunc) Deliver(ctx context.Context, a *Artifact) error { return f(ctx, a) }

// Alerter shows a blocking notice to the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

// Alert calls f.
func (f AlertFunc) Alert(message string) { f(message) }

// Download exports img and delivers it. The artifact is built completely
// before anything reaches dl, so a failure never leaves a partial file. On
// failure alert (if non-nil) receives AlertMessage and the error is returned.
func (s *Service) Download(ctx context.Context, img *render.RenderedImage, size int, format Format, dl Downloader, alert Alerter) error {
	a, err := s.Export(ctx, img, size, format)
	if err == nil {
		if derr := dl.Deliver(ctx, a); derr != nil {
			err = qrerr.Export("Could not save the QR code", derr)
			s.log.Error().Err(derr).Str("file", a.Filename).Msg("failed to deliver download")
		}
	}
	if err != nil && alert != nil {
		alert.Alert(AlertMessage)
	}
	return err
}

// DirDownloader writes artifacts into a directory. Files appear atomically
// via a temporary file and a rename.
type DirDownloader struct {
	Dir string
}

// Deliver writes a to Dir/a.Filename.
func (d DirDownloader) Deliver(_ context.Context, a *Artifact) error {
	tmp, err := os.CreateTemp(d.Dir, "."+a.Filename+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", a.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", a.Filename, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Dir, a.Filename)); err != nil {
		return fmt.Errorf("failed to save %s: %w", a.Filename, err)
	}
	return nil
}

// Path returns where Deliver writes a.
func (d DirDownloader) Path(a *Artifact) string {
	return filepath.Join(d.Dir, a.Filename)
}
