// Package imageload fetches logo and background images referenced by a data
// URI or a remote URL and decodes them into memory.
package imageload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

// DefaultTimeout bounds a single load, network and decode included.
const DefaultTimeout = 5 * time.Second

// maxBodyBytes caps how much of a remote response is read.
const maxBodyBytes = 16 << 20

// MaxPixels caps the decoded area of a raster image.
const MaxPixels = 25_000_000

// ErrTooManyPixels is returned by Decode for images whose header declares
// more than MaxPixels.
var ErrTooManyPixels = errors.New("image dimensions too large")

// errPrivateHost is returned when a remote URL resolves to a non-public
// address.
var errPrivateHost = errors.New("image host is not a public address")

// Ref is an external image reference: a data URI or an http(s) URL.
type Ref string

// IsDataURI reports whether r is inline image data.
func (r Ref) IsDataURI() bool {
	return strings.HasPrefix(strings.TrimSpace(string(r)), "data:")
}

// Loader decodes image references. The zero value is not usable; use New.
type Loader struct {
	client       *http.Client
	timeout      time.Duration
	allowPrivate bool
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for remote URLs. The caller's client
// is used as is, without the private address guard.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithPrivateHosts lets remote URLs reach loopback, private and link-local
// addresses. They are refused by default.
func WithPrivateHosts(allow bool) Option {
	return func(l *Loader) { l.allowPrivate = allow }
}

// WithTimeout overrides the per-load ceiling.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithClock sets the time source used for cache-busting parameters.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New returns a Loader with a 5 second ceiling.
func New(opts ...Option) *Loader {
	l := &Loader{
		timeout: DefaultTimeout,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = newClient(l.allowPrivate)
	}
	return l
}

// newClient returns a client whose dialer checks every resolved address,
// redirects included, unless allowPrivate is set.
func newClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: DefaultTimeout}
	if !allowPrivate {
		dialer.Control = refusePrivate
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: DefaultTimeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

func refusePrivate(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errPrivateHost, address)
	}
	if !PublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", errPrivateHost, ap.Addr())
	}
	return nil
}

// PublicAddr reports whether a is a globally routable unicast address.
func PublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	switch {
	case !a.IsValid(),
		a.IsLoopback(),
		a.IsPrivate(),
		a.IsLinkLocalUnicast(),
		a.IsLinkLocalMulticast(),
		a.IsInterfaceLocalMulticast(),
		a.IsMulticast(),
		a.IsUnspecified():
		return false
	}
	// Carrier-grade NAT shares no routes with the internet either.
	return !netip.MustParsePrefix("100.64.0.0/10").Contains(a)
}

// Load resolves ref into a decoded image. Decode errors and timeouts are both
// reported as qrerr.ErrImageLoadFailed; no retries are made.
func (l *Loader) Load(ctx context.Context, ref Ref) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := l.load(ctx, ref)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			l.log.Warn().Err(r.err).Str("ref", ref.String()).Msg("cannot load image")
			return nil, qrerr.ImageLoad("cannot load image", r.err)
		}
		return r.img, nil
	case <-ctx.Done():
		l.log.Warn().Err(ctx.Err()).Str("ref", ref.String()).Msg("image load timed out")
		return nil, qrerr.ImageLoad("timed out loading image", ctx.Err())
	}
}

func (l *Loader) load(ctx context.Context, ref Ref) (image.Image, error) {
	raw := strings.TrimSpace(string(ref))
	if raw == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	if ref.IsDataURI() {
		mediaType, data, err := ParseDataURI(raw)
		if err != nil {
			return nil, err
		}
		return Decode(data, mediaType)
	}

	data, mediaType, err := l.fetch(ctx, l.bust(raw))
	if err != nil {
		return nil, err
	}
	return Decode(data, mediaType)
}

// bust appends a cache-busting query parameter to a remote URL.
func (l *Loader) bust(raw string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "t=" + strconv.FormatInt(l.now().UnixMilli(), 10)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported image URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Decode decodes raster formats registered with package image, plus SVG.
func Decode(data []byte, mediaType string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	if isSVG(data, mediaType) {
		return decodeSVG(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// String shortens data URIs so they stay readable in logs.
func (r Ref) String() string {
	s := string(r)
	if r.IsDataURI() && len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}
