package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

// ErrSessionClosed is returned by Render after Close.
var ErrSessionClosed = errors.New("render session closed")

// State is what an editor displays: the current image, whether a render is
// outstanding and the last error message.
type State struct {
	Image      *RenderedImage
	ImageURI   string
	Generating bool
	Err        string
}

// Session drives a Pipeline from an interactive editor. Updates are
// debounced; every render carries a sequence number and a result older than
// the newest request is discarded instead of overwriting newer state.
type Session struct {
	pipeline *Pipeline
	debounce *Debouncer
	log      zerolog.Logger
	onChange func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	requested uint64
	state     State
	closed    bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce sets the quiet window used by Update.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = NewDebouncer(d) }
}

// WithStateListener registers fn to receive every applied state.
func WithStateListener(fn func(State)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession returns a Session rendering through p.
func NewSession(p *Pipeline, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		pipeline: p,
		log:      zerolog.Nop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.debounce == nil {
		s.debounce = NewDebouncer(DefaultDebounce)
	}
	return s
}

// Update schedules a render of content with opts once edits settle. Only
// the last call of a burst reaches the encoder.
func (s *Session) Update(content string, opts Options) {
	s.debounce.Trigger(func() {
		if _, err := s.Render(s.ctx, content, opts); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Debug().Err(err).Msg("debounced render failed")
		}
	})
}

// Render renders immediately and applies the result unless a newer request
// was made in the meantime. The result is returned either way.
func (s *Session) Render(ctx context.Context, content string, opts Options) (*RenderedImage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.requested++
	seq := s.requested
	s.state.Generating = true
	st := s.state
	s.mu.Unlock()
	s.notify(st)

	ctx, cancel := mergeCancel(ctx, s.ctx)
	defer cancel()
	img, err := s.pipeline.Render(ctx, content, opts)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return img, err
	}
	if latest := s.requested; seq < latest {
		// A newer request is outstanding; Generating stays set and the
		// older result never replaces what the newer one will show.
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", seq).Uint64("latest", latest).Msg("discarding stale render")
		return img, err
	}
	s.state.Generating = false
	if err != nil {
		s.state.Err = qrerr.Message(err)
	} else {
		s.state.Err = ""
		s.state.Image = img
		s.state.ImageURI = ""
		if img != nil {
			s.state.ImageURI = img.URI()
		}
	}
	st = s.state
	s.mu.Unlock()
	s.notify(st)
	return img, err
}

// Settle drops any pending debounced update and renders content now.
func (s *Session) Settle(ctx context.Context, content string, opts Options) (*RenderedImage, error) {
	s.debounce.Cancel()
	return s.Render(ctx, content, opts)
}

// State returns a snapshot of the display state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops pending updates, cancels in-flight renders and clears the
// pipeline cache.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debounce.Stop()
	s.cancel()
	s.pipeline.ClearCache()
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

// mergeCancel returns a context derived from ctx that is also cancelled
// when other is.
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
